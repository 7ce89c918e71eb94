package redis

import (
	"context"
	"fmt"
	"time"

	"transient-filter/internal/storage"
)

// DefaultSeenTTL bounds how long processed alert IDs are remembered. Keys
// only need to outlive the broker's redelivery window.
const DefaultSeenTTL = 7 * 24 * time.Hour

// SeenCache implements storage.SeenCache using Redis.
type SeenCache struct {
	client *Client
	ttl    time.Duration
}

// NewSeenCache creates a new SeenCache. A non-positive ttl falls back to
// DefaultSeenTTL.
func NewSeenCache(client *Client, ttl time.Duration) *SeenCache {
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	return &SeenCache{client: client, ttl: ttl}
}

// Compile-time interface check.
var _ storage.SeenCache = (*SeenCache)(nil)

// MarkSeen records an alert as processed and reports whether it was newly
// marked. SET NX refuses to overwrite an existing key, so the check and the
// mark happen in one round trip.
func (s *SeenCache) MarkSeen(ctx context.Context, survey string, alertID int64) (bool, error) {
	fresh, err := s.client.rdb.SetNX(ctx, seenKey(survey, alertID), 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark alert seen: %w", err)
	}
	return fresh, nil
}

// seenKey builds the cache key for one alert.
func seenKey(survey string, alertID int64) string {
	return fmt.Sprintf("seen:%s:%d", survey, alertID)
}
