package memory

import (
	"context"
	"fmt"
	"sync"

	"transient-filter/internal/storage"
)

// SeenCache is an in-memory implementation of storage.SeenCache.
type SeenCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewSeenCache creates a new in-memory seen cache.
func NewSeenCache() *SeenCache {
	return &SeenCache{
		seen: make(map[string]bool),
	}
}

// MarkSeen records an alert as processed. Returns true when newly marked.
func (c *SeenCache) MarkSeen(_ context.Context, survey string, alertID int64) (bool, error) {
	key := fmt.Sprintf("%s:%d", survey, alertID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seen[key] {
		return false, nil
	}
	c.seen[key] = true
	return true, nil
}

// Verify interface compliance at compile time.
var _ storage.SeenCache = (*SeenCache)(nil)
