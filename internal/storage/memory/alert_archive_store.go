package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"transient-filter/internal/domain"
	"transient-filter/internal/mjd"
	"transient-filter/internal/storage"
)

// archiveKey identifies one archived alert.
type archiveKey struct {
	survey  string
	alertID int64
}

// AlertArchiveStore is an in-memory implementation of storage.AlertArchiveStore.
// Alerts are kept as their canonical JSON payload, matching what the durable
// archive stores, so reads never alias writer memory.
type AlertArchiveStore struct {
	mu   sync.RWMutex
	data map[archiveKey][]byte
}

// NewAlertArchiveStore creates a new in-memory alert archive.
func NewAlertArchiveStore() *AlertArchiveStore {
	return &AlertArchiveStore{
		data: make(map[archiveKey][]byte),
	}
}

// Insert archives an alert. Returns ErrDuplicateKey if (survey, alert_id) exists.
func (s *AlertArchiveStore) Insert(_ context.Context, a *domain.Alert) error {
	if a == nil || a.Survey == "" {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := archiveKey{survey: a.Survey, alertID: a.AlertID}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[key] = payload
	return nil
}

// GetByAlertID retrieves one archived alert. Returns ErrNotFound if not exists.
func (s *AlertArchiveStore) GetByAlertID(_ context.Context, survey string, alertID int64) (*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, exists := s.data[archiveKey{survey: survey, alertID: alertID}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return decodeAlert(payload)
}

// GetBySurvey retrieves all archived alerts for a survey, ordered by (mjd, alert_id) ASC.
func (s *AlertArchiveStore) GetBySurvey(_ context.Context, survey string) ([]*domain.Alert, error) {
	return s.collect(func(a *domain.Alert) bool {
		return a.Survey == survey
	})
}

// GetByNightRange retrieves archived alerts within [startNight, endNight] (inclusive).
func (s *AlertArchiveStore) GetByNightRange(_ context.Context, survey string, startNight, endNight int) ([]*domain.Alert, error) {
	return s.collect(func(a *domain.Alert) bool {
		night := mjd.Night(a.Current.Mjd)
		return a.Survey == survey && night >= startNight && night <= endNight
	})
}

func (s *AlertArchiveStore) collect(match func(*domain.Alert) bool) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alert
	for _, payload := range s.data {
		a, err := decodeAlert(payload)
		if err != nil {
			return nil, err
		}
		if match(a) {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Current.Mjd != result[j].Current.Mjd {
			return result[i].Current.Mjd < result[j].Current.Mjd
		}
		return result[i].AlertID < result[j].AlertID
	})
	return result, nil
}

func decodeAlert(payload []byte) (*domain.Alert, error) {
	var a domain.Alert
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("unmarshal alert payload: %w", err)
	}
	return &a, nil
}

// Verify interface compliance at compile time.
var _ storage.AlertArchiveStore = (*AlertArchiveStore)(nil)
