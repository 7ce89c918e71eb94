package memory

import (
	"context"
	"sort"
	"sync"

	"transient-filter/internal/domain"
	"transient-filter/internal/storage"
)

// decisionKey identifies one decision record.
type decisionKey struct {
	survey  string
	alertID int64
}

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data map[decisionKey]*domain.DecisionRecord
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make(map[decisionKey]*domain.DecisionRecord),
	}
}

// InsertBulk adds multiple decision records. Fails entire batch on any duplicate.
func (s *DecisionStore) InsertBulk(_ context.Context, records []*domain.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before writing anything
	seen := make(map[decisionKey]bool, len(records))
	for _, r := range records {
		if r == nil || r.Survey == "" {
			return storage.ErrInvalidInput
		}
		key := decisionKey{survey: r.Survey, alertID: r.AlertID}
		if seen[key] {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = true
	}

	for _, r := range records {
		recordCopy := *r
		s.data[decisionKey{survey: r.Survey, alertID: r.AlertID}] = &recordCopy
	}
	return nil
}

// GetByAlertID retrieves the decision for one alert. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByAlertID(_ context.Context, survey string, alertID int64) (*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[decisionKey{survey: survey, alertID: alertID}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *r
	return &recordCopy, nil
}

// GetByObject retrieves all decisions for a survey object, ordered by mjd ASC.
func (s *DecisionStore) GetByObject(_ context.Context, survey, objectID string) ([]*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DecisionRecord
	for _, r := range s.data {
		if r.Survey == survey && r.ObjectID == objectID {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sortDecisions(result)
	return result, nil
}

// GetByNightRange retrieves decisions within [startNight, endNight] (inclusive).
func (s *DecisionStore) GetByNightRange(_ context.Context, survey string, startNight, endNight int) ([]*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DecisionRecord
	for _, r := range s.data {
		if r.Survey == survey && r.Night >= startNight && r.Night <= endNight {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sortDecisions(result)
	return result, nil
}

// sortDecisions orders by (mjd, alert_id) ASC for deterministic reads.
func sortDecisions(records []*domain.DecisionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Mjd != records[j].Mjd {
			return records[i].Mjd < records[j].Mjd
		}
		return records[i].AlertID < records[j].AlertID
	})
}

// Verify interface compliance at compile time.
var _ storage.DecisionStore = (*DecisionStore)(nil)
