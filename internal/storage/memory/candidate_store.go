package memory

import (
	"context"
	"sort"
	"sync"

	"transient-filter/internal/domain"
	"transient-filter/internal/storage"
)

// CandidateStore is an in-memory implementation of storage.CandidateStore.
type CandidateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DiscoveryCandidate // keyed by candidate_id
}

// NewCandidateStore creates a new in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		data: make(map[string]*domain.DiscoveryCandidate),
	}
}

// Insert adds a new candidate. Returns ErrDuplicateKey if candidate_id exists.
func (s *CandidateStore) Insert(_ context.Context, c *domain.DiscoveryCandidate) error {
	if c == nil || c.CandidateID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.CandidateID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	candidateCopy := *c
	s.data[c.CandidateID] = &candidateCopy
	return nil
}

// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByID(_ context.Context, candidateID string) (*domain.DiscoveryCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[candidateID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	candidateCopy := *c
	return &candidateCopy, nil
}

// GetByObject retrieves all candidates for a survey object, ordered by mjd ASC.
func (s *CandidateStore) GetByObject(_ context.Context, survey, objectID string) ([]*domain.DiscoveryCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DiscoveryCandidate
	for _, c := range s.data {
		if c.Survey == survey && c.ObjectID == objectID {
			candidateCopy := *c
			result = append(result, &candidateCopy)
		}
	}

	sortCandidates(result)
	return result, nil
}

// GetByNightRange retrieves candidates within [startNight, endNight] (inclusive).
func (s *CandidateStore) GetByNightRange(_ context.Context, startNight, endNight int) ([]*domain.DiscoveryCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DiscoveryCandidate
	for _, c := range s.data {
		if c.Night >= startNight && c.Night <= endNight {
			candidateCopy := *c
			result = append(result, &candidateCopy)
		}
	}

	sortCandidates(result)
	return result, nil
}

// GetByOutcome retrieves all candidates with a given outcome.
func (s *CandidateStore) GetByOutcome(_ context.Context, outcome domain.Outcome) ([]*domain.DiscoveryCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DiscoveryCandidate
	for _, c := range s.data {
		if c.Outcome == outcome {
			candidateCopy := *c
			result = append(result, &candidateCopy)
		}
	}

	sortCandidates(result)
	return result, nil
}

// sortCandidates orders by (mjd, candidate_id) ASC for deterministic reads.
func sortCandidates(candidates []*domain.DiscoveryCandidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Mjd != candidates[j].Mjd {
			return candidates[i].Mjd < candidates[j].Mjd
		}
		return candidates[i].CandidateID < candidates[j].CandidateID
	})
}

// Verify interface compliance at compile time.
var _ storage.CandidateStore = (*CandidateStore)(nil)
