package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transient-filter/internal/domain"
	"transient-filter/internal/storage"
)

func TestCandidateStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandidateStore(pool)
	ctx := context.Background()

	candidate := &domain.DiscoveryCandidate{
		CandidateID: "test-candidate-001",
		Designation: "TF3mJr9qKp2v",
		AlertID:     1618229000015010003,
		ObjectID:    "ZTF21abcdxyz",
		Survey:      "ztf",
		Outcome:     domain.OutcomeIntraNight,
		Mjd:         59000.2341,
		RA:          150.11234,
		Dec:         -22.48913,
		Night:       59000,
	}

	// Insert
	err := store.Insert(ctx, candidate)
	require.NoError(t, err)

	// GetByID
	retrieved, err := store.GetByID(ctx, "test-candidate-001")
	require.NoError(t, err)

	assert.Equal(t, candidate.CandidateID, retrieved.CandidateID)
	assert.Equal(t, candidate.Designation, retrieved.Designation)
	assert.Equal(t, candidate.AlertID, retrieved.AlertID)
	assert.Equal(t, candidate.ObjectID, retrieved.ObjectID)
	assert.Equal(t, candidate.Survey, retrieved.Survey)
	assert.Equal(t, candidate.Outcome, retrieved.Outcome)
	assert.Equal(t, candidate.Mjd, retrieved.Mjd)
	assert.Equal(t, candidate.RA, retrieved.RA)
	assert.Equal(t, candidate.Dec, retrieved.Dec)
	assert.Equal(t, candidate.Night, retrieved.Night)
	assert.NotZero(t, retrieved.CreatedAt)
}

func TestCandidateStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandidateStore(pool)
	ctx := context.Background()

	candidate := &domain.DiscoveryCandidate{
		CandidateID: "test-candidate-dup",
		Designation: "TF3mJr9qKp2v",
		AlertID:     1618229000015010003,
		ObjectID:    "ZTF21abcdxyz",
		Survey:      "ztf",
		Outcome:     domain.OutcomeInterNight,
		Mjd:         59000.2341,
		RA:          150.11234,
		Dec:         -22.48913,
		Night:       59000,
	}

	// First insert should succeed
	err := store.Insert(ctx, candidate)
	require.NoError(t, err)

	// Second insert should return ErrDuplicateKey
	err = store.Insert(ctx, candidate)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCandidateStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandidateStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCandidateStore_GetByObject(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandidateStore(pool)
	ctx := context.Background()

	// Insert multiple candidates, two sharing the same survey object
	candidates := []*domain.DiscoveryCandidate{
		{
			CandidateID: "candidate-obj-1",
			Designation: "TFaaa111",
			AlertID:     100,
			ObjectID:    "ZTF21abcdxyz",
			Survey:      "ztf",
			Outcome:     domain.OutcomeIntraNight,
			Mjd:         59000.1,
			RA:          150.1,
			Dec:         -22.5,
			Night:       59000,
		},
		{
			CandidateID: "candidate-obj-2",
			Designation: "TFbbb222",
			AlertID:     101,
			ObjectID:    "ZTF21abcdxyz",
			Survey:      "ztf",
			Outcome:     domain.OutcomeInterNight,
			Mjd:         59002.5,
			RA:          150.1,
			Dec:         -22.5,
			Night:       59002,
		},
		{
			CandidateID: "candidate-other-obj",
			Designation: "TFccc333",
			AlertID:     102,
			ObjectID:    "ZTF21other",
			Survey:      "ztf",
			Outcome:     domain.OutcomeIntraNight,
			Mjd:         59001.3,
			RA:          12.0,
			Dec:         30.0,
			Night:       59001,
		},
		{
			CandidateID: "candidate-other-survey",
			Designation: "TFddd444",
			AlertID:     103,
			ObjectID:    "ZTF21abcdxyz",
			Survey:      "elasticc",
			Outcome:     domain.OutcomeIntraNight,
			Mjd:         59001.4,
			RA:          150.1,
			Dec:         -22.5,
			Night:       59001,
		},
	}

	for _, c := range candidates {
		err := store.Insert(ctx, c)
		require.NoError(t, err)
	}

	// GetByObject should return only candidates with matching survey and object
	result, err := store.GetByObject(ctx, "ztf", "ZTF21abcdxyz")
	require.NoError(t, err)

	assert.Len(t, result, 2)
	assert.Equal(t, "candidate-obj-1", result[0].CandidateID)
	assert.Equal(t, "candidate-obj-2", result[1].CandidateID)
}

func TestCandidateStore_GetByNightRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandidateStore(pool)
	ctx := context.Background()

	// Insert candidates across four nights
	nights := []int{59000, 59001, 59002, 59003}
	for i, night := range nights {
		c := &domain.DiscoveryCandidate{
			CandidateID: fmt.Sprintf("candidate-night-%d", i+1),
			Designation: fmt.Sprintf("TFnight%d", i+1),
			AlertID:     int64(200 + i),
			ObjectID:    "ZTF21nightly",
			Survey:      "ztf",
			Outcome:     domain.OutcomeIntraNight,
			Mjd:         float64(night) + 0.25,
			RA:          150.1,
			Dec:         -22.5,
			Night:       night,
		}
		err := store.Insert(ctx, c)
		require.NoError(t, err)
	}

	// GetByNightRange [59001, 59002] should return the middle two (inclusive)
	result, err := store.GetByNightRange(ctx, 59001, 59002)
	require.NoError(t, err)

	assert.Len(t, result, 2)
	assert.Equal(t, "candidate-night-2", result[0].CandidateID)
	assert.Equal(t, "candidate-night-3", result[1].CandidateID)

	// GetByNightRange with exact boundaries
	result, err = store.GetByNightRange(ctx, 59000, 59003)
	require.NoError(t, err)
	assert.Len(t, result, 4)
}

func TestCandidateStore_GetByOutcome(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandidateStore(pool)
	ctx := context.Background()

	// Insert candidates with different outcomes
	candidates := []*domain.DiscoveryCandidate{
		{
			CandidateID: "candidate-intra-1",
			Designation: "TFintra1",
			AlertID:     300,
			ObjectID:    "ZTF21aaa",
			Survey:      "ztf",
			Outcome:     domain.OutcomeIntraNight,
			Mjd:         59000.1,
			RA:          10.0,
			Dec:         20.0,
			Night:       59000,
		},
		{
			CandidateID: "candidate-intra-2",
			Designation: "TFintra2",
			AlertID:     301,
			ObjectID:    "ZTF21bbb",
			Survey:      "ztf",
			Outcome:     domain.OutcomeIntraNight,
			Mjd:         59000.4,
			RA:          11.0,
			Dec:         21.0,
			Night:       59000,
		},
		{
			CandidateID: "candidate-inter-1",
			Designation: "TFinter1",
			AlertID:     302,
			ObjectID:    "ZTF21ccc",
			Survey:      "ztf",
			Outcome:     domain.OutcomeInterNight,
			Mjd:         59002.2,
			RA:          12.0,
			Dec:         22.0,
			Night:       59002,
		},
	}

	for _, c := range candidates {
		err := store.Insert(ctx, c)
		require.NoError(t, err)
	}

	// GetByOutcome INTRA_NIGHT
	intra, err := store.GetByOutcome(ctx, domain.OutcomeIntraNight)
	require.NoError(t, err)
	assert.Len(t, intra, 2)

	// GetByOutcome INTER_NIGHT
	inter, err := store.GetByOutcome(ctx, domain.OutcomeInterNight)
	require.NoError(t, err)
	assert.Len(t, inter, 1)
	assert.Equal(t, "candidate-inter-1", inter[0].CandidateID)
}

func TestCandidateStore_Ordering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandidateStore(pool)
	ctx := context.Background()

	// Insert candidates sharing the same mjd
	candidates := []*domain.DiscoveryCandidate{
		{
			CandidateID: "z-candidate", // later in alphabetical order
			Designation: "TFzzz",
			AlertID:     400,
			ObjectID:    "ZTF21same",
			Survey:      "ztf",
			Outcome:     domain.OutcomeIntraNight,
			Mjd:         59000.5, // same time
			RA:          150.1,
			Dec:         -22.5,
			Night:       59000,
		},
		{
			CandidateID: "a-candidate", // earlier in alphabetical order
			Designation: "TFaaa",
			AlertID:     401,
			ObjectID:    "ZTF21same",
			Survey:      "ztf",
			Outcome:     domain.OutcomeIntraNight,
			Mjd:         59000.5, // same time
			RA:          150.1,
			Dec:         -22.5,
			Night:       59000,
		},
	}

	// Insert in reverse order
	for i := len(candidates) - 1; i >= 0; i-- {
		err := store.Insert(ctx, candidates[i])
		require.NoError(t, err)
	}

	// Results should be ordered by mjd ASC, candidate_id ASC
	result, err := store.GetByObject(ctx, "ztf", "ZTF21same")
	require.NoError(t, err)

	assert.Len(t, result, 2)
	assert.Equal(t, "a-candidate", result[0].CandidateID)
	assert.Equal(t, "z-candidate", result[1].CandidateID)
}

func TestCandidateStore_EmptyResult(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandidateStore(pool)
	ctx := context.Background()

	// GetByObject with no matching records
	result, err := store.GetByObject(ctx, "ztf", "ZTF21nothing")
	require.NoError(t, err)
	assert.Empty(t, result)

	// GetByNightRange with no matching records
	result, err = store.GetByNightRange(ctx, 70000, 70010)
	require.NoError(t, err)
	assert.Empty(t, result)

	// GetByOutcome with no matching records
	result, err = store.GetByOutcome(ctx, domain.OutcomeInterNight)
	require.NoError(t, err)
	assert.Empty(t, result)
}
