package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transient-filter/internal/domain"
	"transient-filter/internal/storage"
)

func testRecord(alertID int64, objectID string, mjd float64, night int) *domain.DecisionRecord {
	return &domain.DecisionRecord{
		AlertID:        alertID,
		ObjectID:       objectID,
		Survey:         "ztf",
		Outcome:        domain.OutcomeIntraNight,
		IsCandidate:    true,
		SepArcsec:      0.42,
		CombinedArcsec: 0.72,
		PositionOK:     true,
		ScienceMasked:  49,
		TemplateMasked: 0,
		HostlessOK:     true,
		SecondPass:     false,
		Mjd:            mjd,
		Night:          night,
		ProcessedAt:    1704067200000,
	}
}

func TestDecisionStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(conn)
	ctx := context.Background()

	// Test empty insert
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	// Test single insert
	records := []*domain.DecisionRecord{testRecord(1001, "ZTF21aaaaaaa", 59000.5, 59000)}

	err = store.InsertBulk(ctx, records)
	require.NoError(t, err)

	// Verify insert
	got, err := store.GetByAlertID(ctx, "ztf", 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), got.AlertID)
	assert.Equal(t, "ZTF21aaaaaaa", got.ObjectID)
	assert.Equal(t, domain.OutcomeIntraNight, got.Outcome)
	assert.True(t, got.IsCandidate)
	assert.Equal(t, 0.42, got.SepArcsec)
	assert.Equal(t, 49, got.ScienceMasked)
	assert.Equal(t, 0, got.TemplateMasked)
	assert.True(t, got.HostlessOK)
	assert.Equal(t, 59000, got.Night)
	assert.Equal(t, int64(1704067200000), got.ProcessedAt)
}

func TestDecisionStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(conn)
	ctx := context.Background()

	records := []*domain.DecisionRecord{testRecord(1001, "ZTF21aaaaaaa", 59000.5, 59000)}

	err := store.InsertBulk(ctx, records)
	require.NoError(t, err)

	// Try to insert duplicate
	err = store.InsertBulk(ctx, records)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDecisionStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(conn)
	ctx := context.Background()

	// Same key twice in one batch
	records := []*domain.DecisionRecord{
		testRecord(1001, "ZTF21aaaaaaa", 59000.5, 59000),
		testRecord(1001, "ZTF21aaaaaaa", 59000.5, 59000),
	}

	err := store.InsertBulk(ctx, records)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDecisionStore_GetByAlertID_NotFound(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(conn)
	ctx := context.Background()

	_, err := store.GetByAlertID(ctx, "ztf", 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDecisionStore_GetByObject(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(conn)
	ctx := context.Background()

	records := []*domain.DecisionRecord{
		testRecord(3, "obj-1", 59002.3, 59002),
		testRecord(1, "obj-1", 59000.1, 59000),
		testRecord(2, "obj-2", 59001.2, 59001),
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetByObject(ctx, "ztf", "obj-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by mjd ASC
	assert.Equal(t, int64(1), got[0].AlertID)
	assert.Equal(t, int64(3), got[1].AlertID)
}

func TestDecisionStore_GetByNightRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(conn)
	ctx := context.Background()

	records := []*domain.DecisionRecord{
		testRecord(1, "obj-1", 59000.1, 59000),
		testRecord(2, "obj-2", 59001.2, 59001),
		testRecord(3, "obj-3", 59002.3, 59002),
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetByNightRange(ctx, "ztf", 59000, 59001)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].AlertID)
	assert.Equal(t, int64(2), got[1].AlertID)
}

func TestDecisionStore_RoundTripNonCandidate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(conn)
	ctx := context.Background()

	record := testRecord(7, "obj-7", 59000.4, 59000)
	record.Outcome = domain.OutcomeNoDiscovery
	record.IsCandidate = false
	record.Reason = "established object"
	record.PositionOK = false
	record.HostlessOK = false
	record.SecondPass = true

	require.NoError(t, store.InsertBulk(ctx, []*domain.DecisionRecord{record}))

	got, err := store.GetByAlertID(ctx, "ztf", 7)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoDiscovery, got.Outcome)
	assert.False(t, got.IsCandidate)
	assert.Equal(t, "established object", got.Reason)
	assert.False(t, got.PositionOK)
	assert.False(t, got.HostlessOK)
	assert.True(t, got.SecondPass)
}
