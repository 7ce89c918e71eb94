package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"transient-filter/internal/domain"
	"transient-filter/internal/storage"
)

// CandidateStore implements storage.CandidateStore using PostgreSQL.
type CandidateStore struct {
	pool *Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

// Insert adds a new candidate. Returns ErrDuplicateKey if candidate_id exists.
func (s *CandidateStore) Insert(ctx context.Context, c *domain.DiscoveryCandidate) error {
	query := `
		INSERT INTO discovery_candidates (
			candidate_id, designation, alert_id, object_id, survey, outcome, mjd, ra, decl, night
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		c.CandidateID,
		c.Designation,
		c.AlertID,
		c.ObjectID,
		c.Survey,
		string(c.Outcome),
		c.Mjd,
		c.RA,
		c.Dec,
		c.Night,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByID(ctx context.Context, candidateID string) (*domain.DiscoveryCandidate, error) {
	query := `
		SELECT candidate_id, designation, alert_id, object_id, survey, outcome, mjd, ra, decl, night, created_at
		FROM discovery_candidates
		WHERE candidate_id = $1
	`

	row := s.pool.QueryRow(ctx, query, candidateID)
	c, err := scanCandidate(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get candidate by id: %w", err)
	}
	return c, nil
}

// GetByObject retrieves all candidates for a survey object, ordered by mjd ASC.
func (s *CandidateStore) GetByObject(ctx context.Context, survey, objectID string) ([]*domain.DiscoveryCandidate, error) {
	query := `
		SELECT candidate_id, designation, alert_id, object_id, survey, outcome, mjd, ra, decl, night, created_at
		FROM discovery_candidates
		WHERE survey = $1 AND object_id = $2
		ORDER BY mjd ASC, candidate_id ASC
	`

	rows, err := s.pool.Query(ctx, query, survey, objectID)
	if err != nil {
		return nil, fmt.Errorf("get candidates by object: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetByNightRange retrieves candidates within [startNight, endNight] (inclusive).
func (s *CandidateStore) GetByNightRange(ctx context.Context, startNight, endNight int) ([]*domain.DiscoveryCandidate, error) {
	query := `
		SELECT candidate_id, designation, alert_id, object_id, survey, outcome, mjd, ra, decl, night, created_at
		FROM discovery_candidates
		WHERE night >= $1 AND night <= $2
		ORDER BY mjd ASC, candidate_id ASC
	`

	rows, err := s.pool.Query(ctx, query, startNight, endNight)
	if err != nil {
		return nil, fmt.Errorf("get candidates by night range: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetByOutcome retrieves all candidates with a given outcome.
func (s *CandidateStore) GetByOutcome(ctx context.Context, outcome domain.Outcome) ([]*domain.DiscoveryCandidate, error) {
	query := `
		SELECT candidate_id, designation, alert_id, object_id, survey, outcome, mjd, ra, decl, night, created_at
		FROM discovery_candidates
		WHERE outcome = $1
		ORDER BY mjd ASC, candidate_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(outcome))
	if err != nil {
		return nil, fmt.Errorf("get candidates by outcome: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// scanCandidate scans a single row into a DiscoveryCandidate.
func scanCandidate(row pgx.Row) (*domain.DiscoveryCandidate, error) {
	var c domain.DiscoveryCandidate
	var outcomeStr string

	err := row.Scan(
		&c.CandidateID,
		&c.Designation,
		&c.AlertID,
		&c.ObjectID,
		&c.Survey,
		&outcomeStr,
		&c.Mjd,
		&c.RA,
		&c.Dec,
		&c.Night,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Outcome = domain.Outcome(outcomeStr)
	return &c, nil
}

// scanCandidates scans multiple rows into a slice of DiscoveryCandidate.
func scanCandidates(rows pgx.Rows) ([]*domain.DiscoveryCandidate, error) {
	var candidates []*domain.DiscoveryCandidate

	for rows.Next() {
		var c domain.DiscoveryCandidate
		var outcomeStr string

		err := rows.Scan(
			&c.CandidateID,
			&c.Designation,
			&c.AlertID,
			&c.ObjectID,
			&c.Survey,
			&outcomeStr,
			&c.Mjd,
			&c.RA,
			&c.Dec,
			&c.Night,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}

		c.Outcome = domain.Outcome(outcomeStr)
		candidates = append(candidates, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}

	return candidates, nil
}
