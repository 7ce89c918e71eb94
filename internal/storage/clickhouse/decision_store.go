package clickhouse

import (
	"context"
	"fmt"

	"transient-filter/internal/domain"
	"transient-filter/internal/storage"
)

// DecisionStore implements storage.DecisionStore using ClickHouse.
// Decisions are the warehouse side of the pipeline: every evaluated alert
// lands here regardless of its verdict, for reporting and replay comparison.
type DecisionStore struct {
	conn *Conn
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(conn *Conn) *DecisionStore {
	return &DecisionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

// InsertBulk adds multiple decision records. Fails entire batch on duplicate (survey, alert_id).
func (s *DecisionStore) InsertBulk(ctx context.Context, records []*domain.DecisionRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		survey  string
		alertID int64
	}
	seen := make(map[key]struct{})
	for _, r := range records {
		k := key{r.Survey, r.AlertID}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range records {
		exists, err := s.exists(ctx, r.Survey, r.AlertID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO decisions (
			alert_id, object_id, survey, outcome, is_candidate, reason,
			sep_arcsec, combined_arcsec, position_ok,
			science_masked, template_masked, hostless_ok, second_pass,
			mjd, night, processed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.AlertID, r.ObjectID, r.Survey, string(r.Outcome), r.IsCandidate, r.Reason,
			r.SepArcsec, r.CombinedArcsec, r.PositionOK,
			int32(r.ScienceMasked), int32(r.TemplateMasked), r.HostlessOK, r.SecondPass,
			r.Mjd, int32(r.Night), r.ProcessedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAlertID retrieves the decision for one alert. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByAlertID(ctx context.Context, survey string, alertID int64) (*domain.DecisionRecord, error) {
	query := decisionColumns + `
		FROM decisions
		WHERE survey = ? AND alert_id = ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, survey, alertID)
	if err != nil {
		return nil, fmt.Errorf("query by alert id: %w", err)
	}
	defer rows.Close()

	records, err := scanDecisions(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// GetByObject retrieves all decisions for a survey object, ordered by mjd ASC.
func (s *DecisionStore) GetByObject(ctx context.Context, survey, objectID string) ([]*domain.DecisionRecord, error) {
	query := decisionColumns + `
		FROM decisions
		WHERE survey = ? AND object_id = ?
		ORDER BY mjd ASC, alert_id ASC
	`

	rows, err := s.conn.Query(ctx, query, survey, objectID)
	if err != nil {
		return nil, fmt.Errorf("query by object: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// GetByNightRange retrieves decisions within [startNight, endNight] (inclusive).
func (s *DecisionStore) GetByNightRange(ctx context.Context, survey string, startNight, endNight int) ([]*domain.DecisionRecord, error) {
	query := decisionColumns + `
		FROM decisions
		WHERE survey = ? AND night >= ? AND night <= ?
		ORDER BY mjd ASC, alert_id ASC
	`

	rows, err := s.conn.Query(ctx, query, survey, int32(startNight), int32(endNight))
	if err != nil {
		return nil, fmt.Errorf("query by night range: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// exists checks if a decision with the given key exists.
func (s *DecisionStore) exists(ctx context.Context, survey string, alertID int64) (bool, error) {
	query := `
		SELECT count(*) FROM decisions
		WHERE survey = ? AND alert_id = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, survey, alertID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

const decisionColumns = `
	SELECT alert_id, object_id, survey, outcome, is_candidate, reason,
		sep_arcsec, combined_arcsec, position_ok,
		science_masked, template_masked, hostless_ok, second_pass,
		mjd, night, processed_at
`

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanDecisions scans multiple rows into a slice.
func scanDecisions(rows chRows) ([]*domain.DecisionRecord, error) {
	var records []*domain.DecisionRecord

	for rows.Next() {
		var r domain.DecisionRecord
		var outcome string
		var scienceMasked, templateMasked, night int32

		err := rows.Scan(
			&r.AlertID, &r.ObjectID, &r.Survey, &outcome, &r.IsCandidate, &r.Reason,
			&r.SepArcsec, &r.CombinedArcsec, &r.PositionOK,
			&scienceMasked, &templateMasked, &r.HostlessOK, &r.SecondPass,
			&r.Mjd, &night, &r.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}

		r.Outcome = domain.Outcome(outcome)
		r.ScienceMasked = int(scienceMasked)
		r.TemplateMasked = int(templateMasked)
		r.Night = int(night)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision rows: %w", err)
	}

	return records, nil
}
