package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"transient-filter/internal/domain"
	"transient-filter/internal/mjd"
	"transient-filter/internal/storage"
)

// AlertArchiveStore implements storage.AlertArchiveStore using PostgreSQL.
// The full alert, cutouts included, is stored as a JSONB payload so that
// archived alerts can be replayed byte-for-byte; the indexed columns are
// extracted from the payload at insert time.
type AlertArchiveStore struct {
	pool *Pool
}

// NewAlertArchiveStore creates a new AlertArchiveStore.
func NewAlertArchiveStore(pool *Pool) *AlertArchiveStore {
	return &AlertArchiveStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertArchiveStore = (*AlertArchiveStore)(nil)

// Insert archives an alert. Returns ErrDuplicateKey if (survey, alert_id)
// was already archived.
func (s *AlertArchiveStore) Insert(ctx context.Context, a *domain.Alert) error {
	if a == nil || a.Survey == "" {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	query := `
		INSERT INTO alert_archive (
			survey, alert_id, object_id, night, mjd, solar_system, payload, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		a.Survey,
		a.AlertID,
		a.ObjectID,
		mjd.Night(a.Current.Mjd),
		a.Current.Mjd,
		a.Current.SolarSystem,
		payload,
		a.ReceivedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert archived alert: %w", err)
	}
	return nil
}

// GetByAlertID retrieves an archived alert. Returns ErrNotFound if not exists.
func (s *AlertArchiveStore) GetByAlertID(ctx context.Context, survey string, alertID int64) (*domain.Alert, error) {
	query := `
		SELECT payload
		FROM alert_archive
		WHERE survey = $1 AND alert_id = $2
	`

	var payload []byte
	err := s.pool.QueryRow(ctx, query, survey, alertID).Scan(&payload)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get archived alert: %w", err)
	}

	return decodeAlert(payload)
}

// GetBySurvey retrieves all archived alerts for a survey, ordered by mjd ASC.
func (s *AlertArchiveStore) GetBySurvey(ctx context.Context, survey string) ([]*domain.Alert, error) {
	query := `
		SELECT payload
		FROM alert_archive
		WHERE survey = $1
		ORDER BY mjd ASC, alert_id ASC
	`

	rows, err := s.pool.Query(ctx, query, survey)
	if err != nil {
		return nil, fmt.Errorf("get archived alerts by survey: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetByNightRange retrieves archived alerts for a survey within
// [startNight, endNight] (inclusive), ordered by mjd ASC.
func (s *AlertArchiveStore) GetByNightRange(ctx context.Context, survey string, startNight, endNight int) ([]*domain.Alert, error) {
	query := `
		SELECT payload
		FROM alert_archive
		WHERE survey = $1 AND night >= $2 AND night <= $3
		ORDER BY mjd ASC, alert_id ASC
	`

	rows, err := s.pool.Query(ctx, query, survey, startNight, endNight)
	if err != nil {
		return nil, fmt.Errorf("get archived alerts by night range: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// scanAlerts decodes alert payloads from multiple rows.
func scanAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	var alerts []*domain.Alert

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan archived alert row: %w", err)
		}

		a, err := decodeAlert(payload)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived alert rows: %w", err)
	}

	return alerts, nil
}

// decodeAlert unmarshals a stored JSON payload back into an Alert.
func decodeAlert(payload []byte) (*domain.Alert, error) {
	var a domain.Alert
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("unmarshal alert payload: %w", err)
	}
	return &a, nil
}
