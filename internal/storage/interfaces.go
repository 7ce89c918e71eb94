package storage

import (
	"context"

	"transient-filter/internal/domain"
)

// CandidateStore provides access to discovery_candidates storage.
type CandidateStore interface {
	// Insert adds a new candidate. Returns ErrDuplicateKey if candidate_id exists.
	Insert(ctx context.Context, c *domain.DiscoveryCandidate) error

	// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, candidateID string) (*domain.DiscoveryCandidate, error)

	// GetByObject retrieves all candidates for a survey object, ordered by mjd ASC.
	GetByObject(ctx context.Context, survey, objectID string) ([]*domain.DiscoveryCandidate, error)

	// GetByNightRange retrieves candidates within [startNight, endNight] (inclusive).
	GetByNightRange(ctx context.Context, startNight, endNight int) ([]*domain.DiscoveryCandidate, error)

	// GetByOutcome retrieves all candidates with a given outcome.
	GetByOutcome(ctx context.Context, outcome domain.Outcome) ([]*domain.DiscoveryCandidate, error)
}

// AlertArchiveStore provides access to alert_archive storage. The archive
// keeps the canonical JSON payload of every processed alert so that replay
// re-evaluates exactly what production saw.
type AlertArchiveStore interface {
	// Insert archives an alert. Returns ErrDuplicateKey if (survey, alert_id) exists.
	Insert(ctx context.Context, a *domain.Alert) error

	// GetByAlertID retrieves one archived alert. Returns ErrNotFound if not exists.
	GetByAlertID(ctx context.Context, survey string, alertID int64) (*domain.Alert, error)

	// GetBySurvey retrieves all archived alerts for a survey, ordered by (mjd, alert_id) ASC.
	GetBySurvey(ctx context.Context, survey string) ([]*domain.Alert, error)

	// GetByNightRange retrieves archived alerts within [startNight, endNight]
	// (inclusive), ordered by (mjd, alert_id) ASC.
	GetByNightRange(ctx context.Context, survey string, startNight, endNight int) ([]*domain.Alert, error)
}

// DecisionStore provides access to decisions storage in the analytics
// warehouse.
type DecisionStore interface {
	// InsertBulk adds multiple decision records. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.DecisionRecord) error

	// GetByAlertID retrieves the decision for one alert. Returns ErrNotFound if not exists.
	GetByAlertID(ctx context.Context, survey string, alertID int64) (*domain.DecisionRecord, error)

	// GetByObject retrieves all decisions for a survey object, ordered by mjd ASC.
	GetByObject(ctx context.Context, survey, objectID string) ([]*domain.DecisionRecord, error)

	// GetByNightRange retrieves decisions within [startNight, endNight]
	// (inclusive), ordered by (mjd, alert_id) ASC.
	GetByNightRange(ctx context.Context, survey string, startNight, endNight int) ([]*domain.DecisionRecord, error)
}
