// Package replay re-evaluates archived alerts and verifies stored decisions.
// A replay run is always dry: it never publishes and never writes stores, so
// it is safe to point at production data after a config or code change.
package replay

import (
	"context"
	"errors"
	"fmt"

	"transient-filter/internal/discovery"
	"transient-filter/internal/domain"
	"transient-filter/internal/storage"
)

// FieldDivergence represents a mismatch between a stored decision and its
// replayed counterpart.
type FieldDivergence struct {
	Field    string      `json:"field"`    // field name
	Stored   interface{} `json:"stored"`   // value recorded by the original run
	Replayed interface{} `json:"replayed"` // value produced by this replay
}

// Result contains the replay outcome for a single archived alert.
type Result struct {
	AlertID     int64             `json:"alert_id"`
	ObjectID    string            `json:"object_id"`
	Outcome     domain.Outcome    `json:"outcome"`      // replayed temporal classification
	IsCandidate bool              `json:"is_candidate"` // replayed discovery verdict
	Match       bool              `json:"match"`        // false when any field diverged
	Divergences []FieldDivergence `json:"divergences,omitempty"`
}

// Report aggregates one replay run over a night range.
type Report struct {
	Survey     string `json:"survey"`
	StartNight int    `json:"start_night"`
	EndNight   int    `json:"end_night"`

	Total      int                    `json:"total"`      // archived alerts replayed
	Malformed  int                    `json:"malformed"`  // alerts rejected for malformed stamps
	Candidates int                    `json:"candidates"` // replayed discovery verdicts
	ByOutcome  map[domain.Outcome]int `json:"by_outcome"` // replayed outcome tally

	Compared    int `json:"compared"` // alerts with a stored decision to compare against
	Matched     int `json:"matched"`
	Divergent   int `json:"divergent"`
	MissingRows int `json:"missing_rows"` // archived alerts with no stored decision

	Results []Result `json:"results"`
}

// VerifierOptions contains configuration for creating a Verifier.
type VerifierOptions struct {
	Archive   storage.AlertArchiveStore
	Decisions storage.DecisionStore // optional; nil replays without comparison
	Engine    *discovery.Engine
}

// Verifier replays archived alerts through the engine and compares the fresh
// decisions with the stored ones.
type Verifier struct {
	archive   storage.AlertArchiveStore
	decisions storage.DecisionStore
	engine    *discovery.Engine
}

// NewVerifier creates a replay verifier.
func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	if opts.Archive == nil {
		return nil, fmt.Errorf("archive store is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	return &Verifier{
		archive:   opts.Archive,
		decisions: opts.Decisions,
		engine:    opts.Engine,
	}, nil
}

// Run replays all archived alerts of a survey within [startNight, endNight]
// in ascending epoch order. Each archived alert carries the detection history
// the original run saw, so the replayed decision is deterministic.
func (v *Verifier) Run(ctx context.Context, survey string, startNight, endNight int) (*Report, error) {
	alerts, err := v.archive.GetByNightRange(ctx, survey, startNight, endNight)
	if err != nil {
		return nil, fmt.Errorf("load archived alerts: %w", err)
	}

	report := &Report{
		Survey:     survey,
		StartNight: startNight,
		EndNight:   endNight,
		Total:      len(alerts),
		ByOutcome:  make(map[domain.Outcome]int),
		Results:    make([]Result, 0, len(alerts)),
	}

	for _, alert := range alerts {
		report.Results = append(report.Results, v.replayOne(ctx, alert, report))
	}

	return report, nil
}

// replayOne decides one archived alert and updates the report tallies.
func (v *Verifier) replayOne(ctx context.Context, alert *domain.Alert, report *Report) Result {
	result := Result{AlertID: alert.AlertID, ObjectID: alert.ObjectID}

	decision, err := v.engine.Decide(*alert)
	if err != nil {
		if errors.Is(err, discovery.ErrMalformedImage) {
			report.Malformed++
		}
		result.Divergences = []FieldDivergence{{Field: "Error", Stored: nil, Replayed: err.Error()}}
		report.Divergent++
		return result
	}

	result.Outcome = decision.Outcome
	result.IsCandidate = decision.IsCandidate
	report.ByOutcome[decision.Outcome]++
	if decision.IsCandidate {
		report.Candidates++
	}

	if v.decisions == nil {
		result.Match = true
		return result
	}

	stored, err := v.decisions.GetByAlertID(ctx, alert.Survey, alert.AlertID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			report.MissingRows++
			result.Divergences = []FieldDivergence{{Field: "Record", Stored: nil, Replayed: string(decision.Outcome)}}
			report.Divergent++
			return result
		}
		result.Divergences = []FieldDivergence{{Field: "Error", Stored: nil, Replayed: err.Error()}}
		report.Divergent++
		return result
	}

	report.Compared++
	result.Divergences = CompareDecision(stored, decision)
	result.Match = len(result.Divergences) == 0
	if result.Match {
		report.Matched++
	} else {
		report.Divergent++
	}
	return result
}

// CompareDecision compares the stored decision row with a replayed decision.
// Outcome and the candidate verdict are the fields that drive publication,
// so those two define drift.
func CompareDecision(stored *domain.DecisionRecord, replayed domain.Decision) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.Outcome != replayed.Outcome {
		divergences = append(divergences, FieldDivergence{
			Field:    "Outcome",
			Stored:   string(stored.Outcome),
			Replayed: string(replayed.Outcome),
		})
	}

	if stored.IsCandidate != replayed.IsCandidate {
		divergences = append(divergences, FieldDivergence{
			Field:    "IsCandidate",
			Stored:   stored.IsCandidate,
			Replayed: replayed.IsCandidate,
		})
	}

	return divergences
}
