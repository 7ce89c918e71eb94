package replay

import (
	"context"
	"testing"

	"transient-filter/internal/cutout"
	"transient-filter/internal/discovery"
	"transient-filter/internal/domain"
	"transient-filter/internal/storage/memory"
)

func newEngine(t *testing.T) *discovery.Engine {
	t.Helper()
	engine, err := discovery.NewEngine(discovery.DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func det(mjdVal, ra, dec, raErr, decErr float64) domain.Detection {
	return domain.Detection{Mjd: mjdVal, RA: ra, Dec: dec, RAErr: raErr, DecErr: decErr}
}

// grid builds a rows x cols stamp filled with val.
func grid(t *testing.T, rows, cols int, val float64) *cutout.Grid {
	t.Helper()
	pixels := make([][]float64, rows)
	for r := range pixels {
		pixels[r] = make([]float64, cols)
		for c := range pixels[r] {
			pixels[r][c] = val
		}
	}
	g, err := cutout.NewGrid(pixels)
	if err != nil {
		t.Fatalf("build grid: %v", err)
	}
	return g
}

func archiveWith(t *testing.T, alerts ...*domain.Alert) *memory.AlertArchiveStore {
	t.Helper()
	archive := memory.NewAlertArchiveStore()
	for _, a := range alerts {
		if err := archive.Insert(context.Background(), a); err != nil {
			t.Fatalf("seed alert %d: %v", a.AlertID, err)
		}
	}
	return archive
}

// Three stampless alerts on night 60200: an intra-night candidate, a first
// detection, and an inter-night candidate.
func replayAlerts() []*domain.Alert {
	return []*domain.Alert{
		{
			AlertID: 1, ObjectID: "obj-a", Survey: "ztf",
			Current: det(60200.6, 10, 20, 1e-4, 1e-4),
			History: []domain.Detection{det(60200.1, 10, 20, 1e-4, 1e-4)},
		},
		{
			AlertID: 2, ObjectID: "obj-b", Survey: "ztf",
			Current: det(60200.5, 30, -5, 1e-4, 1e-4),
		},
		{
			AlertID: 3, ObjectID: "obj-c", Survey: "ztf",
			Current: det(60200.8, 50, 12, 1e-4, 1e-4),
			History: []domain.Detection{det(60199.3, 50, 12, 1e-4, 1e-4)},
		},
	}
}

func TestNewVerifier_Validation(t *testing.T) {
	if _, err := NewVerifier(VerifierOptions{Engine: newEngine(t)}); err == nil {
		t.Error("expected error without archive store")
	}
	if _, err := NewVerifier(VerifierOptions{Archive: memory.NewAlertArchiveStore()}); err == nil {
		t.Error("expected error without engine")
	}
}

func TestReplay_WithoutComparison(t *testing.T) {
	verifier, err := NewVerifier(VerifierOptions{
		Archive: archiveWith(t, replayAlerts()...),
		Engine:  newEngine(t),
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	report, err := verifier.Run(context.Background(), "ztf", 60200, 60200)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Total != 3 {
		t.Errorf("expected 3 alerts replayed, got %d", report.Total)
	}
	if report.Candidates != 2 {
		t.Errorf("expected 2 candidates, got %d", report.Candidates)
	}
	if report.ByOutcome[domain.OutcomeIntraNight] != 1 ||
		report.ByOutcome[domain.OutcomeInterNight] != 1 ||
		report.ByOutcome[domain.OutcomeNoDiscovery] != 1 {
		t.Errorf("unexpected outcome tally: %v", report.ByOutcome)
	}
	if report.Compared != 0 || report.Divergent != 0 {
		t.Errorf("comparison counters should stay zero without a decision store: %+v", report)
	}
	for _, res := range report.Results {
		if !res.Match {
			t.Errorf("alert %d should match without comparison", res.AlertID)
		}
	}
}

func TestReplay_MatchesStoredDecisions(t *testing.T) {
	decisions := memory.NewDecisionStore()
	stored := []*domain.DecisionRecord{
		{AlertID: 1, ObjectID: "obj-a", Survey: "ztf", Outcome: domain.OutcomeIntraNight, IsCandidate: true, Mjd: 60200.6, Night: 60200},
		{AlertID: 2, ObjectID: "obj-b", Survey: "ztf", Outcome: domain.OutcomeNoDiscovery, Mjd: 60200.5, Night: 60200},
		{AlertID: 3, ObjectID: "obj-c", Survey: "ztf", Outcome: domain.OutcomeInterNight, IsCandidate: true, Mjd: 60200.8, Night: 60200},
	}
	if err := decisions.InsertBulk(context.Background(), stored); err != nil {
		t.Fatalf("seed decisions: %v", err)
	}

	verifier, err := NewVerifier(VerifierOptions{
		Archive:   archiveWith(t, replayAlerts()...),
		Decisions: decisions,
		Engine:    newEngine(t),
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	report, err := verifier.Run(context.Background(), "ztf", 60200, 60200)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Compared != 3 || report.Matched != 3 {
		t.Errorf("expected 3 compared and matched, got %d/%d", report.Compared, report.Matched)
	}
	if report.Divergent != 0 || report.MissingRows != 0 {
		t.Errorf("expected no drift, got %d divergent, %d missing", report.Divergent, report.MissingRows)
	}
}

func TestReplay_DetectsDrift(t *testing.T) {
	decisions := memory.NewDecisionStore()
	// Alert 1 was recorded under older thresholds with a different verdict.
	stored := []*domain.DecisionRecord{
		{AlertID: 1, ObjectID: "obj-a", Survey: "ztf", Outcome: domain.OutcomeInterNight, IsCandidate: false, Mjd: 60200.6, Night: 60200},
		{AlertID: 2, ObjectID: "obj-b", Survey: "ztf", Outcome: domain.OutcomeNoDiscovery, Mjd: 60200.5, Night: 60200},
	}
	if err := decisions.InsertBulk(context.Background(), stored); err != nil {
		t.Fatalf("seed decisions: %v", err)
	}

	alerts := replayAlerts()[:2]
	verifier, err := NewVerifier(VerifierOptions{
		Archive:   archiveWith(t, alerts...),
		Decisions: decisions,
		Engine:    newEngine(t),
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	report, err := verifier.Run(context.Background(), "ztf", 60200, 60200)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Compared != 2 || report.Matched != 1 || report.Divergent != 1 {
		t.Fatalf("expected 2 compared, 1 matched, 1 divergent, got %d/%d/%d",
			report.Compared, report.Matched, report.Divergent)
	}

	var drifted *Result
	for i := range report.Results {
		if report.Results[i].AlertID == 1 {
			drifted = &report.Results[i]
		}
	}
	if drifted == nil {
		t.Fatal("missing result for alert 1")
	}
	if drifted.Match {
		t.Error("alert 1 should diverge")
	}
	if len(drifted.Divergences) != 2 {
		t.Fatalf("expected 2 field divergences, got %d", len(drifted.Divergences))
	}
	if drifted.Divergences[0].Field != "Outcome" || drifted.Divergences[1].Field != "IsCandidate" {
		t.Errorf("unexpected divergence fields: %+v", drifted.Divergences)
	}
}

func TestReplay_MissingStoredRow(t *testing.T) {
	decisions := memory.NewDecisionStore()
	stored := []*domain.DecisionRecord{
		{AlertID: 2, ObjectID: "obj-b", Survey: "ztf", Outcome: domain.OutcomeNoDiscovery, Mjd: 60200.5, Night: 60200},
	}
	if err := decisions.InsertBulk(context.Background(), stored); err != nil {
		t.Fatalf("seed decisions: %v", err)
	}

	alerts := replayAlerts()[:2]
	verifier, err := NewVerifier(VerifierOptions{
		Archive:   archiveWith(t, alerts...),
		Decisions: decisions,
		Engine:    newEngine(t),
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	report, err := verifier.Run(context.Background(), "ztf", 60200, 60200)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.MissingRows != 1 {
		t.Errorf("expected 1 missing row, got %d", report.MissingRows)
	}
	if report.Compared != 1 || report.Matched != 1 || report.Divergent != 1 {
		t.Errorf("unexpected comparison counters: %+v", report)
	}
}

func TestReplay_MalformedStamps(t *testing.T) {
	malformed := &domain.Alert{
		AlertID: 7, ObjectID: "obj-m", Survey: "ztf",
		Current:  det(60200.7, 70, -30, 1e-4, 1e-4),
		History:  []domain.Detection{det(60200.2, 70, -30, 1e-4, 1e-4)},
		Science:  grid(t, 3, 3, 100),
		Template: grid(t, 2, 2, 100),
	}

	verifier, err := NewVerifier(VerifierOptions{
		Archive: archiveWith(t, malformed),
		Engine:  newEngine(t),
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	report, err := verifier.Run(context.Background(), "ztf", 60200, 60200)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Total != 1 || report.Malformed != 1 {
		t.Errorf("expected 1 malformed alert, got %+v", report)
	}
	if report.Candidates != 0 {
		t.Errorf("malformed alert must not become a candidate, got %d", report.Candidates)
	}
	if report.Divergent != 1 {
		t.Errorf("malformed alert counts as divergent, got %d", report.Divergent)
	}
	if len(report.Results) != 1 || report.Results[0].Divergences[0].Field != "Error" {
		t.Errorf("expected error divergence, got %+v", report.Results)
	}
}

func TestCompareDecision_Fields(t *testing.T) {
	stored := &domain.DecisionRecord{Outcome: domain.OutcomeIntraNight, IsCandidate: true}

	tests := []struct {
		name     string
		replayed domain.Decision
		want     int
	}{
		{"identical", domain.Decision{Outcome: domain.OutcomeIntraNight, IsCandidate: true}, 0},
		{"outcome drifted", domain.Decision{Outcome: domain.OutcomeInterNight, IsCandidate: true}, 1},
		{"verdict drifted", domain.Decision{Outcome: domain.OutcomeIntraNight, IsCandidate: false}, 1},
		{"both drifted", domain.Decision{Outcome: domain.OutcomeNoDiscovery, IsCandidate: false}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareDecision(stored, tt.replayed)
			if len(got) != tt.want {
				t.Errorf("expected %d divergences, got %+v", tt.want, got)
			}
		})
	}
}
