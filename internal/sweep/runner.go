package sweep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"transient-filter/internal/discovery"
	"transient-filter/internal/domain"
	"transient-filter/internal/storage"
)

// VariantResult tallies one variant's decisions over the swept alerts.
type VariantResult struct {
	Label       string
	Config      discovery.ClippingConfig
	Candidates  int
	IntraNight  int
	InterNight  int
	NoDiscovery int
	Malformed   int
}

// Result aggregates one sweep run.
type Result struct {
	Survey     string
	StartNight int
	EndNight   int
	Total      int // archived alerts evaluated per variant

	// Variants ordered by candidate yield descending, then label.
	Variants []VariantResult
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Archive storage.AlertArchiveStore
	Engine  discovery.EngineConfig // policy switches; clipping is replaced per variant
	Logger  *log.Logger
}

// Runner sweeps clipping variants over archived alerts. Like replay it is
// always dry: nothing is published and nothing is written.
type Runner struct {
	archive storage.AlertArchiveStore
	engine  discovery.EngineConfig
	logger  *log.Logger
}

// NewRunner creates a sweep runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Archive == nil {
		return nil, fmt.Errorf("archive store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		archive: opts.Archive,
		engine:  opts.Engine,
		logger:  logger,
	}, nil
}

// Run evaluates every variant over the archived alerts of a survey within
// [startNight, endNight]. The alerts are loaded once and re-decided per
// variant, so variant tallies are directly comparable.
func (r *Runner) Run(ctx context.Context, survey string, startNight, endNight int, variants []Variant) (*Result, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("no variants to evaluate")
	}

	alerts, err := r.archive.GetByNightRange(ctx, survey, startNight, endNight)
	if err != nil {
		return nil, fmt.Errorf("load archived alerts: %w", err)
	}
	r.logger.Printf("Sweeping %d variants over %d archived alerts", len(variants), len(alerts))

	result := &Result{
		Survey:     survey,
		StartNight: startNight,
		EndNight:   endNight,
		Total:      len(alerts),
		Variants:   make([]VariantResult, 0, len(variants)),
	}

	for _, variant := range variants {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		vr, err := r.runVariant(variant, alerts)
		if err != nil {
			return nil, err
		}
		result.Variants = append(result.Variants, vr)
	}

	sort.Slice(result.Variants, func(i, j int) bool {
		if result.Variants[i].Candidates != result.Variants[j].Candidates {
			return result.Variants[i].Candidates > result.Variants[j].Candidates
		}
		return result.Variants[i].Label < result.Variants[j].Label
	})

	return result, nil
}

// runVariant decides all alerts under one variant's thresholds.
func (r *Runner) runVariant(variant Variant, alerts []*domain.Alert) (VariantResult, error) {
	cfg := r.engine
	cfg.Clipping = variant.Config

	engine, err := discovery.NewEngine(cfg)
	if err != nil {
		return VariantResult{}, fmt.Errorf("variant %s: %w", variant.Label, err)
	}

	vr := VariantResult{Label: variant.Label, Config: variant.Config}
	for _, alert := range alerts {
		decision, err := engine.Decide(*alert)
		if err != nil {
			if errors.Is(err, discovery.ErrMalformedImage) {
				vr.Malformed++
				continue
			}
			return VariantResult{}, fmt.Errorf("decide alert %d under %s: %w", alert.AlertID, variant.Label, err)
		}

		switch decision.Outcome {
		case domain.OutcomeIntraNight:
			vr.IntraNight++
		case domain.OutcomeInterNight:
			vr.InterNight++
		default:
			vr.NoDiscovery++
		}
		if decision.IsCandidate {
			vr.Candidates++
		}
	}
	return vr, nil
}
