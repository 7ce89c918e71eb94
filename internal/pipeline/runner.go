// Package pipeline runs the filtering loop: consume alerts, dedupe, archive,
// decide, publish candidates, and record every decision.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"transient-filter/internal/discovery"
	"transient-filter/internal/domain"
	"transient-filter/internal/idhash"
	"transient-filter/internal/mjd"
	"transient-filter/internal/observability"
	"transient-filter/internal/storage"
	"transient-filter/internal/stream"
)

// RunnerOptions contains configuration for creating a Runner. Source and
// Engine are required; every store and the publisher are optional so the
// pipeline degrades to a pure decision loop in local runs.
type RunnerOptions struct {
	Source     stream.AlertSource
	Engine     *discovery.Engine
	Publisher  stream.Publisher
	SeenCache  storage.SeenCache
	Candidates storage.CandidateStore
	Archive    storage.AlertArchiveStore
	Decisions  storage.DecisionStore
	Logger     *log.Logger
	Now        func() time.Time
}

// Runner consumes one alert stream and drives it through the decision
// engine. Store and publish failures are logged and counted but never stop
// the loop; only context cancellation or a drained source ends a run.
type Runner struct {
	source     stream.AlertSource
	engine     *discovery.Engine
	publisher  stream.Publisher
	seen       storage.SeenCache
	candidates storage.CandidateStore
	archive    storage.AlertArchiveStore
	decisions  storage.DecisionStore
	logger     *log.Logger
	now        func() time.Time

	processed  atomic.Int64
	duplicates atomic.Int64
	malformed  atomic.Int64
	promoted   atomic.Int64
	published  atomic.Int64
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Malformed  int64 `json:"malformed"`
	Candidates int64 `json:"candidates"`
	Published  int64 `json:"published"`
}

// NewRunner creates a pipeline runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		source:     opts.Source,
		engine:     opts.Engine,
		publisher:  opts.Publisher,
		seen:       opts.SeenCache,
		candidates: opts.Candidates,
		archive:    opts.Archive,
		decisions:  opts.Decisions,
		logger:     logger,
		now:        now,
	}, nil
}

// Run subscribes to the source and processes alerts until the context is
// cancelled or the source channel closes. A drained source is a normal end
// of run, not an error.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Println("Starting filter pipeline...")

	alerts, err := r.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to alert source: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Println("Pipeline stopping...")
			return ctx.Err()

		case alert, ok := <-alerts:
			if !ok {
				r.logger.Printf("Alert source drained after %d alerts", r.processed.Load())
				return nil
			}
			r.process(ctx, alert)
		}
	}
}

// Stats returns a snapshot of the pipeline counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Processed:  r.processed.Load(),
		Duplicates: r.duplicates.Load(),
		Malformed:  r.malformed.Load(),
		Candidates: r.promoted.Load(),
		Published:  r.published.Load(),
	}
}

func (r *Runner) process(ctx context.Context, alert domain.Alert) {
	r.processed.Add(1)
	observability.RecordAlertProcessed(alert.Survey)

	// Upstream delivery is at least once; a cache failure falls through to
	// processing rather than stalling the stream.
	if r.seen != nil {
		fresh, err := r.seen.MarkSeen(ctx, alert.Survey, alert.AlertID)
		if err != nil {
			observability.RecordStoreError("seen_cache")
			r.logger.Printf("Error marking alert %d seen: %v", alert.AlertID, err)
		} else if !fresh {
			r.duplicates.Add(1)
			observability.RecordDuplicateAlert()
			return
		}
	}

	if r.archive != nil {
		if err := r.archive.Insert(ctx, &alert); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordStoreError("alert_archive")
			r.logger.Printf("Error archiving alert %d: %v", alert.AlertID, err)
		}
	}

	start := time.Now()
	decision, err := r.engine.Decide(alert)
	observability.ObserveDecideDuration(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, discovery.ErrMalformedImage) {
			// Fail closed: no publication and no warehouse row.
			r.malformed.Add(1)
			observability.RecordMalformedImage()
			r.logger.Printf("Rejecting alert %d: %v", alert.AlertID, err)
			return
		}
		r.logger.Printf("Error deciding alert %d: %v", alert.AlertID, err)
		return
	}

	observability.RecordDecision(decision.Outcome.String())
	observability.SetLastProcessedMjd(alert.Current.Mjd)

	if decision.IsCandidate {
		r.handleCandidate(ctx, alert, decision)
	}

	if r.decisions != nil {
		record := recordFrom(alert, decision, r.now())
		if err := r.decisions.InsertBulk(ctx, []*domain.DecisionRecord{record}); err != nil {
			observability.RecordStoreError("decisions")
			r.logger.Printf("Error recording decision for alert %d: %v", alert.AlertID, err)
		}
	}
}

// handleCandidate stores and publishes one promoted alert. A duplicate
// candidate row means a redelivered alert was already promoted, so the
// publish is skipped; any other store failure must not suppress the
// discovery announcement.
func (r *Runner) handleCandidate(ctx context.Context, alert domain.Alert, decision domain.Decision) {
	candidate, err := r.buildCandidate(alert, decision)
	if err != nil {
		r.logger.Printf("Error building candidate for alert %d: %v", alert.AlertID, err)
		return
	}

	r.promoted.Add(1)
	observability.RecordCandidate(channelFor(decision.Outcome))

	if r.candidates != nil {
		if err := r.candidates.Insert(ctx, candidate); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				r.logger.Printf("Candidate %s already stored, skipping publish", candidate.Designation)
				return
			}
			observability.RecordStoreError("candidates")
			r.logger.Printf("Error storing candidate %s: %v", candidate.Designation, err)
		}
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, candidate); err != nil {
			observability.RecordPublishError()
			r.logger.Printf("Error publishing candidate %s: %v", candidate.Designation, err)
			return
		}
		r.published.Add(1)
		r.logger.Printf("%s discovery %s (object=%s alert=%d)",
			decision.Outcome, candidate.Designation, alert.ObjectID, alert.AlertID)
	}
}

func (r *Runner) buildCandidate(alert domain.Alert, decision domain.Decision) (*domain.DiscoveryCandidate, error) {
	candidateID := idhash.ComputeCandidateID(alert.Survey, alert.ObjectID, alert.AlertID, decision.Outcome)
	designation, err := idhash.Designation(candidateID)
	if err != nil {
		return nil, fmt.Errorf("derive designation: %w", err)
	}

	return &domain.DiscoveryCandidate{
		CandidateID: candidateID,
		Designation: designation,
		AlertID:     alert.AlertID,
		ObjectID:    alert.ObjectID,
		Survey:      alert.Survey,
		Outcome:     decision.Outcome,
		Mjd:         alert.Current.Mjd,
		RA:          alert.Current.RA,
		Dec:         alert.Current.Dec,
		Night:       mjd.Night(alert.Current.Mjd),
		CreatedAt:   r.now().UnixMilli(),
	}, nil
}

// recordFrom flattens a decision into its warehouse row.
func recordFrom(alert domain.Alert, d domain.Decision, processedAt time.Time) *domain.DecisionRecord {
	rec := &domain.DecisionRecord{
		AlertID:     alert.AlertID,
		ObjectID:    alert.ObjectID,
		Survey:      alert.Survey,
		Outcome:     d.Outcome,
		IsCandidate: d.IsCandidate,
		Reason:      d.Reason,
		HostlessOK:  true,
		Mjd:         alert.Current.Mjd,
		Night:       mjd.Night(alert.Current.Mjd),
		ProcessedAt: processedAt.UnixMilli(),
	}
	if d.Position != nil {
		rec.SepArcsec = d.Position.SeparationArcsec
		rec.CombinedArcsec = d.Position.CombinedSigmaArcsec
		rec.PositionOK = d.Position.Consistent
	}
	if d.Hostless != nil {
		rec.ScienceMasked = d.Hostless.ScienceMasked
		rec.TemplateMasked = d.Hostless.TemplateMasked
		rec.HostlessOK = d.Hostless.Hostless
		rec.SecondPass = d.Hostless.SecondPass
	}
	return rec
}

// channelFor names the discovery channel of a publishable outcome.
func channelFor(outcome domain.Outcome) string {
	switch outcome {
	case domain.OutcomeIntraNight:
		return "intra"
	case domain.OutcomeInterNight:
		return "inter"
	default:
		return "none"
	}
}
