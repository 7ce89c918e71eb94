package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"transient-filter/internal/domain"
	"transient-filter/internal/mjd"
	"transient-filter/internal/storage"
)

// topObjectLimit bounds the busiest-objects table.
const topObjectLimit = 10

// Generator produces reports from stored decisions and candidates.
type Generator struct {
	candidates storage.CandidateStore
	decisions  storage.DecisionStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(candidates storage.CandidateStore, decisions storage.DecisionStore) *Generator {
	return &Generator{
		candidates: candidates,
		decisions:  decisions,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate summarizes one survey's decisions within [startNight, endNight].
func (g *Generator) Generate(ctx context.Context, survey string, startNight, endNight int) (*Report, error) {
	records, err := g.decisions.GetByNightRange(ctx, survey, startNight, endNight)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}

	// The candidate range read spans all surveys; filter down here.
	candidates, err := g.candidates.GetByNightRange(ctx, startNight, endNight)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	candidateNights := make(map[int]int)
	candidateObjects := make(map[string]int)
	total := 0
	for _, c := range candidates {
		if c.Survey != survey {
			continue
		}
		candidateNights[c.Night]++
		candidateObjects[c.ObjectID]++
		total++
	}

	return &Report{
		GeneratedAt: g.now(),
		Survey:      survey,
		StartNight:  startNight,
		EndNight:    endNight,
		Summary:     summarize(records, total),
		Reasons:     reasonCounts(records),
		Nights:      nightBuckets(records, candidateNights),
		TopObjects:  topObjects(records, candidateObjects),
	}, nil
}

// summarize computes the decision totals and the observed date range.
func summarize(records []*domain.DecisionRecord, candidates int) Summary {
	s := Summary{Decisions: len(records), Candidates: candidates}
	if len(records) == 0 {
		return s
	}

	first, last := records[0].Mjd, records[0].Mjd
	for _, rec := range records {
		switch rec.Outcome {
		case domain.OutcomeIntraNight:
			s.IntraNight++
		case domain.OutcomeInterNight:
			s.InterNight++
		default:
			s.NoDiscovery++
		}
		if rec.Mjd < first {
			first = rec.Mjd
		}
		if rec.Mjd > last {
			last = rec.Mjd
		}
	}

	s.CandidateRate = float64(candidates) / float64(len(records))
	s.FirstDate = mjd.DateString(first)
	s.LastDate = mjd.DateString(last)
	return s
}

// reasonCounts tallies rejection reasons, most frequent first.
func reasonCounts(records []*domain.DecisionRecord) []ReasonCount {
	counts := make(map[string]int)
	for _, rec := range records {
		if rec.Reason == "" {
			continue
		}
		counts[rec.Reason]++
	}

	rows := make([]ReasonCount, 0, len(counts))
	for reason, count := range counts {
		rows = append(rows, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Reason < rows[j].Reason
	})
	return rows
}

// nightBuckets groups decisions and candidates into per-night rows.
func nightBuckets(records []*domain.DecisionRecord, candidateNights map[int]int) []NightBucket {
	buckets := make(map[int]*NightBucket)
	bucket := func(night int) *NightBucket {
		b := buckets[night]
		if b == nil {
			b = &NightBucket{Night: night, Date: mjd.DateString(float64(night))}
			buckets[night] = b
		}
		return b
	}

	for _, rec := range records {
		b := bucket(rec.Night)
		b.Decisions++
		switch rec.Outcome {
		case domain.OutcomeIntraNight:
			b.IntraNight++
		case domain.OutcomeInterNight:
			b.InterNight++
		default:
			b.NoDiscovery++
		}
	}
	for night, count := range candidateNights {
		bucket(night).Candidates = count
	}

	rows := make([]NightBucket, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, *b)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Night < rows[j].Night })
	return rows
}

// topObjects ranks objects by decision count, capped at topObjectLimit.
func topObjects(records []*domain.DecisionRecord, candidateObjects map[string]int) []ObjectCount {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.ObjectID]++
	}

	rows := make([]ObjectCount, 0, len(counts))
	for objectID, count := range counts {
		rows = append(rows, ObjectCount{
			ObjectID:   objectID,
			Decisions:  count,
			Candidates: candidateObjects[objectID],
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Decisions != rows[j].Decisions {
			return rows[i].Decisions > rows[j].Decisions
		}
		return rows[i].ObjectID < rows[j].ObjectID
	})
	if len(rows) > topObjectLimit {
		rows = rows[:topObjectLimit]
	}
	return rows
}
