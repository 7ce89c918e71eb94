// Package stub provides a deterministic synthetic alert source for local
// runs and tests.
package stub

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"transient-filter/internal/cutout"
	"transient-filter/internal/domain"
	"transient-filter/internal/stream"
)

// Stamp frames are 31x31 with the synthetic source in a 3x3 center block.
const (
	stampSize    = 31
	sourceLo     = 14
	sourceHi     = 16
	sourceFlux   = 5000.0
	backgroundDN = 100.0
)

var bands = []string{"g", "r", "i"}

// SourceOptions contains configuration for creating a stub Source.
type SourceOptions struct {
	Survey   string        // survey label on generated alerts (default ztf)
	Objects  int           // distinct synthetic objects (default 24)
	Visits   int           // detections per object (default 2)
	StartMjd float64       // epoch of the first visit (default 60000.0)
	Interval time.Duration // delay between emitted alerts (default none)
	Logger   *log.Logger
}

// Source emits a deterministic, finite alert stream that covers the
// decision paths: plain discoveries, solar-system rejects, hosted and
// hostless stamp pairs, and objects whose position drifts between visits.
// The alert channel closes after the last alert.
//
// Object scenarios cycle by index: idx%8 == 3 flags the object as a known
// mover, 2 attaches stamps where the template shows the source too, 4
// attaches a hostless stamp pair, 5 drifts the position past the match
// radius on revisits. Even objects revisit within the night, odd objects
// the following night.
type Source struct {
	alerts   []domain.Alert
	interval time.Duration
	logger   *log.Logger

	out        chan domain.Alert
	done       chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	subscribed atomic.Bool
}

var _ stream.AlertSource = (*Source)(nil)

// NewSource creates a stub source with pre-generated alerts.
func NewSource(opts SourceOptions) *Source {
	survey := opts.Survey
	if survey == "" {
		survey = "ztf"
	}
	objects := opts.Objects
	if objects <= 0 {
		objects = 24
	}
	visits := opts.Visits
	if visits <= 0 {
		visits = 2
	}
	startMjd := opts.StartMjd
	if startMjd == 0 {
		startMjd = 60000.0
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Source{
		alerts:   generate(survey, objects, visits, startMjd),
		interval: opts.Interval,
		logger:   logger,
		out:      make(chan domain.Alert, 256),
		done:     make(chan struct{}),
	}
}

// Subscribe starts emission and returns the alert channel.
func (s *Source) Subscribe(ctx context.Context) (<-chan domain.Alert, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("source closed")
	}
	if s.subscribed.Swap(true) {
		return nil, fmt.Errorf("already subscribed")
	}

	s.wg.Add(1)
	go s.emitLoop(ctx)

	return s.out, nil
}

// Alerts returns the generated alerts in emission order.
func (s *Source) Alerts() []domain.Alert {
	return s.alerts
}

// Close stops emission.
func (s *Source) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)
	s.wg.Wait()
	return nil
}

func (s *Source) emitLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.out)

	for _, alert := range s.alerts {
		if s.interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-time.After(s.interval):
			}
		}

		alert.ReceivedAt = time.Now().UTC()

		select {
		case s.out <- alert:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}

	s.logger.Printf("[stub] emitted %d alerts", len(s.alerts))
}

// generate builds every visit of every object and orders them by epoch,
// interleaving objects the way a nightly stream would.
func generate(survey string, objects, visits int, startMjd float64) []domain.Alert {
	alerts := make([]domain.Alert, 0, objects*visits)

	for idx := 0; idx < objects; idx++ {
		objectID := fmt.Sprintf("stub%06d", idx+1)
		ra := math.Mod(15.0+0.7*float64(idx), 360.0)
		dec := -30.0 + math.Mod(1.3*float64(idx), 60.0)

		var history []domain.Detection
		for v := 0; v < visits; v++ {
			det := detectionFor(idx, v, ra, dec, startMjd)

			alert := domain.Alert{
				AlertID:  alertID(idx, v),
				ObjectID: objectID,
				Survey:   survey,
				Current:  det,
				History:  append([]domain.Detection(nil), history...),
			}
			switch idx % 8 {
			case 2:
				alert.Science, alert.Template = stampPair(true)
			case 4:
				alert.Science, alert.Template = stampPair(false)
			}

			alerts = append(alerts, alert)
			history = append(history, det)
		}
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Current.Mjd != alerts[j].Current.Mjd {
			return alerts[i].Current.Mjd < alerts[j].Current.Mjd
		}
		return alerts[i].AlertID < alerts[j].AlertID
	})

	return alerts
}

func alertID(idx, visit int) int64 {
	return 1_000_000_000 + int64(idx)*100 + int64(visit)
}

func detectionFor(idx, visit int, ra, dec, startMjd float64) domain.Detection {
	// Sub-sigma jitter keeps revisit positions consistent; drift objects
	// jump well past the match radius instead.
	jitter := 1e-6 * float64((idx*31+visit*17)%7-3)
	if idx%8 == 5 && visit > 0 {
		jitter += 0.01
	}

	return domain.Detection{
		SourceID:    alertID(idx, visit),
		Mjd:         startMjd + 0.0003*float64(idx) + visitOffset(idx, visit),
		RA:          ra + jitter,
		Dec:         dec + jitter,
		RAErr:       1e-4,
		DecErr:      1e-4,
		Mag:         18.0 + 0.1*float64(idx%20) - 0.05*float64(visit),
		Band:        bands[(idx+visit)%len(bands)],
		SolarSystem: idx%8 == 3,
	}
}

func visitOffset(idx, visit int) float64 {
	if visit == 0 {
		return 0
	}
	// Even objects revisit within the night, odd objects the next night.
	off := 0.02
	if idx%2 == 1 {
		off = 1.04
	}
	return off + 1.01*float64(visit-1)
}

func stampPair(hosted bool) (*cutout.Grid, *cutout.Grid) {
	return stamp(true), stamp(hosted)
}

// stamp builds a frame of flat background with a deterministic sub-sigma
// ripple; withSource adds a bright center block that sigma-clipping masks.
func stamp(withSource bool) *cutout.Grid {
	pixels := make([][]float64, stampSize)
	for r := 0; r < stampSize; r++ {
		row := make([]float64, stampSize)
		for c := 0; c < stampSize; c++ {
			row[c] = backgroundDN + float64((r*7+c*13)%11)/11.0 - 0.5
			if withSource && r >= sourceLo && r <= sourceHi && c >= sourceLo && c <= sourceHi {
				row[c] = sourceFlux
			}
		}
		pixels[r] = row
	}

	// Rows are rectangular by construction
	grid, _ := cutout.NewGrid(pixels)
	return grid
}
