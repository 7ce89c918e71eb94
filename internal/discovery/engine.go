package discovery

import (
	"fmt"

	"transient-filter/internal/domain"
)

// Rejection reasons recorded on non-candidate decisions.
const (
	ReasonSolarSystem      = "solar system object"
	ReasonNoHistory        = "no prior detections"
	ReasonEstablished      = "established object"
	ReasonUnconfirmedPair  = "unconfirmed detection pair"
	ReasonPositionMismatch = "positionally inconsistent"
	ReasonNotHostless      = "not hostless"
)

// Engine evaluates alerts into discovery decisions. It holds no mutable
// state and performs no I/O, so a single Engine is safe for concurrent use.
type Engine struct {
	cfg      EngineConfig
	hostless *HostlessDetector
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate engine config: %w", err)
	}
	hostless, err := NewHostlessDetector(cfg.Clipping)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, hostless: hostless}, nil
}

// Decide evaluates one alert. The temporal outcome is computed first and a
// NO_DISCOVERY outcome returns immediately. Otherwise the candidate verdict
// combines the positional-consistency check against the reference prior
// detection with the hostless check; alerts without stamps pass the hostless
// gate by construction. A malformed stamp pair returns ErrMalformedImage and
// no decision: the caller must not publish that alert.
func (e *Engine) Decide(alert domain.Alert) (domain.Decision, error) {
	if e.cfg.ExcludeSolarSystemObjects && alert.Current.SolarSystem {
		return domain.Decision{Outcome: domain.OutcomeNoDiscovery, Reason: ReasonSolarSystem}, nil
	}

	outcome := e.classify(alert)
	if outcome == domain.OutcomeNoDiscovery {
		return domain.Decision{Outcome: outcome, Reason: e.noDiscoveryReason(alert)}, nil
	}

	sep, combined, consistent := PositionallyConsistent(alert.Current, alert.History[0])
	decision := domain.Decision{
		Outcome: outcome,
		Position: &domain.PositionCheck{
			SeparationArcsec:    sep,
			CombinedSigmaArcsec: combined,
			Consistent:          consistent,
		},
	}

	hostlessOk := true
	if alert.HasCutouts() {
		res, err := e.hostless.Evaluate(alert.Science, alert.Template)
		if err != nil {
			return domain.Decision{}, fmt.Errorf("evaluate stamps for alert %d: %w", alert.AlertID, err)
		}
		decision.Hostless = &domain.HostlessCheck{
			Hostless:       res.Hostless,
			ScienceMasked:  res.ScienceMasked,
			TemplateMasked: res.TemplateMasked,
			SecondPass:     res.SecondPass,
		}
		hostlessOk = res.Hostless
	}

	decision.IsCandidate = consistent && hostlessOk
	if !decision.IsCandidate {
		if !consistent {
			decision.Reason = ReasonPositionMismatch
		} else {
			decision.Reason = ReasonNotHostless
		}
	}
	return decision, nil
}

func (e *Engine) classify(alert domain.Alert) domain.Outcome {
	if e.cfg.RequireConfirmedPair {
		return ClassifyConfirmedPair(alert.Current, alert.History)
	}
	return ClassifyTemporal(alert.Current, alert.History)
}

func (e *Engine) noDiscoveryReason(alert domain.Alert) string {
	if len(alert.History) == 0 {
		return ReasonNoHistory
	}
	if e.cfg.RequireConfirmedPair {
		return ReasonUnconfirmedPair
	}
	return ReasonEstablished
}
