package discovery

import (
	"transient-filter/internal/domain"
	"transient-filter/internal/mjd"
)

// ClassifyTemporal types the current detection against its prior history.
// Only the second-ever detection of an object is a discovery event: an empty
// history means there is nothing to confirm yet, and two or more priors mean
// the object is already established. With exactly one prior, a shared night
// yields INTRA_NIGHT and an earlier night yields INTER_NIGHT.
func ClassifyTemporal(current domain.Detection, history []domain.Detection) domain.Outcome {
	switch len(history) {
	case 0:
		return domain.OutcomeNoDiscovery
	case 1:
		if mjd.Night(history[0].Mjd) == mjd.Night(current.Mjd) {
			return domain.OutcomeIntraNight
		}
		return domain.OutcomeInterNight
	default:
		return domain.OutcomeNoDiscovery
	}
}

// ClassifyConfirmedPair is the stricter two-observation gate: INTER_NIGHT
// only when exactly two prior detections share one night and that night
// differs from the current detection's night. Everything else is
// NO_DISCOVERY.
func ClassifyConfirmedPair(current domain.Detection, history []domain.Detection) domain.Outcome {
	if len(history) != 2 {
		return domain.OutcomeNoDiscovery
	}
	pairNight := mjd.Night(history[0].Mjd)
	if mjd.Night(history[1].Mjd) != pairNight {
		return domain.OutcomeNoDiscovery
	}
	if pairNight == mjd.Night(current.Mjd) {
		return domain.OutcomeNoDiscovery
	}
	return domain.OutcomeInterNight
}
