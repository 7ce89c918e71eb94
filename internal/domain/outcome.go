package domain

// Outcome represents the temporal classification of an evaluated alert.
type Outcome string

const (
	OutcomeNoDiscovery Outcome = "NO_DISCOVERY"
	OutcomeIntraNight  Outcome = "INTRA_NIGHT"
	OutcomeInterNight  Outcome = "INTER_NIGHT"
)

// String returns the string representation of Outcome.
func (o Outcome) String() string {
	return string(o)
}

// IsValid checks if the outcome is a valid value.
func (o Outcome) IsValid() bool {
	return o == OutcomeNoDiscovery || o == OutcomeIntraNight || o == OutcomeInterNight
}

// Publishable reports whether the outcome has a downstream discovery channel.
// NO_DISCOVERY alerts are never published.
func (o Outcome) Publishable() bool {
	return o == OutcomeIntraNight || o == OutcomeInterNight
}
