package domain

// PositionCheck records the geometric consistency test between the current
// detection and the reference prior detection.
type PositionCheck struct {
	SeparationArcsec    float64 // great-circle separation
	CombinedSigmaArcsec float64 // combined positional uncertainty
	Consistent          bool    // separation within three combined sigma
}

// HostlessCheck records the image-based host association assessment.
type HostlessCheck struct {
	Hostless       bool // exactly one stamp shows a clipped source
	ScienceMasked  int  // pixels clipped in the science stamp
	TemplateMasked int  // pixels clipped in the template stamp
	SecondPass     bool // verdict came from the center-crop re-run
}

// Decision is the full result of evaluating one alert.
type Decision struct {
	Outcome     Outcome        // temporal classification
	IsCandidate bool           // alert passed all discovery gates
	Reason      string         // short explanation when not a candidate
	Position    *PositionCheck // nil when no prior detection was compared
	Hostless    *HostlessCheck // nil when stamps were absent or not evaluated
}
