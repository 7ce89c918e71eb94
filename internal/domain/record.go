package domain

// DecisionRecord represents one evaluated alert for the analytics warehouse.
// Corresponds to decisions table in ClickHouse.
type DecisionRecord struct {
	AlertID        int64   `json:"alert_id"`        // survey alert identifier
	ObjectID       string  `json:"object_id"`       // survey object identifier
	Survey         string  `json:"survey"`          // originating survey
	Outcome        Outcome `json:"outcome"`         // temporal classification
	IsCandidate    bool    `json:"is_candidate"`    // final discovery verdict
	Reason         string  `json:"reason"`          // rejection reason, empty for candidates
	SepArcsec      float64 `json:"sep_arcsec"`      // separation to the reference prior detection (0 if none)
	CombinedArcsec float64 `json:"combined_arcsec"` // combined positional uncertainty (0 if none)
	PositionOK     bool    `json:"position_ok"`     // geometric consistency verdict
	ScienceMasked  int     `json:"science_masked"`  // pixels clipped in the science stamp
	TemplateMasked int     `json:"template_masked"` // pixels clipped in the template stamp
	HostlessOK     bool    `json:"hostless_ok"`     // hostless verdict (true when stamps absent)
	SecondPass     bool    `json:"second_pass"`     // hostless verdict came from the center-crop re-run
	Mjd            float64 `json:"mjd"`             // epoch of the triggering detection
	Night          int     `json:"night"`           // integer MJD night bucket
	ProcessedAt    int64   `json:"processed_at"`    // Unix timestamp in milliseconds
}
