package domain

// DiscoveryCandidate represents an alert promoted to a discovery candidate.
// Corresponds to discovery_candidates table in PostgreSQL and is the payload
// published on the discovery topics.
type DiscoveryCandidate struct {
	CandidateID string  `json:"candidate_id"` // PRIMARY KEY, deterministic hash
	Designation string  `json:"designation"`  // short human-readable designation
	AlertID     int64   `json:"alert_id"`     // survey alert that produced the candidate
	ObjectID    string  `json:"object_id"`    // survey object identifier
	Survey      string  `json:"survey"`       // originating survey
	Outcome     Outcome `json:"outcome"`      // INTRA_NIGHT | INTER_NIGHT
	Mjd         float64 `json:"mjd"`          // epoch of the triggering detection
	RA          float64 `json:"ra"`           // right ascension in degrees
	Dec         float64 `json:"dec"`          // declination in degrees
	Night       int     `json:"night"`        // integer MJD night bucket
	CreatedAt   int64   `json:"created_at"`   // record creation timestamp (ms)
}
