package reporting

import "time"

// Report summarizes filtering activity over one survey night range.
type Report struct {
	GeneratedAt time.Time
	Survey      string
	StartNight  int
	EndNight    int

	Summary    Summary
	Reasons    []ReasonCount // rejection reasons, most frequent first
	Nights     []NightBucket // per-night counts, ascending
	TopObjects []ObjectCount // most evaluated objects, busiest first

	// Runtime carries live pipeline counters when the report is generated
	// inside the running server; one-shot runs leave it nil.
	Runtime *RuntimeCounts
}

// Summary holds the decision totals of the reported range.
type Summary struct {
	Decisions     int
	Candidates    int // rows in the candidate store for the range
	IntraNight    int
	InterNight    int
	NoDiscovery   int
	CandidateRate float64 // Candidates / Decisions, 0 when no decisions
	FirstDate     string  // UTC calendar date of the earliest decision
	LastDate      string  // UTC calendar date of the latest decision
}

// ReasonCount counts rejections sharing one reason.
type ReasonCount struct {
	Reason string
	Count  int
}

// NightBucket aggregates one night's decisions.
type NightBucket struct {
	Night       int
	Date        string // UTC calendar date of the night bucket
	Decisions   int
	Candidates  int
	IntraNight  int
	InterNight  int
	NoDiscovery int
}

// ObjectCount aggregates the decisions of one survey object.
type ObjectCount struct {
	ObjectID   string
	Decisions  int
	Candidates int
}

// RuntimeCounts mirrors the pipeline counters at generation time.
type RuntimeCounts struct {
	Processed  int64
	Duplicates int64
	Malformed  int64
	Published  int64
}
