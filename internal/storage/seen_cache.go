package storage

import "context"

// SeenCache records which alerts have already been processed.
// This enables dedupe across restarts and across redelivered broker messages
// without re-evaluating or double-publishing candidates.
type SeenCache interface {
	// MarkSeen records an alert as processed. Returns true when the alert
	// was newly marked and false when it had been seen before. The check
	// and the mark are a single atomic operation.
	MarkSeen(ctx context.Context, survey string, alertID int64) (bool, error)
}
