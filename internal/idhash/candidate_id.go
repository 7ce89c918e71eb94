package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"transient-filter/internal/domain"
)

// ComputeCandidateID computes a deterministic candidate_id using SHA256.
// Formula: SHA256(survey|object_id|alert_id|outcome)
// Returns hex-encoded hash (64 characters).
func ComputeCandidateID(
	survey string,
	objectID string,
	alertID int64,
	outcome domain.Outcome,
) string {
	data := fmt.Sprintf("%s|%s|%d|%s",
		survey,
		objectID,
		alertID,
		string(outcome),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
