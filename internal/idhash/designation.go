package idhash

import (
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	designationPrefix = "TF"
	designationBytes  = 8
)

// Designation derives the short human-readable designation from a candidate
// ID. Formula: "TF" + base58(first 8 bytes of the hex-decoded candidate_id)
func Designation(candidateID string) (string, error) {
	raw, err := hex.DecodeString(candidateID)
	if err != nil {
		return "", fmt.Errorf("decode candidate id: %w", err)
	}
	if len(raw) < designationBytes {
		return "", fmt.Errorf("candidate id too short: %d bytes", len(raw))
	}
	return designationPrefix + base58.Encode(raw[:designationBytes]), nil
}
