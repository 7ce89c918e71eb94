package domain

import (
	"time"

	"transient-filter/internal/cutout"
)

// Alert represents one survey alert packet after survey-specific decoding.
// The payload stored in the alert archive is the JSON form of this struct.
type Alert struct {
	AlertID    int64        `json:"alert_id"`           // survey-issued alert identifier
	ObjectID   string       `json:"object_id"`          // survey object this alert belongs to
	Survey     string       `json:"survey"`             // originating survey (elasticc, ztf)
	Current    Detection    `json:"current"`            // detection that triggered the alert
	History    []Detection  `json:"history"`            // prior detections of the same object
	Science    *cutout.Grid `json:"science,omitempty"`  // science image stamp
	Template   *cutout.Grid `json:"template,omitempty"` // reference template stamp
	ReceivedAt time.Time    `json:"received_at"`        // broker receipt time
}

// HasCutouts reports whether both image stamps are present.
func (a Alert) HasCutouts() bool {
	return a.Science != nil && a.Template != nil
}
