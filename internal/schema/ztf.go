package schema

import (
	"encoding/json"
	"fmt"

	"transient-filter/internal/domain"
)

// SurveyZTF names the Zwicky Transient Facility alert stream.
const SurveyZTF = "ztf"

// jdOffset converts Julian Date, which ZTF packets carry, to Modified
// Julian Date.
const jdOffset = 2400000.5

// ztfBands maps the ZTF filter ID to its band name.
var ztfBands = map[int]string{1: "g", 2: "r", 3: "i"}

// ztfAlert mirrors the JSON layout of one ZTF alert packet.
type ztfAlert struct {
	ObjectID       string         `json:"objectId"`
	Candid         int64          `json:"candid"`
	Candidate      *ztfCandidate  `json:"candidate"`
	PrvCandidates  []ztfCandidate `json:"prv_candidates"`
	CutoutScience  [][]float64    `json:"cutoutScience"`
	CutoutTemplate [][]float64    `json:"cutoutTemplate"`
}

type ztfCandidate struct {
	Candid   *int64   `json:"candid"`
	JD       float64  `json:"jd"`
	RA       float64  `json:"ra"`
	Dec      float64  `json:"dec"`
	SigmaRA  float64  `json:"sigmara"`
	SigmaDec float64  `json:"sigmadec"`
	MagPSF   float64  `json:"magpsf"`
	FID      int      `json:"fid"`
	SSDistNr *float64 `json:"ssdistnr"`
}

type ztfMapper struct{}

func (m *ztfMapper) Survey() string { return SurveyZTF }

func (m *ztfMapper) Map(payload []byte) (domain.Alert, error) {
	var raw ztfAlert
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.Alert{}, fmt.Errorf("decode ztf alert: %w", err)
	}
	if raw.Candidate == nil {
		return domain.Alert{}, fmt.Errorf("ztf alert %d has no candidate", raw.Candid)
	}

	alert := domain.Alert{
		AlertID:  raw.Candid,
		ObjectID: raw.ObjectID,
		Survey:   SurveyZTF,
		Current:  ztfDetection(*raw.Candidate),
	}
	// prv_candidates mixes detections with upper limits; only rows with a
	// candid are detections. Packet order is chronologically ascending.
	for _, prv := range raw.PrvCandidates {
		if prv.Candid == nil {
			continue
		}
		alert.History = append(alert.History, ztfDetection(prv))
	}

	var err error
	if alert.Science, err = gridFromPixels(raw.CutoutScience); err != nil {
		return domain.Alert{}, fmt.Errorf("ztf alert %d science cutout: %w", raw.Candid, err)
	}
	if alert.Template, err = gridFromPixels(raw.CutoutTemplate); err != nil {
		return domain.Alert{}, fmt.Errorf("ztf alert %d template cutout: %w", raw.Candid, err)
	}
	return alert, nil
}

func ztfDetection(c ztfCandidate) domain.Detection {
	var sourceID int64
	if c.Candid != nil {
		sourceID = *c.Candid
	}
	return domain.Detection{
		SourceID: sourceID,
		Mjd:      c.JD - jdOffset,
		RA:       c.RA,
		Dec:      c.Dec,
		RAErr:    c.SigmaRA,
		DecErr:   c.SigmaDec,
		Mag:      c.MagPSF,
		Band:     ztfBands[c.FID],
		// ssdistnr is negative or absent when no known moving object
		// matched within the search radius.
		SolarSystem: c.SSDistNr != nil && *c.SSDistNr >= 0,
	}
}
