package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"transient-filter/internal/domain"
)

// SurveyELAsTiCC names the DESC ELAsTiCC alert stream.
const SurveyELAsTiCC = "elasticc"

// ELAsTiCC fluxes are calibrated in nanojansky; the AB zero point in that
// unit is 31.4: mag = 31.4 - 2.5*log10(flux_nJy).
const elasticcZeroPointNJy = 31.4

// elasticcAlert mirrors the JSON layout of one ELAsTiCC alert packet.
type elasticcAlert struct {
	AlertID        int64               `json:"alertId"`
	DiaSource      *elasticcDiaSource  `json:"diaSource"`
	PrvDiaSources  []elasticcDiaSource `json:"prvDiaSources"`
	CutoutScience  [][]float64         `json:"cutoutScience"`
	CutoutTemplate [][]float64         `json:"cutoutTemplate"`
}

type elasticcDiaSource struct {
	DiaSourceID int64   `json:"diaSourceId"`
	DiaObjectID int64   `json:"diaObjectId"`
	MidPointTai float64 `json:"midPointTai"`
	RA          float64 `json:"ra"`
	Decl        float64 `json:"decl"`
	RASigma     float64 `json:"raSigma"`
	DeclSigma   float64 `json:"declSigma"`
	PSFlux      float64 `json:"psFlux"`
	FilterName  string  `json:"filterName"`
	SSObjectID  *int64  `json:"ssObjectId"`
}

type elasticcMapper struct{}

func (m *elasticcMapper) Survey() string { return SurveyELAsTiCC }

func (m *elasticcMapper) Map(payload []byte) (domain.Alert, error) {
	var raw elasticcAlert
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.Alert{}, fmt.Errorf("decode elasticc alert: %w", err)
	}
	if raw.DiaSource == nil {
		return domain.Alert{}, fmt.Errorf("elasticc alert %d has no diaSource", raw.AlertID)
	}

	alert := domain.Alert{
		AlertID:  raw.AlertID,
		ObjectID: strconv.FormatInt(raw.DiaSource.DiaObjectID, 10),
		Survey:   SurveyELAsTiCC,
		Current:  elasticcDetection(*raw.DiaSource),
	}
	// prvDiaSources arrive chronologically ascending; keep that order.
	for _, prv := range raw.PrvDiaSources {
		alert.History = append(alert.History, elasticcDetection(prv))
	}

	var err error
	if alert.Science, err = gridFromPixels(raw.CutoutScience); err != nil {
		return domain.Alert{}, fmt.Errorf("elasticc alert %d science cutout: %w", raw.AlertID, err)
	}
	if alert.Template, err = gridFromPixels(raw.CutoutTemplate); err != nil {
		return domain.Alert{}, fmt.Errorf("elasticc alert %d template cutout: %w", raw.AlertID, err)
	}
	return alert, nil
}

func elasticcDetection(s elasticcDiaSource) domain.Detection {
	return domain.Detection{
		SourceID:    s.DiaSourceID,
		Mjd:         s.MidPointTai,
		RA:          s.RA,
		Dec:         s.Decl,
		RAErr:       s.RASigma,
		DecErr:      s.DeclSigma,
		Mag:         magFromNJy(s.PSFlux),
		Band:        s.FilterName,
		SolarSystem: s.SSObjectID != nil && *s.SSObjectID != 0,
	}
}

// magFromNJy converts a nanojansky flux to an AB magnitude. Non-positive
// fluxes have no magnitude and map to zero.
func magFromNJy(flux float64) float64 {
	if flux <= 0 {
		return 0
	}
	return elasticcZeroPointNJy - 2.5*math.Log10(flux)
}
