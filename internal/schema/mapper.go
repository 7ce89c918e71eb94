// Package schema decodes survey-specific alert payloads into domain alerts.
// Each supported survey publishes its own JSON field layout; a Mapper hides
// that layout behind one typed decode step so the rest of the service never
// does string-keyed field lookup.
package schema

import (
	"fmt"

	"transient-filter/internal/cutout"
	"transient-filter/internal/domain"
)

// Mapper decodes one survey's JSON alert payload into a domain.Alert.
type Mapper interface {
	// Survey returns the survey name this mapper handles.
	Survey() string

	// Map decodes a single alert payload. Payloads that fail to decode or
	// carry malformed pixel grids return an error; callers count and skip
	// them without stopping the stream.
	Map(payload []byte) (domain.Alert, error)
}

// ForSurvey returns the mapper for a survey name. Unknown surveys fail
// here, at wiring time, not per message.
func ForSurvey(survey string) (Mapper, error) {
	switch survey {
	case SurveyELAsTiCC:
		return &elasticcMapper{}, nil
	case SurveyZTF:
		return &ztfMapper{}, nil
	default:
		return nil, fmt.Errorf("unsupported survey %q", survey)
	}
}

// Surveys lists the supported survey names.
func Surveys() []string {
	return []string{SurveyELAsTiCC, SurveyZTF}
}

// gridFromPixels builds a cutout grid from a decoded pixel array. An absent
// array is an absent stamp, not an error.
func gridFromPixels(pixels [][]float64) (*cutout.Grid, error) {
	if len(pixels) == 0 {
		return nil, nil
	}
	return cutout.NewGrid(pixels)
}
