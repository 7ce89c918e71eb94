package discovery

import (
	"errors"
	"fmt"

	"transient-filter/internal/cutout"
)

// ErrMalformedImage reports an image stamp pair that cannot be evaluated:
// a missing or empty grid, or science and template shapes that do not match.
// Callers must treat it as a hard reject and never publish the alert.
var ErrMalformedImage = errors.New("malformed image stamp")

// HostlessResult carries the hostless verdict together with the masked-pixel
// counts of the pass that produced it.
type HostlessResult struct {
	Hostless       bool // exactly one stamp shows a clipped source
	ScienceMasked  int  // pixels clipped in the science stamp
	TemplateMasked int  // pixels clipped in the template stamp
	SecondPass     bool // verdict came from the center-crop re-run
}

// HostlessDetector decides whether an alert's image stamps show a source
// without an underlying host. A genuinely new transient clips outlier pixels
// in the science stamp but leaves the source-free template clean; host
// galaxies and artifacts clip both. The first pass runs over the full frames,
// and an inconclusive first pass is retried on a centered crop so unrelated
// outliers elsewhere in the frame cannot dilute the signal.
type HostlessDetector struct {
	cfg ClippingConfig
}

// NewHostlessDetector creates a detector with the given thresholds.
func NewHostlessDetector(cfg ClippingConfig) (*HostlessDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate clipping config: %w", err)
	}
	return &HostlessDetector{cfg: cfg}, nil
}

// IsHostless reports the hostless verdict for a stamp pair.
func (d *HostlessDetector) IsHostless(science, template *cutout.Grid) (bool, error) {
	res, err := d.Evaluate(science, template)
	if err != nil {
		return false, err
	}
	return res.Hostless, nil
}

// Evaluate runs the two-pass hostless check and returns the full result.
func (d *HostlessDetector) Evaluate(science, template *cutout.Grid) (HostlessResult, error) {
	if err := checkShapes(science, template); err != nil {
		return HostlessResult{}, err
	}

	sciMasked := cutout.Clip(science, d.cfg.Sigma, d.cfg.MaxIters).CountMasked()
	tmplMasked := cutout.Clip(template, d.cfg.Sigma, d.cfg.MaxIters).CountMasked()
	if d.hostlessConditions(sciMasked, tmplMasked) {
		return HostlessResult{
			Hostless:       true,
			ScienceMasked:  sciMasked,
			TemplateMasked: tmplMasked,
		}, nil
	}

	sciCrop := science.CenterCrop(d.cfg.CropRadiusPixels)
	tmplCrop := template.CenterCrop(d.cfg.CropRadiusPixels)
	if err := checkShapes(sciCrop, tmplCrop); err != nil {
		return HostlessResult{}, err
	}

	sciMasked = cutout.Clip(sciCrop, d.cfg.Sigma, d.cfg.MaxIters).CountMasked()
	tmplMasked = cutout.Clip(tmplCrop, d.cfg.Sigma, d.cfg.MaxIters).CountMasked()
	return HostlessResult{
		Hostless:       d.hostlessConditions(sciMasked, tmplMasked),
		ScienceMasked:  sciMasked,
		TemplateMasked: tmplMasked,
		SecondPass:     true,
	}, nil
}

// hostlessConditions is true when exactly one stamp shows a clipped source
// and the other is clean.
func (d *HostlessDetector) hostlessConditions(scienceMasked, templateMasked int) bool {
	scienceOnly := scienceMasked > d.cfg.MaxPixelsClippedForDetection &&
		templateMasked < d.cfg.MinPixelsClippedForNonDetection
	templateOnly := templateMasked > d.cfg.MaxPixelsClippedForDetection &&
		scienceMasked < d.cfg.MinPixelsClippedForNonDetection
	return scienceOnly || templateOnly
}

func checkShapes(science, template *cutout.Grid) error {
	if science == nil || science.Empty() {
		return fmt.Errorf("science stamp missing: %w", ErrMalformedImage)
	}
	if template == nil || template.Empty() {
		return fmt.Errorf("template stamp missing: %w", ErrMalformedImage)
	}
	if !science.SameShape(template) {
		return fmt.Errorf("science %dx%d vs template %dx%d: %w",
			science.Rows(), science.Cols(), template.Rows(), template.Cols(), ErrMalformedImage)
	}
	return nil
}
