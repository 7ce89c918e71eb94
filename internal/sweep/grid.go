// Package sweep evaluates clipping-threshold variants against archived
// alerts. Production thresholds are tuned by sweeping a grid over a past
// night range and comparing candidate yields before any config change
// ships.
package sweep

import (
	"fmt"

	"transient-filter/internal/discovery"
)

// Variant is one clipping configuration under evaluation.
type Variant struct {
	Label  string
	Config discovery.ClippingConfig
}

// Grid spans the threshold combinations to evaluate. Empty dimensions
// fall back to the base config's value, so a grid with only Sigmas set
// sweeps sigma alone.
type Grid struct {
	Sigmas          []float64 // clip thresholds
	CropRadii       []int     // second-pass patch half-widths
	DetectionPixels []int     // MaxPixelsClippedForDetection values
	CleanPixels     []int     // MinPixelsClippedForNonDetection values
}

// Variants expands the grid against a base configuration. Every
// combination is validated; an invalid combination fails the whole
// expansion so a sweep never silently skips part of its grid.
func (g Grid) Variants(base discovery.ClippingConfig) ([]Variant, error) {
	sigmas := g.Sigmas
	if len(sigmas) == 0 {
		sigmas = []float64{base.Sigma}
	}
	radii := g.CropRadii
	if len(radii) == 0 {
		radii = []int{base.CropRadiusPixels}
	}
	detection := g.DetectionPixels
	if len(detection) == 0 {
		detection = []int{base.MaxPixelsClippedForDetection}
	}
	clean := g.CleanPixels
	if len(clean) == 0 {
		clean = []int{base.MinPixelsClippedForNonDetection}
	}

	variants := make([]Variant, 0, len(sigmas)*len(radii)*len(detection)*len(clean))
	for _, sigma := range sigmas {
		for _, radius := range radii {
			for _, det := range detection {
				for _, cl := range clean {
					cfg := base
					cfg.Sigma = sigma
					cfg.CropRadiusPixels = radius
					cfg.MaxPixelsClippedForDetection = det
					cfg.MinPixelsClippedForNonDetection = cl
					if err := cfg.Validate(); err != nil {
						return nil, fmt.Errorf("variant %s: %w", variantLabel(cfg), err)
					}
					variants = append(variants, Variant{Label: variantLabel(cfg), Config: cfg})
				}
			}
		}
	}
	return variants, nil
}

// variantLabel names a variant by its swept thresholds.
func variantLabel(cfg discovery.ClippingConfig) string {
	return fmt.Sprintf("sigma=%g crop=%d det=%d clean=%d",
		cfg.Sigma, cfg.CropRadiusPixels,
		cfg.MaxPixelsClippedForDetection, cfg.MinPixelsClippedForNonDetection)
}
