package discovery

import "fmt"

// ClippingConfig holds the thresholds for iterative sigma clipping of image
// stamps. Loaded once at process start, immutable afterwards.
type ClippingConfig struct {
	Sigma                           float64 // clip threshold in standard deviations
	MaxIters                        int     // upper bound on clipping iterations
	CropRadiusPixels                int     // half-width of the centered second-pass patch
	MaxPixelsClippedForDetection    int     // masked count above which a stamp shows a source
	MinPixelsClippedForNonDetection int     // masked count below which a stamp is clean
}

// DefaultClippingConfig returns the production thresholds.
func DefaultClippingConfig() ClippingConfig {
	return ClippingConfig{
		Sigma:                           3,
		MaxIters:                        10,
		CropRadiusPixels:                12,
		MaxPixelsClippedForDetection:    5,
		MinPixelsClippedForNonDetection: 3,
	}
}

// Validate checks the clipping thresholds for internal consistency.
func (c ClippingConfig) Validate() error {
	if c.Sigma <= 0 {
		return fmt.Errorf("sigma must be positive, got %v", c.Sigma)
	}
	if c.MaxIters < 1 {
		return fmt.Errorf("max iters must be at least 1, got %d", c.MaxIters)
	}
	if c.CropRadiusPixels < 1 {
		return fmt.Errorf("crop radius must be at least 1, got %d", c.CropRadiusPixels)
	}
	if c.MaxPixelsClippedForDetection < 0 {
		return fmt.Errorf("max pixels clipped for detection must not be negative, got %d", c.MaxPixelsClippedForDetection)
	}
	if c.MinPixelsClippedForNonDetection < 0 {
		return fmt.Errorf("min pixels clipped for non-detection must not be negative, got %d", c.MinPixelsClippedForNonDetection)
	}
	return nil
}

// EngineConfig controls the full discovery decision engine.
type EngineConfig struct {
	Clipping                  ClippingConfig
	ExcludeSolarSystemObjects bool // reject alerts matched upstream to a known solar-system object
	RequireConfirmedPair      bool // gate on two same-night priors instead of a single prior
}

// DefaultEngineConfig returns the production engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Clipping:                  DefaultClippingConfig(),
		ExcludeSolarSystemObjects: true,
		RequireConfirmedPair:      false,
	}
}

// Validate checks the engine configuration.
func (c EngineConfig) Validate() error {
	if err := c.Clipping.Validate(); err != nil {
		return fmt.Errorf("clipping config: %w", err)
	}
	return nil
}
