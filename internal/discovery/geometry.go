package discovery

import (
	"math"

	"transient-filter/internal/domain"
)

const (
	degToRad    = math.Pi / 180
	radToArcsec = 180 / math.Pi * 3600
	degToArcsec = 3600.0

	// matchSigmaFactor scales the combined positional uncertainty into the
	// acceptance radius for positional consistency.
	matchSigmaFactor = 3.0
)

// Separation returns the great-circle separation between two detections in
// arcseconds, using the haversine formula.
func Separation(a, b domain.Detection) float64 {
	dec1 := a.Dec * degToRad
	dec2 := b.Dec * degToRad
	sinDec := math.Sin((dec2 - dec1) / 2)
	sinRA := math.Sin((b.RA - a.RA) * degToRad / 2)

	h := sinDec*sinDec + math.Cos(dec1)*math.Cos(dec2)*sinRA*sinRA
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h)) * radToArcsec
}

// CombinedSigma returns the combined 1-sigma positional uncertainty of two
// detections in arcseconds. Per-axis uncertainties are carried in degrees.
func CombinedSigma(a, b domain.Detection) float64 {
	sum := a.RAErr*a.RAErr + a.DecErr*a.DecErr + b.RAErr*b.RAErr + b.DecErr*b.DecErr
	return math.Sqrt(sum) * degToArcsec
}

// PositionallyConsistent reports whether two detections are compatible with a
// single source. The acceptance is inclusive at exactly three combined sigma,
// so two detections with zero uncertainty match only at zero separation.
func PositionallyConsistent(a, b domain.Detection) (sep, combined float64, ok bool) {
	sep = Separation(a, b)
	combined = CombinedSigma(a, b)
	return sep, combined, sep <= matchSigmaFactor*combined
}
