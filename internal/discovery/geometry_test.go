package discovery

import (
	"math"
	"testing"

	"transient-filter/internal/domain"
)

func det(mjd, ra, dec, raErr, decErr float64) domain.Detection {
	return domain.Detection{Mjd: mjd, RA: ra, Dec: dec, RAErr: raErr, DecErr: decErr}
}

func TestSeparation_IdenticalPoints(t *testing.T) {
	a := det(59000, 150.123, -22.5, 0, 0)
	if sep := Separation(a, a); sep != 0 {
		t.Errorf("expected 0 separation for identical points, got %v", sep)
	}
}

func TestSeparation_PureDecOffset(t *testing.T) {
	// 1 arcsec apart along the declination axis
	a := det(59000, 10, 0, 0, 0)
	b := det(59000, 10, 1.0/3600, 0, 0)

	sep := Separation(a, b)
	if math.Abs(sep-1.0) > 1e-6 {
		t.Errorf("expected 1 arcsec, got %v", sep)
	}
}

func TestSeparation_RAOffsetShrinksWithDec(t *testing.T) {
	// An RA offset of 0.002 deg at dec 60 spans about 3.6 arcsec on the sky.
	a := det(59000, 10, 60, 0, 0)
	b := det(59000, 10.002, 60, 0, 0)

	sep := Separation(a, b)
	if math.Abs(sep-3.6) > 1e-3 {
		t.Errorf("expected ~3.6 arcsec, got %v", sep)
	}
}

func TestSeparation_Symmetric(t *testing.T) {
	a := det(59000, 33.21, -5.4, 0, 0)
	b := det(59001, 33.22, -5.41, 0, 0)

	if Separation(a, b) != Separation(b, a) {
		t.Errorf("separation not symmetric: %v vs %v", Separation(a, b), Separation(b, a))
	}
}

func TestCombinedSigma_ConvertsToArcsec(t *testing.T) {
	// Four equal per-axis uncertainties of 1e-4 deg combine to 2e-4 deg,
	// which is 0.72 arcsec.
	a := det(59000, 10, 0, 1e-4, 1e-4)
	b := det(59001, 10, 0, 1e-4, 1e-4)

	combined := CombinedSigma(a, b)
	if math.Abs(combined-0.72) > 1e-9 {
		t.Errorf("expected 0.72 arcsec, got %v", combined)
	}
}

func TestPositionallyConsistent_InclusiveBoundary(t *testing.T) {
	// Zero uncertainty on identical points sits exactly on the boundary:
	// separation 0 against an acceptance radius of 0 must pass.
	a := det(59000, 150.5, 30.25, 0, 0)
	if _, _, ok := PositionallyConsistent(a, a); !ok {
		t.Error("zero separation with zero uncertainty should be consistent")
	}

	// Any nonzero separation with zero uncertainty must fail.
	b := det(59001, 150.5, 30.25+1.0/3600, 0, 0)
	if _, _, ok := PositionallyConsistent(a, b); ok {
		t.Error("nonzero separation with zero uncertainty should not be consistent")
	}
}

func TestPositionallyConsistent_WithinThreeSigma(t *testing.T) {
	// 3.6 arcsec apart with combined uncertainty 1.44 arcsec: acceptance
	// radius 4.32 arcsec, so the pair is consistent.
	a := det(59000, 10, 60, 2e-4, 2e-4)
	b := det(59001, 10.002, 60, 2e-4, 2e-4)

	sep, combined, ok := PositionallyConsistent(a, b)
	if !ok {
		t.Errorf("expected consistent pair, sep=%v combined=%v", sep, combined)
	}
}

func TestPositionallyConsistent_BeyondThreeSigma(t *testing.T) {
	// Same 3.6 arcsec separation with combined uncertainty 0.72 arcsec:
	// acceptance radius 2.16 arcsec, so the pair is rejected.
	a := det(59000, 10, 60, 1e-4, 1e-4)
	b := det(59001, 10.002, 60, 1e-4, 1e-4)

	sep, combined, ok := PositionallyConsistent(a, b)
	if ok {
		t.Errorf("expected inconsistent pair, sep=%v combined=%v", sep, combined)
	}
}

func TestPositionallyConsistent_Symmetric(t *testing.T) {
	a := det(59000, 10, 60, 1e-4, 2e-4)
	b := det(59001, 10.001, 60.0004, 3e-4, 1e-4)

	_, _, ab := PositionallyConsistent(a, b)
	_, _, ba := PositionallyConsistent(b, a)
	if ab != ba {
		t.Errorf("consistency not symmetric: %v vs %v", ab, ba)
	}
}
