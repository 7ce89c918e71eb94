package cutout

import (
	"encoding/json"
	"testing"
)

func TestNewGrid_RejectsEmptyAndRagged(t *testing.T) {
	if _, err := NewGrid(nil); err == nil {
		t.Error("expected error for nil pixels")
	}
	if _, err := NewGrid([][]float64{}); err == nil {
		t.Error("expected error for zero rows")
	}
	if _, err := NewGrid([][]float64{{}}); err == nil {
		t.Error("expected error for zero columns")
	}
	if _, err := NewGrid([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("expected error for ragged rows")
	}
}

func TestNewGrid_Dimensions(t *testing.T) {
	g, err := NewGrid([][]float64{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	if g.Rows() != 2 || g.Cols() != 3 {
		t.Errorf("expected 2x3, got %dx%d", g.Rows(), g.Cols())
	}
	if g.At(1, 2) != 6 {
		t.Errorf("expected At(1,2)=6, got %v", g.At(1, 2))
	}
}

func TestCenterCrop_WithinBounds(t *testing.T) {
	// 8x8 grid, radius 2: center (4,4), rows/cols [2,6)
	pixels := make([][]float64, 8)
	for r := range pixels {
		pixels[r] = make([]float64, 8)
		for c := range pixels[r] {
			pixels[r][c] = float64(r*10 + c)
		}
	}
	g, _ := NewGrid(pixels)

	cropped := g.CenterCrop(2)
	if cropped.Rows() != 4 || cropped.Cols() != 4 {
		t.Fatalf("expected 4x4 crop, got %dx%d", cropped.Rows(), cropped.Cols())
	}
	if cropped.At(0, 0) != 22 { // original (2,2)
		t.Errorf("expected crop origin 22, got %v", cropped.At(0, 0))
	}
	if cropped.At(3, 3) != 55 { // original (5,5)
		t.Errorf("expected crop corner 55, got %v", cropped.At(3, 3))
	}
}

func TestCenterCrop_ClampsToGrid(t *testing.T) {
	g, _ := NewGrid([][]float64{{1, 2}, {3, 4}, {5, 6}})

	cropped := g.CenterCrop(12)
	if cropped.Rows() != 3 || cropped.Cols() != 2 {
		t.Errorf("expected full 3x2 grid, got %dx%d", cropped.Rows(), cropped.Cols())
	}
}

func TestCenterCrop_CopiesPixels(t *testing.T) {
	pixels := [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	g, _ := NewGrid(pixels)

	cropped := g.CenterCrop(1)
	pixels[1][1] = -1
	if cropped.At(1, 1) == -1 {
		t.Error("crop must not alias the source pixels")
	}
}

func TestGrid_JSONRoundTrip(t *testing.T) {
	g, _ := NewGrid([][]float64{{1.5, 2}, {3, 4.25}})

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Grid
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.SameShape(g) || back.At(1, 1) != 4.25 {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestGrid_UnmarshalRejectsRagged(t *testing.T) {
	var g Grid
	if err := json.Unmarshal([]byte(`[[1,2],[3]]`), &g); err == nil {
		t.Error("expected error for ragged JSON grid")
	}
}

func TestMask_Counts(t *testing.T) {
	m := NewMask(3, 3)
	if m.CountMasked() != 0 {
		t.Fatalf("new mask should be clear, got %d", m.CountMasked())
	}
	m.Set(0, 0)
	m.Set(2, 1)
	m.Set(0, 0) // repeated set counts once
	if m.CountMasked() != 2 {
		t.Errorf("expected 2 masked, got %d", m.CountMasked())
	}
	if !m.IsSet(2, 1) || m.IsSet(1, 1) {
		t.Error("mask bits wrong")
	}
}
