// Package cutout holds 2-D pixel grids from alert image cutouts and the
// sigma-clipping statistics used by the hostless check.
package cutout

import (
	"encoding/json"
	"fmt"
)

// Grid is a rectangular 2-D pixel grid. Construct through NewGrid or
// JSON decoding; both reject ragged or empty input, so a non-nil Grid
// is always rectangular.
type Grid struct {
	pixels [][]float64
}

// NewGrid builds a grid from row-major pixel data.
func NewGrid(pixels [][]float64) (*Grid, error) {
	if len(pixels) == 0 || len(pixels[0]) == 0 {
		return nil, fmt.Errorf("grid must have at least one row and column")
	}
	cols := len(pixels[0])
	for i, row := range pixels {
		if len(row) != cols {
			return nil, fmt.Errorf("grid is ragged: row 0 has %d columns, row %d has %d", cols, i, len(row))
		}
	}
	return &Grid{pixels: pixels}, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int {
	return len(g.pixels)
}

// Cols returns the number of columns.
func (g *Grid) Cols() int {
	if len(g.pixels) == 0 {
		return 0
	}
	return len(g.pixels[0])
}

// Empty reports whether the grid holds no pixels.
func (g *Grid) Empty() bool {
	return g.Rows() == 0 || g.Cols() == 0
}

// At returns the pixel value at (row, col).
func (g *Grid) At(row, col int) float64 {
	return g.pixels[row][col]
}

// SameShape reports whether both grids have identical dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return o != nil && g.Rows() == o.Rows() && g.Cols() == o.Cols()
}

// CenterCrop returns the centered square patch of half-width radius,
// covering [center-radius, center+radius) on each axis with the center
// at integer-truncated Rows()/2, Cols()/2. The range is clamped to the
// grid bounds, so small frames crop to themselves.
func (g *Grid) CenterCrop(radius int) *Grid {
	cr := g.Rows() / 2
	cc := g.Cols() / 2

	r0 := clampIndex(cr-radius, g.Rows())
	r1 := clampIndex(cr+radius, g.Rows())
	c0 := clampIndex(cc-radius, g.Cols())
	c1 := clampIndex(cc+radius, g.Cols())

	cropped := make([][]float64, 0, r1-r0)
	for r := r0; r < r1; r++ {
		row := make([]float64, c1-c0)
		copy(row, g.pixels[r][c0:c1])
		cropped = append(cropped, row)
	}
	return &Grid{pixels: cropped}
}

// clampIndex bounds i to [0, limit].
func clampIndex(i, limit int) int {
	if i < 0 {
		return 0
	}
	if i > limit {
		return limit
	}
	return i
}

// MarshalJSON encodes the grid as its row-major pixel array.
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.pixels)
}

// UnmarshalJSON decodes and validates a row-major pixel array.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var pixels [][]float64
	if err := json.Unmarshal(data, &pixels); err != nil {
		return fmt.Errorf("decode pixel grid: %w", err)
	}
	parsed, err := NewGrid(pixels)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}
