package cutout

// Mask marks outlier pixels of a grid with the same dimensions.
type Mask struct {
	bits   [][]bool
	masked int
}

// NewMask creates an all-clear mask of the given dimensions.
func NewMask(rows, cols int) *Mask {
	bits := make([][]bool, rows)
	for r := range bits {
		bits[r] = make([]bool, cols)
	}
	return &Mask{bits: bits}
}

// Set marks the pixel at (row, col) as an outlier.
func (m *Mask) Set(row, col int) {
	if !m.bits[row][col] {
		m.bits[row][col] = true
		m.masked++
	}
}

// IsSet reports whether the pixel at (row, col) is masked.
func (m *Mask) IsSet(row, col int) bool {
	return m.bits[row][col]
}

// CountMasked returns the number of masked pixels.
func (m *Mask) CountMasked() int {
	return m.masked
}
