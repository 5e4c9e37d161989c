package moments

// Map2D is a two dimensional row-major map with explicit per-cell
// validity. Invalid cells keep a zero value; consumers decide how to
// render or fill them. An explicit validity array is used instead of NaN
// sentinels so invalid results cannot silently propagate through
// arithmetic.
type Map2D struct {
	// Data holds the cell values in row-major order.
	Data []float64

	// Valid flags each cell; false marks an undefined result.
	Valid []bool

	// Width and Height are the map dimensions in pixels.
	Width  int
	Height int
}

// NewMap2D allocates a zero-filled map with every cell valid.
func NewMap2D(width, height int) *Map2D {
	m := &Map2D{
		Data:   make([]float64, width*height),
		Valid:  make([]bool, width*height),
		Width:  width,
		Height: height,
	}
	for i := range m.Valid {
		m.Valid[i] = true
	}
	return m
}

// At returns the value at a cell.
func (m *Map2D) At(row, col int) float64 {
	return m.Data[row*m.Width+col]
}

// SetAt stores a value at a cell, leaving its validity untouched.
func (m *Map2D) SetAt(row, col int, v float64) {
	m.Data[row*m.Width+col] = v
}

// ValidAt reports whether a cell holds a defined value.
func (m *Map2D) ValidAt(row, col int) bool {
	return m.Valid[row*m.Width+col]
}

// Invalidate marks a cell undefined and clears its value.
func (m *Map2D) Invalidate(row, col int) {
	i := row*m.Width + col
	m.Valid[i] = false
	m.Data[i] = 0
}

// CountInvalid returns the number of undefined cells.
func (m *Map2D) CountInvalid() int {
	n := 0
	for _, ok := range m.Valid {
		if !ok {
			n++
		}
	}
	return n
}

// Filled returns a copy of the data with invalid cells replaced by the
// sentinel, for serialization to formats without a missing-value notion.
func (m *Map2D) Filled(sentinel float64) []float64 {
	out := make([]float64, len(m.Data))
	for i, v := range m.Data {
		if m.Valid[i] {
			out[i] = v
		} else {
			out[i] = sentinel
		}
	}
	return out
}
