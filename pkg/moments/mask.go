package moments

import "specube/pkg/cube"

// Mask flags cube samples that sit inside the noise band and must be
// excluded from moment sums. It shares the cube's channel-major layout.
type Mask struct {
	// Bits is true where a sample is considered noise.
	Bits []bool

	// Width, Height and Channels mirror the source cube dimensions.
	Width    int
	Height   int
	Channels int
}

// Significance builds a noise mask from the open interval
// (-threshold, threshold). Samples strictly inside the interval are
// flagged; samples at or beyond the boundary survive. With a zero
// threshold the interval is empty and nothing is flagged.
//
// The threshold is normally sigma times a significance factor. The mask
// may be built from a smoothed copy of the cube and then applied to the
// original, so faint extended emission lifted above the threshold by
// smoothing still contributes its unsmoothed values to the moments.
func Significance(c *cube.Cube, threshold float64) *Mask {
	m := &Mask{
		Bits:     make([]bool, len(c.Data)),
		Width:    c.Width,
		Height:   c.Height,
		Channels: c.Channels,
	}
	for i, v := range c.Data {
		m.Bits[i] = v > -threshold && v < threshold
	}
	return m
}

// At reports whether the sample at the given position is flagged.
func (m *Mask) At(channel, row, col int) bool {
	return m.Bits[channel*m.Width*m.Height+row*m.Width+col]
}

// CountFlagged returns the number of flagged samples.
func (m *Mask) CountFlagged() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// matches reports whether the mask shape equals the cube shape.
func (m *Mask) matches(c *cube.Cube) bool {
	return m.Width == c.Width && m.Height == c.Height && m.Channels == c.Channels
}
