// Package moments collapses a spectral cube along its channel axis into
// two dimensional maps: integrated intensity (moment 0) and the
// intensity-weighted mean channel (moment 1). A significance mask keeps
// noise samples out of the sums, and the weighted mean is validated per
// pixel instead of being left to drift to NaN or out of range.
package moments

import (
	"fmt"
	"math"

	"specube/pkg/cube"
)

// Compute derives the moment-0 and moment-1 maps of a cube. Samples
// flagged in the mask are excluded from both sums; a nil mask includes
// everything.
//
// The moment-1 value is the intensity-weighted mean channel index
// sum(z*v)/sum(v). A pixel is marked invalid when the weight sum is
// zero, the ratio is not finite, or the mean falls outside the physical
// channel range [0, channels-1]. Overlapping positive and negative
// residuals can push the ratio anywhere, so the range check is the only
// reliable guard.
func Compute(c *cube.Cube, mask *Mask) (mom0, mom1 *Map2D, err error) {
	if mask != nil && !mask.matches(c) {
		return nil, nil, fmt.Errorf("mask shape %dx%dx%d does not match cube %dx%dx%d",
			mask.Width, mask.Height, mask.Channels, c.Width, c.Height, c.Channels)
	}

	mom0 = NewMap2D(c.Width, c.Height)
	mom1 = NewMap2D(c.Width, c.Height)
	maxChannel := float64(c.Channels - 1)

	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			var sum, weighted float64
			for z := 0; z < c.Channels; z++ {
				if mask != nil && mask.At(z, row, col) {
					continue
				}
				v := c.At(z, row, col)
				sum += v
				weighted += float64(z) * v
			}
			mom0.SetAt(row, col, sum)

			if sum == 0 {
				mom1.Invalidate(row, col)
				continue
			}
			center := weighted / sum
			if math.IsNaN(center) || math.IsInf(center, 0) || center < 0 || center > maxChannel {
				mom1.Invalidate(row, col)
				continue
			}
			mom1.SetAt(row, col, center)
		}
	}
	return mom0, mom1, nil
}

// VelocityField converts a moment-1 map of channel indices into a map
// of line-of-sight velocities in km/s. Invalid cells stay invalid.
func VelocityField(m *Map2D, axis cube.SpectralAxis) *Map2D {
	out := NewMap2D(m.Width, m.Height)
	for i, v := range m.Data {
		if !m.Valid[i] {
			out.Valid[i] = false
			continue
		}
		out.Data[i] = axis.Velocity(v)
	}
	return out
}
