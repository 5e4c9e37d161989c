// Package smooth provides spatial Gaussian smoothing for spectral cubes.
// Each channel is filtered independently with a separable 2-D kernel, so
// the spectral axis is never blurred. Smoothing is used to raise the
// signal-to-noise ratio before significance decisions are made; the
// original cube stays untouched.
package smooth

import (
	"math"

	"specube/pkg/cube"
)

// Kernel returns a normalized 1-D Gaussian kernel for the given sigma in
// pixels. The kernel extends to a radius of ceil(3*sigma) and sums to one,
// so convolution preserves a constant field exactly. A non-positive sigma
// yields the identity kernel.
func Kernel(sigma float64) []float64 {
	if sigma <= 0 {
		return []float64{1}
	}
	radius := int(math.Ceil(3 * sigma))
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianPlane smooths one row-major plane with a separable Gaussian of
// the given sigma. Borders use mirror reflection. The input is never
// modified; a sigma of zero or less returns a plain copy.
func GaussianPlane(data []float64, width, height int, sigma float64) []float64 {
	out := make([]float64, len(data))
	if sigma <= 0 {
		copy(out, data)
		return out
	}

	k := Kernel(sigma)
	half := len(k) / 2
	tmp := make([]float64, len(data))

	// Horizontal pass.
	for r := 0; r < height; r++ {
		row := r * width
		for c := 0; c < width; c++ {
			var sum float64
			for i, kv := range k {
				cc := reflectIndex(c+i-half, width)
				sum += data[row+cc] * kv
			}
			tmp[row+c] = sum
		}
	}

	// Vertical pass.
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			var sum float64
			for i, kv := range k {
				rr := reflectIndex(r+i-half, height)
				sum += tmp[rr*width+c] * kv
			}
			out[r*width+c] = sum
		}
	}
	return out
}

// Gaussian returns a smoothed copy of the cube, filtering every channel
// spatially with the same sigma.
func Gaussian(c *cube.Cube, sigma float64) *cube.Cube {
	out := c.Clone()
	if sigma <= 0 {
		return out
	}
	for z := 0; z < c.Channels; z++ {
		copy(out.Channel(z), GaussianPlane(c.Channel(z), c.Width, c.Height, sigma))
	}
	return out
}

// reflectIndex maps an out-of-range index back inside [0, size) by mirror
// reflection about the edges, without repeating the edge sample.
func reflectIndex(idx, size int) int {
	if size == 1 {
		return 0
	}
	if idx < 0 {
		idx = -idx
	}
	for idx >= size {
		idx = 2*size - 2 - idx
		if idx < 0 {
			idx = -idx
		}
	}
	return idx
}
