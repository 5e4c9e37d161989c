// Package noise implements the robust noise estimators used to separate
// faint line emission from the instrumental noise floor of a spectral cube.
//
// All estimators reduce a sample of intensities to a single non-negative
// sigma. The robust variants clip suspected signal out of the sample before
// measuring the spread, each with a different rule for where the clip
// boundaries sit.
package noise

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Method selects the noise estimation strategy.
type Method int

const (
	// MethodStdDev is the plain standard deviation of all samples, the
	// baseline every robust method is compared against.
	MethodStdDev Method = iota

	// MethodSigmaClip measures mean and sigma of the full sample once,
	// then re-estimates sigma from the samples strictly inside
	// (mean - ns*sigma, mean + ns*sigma).
	MethodSigmaClip

	// MethodZeroClip assumes the emission is almost entirely positive, so
	// the most negative sample m marks the depth of the noise floor.
	// Sigma is re-estimated from the samples strictly inside (m, -m).
	MethodZeroClip

	// MethodIQR rejects samples outside an interquartile fence before
	// re-estimating sigma.
	MethodIQR
)

// String returns a short name for the method, for logs and config files.
func (m Method) String() string {
	switch m {
	case MethodSigmaClip:
		return "sigma-clip"
	case MethodZeroClip:
		return "zero-clip"
	case MethodIQR:
		return "iqr"
	default:
		return "stddev"
	}
}

// Default clipping parameters.
const (
	// DefaultClipSigma is the half-width of the sigma-clip interval in
	// units of the pre-clip standard deviation.
	DefaultClipSigma = 4.0

	// DefaultFence is the interquartile fence factor: samples outside
	// (q1 - fence*IQR, q3 + fence*IQR) are rejected.
	DefaultFence = 1.5
)

// Estimator computes noise estimates with a fixed method and parameters.
// The zero value is a plain standard deviation estimator; use New to get
// the standard clipping parameters for the robust methods.
type Estimator struct {
	// Method is the estimation strategy.
	Method Method

	// ClipSigma is the interval half-width used by MethodSigmaClip.
	ClipSigma float64

	// Fence is the interquartile fence factor used by MethodIQR.
	Fence float64
}

// New returns an estimator for the given method with default parameters.
func New(method Method) Estimator {
	return Estimator{
		Method:    method,
		ClipSigma: DefaultClipSigma,
		Fence:     DefaultFence,
	}
}

// Estimate returns the noise sigma of the sample. The estimate is never
// negative. Degenerate inputs have defined results rather than errors: an
// empty sample yields 0, and when a clip interval rejects every sample the
// estimate falls back to the plain standard deviation of the full sample,
// so constant input yields 0 under every method.
//
// The input order is never modified; MethodIQR sorts an internal copy.
func (e Estimator) Estimate(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	switch e.Method {
	case MethodSigmaClip:
		m := stat.Mean(samples, nil)
		s := stat.PopStdDev(samples, nil)
		return clippedStdDev(samples, m-e.ClipSigma*s, m+e.ClipSigma*s)

	case MethodZeroClip:
		m := floats.Min(samples)
		return clippedStdDev(samples, m, -m)

	case MethodIQR:
		sorted := make([]float64, len(samples))
		copy(sorted, samples)
		sort.Float64s(sorted)

		// Positional quartiles, not interpolated.
		n := len(sorted)
		q1 := sorted[n/4]
		q3 := sorted[3*n/4]
		iqr := q3 - q1
		return clippedStdDev(samples, q1-e.Fence*iqr, q3+e.Fence*iqr)

	default:
		// MethodStdDev and any unknown method value.
		return stat.PopStdDev(samples, nil)
	}
}

// Estimate is a convenience wrapper using the default parameters of New.
func Estimate(samples []float64, method Method) float64 {
	return New(method).Estimate(samples)
}

// clippedStdDev returns the population standard deviation of the samples
// strictly inside the open interval (lo, hi). Boundary samples are
// excluded. When nothing survives the clip, the plain standard deviation
// of the full sample is returned instead.
func clippedStdDev(samples []float64, lo, hi float64) float64 {
	kept := make([]float64, 0, len(samples))
	for _, v := range samples {
		if v > lo && v < hi {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return stat.PopStdDev(samples, nil)
	}
	return stat.PopStdDev(kept, nil)
}
