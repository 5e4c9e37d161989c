package testutil

import (
	"math"
	"math/rand"
)

// GaussianProfile generates a deterministic emission-line profile: a
// Gaussian of the given amplitude centered on center channels with a
// dispersion of width channels.
func GaussianProfile(length int, center, width, amplitude float64) []float64 {
	out := make([]float64, length)
	for i := range out {
		d := (float64(i) - center) / width
		out[i] = amplitude * math.Exp(-0.5*d*d)
	}
	return out
}

// DeterministicNoise generates zero-mean uniform noise with a fixed seed
// for reproducibility. The returned values lie in [-amplitude, amplitude].
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DeterministicGaussianNoise generates zero-mean normal noise with a fixed
// seed and the given standard deviation.
func DeterministicGaussianNoise(seed int64, sigma float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = rng.NormFloat64() * sigma
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}
