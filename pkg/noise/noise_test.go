package noise

import (
	"math"
	"testing"

	"specube/internal/testutil"
)

// TestEstimateEmptySample verifies that an empty sample yields 0 for every
// method instead of raising or returning NaN.
func TestEstimateEmptySample(t *testing.T) {
	for _, m := range []Method{MethodStdDev, MethodSigmaClip, MethodZeroClip, MethodIQR, Method(42)} {
		if got := Estimate(nil, m); got != 0 {
			t.Errorf("method %v: Estimate(nil) = %v, want 0", m, got)
		}
	}
}

// TestEstimateConstantSample verifies that constant input yields exactly 0
// under every method, including through the empty-clip fallback paths.
func TestEstimateConstantSample(t *testing.T) {
	samples := testutil.DC(3.7, 100)
	for _, m := range []Method{MethodStdDev, MethodSigmaClip, MethodZeroClip, MethodIQR, Method(42)} {
		if got := Estimate(samples, m); got != 0 {
			t.Errorf("method %v: Estimate(constant) = %v, want 0", m, got)
		}
	}
}

// TestSigmaClipMatchesPlainOnCleanData checks that with no outliers to
// clip, the sigma-clipped estimate agrees with the plain standard
// deviation within a small relative tolerance.
func TestSigmaClipMatchesPlainOnCleanData(t *testing.T) {
	samples := testutil.DeterministicGaussianNoise(11, 1.0, 20000)

	plain := Estimate(samples, MethodStdDev)
	clipped := Estimate(samples, MethodSigmaClip)

	if plain <= 0 {
		t.Fatalf("plain estimate is %v, want > 0", plain)
	}
	rel := math.Abs(clipped-plain) / plain
	if rel > 0.01 {
		t.Errorf("sigma-clip %v vs plain %v: relative difference %v > 1%%", clipped, plain, rel)
	}
}

// TestSigmaClipRejectsOutliers mixes unit noise with a population of very
// bright samples and checks that the clipped estimate recovers the noise
// sigma while the plain estimate is dominated by the outliers.
func TestSigmaClipRejectsOutliers(t *testing.T) {
	samples := testutil.DeterministicGaussianNoise(5, 1.0, 5000)
	for i := 0; i < 50; i++ {
		samples[i*100] = 1000
	}

	plain := Estimate(samples, MethodStdDev)
	if plain < 50 {
		t.Fatalf("plain estimate %v not dominated by outliers", plain)
	}

	clipped := Estimate(samples, MethodSigmaClip)
	if clipped < 0.85 || clipped > 1.15 {
		t.Errorf("sigma-clip estimate %v, want near 1", clipped)
	}

	iqr := Estimate(samples, MethodIQR)
	if iqr < 0.85 || iqr > 1.15 {
		t.Errorf("IQR estimate %v, want near 1", iqr)
	}
}

// TestZeroClipIgnoresBrightSignal checks that the zero-symmetric clip
// recovers the noise sigma when the sample contains strong positive
// emission and no strongly negative samples.
func TestZeroClipIgnoresBrightSignal(t *testing.T) {
	samples := testutil.DeterministicGaussianNoise(9, 1.0, 10000)
	for i := 0; i < 200; i++ {
		samples[i*50] = 50 + float64(i%10)
	}

	got := Estimate(samples, MethodZeroClip)
	if got < 0.85 || got > 1.15 {
		t.Errorf("zero-clip estimate %v, want near 1", got)
	}

	plain := Estimate(samples, MethodStdDev)
	if plain < 5 {
		t.Fatalf("plain estimate %v not dominated by signal", plain)
	}
}

// TestZeroClipBoundaryExclusive pins the open-interval convention: samples
// exactly at the clip boundaries are excluded.
func TestZeroClipBoundaryExclusive(t *testing.T) {
	samples := []float64{-2, -1, 0, 1, 2}

	// The clip interval is (-2, 2), so only -1, 0, 1 survive.
	got := Estimate(samples, MethodZeroClip)
	want := math.Sqrt(2.0 / 3.0)
	testutil.RequireNearlyEqual(t, got, want, 1e-12)
}

// TestZeroClipAllPositiveFallsBack checks the fallback when the clip
// interval is empty: an all-positive sample has an inverted interval
// (min, -min), so the plain standard deviation is returned.
func TestZeroClipAllPositiveFallsBack(t *testing.T) {
	samples := []float64{1, 2, 3}

	got := Estimate(samples, MethodZeroClip)
	want := math.Sqrt(2.0 / 3.0)
	testutil.RequireNearlyEqual(t, got, want, 1e-12)
}

// TestIQRExcludesOutlier verifies the positional quartile indices and the
// fence arithmetic on a handcrafted sample.
func TestIQRExcludesOutlier(t *testing.T) {
	// Sorted: [0 1 2 3 4 5 6 7 100], so q1 = sorted[2] = 2 and
	// q3 = sorted[6] = 6. The fence (-4, 12) rejects only the outlier.
	samples := []float64{5, 2, 7, 0, 100, 3, 6, 1, 4}

	got := Estimate(samples, MethodIQR)
	want := math.Sqrt(5.25)
	testutil.RequireNearlyEqual(t, got, want, 1e-12)
}

// TestIQRPreservesInputOrder guards the non-destructive contract: the
// quartile sort must operate on a copy.
func TestIQRPreservesInputOrder(t *testing.T) {
	samples := []float64{5, 2, 7, 0, 100, 3, 6, 1, 4}
	before := make([]float64, len(samples))
	copy(before, samples)

	Estimate(samples, MethodIQR)

	for i := range samples {
		if samples[i] != before[i] {
			t.Fatalf("input reordered at index %d: got %v, want %v", i, samples[i], before[i])
		}
	}
}

// TestUnknownMethodFallsBack checks that unrecognized method values behave
// like the plain standard deviation.
func TestUnknownMethodFallsBack(t *testing.T) {
	samples := testutil.DeterministicNoise(3, 2.0, 500)

	want := Estimate(samples, MethodStdDev)
	got := Estimate(samples, Method(99))
	if got != want {
		t.Errorf("unknown method = %v, want %v", got, want)
	}
}

// TestEstimateSingleSample checks the n=1 edge: a single sample has zero
// spread under every method.
func TestEstimateSingleSample(t *testing.T) {
	for _, m := range []Method{MethodStdDev, MethodSigmaClip, MethodZeroClip, MethodIQR} {
		if got := Estimate([]float64{4.2}, m); got != 0 {
			t.Errorf("method %v: single sample estimate = %v, want 0", m, got)
		}
	}
}

// TestMethodString covers the log-friendly names.
func TestMethodString(t *testing.T) {
	cases := []struct {
		method Method
		want   string
	}{
		{MethodStdDev, "stddev"},
		{MethodSigmaClip, "sigma-clip"},
		{MethodZeroClip, "zero-clip"},
		{MethodIQR, "iqr"},
		{Method(42), "stddev"},
	}
	for _, tc := range cases {
		if got := tc.method.String(); got != tc.want {
			t.Errorf("Method(%d).String() = %q, want %q", tc.method, got, tc.want)
		}
	}
}
