package cube

// SpeedOfLight is the speed of light in km/s.
const SpeedOfLight = 299792.458

// SpectralAxis describes the linear frequency calibration of the spectral
// axis: a reference pixel, the frequency at that pixel, the frequency step
// per channel, and the rest frequency of the observed line.
type SpectralAxis struct {
	// RefChannel is the one-based reference pixel (CRPIX).
	RefChannel float64

	// RefValue is the frequency in Hz at the reference pixel (CRVAL).
	RefValue float64

	// Increment is the frequency step in Hz per channel (CDELT).
	Increment float64

	// RestFrequency is the rest frequency of the line in Hz.
	RestFrequency float64
}

// Frequency returns the observed frequency in Hz at a channel position.
// Channels are counted from zero in memory while the reference pixel uses
// the one-based FITS convention, hence the +1. Fractional channels are
// allowed so interpolated positions can be converted directly.
func (a SpectralAxis) Frequency(channel float64) float64 {
	return (channel+1-a.RefChannel)*a.Increment + a.RefValue
}

// Velocity returns the radio-convention Doppler velocity in km/s at a
// channel position:
//
//	v = (1 - f/f_rest) * c
//
// Positive velocities correspond to redshifted emission.
func (a SpectralAxis) Velocity(channel float64) float64 {
	return (1 - a.Frequency(channel)/a.RestFrequency) * SpeedOfLight
}

// Velocities returns the velocity of every channel from 0 to n-1.
func (a SpectralAxis) Velocities(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = a.Velocity(float64(i))
	}
	return out
}

// ChannelWidth returns the velocity step between consecutive channels in
// km/s, which is constant for a linear frequency axis. The sign is negative
// when velocity decreases with channel number.
func (a SpectralAxis) ChannelWidth() float64 {
	return -a.Increment / a.RestFrequency * SpeedOfLight
}
