// Package analysis drives the full cube analysis pipeline: load, channel
// statistics, noise estimation, smoothing, significance masking, moment
// maps, rotation curve, and the derived products on disk.
package analysis

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/astrogo/fitsio"
	"github.com/rs/zerolog"

	"specube/pkg/cube"
	"specube/pkg/moments"
	"specube/pkg/noise"
	"specube/pkg/rotation"
	"specube/pkg/smooth"
	"specube/pkg/visualization"
)

// Params holds the analysis configuration.
type Params struct {
	// InputFile is the path of the FITS cube to analyze.
	InputFile string

	// OutputDir is the directory receiving every derived product.
	OutputDir string

	// NoiseMethod selects the estimator used for channel RMS values and
	// the reference noise level.
	NoiseMethod noise.Method

	// NSigma scales the reference noise into the significance threshold.
	NSigma float64

	// ReferenceChannels is the number of leading channels assumed free
	// of signal when measuring the reference noise.
	ReferenceChannels int

	// SmoothSigma is the Gaussian width in pixels applied per channel
	// before detection. Zero or below skips the smoothing.
	SmoothSigma float64

	// CenterCol and CenterRow locate the kinematic center in pixels.
	// Negative values select the map center.
	CenterCol float64
	CenterRow float64

	// PositionAngle orients the rotation curve extraction in degrees.
	PositionAngle float64

	// CurveLength is the number of sampling steps along each ray.
	CurveLength int

	// Inclination is the disk inclination in degrees; zero or below
	// disables the deprojection of the rotation curve.
	Inclination float64

	// FlattenFrom is the curve point from which the flat-part summary
	// statistics are computed.
	FlattenFrom int

	// SpectrumCol and SpectrumRow locate the pixel whose spectrum is
	// saved. Negative values select the central pixel.
	SpectrumCol int
	SpectrumRow int

	// SaveChannelImages enables rendering every channel of the cube as
	// a numbered PNG, which is useful for visual inspection but slow on
	// large cubes.
	SaveChannelImages bool
}

// Results holds the scalar measurements of one analysis run.
type Results struct {
	// Sigma is the reference noise level measured from the leading
	// signal-free channels.
	Sigma float64

	// Threshold is the significance cut applied to the smoothed cube,
	// Sigma scaled by NSigma.
	Threshold float64

	// MaskedFraction is the fraction of cube samples flagged as noise.
	MaskedFraction float64

	// InvalidFraction is the fraction of moment-1 pixels without a
	// defined velocity.
	InvalidFraction float64

	// Flat summarizes the outer rotation curve on both sides.
	Flat rotation.FlatSummary
}

// Analyzer runs the analysis pipeline over one cube.
type Analyzer struct {
	params *Params
	log    zerolog.Logger

	cube     *cube.Cube
	smoothed *cube.Cube
	stats    *noise.ChannelStats
	mom0     *moments.Map2D
	mom1     *moments.Map2D
	velocity *moments.Map2D
	curve    *rotation.Curve
	results  Results
}

// New creates an analyzer with the provided parameters.
func New(params *Params, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		params: params,
		log:    log,
	}
}

// Run executes the complete pipeline and writes the derived products
// into the output directory: the velocity field and moment-0 map as
// FITS, channel statistics as CSV, one spectrum as YAML, and image
// renderings of the maps and the rotation curve.
func (a *Analyzer) Run() error {
	if a.params.InputFile == "" {
		return fmt.Errorf("no input file given")
	}
	if a.params.NSigma < 0 {
		return fmt.Errorf("significance threshold must be non-negative, got %g", a.params.NSigma)
	}
	if err := os.MkdirAll(a.params.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := a.loadCube(); err != nil {
		return fmt.Errorf("failed to load cube: %w", err)
	}
	if err := a.measureNoise(); err != nil {
		return fmt.Errorf("failed to measure noise: %w", err)
	}
	a.smoothCube()
	if err := a.computeMoments(); err != nil {
		return fmt.Errorf("failed to compute moment maps: %w", err)
	}
	if err := a.extractCurve(); err != nil {
		return fmt.Errorf("failed to extract rotation curve: %w", err)
	}
	if err := a.writeProducts(); err != nil {
		return fmt.Errorf("failed to write products: %w", err)
	}

	a.log.Info().Str("dir", a.params.OutputDir).Msg("analysis complete")
	return nil
}

// loadCube reads the input file into memory.
func (a *Analyzer) loadCube() error {
	c, err := cube.Load(a.params.InputFile)
	if err != nil {
		return err
	}
	a.cube = c

	a.log.Info().
		Int("width", c.Width).
		Int("height", c.Height).
		Int("channels", c.Channels).
		Str("unit", c.Unit).
		Float64("pixelScale", c.PixelScale).
		Msg("cube loaded")
	return nil
}

// measureNoise computes the per-channel statistics and the reference
// noise level from the leading channels.
func (a *Analyzer) measureNoise() error {
	est := noise.New(a.params.NoiseMethod)

	a.stats = noise.Channels(a.cube, est)

	sigma, err := noise.Reference(a.cube, a.params.ReferenceChannels, est)
	if err != nil {
		return err
	}
	a.results.Sigma = sigma
	a.results.Threshold = sigma * a.params.NSigma

	a.log.Info().
		Str("method", a.params.NoiseMethod.String()).
		Float64("sigma", sigma).
		Float64("threshold", a.results.Threshold).
		Int("referenceChannels", a.params.ReferenceChannels).
		Msg("noise measured")
	return nil
}

// smoothCube prepares the detection copy of the cube. Detection runs on
// smoothed data while the moments keep the original samples.
func (a *Analyzer) smoothCube() {
	a.smoothed = smooth.Gaussian(a.cube, a.params.SmoothSigma)

	a.log.Info().
		Float64("sigma", a.params.SmoothSigma).
		Msg("detection copy smoothed")
}

// computeMoments masks the cube and collapses it into the moment maps
// and the velocity field. The mask is derived from the smoothed copy and
// applied to the original samples.
func (a *Analyzer) computeMoments() error {
	mask := moments.Significance(a.smoothed, a.results.Threshold)
	a.results.MaskedFraction = float64(mask.CountFlagged()) / float64(len(mask.Bits))

	mom0, mom1, err := moments.Compute(a.cube, mask)
	if err != nil {
		return err
	}
	a.mom0 = mom0
	a.mom1 = mom1
	a.velocity = moments.VelocityField(mom1, a.cube.Axis)
	a.results.InvalidFraction = float64(mom1.CountInvalid()) / float64(len(mom1.Data))

	a.log.Info().
		Float64("maskedFraction", a.results.MaskedFraction).
		Float64("invalidFraction", a.results.InvalidFraction).
		Msg("moment maps computed")
	return nil
}

// extractCurve samples the rotation curve through the chosen center and
// summarizes its flat part.
func (a *Analyzer) extractCurve() error {
	col, row := a.curveCenter()
	p := rotation.Params{
		CenterCol:     col,
		CenterRow:     row,
		PositionAngle: a.params.PositionAngle,
		Length:        a.params.CurveLength,
		Inclination:   a.params.Inclination,
	}

	curve, err := rotation.Extract(a.mom1, a.cube.Axis, a.cube.PixelScale, p)
	if err != nil {
		return err
	}
	a.curve = curve

	flat, err := rotation.Flatten(curve, a.params.FlattenFrom)
	if err != nil {
		return err
	}
	a.results.Flat = flat

	a.log.Info().
		Float64("centerCol", col).
		Float64("centerRow", row).
		Float64("positionAngle", p.PositionAngle).
		Float64("recedingMean", flat.RecedingMean).
		Float64("approachingMean", flat.ApproachingMean).
		Float64("asymmetry", flat.Asymmetry).
		Msg("rotation curve extracted")
	return nil
}

// writeProducts serializes every derived product into the output
// directory.
func (a *Analyzer) writeProducts() error {
	out := a.params.OutputDir

	if err := a.stats.Save(filepath.Join(out, "channel_stats.csv")); err != nil {
		return err
	}

	// The formats cannot carry missing values, so invalid cells are
	// filled with an explicit zero sentinel.
	if err := cube.SaveMap(filepath.Join(out, "velocity_field.fits"),
		a.velocity.Filled(0), a.velocity.Width, a.velocity.Height,
		unitCard("KM/S")); err != nil {
		return err
	}
	if err := cube.SaveMap(filepath.Join(out, "moment0.fits"),
		a.mom0.Filled(0), a.mom0.Width, a.mom0.Height,
		unitCard(a.cube.Unit)); err != nil {
		return err
	}

	col, row := a.spectrumPixel()
	spectrum, err := a.cube.SpectrumAt(col, row)
	if err != nil {
		return err
	}
	if err := spectrum.Save(filepath.Join(out, "spectrum.yaml")); err != nil {
		return err
	}

	renderer, err := visualization.NewRenderer(out)
	if err != nil {
		return err
	}
	if err := renderer.SaveMap(a.mom0, "moment0.png"); err != nil {
		return err
	}
	if err := renderer.SaveMap(a.velocity, "velocity_field.png"); err != nil {
		return err
	}
	if err := renderer.SaveCurve(a.curve, "rotation_curve.png"); err != nil {
		return err
	}
	if err := renderer.SaveStats(a.stats, "channel_stats.png"); err != nil {
		return err
	}
	if a.params.SaveChannelImages {
		if err := renderer.SaveChannelSequence(a.cube, "channel"); err != nil {
			return err
		}
	}

	a.log.Info().
		Str("spectrumPixel", fmt.Sprintf("(%d,%d)", col, row)).
		Msg("products written")
	return nil
}

// Cube returns the loaded cube.
func (a *Analyzer) Cube() *cube.Cube {
	return a.cube
}

// Smoothed returns the detection copy of the cube.
func (a *Analyzer) Smoothed() *cube.Cube {
	return a.smoothed
}

// Stats returns the per-channel statistics.
func (a *Analyzer) Stats() *noise.ChannelStats {
	return a.stats
}

// Moment0 returns the integrated intensity map.
func (a *Analyzer) Moment0() *moments.Map2D {
	return a.mom0
}

// Moment1 returns the intensity-weighted mean channel map.
func (a *Analyzer) Moment1() *moments.Map2D {
	return a.mom1
}

// VelocityField returns the moment-1 map converted to km/s.
func (a *Analyzer) VelocityField() *moments.Map2D {
	return a.velocity
}

// Curve returns the extracted rotation curve.
func (a *Analyzer) Curve() *rotation.Curve {
	return a.curve
}

// Results returns the scalar measurements of the run.
func (a *Analyzer) Results() Results {
	return a.results
}

// curveCenter resolves the kinematic center, defaulting to the map
// center when a coordinate is negative.
func (a *Analyzer) curveCenter() (col, row float64) {
	col = a.params.CenterCol
	if col < 0 {
		col = float64(a.cube.Width) / 2
	}
	row = a.params.CenterRow
	if row < 0 {
		row = float64(a.cube.Height) / 2
	}
	return col, row
}

// spectrumPixel resolves the spectrum position, defaulting to the
// central pixel when a coordinate is negative.
func (a *Analyzer) spectrumPixel() (col, row int) {
	col = a.params.SpectrumCol
	if col < 0 {
		col = a.cube.Width / 2
	}
	row = a.params.SpectrumRow
	if row < 0 {
		row = a.cube.Height / 2
	}
	return col, row
}

// unitCard builds the BUNIT header card for a written map.
func unitCard(unit string) fitsio.Card {
	return fitsio.Card{Name: "BUNIT", Value: unit, Comment: "map unit"}
}
