// Package cube provides the spectral-line data cube model used throughout
// the analysis pipeline: a dense three dimensional array of intensity
// samples over two spatial axes and one spectral axis, together with the
// calibration metadata needed to convert channel indices into physical
// velocities.
package cube

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Cube holds a spectral-line cube in memory. Samples are stored as a flat
// array in channel-major order so that a single spectral channel occupies a
// contiguous block:
//
//	index = channel*Width*Height + row*Width + col
//
// Rows and columns follow the storage order of the source file, with the
// column axis varying fastest.
type Cube struct {
	// Data holds the intensity samples in channel-major order.
	Data []float64

	// Width and Height are the spatial dimensions in pixels.
	Width  int
	Height int

	// Channels is the number of spectral channels.
	Channels int

	// Axis carries the spectral calibration read from the source header.
	Axis SpectralAxis

	// PixelScale is the angular size of one spatial pixel in arcseconds.
	PixelScale float64

	// Unit is the intensity unit reported by the source header, for
	// example "JY/BEAM". Empty when the header carried no unit.
	Unit string

	// Bitpix records the storage type of the source file, using the FITS
	// convention (8, 16, 32, 64 for integers, -32 and -64 for floats).
	Bitpix int
}

// New allocates a zero-filled cube with the given dimensions.
func New(width, height, channels int) (*Cube, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, fmt.Errorf("cube dimensions must be positive, got %dx%dx%d", width, height, channels)
	}
	return &Cube{
		Data:     make([]float64, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
	}, nil
}

// Validate checks that the data length matches the declared dimensions.
func (c *Cube) Validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.Channels <= 0 {
		return fmt.Errorf("cube dimensions must be positive, got %dx%dx%d", c.Width, c.Height, c.Channels)
	}
	if want := c.Width * c.Height * c.Channels; len(c.Data) != want {
		return fmt.Errorf("cube holds %d samples, dimensions %dx%dx%d require %d",
			len(c.Data), c.Width, c.Height, c.Channels, want)
	}
	return nil
}

// Index returns the flat index of the sample at the given position.
func (c *Cube) Index(channel, row, col int) int {
	return channel*c.Width*c.Height + row*c.Width + col
}

// At returns the sample at the given position.
func (c *Cube) At(channel, row, col int) float64 {
	return c.Data[c.Index(channel, row, col)]
}

// SetAt stores a sample at the given position.
func (c *Cube) SetAt(channel, row, col int, v float64) {
	c.Data[c.Index(channel, row, col)] = v
}

// Channel returns the samples of one spectral channel as a flat row-major
// plane. The returned slice aliases the cube data, so writes through it
// modify the cube.
func (c *Cube) Channel(channel int) []float64 {
	plane := c.Width * c.Height
	return c.Data[channel*plane : (channel+1)*plane]
}

// Clone returns a deep copy of the cube.
func (c *Cube) Clone() *Cube {
	out := *c
	out.Data = make([]float64, len(c.Data))
	copy(out.Data, c.Data)
	return &out
}

// Spectrum is the run of intensities through all channels at one spatial
// pixel, paired with the velocity of each channel. It is the natural unit
// for inspecting a single line of sight and serializes directly to YAML.
type Spectrum struct {
	// Col and Row locate the spatial pixel the spectrum was taken from.
	Col int `yaml:"col"`
	Row int `yaml:"row"`

	// VelocityUnit and IntensityUnit label the two axes.
	VelocityUnit  string `yaml:"velocityUnit"`
	IntensityUnit string `yaml:"intensityUnit,omitempty"`

	// Velocities holds the velocity of each channel in km/s.
	Velocities []float64 `yaml:"velocities"`

	// Intensities holds the cube sample of each channel at this pixel.
	Intensities []float64 `yaml:"intensities"`
}

// SpectrumAt extracts the spectrum at the given spatial pixel.
func (c *Cube) SpectrumAt(col, row int) (*Spectrum, error) {
	if col < 0 || col >= c.Width || row < 0 || row >= c.Height {
		return nil, fmt.Errorf("pixel (%d,%d) outside cube extent %dx%d", col, row, c.Width, c.Height)
	}
	s := &Spectrum{
		Col:           col,
		Row:           row,
		VelocityUnit:  "km/s",
		IntensityUnit: c.Unit,
		Velocities:    c.Axis.Velocities(c.Channels),
		Intensities:   make([]float64, c.Channels),
	}
	for z := 0; z < c.Channels; z++ {
		s.Intensities[z] = c.At(z, row, col)
	}
	return s, nil
}

// Save writes the spectrum to a YAML file.
func (s *Spectrum) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling spectrum: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing spectrum file: %w", err)
	}
	return nil
}
