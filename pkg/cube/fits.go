package cube

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"
)

// Load reads a spectral-line cube from a FITS file on disk.
func Load(path string) (*Cube, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cube file: %w", err)
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filepath.Base(path), err)
	}
	return c, nil
}

// Read parses a FITS stream whose primary HDU holds a spectral-line cube.
// Degenerate axes of length one, typically a polarization axis, are dropped;
// the remaining three axes are taken in storage order as column, row and
// channel. Integer samples are converted to float64 and the BSCALE/BZERO
// linear scaling of the header is applied, so the returned cube always holds
// physical values.
func Read(r io.Reader) (*Cube, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("opening FITS stream: %w", err)
	}
	defer f.Close()

	hdu := f.HDU(0)
	img, ok := hdu.(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("primary HDU is not an image")
	}
	hdr := img.Header()

	spatial, spectral, err := cubeAxes(hdr.Axes())
	if err != nil {
		return nil, err
	}
	axes := hdr.Axes()
	width := axes[spatial[0]-1]
	height := axes[spatial[1]-1]
	channels := axes[spectral-1]

	data, err := readSamples(img, width*height*channels)
	if err != nil {
		return nil, err
	}

	// BSCALE and BZERO map stored values to physical ones.
	scale, ok := floatKey(hdr, "BSCALE")
	if !ok {
		scale = 1
	}
	zero, _ := floatKey(hdr, "BZERO")
	if scale != 1 || zero != 0 {
		for i := range data {
			data[i] = data[i]*scale + zero
		}
	}

	axis, err := readSpectralAxis(hdr, spectral)
	if err != nil {
		return nil, err
	}

	// The angular pixel scale comes from the increment of the second
	// spatial axis, converted from degrees to arcseconds.
	cdelt, ok := floatKey(hdr, fmt.Sprintf("CDELT%d", spatial[1]))
	if !ok {
		return nil, fmt.Errorf("header card CDELT%d is missing", spatial[1])
	}

	unit := ""
	if s, ok := stringKey(hdr, "BUNIT"); ok {
		unit = strings.TrimSpace(s)
	}

	c := &Cube{
		Data:       data,
		Width:      width,
		Height:     height,
		Channels:   channels,
		Axis:       axis,
		PixelScale: math.Abs(cdelt) * 3600,
		Unit:       unit,
		Bitpix:     hdr.Bitpix(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// cubeAxes identifies the two spatial axes and the spectral axis among the
// NAXIS entries of a header, returning their one-based axis numbers.
func cubeAxes(axes []int) (spatial [2]int, spectral int, err error) {
	var keep []int
	for i, n := range axes {
		if n > 1 {
			keep = append(keep, i+1)
		}
	}
	if len(keep) != 3 {
		return spatial, 0, fmt.Errorf("expected 3 non-degenerate axes, found %d of %d", len(keep), len(axes))
	}
	spatial[0], spatial[1] = keep[0], keep[1]
	spectral = keep[2]
	return spatial, spectral, nil
}

// readSamples decodes the image payload into float64 samples. The slice
// type passed to the decoder must match the BITPIX of the file.
func readSamples(img fitsio.Image, n int) ([]float64, error) {
	data := make([]float64, n)
	bitpix := img.Header().Bitpix()

	switch bitpix {
	case 8:
		raw := make([]int8, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("reading image data: %w", err)
		}
		if len(raw) != n {
			return nil, fmt.Errorf("image holds %d samples, expected %d", len(raw), n)
		}
		for i, v := range raw {
			data[i] = float64(v)
		}
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("reading image data: %w", err)
		}
		if len(raw) != n {
			return nil, fmt.Errorf("image holds %d samples, expected %d", len(raw), n)
		}
		for i, v := range raw {
			data[i] = float64(v)
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("reading image data: %w", err)
		}
		if len(raw) != n {
			return nil, fmt.Errorf("image holds %d samples, expected %d", len(raw), n)
		}
		for i, v := range raw {
			data[i] = float64(v)
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("reading image data: %w", err)
		}
		if len(raw) != n {
			return nil, fmt.Errorf("image holds %d samples, expected %d", len(raw), n)
		}
		for i, v := range raw {
			data[i] = float64(v)
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("reading image data: %w", err)
		}
		if len(raw) != n {
			return nil, fmt.Errorf("image holds %d samples, expected %d", len(raw), n)
		}
		for i, v := range raw {
			data[i] = float64(v)
		}
	case -64:
		raw := make([]float64, n)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("reading image data: %w", err)
		}
		if len(raw) != n {
			return nil, fmt.Errorf("image holds %d samples, expected %d", len(raw), n)
		}
		copy(data, raw)
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
	return data, nil
}

// readSpectralAxis collects the frequency calibration cards of the spectral
// axis. Every card is required: velocity conversion is meaningless without
// a complete calibration.
func readSpectralAxis(hdr *fitsio.Header, axis int) (SpectralAxis, error) {
	var out SpectralAxis
	var ok bool

	if out.RefChannel, ok = floatKey(hdr, fmt.Sprintf("CRPIX%d", axis)); !ok {
		return out, fmt.Errorf("header card CRPIX%d is missing", axis)
	}
	if out.RefValue, ok = floatKey(hdr, fmt.Sprintf("CRVAL%d", axis)); !ok {
		return out, fmt.Errorf("header card CRVAL%d is missing", axis)
	}
	if out.Increment, ok = floatKey(hdr, fmt.Sprintf("CDELT%d", axis)); !ok {
		return out, fmt.Errorf("header card CDELT%d is missing", axis)
	}

	// The rest frequency appears under two historical spellings.
	if out.RestFrequency, ok = floatKey(hdr, "RESTFRQ"); !ok {
		if out.RestFrequency, ok = floatKey(hdr, "RESTFREQ"); !ok {
			return out, fmt.Errorf("header card RESTFRQ is missing")
		}
	}
	if out.RestFrequency <= 0 {
		return out, fmt.Errorf("rest frequency must be positive, got %g", out.RestFrequency)
	}
	return out, nil
}

// floatKey reads a numeric header card as float64.
func floatKey(hdr *fitsio.Header, name string) (float64, bool) {
	card := hdr.Get(name)
	if card == nil {
		return 0, false
	}
	switch v := card.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// stringKey reads a string header card.
func stringKey(hdr *fitsio.Header, name string) (string, bool) {
	card := hdr.Get(name)
	if card == nil {
		return "", false
	}
	s, ok := card.Value.(string)
	return s, ok
}

// WriteMap writes a two dimensional map as the primary HDU of a FITS
// stream, stored as 64-bit floats. The extra cards are appended to the
// minimal header describing the image shape.
func WriteMap(w io.Writer, data []float64, width, height int, cards ...fitsio.Card) error {
	if len(data) != width*height {
		return fmt.Errorf("map holds %d samples, dimensions %dx%d require %d", len(data), width, height, width*height)
	}

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("creating FITS stream: %w", err)
	}
	defer f.Close()

	img := fitsio.NewImage(-64, []int{width, height})
	defer img.Close()

	if len(cards) > 0 {
		if err := img.Header().Append(cards...); err != nil {
			return fmt.Errorf("appending header cards: %w", err)
		}
	}
	if err := img.Write(&data); err != nil {
		return fmt.Errorf("writing image data: %w", err)
	}
	if err := f.Write(img); err != nil {
		return fmt.Errorf("writing primary HDU: %w", err)
	}
	return nil
}

// SaveMap writes a two dimensional map to a FITS file on disk.
func SaveMap(path string, data []float64, width, height int, cards ...fitsio.Card) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating map file: %w", err)
	}
	defer f.Close()

	if err := WriteMap(f, data, width, height, cards...); err != nil {
		return fmt.Errorf("saving %s: %w", filepath.Base(path), err)
	}
	return nil
}
