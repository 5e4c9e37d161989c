package cube

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astrogo/fitsio"
)

// writeTestFITS serializes an image HDU with the given BITPIX, axes and
// header cards into FITS bytes. The data argument is a pointer to a slice
// of the natural type for the BITPIX.
func writeTestFITS(t *testing.T, bitpix int, axes []int, data any, cards ...fitsio.Card) []byte {
	t.Helper()

	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		t.Fatalf("fitsio.Create failed: %v", err)
	}

	img := fitsio.NewImage(bitpix, axes)
	if len(cards) > 0 {
		if err := img.Header().Append(cards...); err != nil {
			t.Fatalf("appending cards failed: %v", err)
		}
	}
	if err := img.Write(data); err != nil {
		t.Fatalf("writing image data failed: %v", err)
	}
	if err := f.Write(img); err != nil {
		t.Fatalf("writing HDU failed: %v", err)
	}
	if err := img.Close(); err != nil {
		t.Fatalf("closing image failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing FITS stream failed: %v", err)
	}
	return buf.Bytes()
}

// spectralCards returns a complete calibration header for a cube whose
// spectral axis is axis 4: a 1.42 GHz line observed with 500 kHz channels
// and 2.5e-4 degree pixels.
func spectralCards() []fitsio.Card {
	return []fitsio.Card{
		{Name: "CRPIX4", Value: 1.0, Comment: "reference channel"},
		{Name: "CRVAL4", Value: 1.42e9, Comment: "frequency at reference [Hz]"},
		{Name: "CDELT4", Value: 5e5, Comment: "channel width [Hz]"},
		{Name: "RESTFRQ", Value: 1.42e9, Comment: "line rest frequency [Hz]"},
		{Name: "CDELT2", Value: -2.5e-4, Comment: "pixel scale [deg]"},
		{Name: "BUNIT", Value: "JY/BEAM", Comment: "intensity unit"},
	}
}

// cardsWithout filters one card out of a header set.
func cardsWithout(cards []fitsio.Card, name string) []fitsio.Card {
	out := make([]fitsio.Card, 0, len(cards))
	for _, c := range cards {
		if c.Name != name {
			out = append(out, c)
		}
	}
	return out
}

// TestReadCube verifies the full decode of a four-axis file: the
// degenerate third axis is dropped, samples land at the right positions,
// and the calibration metadata is picked up from the header.
func TestReadCube(t *testing.T) {
	// Axes in storage order: 4 columns, 3 rows, a degenerate axis, 5
	// channels. Sample values encode their own position.
	raw := make([]float32, 4*3*1*5)
	for z := 0; z < 5; z++ {
		for row := 0; row < 3; row++ {
			for col := 0; col < 4; col++ {
				raw[z*12+row*4+col] = float32(z*100 + row*10 + col)
			}
		}
	}
	blob := writeTestFITS(t, -32, []int{4, 3, 1, 5}, &raw, spectralCards()...)

	c, err := Read(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if c.Width != 4 || c.Height != 3 || c.Channels != 5 {
		t.Fatalf("dimensions = %dx%dx%d, want 4x3x5", c.Width, c.Height, c.Channels)
	}
	for z := 0; z < 5; z++ {
		for row := 0; row < 3; row++ {
			for col := 0; col < 4; col++ {
				if got, want := c.At(z, row, col), float64(z*100+row*10+col); got != want {
					t.Fatalf("At(%d,%d,%d) = %g, want %g", z, row, col, got, want)
				}
			}
		}
	}

	if c.Axis.RefChannel != 1 || c.Axis.RefValue != 1.42e9 || c.Axis.Increment != 5e5 || c.Axis.RestFrequency != 1.42e9 {
		t.Errorf("spectral axis = %+v", c.Axis)
	}
	if want := 2.5e-4 * 3600; math.Abs(c.PixelScale-want) > 1e-9 {
		t.Errorf("PixelScale = %g, want %g", c.PixelScale, want)
	}
	if c.Unit != "JY/BEAM" {
		t.Errorf("Unit = %q, want JY/BEAM", c.Unit)
	}
	if c.Bitpix != -32 {
		t.Errorf("Bitpix = %d, want -32", c.Bitpix)
	}
}

// TestReadAppliesScaling verifies that integer samples are converted
// through the BSCALE/BZERO linear scaling of the header.
func TestReadAppliesScaling(t *testing.T) {
	raw := make([]int16, 2*2*3)
	for i := range raw {
		raw[i] = int16(i)
	}
	cards := append(spectralCards(),
		fitsio.Card{Name: "BSCALE", Value: 0.5, Comment: "sample scaling"},
		fitsio.Card{Name: "BZERO", Value: 10.0, Comment: "sample offset"},
	)
	// Three real axes this time, with the spectral cards still on axis 4.
	blob := writeTestFITS(t, 16, []int{2, 2, 1, 3}, &raw, cards...)

	c, err := Read(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	for i := range raw {
		if got, want := c.Data[i], float64(i)*0.5+10; got != want {
			t.Errorf("sample %d = %g, want %g", i, got, want)
		}
	}
	if c.Bitpix != 16 {
		t.Errorf("Bitpix = %d, want 16", c.Bitpix)
	}
}

// TestReadRestFreqFallback verifies that the older RESTFREQ spelling is
// accepted when RESTFRQ is absent.
func TestReadRestFreqFallback(t *testing.T) {
	raw := make([]float32, 2*2*2)
	cards := append(cardsWithout(spectralCards(), "RESTFRQ"),
		fitsio.Card{Name: "RESTFREQ", Value: 1.42e9, Comment: "line rest frequency [Hz]"},
	)
	blob := writeTestFITS(t, -32, []int{2, 2, 1, 2}, &raw, cards...)

	c, err := Read(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if c.Axis.RestFrequency != 1.42e9 {
		t.Errorf("RestFrequency = %g, want 1.42e9", c.Axis.RestFrequency)
	}
}

// TestReadRejectsWrongAxisCount verifies that plain images and cubes with
// too many real axes are rejected.
func TestReadRejectsWrongAxisCount(t *testing.T) {
	raw := make([]float32, 4*3)
	blob := writeTestFITS(t, -32, []int{4, 3}, &raw, spectralCards()...)

	_, err := Read(bytes.NewReader(blob))
	if err == nil {
		t.Fatal("expected an error for a two-axis image")
	}
	if !strings.Contains(err.Error(), "non-degenerate") {
		t.Errorf("error %q does not mention the axis count", err)
	}
}

// TestReadMissingCalibration verifies that each required calibration card
// is individually fatal.
func TestReadMissingCalibration(t *testing.T) {
	missing := []string{"CRPIX4", "CRVAL4", "CDELT4", "RESTFRQ", "CDELT2"}

	for _, name := range missing {
		t.Run(name, func(t *testing.T) {
			raw := make([]float32, 2*2*2)
			blob := writeTestFITS(t, -32, []int{2, 2, 1, 2}, &raw, cardsWithout(spectralCards(), name)...)

			if _, err := Read(bytes.NewReader(blob)); err == nil {
				t.Errorf("expected an error with %s missing", name)
			}
		})
	}
}

// TestReadRejectsNonPositiveRestFrequency verifies the sanity check on
// the rest frequency value.
func TestReadRejectsNonPositiveRestFrequency(t *testing.T) {
	raw := make([]float32, 2*2*2)
	cards := append(cardsWithout(spectralCards(), "RESTFRQ"),
		fitsio.Card{Name: "RESTFRQ", Value: 0.0, Comment: "line rest frequency [Hz]"},
	)
	blob := writeTestFITS(t, -32, []int{2, 2, 1, 2}, &raw, cards...)

	if _, err := Read(bytes.NewReader(blob)); err == nil {
		t.Fatal("expected an error for a zero rest frequency")
	}
}

// TestLoadFromDisk verifies the file-path entry point, including the
// error path for a missing file.
func TestLoadFromDisk(t *testing.T) {
	raw := make([]float32, 3*3*4)
	blob := writeTestFITS(t, -32, []int{3, 3, 1, 4}, &raw, spectralCards()...)

	path := filepath.Join(t.TempDir(), "cube.fits")
	if err := os.WriteFile(path, blob, 0644); err != nil {
		t.Fatalf("writing test file failed: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Width != 3 || c.Height != 3 || c.Channels != 4 {
		t.Errorf("dimensions = %dx%dx%d, want 3x3x4", c.Width, c.Height, c.Channels)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.fits")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

// TestWriteMapRoundTrip verifies that a written map reads back with the
// same shape, samples and extra header cards.
func TestWriteMapRoundTrip(t *testing.T) {
	data := []float64{1, 2, 3, 4.5, -5, 6}

	var buf bytes.Buffer
	err := WriteMap(&buf, data, 3, 2, fitsio.Card{Name: "BUNIT", Value: "KM/S", Comment: "map unit"})
	if err != nil {
		t.Fatalf("WriteMap failed: %v", err)
	}

	f, err := fitsio.Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopening map failed: %v", err)
	}
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		t.Fatal("primary HDU is not an image")
	}
	hdr := img.Header()
	if hdr.Bitpix() != -64 {
		t.Errorf("Bitpix = %d, want -64", hdr.Bitpix())
	}
	axes := hdr.Axes()
	if len(axes) != 2 || axes[0] != 3 || axes[1] != 2 {
		t.Fatalf("axes = %v, want [3 2]", axes)
	}

	got := make([]float64, axes[0]*axes[1])
	if err := img.Read(&got); err != nil {
		t.Fatalf("reading map data failed: %v", err)
	}
	if len(got) != len(data) {
		t.Fatalf("read back %d samples, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("sample %d = %g, want %g", i, got[i], data[i])
		}
	}

	card := hdr.Get("BUNIT")
	if card == nil {
		t.Fatal("BUNIT card missing from written map")
	}
	if s, _ := card.Value.(string); strings.TrimSpace(s) != "KM/S" {
		t.Errorf("BUNIT = %v, want KM/S", card.Value)
	}
}

// TestWriteMapRejectsShapeMismatch verifies the length check on the map
// payload.
func TestWriteMapRejectsShapeMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMap(&buf, make([]float64, 5), 2, 2); err == nil {
		t.Fatal("expected an error for a payload shorter than the declared shape")
	}
}
