package noise

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"specube/pkg/cube"
)

// ChannelStats holds per-channel diagnostics of a cube: the brightest
// sample and the robust noise estimate of every spectral channel.
type ChannelStats struct {
	// Peak is the maximum sample of each channel, with no masking applied.
	Peak []float64

	// RMS is the noise estimate of each channel.
	RMS []float64
}

// Channels computes the per-channel statistics of a cube using the given
// estimator for the noise column.
func Channels(c *cube.Cube, e Estimator) *ChannelStats {
	s := &ChannelStats{
		Peak: make([]float64, c.Channels),
		RMS:  make([]float64, c.Channels),
	}
	for z := 0; z < c.Channels; z++ {
		ch := c.Channel(z)
		s.Peak[z] = floats.Max(ch)
		s.RMS[z] = e.Estimate(ch)
	}
	return s
}

// Reference estimates the noise of a cube from its first firstN channels,
// which are assumed to be free of line emission. The channels are pooled
// into one sample so the estimate is steadier than any single channel's.
// When firstN exceeds the channel count the whole cube is used.
func Reference(c *cube.Cube, firstN int, e Estimator) (float64, error) {
	if firstN <= 0 {
		return 0, fmt.Errorf("reference channel count must be positive, got %d", firstN)
	}
	if firstN > c.Channels {
		firstN = c.Channels
	}
	return e.Estimate(c.Data[:firstN*c.Width*c.Height]), nil
}

// WriteCSV writes the statistics as a CSV table with one row per channel.
func (s *ChannelStats) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"channel", "peak", "rms"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i := range s.Peak {
		rec := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(s.Peak[i], 'g', -1, 64),
			strconv.FormatFloat(s.RMS[i], 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes the statistics to a CSV file.
func (s *ChannelStats) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating stats file: %w", err)
	}
	defer f.Close()

	if err := s.WriteCSV(f); err != nil {
		return fmt.Errorf("saving channel stats: %w", err)
	}
	return nil
}
