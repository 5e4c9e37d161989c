// Package visualization renders the derived data products as images:
// grayscale views of channels and moment maps, and a rotation curve plot.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"specube/pkg/cube"
	"specube/pkg/moments"
	"specube/pkg/noise"
	"specube/pkg/rotation"
)

// Renderer writes image products into one output directory.
type Renderer struct {
	dir string
}

// NewRenderer creates a renderer, creating the output directory if needed.
func NewRenderer(dir string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Renderer{dir: dir}, nil
}

// RenderMap turns a map into a grayscale image. Values are stretched
// linearly between the minimum and maximum of the valid cells; invalid
// cells render black.
func RenderMap(m *moments.Map2D) image.Image {
	return renderPlane(m.Data, m.Valid, m.Width, m.Height)
}

// SaveMap renders a map and writes it as a PNG file.
func (r *Renderer) SaveMap(m *moments.Map2D, name string) error {
	return r.savePNG(RenderMap(m), name)
}

// RenderChannel turns one spectral channel into a grayscale image.
func RenderChannel(c *cube.Cube, channel int) (image.Image, error) {
	if channel < 0 || channel >= c.Channels {
		return nil, fmt.Errorf("channel %d outside cube with %d channels", channel, c.Channels)
	}
	return renderPlane(c.Channel(channel), nil, c.Width, c.Height), nil
}

// SaveChannel renders one channel and writes it as a PNG file.
func (r *Renderer) SaveChannel(c *cube.Cube, channel int, name string) error {
	img, err := RenderChannel(c, channel)
	if err != nil {
		return err
	}
	return r.savePNG(img, name)
}

// SaveChannelSequence renders every channel of the cube into numbered
// PNG files sharing a common prefix.
func (r *Renderer) SaveChannelSequence(c *cube.Cube, prefix string) error {
	for z := 0; z < c.Channels; z++ {
		img, err := RenderChannel(c, z)
		if err != nil {
			return err
		}
		if err := r.savePNG(img, fmt.Sprintf("%s_%03d.png", prefix, z)); err != nil {
			return err
		}
	}
	return nil
}

// SaveCurve plots the two sides of a rotation curve against radius and
// writes the figure as a PNG file.
func (r *Renderer) SaveCurve(curve *rotation.Curve, name string) error {
	p := plot.New()
	p.Title.Text = "Rotation curve"
	p.X.Label.Text = "Radius [arcsec]"
	p.Y.Label.Text = "Rotation velocity [km/s]"
	p.Add(plotter.NewGrid())

	receding, err := plotter.NewLine(curveXYs(curve.Radius, curve.Receding))
	if err != nil {
		return fmt.Errorf("building receding line: %w", err)
	}
	receding.Color = color.RGBA{R: 200, A: 255}

	approaching, err := plotter.NewLine(curveXYs(curve.Radius, curve.Approaching))
	if err != nil {
		return fmt.Errorf("building approaching line: %w", err)
	}
	approaching.Color = color.RGBA{B: 200, A: 255}

	p.Add(receding, approaching)
	p.Legend.Add("receding", receding)
	p.Legend.Add("approaching", approaching)
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(r.dir, name)); err != nil {
		return fmt.Errorf("saving curve plot: %w", err)
	}
	return nil
}

// SaveStats plots the per-channel peak and noise estimate against the
// channel number and writes the figure as a PNG file.
func (r *Renderer) SaveStats(s *noise.ChannelStats, name string) error {
	p := plot.New()
	p.Title.Text = "Channel statistics"
	p.X.Label.Text = "Channel"
	p.Y.Label.Text = "Intensity"
	p.Add(plotter.NewGrid())

	peak, err := plotter.NewLine(indexXYs(s.Peak))
	if err != nil {
		return fmt.Errorf("building peak line: %w", err)
	}
	peak.Color = color.RGBA{R: 200, A: 255}

	rms, err := plotter.NewLine(indexXYs(s.RMS))
	if err != nil {
		return fmt.Errorf("building rms line: %w", err)
	}
	rms.Color = color.RGBA{B: 200, A: 255}

	p.Add(peak, rms)
	p.Legend.Add("peak", peak)
	p.Legend.Add("rms", rms)
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(r.dir, name)); err != nil {
		return fmt.Errorf("saving stats plot: %w", err)
	}
	return nil
}

// curveXYs pairs two equal-length series into plot points.
func curveXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// indexXYs pairs a series with its indices as plot points.
func indexXYs(ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(ys))
	for i := range ys {
		pts[i].X = float64(i)
		pts[i].Y = ys[i]
	}
	return pts
}

// renderPlane maps a row-major plane onto 16-bit grayscale. The stretch
// runs from the minimum to the maximum of the valid cells; a flat plane
// renders black. A nil validity slice treats every cell as valid.
func renderPlane(data []float64, valid []bool, width, height int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, width, height))

	lo, hi, any := planeRange(data, valid)
	span := hi - lo

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			i := row*width + col
			if (valid != nil && !valid[i]) || !any || span == 0 {
				img.SetGray16(col, row, color.Gray16{Y: 0})
				continue
			}
			v := (data[i] - lo) / span
			img.SetGray16(col, row, color.Gray16{Y: uint16(v * 65535)})
		}
	}
	return img
}

// planeRange finds the minimum and maximum over the valid cells. The
// third result is false when no cell is valid.
func planeRange(data []float64, valid []bool) (lo, hi float64, any bool) {
	for i, v := range data {
		if valid != nil && !valid[i] {
			continue
		}
		if !any || v < lo {
			lo = v
		}
		if !any || v > hi {
			hi = v
		}
		any = true
	}
	return lo, hi, any
}

// savePNG writes an image into the output directory.
func (r *Renderer) savePNG(img image.Image, name string) error {
	path := filepath.Join(r.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return nil
}
