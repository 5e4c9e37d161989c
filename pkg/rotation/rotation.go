// Package rotation extracts rotation curves from a moment-1 map by
// sampling two opposite rays through a chosen center and converting the
// interpolated channel values into rotation velocities.
package rotation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"specube/pkg/cube"
	"specube/pkg/moments"
)

// Params describes the extraction geometry.
type Params struct {
	// CenterCol and CenterRow locate the kinematic center in pixel
	// coordinates. Fractional positions are allowed.
	CenterCol float64
	CenterRow float64

	// PositionAngle orients the extraction line in degrees. At zero the
	// receding ray points along increasing row; positive angles rotate
	// it towards decreasing column.
	PositionAngle float64

	// Length is the number of unit-pixel steps along each ray. Each ray
	// yields Length+1 points including the shared center, so a zero
	// length degenerates to the center point alone.
	Length int

	// Inclination is the disk inclination in degrees. Values of zero or
	// below disable the sin(i) deprojection.
	Inclination float64
}

// Curve is the two-sided extraction result. All three slices have the
// same length and share their index: point i sits i pixels from the
// center along its ray.
type Curve struct {
	// Radius is the angular distance from the center in arcseconds.
	Radius []float64

	// Receding and Approaching hold the rotation velocity in km/s along
	// the two opposite rays, referenced to each ray's own center sample.
	Receding    []float64
	Approaching []float64
}

// Extract samples the moment-1 map along two opposite rays and derives
// rotation velocities. Channel values are interpolated bilinearly,
// converted to velocity, and referenced to the sampled value at the
// center of each ray, which removes the systemic velocity per ray. That
// per-ray reference is only as good as the center pixel itself; it is a
// simplification kept on purpose.
//
// Invalid map cells and positions outside the map sample as zero, the
// same fill the serialized velocity field uses.
func Extract(m *moments.Map2D, axis cube.SpectralAxis, pixelScale float64, p Params) (*Curve, error) {
	if p.Length < 0 {
		return nil, fmt.Errorf("ray length must be non-negative, got %d", p.Length)
	}

	pa := p.PositionAngle * math.Pi / 180
	sinPA, cosPA := math.Sin(pa), math.Cos(pa)

	n := p.Length + 1
	receding := make([]float64, n)
	approaching := make([]float64, n)
	c := &Curve{
		Radius:      make([]float64, n),
		Receding:    make([]float64, n),
		Approaching: make([]float64, n),
	}

	for i := 0; i < n; i++ {
		step := float64(i)
		receding[i] = axis.Velocity(sampleBilinear(m, p.CenterCol-step*sinPA, p.CenterRow+step*cosPA))
		approaching[i] = axis.Velocity(sampleBilinear(m, p.CenterCol+step*sinPA, p.CenterRow-step*cosPA))
		c.Radius[i] = step * pixelScale
	}

	for i := 0; i < n; i++ {
		c.Receding[i] = math.Abs(receding[i] - receding[0])
		c.Approaching[i] = math.Abs(approaching[i] - approaching[0])
	}

	if p.Inclination > 0 {
		s := math.Sin(p.Inclination * math.Pi / 180)
		for i := 0; i < n; i++ {
			c.Receding[i] /= s
			c.Approaching[i] /= s
		}
	}
	return c, nil
}

// FlatSummary describes the flat outer part of a rotation curve: the
// mean and spread of the velocities beyond the flattening radius on each
// side, and the difference of the two means as an asymmetry measure.
type FlatSummary struct {
	RecedingMean    float64
	RecedingStd     float64
	ApproachingMean float64
	ApproachingStd  float64
	Asymmetry       float64
}

// Flatten summarizes the curve from the given point index outward.
func Flatten(c *Curve, from int) (FlatSummary, error) {
	if from < 0 || from >= len(c.Radius) {
		return FlatSummary{}, fmt.Errorf("flattening index %d outside curve of %d points", from, len(c.Radius))
	}

	var s FlatSummary
	s.RecedingMean = stat.Mean(c.Receding[from:], nil)
	s.RecedingStd = stat.PopStdDev(c.Receding[from:], nil)
	s.ApproachingMean = stat.Mean(c.Approaching[from:], nil)
	s.ApproachingStd = stat.PopStdDev(c.Approaching[from:], nil)
	s.Asymmetry = s.RecedingMean - s.ApproachingMean
	return s, nil
}

// sampleBilinear interpolates the map at a fractional (col,row)
// position from its four surrounding grid values. Neighbors outside the
// map contribute zero.
func sampleBilinear(m *moments.Map2D, col, row float64) float64 {
	c0 := math.Floor(col)
	r0 := math.Floor(row)
	fc := col - c0
	fr := row - r0
	ic, ir := int(c0), int(r0)

	v00 := valueAt(m, ir, ic)
	v01 := valueAt(m, ir, ic+1)
	v10 := valueAt(m, ir+1, ic)
	v11 := valueAt(m, ir+1, ic+1)

	top := v00*(1-fc) + v01*fc
	bottom := v10*(1-fc) + v11*fc
	return top*(1-fr) + bottom*fr
}

// valueAt reads one grid value, treating everything outside the map as
// zero. Invalid cells already hold zero.
func valueAt(m *moments.Map2D, row, col int) float64 {
	if row < 0 || row >= m.Height || col < 0 || col >= m.Width {
		return 0
	}
	return m.At(row, col)
}
