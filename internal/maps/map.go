// Public domain.

// Package maps holds data arrays bound to a geom.Geom: float valued maps
// carrying a physical unit, and boolean masks.
//
// Data is flat, in C order of Geom.DataShape, so element (k, j, i) for
// band k and pixel (i, j) is at Geom.Index(k, j, i).
package maps

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/quantity"
)

// Map is a float valued array on a geometry.
type Map struct {
	Geom *geom.Geom
	Data []float64
	Unit string
}

// FromGeom allocates a zero filled map.
func FromGeom(g *geom.Geom, unit string) *Map {
	return &Map{Geom: g, Data: make([]float64, g.Size()), Unit: unit}
}

// FromGeomData wraps data, which must have the size of g.  Data is not
// copied.
func FromGeomData(g *geom.Geom, data []float64, unit string) (*Map, error) {
	if len(data) != g.Size() {
		return nil, fmt.Errorf("data size %d does not match geometry shape %v",
			len(data), g.DataShape())
	}
	return &Map{Geom: g, Data: data, Unit: unit}, nil
}

// Filled returns a map with every element set to v.
func Filled(g *geom.Geom, v float64, unit string) *Map {
	m := FromGeom(g, unit)
	for i := range m.Data {
		m.Data[i] = v
	}
	return m
}

// Copy returns a deep copy.  Copy of nil is nil.
func (m *Map) Copy() *Map {
	if m == nil {
		return nil
	}
	return &Map{
		Geom: m.Geom.Copy(),
		Data: append([]float64{}, m.Data...),
		Unit: m.Unit,
	}
}

func (m *Map) At(k, j, i int) float64     { return m.Data[m.Geom.Index(k, j, i)] }
func (m *Map) Set(k, j, i int, v float64) { m.Data[m.Geom.Index(k, j, i)] = v }

// Band returns the image slice of band k, sharing storage with m.
func (m *Map) Band(k int) []float64 {
	np := m.Geom.NPixImage()
	return m.Data[k*np : (k+1)*np]
}

func (m *Map) checkShape(o *Map) error {
	if len(m.Data) != len(o.Data) {
		return fmt.Errorf("%w: shapes %v and %v", geom.ErrGeomMismatch,
			m.Geom.DataShape(), o.Geom.DataShape())
	}
	return nil
}

// Add adds o element-wise, converting o to the unit of m.
func (m *Map) Add(o *Map) error {
	if err := m.checkShape(o); err != nil {
		return err
	}
	s, err := quantity.Scale(o.Unit, m.Unit)
	if err != nil {
		return err
	}
	floats.AddScaled(m.Data, s, o.Data)
	return nil
}

// Sub subtracts o element-wise, converting o to the unit of m.
func (m *Map) Sub(o *Map) error {
	if err := m.checkShape(o); err != nil {
		return err
	}
	s, err := quantity.Scale(o.Unit, m.Unit)
	if err != nil {
		return err
	}
	floats.AddScaled(m.Data, -s, o.Data)
	return nil
}

// Mul multiplies element-wise.  The unit of the result is the product unit.
func (m *Map) Mul(o *Map) error {
	if err := m.checkShape(o); err != nil {
		return err
	}
	floats.Mul(m.Data, o.Data)
	m.Unit = quantity.Multiply(m.Unit, o.Unit)
	return nil
}

// Div divides element-wise.  Division by zero follows IEEE rules.
func (m *Map) Div(o *Map) error {
	if err := m.checkShape(o); err != nil {
		return err
	}
	floats.Div(m.Data, o.Data)
	m.Unit = quantity.Multiply(m.Unit, quantity.Invert(o.Unit))
	return nil
}

// Scale multiplies all elements by f and returns m.
func (m *Map) Scale(f float64) *Map {
	floats.Scale(f, m.Data)
	return m
}

// ConvertUnit rescales data to unit u.
func (m *Map) ConvertUnit(u string) error {
	s, err := quantity.Scale(m.Unit, u)
	if err != nil {
		return err
	}
	m.Scale(s)
	m.Unit = u
	return nil
}

// MulMask zeroes elements where mask is false.  A nil mask leaves m
// unchanged.
func (m *Map) MulMask(mask *Mask) error {
	if mask == nil {
		return nil
	}
	if len(mask.Data) != len(m.Data) {
		return fmt.Errorf("%w: mask shape %v, map shape %v", geom.ErrGeomMismatch,
			mask.Geom.DataShape(), m.Geom.DataShape())
	}
	for i, b := range mask.Data {
		if !b {
			m.Data[i] = 0
		}
	}
	return nil
}

func (m *Map) Sum() float64 { return floats.Sum(m.Data) }

// Clip raises every element below min to min.  NaN becomes min.
func (m *Map) Clip(min float64) {
	for i, v := range m.Data {
		if !(v >= min) {
			m.Data[i] = min
		}
	}
}

// SumOverAxes sums over all non-spatial bins where mask is true, keeping
// each non-spatial axis as a single bin spanning its full range.  Nil mask
// sums everything.
func (m *Map) SumOverAxes(mask *Mask) (*Map, error) {
	if mask != nil && len(mask.Data) != len(m.Data) {
		return nil, fmt.Errorf("%w: mask shape %v, map shape %v", geom.ErrGeomMismatch,
			mask.Geom.DataShape(), m.Geom.DataShape())
	}
	r := FromGeom(m.Geom.Squash(), m.Unit)
	np := m.Geom.NPixImage()
	for k := 0; k < m.Geom.NBands(); k++ {
		off := k * np
		for p := 0; p < np; p++ {
			if mask == nil || mask.Data[off+p] {
				r.Data[p] += m.Data[off+p]
			}
		}
	}
	return r, nil
}

// SpatialSum returns per band sums over all pixels.
func (m *Map) SpatialSum() []float64 {
	s := make([]float64, m.Geom.NBands())
	for k := range s {
		s[k] = floats.Sum(m.Band(k))
	}
	return s
}

// Cutout copies the part of m covered by g, which must be on the grid of
// m, such as a geometry from m.Geom.Cutout.  Non-spatial axes of m are
// kept.
func (m *Map) Cutout(g *geom.Geom) (*Map, error) {
	cg := g.ToCube(m.Geom.Axes...)
	dx, dy, err := m.Geom.Offset(cg)
	if err != nil {
		return nil, err
	}
	if dx < 0 || dy < 0 || dx+cg.Nx > m.Geom.Nx || dy+cg.Ny > m.Geom.Ny {
		return nil, fmt.Errorf("cutout extends beyond map")
	}
	c := FromGeom(cg, m.Unit)
	for k := 0; k < cg.NBands(); k++ {
		for j := 0; j < cg.Ny; j++ {
			copy(c.Data[cg.Index(k, j, 0):cg.Index(k, j, cg.Nx)],
				m.Data[m.Geom.Index(k, j+dy, dx):])
		}
	}
	return c, nil
}

// Stack adds o onto the overlapping pixels of m, where weights is true.
// Nil weights adds all of o.  Grids and non-spatial axes must match.
func (m *Map) Stack(o *Map, weights *Mask) error {
	dx, dy, err := m.Geom.Offset(o.Geom)
	if err != nil {
		return err
	}
	if weights != nil && len(weights.Data) != len(o.Data) {
		return fmt.Errorf("%w: weights shape %v, map shape %v", geom.ErrGeomMismatch,
			weights.Geom.DataShape(), o.Geom.DataShape())
	}
	s, err := quantity.Scale(o.Unit, m.Unit)
	if err != nil {
		return err
	}
	g := m.Geom
	overlap(g, o.Geom, dx, dy, func(k, mi, oi int) {
		if weights == nil || weights.Data[oi] {
			m.Data[mi] += s * o.Data[oi]
		}
	})
	return nil
}

// overlap calls f with the flat indexes in g and og of each element they
// share, og offset by (dx, dy) pixels within g.
func overlap(g, og *geom.Geom, dx, dy int, f func(k, gi, oi int)) {
	i0, i1 := max(0, -dx), min(og.Nx, g.Nx-dx)
	j0, j1 := max(0, -dy), min(og.Ny, g.Ny-dy)
	for k := 0; k < og.NBands(); k++ {
		for j := j0; j < j1; j++ {
			for i := i0; i < i1; i++ {
				f(k, g.Index(k, j+dy, i+dx), og.Index(k, j, i))
			}
		}
	}
}

// Reducer selects how GetSpectrum combines pixels.
type Reducer int

const (
	Sum Reducer = iota
	Mean
)

// GetSpectrum reduces the pixels whose centers fall in region to a single
// pixel map on the region geometry.  A region containing no pixel
// centers gives zeros for Sum and NaN for Mean.
func (m *Map) GetSpectrum(region geom.Region, red Reducer) *Map {
	g := m.Geom
	rg := g.RegionGeom(region)
	r := FromGeom(rg, m.Unit)
	sel := g.RegionMask(region)[:g.NPixImage()]
	n := 0
	for _, b := range sel {
		if b {
			n++
		}
	}
	for k := 0; k < g.NBands(); k++ {
		band := m.Band(k)
		var s float64
		for p, b := range sel {
			if b {
				s += band[p]
			}
		}
		if red == Mean {
			s /= float64(n)
		}
		r.Data[k] = s
	}
	return r
}

// ValueAt returns the values of all bands at the pixel nearest to c, and
// false if c is outside the map.
func (m *Map) ValueAt(c geom.SkyCoord) ([]float64, bool) {
	g := m.Geom
	x, y := g.CoordToPix(c)
	i, j := int(math.Round(x)), int(math.Round(y))
	if i < 0 || i >= g.Nx || j < 0 || j >= g.Ny {
		return nil, false
	}
	v := make([]float64, g.NBands())
	for k := range v {
		v[k] = m.At(k, j, i)
	}
	return v, true
}

func (m *Map) String() string {
	return fmt.Sprintf("Map %v unit %q sum %g", m.Geom.DataShape(), m.Unit, m.Sum())
}
