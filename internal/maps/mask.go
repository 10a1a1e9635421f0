// Public domain.

package maps

import (
	"fmt"

	"github.com/soniakeys/mapds/internal/geom"
)

// Mask is a boolean array on a geometry.
type Mask struct {
	Geom *geom.Geom
	Data []bool
}

// MaskFromGeom allocates a mask with every element set to fill.
func MaskFromGeom(g *geom.Geom, fill bool) *Mask {
	m := &Mask{Geom: g, Data: make([]bool, g.Size())}
	if fill {
		for i := range m.Data {
			m.Data[i] = true
		}
	}
	return m
}

// NewMask wraps data, which must have the size of g.
func NewMask(g *geom.Geom, data []bool) (*Mask, error) {
	if len(data) != g.Size() {
		return nil, fmt.Errorf("mask size %d does not match geometry shape %v",
			len(data), g.DataShape())
	}
	return &Mask{Geom: g, Data: data}, nil
}

// Copy returns a deep copy.  Copy of nil is nil.
func (m *Mask) Copy() *Mask {
	if m == nil {
		return nil
	}
	return &Mask{Geom: m.Geom.Copy(), Data: append([]bool{}, m.Data...)}
}

func (m *Mask) At(k, j, i int) bool { return m.Data[m.Geom.Index(k, j, i)] }

// And returns the element-wise logical and.  Either operand may be nil,
// in which case the other is copied.
func (m *Mask) And(o *Mask) (*Mask, error) {
	return m.combine(o, func(a, b bool) bool { return a && b })
}

// Or returns the element-wise logical or, with nil treated as in And.
func (m *Mask) Or(o *Mask) (*Mask, error) {
	return m.combine(o, func(a, b bool) bool { return a || b })
}

func (m *Mask) combine(o *Mask, f func(a, b bool) bool) (*Mask, error) {
	switch {
	case m == nil:
		return o.Copy(), nil
	case o == nil:
		return m.Copy(), nil
	case len(m.Data) != len(o.Data):
		return nil, fmt.Errorf("%w: mask shapes %v and %v", geom.ErrGeomMismatch,
			m.Geom.DataShape(), o.Geom.DataShape())
	}
	r := m.Copy()
	for i, b := range o.Data {
		r.Data[i] = f(r.Data[i], b)
	}
	return r, nil
}

// ReduceAny collapses the non-spatial axes, true where any bin is true.
// The result keeps each axis as a single bin.
func (m *Mask) ReduceAny() *Mask {
	r := MaskFromGeom(m.Geom.Squash(), false)
	np := m.Geom.NPixImage()
	for i, b := range m.Data {
		if b {
			r.Data[i%np] = true
		}
	}
	return r
}

// Cutout copies the part of m covered by g, as Map.Cutout.
func (m *Mask) Cutout(g *geom.Geom) (*Mask, error) {
	cg := g.ToCube(m.Geom.Axes...)
	dx, dy, err := m.Geom.Offset(cg)
	if err != nil {
		return nil, err
	}
	if dx < 0 || dy < 0 || dx+cg.Nx > m.Geom.Nx || dy+cg.Ny > m.Geom.Ny {
		return nil, fmt.Errorf("cutout extends beyond mask")
	}
	c := MaskFromGeom(cg, false)
	overlap(m.Geom, cg, dx, dy, func(_, mi, ci int) {
		c.Data[ci] = m.Data[mi]
	})
	return c, nil
}

// Stack ors o into the overlapping elements of m.
func (m *Mask) Stack(o *Mask) error {
	dx, dy, err := m.Geom.Offset(o.Geom)
	if err != nil {
		return err
	}
	overlap(m.Geom, o.Geom, dx, dy, func(_, mi, oi int) {
		m.Data[mi] = m.Data[mi] || o.Data[oi]
	})
	return nil
}

// Count returns the number of true elements.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Data {
		if b {
			n++
		}
	}
	return n
}

// Float converts to a map of 0 and 1.
func (m *Mask) Float() *Map {
	r := FromGeom(m.Geom, "")
	for i, b := range m.Data {
		if b {
			r.Data[i] = 1
		}
	}
	return r
}

// Any reports whether any element is true.
func (m *Mask) Any() bool {
	for _, b := range m.Data {
		if b {
			return true
		}
	}
	return false
}
