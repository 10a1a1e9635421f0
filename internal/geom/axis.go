// Public domain.

// Package geom describes the coordinate spaces maps are bound to:
// non-spatial axes such as energy, a sky-projected pixel grid, and regions
// on the sky.
package geom

import (
	"errors"
	"fmt"
	"math"
)

// Interpolation schemes for axis bin centers.
const (
	InterpLog = "log"
	InterpLin = "lin"
)

// Axis is a binned non-spatial axis, defined by its bin edges.
type Axis struct {
	Name   string
	Edges  []float64
	Unit   string
	Interp string
}

// NewAxis validates and constructs an axis from bin edges.
func NewAxis(name string, edges []float64, unit, interp string) (*Axis, error) {
	if len(edges) < 2 {
		return nil, errors.New("axis needs at least two edges")
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("axis %s: edges not increasing at %d", name, i)
		}
	}
	switch interp {
	case "":
		interp = InterpLin
	case InterpLog:
		if edges[0] <= 0 {
			return nil, fmt.Errorf("axis %s: log axis with edge <= 0", name)
		}
	case InterpLin:
	default:
		return nil, fmt.Errorf("axis %s: unknown interp %q", name, interp)
	}
	return &Axis{
		Name:   name,
		Edges:  append([]float64{}, edges...),
		Unit:   unit,
		Interp: interp,
	}, nil
}

// EnergyAxisFromBounds makes a log spaced energy axis.  Name defaults
// to "energy".
func EnergyAxisFromBounds(emin, emax float64, nbin int, unit, name string) *Axis {
	if name == "" {
		name = "energy"
	}
	if nbin < 1 {
		nbin = 1
	}
	edges := make([]float64, nbin+1)
	l0, l1 := math.Log10(emin), math.Log10(emax)
	for i := range edges {
		edges[i] = math.Pow(10, l0+(l1-l0)*float64(i)/float64(nbin))
	}
	// pin the ends against rounding
	edges[0], edges[nbin] = emin, emax
	return &Axis{Name: name, Edges: edges, Unit: unit, Interp: InterpLog}
}

// LinearAxis makes nbin equal bins from lo to hi.
func LinearAxis(lo, hi float64, nbin int, unit, name string) *Axis {
	edges := make([]float64, nbin+1)
	for i := range edges {
		edges[i] = lo + (hi-lo)*float64(i)/float64(nbin)
	}
	return &Axis{Name: name, Edges: edges, Unit: unit, Interp: InterpLin}
}

func (a *Axis) Nbin() int { return len(a.Edges) - 1 }

// Lo, Hi return the edges of bin i.
func (a *Axis) Lo(i int) float64 { return a.Edges[i] }
func (a *Axis) Hi(i int) float64 { return a.Edges[i+1] }

// Center returns the center of bin i, geometric for log axes.
func (a *Axis) Center(i int) float64 {
	if a.Interp == InterpLog {
		return math.Sqrt(a.Edges[i] * a.Edges[i+1])
	}
	return .5 * (a.Edges[i] + a.Edges[i+1])
}

// Index returns the bin containing v, or -1 if v is outside the axis.
func (a *Axis) Index(v float64) int {
	if v < a.Edges[0] || v >= a.Edges[len(a.Edges)-1] {
		return -1
	}
	lo, hi := 0, len(a.Edges)-1
	for hi-lo > 1 {
		m := (lo + hi) / 2
		if v >= a.Edges[m] {
			lo = m
		} else {
			hi = m
		}
	}
	return lo
}

// Nearest returns the bin whose center is closest to v, clamped to the axis.
func (a *Axis) Nearest(v float64) int {
	if i := a.Index(v); i >= 0 {
		return i
	}
	if v < a.Edges[0] {
		return 0
	}
	return a.Nbin() - 1
}

// Copy returns a copy, renamed if name is not empty.
func (a *Axis) Copy(name string) *Axis {
	c := *a
	c.Edges = append([]float64{}, a.Edges...)
	if name != "" {
		c.Name = name
	}
	return &c
}

// Squash returns a single bin axis spanning the full range of a.
func (a *Axis) Squash() *Axis {
	return &Axis{
		Name:   a.Name,
		Edges:  []float64{a.Edges[0], a.Edges[len(a.Edges)-1]},
		Unit:   a.Unit,
		Interp: a.Interp,
	}
}

// Equal compares name, unit, interpolation and edges to a relative
// tolerance of 1e-9.
func (a *Axis) Equal(b *Axis) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.Unit != b.Unit || a.Interp != b.Interp ||
		len(a.Edges) != len(b.Edges) {
		return false
	}
	for i, e := range a.Edges {
		if math.Abs(e-b.Edges[i]) > 1e-9*math.Max(math.Abs(e), math.Abs(b.Edges[i])) {
			return false
		}
	}
	return true
}

func (a *Axis) String() string {
	return fmt.Sprintf("%s: %d bins %g..%g %s (%s)",
		a.Name, a.Nbin(), a.Edges[0], a.Edges[len(a.Edges)-1], a.Unit, a.Interp)
}
