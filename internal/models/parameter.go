// Public domain.

// Package models describes the sources of predicted counts: sky models
// made of a spatial and a spectral part, and background models that
// scale a background map.  Every model exposes its free parameters for
// fitting.
package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Parameter is a named model parameter.  Min and Max are NaN when
// unbounded.
type Parameter struct {
	Name   string  `yaml:"name"`
	Value  float64 `yaml:"value"`
	Unit   string  `yaml:"unit"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Frozen bool    `yaml:"frozen"`
	Error  float64 `yaml:"error"`
}

// NewParameter returns an unbounded free parameter.
func NewParameter(name string, value float64, unit string) *Parameter {
	return &Parameter{Name: name, Value: value, Unit: unit,
		Min: math.NaN(), Max: math.NaN()}
}

// InBounds reports whether v satisfies the parameter bounds.
func (p *Parameter) InBounds(v float64) bool {
	return !(v < p.Min) && !(v > p.Max)
}

func (p *Parameter) String() string {
	s := fmt.Sprintf("%-10s %12.5g", p.Name, p.Value)
	if p.Error != 0 {
		s += fmt.Sprintf(" +/- %.3g", p.Error)
	}
	if p.Unit != "" {
		s += " " + p.Unit
	}
	if p.Frozen {
		s += " (frozen)"
	}
	return s
}

// Parameters is an ordered list of parameters.
type Parameters []*Parameter

// Get returns the first parameter with the given name, or nil.
func (ps Parameters) Get(name string) *Parameter {
	for _, p := range ps {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Index returns the position of p in ps, or -1.
func (ps Parameters) Index(p *Parameter) int {
	for i, q := range ps {
		if q == p {
			return i
		}
	}
	return -1
}

// Free returns the parameters that are not frozen.
func (ps Parameters) Free() Parameters {
	var f Parameters
	for _, p := range ps {
		if !p.Frozen {
			f = append(f, p)
		}
	}
	return f
}

// Names lists parameter names in order.
func (ps Parameters) Names() []string {
	n := make([]string, len(ps))
	for i, p := range ps {
		n[i] = p.Name
	}
	return n
}

// Copy returns deep copies of the parameters.
func (ps Parameters) Copy() Parameters {
	c := make(Parameters, len(ps))
	for i, p := range ps {
		q := *p
		c[i] = &q
	}
	return c
}

// assign copies values, bounds and state from src by name.
func (ps Parameters) assign(src Parameters) {
	for _, s := range src {
		if p := ps.Get(s.Name); p != nil {
			*p = *s
		}
	}
}

func (ps Parameters) String() string {
	var b strings.Builder
	for _, p := range ps {
		b.WriteString("  ")
		b.WriteString(p.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// MakeName returns a short unique name.
func MakeName() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
