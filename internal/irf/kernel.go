// Public domain.

package irf

import (
	"fmt"
	"strings"

	"github.com/soniakeys/mapds/internal/geom"
)

// EDispKernel is a matrix of probabilities, Data[true bin][reco bin].
type EDispKernel struct {
	ETrue, EReco *geom.Axis
	Data         [][]float64
}

// NewEDispKernel allocates a zero kernel.
func NewEDispKernel(etrue, ereco *geom.Axis) *EDispKernel {
	d := make([][]float64, etrue.Nbin())
	for i := range d {
		d[i] = make([]float64, ereco.Nbin())
	}
	return &EDispKernel{ETrue: etrue, EReco: ereco, Data: d}
}

// DiagonalKernel assigns each true bin to the reco bin containing its
// center.  True bins centered outside the reco axis are dropped.
func DiagonalKernel(etrue, ereco *geom.Axis) *EDispKernel {
	k := NewEDispKernel(etrue, ereco)
	for e := range k.Data {
		if r := ereco.Index(etrue.Center(e)); r >= 0 {
			k.Data[e][r] = 1
		}
	}
	return k
}

// Apply maps a vector over true energy bins to reco energy bins.
func (k *EDispKernel) Apply(v []float64) []float64 {
	r := make([]float64, k.EReco.Nbin())
	for e, row := range k.Data {
		if v[e] == 0 {
			continue
		}
		for j, p := range row {
			r[j] += v[e] * p
		}
	}
	return r
}

// Copy returns a deep copy.  Copy of nil is nil.
func (k *EDispKernel) Copy() *EDispKernel {
	if k == nil {
		return nil
	}
	c := NewEDispKernel(k.ETrue.Copy(""), k.EReco.Copy(""))
	for i, row := range k.Data {
		copy(c.Data[i], row)
	}
	return c
}

func (k *EDispKernel) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "EDispKernel %d true x %d reco bins\n", len(k.Data), k.EReco.Nbin())
	for i, row := range k.Data {
		fmt.Fprintf(&b, "  %8.4g %v\n", k.ETrue.Center(i), row)
	}
	return b.String()
}

// EffectiveArea is an effective area per true energy bin.
type EffectiveArea struct {
	ETrue *geom.Axis
	Data  []float64
	Unit  string
}

// Copy returns a deep copy.  Copy of nil is nil.
func (a *EffectiveArea) Copy() *EffectiveArea {
	if a == nil {
		return nil
	}
	return &EffectiveArea{a.ETrue.Copy(""), append([]float64{}, a.Data...), a.Unit}
}
