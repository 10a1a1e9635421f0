// Public domain.

package irf

import (
	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/maps"
)

// EDispMap is an energy dispersion tabulated per sky position and true
// energy, as the probability per bin of migra = E_reco / E_true.
type EDispMap struct {
	EDisp    *maps.Map // axes [migra, energy_true]
	Exposure *maps.Map // axes [migra (one bin), energy_true]
}

// NewEDispMap checks axes and wraps edisp and exposure.
func NewEDispMap(edisp, exposure *maps.Map) (*EDispMap, error) {
	if err := checkAxes(edisp, AxisMigra); err != nil {
		return nil, err
	}
	if err := checkAxes(exposure, AxisMigra); err != nil {
		return nil, err
	}
	return &EDispMap{edisp, exposure}, nil
}

// DefaultMigraAxis is linear 0 to 3 in 50 bins.
func DefaultMigraAxis() *geom.Axis {
	return geom.LinearAxis(0, 3, 50, "", AxisMigra)
}

// DiagonalEDispMap makes a perfect energy resolution map on the spatial
// grid of g: probability one in the migra bin containing 1.  Exposure is
// zero.
func DiagonalEDispMap(g *geom.Geom, etrue, migra *geom.Axis) *EDispMap {
	mg, eg := irfGeoms(g, migra, etrue)
	d := &EDispMap{maps.FromGeom(mg, ""), maps.FromGeom(eg, "m2 s")}
	one := migra.Nearest(1)
	nm := migra.Nbin()
	for e := 0; e < etrue.Nbin(); e++ {
		b := d.EDisp.Band(e*nm + one)
		for i := range b {
			b[i] = 1
		}
	}
	return d
}

// Copy returns a deep copy.  Copy of nil is nil.
func (d *EDispMap) Copy() *EDispMap {
	if d == nil {
		return nil
	}
	return &EDispMap{d.EDisp.Copy(), d.Exposure.Copy()}
}

// Kernel builds the true to reco energy kernel at the response pixel
// nearest pos.  Each migra bin spreads its probability over reco bins in
// proportion to overlap of [migra_lo, migra_hi] * E_true.
func (d *EDispMap) Kernel(pos geom.SkyCoord, ereco *geom.Axis) *EDispKernel {
	g := d.EDisp.Geom
	migra, etrue := g.Axes[0], g.Axes[1]
	i, j := pixelAt(g, pos)
	k := NewEDispKernel(etrue, ereco)
	nm := migra.Nbin()
	for e := 0; e < etrue.Nbin(); e++ {
		ec := etrue.Center(e)
		for m := 0; m < nm; m++ {
			p := d.EDisp.At(e*nm+m, j, i)
			if p == 0 {
				continue
			}
			lo, hi := migra.Lo(m)*ec, migra.Hi(m)*ec
			for r := 0; r < ereco.Nbin(); r++ {
				ov := min(hi, ereco.Hi(r)) - max(lo, ereco.Lo(r))
				if ov > 0 {
					k.Data[e][r] += p * ov / (hi - lo)
				}
			}
		}
	}
	return k
}

// Stack combines o into d, exposure weighted.
func (d *EDispMap) Stack(o *EDispMap) error {
	return stackWeighted(d.EDisp, d.Exposure, o.EDisp, o.Exposure)
}

// Cutout returns the part of d covering g.
func (d *EDispMap) Cutout(g *geom.Geom) (*EDispMap, error) {
	m, w, err := cutoutPair(d.EDisp, d.Exposure, g)
	if err != nil {
		return nil, err
	}
	return &EDispMap{m, w}, nil
}

// ToImage collapses true energy, exposure weighted.
func (d *EDispMap) ToImage() *EDispMap {
	m, w := collapseWeighted(d.EDisp, d.Exposure)
	return &EDispMap{m, w}
}
