// Public domain.

package irf

import (
	"math"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/maps"
)

// PSFMap is a point spread function tabulated per sky position and true
// energy, as a radial profile in sr-1.
type PSFMap struct {
	PSF      *maps.Map // axes [rad, energy_true]
	Exposure *maps.Map // axes [rad (one bin), energy_true]
}

// NewPSFMap checks axes and wraps psf and exposure.
func NewPSFMap(psf, exposure *maps.Map) (*PSFMap, error) {
	if err := checkAxes(psf, AxisRad); err != nil {
		return nil, err
	}
	if err := checkAxes(exposure, AxisRad); err != nil {
		return nil, err
	}
	return &PSFMap{psf, exposure}, nil
}

// DefaultRadAxis is linear 0 to 1 deg in 50 bins.
func DefaultRadAxis() *geom.Axis {
	return geom.LinearAxis(0, 1, 50, "deg", AxisRad)
}

// CreatePSFMap allocates a zero PSF map and zero exposure on the spatial
// grid of g.
func CreatePSFMap(g *geom.Geom, etrue, rad *geom.Axis) *PSFMap {
	pg, eg := irfGeoms(g, rad, etrue)
	return &PSFMap{maps.FromGeom(pg, "sr-1"), maps.FromGeom(eg, "m2 s")}
}

// GaussPSFMap fills a PSF map with a normalized 2D Gaussian of width
// sigmas[i] for true energy bin i, and a uniform exposure.
func GaussPSFMap(g *geom.Geom, etrue, rad *geom.Axis, sigmas []unit.Angle, exposure float64) *PSFMap {
	p := CreatePSFMap(g, etrue, rad)
	for i := range p.Exposure.Data {
		p.Exposure.Data[i] = exposure
	}
	np := p.PSF.Geom.NPixImage()
	for e := 0; e < etrue.Nbin(); e++ {
		s := sigmas[min(e, len(sigmas)-1)].Rad()
		for r := 0; r < rad.Nbin(); r++ {
			th := unit.AngleFromDeg(rad.Center(r)).Rad()
			v := math.Exp(-.5*th*th/(s*s)) / (2 * math.Pi * s * s)
			b := p.PSF.Band(e*rad.Nbin() + r)
			for i := 0; i < np; i++ {
				b[i] = v
			}
		}
	}
	return p
}

// Copy returns a deep copy.  Copy of nil is nil.
func (p *PSFMap) Copy() *PSFMap {
	if p == nil {
		return nil
	}
	return &PSFMap{p.PSF.Copy(), p.Exposure.Copy()}
}

func (p *PSFMap) radAxis() *geom.Axis { return p.PSF.Geom.Axes[0] }

// Profile returns the radial profile, in sr-1 per rad bin, at the response
// pixel nearest pos for true energy bin e.
func (p *PSFMap) Profile(pos geom.SkyCoord, e int) []float64 {
	g := p.PSF.Geom
	i, j := pixelAt(g, pos)
	nr := p.radAxis().Nbin()
	prof := make([]float64, nr)
	for r := range prof {
		prof[r] = p.PSF.At(e*nr+r, j, i)
	}
	return prof
}

// Containment returns the fraction of the PSF at pos, true energy bin e,
// within radius.
func (p *PSFMap) Containment(pos geom.SkyCoord, e int, radius unit.Angle) float64 {
	rad := p.radAxis()
	prof := p.Profile(pos, e)
	rmax := radius.Deg()
	var c float64
	for r, v := range prof {
		lo, hi := rad.Lo(r), rad.Hi(r)
		if lo >= rmax {
			break
		}
		hi = math.Min(hi, rmax)
		l, h := unit.AngleFromDeg(lo).Rad(), unit.AngleFromDeg(hi).Rad()
		c += v * math.Pi * (h*h - l*l)
	}
	return math.Min(c, 1)
}

// MaxRadius returns the outer edge of the last rad bin with a non-zero
// value anywhere in the map, or zero if the map is all zero.
func (p *PSFMap) MaxRadius() unit.Angle {
	rad := p.radAxis()
	nr := rad.Nbin()
	np := p.PSF.Geom.NPixImage()
	last := -1
	for k := 0; k < p.PSF.Geom.NBands(); k++ {
		r := k % nr
		if r <= last {
			continue
		}
		for _, v := range p.PSF.Data[k*np : (k+1)*np] {
			if v != 0 {
				last = r
				break
			}
		}
	}
	if last < 0 {
		return 0
	}
	return unit.AngleFromDeg(rad.Hi(last))
}

// maxKernelHalf caps kernel size in pixels from the center.
const maxKernelHalf = 50

// Kernel returns a normalized square convolution kernel of side 2h+1
// for pixels of size binsz at pos, true energy bin e.  An all zero PSF
// gives a delta kernel.
func (p *PSFMap) Kernel(pos geom.SkyCoord, e int, binsz unit.Angle) (k []float64, h int) {
	rmax := p.MaxRadius()
	if rmax == 0 {
		return []float64{1}, 0
	}
	h = min(int(math.Ceil(float64(rmax/binsz))), maxKernelHalf)
	rad := p.radAxis()
	prof := p.Profile(pos, e)
	n := 2*h + 1
	k = make([]float64, n*n)
	var sum float64
	for y := -h; y <= h; y++ {
		for x := -h; x <= h; x++ {
			r := binsz.Deg() * math.Hypot(float64(x), float64(y))
			if b := rad.Index(r); b >= 0 {
				v := prof[b]
				k[(y+h)*n+x+h] = v
				sum += v
			}
		}
	}
	if sum == 0 {
		return []float64{1}, 0
	}
	for i := range k {
		k[i] /= sum
	}
	return k, h
}

// Stack combines o into p, exposure weighted, on the overlap of their
// response grids.
func (p *PSFMap) Stack(o *PSFMap) error {
	return stackWeighted(p.PSF, p.Exposure, o.PSF, o.Exposure)
}

// Cutout returns the part of p covering g.
func (p *PSFMap) Cutout(g *geom.Geom) (*PSFMap, error) {
	m, w, err := cutoutPair(p.PSF, p.Exposure, g)
	if err != nil {
		return nil, err
	}
	return &PSFMap{m, w}, nil
}

// ToImage collapses true energy, exposure weighted.
func (p *PSFMap) ToImage() *PSFMap {
	m, w := collapseWeighted(p.PSF, p.Exposure)
	return &PSFMap{m, w}
}
