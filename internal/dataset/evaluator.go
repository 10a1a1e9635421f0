// Public domain.

package dataset

import (
	"fmt"
	"math"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/irf"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
	"github.com/soniakeys/mapds/internal/quantity"
	"github.com/soniakeys/mapds/internal/stats"
)

// MapEvaluator predicts counts of one sky model on the geometry of a
// dataset: flux integrated over true energy bins and pixels, times
// exposure, smoothed by the PSF and redistributed by the energy
// dispersion.
type MapEvaluator struct {
	Model *models.SkyModel
	// Contributes is false when the model cannot put counts on the
	// dataset geometry.  Set by each evaluation.
	Contributes bool

	// kernels are valid for pos, psf and edisp
	pos     geom.SkyCoord
	psf     *irf.PSFMap
	edisp   *irf.EDispMap
	psfK    [][]float64
	psfH    []int
	edispK  *irf.EDispKernel
	haveKer bool
}

// contributes is a cheap overlap test followed by the pixel integral.
func (ev *MapEvaluator) contributes(g *geom.Geom) ([]float64, bool) {
	sp := ev.Model.Spatial
	if sp == nil || ev.Model.Spectral == nil {
		return nil, false
	}
	w := g.Width()
	reach := sp.EvaluationRadius() + g.Binsz +
		unit.Angle(math.Hypot(float64(w[0]), float64(w[1]))/2)
	if sp.Position().Separation(g.CenterSkyDir()) > reach {
		return nil, false
	}
	frac := models.Integrate(sp, g)
	return frac, floats.Sum(frac) > 0
}

func (ev *MapEvaluator) kernelsFor(d *MapDataset, g *geom.Geom, etrue, ereco *geom.Axis) error {
	pos := ev.Model.Spatial.Position()
	if ev.haveKer && pos == ev.pos && d.PSF == ev.psf && d.EDisp == ev.edisp {
		return nil
	}
	ev.psfK, ev.psfH = nil, nil
	if d.PSF != nil {
		pe := d.PSF.PSF.Geom.Axes[1]
		for e := 0; e < etrue.Nbin(); e++ {
			k, h := d.PSF.Kernel(pos, pe.Nearest(etrue.Center(e)), g.Binsz)
			ev.psfK = append(ev.psfK, k)
			ev.psfH = append(ev.psfH, h)
		}
	}
	re, err := convertAxis(ereco, etrue.Unit)
	if err != nil {
		return err
	}
	if d.EDisp != nil {
		ev.edispK = d.EDisp.Kernel(pos, re)
		if len(ev.edispK.Data) != etrue.Nbin() {
			return fmt.Errorf("energy dispersion has %d true energy bins, exposure %d",
				len(ev.edispK.Data), etrue.Nbin())
		}
	} else {
		ev.edispK = irf.DiagonalKernel(etrue, re)
	}
	ev.pos, ev.psf, ev.edisp, ev.haveKer = pos, d.PSF, d.EDisp, true
	return nil
}

// convertAxis returns a copy of a with edges in unit u.
func convertAxis(a *geom.Axis, u string) (*geom.Axis, error) {
	s, err := quantity.Scale(a.Unit, u)
	if err != nil {
		return nil, err
	}
	c := a.Copy("")
	for i := range c.Edges {
		c.Edges[i] *= s
	}
	c.Unit = u
	return c, nil
}

// compute returns predicted counts on g, or nil if the model does not
// contribute.
func (ev *MapEvaluator) compute(d *MapDataset, g *geom.Geom) (*maps.Map, error) {
	ev.Contributes = false
	exp := d.Exposure
	if exp == nil {
		return nil, nil
	}
	ereco, _, err := g.AxisByName("energy")
	if err != nil {
		return nil, err
	}
	if len(g.Axes) != 1 {
		return nil, fmt.Errorf("predicted counts need a single energy axis, geometry has %d axes",
			len(g.Axes))
	}
	eg := exp.Geom
	if eg.Nx != g.Nx || eg.Ny != g.Ny || !g.SameGrid(eg) || len(eg.Axes) != 1 {
		return nil, fmt.Errorf("%w: exposure %v, counts %v", geom.ErrGeomMismatch,
			eg.DataShape(), g.DataShape())
	}
	etrue := eg.Axes[0]
	es, err := quantity.Scale(exp.Unit, "cm2 s")
	if err != nil {
		return nil, fmt.Errorf("exposure: %w", err)
	}
	ts, err := quantity.Scale(etrue.Unit, "TeV")
	if err != nil {
		return nil, fmt.Errorf("true energy: %w", err)
	}
	if sp := ev.Model.Spatial; sp != nil {
		if err := geom.CheckFrame(sp.Frame()); err != nil {
			return nil, fmt.Errorf("model %s: %w", ev.Model.Name(), err)
		}
	}
	frac, ok := ev.contributes(g)
	if !ok {
		return nil, nil
	}
	ev.Contributes = true
	if err := ev.kernelsFor(d, g, etrue, ereco); err != nil {
		return nil, err
	}
	np := g.NPixImage()
	tc := make([][]float64, etrue.Nbin())
	for e := range tc {
		flux := ev.Model.Spectral.Integral(etrue.Lo(e)*ts, etrue.Hi(e)*ts) * es
		band := exp.Band(e)
		img := make([]float64, np)
		for p, f := range frac {
			if f != 0 {
				img[p] = flux * f * band[p]
			}
		}
		if ev.psfK != nil {
			img = convolve(img, g.Nx, g.Ny, ev.psfK[e], ev.psfH[e])
		}
		tc[e] = img
	}
	r := maps.FromGeom(g.Copy(), "")
	v := make([]float64, len(tc))
	for p := 0; p < np; p++ {
		for e := range tc {
			v[e] = tc[e][p]
		}
		for k, c := range ev.edispK.Apply(v) {
			r.Data[k*np+p] = c
		}
	}
	return r, nil
}

// evaluator returns the cached evaluator for sm, replacing one built for
// another model of the same name.
func (d *MapDataset) evaluator(sm *models.SkyModel) *MapEvaluator {
	if d.evaluators == nil {
		d.evaluators = map[string]*MapEvaluator{}
	}
	ev := d.evaluators[sm.Name()]
	if ev == nil || ev.Model != sm {
		ev = &MapEvaluator{Model: sm}
		d.evaluators[sm.Name()] = ev
	}
	return ev
}

// Evaluator returns the evaluator used for the named sky model by the
// last Npred, or nil.
func (d *MapDataset) Evaluator(name string) *MapEvaluator {
	return d.evaluators[name]
}

// Npred returns predicted counts: the sum of all sky models applying to
// the dataset plus the background model, clipped at zero.
func (d *MapDataset) Npred() (*maps.Map, error) {
	g, err := d.Geom()
	if err != nil {
		return nil, err
	}
	np := maps.FromGeom(g.Copy(), "")
	for _, sm := range d.Models.ForDataset(d.name).SkyModels() {
		m, err := d.evaluator(sm).compute(d, g)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", sm.Name(), err)
		}
		if m != nil {
			floats.Add(np.Data, m.Data)
		}
	}
	if d.BackgroundModel != nil && d.BackgroundModel.Map != nil {
		b := d.BackgroundModel.Evaluate()
		if len(b.Data) != len(np.Data) {
			return nil, fmt.Errorf("%w: background %v, counts %v", geom.ErrGeomMismatch,
				b.Geom.DataShape(), g.DataShape())
		}
		floats.Add(np.Data, b.Data)
	}
	np.Clip(0)
	return np, nil
}

// poisson draws Poisson deviates of mu, zero where mu is not positive.
func poisson(mu *maps.Map, rnd *xrand.Rand) *maps.Map {
	c := maps.FromGeom(mu.Geom.Copy(), "")
	for i, m := range mu.Data {
		if m > 0 {
			c.Data[i] = distuv.Poisson{Lambda: m, Src: rnd}.Rand()
		}
	}
	return c
}

func newRand(seed uint64) *xrand.Rand {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(seed)
	return rnd
}

// Fake replaces Counts by a Poisson realization of Npred.  The same seed
// gives the same counts.
func (d *MapDataset) Fake(seed uint64) error {
	np, err := d.Npred()
	if err != nil {
		return err
	}
	d.Counts = poisson(np, newRand(seed))
	logger.Debug("faked counts", "dataset", d.name, "seed", seed, "total", d.Counts.Sum())
	return nil
}

// StatArray returns the Cash statistic per bin, unmasked.
func (d *MapDataset) StatArray() ([]float64, error) {
	if d.Counts == nil {
		return nil, ErrNoCounts
	}
	np, err := d.Npred()
	if err != nil {
		return nil, err
	}
	s := make([]float64, len(np.Data))
	for i, mu := range np.Data {
		s[i] = stats.Cash(d.Counts.Data[i], mu)
	}
	return s, nil
}

// StatSum sums the Cash statistic over Mask.
func (d *MapDataset) StatSum() (float64, error) {
	if d.Counts == nil {
		return 0, ErrNoCounts
	}
	np, err := d.Npred()
	if err != nil {
		return 0, err
	}
	m, err := d.Mask()
	if err != nil {
		return 0, err
	}
	var md []bool
	if m != nil {
		md = m.Data
	}
	return stats.CashSum(d.Counts.Data, np.Data, md), nil
}

// Residual methods.
const (
	ResidualDiff      = "diff"
	ResidualDiffModel = "diff/model"
	ResidualDiffSqrt  = "diff/sqrt(model)"
)

// residuals computes counts minus model, then scales by method.
func residuals(counts, model *maps.Map, method string) (*maps.Map, error) {
	r := counts.Copy()
	r.Unit = ""
	floats.Sub(r.Data, model.Data)
	switch method {
	case ResidualDiff:
	case ResidualDiffModel:
		floats.Div(r.Data, model.Data)
	case ResidualDiffSqrt:
		for i, m := range model.Data {
			r.Data[i] /= math.Sqrt(m)
		}
	default:
		return nil, fmt.Errorf("unknown residual method %q", method)
	}
	return r, nil
}

// Residuals returns counts minus Npred by method, one of ResidualDiff,
// ResidualDiffModel or ResidualDiffSqrt.  Bins with zero prediction give
// infinite or NaN relative residuals.
func (d *MapDataset) Residuals(method string) (*maps.Map, error) {
	if d.Counts == nil {
		return nil, ErrNoCounts
	}
	np, err := d.Npred()
	if err != nil {
		return nil, err
	}
	return residuals(d.Counts, np, method)
}
