// Public domain.

// Package irf holds instrument response maps: the point spread function
// and energy dispersion, each with the exposure map that weights it when
// maps are stacked or collapsed, and the derived kernels used in
// predicting counts.
package irf

import (
	"fmt"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/maps"
)

// Axis names of response maps.
const (
	AxisEnergyTrue = "energy_true"
	AxisRad        = "rad"
	AxisMigra      = "migra"
)

// IRFBinsz is the pixel size of response maps made for an empty dataset.
var IRFBinsz = unit.AngleFromDeg(.2)

// checkAxes verifies m has axes [first, energy_true].
func checkAxes(m *maps.Map, first string) error {
	ax := m.Geom.Axes
	if len(ax) != 2 || ax[0].Name != first || ax[1].Name != AxisEnergyTrue {
		return fmt.Errorf("response map needs axes [%s %s]", first, AxisEnergyTrue)
	}
	return nil
}

// irfGeoms returns geometries for a response map and its exposure on the
// spatial grid of g.
func irfGeoms(g *geom.Geom, first, etrue *geom.Axis) (*geom.Geom, *geom.Geom) {
	img := g.ToImage()
	return img.ToCube(first, etrue), img.ToCube(first.Squash(), etrue)
}

// IRFGeom makes the coarse spatial grid covering g used for response
// maps of an empty dataset.
func IRFGeom(g *geom.Geom) *geom.Geom {
	return geom.Create(g.CenterSkyDir(), IRFBinsz, g.Width())
}

// stackWeighted replaces m, on its overlap with o, by the mean of m and o
// weighted by exposures w and ow, then adds ow into w.  The first axis of
// m is not resolved by the exposure maps.  Where both weights are zero
// m is left unchanged.
func stackWeighted(m, w, o, ow *maps.Map) error {
	dx, dy, err := m.Geom.Offset(o.Geom)
	if err != nil {
		return err
	}
	if wx, wy, err := w.Geom.Offset(ow.Geom); err != nil {
		return err
	} else if wx != dx || wy != dy {
		return fmt.Errorf("%w: exposure offset differs", geom.ErrGeomMismatch)
	}
	g, og := m.Geom, o.Geom
	nx := g.Axes[0].Nbin()
	i0, i1 := max(0, -dx), min(og.Nx, g.Nx-dx)
	j0, j1 := max(0, -dy), min(og.Ny, g.Ny-dy)
	for k := 0; k < og.NBands(); k++ {
		e := k / nx
		for j := j0; j < j1; j++ {
			for i := i0; i < i1; i++ {
				wa := w.At(e, j+dy, i+dx)
				wb := ow.At(e, j, i)
				if wa+wb == 0 {
					continue
				}
				mi := g.Index(k, j+dy, i+dx)
				m.Data[mi] = (m.Data[mi]*wa + o.At(k, j, i)*wb) / (wa + wb)
			}
		}
	}
	return w.Stack(ow, nil)
}

// collapseWeighted averages m over energy_true weighted by w, returning
// maps with a single true energy bin.
func collapseWeighted(m, w *maps.Map) (*maps.Map, *maps.Map) {
	g := m.Geom
	first, et := g.Axes[0], g.Axes[1]
	rm := maps.FromGeom(g.ToCube(first, et.Squash()), m.Unit)
	rw := maps.FromGeom(w.Geom.ToCube(w.Geom.Axes[0], et.Squash()), w.Unit)
	nx := first.Nbin()
	np := g.NPixImage()
	for e := 0; e < et.Nbin(); e++ {
		wb := w.Band(e)
		for p, v := range wb {
			rw.Data[p] += v
		}
		for x := 0; x < nx; x++ {
			mb := m.Band(e*nx + x)
			for p := 0; p < np; p++ {
				rm.Data[x*np+p] += mb[p] * wb[p]
			}
		}
	}
	for x := 0; x < nx; x++ {
		for p := 0; p < np; p++ {
			if rw.Data[p] > 0 {
				rm.Data[x*np+p] /= rw.Data[p]
			} else {
				// no exposure: plain mean
				var s float64
				for e := 0; e < et.Nbin(); e++ {
					s += m.Data[(e*nx+x)*np+p]
				}
				rm.Data[x*np+p] = s / float64(et.Nbin())
			}
		}
	}
	return rm, rw
}

// cutoutPair cuts m and w to the response grid covering g, padded by one
// response pixel.
func cutoutPair(m, w *maps.Map, g *geom.Geom) (*maps.Map, *maps.Map, error) {
	b := m.Geom.Binsz
	wd := g.Width()
	wd[0] += 2 * b
	wd[1] += 2 * b
	cg, err := m.Geom.Cutout(g.CenterSkyDir(), wd)
	if err != nil {
		return nil, nil, err
	}
	cm, err := m.Cutout(cg)
	if err != nil {
		return nil, nil, err
	}
	cw, err := w.Cutout(cg)
	if err != nil {
		return nil, nil, err
	}
	return cm, cw, nil
}

// pixelAt returns the response map pixel nearest c, clamped to the map.
func pixelAt(g *geom.Geom, c geom.SkyCoord) (i, j int) {
	x, y := g.CoordToPix(c)
	i = min(max(int(x+.5), 0), g.Nx-1)
	j = min(max(int(y+.5), 0), g.Ny-1)
	return
}
