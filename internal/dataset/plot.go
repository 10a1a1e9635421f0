// Public domain.

package dataset

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/soniakeys/mapds/internal/maps"
)

// imageGrid adapts the first band of a map to plotter.GridXYZ in pixel
// coordinates.  Non-finite values plot as zero.
type imageGrid struct{ m *maps.Map }

func (g imageGrid) Dims() (c, r int) { return g.m.Geom.Nx, g.m.Geom.Ny }
func (g imageGrid) X(c int) float64   { return float64(c) }
func (g imageGrid) Y(r int) float64   { return float64(r) }

func (g imageGrid) Z(c, r int) float64 {
	v := g.m.At(0, r, c)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// PlotResiduals writes residual plots of d by method.  The spatial plot
// at spatialPath is a heat map of residuals of counts and Npred summed
// over energy within the mask.  The spectral plot at spectralPath shows
// residuals of the per energy bin totals.  Either path may be empty to
// skip that plot.  The file type follows the path extension.
func (d *MapDataset) PlotResiduals(spatialPath, spectralPath, method string) error {
	if d.Counts == nil {
		return ErrNoCounts
	}
	np, err := d.Npred()
	if err != nil {
		return err
	}
	mask, err := d.Mask()
	if err != nil {
		return err
	}
	if spatialPath != "" {
		if err := plotSpatial(d.Counts, np, mask, method, spatialPath); err != nil {
			return err
		}
	}
	if spectralPath != "" {
		if err := plotSpectral(d.Counts, np, mask, method, spectralPath); err != nil {
			return err
		}
	}
	logger.Debug("plotted residuals", "dataset", d.name,
		"spatial", spatialPath, "spectral", spectralPath)
	return nil
}

func plotSpatial(counts, np *maps.Map, mask *maps.Mask, method, path string) error {
	c, err := counts.SumOverAxes(mask)
	if err != nil {
		return err
	}
	n, err := np.SumOverAxes(mask)
	if err != nil {
		return err
	}
	r, err := residuals(c, n, method)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = "Residuals (" + method + ")"
	p.X.Label.Text = "x pixel"
	p.Y.Label.Text = "y pixel"
	p.Add(plotter.NewHeatMap(imageGrid{r}, palette.Heat(32, 1)))
	return p.Save(5*vg.Inch, 5*vg.Inch, path)
}

func plotSpectral(counts, np *maps.Map, mask *maps.Mask, method, path string) error {
	c, n := counts.Copy(), np.Copy()
	if mask != nil {
		if err := c.MulMask(mask); err != nil {
			return err
		}
		if err := n.MulMask(mask); err != nil {
			return err
		}
	}
	cs, ns := c.SpatialSum(), n.SpatialSum()
	e, _, err := counts.Geom.AxisByName("energy")
	if err != nil {
		return err
	}
	pts := make(plotter.XYs, 0, len(cs))
	for k := range cs {
		v := cs[k] - ns[k]
		switch method {
		case ResidualDiff:
		case ResidualDiffModel:
			v /= ns[k]
		case ResidualDiffSqrt:
			v /= math.Sqrt(ns[k])
		default:
			return fmt.Errorf("unknown residual method %q", method)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: e.Center(k), Y: v})
	}
	p := plot.New()
	p.Title.Text = "Spectral residuals (" + method + ")"
	p.X.Label.Text = "Energy (" + e.Unit + ")"
	p.Y.Label.Text = "Residuals"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)
	zero, err := plotter.NewLine(plotter.XYs{{X: e.Lo(0), Y: 0}, {X: e.Hi(e.Nbin() - 1), Y: 0}})
	if err != nil {
		return err
	}
	zero.LineStyle.Color = color.Gray{Y: 128}
	zero.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(s, zero)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
