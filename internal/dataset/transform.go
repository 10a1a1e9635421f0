// Public domain.

package dataset

import (
	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/irf"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
)

// ToImage sums over energy.  Counts and background are summed within the
// safe mask, exposure over all true energies.  Masks become true where
// any energy bin was true.  Energy axes are kept with a single bin.  The
// result has a new name and no sky models.
func (d *MapDataset) ToImage() (*MapDataset, error) {
	r := &MapDataset{name: models.MakeName(), GTI: d.GTI.Copy()}
	if err := d.toImage(r); err != nil {
		return nil, err
	}
	if d.BackgroundModel != nil && d.BackgroundModel.Map != nil {
		b, err := d.BackgroundModel.Evaluate().SumOverAxes(d.MaskSafe)
		if err != nil {
			return nil, err
		}
		r.BackgroundModel = models.NewBackgroundModel(b, d.BackgroundModel.Name(), r.name)
	}
	return r, nil
}

// toImage fills r with the parts of the image common to both dataset
// types.
func (d *MapDataset) toImage(r *MapDataset) (err error) {
	if d.Counts != nil {
		if r.Counts, err = d.Counts.SumOverAxes(d.MaskSafe); err != nil {
			return err
		}
	}
	if d.Exposure != nil {
		if r.Exposure, err = d.Exposure.SumOverAxes(nil); err != nil {
			return err
		}
	}
	if d.MaskSafe != nil {
		r.MaskSafe = d.MaskSafe.ReduceAny()
	}
	if d.MaskFit != nil {
		r.MaskFit = d.MaskFit.ReduceAny()
	}
	if d.PSF != nil {
		r.PSF = d.PSF.ToImage()
	}
	if d.EDisp != nil {
		r.EDisp = d.EDisp.ToImage()
	}
	return nil
}

// Cutout returns the part of d within a rectangle of the given width
// (lon, lat) centered on position, trimmed to the dataset geometry.  The
// result has a new name; models are copied with their names.
func (d *MapDataset) Cutout(position geom.SkyCoord, width [2]unit.Angle) (*MapDataset, error) {
	g, err := d.Geom()
	if err != nil {
		return nil, err
	}
	cg, err := g.Cutout(position, width)
	if err != nil {
		return nil, err
	}
	name := models.MakeName()
	r := &MapDataset{
		name:   name,
		GTI:    d.GTI.Copy(),
		Models: d.modelsFor(name),
	}
	if err := d.cutout(r, cg); err != nil {
		return nil, err
	}
	if b := d.backgroundFor(r.name); b != nil && b.Map != nil {
		if b.Map, err = b.Map.Cutout(cg); err != nil {
			return nil, err
		}
		r.BackgroundModel = b
	}
	return r, nil
}

func (d *MapDataset) cutout(r *MapDataset, cg *geom.Geom) (err error) {
	if d.Counts != nil {
		if r.Counts, err = d.Counts.Cutout(cg); err != nil {
			return err
		}
	}
	if d.Exposure != nil {
		if r.Exposure, err = d.Exposure.Cutout(cg); err != nil {
			return err
		}
	}
	if d.MaskSafe != nil {
		if r.MaskSafe, err = d.MaskSafe.Cutout(cg); err != nil {
			return err
		}
	}
	if d.MaskFit != nil {
		if r.MaskFit, err = d.MaskFit.Cutout(cg); err != nil {
			return err
		}
	}
	if d.PSF != nil {
		if r.PSF, err = d.PSF.Cutout(cg); err != nil {
			return err
		}
	}
	if d.EDisp != nil {
		if r.EDisp, err = d.EDisp.Cutout(cg); err != nil {
			return err
		}
	}
	return nil
}

// ToSpectrumDataset reduces d to a spectrum in region.  Counts and
// background are summed over pixels with centers in the region, exposure
// averaged and divided by livetime to give an effective area.  The safe
// mask is true in energy bins where any pixel in the region was safe.
//
// With containment, the effective area is multiplied by the fraction of
// the PSF at the region center within the region radius.
func (d *MapDataset) ToSpectrumDataset(region geom.Region, containment bool) (*SpectrumDataset, error) {
	name := models.MakeName()
	s := &SpectrumDataset{
		name:   name,
		GTI:    d.GTI.Copy(),
		Models: d.modelsFor(name),
	}
	if d.Counts != nil {
		s.Counts = d.Counts.GetSpectrum(region, maps.Sum)
	}
	if d.BackgroundModel != nil && d.BackgroundModel.Map != nil {
		s.Background = d.BackgroundModel.Evaluate().GetSpectrum(region, maps.Sum)
	}
	if err := d.toSpectrum(s, region, containment); err != nil {
		return nil, err
	}
	return s, nil
}

func (d *MapDataset) toSpectrum(s *SpectrumDataset, region geom.Region, containment bool) error {
	if d.MaskSafe != nil {
		f := d.MaskSafe.Float().GetSpectrum(region, maps.Sum)
		s.MaskSafe = maps.MaskFromGeom(f.Geom, false)
		for i, v := range f.Data {
			s.MaskSafe.Data[i] = v > 0
		}
	}
	if d.Exposure == nil {
		return nil
	}
	if d.GTI != nil {
		s.Livetime = d.GTI.TimeSum()
	}
	if s.Livetime <= 0 {
		return ErrNoLivetime
	}
	e := d.Exposure.GetSpectrum(region, maps.Mean)
	if err := e.ConvertUnit("m2 s"); err != nil {
		return err
	}
	etrue := e.Geom.Axes[0]
	aeff := &irf.EffectiveArea{ETrue: etrue.Copy(""), Data: e.Data, Unit: "m2"}
	for i := range aeff.Data {
		aeff.Data[i] /= s.Livetime
	}
	center := region.Center()
	if containment && d.PSF != nil {
		pe := d.PSF.PSF.Geom.Axes[1]
		for i := range aeff.Data {
			aeff.Data[i] *= d.PSF.Containment(center, pe.Nearest(etrue.Center(i)), region.Width()/2)
		}
	}
	s.Aeff = aeff
	g, err := d.Geom()
	if err != nil {
		return err
	}
	ereco, _, err := g.AxisByName("energy")
	if err != nil {
		return err
	}
	re, err := convertAxis(ereco, etrue.Unit)
	if err != nil {
		return err
	}
	if d.EDisp != nil {
		s.EDisp = d.EDisp.Kernel(center, re)
	} else {
		s.EDisp = irf.DiagonalKernel(etrue, re)
	}
	return nil
}
