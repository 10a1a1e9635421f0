// Public domain.

package dataset

import (
	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/gti"
	"github.com/soniakeys/mapds/internal/irf"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
)

// stackData is what a dataset contributes when stacked onto another.
// Maps are shared, not copied; stacking never modifies them.
type stackData struct {
	counts     *maps.Map
	background *maps.Map // evaluated, nil if none
	exposure   *maps.Map
	psf        *irf.PSFMap
	edisp      *irf.EDispMap
	maskSafe   *maps.Mask
	gti        *gti.GTI
}

func (s *stackData) geom() (*geom.Geom, error) {
	switch {
	case s.counts != nil:
		return s.counts.Geom, nil
	case s.maskSafe != nil:
		return s.maskSafe.Geom, nil
	}
	return nil, ErrNoGeometry
}

func (d *MapDataset) stackData() (*stackData, error) {
	s := &stackData{
		counts:   d.Counts,
		exposure: d.Exposure,
		psf:      d.PSF,
		edisp:    d.EDisp,
		maskSafe: d.MaskSafe,
		gti:      d.GTI,
	}
	if d.BackgroundModel != nil && d.BackgroundModel.Map != nil {
		s.background = d.BackgroundModel.Evaluate()
	}
	return s, nil
}

// checkStack verifies other lies on the grid of d with the same
// non-spatial axes.
func (d *MapDataset) checkStack(o *stackData) error {
	g, err := d.Geom()
	if err != nil {
		return err
	}
	og, err := o.geom()
	if err != nil {
		return err
	}
	_, _, err = g.Offset(og)
	return err
}

// Stack adds other onto d, on the part of d's geometry that other covers.
//
// Counts and background of d are first restricted to d's safe mask, then
// the values of other within its safe mask are added.  Exposure is added
// everywhere, PSF and energy dispersion maps are averaged weighted by
// their exposures, safe masks are or'ed and good time intervals merged.
// Other is not modified.  On error d is unchanged.
func (d *MapDataset) Stack(other Stackable) error {
	o, err := other.stackData()
	if err != nil {
		return err
	}
	if err := d.checkStack(o); err != nil {
		return err
	}
	var bkg *models.BackgroundModel
	if d.BackgroundModel != nil && d.BackgroundModel.Map != nil && o.background != nil {
		b := d.BackgroundModel.Evaluate()
		if err := b.MulMask(d.MaskSafe); err != nil {
			return err
		}
		if err := b.Stack(o.background, o.maskSafe); err != nil {
			return err
		}
		bkg = models.NewBackgroundModel(b, d.BackgroundModel.Name(), d.name)
	}
	if err := d.stackCommon(o); err != nil {
		return err
	}
	if bkg != nil {
		d.BackgroundModel = bkg
	}
	logger.Debug("stacked", "dataset", d.name, "other", other.Name())
	return nil
}

// stackCommon stacks everything but the background, committing to d only
// if every part succeeds.
func (d *MapDataset) stackCommon(o *stackData) error {
	counts := d.Counts.Copy()
	if counts != nil && o.counts != nil {
		if err := counts.MulMask(d.MaskSafe); err != nil {
			return err
		}
		if err := counts.Stack(o.counts, o.maskSafe); err != nil {
			return err
		}
	}
	exposure := d.Exposure.Copy()
	if exposure != nil && o.exposure != nil {
		if err := exposure.Stack(o.exposure, nil); err != nil {
			return err
		}
	}
	psf := d.PSF.Copy()
	if psf != nil && o.psf != nil {
		if err := psf.Stack(o.psf); err != nil {
			return err
		}
	}
	edisp := d.EDisp.Copy()
	if edisp != nil && o.edisp != nil {
		if err := edisp.Stack(o.edisp); err != nil {
			return err
		}
	}
	mask := d.MaskSafe.Copy()
	if mask != nil && o.maskSafe != nil {
		if err := mask.Stack(o.maskSafe); err != nil {
			return err
		}
	}
	t := d.GTI
	if t != nil && o.gti != nil {
		t = t.Copy()
		t.Stack(o.gti)
		t = t.Union()
	}
	d.Counts, d.Exposure, d.PSF, d.EDisp = counts, exposure, psf, edisp
	d.MaskSafe, d.GTI = mask, t
	d.evaluators = nil
	return nil
}
