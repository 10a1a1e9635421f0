// Public domain.

package dataset

import (
	"fmt"
	"strings"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/floats"

	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
	"github.com/soniakeys/mapds/internal/stats"
)

// MapDatasetOnOff is a map dataset whose background is measured in off
// regions: background = alpha * CountsOff with alpha = Acceptance /
// AcceptanceOff.  It never has a background model.
type MapDatasetOnOff struct {
	MapDataset
	CountsOff     *maps.Map
	Acceptance    *maps.Map
	AcceptanceOff *maps.Map
}

// NewMapDatasetOnOff constructs an on/off dataset.  A background model
// given with WithModels is dropped.
func NewMapDatasetOnOff(countsOff, acceptance, acceptanceOff *maps.Map, opts ...Option) *MapDatasetOnOff {
	d := &MapDatasetOnOff{
		MapDataset:    *NewMapDataset(opts...),
		CountsOff:     countsOff,
		Acceptance:    acceptance,
		AcceptanceOff: acceptanceOff,
	}
	d.BackgroundModel = nil
	return d
}

// CreateMapDatasetOnOff makes an empty on/off dataset on g as
// CreateMapDataset, with zero off counts and acceptances.
func CreateMapDatasetOnOff(g *geom.Geom, o CreateOptions) (*MapDatasetOnOff, error) {
	b, err := CreateMapDataset(g, o)
	if err != nil {
		return nil, err
	}
	b.BackgroundModel = nil
	return &MapDatasetOnOff{
		MapDataset:    *b,
		CountsOff:     maps.FromGeom(g.Copy(), ""),
		Acceptance:    maps.FromGeom(g.Copy(), ""),
		AcceptanceOff: maps.FromGeom(g.Copy(), ""),
	}, nil
}

func (d *MapDatasetOnOff) Tag() string { return "MapDatasetOnOff" }

// SetModels sets sky models.  Background models are ignored.
func (d *MapDatasetOnOff) SetModels(ms ...models.Model) {
	d.MapDataset.SetModels(ms...)
	d.BackgroundModel = nil
}

func sameSize(a, b *maps.Map) error {
	if len(a.Data) != len(b.Data) {
		return fmt.Errorf("%w: shapes %v and %v", geom.ErrGeomMismatch,
			a.Geom.DataShape(), b.Geom.DataShape())
	}
	return nil
}

// alpha is acc/accOff, zero where accOff is zero.  Nil acc counts as one.
func alpha(acc, accOff *maps.Map) (*maps.Map, error) {
	if accOff == nil {
		return nil, ErrNoAcceptance
	}
	if acc != nil {
		if err := sameSize(acc, accOff); err != nil {
			return nil, err
		}
	}
	a := maps.FromGeom(accOff.Geom.Copy(), "")
	for i, off := range accOff.Data {
		if off == 0 {
			continue
		}
		on := 1.
		if acc != nil {
			on = acc.Data[i]
		}
		a.Data[i] = on / off
	}
	return a, nil
}

func background(off, acc, accOff *maps.Map) (*maps.Map, error) {
	if off == nil {
		return nil, ErrNoCountsOff
	}
	a, err := alpha(acc, accOff)
	if err != nil {
		return nil, err
	}
	if err := sameSize(off, a); err != nil {
		return nil, err
	}
	b := off.Copy()
	b.Unit = ""
	floats.Mul(b.Data, a.Data)
	return b, nil
}

func excess(counts, off, acc, accOff *maps.Map) (*maps.Map, error) {
	if counts == nil {
		return nil, ErrNoCounts
	}
	b, err := background(off, acc, accOff)
	if err != nil {
		return nil, err
	}
	if err := sameSize(counts, b); err != nil {
		return nil, err
	}
	e := counts.Copy()
	floats.Sub(e.Data, b.Data)
	return e, nil
}

func wstatArgs(counts, off, acc, accOff, np *maps.Map) (*maps.Map, error) {
	switch {
	case counts == nil:
		return nil, ErrNoCounts
	case off == nil:
		return nil, ErrNoCountsOff
	}
	a, err := alpha(acc, accOff)
	if err != nil {
		return nil, err
	}
	for _, m := range []*maps.Map{off, a, np} {
		if err := sameSize(counts, m); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func wstatSum(counts, off, acc, accOff, np *maps.Map, mask []bool) (float64, error) {
	a, err := wstatArgs(counts, off, acc, accOff, np)
	if err != nil {
		return 0, err
	}
	return stats.WStatSum(counts.Data, off.Data, a.Data, np.Data, mask), nil
}

// Alpha is Acceptance / AcceptanceOff, zero where AcceptanceOff is zero.
func (d *MapDatasetOnOff) Alpha() (*maps.Map, error) {
	return alpha(d.Acceptance, d.AcceptanceOff)
}

// Background is alpha * CountsOff.
func (d *MapDatasetOnOff) Background() (*maps.Map, error) {
	return background(d.CountsOff, d.Acceptance, d.AcceptanceOff)
}

// Excess is Counts - Background.
func (d *MapDatasetOnOff) Excess() (*maps.Map, error) {
	return excess(d.Counts, d.CountsOff, d.Acceptance, d.AcceptanceOff)
}

// StatArray returns WStat per bin, unmasked, with Npred as the signal.
func (d *MapDatasetOnOff) StatArray() ([]float64, error) {
	np, err := d.Npred()
	if err != nil {
		return nil, err
	}
	a, err := wstatArgs(d.Counts, d.CountsOff, d.Acceptance, d.AcceptanceOff, np)
	if err != nil {
		return nil, err
	}
	s := make([]float64, len(np.Data))
	for i, mu := range np.Data {
		s[i] = stats.WStat(d.Counts.Data[i], d.CountsOff.Data[i], a.Data[i], mu)
	}
	return s, nil
}

// StatSum sums WStat over Mask, with Npred as the signal.
func (d *MapDatasetOnOff) StatSum() (float64, error) {
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
	return wstatSum(d.Counts, d.CountsOff, d.Acceptance, d.AcceptanceOff, np, md)
}

// Fake draws on and off counts.  The expected background per bin is the
// WStat profile estimate given current counts, or alpha * CountsOff when
// there are no counts.  On counts are Poisson(Npred + background), off
// counts Poisson(background / alpha).
func (d *MapDatasetOnOff) Fake(seed uint64) error {
	np, err := d.Npred()
	if err != nil {
		return err
	}
	a, err := d.Alpha()
	if err != nil {
		return err
	}
	if d.CountsOff == nil {
		return ErrNoCountsOff
	}
	if err := sameSize(np, a); err != nil {
		return err
	}
	if err := sameSize(np, d.CountsOff); err != nil {
		return err
	}
	on := np.Copy()
	off := maps.FromGeom(np.Geom.Copy(), "")
	for i, sig := range np.Data {
		var mb float64
		if d.Counts != nil {
			mb = stats.WStatMuBkg(d.Counts.Data[i], d.CountsOff.Data[i], a.Data[i], sig)
		} else {
			mb = a.Data[i] * d.CountsOff.Data[i]
		}
		on.Data[i] += mb
		if a.Data[i] > 0 {
			off.Data[i] = mb / a.Data[i]
		}
	}
	rnd := newRand(seed)
	d.Counts = poisson(on, rnd)
	d.CountsOff = poisson(off, rnd)
	logger.Debug("faked on/off counts", "dataset", d.name, "seed", seed,
		"on", d.Counts.Sum(), "off", d.CountsOff.Sum())
	return nil
}

// Copy returns a deep copy named name, or a unique name if name is empty.
func (d *MapDatasetOnOff) Copy(name string) *MapDatasetOnOff {
	return &MapDatasetOnOff{
		MapDataset:    *d.MapDataset.Copy(name),
		CountsOff:     d.CountsOff.Copy(),
		Acceptance:    d.Acceptance.Copy(),
		AcceptanceOff: d.AcceptanceOff.Copy(),
	}
}

func (d *MapDatasetOnOff) stackData() (*stackData, error) {
	s, err := d.MapDataset.stackData()
	if err != nil {
		return nil, err
	}
	if d.CountsOff != nil {
		if s.background, err = d.Background(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// offOverBackground returns acc * off / bkg, zero where bkg is zero.
// Nil acc counts as one.
func offOverBackground(acc, off, bkg *maps.Map) *maps.Map {
	r := maps.FromGeom(off.Geom.Copy(), "")
	for i, b := range bkg.Data {
		if b == 0 {
			continue
		}
		a := 1.
		if acc != nil {
			a = acc.Data[i]
		}
		r.Data[i] = a * off.Data[i] / b
	}
	return r
}

// Stack adds other, which must also be on/off, onto d.  Off counts and
// background are summed within the safe masks.  Acceptance becomes one
// and AcceptanceOff is set so alpha reproduces the summed background.
// On error d is unchanged.
func (d *MapDatasetOnOff) Stack(other Stackable) error {
	od, ok := other.(*MapDatasetOnOff)
	if !ok {
		return ErrNotOnOff
	}
	o, err := od.stackData()
	if err != nil {
		return err
	}
	if err := d.checkStack(o); err != nil {
		return err
	}
	var off, bkg *maps.Map
	if d.CountsOff != nil && od.CountsOff != nil {
		if bkg, err = d.Background(); err != nil {
			return err
		}
		off = d.CountsOff.Copy()
		for _, m := range []*maps.Map{off, bkg} {
			if err := m.MulMask(d.MaskSafe); err != nil {
				return err
			}
		}
		if err := off.Stack(od.CountsOff, od.MaskSafe); err != nil {
			return err
		}
		if err := bkg.Stack(o.background, o.maskSafe); err != nil {
			return err
		}
	}
	if err := d.stackCommon(o); err != nil {
		return err
	}
	if off != nil {
		d.CountsOff = off
		d.Acceptance = maps.Filled(off.Geom.Copy(), 1, "")
		d.AcceptanceOff = offOverBackground(nil, off, bkg)
	}
	logger.Debug("stacked on/off", "dataset", d.name, "other", od.Name())
	return nil
}

// ToImage sums over energy within the safe mask.  AcceptanceOff is set
// so that the summed background is preserved.
func (d *MapDatasetOnOff) ToImage() (*MapDatasetOnOff, error) {
	r := &MapDatasetOnOff{MapDataset: MapDataset{name: models.MakeName(), GTI: d.GTI.Copy()}}
	if err := d.toImage(&r.MapDataset); err != nil {
		return nil, err
	}
	if d.CountsOff == nil {
		return r, nil
	}
	var err error
	if r.CountsOff, err = d.CountsOff.SumOverAxes(d.MaskSafe); err != nil {
		return nil, err
	}
	bkg, err := d.Background()
	if err != nil {
		return nil, err
	}
	if bkg, err = bkg.SumOverAxes(d.MaskSafe); err != nil {
		return nil, err
	}
	acc := d.Acceptance
	if acc == nil {
		acc = maps.Filled(d.CountsOff.Geom, 1, "")
	}
	if r.Acceptance, err = acc.SumOverAxes(d.MaskSafe); err != nil {
		return nil, err
	}
	r.AcceptanceOff = offOverBackground(r.Acceptance, r.CountsOff, bkg)
	return r, nil
}

// Cutout returns the part of d within width around position, as
// MapDataset.Cutout.
func (d *MapDatasetOnOff) Cutout(position geom.SkyCoord, width [2]unit.Angle) (*MapDatasetOnOff, error) {
	g, err := d.Geom()
	if err != nil {
		return nil, err
	}
	cg, err := g.Cutout(position, width)
	if err != nil {
		return nil, err
	}
	name := models.MakeName()
	r := &MapDatasetOnOff{MapDataset: MapDataset{
		name:   name,
		GTI:    d.GTI.Copy(),
		Models: d.modelsFor(name),
	}}
	if err := d.cutout(&r.MapDataset, cg); err != nil {
		return nil, err
	}
	cut := func(m *maps.Map) *maps.Map {
		if m == nil || err != nil {
			return nil
		}
		var c *maps.Map
		c, err = m.Cutout(cg)
		return c
	}
	r.CountsOff = cut(d.CountsOff)
	r.Acceptance = cut(d.Acceptance)
	r.AcceptanceOff = cut(d.AcceptanceOff)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ToSpectrumDataset reduces d to an on/off spectrum in region.
// Acceptance is averaged over the region and AcceptanceOff set to
// preserve the summed background.
func (d *MapDatasetOnOff) ToSpectrumDataset(region geom.Region, containment bool) (*SpectrumDatasetOnOff, error) {
	name := models.MakeName()
	s := &SpectrumDatasetOnOff{SpectrumDataset: SpectrumDataset{
		name:   name,
		GTI:    d.GTI.Copy(),
		Models: d.modelsFor(name),
	}}
	if d.Counts != nil {
		s.Counts = d.Counts.GetSpectrum(region, maps.Sum)
	}
	if err := d.toSpectrum(&s.SpectrumDataset, region, containment); err != nil {
		return nil, err
	}
	if d.CountsOff == nil {
		return s, nil
	}
	s.CountsOff = d.CountsOff.GetSpectrum(region, maps.Sum)
	bkg, err := d.Background()
	if err != nil {
		return nil, err
	}
	bkg = bkg.GetSpectrum(region, maps.Sum)
	if d.Acceptance != nil {
		s.Acceptance = d.Acceptance.GetSpectrum(region, maps.Mean)
	} else {
		s.Acceptance = maps.Filled(s.CountsOff.Geom.Copy(), 1, "")
	}
	s.AcceptanceOff = offOverBackground(s.Acceptance, s.CountsOff, bkg)
	return s, nil
}

func (d *MapDatasetOnOff) String() string {
	var b strings.Builder
	d.writeSummary(&b, d.Tag(), "wstat", d.StatSum, d.Background)
	if d.CountsOff != nil {
		fmt.Fprintf(&b, "  %-32s: %g\n", "Total off counts", d.CountsOff.Sum())
	}
	if a, err := d.Alpha(); err == nil && len(a.Data) > 0 {
		fmt.Fprintf(&b, "  %-32s: %.4g\n", "Mean alpha", floats.Sum(a.Data)/float64(len(a.Data)))
	}
	return b.String()
}
