// Public domain.

package dataset

import (
	"fmt"
	"math"
	"strings"

	sexa "github.com/soniakeys/sexagesimal"
	"gonum.org/v1/gonum/floats"

	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/gti"
	"github.com/soniakeys/mapds/internal/irf"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
)

// MapDataset holds binned counts and everything needed to predict them.
// Any field may be nil, meaning absent.  Counts, background and masks
// share the reco energy geometry; Exposure has the same spatial grid with
// a true energy axis.
type MapDataset struct {
	name            string
	Counts          *maps.Map
	Exposure        *maps.Map
	PSF             *irf.PSFMap
	EDisp           *irf.EDispMap
	MaskFit         *maps.Mask
	MaskSafe        *maps.Mask
	GTI             *gti.GTI
	Models          models.Models // sky models
	BackgroundModel *models.BackgroundModel

	evaluators map[string]*MapEvaluator
}

// Option configures a MapDataset under construction.
type Option func(*MapDataset)

func WithName(n string) Option              { return func(d *MapDataset) { d.name = n } }
func WithCounts(m *maps.Map) Option         { return func(d *MapDataset) { d.Counts = m } }
func WithExposure(m *maps.Map) Option       { return func(d *MapDataset) { d.Exposure = m } }
func WithPSF(p *irf.PSFMap) Option          { return func(d *MapDataset) { d.PSF = p } }
func WithEDisp(e *irf.EDispMap) Option      { return func(d *MapDataset) { d.EDisp = e } }
func WithMaskFit(m *maps.Mask) Option       { return func(d *MapDataset) { d.MaskFit = m } }
func WithMaskSafe(m *maps.Mask) Option      { return func(d *MapDataset) { d.MaskSafe = m } }
func WithGTI(g *gti.GTI) Option             { return func(d *MapDataset) { d.GTI = g } }
func WithModels(ms ...models.Model) Option  { return func(d *MapDataset) { d.SetModels(ms...) } }

// NewMapDataset constructs a dataset from options.  Without WithName the
// dataset gets a unique name.
func NewMapDataset(opts ...Option) *MapDataset {
	d := &MapDataset{}
	for _, o := range opts {
		o(d)
	}
	if d.name == "" {
		d.name = models.MakeName()
	}
	return d
}

// SetModels replaces the models of d.  A background model in ms becomes
// the background model of d; all other models are sky models.
func (d *MapDataset) SetModels(ms ...models.Model) {
	d.Models = nil
	d.evaluators = nil
	for _, m := range ms {
		if b, ok := m.(*models.BackgroundModel); ok {
			d.BackgroundModel = b
			continue
		}
		d.Models = append(d.Models, m)
	}
}

func (d *MapDataset) Name() string { return d.name }
func (d *MapDataset) Tag() string  { return "MapDataset" }

// Components lists sky models then the background model.
func (d *MapDataset) Components() models.Models {
	ms := append(models.Models{}, d.Models...)
	if d.BackgroundModel != nil {
		ms = append(ms, d.BackgroundModel)
	}
	return ms
}

// CreateOptions configures CreateMapDataset.  Zero values select
// defaults.
type CreateOptions struct {
	Name  string
	ETrue *geom.Axis // default: the energy axis renamed energy_true
	Migra *geom.Axis // default: irf.DefaultMigraAxis
	Rad   *geom.Axis // default: irf.DefaultRadAxis
	GTI   *gti.GTI   // default: empty
}

func (o *CreateOptions) defaults(g *geom.Geom) error {
	if o.Name == "" {
		o.Name = models.MakeName()
	}
	if o.ETrue == nil {
		e, _, err := g.AxisByName("energy")
		if err != nil {
			return err
		}
		o.ETrue = e.Copy(irf.AxisEnergyTrue)
	}
	if o.Migra == nil {
		o.Migra = irf.DefaultMigraAxis()
	}
	if o.Rad == nil {
		o.Rad = irf.DefaultRadAxis()
	}
	if o.GTI == nil {
		o.GTI = gti.Empty()
	}
	return nil
}

// CreateMapDataset makes an empty dataset on g, ready to stack onto:
// zero counts, exposure and background, a zero PSF and diagonal energy
// dispersion on a coarse response grid, an all false safe mask and no
// good time intervals.
func CreateMapDataset(g *geom.Geom, o CreateOptions) (*MapDataset, error) {
	if err := o.defaults(g); err != nil {
		return nil, err
	}
	ig := irf.IRFGeom(g)
	d := &MapDataset{
		name:     o.Name,
		Counts:   maps.FromGeom(g.Copy(), ""),
		Exposure: maps.FromGeom(g.ToImage().ToCube(o.ETrue), "m2 s"),
		PSF:      irf.CreatePSFMap(ig, o.ETrue, o.Rad),
		EDisp:    irf.DiagonalEDispMap(ig, o.ETrue, o.Migra),
		MaskSafe: maps.MaskFromGeom(g.Copy(), false),
		GTI:      o.GTI.Copy(),
		BackgroundModel: models.NewBackgroundModel(maps.FromGeom(g.Copy(), ""),
			o.Name+"-bkg", o.Name),
	}
	logger.Debug("created dataset", "name", d.name, "shape", fmt.Sprint(g.DataShape()))
	return d, nil
}

// Geom returns the geometry of the counts, or of the safe mask if there
// are no counts.
func (d *MapDataset) Geom() (*geom.Geom, error) {
	switch {
	case d.Counts != nil:
		return d.Counts.Geom, nil
	case d.MaskSafe != nil:
		return d.MaskSafe.Geom, nil
	}
	return nil, ErrNoGeometry
}

// Mask returns the combined fit and safe mask: their logical and if both
// are present, whichever is present otherwise, or nil.
func (d *MapDataset) Mask() (*maps.Mask, error) {
	return d.MaskFit.And(d.MaskSafe)
}

// backgroundFor copies the background model, keeping its name, for the
// dataset named name.
func (d *MapDataset) backgroundFor(name string) *models.BackgroundModel {
	if d.BackgroundModel == nil {
		return nil
	}
	b := d.BackgroundModel.Copy(d.BackgroundModel.Name()).(*models.BackgroundModel)
	b.DatasetNames = []string{name}
	return b
}

// modelsFor copies the sky models of d for a derived dataset named name.
// Models bound to d by name are bound to name instead.
func (d *MapDataset) modelsFor(name string) models.Models {
	ms := d.Models.Copy()
	for _, m := range ms {
		sm, ok := m.(*models.SkyModel)
		if !ok {
			continue
		}
		for i, n := range sm.DatasetNames {
			if n == d.name {
				sm.DatasetNames[i] = name
			}
		}
	}
	return ms
}

// Copy returns a deep copy named name, or a unique name if name is empty.
// Model names are kept.
func (d *MapDataset) Copy(name string) *MapDataset {
	if name == "" {
		name = models.MakeName()
	}
	return &MapDataset{
		name:            name,
		Counts:          d.Counts.Copy(),
		Exposure:        d.Exposure.Copy(),
		PSF:             d.PSF.Copy(),
		EDisp:           d.EDisp.Copy(),
		MaskFit:         d.MaskFit.Copy(),
		MaskSafe:        d.MaskSafe.Copy(),
		GTI:             d.GTI.Copy(),
		Models:          d.modelsFor(name),
		BackgroundModel: d.backgroundFor(name),
	}
}

func (d *MapDataset) String() string {
	var b strings.Builder
	d.writeSummary(&b, d.Tag(), "cash", d.StatSum, d.background)
	return b.String()
}

// background evaluates the background model, or returns nil.
func (d *MapDataset) background() (*maps.Map, error) {
	if d.BackgroundModel == nil || d.BackgroundModel.Map == nil {
		return nil, nil
	}
	return d.BackgroundModel.Evaluate(), nil
}

func (d *MapDataset) writeSummary(b *strings.Builder, tag, stat string,
	sum func() (float64, error), bkg func() (*maps.Map, error)) {
	line := func(k string, v interface{}) {
		fmt.Fprintf(b, "  %-32s: %v\n", k, v)
	}
	fmt.Fprintf(b, "%s\n%s\n\n", tag, strings.Repeat("-", len(tag)))
	line("Name", d.name)
	if d.Counts != nil {
		line("Total counts", d.Counts.Sum())
	}
	if np, err := d.Npred(); err == nil {
		line("Total predicted counts", fmt.Sprintf("%.2f", np.Sum()))
	}
	if bm, err := bkg(); err == nil && bm != nil {
		line("Total background counts", fmt.Sprintf("%.2f", bm.Sum()))
	} else {
		line("Total background counts", "nan")
	}
	if d.Exposure != nil && len(d.Exposure.Data) > 0 {
		line("Exposure min", fmt.Sprintf("%.2e %s", floats.Min(d.Exposure.Data), d.Exposure.Unit))
		line("Exposure max", fmt.Sprintf("%.2e %s", floats.Max(d.Exposure.Data), d.Exposure.Unit))
	}
	if g, err := d.Geom(); err == nil {
		line("Number of total bins", g.Size())
	}
	if m, err := d.Mask(); err == nil && m != nil {
		line("Number of fit bins", m.Count())
	}
	line("Fit statistic type", stat)
	s, err := sum()
	if err != nil {
		s = math.NaN()
	}
	line("Fit statistic value (-2 log(L))", fmt.Sprintf("%.2f", s))
	ps := d.Components().Parameters()
	line("Number of models", len(d.Components()))
	line("Number of parameters", len(ps))
	line("Number of free parameters", len(ps.Free()))
	b.WriteByte('\n')
	for i, m := range d.Components() {
		fmt.Fprintf(b, "  Component %d: %s %s\n", i, m.Tag(), m.Name())
		if sm, ok := m.(*models.SkyModel); ok && sm.Spatial != nil {
			p := sm.Spatial.Position()
			fmt.Fprintf(b, "    position %.1s %.1s %s\n",
				sexa.FmtAngle(p.Lon), sexa.FmtAngle(p.Lat), p.Frame)
		}
		b.WriteString(m.Parameters().String())
	}
}
