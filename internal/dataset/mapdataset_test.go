// Public domain.

package dataset_test

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/dataset"
	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/gti"
	"github.com/soniakeys/mapds/internal/irf"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
)

var center = geom.NewSkyCoord(0, 0, geom.FrameGalactic)

// testGeom is 20x20 pixels of .1 deg with two reco energy bins.
func testGeom() *geom.Geom {
	e := geom.EnergyAxisFromBounds(.1, 10, 2, "TeV", "")
	return geom.Create(center, unit.AngleFromDeg(.1),
		[2]unit.Angle{unit.AngleFromDeg(2), unit.AngleFromDeg(2)}, e)
}

func etrueAxis() *geom.Axis {
	return geom.EnergyAxisFromBounds(.1, 10, 3, "TeV", irf.AxisEnergyTrue)
}

// testDataset has counts of one, a background of .2, a flat exposure,
// a Gaussian PSF, a diagonal energy dispersion and 1000 s of good time.
func testDataset(name string) *dataset.MapDataset {
	g := testGeom()
	et := etrueAxis()
	ig := irf.IRFGeom(g)
	psf := irf.GaussPSFMap(ig, et, irf.DefaultRadAxis(),
		[]unit.Angle{unit.AngleFromDeg(.1)}, 1e12)
	t, _ := gti.Create([]float64{0}, []float64{1000}, time.Time{})
	d := dataset.NewMapDataset(
		dataset.WithName(name),
		dataset.WithCounts(maps.Filled(g.Copy(), 1, "")),
		dataset.WithExposure(maps.Filled(g.ToImage().ToCube(et), 1e12, "cm2 s")),
		dataset.WithPSF(psf),
		dataset.WithEDisp(irf.DiagonalEDispMap(ig, et, irf.DefaultMigraAxis())),
		dataset.WithMaskSafe(maps.MaskFromGeom(g.Copy(), true)),
		dataset.WithGTI(t),
	)
	d.BackgroundModel = models.NewBackgroundModel(maps.Filled(g.Copy(), .2, ""),
		name+"-bkg", name)
	return d
}

func testSkyModel(lon float64) *models.SkyModel {
	return models.NewSkyModel(
		models.NewGaussianSpatialModel(lon, 0, unit.AngleFromDeg(.2), geom.FrameGalactic),
		models.NewPowerLawSpectralModel(2, 1e-12, 1), "source")
}

func ExampleCreateMapDataset() {
	d, _ := dataset.CreateMapDataset(testGeom(), dataset.CreateOptions{
		Name:  "empty",
		ETrue: etrueAxis(),
	})
	fmt.Println(d.Counts.Geom.DataShape())
	fmt.Println(d.PSF.PSF.Geom.DataShape())
	fmt.Println(d.PSF.Exposure.Geom.DataShape())
	fmt.Println(d.EDisp.EDisp.Sum())
	fmt.Println(d.BackgroundModel.Name(), d.MaskSafe.Any())
	// Output:
	// [2 20 20]
	// [3 50 10 10]
	// [3 1 10 10]
	// 300
	// empty-bkg false
}

func TestGeomFallback(t *testing.T) {
	d := testDataset("a")
	mask := d.MaskSafe
	d.Counts = nil
	g, err := d.Geom()
	if err != nil || g != mask.Geom {
		t.Fatal("geometry should come from the safe mask", err)
	}
	d.MaskSafe = nil
	if _, err := d.Geom(); !errors.Is(err, dataset.ErrNoGeometry) {
		t.Fatal(err)
	}
	if _, err := d.Npred(); !errors.Is(err, dataset.ErrNoGeometry) {
		t.Fatal(err)
	}
}

func TestMask(t *testing.T) {
	d := testDataset("a")
	m, err := d.Mask()
	if err != nil || m.Count() != 800 {
		t.Fatal("safe mask only", err)
	}
	fit := maps.MaskFromGeom(testGeom(), false)
	fit.Data[0] = true
	d.MaskFit = fit
	if m, _ = d.Mask(); m.Count() != 1 {
		t.Fatal("fit and safe", m.Count())
	}
	d.MaskSafe = nil
	if m, _ = d.Mask(); m.Count() != 1 {
		t.Fatal("fit only", m.Count())
	}
	d.MaskFit = nil
	if m, _ = d.Mask(); m != nil {
		t.Fatal("no mask should give nil")
	}
}

func TestNpredBackgroundOnly(t *testing.T) {
	d := testDataset("a")
	np, err := d.Npred()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(np.Sum()-160) > 1e-9 {
		t.Fatal(np.Sum())
	}
	d.BackgroundModel.Norm().Value = 2
	np, _ = d.Npred()
	if math.Abs(np.Sum()-320) > 1e-9 {
		t.Fatal("norm 2", np.Sum())
	}
}

func TestNpredSkyModel(t *testing.T) {
	d := testDataset("a")
	src := testSkyModel(0)
	d.SetModels(src, d.BackgroundModel)
	np, err := d.Npred()
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range np.Data {
		if v < 0 {
			t.Fatal("negative prediction", v)
		}
	}
	ev := d.Evaluator("source")
	if ev == nil || !ev.Contributes {
		t.Fatal("source at center should contribute")
	}
	// flux 1e-12 * (1/.1 - 1/10) cm-2 s-1 times 1e12 cm2 s, nearly all
	// within the 2 deg field.
	want := 1e-12*(1/.1-1/10.)*1e12 + 160
	if s := np.Sum(); math.Abs(s-want) > .1*(want-160) {
		t.Fatal("total", s, "want about", want)
	}
	// peak near center
	if np.At(1, 10, 10) <= np.At(1, 0, 0) {
		t.Fatal("prediction should peak at the source")
	}
}

func TestNpredFarModel(t *testing.T) {
	d := testDataset("a")
	d.SetModels(testSkyModel(150), d.BackgroundModel)
	np, err := d.Npred()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(np.Sum()-160) > 1e-9 {
		t.Fatal(np.Sum())
	}
	if d.Evaluator("source").Contributes {
		t.Fatal("model at lon 150 should not contribute")
	}
}

func TestModelDatasetNames(t *testing.T) {
	d := testDataset("a")
	src := testSkyModel(0)
	src.DatasetNames = []string{"other"}
	d.SetModels(src, d.BackgroundModel)
	np, err := d.Npred()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(np.Sum()-160) > 1e-9 {
		t.Fatal("model for another dataset contributed", np.Sum())
	}
}

func TestFake(t *testing.T) {
	d := testDataset("a")
	d.SetModels(testSkyModel(0), d.BackgroundModel)
	if err := d.Fake(42); err != nil {
		t.Fatal(err)
	}
	c1 := d.Counts.Copy()
	if err := d.Fake(42); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c1.Data, d.Counts.Data) {
		t.Fatal("same seed gave different counts")
	}
	np, _ := d.Npred()
	if s, n := d.Counts.Sum(), np.Sum(); math.Abs(s-n) > 5*math.Sqrt(n) {
		t.Fatal("faked total", s, "predicted", n)
	}
	for _, v := range d.Counts.Data {
		if v != math.Floor(v) || v < 0 {
			t.Fatal("counts must be non-negative integers", v)
		}
	}
}

func TestStatSum(t *testing.T) {
	d := testDataset("a")
	// counts 1, npred .2: cash = 2(mu - n ln mu)
	want := 800 * 2 * (.2 - math.Log(.2))
	s, err := d.StatSum()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s-want) > 1e-9*want {
		t.Fatal(s, want)
	}
	half := maps.MaskFromGeom(testGeom(), false)
	for i := 0; i < 400; i++ {
		half.Data[i] = true
	}
	d.MaskFit = half
	if s, _ = d.StatSum(); math.Abs(s-want/2) > 1e-9*want {
		t.Fatal("masked", s, want/2)
	}
	d.Counts = nil
	if _, err := d.StatSum(); !errors.Is(err, dataset.ErrNoCounts) {
		t.Fatal(err)
	}
}

func TestResiduals(t *testing.T) {
	d := testDataset("a")
	for _, tc := range []struct {
		method string
		want   float64
	}{
		{dataset.ResidualDiff, .8},
		{dataset.ResidualDiffModel, 4},
		{dataset.ResidualDiffSqrt, .8 / math.Sqrt(.2)},
	} {
		r, err := d.Residuals(tc.method)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(r.Data[17]-tc.want) > 1e-12 {
			t.Fatal(tc.method, r.Data[17], tc.want)
		}
	}
	if _, err := d.Residuals("ratio"); err == nil {
		t.Fatal("unknown method should fail")
	}
}

func TestCopy(t *testing.T) {
	d := testDataset("a")
	d.SetModels(testSkyModel(0), d.BackgroundModel)
	c := d.Copy("")
	if c.Name() == "" || c.Name() == d.Name() {
		t.Fatal("copy should get a new unique name", c.Name())
	}
	if n := d.Copy("b").Name(); n != "b" {
		t.Fatal(n)
	}
	if c.BackgroundModel.Name() != "a-bkg" {
		t.Fatal("background name", c.BackgroundModel.Name())
	}
	if dn := c.BackgroundModel.DatasetsNames(); len(dn) != 1 || dn[0] != c.Name() {
		t.Fatal("background should apply to the copy", dn)
	}
	if c.Models[0].Name() != "source" {
		t.Fatal(c.Models.Names())
	}
	c.Counts.Data[0] = 99
	c.BackgroundModel.Norm().Value = 3
	if d.Counts.Data[0] != 1 || d.BackgroundModel.Norm().Value != 1 {
		t.Fatal("copy shares data with original")
	}
}

func TestDerivedModelBinding(t *testing.T) {
	d := testDataset("a")
	sm := testSkyModel(0)
	sm.DatasetNames = []string{"a", "other"}
	d.SetModels(sm, d.BackgroundModel)
	np, err := d.Npred()
	if err != nil {
		t.Fatal(err)
	}
	c := d.Copy("b")
	if dn := c.Models[0].DatasetsNames(); !reflect.DeepEqual(dn, []string{"b", "other"}) {
		t.Fatal(dn)
	}
	if dn := sm.DatasetNames; !reflect.DeepEqual(dn, []string{"a", "other"}) {
		t.Fatal("original binding changed", dn)
	}
	cp, err := c.Npred()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(cp.Sum()-np.Sum()) > 1e-9*np.Sum() {
		t.Fatal("copy npred", cp.Sum(), "original", np.Sum())
	}
	// source centered in the cutout
	cut, err := d.Cutout(center, [2]unit.Angle{unit.AngleFromDeg(1), unit.AngleFromDeg(1)})
	if err != nil {
		t.Fatal(err)
	}
	if dn := cut.Models[0].DatasetsNames(); dn[0] != cut.Name() {
		t.Fatal(dn)
	}
	cn, err := cut.Npred()
	if err != nil {
		t.Fatal(err)
	}
	if b := cut.BackgroundModel.Map.Sum(); cn.Sum() < b+.5*(np.Sum()-d.BackgroundModel.Map.Sum()) {
		t.Fatal("cutout npred", cn.Sum(), "background", b)
	}
	r := geom.NewCircleRegion(center, unit.AngleFromDeg(.3))
	s, err := d.ToSpectrumDataset(r, false)
	if err != nil {
		t.Fatal(err)
	}
	if dn := s.Models[0].DatasetsNames(); dn[0] != s.Name() {
		t.Fatal(dn)
	}
	sn, err := s.Npred()
	if err != nil {
		t.Fatal(err)
	}
	if sn.Sum() <= s.Background.Sum() {
		t.Fatal("spectrum npred", sn.Sum(), "background", s.Background.Sum())
	}
}

func TestString(t *testing.T) {
	d := testDataset("a")
	s := d.String()
	for _, want := range []string{"MapDataset", "a-bkg", "background", "(frozen)", "cash"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestToImage(t *testing.T) {
	d := testDataset("a")
	// second energy bin unsafe
	for i := 400; i < 800; i++ {
		d.MaskSafe.Data[i] = false
	}
	im, err := d.ToImage()
	if err != nil {
		t.Fatal(err)
	}
	if s := im.Counts.Geom.DataShape(); !reflect.DeepEqual(s, []int{1, 20, 20}) {
		t.Fatal(s)
	}
	if im.Counts.Sum() != 400 {
		t.Fatal("counts", im.Counts.Sum())
	}
	if b := im.BackgroundModel.Map.Sum(); math.Abs(b-80) > 1e-9 {
		t.Fatal("background", b)
	}
	if im.BackgroundModel.Name() != "a-bkg" {
		t.Fatal(im.BackgroundModel.Name())
	}
	if e := im.Exposure.Sum(); math.Abs(e-3*400*1e12) > 1 {
		t.Fatal("exposure", e)
	}
	if im.MaskSafe.Count() != 400 {
		t.Fatal("mask", im.MaskSafe.Count())
	}
	if im.Name() == d.Name() {
		t.Fatal("image should be renamed")
	}
	if d.Counts.Sum() != 800 {
		t.Fatal("receiver modified")
	}
}

func TestToImageMask(t *testing.T) {
	e := geom.EnergyAxisFromBounds(1, 10, 2, "TeV", "")
	g := geom.CreateNpix(center, unit.AngleFromDeg(1), 2, 2, e)
	m, _ := maps.NewMask(g, []bool{false, true, true, true, false, false, true, true})
	d := dataset.NewMapDataset(
		dataset.WithCounts(maps.Filled(g.Copy(), 1, "")),
		dataset.WithMaskSafe(m))
	im, err := d.ToImage()
	if err != nil {
		t.Fatal(err)
	}
	if want := []bool{false, true, true, true}; !reflect.DeepEqual(im.MaskSafe.Data, want) {
		t.Fatal(im.MaskSafe.Data)
	}
}

func TestCutout(t *testing.T) {
	d := testDataset("a")
	d.SetModels(testSkyModel(0), d.BackgroundModel)
	w := [2]unit.Angle{unit.AngleFromDeg(1), unit.AngleFromDeg(1)}
	c, err := d.Cutout(center, w)
	if err != nil {
		t.Fatal(err)
	}
	if s := c.Counts.Geom.DataShape(); !reflect.DeepEqual(s, []int{2, 10, 10}) {
		t.Fatal(s)
	}
	if c.BackgroundModel.Name() != "a-bkg" || c.Models[0].Name() != "source" {
		t.Fatal("model names should be kept")
	}
	if c.BackgroundModel.Map.Geom.Nx != 10 {
		t.Fatal("background not cut")
	}
	if c.Name() == d.Name() {
		t.Fatal("cutout should be renamed")
	}
	if c.GTI.TimeSum() != 1000 {
		t.Fatal(c.GTI.TimeSum())
	}
	if _, err := c.Npred(); err != nil {
		t.Fatal(err)
	}
}

func TestToSpectrumDataset(t *testing.T) {
	d := testDataset("a")
	d.Counts.Set(1, 10, 10, 5)
	d.Counts.Set(1, 10, 0, 7)
	r := geom.NewCircleRegion(d.Counts.Geom.PixToCoord(10, 10), unit.AngleFromDeg(.05))
	s, err := d.ToSpectrumDataset(r, false)
	if err != nil {
		t.Fatal(err)
	}
	if sh := s.DataShape(); !reflect.DeepEqual(sh, []int{2, 1, 1}) {
		t.Fatal(sh)
	}
	if s.Counts.Data[1] != 5 {
		t.Fatal("region counts", s.Counts.Data)
	}
	if s.Aeff.Unit != "m2" || len(s.Aeff.Data) != 3 {
		t.Fatal(s.Aeff.Unit, s.Aeff.Data)
	}
	// 1e12 cm2 s = 1e8 m2 s over 1000 s
	if math.Abs(s.Aeff.Data[0]-1e5) > 1e-6 {
		t.Fatal(s.Aeff.Data)
	}
	if len(s.EDisp.Data) != 3 || len(s.EDisp.Data[0]) != 2 {
		t.Fatal("edisp shape", len(s.EDisp.Data))
	}
	if s.Livetime != 1000 {
		t.Fatal(s.Livetime)
	}
	if math.Abs(s.Background.Data[0]-.2) > 1e-12 {
		t.Fatal(s.Background.Data)
	}
	if _, err := s.StatSum(); err != nil {
		t.Fatal(err)
	}
	c, err := d.ToSpectrumDataset(r, true)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range c.Aeff.Data {
		if !(a < s.Aeff.Data[i]) || a <= 0 {
			t.Fatal("containment should reduce effective area", a, s.Aeff.Data[i])
		}
	}
	d.GTI = nil
	if _, err := d.ToSpectrumDataset(r, false); !errors.Is(err, dataset.ErrNoLivetime) {
		t.Fatal(err)
	}
}
