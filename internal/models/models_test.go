// Public domain.

package models_test

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
)

func skyModel() *models.SkyModel {
	return models.NewSkyModel(
		models.NewGaussianSpatialModel(.2, .1, unit.AngleFromDeg(.2), geom.FrameGalactic),
		models.NewPowerLawSpectralModel(3, 1e-11, 1), "")
}

func ExamplePowerLawSpectralModel_Integral() {
	pl := models.NewPowerLawSpectralModel(2, 1e-12, 1)
	fmt.Printf("%.4g\n", pl.Integral(1, 10))
	// Output:
	// 9e-13
}

func TestCopyNames(t *testing.T) {
	m := skyModel()
	c := m.Copy("")
	if c.Name() == m.Name() {
		t.Fatal("copy without name kept name", c.Name())
	}
	if c := m.Copy("model1"); c.Name() != "model1" {
		t.Fatal(c.Name())
	}
	// deep copy
	c.Parameters().Get("sigma").Value = 1
	if m.Parameters().Get("sigma").Value != .2 {
		t.Fatal("copy shares parameters")
	}
	ms := models.Models{m, c}
	mc := ms.Copy()
	if fmt.Sprint(mc.Names()) != fmt.Sprint(ms.Names()) {
		t.Fatal("collection copy renamed models")
	}
	if mc[0] == ms[0] {
		t.Fatal("collection copy shares models")
	}
}

func TestIntegrate(t *testing.T) {
	g := geom.Create(geom.NewSkyCoord(0, 0, geom.FrameGalactic), unit.AngleFromDeg(.02),
		[2]unit.Angle{unit.AngleFromDeg(4), unit.AngleFromDeg(4)})
	m := models.NewGaussianSpatialModel(.2, .1, unit.AngleFromDeg(.2), geom.FrameGalactic)
	var s float64
	for _, v := range models.Integrate(m, g) {
		s += v
	}
	if math.Abs(s-1) > 1e-3 {
		t.Fatal("gaussian integral", s)
	}
	d := models.NewDiskSpatialModel(0, 0, unit.AngleFromDeg(.5), geom.FrameGalactic)
	s = 0
	for _, v := range models.Integrate(d, g) {
		s += v
	}
	if math.Abs(s-1) > 1e-2 {
		t.Fatal("disk integral", s)
	}
	p := models.NewPointSpatialModel(150, 0, geom.FrameGalactic)
	for _, v := range models.Integrate(p, g) {
		if v != 0 {
			t.Fatal("point source outside geometry contributes")
		}
	}
}

func TestIntegrateOtherFrame(t *testing.T) {
	g := geom.Create(geom.NewSkyCoord(0, 0, geom.FrameGalactic), unit.AngleFromDeg(.02),
		[2]unit.Angle{unit.AngleFromDeg(4), unit.AngleFromDeg(4)})
	gal := geom.NewSkyCoord(.2, .1, geom.FrameGalactic)
	eq, err := gal.Transform(geom.FrameICRS)
	if err != nil {
		t.Fatal(err)
	}
	want := models.Integrate(
		models.NewGaussianSpatialModel(.2, .1, unit.AngleFromDeg(.2), geom.FrameGalactic), g)
	got := models.Integrate(models.NewGaussianSpatialModel(eq.Lon.Deg(), eq.Lat.Deg(),
		unit.AngleFromDeg(.2), geom.FrameICRS), g)
	for i, w := range want {
		if math.Abs(got[i]-w) > 1e-9 {
			t.Fatal(i, got[i], w)
		}
	}
	for _, v := range models.Integrate(
		models.NewGaussianSpatialModel(0, 0, unit.AngleFromDeg(.2), "fk4"), g) {
		if v != 0 {
			t.Fatal("unknown frame contributes")
		}
	}
}

func TestReadUnknownFrame(t *testing.T) {
	var b bytes.Buffer
	m := models.NewSkyModel(
		models.NewGaussianSpatialModel(0, 0, unit.AngleFromDeg(.2), "fk4"),
		models.NewPowerLawSpectralModel(2, 1e-12, 1), "s")
	if err := (models.Models{m}).WriteYAML(&b); err != nil {
		t.Fatal(err)
	}
	if _, err := models.ReadYAML(&b); !errors.Is(err, geom.ErrFrame) {
		t.Fatal("expected ErrFrame, got", err)
	}
}

func TestBackgroundEvaluate(t *testing.T) {
	e := geom.EnergyAxisFromBounds(.1, 10, 2, "TeV", "")
	g := geom.CreateNpix(geom.NewSkyCoord(0, 0, ""), unit.AngleFromDeg(.1), 2, 2, e)
	b := models.NewBackgroundModel(maps.Filled(g, .2, ""), "bkg", "test")
	b.Norm().Value = .5
	if s := b.Evaluate().Sum(); math.Abs(s-.8) > 1e-12 {
		t.Fatal("norm", s)
	}
	b.Norm().Value = 1
	b.Tilt().Value = 1
	ev := b.Evaluate()
	// centers .3162 and 3.162 TeV
	if math.Abs(ev.Data[0]-.2/math.Sqrt(.1)) > 1e-9 || math.Abs(ev.Data[4]-.2/math.Sqrt(10)) > 1e-9 {
		t.Fatal("tilt", ev.Data)
	}
	if b.Map.Data[0] != .2 {
		t.Fatal("evaluate modified map")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	e := geom.EnergyAxisFromBounds(.1, 10, 2, "TeV", "")
	g := geom.CreateNpix(geom.NewSkyCoord(0, 0, ""), unit.AngleFromDeg(.1), 2, 2, e)
	sm := skyModel()
	sm.Parameters().Get("sigma").Frozen = true
	bm := models.NewBackgroundModel(maps.Filled(g, .2, ""), "test-bkg", "test")
	bm.Norm().Value = .7
	ms := models.Models{sm, bm}
	var buf bytes.Buffer
	if err := ms.WriteYAML(&buf); err != nil {
		t.Fatal(err)
	}
	rm, err := models.ReadYAML(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rm) != 2 || rm[0].Name() != sm.Name() || rm[1].Name() != "test-bkg" {
		t.Fatal(rm.Names())
	}
	rs := rm.SkyModels()[0]
	if !rs.Parameters().Get("sigma").Frozen || rs.Spatial.Frame() != geom.FrameGalactic {
		t.Fatal("spatial model", rs)
	}
	if rs.Spectral.Parameters().Get("amplitude").Value != 1e-11 {
		t.Fatal("spectral model", rs.Spectral.Parameters())
	}
	if !math.IsNaN(rs.Parameters().Get("index").Min) {
		t.Fatal("unbounded parameter lost NaN bound")
	}
	bm.Norm().Value = 1
	models.Models{bm}.SetParameters(rm)
	if bm.Norm().Value != .7 || bm.Map == nil {
		t.Fatal("set parameters", bm)
	}
	if len(rm.ForDataset("other")) != 1 || len(rm.ForDataset("test")) != 2 {
		t.Fatal("for dataset")
	}
}
