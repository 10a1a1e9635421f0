// Public domain.

package irf_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/irf"
)

func testGeom() *geom.Geom {
	e := geom.EnergyAxisFromBounds(.1, 10, 2, "TeV", "")
	return geom.Create(geom.NewSkyCoord(266.40498829, -28.93617776, geom.FrameICRS),
		unit.AngleFromDeg(.02),
		[2]unit.Angle{unit.AngleFromDeg(2), unit.AngleFromDeg(2)}, e)
}

func etrue() *geom.Axis {
	return geom.EnergyAxisFromBounds(.1, 10, 3, "TeV", irf.AxisEnergyTrue)
}

func ExampleCreatePSFMap() {
	g := irf.IRFGeom(testGeom())
	p := irf.CreatePSFMap(g, etrue(), irf.DefaultRadAxis())
	d := irf.DiagonalEDispMap(g, etrue(), irf.DefaultMigraAxis())
	fmt.Println(p.PSF.Geom.DataShape(), p.Exposure.Geom.DataShape())
	fmt.Println(d.EDisp.Geom.DataShape(), d.EDisp.Sum())
	// Output:
	// [3 50 10 10] [3 1 10 10]
	// [3 50 10 10] 300
}

func TestContainment(t *testing.T) {
	g := irf.IRFGeom(testGeom())
	sigma := unit.AngleFromDeg(.1)
	rad := geom.LinearAxis(0, 1, 500, "deg", irf.AxisRad)
	p := irf.GaussPSFMap(g, etrue(), rad, []unit.Angle{sigma}, 1)
	c := p.Containment(g.CenterSkyDir(), 0, sigma)
	want := 1 - math.Exp(-.5)
	if math.Abs(c-want) > 1e-3 {
		t.Fatal("containment", c, "want", want)
	}
	if c := p.Containment(g.CenterSkyDir(), 0, unit.AngleFromDeg(1)); math.Abs(c-1) > 1e-3 {
		t.Fatal("full containment", c)
	}
}

func TestKernel(t *testing.T) {
	g := irf.IRFGeom(testGeom())
	p := irf.GaussPSFMap(g, etrue(), irf.DefaultRadAxis(),
		[]unit.Angle{unit.AngleFromDeg(.05)}, 1)
	k, h := p.Kernel(g.CenterSkyDir(), 1, unit.AngleFromDeg(.02))
	if h != 50 || len(k) != 101*101 {
		t.Fatal("kernel size", h, len(k))
	}
	var s float64
	for _, v := range k {
		s += v
	}
	if math.Abs(s-1) > 1e-12 {
		t.Fatal("kernel sum", s)
	}
	// peak at center
	if k[h*101+h] < k[h*101+h+1] {
		t.Fatal("kernel not peaked at center")
	}
	z := irf.CreatePSFMap(g, etrue(), irf.DefaultRadAxis())
	if k, h := z.Kernel(g.CenterSkyDir(), 0, unit.AngleFromDeg(.02)); h != 0 || k[0] != 1 {
		t.Fatal("zero PSF should give delta kernel")
	}
}

func TestEDispKernel(t *testing.T) {
	g := irf.IRFGeom(testGeom())
	et := etrue()
	d := irf.DiagonalEDispMap(g, et, irf.DefaultMigraAxis())
	reco := et.Copy("energy")
	k := d.Kernel(g.CenterSkyDir(), reco)
	for e, row := range k.Data {
		if math.Abs(row[e]-1) > 1e-12 {
			t.Fatal("diagonal kernel row", e, row)
		}
	}
	v := k.Apply([]float64{1, 2, 3})
	if math.Abs(v[1]-2) > 1e-12 {
		t.Fatal("apply", v)
	}
	dk := irf.DiagonalKernel(et, geom.EnergyAxisFromBounds(.1, 10, 1, "TeV", ""))
	if r := dk.Apply([]float64{1, 2, 3}); r[0] != 6 {
		t.Fatal("diagonal kernel onto one bin", r)
	}
}

func TestStackWeighted(t *testing.T) {
	g := irf.IRFGeom(testGeom())
	sa, sb := unit.AngleFromDeg(.05), unit.AngleFromDeg(.1)
	a := irf.GaussPSFMap(g, etrue(), irf.DefaultRadAxis(), []unit.Angle{sa}, 1)
	b := irf.GaussPSFMap(g, etrue(), irf.DefaultRadAxis(), []unit.Angle{sb}, 3)
	a0, b0 := a.PSF.Data[0], b.PSF.Data[0]
	if err := a.Stack(b); err != nil {
		t.Fatal(err)
	}
	want := (a0 + 3*b0) / 4
	if math.Abs(a.PSF.Data[0]-want) > 1e-9*want {
		t.Fatal("weighted psf", a.PSF.Data[0], "want", want)
	}
	if a.Exposure.Data[0] != 4 {
		t.Fatal("stacked exposure", a.Exposure.Data[0])
	}
	if b.Exposure.Data[0] != 3 {
		t.Fatal("stack modified argument")
	}

	img := a.ToImage()
	if img.PSF.Geom.Axes[1].Nbin() != 1 {
		t.Fatal("to image true energy bins", img.PSF.Geom.Axes[1].Nbin())
	}
	if math.Abs(img.PSF.Data[0]-want) > 1e-9*want {
		t.Fatal("collapsed psf", img.PSF.Data[0])
	}
}

func TestCutout(t *testing.T) {
	cg := testGeom()
	g := irf.IRFGeom(cg)
	p := irf.CreatePSFMap(g, etrue(), irf.DefaultRadAxis())
	sub, err := cg.Cutout(cg.CenterSkyDir(),
		[2]unit.Angle{unit.AngleFromDeg(.6), unit.AngleFromDeg(.6)})
	if err != nil {
		t.Fatal(err)
	}
	c, err := p.Cutout(sub)
	if err != nil {
		t.Fatal(err)
	}
	// .6 deg plus a .2 deg pixel each side
	if c.PSF.Geom.Nx != 5 || c.Exposure.Geom.Nx != 5 {
		t.Fatal("cutout size", c.PSF.Geom.Nx)
	}
}
