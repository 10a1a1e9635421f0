// Public domain.

package dataset_test

import (
	"math"
	"testing"

	"github.com/soniakeys/mapds/internal/maps"
)

func mapsNear(t *testing.T, what string, a, b *maps.Map) {
	t.Helper()
	if len(a.Data) != len(b.Data) {
		t.Fatal(what, "sizes", len(a.Data), len(b.Data))
	}
	for i, v := range a.Data {
		if math.Abs(v-b.Data[i]) > 1e-9*math.Max(1, math.Abs(v)) {
			t.Fatal(what, i, v, b.Data[i])
		}
	}
}

func TestStackAssociative(t *testing.T) {
	a, b, c := testDataset("a"), testDataset("b"), testDataset("c")
	for i := 0; i < 100; i++ {
		b.MaskSafe.Data[i] = false
	}
	for i := 300; i < 500; i++ {
		c.MaskSafe.Data[i] = false
	}
	for i := range c.Counts.Data {
		c.Counts.Data[i] = 2
	}
	c.Exposure = c.Exposure.Scale(3)

	// (a + b) + c
	x := a.Copy("")
	if err := x.Stack(b); err != nil {
		t.Fatal(err)
	}
	if err := x.Stack(c); err != nil {
		t.Fatal(err)
	}
	// a + (b + c)
	bc := b.Copy("")
	if err := bc.Stack(c); err != nil {
		t.Fatal(err)
	}
	y := a.Copy("")
	if err := y.Stack(bc); err != nil {
		t.Fatal(err)
	}

	mapsNear(t, "counts", x.Counts, y.Counts)
	mapsNear(t, "background", x.BackgroundModel.Map, y.BackgroundModel.Map)
	mapsNear(t, "exposure", x.Exposure, y.Exposure)
	mapsNear(t, "psf", x.PSF.PSF, y.PSF.PSF)
	mapsNear(t, "edisp", x.EDisp.EDisp, y.EDisp.EDisp)
	for i, m := range x.MaskSafe.Data {
		if m != y.MaskSafe.Data[i] || !m {
			t.Fatal("mask", i)
		}
	}
	// 1 + 1 + 2 where all safe
	if v := x.Counts.Data[600]; v != 4 {
		t.Fatal(v)
	}
	if b.Counts.Sum() != 800 || c.Counts.Sum() != 1600 {
		t.Fatal("stacked datasets modified")
	}
}
