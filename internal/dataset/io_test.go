// Public domain.

package dataset_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/soniakeys/mapds/internal/dataset"
	"github.com/soniakeys/mapds/internal/maps"
)

func TestHDUNames(t *testing.T) {
	d := testDataset("a")
	d.MaskFit = maps.MaskFromGeom(testGeom(), true)
	want := []string{"PRIMARY",
		"COUNTS", "COUNTS_BANDS",
		"EXPOSURE", "EXPOSURE_BANDS",
		"BACKGROUND", "BACKGROUND_BANDS",
		"EDISP", "EDISP_BANDS", "EDISP_EXPOSURE", "EDISP_EXPOSURE_BANDS",
		"PSF", "PSF_BANDS", "PSF_EXPOSURE", "PSF_EXPOSURE_BANDS",
		"MASK_SAFE", "MASK_SAFE_BANDS",
		"MASK_FIT", "MASK_FIT_BANDS",
		"GTI",
	}
	if got := d.HDUNames(); !reflect.DeepEqual(got, want) {
		t.Fatal(got)
	}
	// absent parts drop out, order kept
	d.Exposure, d.PSF, d.MaskFit = nil, nil, nil
	want = []string{"PRIMARY", "COUNTS", "COUNTS_BANDS", "BACKGROUND", "BACKGROUND_BANDS",
		"EDISP", "EDISP_BANDS", "EDISP_EXPOSURE", "EDISP_EXPOSURE_BANDS",
		"MASK_SAFE", "MASK_SAFE_BANDS", "GTI"}
	if got := d.HDUNames(); !reflect.DeepEqual(got, want) {
		t.Fatal(got)
	}
}

func TestOnOffHDUNames(t *testing.T) {
	want := []string{"PRIMARY", "COUNTS", "COUNTS_BANDS", "EXPOSURE", "EXPOSURE_BANDS",
		"MASK_SAFE", "MASK_SAFE_BANDS", "GTI",
		"COUNTS_OFF", "COUNTS_OFF_BANDS", "ACCEPTANCE", "ACCEPTANCE_BANDS",
		"ACCEPTANCE_OFF", "ACCEPTANCE_OFF_BANDS"}
	if got := testOnOff("on").HDUNames(); !reflect.DeepEqual(got, want) {
		t.Fatal(got)
	}
}

func TestWriteRead(t *testing.T) {
	d := testDataset("a")
	d.Counts.Set(1, 3, 4, 17)
	d.MaskSafe.Data[5] = false
	fn := filepath.Join(t.TempDir(), "a.fits")
	if err := d.Write(fn, false); err != nil {
		t.Fatal(err)
	}
	if err := d.Write(fn, false); !errors.Is(err, os.ErrExist) {
		t.Fatal("write without overwrite should fail on an existing file", err)
	}
	if err := d.Write(fn, true); err != nil {
		t.Fatal(err)
	}
	r, err := dataset.ReadMapDataset(fn, "b")
	if err != nil {
		t.Fatal(err)
	}
	if r.Name() != "b" {
		t.Fatal(r.Name())
	}
	if !r.Counts.Geom.Equal(d.Counts.Geom) || !reflect.DeepEqual(r.Counts.Data, d.Counts.Data) {
		t.Fatal("counts")
	}
	if !reflect.DeepEqual(r.MaskSafe.Data, d.MaskSafe.Data) {
		t.Fatal("safe mask")
	}
	if math.Abs(r.Exposure.Sum()-d.Exposure.Sum()) > 1e-6*d.Exposure.Sum() {
		t.Fatal("exposure", r.Exposure.Sum())
	}
	if r.Exposure.Unit != "cm2 s" {
		t.Fatal(r.Exposure.Unit)
	}
	if r.BackgroundModel == nil || r.BackgroundModel.Name() != "b-bkg" {
		t.Fatal("background model")
	}
	if math.Abs(r.BackgroundModel.Map.Sum()-160) > 1e-9 {
		t.Fatal(r.BackgroundModel.Map.Sum())
	}
	if r.PSF == nil || !reflect.DeepEqual(r.PSF.PSF.Geom.DataShape(), d.PSF.PSF.Geom.DataShape()) {
		t.Fatal("psf")
	}
	if r.EDisp == nil || math.Abs(r.EDisp.EDisp.Sum()-d.EDisp.EDisp.Sum()) > 1e-9 {
		t.Fatal("edisp")
	}
	if r.GTI.TimeSum() != 1000 {
		t.Fatal(r.GTI.TimeSum())
	}
	s0, _ := d.StatSum()
	s1, err := r.StatSum()
	if err != nil || math.Abs(s0-s1) > 1e-9*s0 {
		t.Fatal("stat sum", s0, s1, err)
	}
}

func TestWriteReadOnOff(t *testing.T) {
	d := testOnOff("on")
	d.CountsOff.Data[9] = 3
	fn := filepath.Join(t.TempDir(), "on.fits")
	if err := d.Write(fn, false); err != nil {
		t.Fatal(err)
	}
	r, err := dataset.ReadMapDatasetOnOff(fn, "on")
	if err != nil {
		t.Fatal(err)
	}
	if r.BackgroundModel != nil {
		t.Fatal("background model")
	}
	if !reflect.DeepEqual(r.CountsOff.Data, d.CountsOff.Data) {
		t.Fatal("off counts")
	}
	a, err := r.Alpha()
	if err != nil {
		t.Fatal(err)
	}
	allNear(t, "alpha", a.Data, .5)
}

func TestHDF5RoundTrip(t *testing.T) {
	a := testDataset("a")
	a.Counts.Set(0, 1, 2, 5)
	on := testOnOff("on")
	fn := filepath.Join(t.TempDir(), "ds.h5")
	if err := (dataset.Datasets{a, on}).WriteHDF5(fn); err != nil {
		t.Fatal(err)
	}
	r, err := dataset.ReadHDF5MapDataset(fn, "a")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.Counts.Data, a.Counts.Data) || !r.Counts.Geom.Equal(a.Counts.Geom) {
		t.Fatal("counts")
	}
	if r.BackgroundModel == nil || r.BackgroundModel.Name() != "a-bkg" {
		t.Fatal("background")
	}
	if r.GTI == nil || r.GTI.TimeSum() != 1000 {
		t.Fatal("gti", r.GTI)
	}
	if r.PSF == nil || r.EDisp == nil || r.MaskSafe.Count() != 800 {
		t.Fatal("responses or mask")
	}
	ds, err := dataset.ReadHDF5(fn)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 2 {
		t.Fatal(ds.Names())
	}
	ro, ok := ds.Get("on").(*dataset.MapDatasetOnOff)
	if !ok {
		t.Fatal("on/off dataset type")
	}
	if !reflect.DeepEqual(ro.AcceptanceOff.Data, on.AcceptanceOff.Data) {
		t.Fatal("off acceptance")
	}
}

func TestPlotResiduals(t *testing.T) {
	d := testDataset("a")
	d.SetModels(testSkyModel(0), d.BackgroundModel)
	dir := t.TempDir()
	sp, spc := filepath.Join(dir, "spatial.png"), filepath.Join(dir, "spectral.png")
	if err := d.PlotResiduals(sp, spc, dataset.ResidualDiffSqrt); err != nil {
		t.Fatal(err)
	}
	for _, fn := range []string{sp, spc} {
		if fi, err := os.Stat(fn); err != nil || fi.Size() == 0 {
			t.Fatal(fn, err)
		}
	}
	err := d.PlotResiduals(sp, "", "bogus")
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatal(err)
	}
}
