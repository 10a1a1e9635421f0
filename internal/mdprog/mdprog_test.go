// Public domain.

package mdprog

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/soniakeys/unit"
	"github.com/spf13/viper"

	"github.com/soniakeys/mapds/internal/dataset"
	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/gti"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
)

func TestOrdered(t *testing.T) {
	got, err := ordered(context.Background(), 50, func(_ context.Context, i int) (int, error) {
		time.Sleep(time.Duration(50-i) * 10 * time.Microsecond)
		return i * i, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		if v != i*i {
			t.Fatal(i, v)
		}
	}
	if len(got) != 50 {
		t.Fatal(len(got))
	}
	bad := errors.New("bad")
	_, err = ordered(context.Background(), 50, func(_ context.Context, i int) (int, error) {
		if i == 7 {
			return 0, bad
		}
		return i, nil
	})
	if err != bad {
		t.Fatal(err)
	}
	if r, err := ordered(context.Background(), 0, func(context.Context, int) (int, error) {
		return 0, nil
	}); err != nil || len(r) != 0 {
		t.Fatal(r, err)
	}
}

// writeInput writes a collection of two small map datasets to dir.
func writeInput(t *testing.T, dir string) string {
	e := geom.EnergyAxisFromBounds(.1, 10, 2, "TeV", "")
	g := geom.CreateNpix(geom.NewSkyCoord(0, 0, geom.FrameGalactic), unit.AngleFromDeg(.1), 10, 10, e)
	var ds dataset.Datasets
	for _, n := range []string{"a", "b"} {
		tg, err := gti.Create([]float64{0}, []float64{100}, time.Time{})
		if err != nil {
			t.Fatal(err)
		}
		d := dataset.NewMapDataset(
			dataset.WithName(n),
			dataset.WithCounts(maps.Filled(g.Copy(), 1, "")),
			dataset.WithMaskSafe(maps.MaskFromGeom(g.Copy(), true)),
			dataset.WithGTI(tg),
		)
		d.BackgroundModel = models.NewBackgroundModel(maps.Filled(g.Copy(), .5, ""), n+"-bkg", n)
		if err := ds.Append(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := ds.Write(dir, "in", false); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, dataset.IndexFilename("in"))
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out, log bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&log)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err, log.String())
	}
	return out.String()
}

func TestInfo(t *testing.T) {
	index := writeInput(t, t.TempDir())
	out := run(t, "info", index)
	if !strings.Contains(out, "Datasets: 2") || !strings.Contains(out, "a-bkg") {
		t.Fatal(out)
	}
}

func TestStack(t *testing.T) {
	dir := t.TempDir()
	index := writeInput(t, dir)
	run(t, "stack", "--outdir", dir, "--prefix", "st", "--name", "all", index)
	ds, err := dataset.ReadDatasets(filepath.Join(dir, dataset.IndexFilename("st")), "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ds.Names(), []string{"all"}) {
		t.Fatal(ds.Names())
	}
	d := ds[0].(*dataset.MapDataset)
	if d.Counts.Sum() != 400 || d.BackgroundModel.Map.Sum() != 200 {
		t.Fatal(d.Counts.Sum(), d.BackgroundModel.Map.Sum())
	}
}

func TestImageAndCutout(t *testing.T) {
	dir := t.TempDir()
	index := writeInput(t, dir)
	run(t, "image", "--outdir", dir, "--prefix", "img", index)
	run(t, "cutout", "--outdir", dir, "--prefix", "cut", "--frame", "galactic", "--width", ".5",
		filepath.Join(dir, dataset.IndexFilename("img")))
	ds, err := dataset.ReadDatasets(filepath.Join(dir, dataset.IndexFilename("cut")), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 2 {
		t.Fatal(ds.Names())
	}
	if s := ds[1].(*dataset.MapDataset).Counts.Geom.DataShape(); !reflect.DeepEqual(s, []int{1, 5, 5}) {
		t.Fatal(s)
	}
}

func TestFakeRepeatable(t *testing.T) {
	dir := t.TempDir()
	index := writeInput(t, dir)
	read := func(prefix string) []float64 {
		run(t, "fake", "--outdir", dir, "--prefix", prefix, "--seed", "7", index)
		ds, err := dataset.ReadDatasets(filepath.Join(dir, dataset.IndexFilename(prefix)), "")
		if err != nil {
			t.Fatal(err)
		}
		return append(ds[0].(*dataset.MapDataset).Counts.Data,
			ds[1].(*dataset.MapDataset).Counts.Data...)
	}
	f1, f2 := read("f1"), read("f2")
	if !reflect.DeepEqual(f1, f2) {
		t.Fatal("same seed gave different counts")
	}
	if reflect.DeepEqual(f1[:200], f1[200:]) {
		t.Fatal("datasets faked with the same seed")
	}
}

func TestOverwrite(t *testing.T) {
	dir := t.TempDir()
	index := writeInput(t, dir)
	run(t, "image", "--outdir", dir, "--prefix", "img", index)
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"image", "--outdir", dir, "--prefix", "img", index})
	if err := cmd.Execute(); err == nil {
		t.Fatal("existing output overwritten")
	}
	run(t, "image", "--outdir", dir, "--prefix", "img", "--overwrite", index)
}

func TestFitCommand(t *testing.T) {
	dir := t.TempDir()
	index := writeInput(t, dir)
	out := run(t, "fit", "--outdir", dir, "--prefix", "fitted", index)
	if !strings.Contains(out, "OptimizeResult") {
		t.Fatal(out)
	}
	ds, err := dataset.ReadDatasets(filepath.Join(dir, dataset.IndexFilename("fitted")),
		filepath.Join(dir, dataset.ModelsFilename("fitted")))
	if err != nil {
		t.Fatal(err)
	}
	// counts 1 over background .5
	for _, d := range ds {
		if n := d.(*dataset.MapDataset).BackgroundModel.Norm().Value; n < 1.99 || n > 2.01 {
			t.Fatal(d.Name(), n)
		}
	}
}

func TestModelsPath(t *testing.T) {
	dir := t.TempDir()
	index := writeInput(t, dir)
	p := &program{v: viper.New()}
	if m := p.modelsPath(index); m != filepath.Join(dir, "in_models.yaml") {
		t.Fatal(m)
	}
	if m := p.modelsPath(filepath.Join(dir, "other.yaml")); m != "" {
		t.Fatal(m)
	}
	p.v.Set(keyModels, "m.yaml")
	if m := p.modelsPath(index); m != "m.yaml" {
		t.Fatal(m)
	}
}
