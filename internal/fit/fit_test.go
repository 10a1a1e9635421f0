// Public domain.

package fit_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/dataset"
	"github.com/soniakeys/mapds/internal/fit"
	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
)

// bkgDataset has counts .3 over a background of .2 in 800 bins.
func bkgDataset() *dataset.MapDataset {
	e := geom.EnergyAxisFromBounds(.1, 10, 2, "TeV", "")
	g := geom.Create(geom.NewSkyCoord(0, 0, geom.FrameGalactic), unit.AngleFromDeg(.1),
		[2]unit.Angle{unit.AngleFromDeg(2), unit.AngleFromDeg(2)}, e)
	d := dataset.NewMapDataset(dataset.WithName("a"),
		dataset.WithCounts(maps.Filled(g.Copy(), .3, "")))
	d.SetModels(models.NewBackgroundModel(maps.Filled(g.Copy(), .2, ""), "bkg", "a"))
	return d
}

func TestFitBackgroundNorm(t *testing.T) {
	d := bkgDataset()
	r, err := fit.New(dataset.Datasets{d}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Success {
		t.Fatal(r.Message)
	}
	norm := d.BackgroundModel.Norm()
	if math.Abs(norm.Value-1.5) > 1e-3 {
		t.Fatal("norm", norm.Value)
	}
	// second derivative of the statistic is 800 * 2 * .3 / norm^2
	want := math.Sqrt(2 / (800 * .6 / 2.25))
	if math.Abs(norm.Error-want) > .05*want {
		t.Fatal("error", norm.Error, "want", want)
	}
	if len(r.Parameters) != 1 || r.Parameters[0].Name != "norm" {
		t.Fatal(r.Parameters.Names())
	}
	if r.NFev == 0 || !strings.Contains(r.String(), fit.Backend) {
		t.Fatal(r)
	}
}

func TestFitNoFree(t *testing.T) {
	d := bkgDataset()
	d.BackgroundModel.Norm().Frozen = true
	if _, err := fit.New(dataset.Datasets{d}).Run(context.Background()); !errors.Is(err, fit.ErrNoFreeParameters) {
		t.Fatal(err)
	}
}

func TestFitCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fit.New(dataset.Datasets{bkgDataset()}).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatal(err)
	}
}
