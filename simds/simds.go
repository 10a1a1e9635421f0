/*
Command simds generates a collection of simulated map datasets for use by
the program mapds.

Each simulated observation covers the same 4 x 4 deg field around the
galactic center in four reconstructed energy bins from .1 to 10 TeV.
Observations differ in livetime, cycling through 30, 60 and 90 minutes.
Exposure is a flat effective area of 1e5 m2 times livetime, the PSF is a
Gaussian of .1 deg, energy dispersion is diagonal, and the background is
.02 counts per bin per 30 minutes.  A single Gaussian source with a power
law spectrum is placed near the field center.  Counts are a Poisson draw
from the predicted counts, observation i drawn with seed+i.

Usage

Usage:

   simds [options] [output prefix]
   simds -v

Options:

   -n <observations>   number of observations, default 4
   -s <seed>           random seed, default 1
   -d <directory>      output directory, default "."

The collection is written as <prefix>_datasets.yaml with one FITS file per
observation and the source and background models in <prefix>_models.yaml.
The default prefix is "sim".

-------------
Public domain.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/soniakeys/exit"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/dataset"
	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/gti"
	"github.com/soniakeys/mapds/internal/irf"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
)

const versionString = "simds version 0.2"
const copyrightString = "Public domain."

// Field and instrument of the simulation.
var (
	fieldCenter = geom.NewSkyCoord(0, 0, geom.FrameGalactic)
	binsz       = unit.AngleFromDeg(.05)
	fieldWidth  = [2]unit.Angle{unit.AngleFromDeg(4), unit.AngleFromDeg(4)}
	psfSigma    = unit.AngleFromDeg(.1)
	aeff        = 1e9    // cm2
	bkgRate     = .02    // counts per bin per 30 min
	baseLive    = 1800.0 // s
)

func main() {
	defer exit.Handler()
	flag.Usage = func() {
		os.Stderr.WriteString(`Usage:
   simds [options] [output prefix]
   simds -v

For full documentation:
   go doc github.com/soniakeys/mapds/simds
`)
	}
	n := flag.Int("n", 4, "")
	seed := flag.Uint64("s", 1, "")
	dir := flag.String("d", ".", "")
	vers := flag.Bool("v", false, "display version and copyright")
	flag.Parse()
	if *vers {
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	}
	prefix := "sim"
	switch flag.NArg() {
	case 0:
	case 1:
		prefix = flag.Arg(0)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if *n < 1 {
		exit.Log(fmt.Errorf("need at least one observation, got %d", *n))
	}

	ds, err := simulate(*n, *seed, source())
	if err != nil {
		exit.Log(err)
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		exit.Log(err)
	}
	if err := ds.Write(*dir, prefix, false); err != nil {
		exit.Log(err)
	}
	for _, d := range ds {
		md := d.(*dataset.MapDataset)
		fmt.Printf("%8s %8.0f s %8.0f counts\n", md.Name(), md.GTI.TimeSum(), md.Counts.Sum())
	}
}

// source is the simulated sky model.
func source() *models.SkyModel {
	return models.NewSkyModel(
		models.NewGaussianSpatialModel(.3, -.2, unit.AngleFromDeg(.2), geom.FrameGalactic),
		models.NewPowerLawSpectralModel(2.3, 5e-12, 1), "source")
}

// obs is the result of simulating observation i.
type obs struct {
	i   int
	d   *dataset.MapDataset
	err error
}

// simulate builds n observations in parallel and returns them in order.
func simulate(n int, seed uint64, src *models.SkyModel) (dataset.Datasets, error) {
	// a source of observation numbers
	iCh := make(chan int)
	go func() {
		for i := 0; i < n; i++ {
			iCh <- i
		}
		close(iCh)
	}()

	// start a number of simulators in parallel.
	// each returns observations on oCh
	oCh := make(chan obs)
	nProc := runtime.GOMAXPROCS(0)
	if nProc > n {
		nProc = n
	}
	for p := 0; p < nProc; p++ {
		go func() {
			for i := range iCh {
				d, err := observation(i, seed+uint64(i), src)
				oCh <- obs{i, d, err}
			}
		}()
	}

	// collect observations in order
	all := make([]*dataset.MapDataset, n)
	var first error
	for range n {
		o := <-oCh
		if o.err != nil && first == nil {
			first = o.err
		}
		all[o.i] = o.d
	}
	if first != nil {
		return nil, first
	}
	var ds dataset.Datasets
	for _, d := range all {
		if err := ds.Append(d); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// observation simulates observation i.
func observation(i int, seed uint64, src *models.SkyModel) (*dataset.MapDataset, error) {
	name := fmt.Sprintf("obs%03d", i+1)
	live := baseLive * float64(1+i%3)
	e := geom.EnergyAxisFromBounds(.1, 10, 4, "TeV", "")
	et := geom.EnergyAxisFromBounds(.05, 20, 8, "TeV", irf.AxisEnergyTrue)
	g := geom.Create(fieldCenter, binsz, fieldWidth, e)
	ig := irf.IRFGeom(g)
	t, err := gti.Create([]float64{0}, []float64{live}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(i)*24*time.Hour))
	if err != nil {
		return nil, err
	}
	d := dataset.NewMapDataset(
		dataset.WithName(name),
		dataset.WithExposure(maps.Filled(g.ToImage().ToCube(et), aeff*live, "cm2 s")),
		dataset.WithPSF(irf.GaussPSFMap(ig, et, irf.DefaultRadAxis(), []unit.Angle{psfSigma}, aeff*live)),
		dataset.WithEDisp(irf.DiagonalEDispMap(ig, et, irf.DefaultMigraAxis())),
		dataset.WithMaskSafe(maps.MaskFromGeom(g.Copy(), true)),
		dataset.WithGTI(t),
	)
	d.SetModels(src, models.NewBackgroundModel(
		maps.Filled(g.Copy(), bkgRate*live/baseLive, ""), name+"-bkg", name))
	if err := d.Fake(seed); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
