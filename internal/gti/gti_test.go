// Public domain.

package gti_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/soniakeys/mapds/internal/gti"
	"github.com/soniakeys/mapds/internal/maps"
)

func ExampleGTI_Union() {
	g, _ := gti.Create([]float64{0, 50, 200}, []float64{100, 150, 300}, time.Time{})
	u := g.Union()
	fmt.Println(u.Start, u.Stop, u.TimeSum())
	// Output:
	// [0 200] [150 300] 250
}

func TestStack(t *testing.T) {
	ref := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := gti.Create([]float64{0}, []float64{3600}, ref)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := gti.Create([]float64{0}, []float64{1800}, ref.Add(time.Hour))
	a.Stack(b)
	switch {
	case a.Len() != 2:
		t.Fatal(a)
	case a.Start[1] != 3600 || a.Stop[1] != 5400:
		t.Fatal("rebased interval", a.Start[1], a.Stop[1])
	case a.TimeSum() != 5400:
		t.Fatal(a.TimeSum())
	case a.TimeDelta() != 5400:
		t.Fatal(a.TimeDelta())
	case !a.TimeStop().Equal(ref.Add(90 * time.Minute)):
		t.Fatal(a.TimeStop())
	}
	if gti.Empty().TimeDelta() != 0 {
		t.Fatal("empty time delta")
	}
	if _, err := gti.Create([]float64{1}, []float64{0}, ref); err == nil {
		t.Fatal("expected error for reversed interval")
	}
}

func TestFITSRoundTrip(t *testing.T) {
	ref := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	g, _ := gti.Create([]float64{0, 7200}, []float64{3600, 9000}, ref)
	fn := filepath.Join(t.TempDir(), "gti.fits")
	w, err := os.Create(fn)
	if err != nil {
		t.Fatal(err)
	}
	f, err := maps.CreateFile(w)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.WriteHDU(f); err != nil {
		t.Fatal(err)
	}
	f.Close()
	w.Close()

	r, err := os.Open(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	rf, err := fitsio.Open(r)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	g2, err := gti.ReadHDU(maps.IndexHDUs(rf))
	if err != nil {
		t.Fatal(err)
	}
	if g2.TimeSum() != g.TimeSum() || g2.Len() != 2 {
		t.Fatal("round trip", g2)
	}
	if d := g2.Reference.Sub(ref); d > time.Millisecond || d < -time.Millisecond {
		t.Fatal("reference time", g2.Reference)
	}
}
