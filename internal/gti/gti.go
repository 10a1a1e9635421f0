// Public domain.

// Package gti represents good time intervals, the spans of an observation
// usable for analysis, as offsets in seconds from a reference time.
package gti

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/soniakeys/meeus/v3/julian"

	"github.com/soniakeys/mapds/internal/maps"
)

// HDUName is the name of the GTI table block.
const HDUName = "GTI"

// DefaultReference is used when no reference time is given.
var DefaultReference = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// mjd0 is the Julian day of MJD 0.
const mjd0 = 2400000.5

// GTI is a list of intervals [Start[i], Stop[i]] in seconds from Reference.
type GTI struct {
	Start, Stop []float64
	Reference   time.Time
}

// Create validates intervals.  A zero reference selects DefaultReference.
func Create(start, stop []float64, reference time.Time) (*GTI, error) {
	if len(start) != len(stop) {
		return nil, errors.New("gti start and stop lengths differ")
	}
	for i := range start {
		if stop[i] < start[i] {
			return nil, fmt.Errorf("gti interval %d stops before it starts", i)
		}
	}
	if reference.IsZero() {
		reference = DefaultReference
	}
	return &GTI{
		Start:     append([]float64{}, start...),
		Stop:      append([]float64{}, stop...),
		Reference: reference,
	}, nil
}

// Empty returns a GTI with no intervals.
func Empty() *GTI {
	return &GTI{Reference: DefaultReference}
}

func (g *GTI) Len() int { return len(g.Start) }

// Copy returns a deep copy.  Copy of nil is nil.
func (g *GTI) Copy() *GTI {
	if g == nil {
		return nil
	}
	c := *g
	c.Start = append([]float64{}, g.Start...)
	c.Stop = append([]float64{}, g.Stop...)
	return &c
}

// TimeSum is the summed duration of all intervals, in seconds.
func (g *GTI) TimeSum() float64 {
	var s float64
	for i, t := range g.Start {
		s += g.Stop[i] - t
	}
	return s
}

// TimeDelta is the span from first start to last stop, in seconds.
func (g *GTI) TimeDelta() float64 {
	if g.Len() == 0 {
		return 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, t := range g.Start {
		lo = math.Min(lo, t)
		hi = math.Max(hi, g.Stop[i])
	}
	return hi - lo
}

func (g *GTI) at(s float64) time.Time {
	return g.Reference.Add(time.Duration(s * float64(time.Second)))
}

// TimeStart returns the earliest start; zero time if g is empty.
func (g *GTI) TimeStart() time.Time {
	if g.Len() == 0 {
		return time.Time{}
	}
	m := g.Start[0]
	for _, t := range g.Start {
		m = math.Min(m, t)
	}
	return g.at(m)
}

// TimeStop returns the latest stop; zero time if g is empty.
func (g *GTI) TimeStop() time.Time {
	if g.Len() == 0 {
		return time.Time{}
	}
	m := g.Stop[0]
	for _, t := range g.Stop {
		m = math.Max(m, t)
	}
	return g.at(m)
}

// Stack appends the intervals of o, rebased to the reference of g.
func (g *GTI) Stack(o *GTI) {
	off := o.Reference.Sub(g.Reference).Seconds()
	for i, t := range o.Start {
		g.Start = append(g.Start, t+off)
		g.Stop = append(g.Stop, o.Stop[i]+off)
	}
}

// Union returns sorted intervals with overlapping or touching intervals
// merged.
func (g *GTI) Union() *GTI {
	type iv struct{ a, b float64 }
	ivs := make([]iv, g.Len())
	for i := range ivs {
		ivs[i] = iv{g.Start[i], g.Stop[i]}
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].a < ivs[j].a })
	u := &GTI{Reference: g.Reference}
	for _, v := range ivs {
		if n := len(u.Stop); n > 0 && v.a <= u.Stop[n-1] {
			u.Stop[n-1] = math.Max(u.Stop[n-1], v.b)
			continue
		}
		u.Start = append(u.Start, v.a)
		u.Stop = append(u.Stop, v.b)
	}
	return u
}

func (g *GTI) String() string {
	return fmt.Sprintf("GTI %d intervals, %.6g s, reference %s",
		g.Len(), g.TimeSum(), g.Reference.Format(time.RFC3339))
}

// mjdRef splits the reference time into integer and fractional MJD.
func mjdRef(t time.Time) (int64, float64) {
	mjd := julian.TimeToJD(t) - mjd0
	i := math.Floor(mjd)
	return int64(i), mjd - i
}

// WriteHDU appends the GTI table to f.
func (g *GTI) WriteHDU(f *fitsio.File) error {
	cols := []fitsio.Column{
		{Name: "START", Format: "D", Unit: "s"},
		{Name: "STOP", Format: "D", Unit: "s"},
	}
	tbl, err := fitsio.NewTable(HDUName, cols, fitsio.BINARY_TBL)
	if err != nil {
		return &maps.ErrWriteHDU{Name: HDUName, Err: err}
	}
	defer tbl.Close()
	mi, mf := mjdRef(g.Reference)
	err = tbl.Header().Append(
		fitsio.Card{Name: "MJDREFI", Value: int(mi), Comment: "reference time, integer MJD"},
		fitsio.Card{Name: "MJDREFF", Value: mf, Comment: "reference time, fractional MJD"},
		fitsio.Card{Name: "TIMEUNIT", Value: "s"},
		fitsio.Card{Name: "TIMESYS", Value: "TT"},
		fitsio.Card{Name: "TIMEREF", Value: "LOCAL"},
	)
	if err != nil {
		return &maps.ErrWriteHDU{Name: HDUName, Err: err}
	}
	for i := range g.Start {
		if err := tbl.Write(&g.Start[i], &g.Stop[i]); err != nil {
			return &maps.ErrWriteHDU{Name: HDUName, Err: err}
		}
	}
	if err := f.Write(tbl); err != nil {
		return &maps.ErrWriteHDU{Name: HDUName, Err: err}
	}
	return nil
}

// ReadHDU reads the GTI table.
func ReadHDU(idx maps.HDUIndex) (*GTI, error) {
	h, ok := idx[HDUName]
	if !ok {
		return nil, &maps.ErrReadHDU{Name: HDUName, Err: maps.ErrNoHDU}
	}
	tbl, ok := h.(*fitsio.Table)
	if !ok {
		return nil, &maps.ErrReadHDU{Name: HDUName, Err: errors.New("not a table HDU")}
	}
	g := Empty()
	mi, iok := maps.HeaderFloat(tbl.Header(), "MJDREFI")
	mf, fok := maps.HeaderFloat(tbl.Header(), "MJDREFF")
	if iok || fok {
		g.Reference = julian.JDToTime(mi + mf + mjd0).Round(time.Millisecond)
	}
	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, &maps.ErrReadHDU{Name: HDUName, Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var a, b float64
		if err := rows.Scan(&a, &b); err != nil {
			return nil, &maps.ErrReadHDU{Name: HDUName, Err: err}
		}
		g.Start = append(g.Start, a)
		g.Stop = append(g.Stop, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &maps.ErrReadHDU{Name: HDUName, Err: err}
	}
	return g, nil
}
