// Public domain.

package maps

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/geom"
)

// BandsSuffix names the axis description table following each image HDU.
const BandsSuffix = "_BANDS"

// HDUIndex maps HDU names to the HDUs of an open file.
type HDUIndex map[string]fitsio.HDU

// IndexHDUs indexes the HDUs of f by name.
func IndexHDUs(f *fitsio.File) HDUIndex {
	idx := HDUIndex{}
	for _, h := range f.HDUs() {
		idx[strings.ToUpper(h.Name())] = h
	}
	return idx
}

// Has reports whether the named HDU is present.
func (idx HDUIndex) Has(name string) bool {
	_, ok := idx[name]
	return ok
}

// CreateFile starts a FITS file on w with an empty primary HDU.
func CreateFile(w io.Writer) (*fitsio.File, error) {
	f, err := fitsio.Create(w)
	if err != nil {
		return nil, err
	}
	phdu := fitsio.NewImage(8, nil)
	defer phdu.Close()
	if err := f.Write(phdu); err != nil {
		f.Close()
		return nil, &ErrWriteHDU{"PRIMARY", err}
	}
	return f, nil
}

// WriteHDU appends image HDU name and its bands table to f.
func (m *Map) WriteHDU(f *fitsio.File, name string) error {
	im := fitsio.NewImage(-64, fitsAxes(m.Geom))
	defer im.Close()
	cards := append(wcsCards(m.Geom, name), fitsio.Card{Name: "BUNIT", Value: m.Unit})
	if err := im.Header().Append(cards...); err != nil {
		return &ErrWriteHDU{name, err}
	}
	if err := im.Write(m.Data); err != nil {
		return &ErrWriteHDU{name, err}
	}
	if err := f.Write(im); err != nil {
		return &ErrWriteHDU{name, err}
	}
	return writeBands(f, m.Geom, name)
}

// WriteHDU appends the mask as a BITPIX 8 image HDU and its bands table.
func (m *Mask) WriteHDU(f *fitsio.File, name string) error {
	im := fitsio.NewImage(8, fitsAxes(m.Geom))
	defer im.Close()
	if err := im.Header().Append(wcsCards(m.Geom, name)...); err != nil {
		return &ErrWriteHDU{name, err}
	}
	b := make([]byte, len(m.Data))
	for i, v := range m.Data {
		if v {
			b[i] = 1
		}
	}
	if err := im.Write(b); err != nil {
		return &ErrWriteHDU{name, err}
	}
	if err := f.Write(im); err != nil {
		return &ErrWriteHDU{name, err}
	}
	return writeBands(f, m.Geom, name)
}

// fitsAxes is the NAXISn list, fastest varying first.
func fitsAxes(g *geom.Geom) []int {
	ax := []int{g.Nx, g.Ny}
	for _, a := range g.Axes {
		ax = append(ax, a.Nbin())
	}
	return ax
}

func wcsCards(g *geom.Geom, name string) []fitsio.Card {
	c1, c2 := "RA---CAR", "DEC--CAR"
	if g.Frame == geom.FrameGalactic {
		c1, c2 = "GLON-CAR", "GLAT-CAR"
	}
	cards := []fitsio.Card{
		{Name: "EXTNAME", Value: name},
		{Name: "CTYPE1", Value: c1},
		{Name: "CTYPE2", Value: c2},
		{Name: "CRVAL1", Value: g.Center.Lon.Deg()},
		{Name: "CRVAL2", Value: g.Center.Lat.Deg()},
		{Name: "CDELT1", Value: -g.Binsz.Deg()},
		{Name: "CDELT2", Value: g.Binsz.Deg()},
		{Name: "CRPIX1", Value: g.CrPix1},
		{Name: "CRPIX2", Value: g.CrPix2},
		{Name: "CUNIT1", Value: "deg"},
		{Name: "CUNIT2", Value: "deg"},
	}
	for i, a := range g.Axes {
		n := strconv.Itoa(i + 3)
		cards = append(cards,
			fitsio.Card{Name: "CTYPE" + n, Value: a.Name},
			fitsio.Card{Name: "CUNIT" + n, Value: a.Unit})
	}
	return append(cards, fitsio.Card{Name: "BANDSHDU", Value: name + BandsSuffix})
}

func bandColumns(a *geom.Axis) (lo, hi string) {
	if a.Name == "energy" {
		return "E_MIN", "E_MAX"
	}
	u := strings.ToUpper(a.Name)
	return u + "_MIN", u + "_MAX"
}

// writeBands writes one row per band: CHANNEL then lo, hi edges for each
// axis.
func writeBands(f *fitsio.File, g *geom.Geom, name string) error {
	tname := name + BandsSuffix
	cols := []fitsio.Column{{Name: "CHANNEL", Format: "J"}}
	var cards []fitsio.Card
	for i, a := range g.Axes {
		lo, hi := bandColumns(a)
		cols = append(cols,
			fitsio.Column{Name: lo, Format: "D", Unit: a.Unit},
			fitsio.Column{Name: hi, Format: "D", Unit: a.Unit})
		n := strconv.Itoa(i + 1)
		cards = append(cards,
			fitsio.Card{Name: "AXCOLS" + n, Value: lo + "," + hi},
			fitsio.Card{Name: "AXNAME" + n, Value: a.Name},
			fitsio.Card{Name: "INTERP" + n, Value: a.Interp})
	}
	tbl, err := fitsio.NewTable(tname, cols, fitsio.BINARY_TBL)
	if err != nil {
		return &ErrWriteHDU{tname, err}
	}
	defer tbl.Close()
	if len(cards) > 0 {
		if err := tbl.Header().Append(cards...); err != nil {
			return &ErrWriteHDU{tname, err}
		}
	}
	row := make([]float64, 2*len(g.Axes))
	args := make([]interface{}, 1+len(row))
	var ch int32
	args[0] = &ch
	for i := range row {
		args[i+1] = &row[i]
	}
	for k := 0; k < g.NBands(); k++ {
		ch = int32(k)
		for a, b := range g.AxisIndexes(k) {
			row[2*a] = g.Axes[a].Lo(b)
			row[2*a+1] = g.Axes[a].Hi(b)
		}
		if err := tbl.Write(args...); err != nil {
			return &ErrWriteHDU{tname, err}
		}
	}
	if err := f.Write(tbl); err != nil {
		return &ErrWriteHDU{tname, err}
	}
	return nil
}

// ReadMap reads image HDU name and its bands table.
func ReadMap(idx HDUIndex, name string) (*Map, error) {
	img, g, err := readImage(idx, name)
	if err != nil {
		return nil, err
	}
	data := make([]float64, g.Size())
	if err := img.Read(&data); err != nil {
		return nil, &ErrReadHDU{name, err}
	}
	u, _ := HeaderString(img.Header(), "BUNIT")
	return &Map{Geom: g, Data: data, Unit: u}, nil
}

// ReadMask reads a mask written by Mask.WriteHDU.  Any non-zero value is
// true.
func ReadMask(idx HDUIndex, name string) (*Mask, error) {
	img, g, err := readImage(idx, name)
	if err != nil {
		return nil, err
	}
	b := make([]byte, g.Size())
	if err := img.Read(&b); err != nil {
		return nil, &ErrReadHDU{name, err}
	}
	m := MaskFromGeom(g, false)
	for i, v := range b {
		m.Data[i] = v != 0
	}
	return m, nil
}

func readImage(idx HDUIndex, name string) (fitsio.Image, *geom.Geom, error) {
	h, ok := idx[name]
	if !ok {
		return nil, nil, &ErrReadHDU{name, ErrNoHDU}
	}
	img, ok := h.(fitsio.Image)
	if !ok {
		return nil, nil, &ErrReadHDU{name, fmt.Errorf("not an image HDU")}
	}
	g, err := readGeom(img.Header())
	if err != nil {
		return nil, nil, &ErrReadHDU{name, err}
	}
	if len(g.Axes) > 0 {
		bands := name + BandsSuffix
		if g.Axes, err = readBands(idx, bands, img.Header().Axes()[2:]); err != nil {
			return nil, nil, &ErrReadHDU{bands, err}
		}
	}
	return img, g, nil
}

// readGeom reads the spatial part of the geometry.  Non-spatial axes are
// allocated but not filled.
func readGeom(h *fitsio.Header) (*geom.Geom, error) {
	ax := h.Axes()
	if len(ax) < 2 {
		return nil, fmt.Errorf("image has %d axes, need at least 2", len(ax))
	}
	var v [6]float64
	for i, k := range []string{"CRVAL1", "CRVAL2", "CDELT2", "CRPIX1", "CRPIX2", "CDELT1"} {
		var ok bool
		if v[i], ok = HeaderFloat(h, k); !ok {
			return nil, fmt.Errorf("missing or invalid %s", k)
		}
	}
	frame := geom.FrameICRS
	if c, _ := HeaderString(h, "CTYPE1"); strings.HasPrefix(c, "GLON") {
		frame = geom.FrameGalactic
	}
	g := geom.CreateNpix(geom.NewSkyCoord(v[0], v[1], frame),
		unit.AngleFromDeg(v[2]), ax[0], ax[1])
	g.CrPix1, g.CrPix2 = v[3], v[4]
	if n := len(ax) - 2; n > 0 {
		g.Axes = make([]*geom.Axis, n)
	}
	return g, nil
}

// readBands reconstructs axis edges from a bands table.  nbin is the bin
// count of each axis, from the image header.
func readBands(idx HDUIndex, name string, nbin []int) ([]*geom.Axis, error) {
	h, ok := idx[name]
	if !ok {
		return nil, ErrNoHDU
	}
	tbl, ok := h.(*fitsio.Table)
	if !ok {
		return nil, fmt.Errorf("not a table HDU")
	}
	hdr := tbl.Header()
	nax := len(nbin)
	names := make([]string, nax)
	interp := make([]string, nax)
	edges := make([][]float64, nax)
	for a := range names {
		n := strconv.Itoa(a + 1)
		names[a], _ = HeaderString(hdr, "AXNAME"+n)
		interp[a], _ = HeaderString(hdr, "INTERP"+n)
		edges[a] = make([]float64, nbin[a]+1)
	}
	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	row := make([]float64, 2*nax)
	args := make([]interface{}, 1+len(row))
	var ch int32
	args[0] = &ch
	for i := range row {
		args[i+1] = &row[i]
	}
	for rows.Next() {
		if err := rows.Scan(args...); err != nil {
			return nil, err
		}
		k := int(ch)
		for a := 0; a < nax; a++ {
			b := k % nbin[a]
			k /= nbin[a]
			edges[a][b], edges[a][b+1] = row[2*a], row[2*a+1]
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	axes := make([]*geom.Axis, nax)
	for a := range axes {
		u := tbl.Col(2*a + 1).Unit
		if axes[a], err = geom.NewAxis(names[a], edges[a], u, interp[a]); err != nil {
			return nil, err
		}
	}
	return axes, nil
}

// HeaderFloat returns a numeric card value.
func HeaderFloat(h *fitsio.Header, key string) (float64, bool) {
	c := h.Get(key)
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	}
	return 0, false
}

// HeaderString returns a string card value.
func HeaderString(h *fitsio.Header, key string) (string, bool) {
	c := h.Get(key)
	if c == nil {
		return "", false
	}
	s, ok := c.Value.(string)
	return strings.TrimSpace(s), ok
}
