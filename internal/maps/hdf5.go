// Public domain.

package maps

import (
	"fmt"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/geom"
)

// geomAttrs describes g as HDF5 dataset attributes.
func geomAttrs(g *geom.Geom) []hdf5.DatasetOption {
	shape := g.DataShape()
	s64 := make([]int64, len(shape))
	for i, n := range shape {
		s64[i] = int64(n)
	}
	opts := []hdf5.DatasetOption{
		hdf5.WithAttribute("shape", s64),
		hdf5.WithAttribute("frame", g.Frame),
		hdf5.WithAttribute("crval", []float64{g.Center.Lon.Deg(), g.Center.Lat.Deg()}),
		hdf5.WithAttribute("crpix", []float64{g.CrPix1, g.CrPix2}),
		hdf5.WithAttribute("binsz", g.Binsz.Deg()),
		hdf5.WithAttribute("npix", []int64{int64(g.Nx), int64(g.Ny)}),
		hdf5.WithAttribute("naxes", int64(len(g.Axes))),
	}
	for i, a := range g.Axes {
		p := fmt.Sprintf("axis%d_", i)
		opts = append(opts,
			hdf5.WithAttribute(p+"name", a.Name),
			hdf5.WithAttribute(p+"edges", a.Edges),
			hdf5.WithAttribute(p+"unit", a.Unit),
			hdf5.WithAttribute(p+"interp", a.Interp))
	}
	return opts
}

// WriteHDF5 stores m as a flat float64 dataset in grp, with the geometry
// and unit as attributes.
func (m *Map) WriteHDF5(grp *hdf5.Group, name string) error {
	opts := append(geomAttrs(m.Geom), hdf5.WithAttribute("unit", m.Unit))
	if _, err := grp.CreateDataset(name, m.Data, opts...); err != nil {
		return &ErrWriteHDU{name, err}
	}
	return nil
}

// WriteHDF5 stores the mask as a uint8 dataset.
func (m *Mask) WriteHDF5(grp *hdf5.Group, name string) error {
	b := make([]uint8, len(m.Data))
	for i, v := range m.Data {
		if v {
			b[i] = 1
		}
	}
	if _, err := grp.CreateDataset(name, b, geomAttrs(m.Geom)...); err != nil {
		return &ErrWriteHDU{name, err}
	}
	return nil
}

func readGeomAttrs(ds *hdf5.Dataset) (*geom.Geom, error) {
	attr := func(n string) (*hdf5.Attribute, error) {
		a := ds.Attr(n)
		if a == nil {
			return nil, fmt.Errorf("missing attribute %q", n)
		}
		return a, nil
	}
	a, err := attr("frame")
	if err != nil {
		return nil, err
	}
	frame, err := a.ReadScalarString()
	if err != nil {
		return nil, err
	}
	var crval, crpix []float64
	var npix []int64
	var binsz float64
	var naxes int64
	for _, r := range []struct {
		name string
		read func(*hdf5.Attribute) error
	}{
		{"crval", func(a *hdf5.Attribute) (err error) { crval, err = a.ReadFloat64(); return }},
		{"crpix", func(a *hdf5.Attribute) (err error) { crpix, err = a.ReadFloat64(); return }},
		{"npix", func(a *hdf5.Attribute) (err error) { npix, err = a.ReadInt64(); return }},
		{"binsz", func(a *hdf5.Attribute) (err error) { binsz, err = a.ReadScalarFloat64(); return }},
		{"naxes", func(a *hdf5.Attribute) (err error) { naxes, err = a.ReadScalarInt64(); return }},
	} {
		a, err := attr(r.name)
		if err != nil {
			return nil, err
		}
		if err := r.read(a); err != nil {
			return nil, fmt.Errorf("attribute %q: %w", r.name, err)
		}
	}
	if len(crval) != 2 || len(crpix) != 2 || len(npix) != 2 {
		return nil, fmt.Errorf("malformed spatial attributes")
	}
	axes := make([]*geom.Axis, naxes)
	for i := range axes {
		p := fmt.Sprintf("axis%d_", i)
		var s [3]string
		for j, n := range []string{"name", "unit", "interp"} {
			a, err := attr(p + n)
			if err != nil {
				return nil, err
			}
			if s[j], err = a.ReadScalarString(); err != nil {
				return nil, err
			}
		}
		a, err := attr(p + "edges")
		if err != nil {
			return nil, err
		}
		edges, err := a.ReadFloat64()
		if err != nil {
			return nil, err
		}
		if axes[i], err = geom.NewAxis(s[0], edges, s[1], s[2]); err != nil {
			return nil, err
		}
	}
	g := geom.CreateNpix(geom.NewSkyCoord(crval[0], crval[1], frame),
		unit.AngleFromDeg(binsz), int(npix[0]), int(npix[1]), axes...)
	g.CrPix1, g.CrPix2 = crpix[0], crpix[1]
	return g, nil
}

// ReadHDF5Map reads a map written by Map.WriteHDF5.
func ReadHDF5Map(grp *hdf5.Group, name string) (*Map, error) {
	ds, err := grp.OpenDataset(name)
	if err != nil {
		return nil, &ErrReadHDU{name, err}
	}
	g, err := readGeomAttrs(ds)
	if err != nil {
		return nil, &ErrReadHDU{name, err}
	}
	data, err := ds.ReadFloat64()
	if err != nil {
		return nil, &ErrReadHDU{name, err}
	}
	var u string
	if a := ds.Attr("unit"); a != nil {
		if u, err = a.ReadScalarString(); err != nil {
			return nil, &ErrReadHDU{name, err}
		}
	}
	m, err := FromGeomData(g, data, u)
	if err != nil {
		return nil, &ErrReadHDU{name, err}
	}
	return m, nil
}

// ReadHDF5Mask reads a mask written by Mask.WriteHDF5.
func ReadHDF5Mask(grp *hdf5.Group, name string) (*Mask, error) {
	ds, err := grp.OpenDataset(name)
	if err != nil {
		return nil, &ErrReadHDU{name, err}
	}
	g, err := readGeomAttrs(ds)
	if err != nil {
		return nil, &ErrReadHDU{name, err}
	}
	b, err := ds.ReadUint8()
	if err != nil {
		return nil, &ErrReadHDU{name, err}
	}
	if len(b) != g.Size() {
		return nil, &ErrReadHDU{name, fmt.Errorf("size %d, geometry needs %d", len(b), g.Size())}
	}
	m := MaskFromGeom(g, false)
	for i, v := range b {
		m.Data[i] = v != 0
	}
	return m, nil
}
