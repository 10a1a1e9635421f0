// Public domain.

package dataset

import (
	"fmt"
	"time"

	"github.com/robert-malhotra/go-hdf5/hdf5"

	"github.com/soniakeys/mapds/internal/gti"
	"github.com/soniakeys/mapds/internal/irf"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
)

// HDF5 layout: one group per dataset, named after it, holding a "meta"
// dataset whose attributes give the dataset type, background model name
// and good time intervals, and one dataset per map under the lower case
// HDU name.

const hdf5Meta = "meta"

type hdf5Map struct {
	name string
	m    *maps.Map
}

func (d *MapDataset) hdf5Maps() []hdf5Map {
	ms := []hdf5Map{{"counts", d.Counts}, {"exposure", d.Exposure}}
	if d.BackgroundModel != nil {
		ms = append(ms, hdf5Map{"background", d.BackgroundModel.Map})
	}
	if d.PSF != nil {
		ms = append(ms, hdf5Map{"psf", d.PSF.PSF}, hdf5Map{"psf_exposure", d.PSF.Exposure})
	}
	if d.EDisp != nil {
		ms = append(ms, hdf5Map{"edisp", d.EDisp.EDisp}, hdf5Map{"edisp_exposure", d.EDisp.Exposure})
	}
	return ms
}

func (d *MapDataset) writeHDF5(grp *hdf5.Group, tag string, extra []hdf5Map) error {
	opts := []hdf5.DatasetOption{
		hdf5.WithAttribute("type", tag),
		hdf5.WithAttribute("name", d.name),
	}
	if d.BackgroundModel != nil {
		opts = append(opts, hdf5.WithAttribute("background", d.BackgroundModel.Name()))
	}
	if d.GTI != nil {
		opts = append(opts,
			hdf5.WithAttribute("gti_reference", d.GTI.Reference.Format(time.RFC3339Nano)),
			hdf5.WithAttribute("gti_count", int64(d.GTI.Len())))
		if d.GTI.Len() > 0 {
			opts = append(opts,
				hdf5.WithAttribute("gti_start", d.GTI.Start),
				hdf5.WithAttribute("gti_stop", d.GTI.Stop))
		}
	}
	if _, err := grp.CreateDataset(hdf5Meta, []int64{1}, opts...); err != nil {
		return &maps.ErrWriteHDU{Name: hdf5Meta, Err: err}
	}
	for _, hm := range append(d.hdf5Maps(), extra...) {
		if hm.m == nil {
			continue
		}
		if err := hm.m.WriteHDF5(grp, hm.name); err != nil {
			return err
		}
	}
	for _, mk := range []struct {
		name string
		m    *maps.Mask
	}{{"mask_safe", d.MaskSafe}, {"mask_fit", d.MaskFit}} {
		if mk.m == nil {
			continue
		}
		if err := mk.m.WriteHDF5(grp, mk.name); err != nil {
			return err
		}
	}
	return nil
}

// writeHDF5 writes the dataset into its own group of root.
func writeHDF5(root *hdf5.Group, d Dataset) error {
	grp, err := root.CreateGroup(d.Name())
	if err != nil {
		return fmt.Errorf("dataset %s: %w", d.Name(), err)
	}
	switch t := d.(type) {
	case *MapDatasetOnOff:
		return t.MapDataset.writeHDF5(grp, t.Tag(), []hdf5Map{
			{"counts_off", t.CountsOff},
			{"acceptance", t.Acceptance},
			{"acceptance_off", t.AcceptanceOff},
		})
	case *MapDataset:
		return t.writeHDF5(grp, t.Tag(), nil)
	}
	return fmt.Errorf("dataset %s: type %s cannot be written as HDF5", d.Name(), d.Tag())
}

// WriteHDF5 writes d to a new HDF5 file at path.
func (d *MapDataset) WriteHDF5(path string) error {
	return Datasets{d}.WriteHDF5(path)
}

// WriteHDF5 writes all map datasets of ds to a new HDF5 file at path.
func (ds Datasets) WriteHDF5(path string) error {
	f, err := hdf5.Create(path)
	if err != nil {
		return err
	}
	for _, d := range ds {
		if err := writeHDF5(f.Root(), d); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func readHDF5Meta(grp *hdf5.Group) (tag, name, bkg string, t *gti.GTI, err error) {
	ds, err := grp.OpenDataset(hdf5Meta)
	if err != nil {
		return
	}
	str := func(k string) string {
		a := ds.Attr(k)
		if a == nil || err != nil {
			return ""
		}
		var s string
		s, err = a.ReadScalarString()
		return s
	}
	tag, name, bkg = str("type"), str("name"), str("background")
	ref := str("gti_reference")
	if err != nil || ref == "" {
		return
	}
	t = gti.Empty()
	if t.Reference, err = time.Parse(time.RFC3339Nano, ref); err != nil {
		return
	}
	if a := ds.Attr("gti_start"); a != nil {
		if t.Start, err = a.ReadFloat64(); err != nil {
			return
		}
	}
	if a := ds.Attr("gti_stop"); a != nil {
		t.Stop, err = a.ReadFloat64()
	}
	return
}

func readHDF5Group(grp *hdf5.Group) (Dataset, error) {
	tag, name, bkgName, t, err := readHDF5Meta(grp)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", grp.Name(), err)
	}
	members, err := grp.Members()
	if err != nil {
		return nil, err
	}
	has := map[string]bool{}
	for _, m := range members {
		has[m] = true
	}
	readMap := func(n string) (m *maps.Map) {
		if has[n] && err == nil {
			m, err = maps.ReadHDF5Map(grp, n)
		}
		return
	}
	readMask := func(n string) (m *maps.Mask) {
		if has[n] && err == nil {
			m, err = maps.ReadHDF5Mask(grp, n)
		}
		return
	}
	d := &MapDataset{name: name, GTI: t}
	d.Counts = readMap("counts")
	d.Exposure = readMap("exposure")
	bkg := readMap("background")
	psf, psfExp := readMap("psf"), readMap("psf_exposure")
	ed, edExp := readMap("edisp"), readMap("edisp_exposure")
	d.MaskSafe = readMask("mask_safe")
	d.MaskFit = readMask("mask_fit")
	off, acc, accOff := readMap("counts_off"), readMap("acceptance"), readMap("acceptance_off")
	if err != nil {
		return nil, err
	}
	if bkg != nil {
		if bkgName == "" {
			bkgName = name + "-bkg"
		}
		d.BackgroundModel = models.NewBackgroundModel(bkg, bkgName, name)
	}
	if psf != nil && psfExp != nil {
		if d.PSF, err = irf.NewPSFMap(psf, psfExp); err != nil {
			return nil, err
		}
	}
	if ed != nil && edExp != nil {
		if d.EDisp, err = irf.NewEDispMap(ed, edExp); err != nil {
			return nil, err
		}
	}
	switch tag {
	case "MapDataset":
		return d, nil
	case "MapDatasetOnOff":
		d.BackgroundModel = nil
		return &MapDatasetOnOff{MapDataset: *d, CountsOff: off, Acceptance: acc,
			AcceptanceOff: accOff}, nil
	}
	return nil, fmt.Errorf("group %s: unknown dataset type %q", grp.Name(), tag)
}

// ReadHDF5 reads every dataset group of a file written by
// Datasets.WriteHDF5.
func ReadHDF5(path string) (Datasets, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	names, err := f.Root().Members()
	if err != nil {
		return nil, err
	}
	var ds Datasets
	for _, n := range names {
		grp, err := f.Root().OpenGroup(n)
		if err != nil {
			return nil, err
		}
		d, err := readHDF5Group(grp)
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return ds, nil
}

// ReadHDF5MapDataset reads the named map dataset from an HDF5 file.
func ReadHDF5MapDataset(path, name string) (*MapDataset, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	grp, err := f.Root().OpenGroup(name)
	if err != nil {
		return nil, err
	}
	d, err := readHDF5Group(grp)
	if err != nil {
		return nil, err
	}
	md, ok := d.(*MapDataset)
	if !ok {
		return nil, fmt.Errorf("dataset %s is %s", name, d.Tag())
	}
	return md, nil
}
