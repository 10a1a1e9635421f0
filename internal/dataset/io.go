// Public domain.

package dataset

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/soniakeys/mapds/internal/gti"
	"github.com/soniakeys/mapds/internal/irf"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
)

// HDU names of dataset maps.  Each map is followed by a table named with
// maps.BandsSuffix describing its non-spatial axes.
const (
	HDUPrimary       = "PRIMARY"
	HDUCounts        = "COUNTS"
	HDUExposure      = "EXPOSURE"
	HDUBackground    = "BACKGROUND"
	HDUMaskSafe      = "MASK_SAFE"
	HDUMaskFit       = "MASK_FIT"
	HDUCountsOff     = "COUNTS_OFF"
	HDUAcceptance    = "ACCEPTANCE"
	HDUAcceptanceOff = "ACCEPTANCE_OFF"
)

// block is a run of HDUs written together.
type block struct {
	names []string
	write func(f *fitsio.File) error
}

func mapBlock(m *maps.Map, name string) block {
	return block{
		names: []string{name, name + maps.BandsSuffix},
		write: func(f *fitsio.File) error { return m.WriteHDU(f, name) },
	}
}

func maskBlock(m *maps.Mask, name string) block {
	return block{
		names: []string{name, name + maps.BandsSuffix},
		write: func(f *fitsio.File) error { return m.WriteHDU(f, name) },
	}
}

func (d *MapDataset) blocks() []block {
	var bs []block
	if d.Counts != nil {
		bs = append(bs, mapBlock(d.Counts, HDUCounts))
	}
	if d.Exposure != nil {
		bs = append(bs, mapBlock(d.Exposure, HDUExposure))
	}
	if d.BackgroundModel != nil && d.BackgroundModel.Map != nil {
		bs = append(bs, mapBlock(d.BackgroundModel.Map, HDUBackground))
	}
	if d.EDisp != nil {
		bs = append(bs, block{
			names: []string{irf.HDUEDisp, irf.HDUEDisp + maps.BandsSuffix,
				irf.HDUEDispExposure, irf.HDUEDispExposure + maps.BandsSuffix},
			write: d.EDisp.WriteHDUs,
		})
	}
	if d.PSF != nil {
		bs = append(bs, block{
			names: []string{irf.HDUPSF, irf.HDUPSF + maps.BandsSuffix,
				irf.HDUPSFExposure, irf.HDUPSFExposure + maps.BandsSuffix},
			write: d.PSF.WriteHDUs,
		})
	}
	if d.MaskSafe != nil {
		bs = append(bs, maskBlock(d.MaskSafe, HDUMaskSafe))
	}
	if d.MaskFit != nil {
		bs = append(bs, maskBlock(d.MaskFit, HDUMaskFit))
	}
	if d.GTI != nil {
		bs = append(bs, block{names: []string{gti.HDUName}, write: d.GTI.WriteHDU})
	}
	return bs
}

// blocks of an on/off dataset are those of the map dataset followed by
// the off maps.
func (d *MapDatasetOnOff) blocks() []block {
	bs := d.MapDataset.blocks()
	if d.CountsOff != nil {
		bs = append(bs, mapBlock(d.CountsOff, HDUCountsOff))
	}
	if d.Acceptance != nil {
		bs = append(bs, mapBlock(d.Acceptance, HDUAcceptance))
	}
	if d.AcceptanceOff != nil {
		bs = append(bs, mapBlock(d.AcceptanceOff, HDUAcceptanceOff))
	}
	return bs
}

func hduNames(bs []block) []string {
	n := []string{HDUPrimary}
	for _, b := range bs {
		n = append(n, b.names...)
	}
	return n
}

// HDUNames lists, in file order, the HDUs Write would produce.
func (d *MapDataset) HDUNames() []string { return hduNames(d.blocks()) }

// HDUNames lists, in file order, the HDUs Write would produce.
func (d *MapDatasetOnOff) HDUNames() []string { return hduNames(d.blocks()) }

func writeBlocks(path string, overwrite bool, bs []block) error {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag |= os.O_EXCL
	}
	w, err := os.OpenFile(path, flag, 0666)
	if err != nil {
		return err
	}
	f, err := maps.CreateFile(w)
	if err != nil {
		w.Close()
		return err
	}
	for _, b := range bs {
		if err := b.write(f); err != nil {
			f.Close()
			w.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Write writes d to a FITS file at path.  Without overwrite an existing
// file is an error.
func (d *MapDataset) Write(path string, overwrite bool) error {
	logger.Debug("write", "dataset", d.name, "path", path)
	return writeBlocks(path, overwrite, d.blocks())
}

// Write writes d to a FITS file at path.
func (d *MapDatasetOnOff) Write(path string, overwrite bool) error {
	logger.Debug("write", "dataset", d.name, "path", path)
	return writeBlocks(path, overwrite, d.blocks())
}

// openIndex opens a FITS file and indexes its HDUs.  Call the returned
// function when done with the index.
func openIndex(path string) (maps.HDUIndex, func(), error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := fitsio.Open(r)
	if err != nil {
		r.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return maps.IndexHDUs(f), func() { f.Close(); r.Close() }, nil
}

// readMapDataset fills d from the HDUs present in idx.
func readMapDataset(idx maps.HDUIndex, d *MapDataset) (err error) {
	readMap := func(name string, dst **maps.Map) {
		if err == nil && idx.Has(name) {
			*dst, err = maps.ReadMap(idx, name)
		}
	}
	readMask := func(name string, dst **maps.Mask) {
		if err == nil && idx.Has(name) {
			*dst, err = maps.ReadMask(idx, name)
		}
	}
	readMap(HDUCounts, &d.Counts)
	readMap(HDUExposure, &d.Exposure)
	var bkg *maps.Map
	readMap(HDUBackground, &bkg)
	readMask(HDUMaskSafe, &d.MaskSafe)
	readMask(HDUMaskFit, &d.MaskFit)
	if err != nil {
		return err
	}
	if bkg != nil {
		d.BackgroundModel = models.NewBackgroundModel(bkg, d.name+"-bkg", d.name)
	}
	if idx.Has(irf.HDUEDisp) {
		if d.EDisp, err = irf.ReadEDispMap(idx); err != nil {
			return err
		}
	}
	if idx.Has(irf.HDUPSF) {
		if d.PSF, err = irf.ReadPSFMap(idx); err != nil {
			return err
		}
	}
	if idx.Has(gti.HDUName) {
		if d.GTI, err = gti.ReadHDU(idx); err != nil {
			return err
		}
	}
	return nil
}

// ReadMapDataset reads a file written by MapDataset.Write.  A background
// map becomes a background model named name + "-bkg".  An empty name is
// replaced by a unique one.
func ReadMapDataset(path, name string) (*MapDataset, error) {
	idx, done, err := openIndex(path)
	if err != nil {
		return nil, err
	}
	defer done()
	if name == "" {
		name = models.MakeName()
	}
	d := &MapDataset{name: name}
	if err := readMapDataset(idx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadMapDatasetOnOff reads a file written by MapDatasetOnOff.Write.
func ReadMapDatasetOnOff(path, name string) (*MapDatasetOnOff, error) {
	idx, done, err := openIndex(path)
	if err != nil {
		return nil, err
	}
	defer done()
	if name == "" {
		name = models.MakeName()
	}
	d := &MapDatasetOnOff{MapDataset: MapDataset{name: name}}
	if err := readMapDataset(idx, &d.MapDataset); err != nil {
		return nil, err
	}
	d.BackgroundModel = nil
	for _, p := range []struct {
		name string
		dst  **maps.Map
	}{
		{HDUCountsOff, &d.CountsOff},
		{HDUAcceptance, &d.Acceptance},
		{HDUAcceptanceOff, &d.AcceptanceOff},
	} {
		if !idx.Has(p.name) {
			continue
		}
		if *p.dst, err = maps.ReadMap(idx, p.name); err != nil {
			return nil, err
		}
	}
	return d, nil
}
