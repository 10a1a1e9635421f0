// Public domain.

package irf

import (
	"github.com/astrogo/fitsio"

	"github.com/soniakeys/mapds/internal/maps"
)

// HDU names of response maps.
const (
	HDUPSF           = "PSF"
	HDUPSFExposure   = "PSF_EXPOSURE"
	HDUEDisp         = "EDISP"
	HDUEDispExposure = "EDISP_EXPOSURE"
)

// WriteHDUs appends PSF and PSF_EXPOSURE blocks.
func (p *PSFMap) WriteHDUs(f *fitsio.File) error {
	if err := p.PSF.WriteHDU(f, HDUPSF); err != nil {
		return err
	}
	return p.Exposure.WriteHDU(f, HDUPSFExposure)
}

// ReadPSFMap reads blocks written by PSFMap.WriteHDUs.
func ReadPSFMap(idx maps.HDUIndex) (*PSFMap, error) {
	m, err := maps.ReadMap(idx, HDUPSF)
	if err != nil {
		return nil, err
	}
	w, err := maps.ReadMap(idx, HDUPSFExposure)
	if err != nil {
		return nil, err
	}
	return NewPSFMap(m, w)
}

// WriteHDUs appends EDISP and EDISP_EXPOSURE blocks.
func (d *EDispMap) WriteHDUs(f *fitsio.File) error {
	if err := d.EDisp.WriteHDU(f, HDUEDisp); err != nil {
		return err
	}
	return d.Exposure.WriteHDU(f, HDUEDispExposure)
}

// ReadEDispMap reads blocks written by EDispMap.WriteHDUs.
func ReadEDispMap(idx maps.HDUIndex) (*EDispMap, error) {
	m, err := maps.ReadMap(idx, HDUEDisp)
	if err != nil {
		return nil, err
	}
	w, err := maps.ReadMap(idx, HDUEDispExposure)
	if err != nil {
		return nil, err
	}
	return NewEDispMap(m, w)
}
