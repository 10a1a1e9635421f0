// Public domain.

package dataset

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/soniakeys/mapds/internal/geom"
	"github.com/soniakeys/mapds/internal/gti"
	"github.com/soniakeys/mapds/internal/irf"
	"github.com/soniakeys/mapds/internal/maps"
	"github.com/soniakeys/mapds/internal/models"
	"github.com/soniakeys/mapds/internal/quantity"
	"github.com/soniakeys/mapds/internal/stats"
)

// SpectrumDataset is counts in reco energy bins of one sky region, with
// the effective area, energy dispersion and livetime that predict them.
// Maps are on a single pixel region geometry.
type SpectrumDataset struct {
	name       string
	Counts     *maps.Map
	Background *maps.Map
	Aeff       *irf.EffectiveArea
	EDisp      *irf.EDispKernel
	Livetime   float64 // s
	GTI        *gti.GTI
	MaskSafe   *maps.Mask
	Models     models.Models
}

func (s *SpectrumDataset) Name() string              { return s.name }
func (s *SpectrumDataset) Tag() string               { return "SpectrumDataset" }
func (s *SpectrumDataset) Components() models.Models { return s.Models }

// Geom returns the region geometry of counts, background or safe mask.
func (s *SpectrumDataset) Geom() (*geom.Geom, error) {
	switch {
	case s.Counts != nil:
		return s.Counts.Geom, nil
	case s.Background != nil:
		return s.Background.Geom, nil
	case s.MaskSafe != nil:
		return s.MaskSafe.Geom, nil
	}
	return nil, ErrNoGeometry
}

// DataShape is the shape of counts, nil with no geometry.
func (s *SpectrumDataset) DataShape() []int {
	g, err := s.Geom()
	if err != nil {
		return nil
	}
	return g.DataShape()
}

// Npred returns background plus the flux of each sky model folded with
// effective area, livetime and energy dispersion.  Spatial models are
// ignored; the region is assumed to contain all flux.
func (s *SpectrumDataset) Npred() (*maps.Map, error) {
	g, err := s.Geom()
	if err != nil {
		return nil, err
	}
	np := maps.FromGeom(g.Copy(), "")
	if s.Background != nil {
		floats.Add(np.Data, s.Background.Data)
	}
	sms := s.Models.ForDataset(s.name).SkyModels()
	if s.Aeff != nil && len(sms) > 0 {
		k, err := s.kernel(g)
		if err != nil {
			return nil, err
		}
		es, err := quantity.Scale(quantity.Multiply(s.Aeff.Unit, "s"), "cm2 s")
		if err != nil {
			return nil, fmt.Errorf("effective area: %w", err)
		}
		ts, err := quantity.Scale(s.Aeff.ETrue.Unit, "TeV")
		if err != nil {
			return nil, fmt.Errorf("true energy: %w", err)
		}
		et := s.Aeff.ETrue
		for _, sm := range sms {
			if sm.Spectral == nil {
				continue
			}
			v := make([]float64, et.Nbin())
			for e := range v {
				v[e] = sm.Spectral.Integral(et.Lo(e)*ts, et.Hi(e)*ts) *
					s.Aeff.Data[e] * es * s.Livetime
			}
			floats.Add(np.Data, k.Apply(v))
		}
	}
	np.Clip(0)
	return np, nil
}

func (s *SpectrumDataset) kernel(g *geom.Geom) (*irf.EDispKernel, error) {
	if s.EDisp != nil {
		if len(s.EDisp.Data) != s.Aeff.ETrue.Nbin() || s.EDisp.EReco.Nbin() != g.NBands() {
			return nil, fmt.Errorf("energy dispersion %dx%d does not fit %d true, %d reco bins",
				len(s.EDisp.Data), s.EDisp.EReco.Nbin(), s.Aeff.ETrue.Nbin(), g.NBands())
		}
		return s.EDisp, nil
	}
	ereco, _, err := g.AxisByName("energy")
	if err != nil {
		return nil, err
	}
	re, err := convertAxis(ereco, s.Aeff.ETrue.Unit)
	if err != nil {
		return nil, err
	}
	return irf.DiagonalKernel(s.Aeff.ETrue, re), nil
}

// StatSum sums the Cash statistic over the safe mask.
func (s *SpectrumDataset) StatSum() (float64, error) {
	if s.Counts == nil {
		return 0, ErrNoCounts
	}
	np, err := s.Npred()
	if err != nil {
		return 0, err
	}
	var md []bool
	if s.MaskSafe != nil {
		md = s.MaskSafe.Data
	}
	return stats.CashSum(s.Counts.Data, np.Data, md), nil
}

func (s *SpectrumDataset) String() string {
	var b strings.Builder
	s.writeSummary(&b, s.Tag())
	return b.String()
}

func (s *SpectrumDataset) writeSummary(b *strings.Builder, tag string) {
	fmt.Fprintf(b, "%s\n%s\n\n", tag, strings.Repeat("-", len(tag)))
	fmt.Fprintf(b, "  %-20s: %s\n", "Name", s.name)
	if s.Counts != nil {
		fmt.Fprintf(b, "  %-20s: %g\n", "Total counts", s.Counts.Sum())
	}
	fmt.Fprintf(b, "  %-20s: %v\n", "Shape", s.DataShape())
	fmt.Fprintf(b, "  %-20s: %.6g s\n", "Livetime", s.Livetime)
	if s.Aeff != nil {
		fmt.Fprintf(b, "  %-20s: %.4g .. %.4g %s\n", "Effective area",
			floats.Min(s.Aeff.Data), floats.Max(s.Aeff.Data), s.Aeff.Unit)
	}
}

// SpectrumDatasetOnOff is a spectrum with background measured in off
// regions, fit with WStat.
type SpectrumDatasetOnOff struct {
	SpectrumDataset
	CountsOff     *maps.Map
	Acceptance    *maps.Map
	AcceptanceOff *maps.Map
}

func (s *SpectrumDatasetOnOff) Tag() string { return "SpectrumDatasetOnOff" }

// Alpha is acceptance over off acceptance, zero where off acceptance is
// zero.
func (s *SpectrumDatasetOnOff) Alpha() (*maps.Map, error) {
	return alpha(s.Acceptance, s.AcceptanceOff)
}

// Background is alpha times off counts.  It shadows the Background field
// of SpectrumDataset, which is unused for on/off spectra.
func (s *SpectrumDatasetOnOff) Background() (*maps.Map, error) {
	return background(s.CountsOff, s.Acceptance, s.AcceptanceOff)
}

// Excess is counts minus background.
func (s *SpectrumDatasetOnOff) Excess() (*maps.Map, error) {
	return excess(s.Counts, s.CountsOff, s.Acceptance, s.AcceptanceOff)
}

// StatSum sums WStat over the safe mask, with Npred as the signal.
func (s *SpectrumDatasetOnOff) StatSum() (float64, error) {
	np, err := s.Npred()
	if err != nil {
		return 0, err
	}
	var md []bool
	if s.MaskSafe != nil {
		md = s.MaskSafe.Data
	}
	return wstatSum(s.Counts, s.CountsOff, s.Acceptance, s.AcceptanceOff, np, md)
}

func (s *SpectrumDatasetOnOff) String() string {
	var b strings.Builder
	s.writeSummary(&b, s.Tag())
	if s.CountsOff != nil {
		fmt.Fprintf(&b, "  %-20s: %g\n", "Total off counts", s.CountsOff.Sum())
	}
	return b.String()
}
