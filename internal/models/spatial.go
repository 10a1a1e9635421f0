// Public domain.

package models

import (
	"math"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/mapds/internal/geom"
)

// SpatialModel is a normalized morphology on the sky.
type SpatialModel interface {
	Tag() string
	Frame() string
	Parameters() Parameters
	Position() geom.SkyCoord
	// EvaluationRadius bounds the region where the model is non-negligible.
	EvaluationRadius() unit.Angle
	// Evaluate returns the surface brightness in sr-1 at c.
	Evaluate(c geom.SkyCoord) float64
	copySpatial() SpatialModel
}

type spatialBase struct {
	frame  string
	params Parameters
}

func (s *spatialBase) Frame() string          { return s.frame }
func (s *spatialBase) Parameters() Parameters { return s.params }

func (s *spatialBase) Position() geom.SkyCoord {
	return geom.NewSkyCoord(s.params.Get("lon_0").Value,
		s.params.Get("lat_0").Value, s.frame)
}

func (s *spatialBase) copyBase() spatialBase {
	return spatialBase{s.frame, s.params.Copy()}
}

func positionParams(lon, lat float64) Parameters {
	return Parameters{NewParameter("lon_0", lon, "deg"), NewParameter("lat_0", lat, "deg")}
}

// PointSpatialModel puts all flux at one position.
type PointSpatialModel struct{ spatialBase }

func NewPointSpatialModel(lonDeg, latDeg float64, frame string) *PointSpatialModel {
	return &PointSpatialModel{spatialBase{frame, positionParams(lonDeg, latDeg)}}
}

func (m *PointSpatialModel) Tag() string                  { return "PointSpatialModel" }
func (m *PointSpatialModel) EvaluationRadius() unit.Angle { return 0 }

// Evaluate is zero everywhere; use Integrate for point sources.
func (m *PointSpatialModel) Evaluate(geom.SkyCoord) float64 { return 0 }

func (m *PointSpatialModel) copySpatial() SpatialModel {
	return &PointSpatialModel{m.copyBase()}
}

// GaussianSpatialModel is a symmetric 2D Gaussian of width sigma.
type GaussianSpatialModel struct{ spatialBase }

func NewGaussianSpatialModel(lonDeg, latDeg float64, sigma unit.Angle, frame string) *GaussianSpatialModel {
	ps := append(positionParams(lonDeg, latDeg), NewParameter("sigma", sigma.Deg(), "deg"))
	ps[2].Min = 0
	return &GaussianSpatialModel{spatialBase{frame, ps}}
}

func (m *GaussianSpatialModel) Tag() string { return "GaussianSpatialModel" }

func (m *GaussianSpatialModel) sigma() unit.Angle {
	return unit.AngleFromDeg(m.params.Get("sigma").Value)
}

func (m *GaussianSpatialModel) EvaluationRadius() unit.Angle { return 5 * m.sigma() }

func (m *GaussianSpatialModel) Evaluate(c geom.SkyCoord) float64 {
	s := m.sigma().Rad()
	if s <= 0 {
		return 0
	}
	th := m.Position().Separation(c).Rad()
	return math.Exp(-.5*th*th/(s*s)) / (2 * math.Pi * s * s)
}

func (m *GaussianSpatialModel) copySpatial() SpatialModel {
	return &GaussianSpatialModel{m.copyBase()}
}

// DiskSpatialModel is uniform within radius r_0.
type DiskSpatialModel struct{ spatialBase }

func NewDiskSpatialModel(lonDeg, latDeg float64, r0 unit.Angle, frame string) *DiskSpatialModel {
	ps := append(positionParams(lonDeg, latDeg), NewParameter("r_0", r0.Deg(), "deg"))
	ps[2].Min = 0
	return &DiskSpatialModel{spatialBase{frame, ps}}
}

func (m *DiskSpatialModel) Tag() string { return "DiskSpatialModel" }

func (m *DiskSpatialModel) EvaluationRadius() unit.Angle {
	return unit.AngleFromDeg(m.params.Get("r_0").Value)
}

func (m *DiskSpatialModel) Evaluate(c geom.SkyCoord) float64 {
	r := m.EvaluationRadius()
	if r <= 0 || m.Position().Separation(c) > r {
		return 0
	}
	return 1 / (2 * math.Pi * (1 - math.Cos(r.Rad())))
}

func (m *DiskSpatialModel) copySpatial() SpatialModel {
	return &DiskSpatialModel{m.copyBase()}
}

// oversample is the number of sub-pixels per pixel side used to
// integrate extended models.
const oversample = 4

// Integrate returns the fraction of the model flux falling in each pixel
// of the image of g.  It is all zero if the model frame is unknown.
func Integrate(m SpatialModel, g *geom.Geom) []float64 {
	f := make([]float64, g.NPixImage())
	pos, err := m.Position().Transform(g.Frame)
	if err != nil {
		return f
	}
	if _, ok := m.(*PointSpatialModel); ok {
		x, y := g.CoordToPix(pos)
		i, j := int(math.Round(x)), int(math.Round(y))
		if i >= 0 && i < g.Nx && j >= 0 && j < g.Ny {
			f[j*g.Nx+i] = 1
		}
		return f
	}
	// pixels within reach of the model only
	r := m.EvaluationRadius() + g.Binsz
	x, y := g.CoordToPix(pos)
	h := float64(r/g.Binsz) / math.Cos(math.Min(math.Abs(pos.Lat.Rad()), 1.5))
	i0, i1 := max(0, int(math.Floor(x-h))), min(g.Nx-1, int(math.Ceil(x+h)))
	j0, j1 := max(0, int(math.Floor(y-h))), min(g.Ny-1, int(math.Ceil(y+h)))
	step := 1. / oversample
	for j := j0; j <= j1; j++ {
		sa := g.SolidAngle(j) / (oversample * oversample)
		for i := i0; i <= i1; i++ {
			var s float64
			for sy := 0; sy < oversample; sy++ {
				for sx := 0; sx < oversample; sx++ {
					c := g.PixToCoord(float64(i)-.5+(float64(sx)+.5)*step,
						float64(j)-.5+(float64(sy)+.5)*step)
					s += m.Evaluate(c)
				}
			}
			f[j*g.Nx+i] = s * sa
		}
	}
	return f
}
