// Public domain.

package geom

import (
	"math"

	"github.com/soniakeys/unit"
)

// Region is an area on the sky.
type Region interface {
	Contains(c SkyCoord) bool
	Center() SkyCoord
	// Width is the side of a square bounding the region.
	Width() unit.Angle
	// SolidAngle in sr.
	SolidAngle() float64
}

// CircleRegion is a cone of given radius around a center.
type CircleRegion struct {
	Pos    SkyCoord
	Radius unit.Angle
}

func NewCircleRegion(center SkyCoord, radius unit.Angle) *CircleRegion {
	return &CircleRegion{center, radius}
}

func (r *CircleRegion) Contains(c SkyCoord) bool {
	return r.Pos.Separation(c) <= r.Radius
}

func (r *CircleRegion) Center() SkyCoord   { return r.Pos }
func (r *CircleRegion) Width() unit.Angle  { return 2 * r.Radius }
func (r *CircleRegion) SolidAngle() float64 {
	return 2 * math.Pi * (1 - math.Cos(r.Radius.Rad()))
}
