// Public domain.

package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
)

// Sky frames.
const (
	FrameICRS     = "icrs"
	FrameGalactic = "galactic"
)

// ErrFrame is returned for a sky frame other than icrs or galactic.
var ErrFrame = errors.New("unknown sky frame")

// SkyCoord is a position on the sky.  An empty Frame is icrs.  Positions
// in different frames are transformed before they are compared.
type SkyCoord struct {
	Lon, Lat unit.Angle
	Frame    string
}

// icrsToGal rotates icrs to galactic cartesian coordinates, with the
// galactic pole and center of the Hipparcos catalogue.
var icrsToGal = coord.M3{
	-0.0548755604162154, -0.8734370902348850, -0.4838350155487132,
	+0.4941094278755837, -0.4448296299600112, +0.7469822444972189,
	-0.8676661490190047, -0.1980763734312015, +0.4559837761750669,
}

var galToICRS = *new(coord.M3).Transpose(&icrsToGal)

// CheckFrame returns ErrFrame unless frame is icrs, galactic or empty.
func CheckFrame(frame string) error {
	switch frame {
	case "", FrameICRS, FrameGalactic:
		return nil
	}
	return fmt.Errorf("%w %q", ErrFrame, frame)
}

func frameOrICRS(frame string) string {
	if frame == "" {
		return FrameICRS
	}
	return frame
}

// NewSkyCoord constructs a SkyCoord from degrees.
func NewSkyCoord(lonDeg, latDeg float64, frame string) SkyCoord {
	if frame == "" {
		frame = FrameICRS
	}
	return SkyCoord{unit.AngleFromDeg(lonDeg), unit.AngleFromDeg(latDeg), frame}
}

func (c SkyCoord) cart() coord.Cart {
	sl, cl := math.Sincos(c.Lon.Rad())
	sb, cb := math.Sincos(c.Lat.Rad())
	return coord.Cart{X: cb * cl, Y: cb * sl, Z: sb}
}

// Transform returns c in frame.
func (c SkyCoord) Transform(frame string) (SkyCoord, error) {
	if err := CheckFrame(c.Frame); err != nil {
		return SkyCoord{}, err
	}
	if err := CheckFrame(frame); err != nil {
		return SkyCoord{}, err
	}
	frame = frameOrICRS(frame)
	if frameOrICRS(c.Frame) == frame {
		c.Frame = frame
		return c, nil
	}
	rm := &galToICRS
	if frame == FrameGalactic {
		rm = &icrsToGal
	}
	p := c.cart()
	var q coord.Cart
	q.Mult3(rm, &p)
	var s coord.Sphr
	s.FromCart(&q)
	if s.Lon < 0 {
		s.Lon += 2 * math.Pi
	}
	return SkyCoord{s.Lon, s.Lat, frame}, nil
}

// in is c in frame, with NaN coordinates if either frame is unknown.
func (c SkyCoord) in(frame string) SkyCoord {
	t, err := c.Transform(frame)
	if err != nil {
		nan := unit.Angle(math.NaN())
		return SkyCoord{nan, nan, frame}
	}
	return t
}

// Separation returns the great circle distance between two positions,
// transforming o to the frame of c if needed.  The result is NaN if
// either frame is unknown.
//
// atan2 of the cross and dot products keeps precision at small separations.
func (c SkyCoord) Separation(o SkyCoord) unit.Angle {
	p, q := c.cart(), o.in(c.Frame).cart()
	var x coord.Cart
	x.Cross(&p, &q)
	return unit.Angle(math.Atan2(math.Sqrt(x.Square()), p.Dot(&q)))
}

func (c SkyCoord) String() string {
	return fmt.Sprintf("(%.5f, %.5f) deg %s", c.Lon.Deg(), c.Lat.Deg(), c.Frame)
}

// wrapDeg wraps a longitude difference in degrees to (-180, 180].
func wrapDeg(d float64) float64 {
	d = math.Mod(d, 360)
	switch {
	case d > 180:
		d -= 360
	case d <= -180:
		d += 360
	}
	return d
}
