// Public domain.

package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/unit"
)

// ErrGeomMismatch is returned when two geometries do not share a pixel grid.
var ErrGeomMismatch = errors.New("geometries do not share a pixel grid")

// Geom is a sky pixel grid in plate carrée (CAR) projection plus zero or
// more non-spatial axes.
//
// Pixel (i, j), 0-based, has its center at
//
//	lon = Center.Lon - (i+1-CrPix1)*Binsz
//	lat = Center.Lat + (j+1-CrPix2)*Binsz
//
// following the FITS CRVAL/CRPIX/CDELT convention with CDELT1 = -Binsz.
// Cutouts keep Center and Binsz and shift the reference pixel, so a cutout
// stays on its parent's grid.
//
// Data for a Geom is laid out in C order with shape DataShape: non-spatial
// axes reversed (the last axis varies slowest), then Ny, then Nx.
// A Geom is treated as immutable once constructed.
type Geom struct {
	Frame          string
	Center         SkyCoord
	Binsz          unit.Angle
	Nx, Ny         int
	CrPix1, CrPix2 float64
	Axes           []*Axis
}

// Create makes a geometry centered on skydir with the given pixel size and
// width (lon, lat).
func Create(skydir SkyCoord, binsz unit.Angle, width [2]unit.Angle, axes ...*Axis) *Geom {
	nx := int(math.Round(float64(width[0] / binsz)))
	ny := int(math.Round(float64(width[1] / binsz)))
	return CreateNpix(skydir, binsz, nx, ny, axes...)
}

// CreateNpix makes a geometry centered on skydir with nx by ny pixels.
func CreateNpix(skydir SkyCoord, binsz unit.Angle, nx, ny int, axes ...*Axis) *Geom {
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}
	if skydir.Frame == "" {
		skydir.Frame = FrameICRS
	}
	return &Geom{
		Frame:  skydir.Frame,
		Center: skydir,
		Binsz:  binsz,
		Nx:     nx,
		Ny:     ny,
		CrPix1: float64(nx+1) / 2,
		CrPix2: float64(ny+1) / 2,
		Axes:   copyAxes(axes),
	}
}

func copyAxes(axes []*Axis) []*Axis {
	if len(axes) == 0 {
		return nil
	}
	c := make([]*Axis, len(axes))
	for i, a := range axes {
		c[i] = a.Copy("")
	}
	return c
}

// Copy returns a deep copy.
func (g *Geom) Copy() *Geom {
	c := *g
	c.Axes = copyAxes(g.Axes)
	return &c
}

// ToImage drops all non-spatial axes.
func (g *Geom) ToImage() *Geom {
	c := *g
	c.Axes = nil
	return &c
}

// ToCube replaces the non-spatial axes.
func (g *Geom) ToCube(axes ...*Axis) *Geom {
	c := *g
	c.Axes = copyAxes(axes)
	return &c
}

// Squash collapses every non-spatial axis to a single bin.
func (g *Geom) Squash() *Geom {
	c := *g
	c.Axes = make([]*Axis, len(g.Axes))
	for i, a := range g.Axes {
		c.Axes[i] = a.Squash()
	}
	return &c
}

// AxisByName returns the named axis and its position in Axes.
func (g *Geom) AxisByName(name string) (*Axis, int, error) {
	for i, a := range g.Axes {
		if a.Name == name {
			return a, i, nil
		}
	}
	return nil, -1, fmt.Errorf("geometry has no axis %q", name)
}

// NPixImage is the number of spatial pixels.
func (g *Geom) NPixImage() int { return g.Nx * g.Ny }

// NBands is the number of non-spatial bins, the product of axis sizes.
func (g *Geom) NBands() int {
	n := 1
	for _, a := range g.Axes {
		n *= a.Nbin()
	}
	return n
}

// Size is the total number of data elements.
func (g *Geom) Size() int { return g.NBands() * g.NPixImage() }

// DataShape is the C order shape of data on g.
func (g *Geom) DataShape() []int {
	s := make([]int, 0, len(g.Axes)+2)
	for i := len(g.Axes) - 1; i >= 0; i-- {
		s = append(s, g.Axes[i].Nbin())
	}
	return append(s, g.Ny, g.Nx)
}

// Index returns the flat data index of band k, pixel (i, j).
func (g *Geom) Index(k, j, i int) int {
	return (k*g.Ny+j)*g.Nx + i
}

// BandIndex combines per-axis bin indexes into a band index; Axes[0]
// varies fastest.
func (g *Geom) BandIndex(idx ...int) int {
	k, stride := 0, 1
	for a, i := range idx {
		k += i * stride
		stride *= g.Axes[a].Nbin()
	}
	return k
}

// AxisIndexes splits a band index into per-axis bin indexes.
func (g *Geom) AxisIndexes(k int) []int {
	idx := make([]int, len(g.Axes))
	for a, ax := range g.Axes {
		n := ax.Nbin()
		idx[a] = k % n
		k /= n
	}
	return idx
}

// PixToCoord returns the sky position of a (possibly fractional) 0-based
// pixel position.
func (g *Geom) PixToCoord(x, y float64) SkyCoord {
	b := g.Binsz.Deg()
	lon := g.Center.Lon.Deg() - (x+1-g.CrPix1)*b
	lat := g.Center.Lat.Deg() + (y+1-g.CrPix2)*b
	return NewSkyCoord(lon, lat, g.Frame)
}

// CoordToPix returns the 0-based fractional pixel position of c, after
// transforming c to the frame of g.
func (g *Geom) CoordToPix(c SkyCoord) (x, y float64) {
	c = c.in(g.Frame)
	b := g.Binsz.Deg()
	x = g.CrPix1 - 1 - wrapDeg(c.Lon.Deg()-g.Center.Lon.Deg())/b
	y = g.CrPix2 - 1 + (c.Lat.Deg()-g.Center.Lat.Deg())/b
	return
}

// Contains reports whether c falls on a pixel of g.
func (g *Geom) Contains(c SkyCoord) bool {
	x, y := g.CoordToPix(c)
	i, j := int(math.Round(x)), int(math.Round(y))
	return i >= 0 && i < g.Nx && j >= 0 && j < g.Ny
}

// CenterSkyDir is the position at the center of the pixel grid.
func (g *Geom) CenterSkyDir() SkyCoord {
	return g.PixToCoord(float64(g.Nx-1)/2, float64(g.Ny-1)/2)
}

// Width returns the angular extent of the grid along lon and lat.
func (g *Geom) Width() [2]unit.Angle {
	return [2]unit.Angle{g.Binsz * unit.Angle(g.Nx), g.Binsz * unit.Angle(g.Ny)}
}

// SolidAngle returns the solid angle in sr of a pixel in row j.
func (g *Geom) SolidAngle(j int) float64 {
	b := g.Binsz.Rad()
	lat := g.PixToCoord(0, float64(j)).Lat
	return b * b * math.Cos(lat.Rad())
}

// Equal compares geometries structurally.
func (g *Geom) Equal(o *Geom) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.Frame != o.Frame || g.Nx != o.Nx || g.Ny != o.Ny ||
		len(g.Axes) != len(o.Axes) {
		return false
	}
	const tol = 1e-9
	if math.Abs(float64(g.Binsz-o.Binsz)) > tol*float64(g.Binsz) ||
		math.Abs(g.CrPix1-o.CrPix1) > tol || math.Abs(g.CrPix2-o.CrPix2) > tol ||
		math.Abs(float64(g.Center.Lon-o.Center.Lon)) > tol ||
		math.Abs(float64(g.Center.Lat-o.Center.Lat)) > tol {
		return false
	}
	for i, a := range g.Axes {
		if !a.Equal(o.Axes[i]) {
			return false
		}
	}
	return true
}

// SameGrid reports whether o lies on the pixel grid of g, ignoring extent
// and non-spatial axes.
func (g *Geom) SameGrid(o *Geom) bool {
	_, _, err := g.spatialOffset(o)
	return err == nil
}

// Offset returns the pixel offset (dx, dy) such that pixel (i, j) of o is
// pixel (i+dx, j+dy) of g.  Grids and non-spatial axes must match.
func (g *Geom) Offset(o *Geom) (dx, dy int, err error) {
	if dx, dy, err = g.spatialOffset(o); err != nil {
		return
	}
	if len(g.Axes) != len(o.Axes) {
		return 0, 0, fmt.Errorf("%w: %d axes vs %d", ErrGeomMismatch,
			len(g.Axes), len(o.Axes))
	}
	for i, a := range g.Axes {
		if !a.Equal(o.Axes[i]) {
			return 0, 0, fmt.Errorf("%w: axis %s differs", ErrGeomMismatch, a.Name)
		}
	}
	return
}

func (g *Geom) spatialOffset(o *Geom) (dx, dy int, err error) {
	const tol = 1e-6
	if g.Frame != o.Frame ||
		math.Abs(float64(g.Binsz-o.Binsz)) > 1e-9*float64(g.Binsz) ||
		math.Abs(float64(g.Center.Lon-o.Center.Lon)) > 1e-9 ||
		math.Abs(float64(g.Center.Lat-o.Center.Lat)) > 1e-9 {
		return 0, 0, ErrGeomMismatch
	}
	fx, fy := g.CrPix1-o.CrPix1, g.CrPix2-o.CrPix2
	rx, ry := math.Round(fx), math.Round(fy)
	if math.Abs(fx-rx) > tol || math.Abs(fy-ry) > tol {
		return 0, 0, fmt.Errorf("%w: fractional pixel offset", ErrGeomMismatch)
	}
	return int(rx), int(ry), nil
}

// Cutout returns the part of g within a rectangle of the given width
// centered on position.  The rectangle is trimmed to g.
func (g *Geom) Cutout(position SkyCoord, width [2]unit.Angle) (*Geom, error) {
	x, y := g.CoordToPix(position)
	nx := int(math.Max(1, math.Round(float64(width[0]/g.Binsz))))
	ny := int(math.Max(1, math.Round(float64(width[1]/g.Binsz))))
	ix0 := cutoutStart(x, nx)
	iy0 := cutoutStart(y, ny)
	ix1, iy1 := ix0+nx, iy0+ny
	if ix0 < 0 {
		ix0 = 0
	}
	if iy0 < 0 {
		iy0 = 0
	}
	if ix1 > g.Nx {
		ix1 = g.Nx
	}
	if iy1 > g.Ny {
		iy1 = g.Ny
	}
	if ix1 <= ix0 || iy1 <= iy0 {
		return nil, fmt.Errorf("cutout at %v does not overlap geometry", position)
	}
	c := g.Copy()
	c.Nx, c.Ny = ix1-ix0, iy1-iy0
	c.CrPix1 -= float64(ix0)
	c.CrPix2 -= float64(iy0)
	return c, nil
}

// cutoutStart is the first of n pixels centered on pixel coordinate p.
// Ties, as when n is even and p is a pixel center, go to the lower pixel.
// p is snapped to a 1e-9 pixel grid first so round off in the coordinate
// transform does not move the cutout.
func cutoutStart(p float64, n int) int {
	s := p - float64(n-1)/2
	s = math.Round(s*1e9) / 1e9
	return int(math.Ceil(s - .5))
}

// RegionGeom returns a single pixel geometry covering r, with the
// non-spatial axes of g.
func (g *Geom) RegionGeom(r Region) *Geom {
	return CreateNpix(r.Center(), r.Width(), 1, 1, g.Axes...)
}

// EnergyMask returns data for a boolean map on g, true in energy bins that
// lie fully within [emin, emax].  Use math.Inf for open bounds.
func (g *Geom) EnergyMask(emin, emax float64) ([]bool, error) {
	ax, ia, err := g.AxisByName("energy")
	if err != nil {
		return nil, err
	}
	data := make([]bool, g.Size())
	np := g.NPixImage()
	for k := 0; k < g.NBands(); k++ {
		e := g.AxisIndexes(k)[ia]
		if ax.Lo(e) >= emin && ax.Hi(e) <= emax {
			for p := k * np; p < (k+1)*np; p++ {
				data[p] = true
			}
		}
	}
	return data, nil
}

// RegionMask returns data for a boolean map on g, true on pixels whose
// centers fall within any of the regions, for all non-spatial bins.
func (g *Geom) RegionMask(regions ...Region) []bool {
	np := g.NPixImage()
	img := make([]bool, np)
	for j := 0; j < g.Ny; j++ {
		for i := 0; i < g.Nx; i++ {
			c := g.PixToCoord(float64(i), float64(j))
			for _, r := range regions {
				if r.Contains(c) {
					img[j*g.Nx+i] = true
					break
				}
			}
		}
	}
	data := make([]bool, g.Size())
	for k := 0; k < g.NBands(); k++ {
		copy(data[k*np:], img)
	}
	return data
}

func (g *Geom) String() string {
	s := fmt.Sprintf("Geom %s center %v binsz %.4g deg npix %dx%d",
		g.Frame, g.Center, g.Binsz.Deg(), g.Nx, g.Ny)
	for _, a := range g.Axes {
		s += "\n  " + a.String()
	}
	return s
}
