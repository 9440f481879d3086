// Package hexgrid resamples a rectangular terrain raster onto a grid of point-up hexagons.
//
// Hexagon centers are laid out on offset rows:
// every row is 1.5 radii below the previous one,
// hexes in a row are sqrt(3) radii apart,
// and odd rows are pushed right by half a hex so the rows interlock.
// Each hex whose center lands on the source raster is painted as a flat hexagon
// in the color picked by a [Sampler].
package hexgrid

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrInvalidArgument is returned (wrapped) for unusable grid parameters or source rasters.
var ErrInvalidArgument = errors.New("invalid argument")

// Spec describes the hex tiling for one resample.
type Spec struct {
	// HexRadius is the distance from a hex center to its corners, in output pixels.
	HexRadius float64

	// Scale is the ratio of output raster size to source raster size.
	// Values above 1 give hexes finer placement than the source pixels allow.
	Scale float64

	// Policy selects how the color of a hex is picked from the source.
	Policy Policy

	// Antialias paints hexagons with the vector rasterizer,
	// which blends hexagon edges instead of painting hard pixel boundaries.
	// Antialiased output is always painted on a single goroutine.
	Antialias bool

	// Serial disables painting the output in parallel row bands.
	Serial bool
}

// Validate reports whether s can be used for a resample.
func (s Spec) Validate() error {
	switch {
	case math.IsNaN(s.HexRadius) || math.IsInf(s.HexRadius, 0) || s.HexRadius <= 0:
		return fmt.Errorf("hex radius must be positive; given %v: %w", s.HexRadius, ErrInvalidArgument)
	case math.IsNaN(s.Scale) || math.IsInf(s.Scale, 0) || s.Scale <= 0:
		return fmt.Errorf("scale must be positive; given %v: %w", s.Scale, ErrInvalidArgument)
	case s.Policy > PolygonMean:
		return fmt.Errorf("unknown color policy %d: %w", s.Policy, ErrInvalidArgument)
	}
	return nil
}

// Point is a coordinate in output pixel space with 0,0 at the upper left.
type Point struct {
	X, Y float64
}

// Point returns the x,y coordinate.
func (p Point) Point() (float64, float64) { return p.X, p.Y }

// Grid is the hex layout for a particular source size and Spec.
type Grid struct {
	spec       Spec
	srcW, srcH int
	outW, outH int
	dx, dy     float64
	rows, cols int
}

// NewGrid lays out hexes for a source raster of srcW x srcH pixels.
func NewGrid(srcW, srcH int, spec Spec) (Grid, error) {
	if srcW <= 0 || srcH <= 0 {
		return Grid{}, fmt.Errorf("source raster must not be empty; given %dx%d: %w", srcW, srcH, ErrInvalidArgument)
	}
	if err := spec.Validate(); err != nil {
		return Grid{}, err
	}
	g := Grid{
		spec: spec,
		srcW: srcW,
		srcH: srcH,
		outW: int(math.Floor(float64(srcW) * spec.Scale)),
		outH: int(math.Floor(float64(srcH) * spec.Scale)),
		dx:   math.Sqrt(3) * spec.HexRadius,
		dy:   1.5 * spec.HexRadius,
	}

	// Centers run from 0 up to (but not including) one pitch past the far edge,
	// so the hexes straddling the right and bottom edges are still placed.
	g.rows = steps(float64(g.outH)+g.dy, g.dy)
	g.cols = steps(float64(g.outW)+g.dx, g.dx)
	return g, nil
}

// steps returns how many multiples of step are less than limit.
func steps(limit, step float64) int {
	n := int(math.Ceil(limit / step))
	// guard against floating point error at the boundary
	for n > 0 && float64(n-1)*step >= limit {
		n--
	}
	for float64(n)*step < limit {
		n++
	}
	return n
}

// Spec returns the Spec the grid was laid out with.
func (g Grid) Spec() Spec { return g.spec }

// Size returns the output raster dimensions.
func (g Grid) Size() (width, height int) { return g.outW, g.outH }

// Pitch returns the horizontal and vertical center-to-center hex spacing.
func (g Grid) Pitch() (dx, dy float64) { return g.dx, g.dy }

// Rows returns the number of hex rows, including rows whose hexes all fall outside the source.
func (g Grid) Rows() int { return g.rows }

// Cols returns the number of hexes in each row, including hexes that fall outside the source.
func (g Grid) Cols() int { return g.cols }

// Cell returns the hex at row, col.
// It does not check whether the hex falls on the source raster; see [Cell.InBounds].
func (g Grid) Cell(row, col int) Cell {
	var offset float64
	if row%2 != 0 {
		offset = g.dx / 2
	}
	center := Point{
		X: float64(col)*g.dx + offset,
		Y: float64(row) * g.dy,
	}
	return Cell{
		Row:    row,
		Col:    col,
		Center: center,
		Source: image.Point{
			X: int(math.Floor(center.X / g.spec.Scale)),
			Y: int(math.Floor(center.Y / g.spec.Scale)),
		},
		Radius: g.spec.HexRadius,
		Scale:  g.spec.Scale,
		srcW:   g.srcW,
		srcH:   g.srcH,
	}
}

// Each calls fn for every hex whose center maps onto the source raster,
// in row-major order.
func (g Grid) Each(fn func(Cell)) {
	g.eachInRows(0, g.rows, fn)
}

func (g Grid) eachInRows(first, last int, fn func(Cell)) {
	for row := first; row < last; row++ {
		for col := 0; col < g.cols; col++ {
			cell := g.Cell(row, col)
			if !cell.InBounds() {
				continue
			}
			fn(cell)
		}
	}
}

// rowsCovering returns the half-open range of hex rows that may paint output rows [y0, y1).
// The range is conservative; hexes outside it cannot touch the band.
func (g Grid) rowsCovering(y0, y1 int) (first, last int) {
	r := g.spec.HexRadius
	first = int(math.Floor((float64(y0) - r - 1) / g.dy))
	last = int(math.Ceil((float64(y1)+r+1)/g.dy)) + 1
	return max(first, 0), min(last, g.rows)
}

// Cell is a single hex of a Grid.
type Cell struct {
	Row, Col int

	// Center is the hex center in output pixel space.
	Center Point

	// Source is the source pixel the center maps onto.
	Source image.Point

	Radius float64
	Scale  float64

	srcW, srcH int
}

// InBounds reports whether the hex center maps onto the source raster.
// Hexes that don't are never painted.
func (c Cell) InBounds() bool {
	return c.Source.X >= 0 && c.Source.Y >= 0 && c.Source.X < c.srcW && c.Source.Y < c.srcH
}

// Corners returns the six corners of the hex in output pixel space.
// The first corner is 30 degrees below the horizontal and the rest follow clockwise on screen,
// which puts a corner at the top and bottom of the hex.
func (c Cell) Corners() (corners [6]Point) {
	for i := range corners {
		angle := math.Pi/6 + float64(i)*math.Pi/3
		corners[i] = Point{
			X: c.Center.X + c.Radius*math.Cos(angle),
			Y: c.Center.Y + c.Radius*math.Sin(angle),
		}
	}
	return corners
}

// Vertices returns the corners truncated to whole output pixels,
// which is the polygon that gets painted.
func (c Cell) Vertices() (v [6]image.Point) {
	for i, p := range c.Corners() {
		v[i] = image.Point{X: int(p.X), Y: int(p.Y)}
	}
	return v
}

// SourceVertices returns the painted polygon mapped back into source pixel space.
func (c Cell) SourceVertices() (v [6]image.Point) {
	for i, p := range c.Corners() {
		v[i] = image.Point{X: int(p.X / c.Scale), Y: int(p.Y / c.Scale)}
	}
	return v
}
