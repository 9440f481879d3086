// Package hexterrain holds the raster types shared by the terrain map tooling.
//
// A Raster is a plain RGB grid.
// The decoders in rawmap and imagefile produce them,
// hexgrid resamples them onto a hexagon tiling,
// and imagefile encodes them for the web map.
package hexterrain

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// RGB is a single opaque pixel color.
type RGB struct {
	R, G, B uint8
}

// RGBA implements [color.Color].
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{c.R, c.G, c.B, 0xff}.RGBA()
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Black is the background color of freshly allocated rasters.
var Black = RGB{}

// Raster is a row-major grid of RGB pixels with 0,0 at the upper left.
// Pix holds three bytes per pixel and has length Width*Height*3.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRaster allocates a black raster.
// Negative dimensions are treated as zero.
func NewRaster(width, height int) *Raster {
	width = max(width, 0)
	height = max(height, 0)
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Empty reports whether the raster has zero area.
func (r *Raster) Empty() bool {
	return r == nil || r.Width <= 0 || r.Height <= 0
}

// In reports whether x,y lies inside the raster.
func (r *Raster) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.Width && y < r.Height
}

// PixOffset returns the index of the first byte of the pixel at x,y.
func (r *Raster) PixOffset(x, y int) int {
	return (y*r.Width + x) * 3
}

// RGBAt returns the pixel at x,y, or black outside the raster.
func (r *Raster) RGBAt(x, y int) RGB {
	if !r.In(x, y) {
		return Black
	}
	i := r.PixOffset(x, y)
	return RGB{r.Pix[i], r.Pix[i+1], r.Pix[i+2]}
}

// SetRGB sets the pixel at x,y. Writes outside the raster are dropped.
func (r *Raster) SetRGB(x, y int, c RGB) {
	if !r.In(x, y) {
		return
	}
	i := r.PixOffset(x, y)
	r.Pix[i] = c.R
	r.Pix[i+1] = c.G
	r.Pix[i+2] = c.B
}

// FillSpan sets pixels x0 through x1 (inclusive) on row y.
// The caller is responsible for keeping the span inside the raster.
func (r *Raster) FillSpan(y, x0, x1 int, c RGB) {
	row := r.Pix[r.PixOffset(x0, y):r.PixOffset(x1+1, y)]
	for i := 0; i < len(row); i += 3 {
		row[i] = c.R
		row[i+1] = c.G
		row[i+2] = c.B
	}
}

// Clone returns a deep copy of r.
func (r *Raster) Clone() *Raster {
	c := &Raster{Width: r.Width, Height: r.Height, Pix: make([]uint8, len(r.Pix))}
	copy(c.Pix, r.Pix)
	return c
}

// ColorModel implements [image.Image].
func (r *Raster) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements [image.Image].
func (r *Raster) Bounds() image.Rectangle { return image.Rect(0, 0, r.Width, r.Height) }

// At implements [image.Image].
func (r *Raster) At(x, y int) color.Color { return r.RGBAt(x, y) }

// Set implements [draw.Image].
// Alpha is discarded.
func (r *Raster) Set(x, y int, c color.Color) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	r.SetRGB(x, y, RGB{rgba.R, rgba.G, rgba.B})
}

var _ draw.Image = (*Raster)(nil)

// RGBA copies r into a new [image.RGBA] with opaque alpha.
func (r *Raster) RGBA() *image.RGBA {
	img := image.NewRGBA(r.Bounds())
	for p, q := 0, 0; p < len(r.Pix); p, q = p+3, q+4 {
		img.Pix[q] = r.Pix[p]
		img.Pix[q+1] = r.Pix[p+1]
		img.Pix[q+2] = r.Pix[p+2]
		img.Pix[q+3] = 0xff
	}
	return img
}

// FromImage copies img into a new Raster whose upper left corner is img.Bounds().Min.
// Alpha is dropped without compositing.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	r := NewRaster(b.Dx(), b.Dy())

	// fast path for the types the decoders and bild hand back
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < r.Height; y++ {
			src := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := r.Pix[r.PixOffset(0, y):]
			for x := 0; x < r.Width; x++ {
				dst[x*3] = src[x*4]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4+2]
			}
		}
		return r
	}

	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			r.SetRGB(x, y, RGB{c.R, c.G, c.B})
		}
	}
	return r
}
