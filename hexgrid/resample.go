package hexgrid

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/Travis-Britz/hexterrain"
	"github.com/anthonynsimon/bild/parallel"
	"github.com/llgcode/draw2d/draw2dimg"
)

// Resample paints src onto a new raster as a grid of flat colored hexagons,
// choosing hex colors according to spec.Policy.
//
// The output is floor(width*scale) x floor(height*scale) pixels.
// Hexes whose center maps outside src are skipped and leave the background black.
// Invalid parameters return an error wrapping [ErrInvalidArgument] before anything is allocated.
// Identical inputs always produce identical output, whether painted serially or in parallel.
func Resample(src *hexterrain.Raster, spec Spec) (*hexterrain.Raster, error) {
	return ResampleWith(src, spec, spec.Policy.Sampler())
}

// ResampleWith is like Resample but picks hex colors with sampler instead of spec.Policy.
func ResampleWith(src *hexterrain.Raster, spec Spec, sampler Sampler) (*hexterrain.Raster, error) {
	if src == nil {
		return nil, fmt.Errorf("hexgrid.Resample: nil source raster: %w", ErrInvalidArgument)
	}
	if sampler == nil {
		return nil, fmt.Errorf("hexgrid.Resample: nil sampler: %w", ErrInvalidArgument)
	}
	if len(src.Pix) < src.Width*src.Height*3 {
		return nil, fmt.Errorf("hexgrid.Resample: source pixel buffer too short for %dx%d: %w", src.Width, src.Height, ErrInvalidArgument)
	}
	grid, err := NewGrid(src.Width, src.Height, spec)
	if err != nil {
		return nil, fmt.Errorf("hexgrid.Resample: %w", err)
	}

	w, h := grid.Size()
	out := hexterrain.NewRaster(w, h)
	if out.Empty() {
		return out, nil
	}

	if spec.Antialias {
		if err := paintVector(out, src, grid, sampler); err != nil {
			return nil, fmt.Errorf("hexgrid.Resample: %w", err)
		}
		return out, nil
	}

	paint := func(start, end int) {
		paintBand(out, src, grid, sampler, start, end)
	}
	if spec.Serial {
		paint(0, h)
	} else {
		// each goroutine owns a disjoint band of output rows
		parallel.Line(h, paint)
	}
	return out, nil
}

// paintBand paints every hex that reaches output rows [start, end),
// writing only inside those rows.
// Hexes are visited in the same row-major order as a serial paint,
// so pixels shared by neighboring hexes resolve the same way in every band.
func paintBand(out, src *hexterrain.Raster, grid Grid, sampler Sampler, start, end int) {
	clip := image.Rect(0, start, out.Width, end)
	first, last := grid.rowsCovering(start, end)
	grid.eachInRows(first, last, func(cell Cell) {
		vertices := cell.Vertices()
		var c hexterrain.RGB
		sampled := false
		scanConvex(vertices[:], clip, func(y, x0, x1 int) {
			if !sampled {
				c = sampler.Sample(src, cell)
				sampled = true
			}
			out.FillSpan(y, x0, x1, c)
		})
	})
}

// paintVector paints hexes with the draw2d rasterizer, which antialiases the hexagon edges.
// Edge pixels are blended over black.
func paintVector(out, src *hexterrain.Raster, grid Grid, sampler Sampler) (err error) {
	defer func() {
		// draw2d reports unsupported images and bad paths by panicking
		if r := recover(); r != nil {
			err = fmt.Errorf("vector paint failed: %v", r)
		}
	}()

	canvas := image.NewRGBA(out.Bounds())
	gc := draw2dimg.NewGraphicContext(canvas)
	grid.Each(func(cell Cell) {
		c := sampler.Sample(src, cell)
		gc.SetFillColor(color.RGBA{c.R, c.G, c.B, 0xff})
		gc.BeginPath()
		for i, corner := range cell.Corners() {
			if i == 0 {
				gc.MoveTo(corner.Point())
			} else {
				gc.LineTo(corner.Point())
			}
		}
		gc.Close()
		gc.Fill()
	})

	painted := hexterrain.FromImage(canvas)
	if len(painted.Pix) != len(out.Pix) {
		return errors.New("vector paint produced a raster of the wrong size")
	}
	copy(out.Pix, painted.Pix)
	return nil
}
