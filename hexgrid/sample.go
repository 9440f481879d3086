package hexgrid

import (
	"fmt"
	"strings"

	"github.com/Travis-Britz/hexterrain"
)

// Policy selects the color sampling strategy for a resample.
type Policy uint8

const (
	// PointSample colors each hex with the source pixel under its center.
	PointSample Policy = iota

	// PolygonMean colors each hex with the mean of the source pixels it covers.
	PolygonMean
)

func (p Policy) String() string {
	switch p {
	case PointSample:
		return "point"
	case PolygonMean:
		return "mean"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

func (p Policy) GoString() string {
	switch p {
	case PointSample:
		return "hexgrid.PointSample"
	case PolygonMean:
		return "hexgrid.PolygonMean"
	default:
		return fmt.Sprintf("hexgrid.Policy(%d)", uint8(p))
	}
}

// ParsePolicy parses a policy name as produced by [Policy.String].
// The long names "point-sample" and "polygon-mean" are accepted too.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "point", "point-sample", "pointsample":
		return PointSample, nil
	case "mean", "polygon-mean", "polygonmean":
		return PolygonMean, nil
	default:
		return 0, fmt.Errorf("unknown color policy %q: %w", s, ErrInvalidArgument)
	}
}

func (p Policy) MarshalText() ([]byte, error) {
	if p > PolygonMean {
		return nil, fmt.Errorf("unknown color policy %d: %w", p, ErrInvalidArgument)
	}
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(b []byte) error {
	parsed, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Sampler returns the Sampler implementing p.
func (p Policy) Sampler() Sampler {
	if p == PolygonMean {
		return PolygonMeanSampler{}
	}
	return PointSampler{}
}

// Sampler picks the fill color of a hex from the source raster.
// Samplers are called from several goroutines at once and must not hold mutable state.
type Sampler interface {
	Sample(src *hexterrain.Raster, cell Cell) hexterrain.RGB
}

// PointSampler takes the source pixel under the hex center.
type PointSampler struct{}

// Sample implements [Sampler].
func (PointSampler) Sample(src *hexterrain.Raster, cell Cell) hexterrain.RGB {
	return src.RGBAt(cell.Source.X, cell.Source.Y)
}

// PolygonMeanSampler averages every source pixel covered by the hexagon after mapping it back into source space.
// Channel means are truncated to whole values.
// When the mapped hexagon covers no source pixel the center pixel is used instead.
type PolygonMeanSampler struct{}

// Sample implements [Sampler].
func (PolygonMeanSampler) Sample(src *hexterrain.Raster, cell Cell) hexterrain.RGB {
	var r, g, b, n uint64
	vertices := cell.SourceVertices()
	scanConvex(vertices[:], src.Bounds(), func(y, x0, x1 int) {
		row := src.Pix[src.PixOffset(x0, y):src.PixOffset(x1+1, y)]
		for i := 0; i < len(row); i += 3 {
			r += uint64(row[i])
			g += uint64(row[i+1])
			b += uint64(row[i+2])
		}
		n += uint64(x1 - x0 + 1)
	})
	if n == 0 {
		return PointSampler{}.Sample(src, cell)
	}
	return hexterrain.RGB{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n)}
}

var (
	_ Sampler = PointSampler{}
	_ Sampler = PolygonMeanSampler{}
)
