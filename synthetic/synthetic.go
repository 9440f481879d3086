// Package synthetic generates stand-in terrain rasters from layered simplex noise.
//
// The output looks enough like a game terrain export (water, coast, lowland, forest, rock, snow)
// to try out renders without the game files, and it's deterministic per seed so tests can use it as a fixture.
package synthetic

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/Travis-Britz/hexterrain"
)

// Palette colors, roughly matching the game terrain export.
var (
	DeepWater    = hexterrain.RGB{R: 0x1d, G: 0x3f, B: 0x6e}
	ShallowWater = hexterrain.RGB{R: 0x3a, G: 0x6e, B: 0x9c}
	Sand         = hexterrain.RGB{R: 0xd8, G: 0xc8, B: 0x8a}
	Grass        = hexterrain.RGB{R: 0x6a, G: 0x9a, B: 0x3f}
	Forest       = hexterrain.RGB{R: 0x2f, G: 0x5e, B: 0x2a}
	Rock         = hexterrain.RGB{R: 0x7d, G: 0x74, B: 0x6b}
	Snow         = hexterrain.RGB{R: 0xee, G: 0xf0, B: 0xf2}
)

// Config holds generation parameters.
type Config struct {
	Width, Height int
	Seed          int64

	// Frequency is the base noise frequency in cycles per pixel.
	Frequency float64
	Octaves   int

	// SeaLevel and SnowLine are elevation thresholds between 0 and 1.
	SeaLevel float64
	SnowLine float64
}

// DefaultConfig returns the parameters used by Terrain.
func DefaultConfig(width, height int, seed int64) Config {
	return Config{
		Width:     width,
		Height:    height,
		Seed:      seed,
		Frequency: 4 / float64(max(width, height, 1)),
		Octaves:   5,
		SeaLevel:  0.42,
		SnowLine:  0.8,
	}
}

// Terrain returns a width x height terrain raster. The same seed always gives the same raster.
func Terrain(width, height int, seed int64) *hexterrain.Raster {
	return Generate(DefaultConfig(width, height, seed))
}

// Generate returns a terrain raster for cfg.
func Generate(cfg Config) *hexterrain.Raster {
	out := hexterrain.NewRaster(cfg.Width, cfg.Height)
	if out.Empty() {
		return out
	}
	elevation := opensimplex.NewNormalized(cfg.Seed)
	moisture := opensimplex.NewNormalized(cfg.Seed + 1)
	octaves := max(cfg.Octaves, 1)

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			fx, fy := float64(x), float64(y)
			elev := octaveNoise(elevation, fx, fy, octaves, cfg.Frequency, 0.5)
			wet := octaveNoise(moisture, fx, fy, max(octaves-2, 1), cfg.Frequency*0.75, 0.5)
			out.SetRGB(x, y, classify(elev, wet, cfg))
		}
	}
	return out
}

func classify(elev, wet float64, cfg Config) hexterrain.RGB {
	switch {
	case elev < cfg.SeaLevel*0.8:
		return DeepWater
	case elev < cfg.SeaLevel:
		return ShallowWater
	case elev < cfg.SeaLevel+0.03:
		return Sand
	case elev >= cfg.SnowLine:
		return Snow
	case elev >= cfg.SnowLine-0.1:
		return Rock
	case wet > 0.5:
		return Forest
	default:
		return Grass
	}
}

// octaveNoise sums octaves of noise, doubling frequency and scaling amplitude by persistence for each,
// and normalizes the result back to 0..1.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return math.Max(0, math.Min(1, total/maxVal))
}
