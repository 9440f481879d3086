package synthetic_test

import (
	"bytes"
	"testing"

	"github.com/Travis-Britz/hexterrain"
	"github.com/Travis-Britz/hexterrain/synthetic"
)

func TestTerrainIsDeterministic(t *testing.T) {
	a := synthetic.Terrain(64, 48, 7)
	b := synthetic.Terrain(64, 48, 7)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("expected the same seed to produce the same raster")
	}
	c := synthetic.Terrain(64, 48, 8)
	if bytes.Equal(a.Pix, c.Pix) {
		t.Error("expected a different seed to produce a different raster")
	}
}

func TestTerrainUsesPalette(t *testing.T) {
	palette := map[hexterrain.RGB]bool{
		synthetic.DeepWater:    true,
		synthetic.ShallowWater: true,
		synthetic.Sand:         true,
		synthetic.Grass:        true,
		synthetic.Forest:       true,
		synthetic.Rock:         true,
		synthetic.Snow:         true,
	}
	img := synthetic.Terrain(128, 128, 42)
	if img.Width != 128 || img.Height != 128 {
		t.Fatalf("expected 128x128; got %dx%d", img.Width, img.Height)
	}
	seen := map[hexterrain.RGB]bool{}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := img.RGBAt(x, y)
			if !palette[c] {
				t.Fatalf("pixel %d,%d: %v is not a palette color", x, y, c)
			}
			seen[c] = true
		}
	}
	if len(seen) < 2 {
		t.Errorf("expected varied terrain; got only %v", seen)
	}
}

func TestTerrainEmpty(t *testing.T) {
	tt := map[string][2]int{
		"zero width":  {0, 10},
		"zero height": {10, 0},
		"negative":    {-3, 4},
	}
	for name, size := range tt {
		img := synthetic.Terrain(size[0], size[1], 1)
		if !img.Empty() {
			t.Errorf("%s: expected an empty raster; got %dx%d", name, img.Width, img.Height)
		}
	}
}
