package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Travis-Britz/hexterrain/config"
	"github.com/Travis-Britz/hexterrain/hexgrid"
	"github.com/Travis-Britz/hexterrain/imagefile"
	"github.com/Travis-Britz/hexterrain/rawmap"
)

const example = `
source:
  path: TerrainMap.uncompressed
  format: raw
  layout: {header_size: 16}
cache_dir: /tmp/hexmap-test
output_dir: assets/data
workers: 2
renders:
  - name: hex
    hex_radius: 10
    scale: 16
    policy: mean
    output: TerrainMap.hex.webp
  - name: preview
    upscale: 3
    output: map_new.png
`

func TestParse(t *testing.T) {
	c, err := config.Parse([]byte(example))
	if err != nil {
		t.Fatal(err)
	}
	if c.Source.Path != "TerrainMap.uncompressed" || !c.Source.Raw() {
		t.Errorf("unexpected source %+v", c.Source)
	}
	layout := c.Source.Layout.Raw()
	expected := rawmap.DefaultLayout
	expected.HeaderSize = 16
	if layout != expected {
		t.Errorf("expected unset layout keys to keep their defaults; got %+v", layout)
	}
	if c.Workers != 2 || c.OutputDir != "assets/data" || c.CacheDir != "/tmp/hexmap-test" {
		t.Errorf("unexpected settings %+v", c)
	}
	if len(c.Renders) != 2 {
		t.Fatalf("expected 2 renders; got %d", len(c.Renders))
	}

	hex := c.Renders[0]
	if !hex.Hex() {
		t.Error("expected the first render to be a hex render")
	}
	spec := hex.Spec()
	if spec.HexRadius != 10 || spec.Scale != 16 || spec.Policy != hexgrid.PolygonMean {
		t.Errorf("unexpected spec %#v", spec)
	}
	if f, err := hex.Format(); err != nil || f != imagefile.WebP {
		t.Errorf("expected webp output; got %s (%v)", f, err)
	}

	preview := c.Renders[1]
	if preview.Hex() || preview.Upscale != 3 {
		t.Errorf("unexpected preview render %+v", preview)
	}
	if preview.Spec().Scale != 1 {
		t.Errorf("expected scale to default to 1; got %v", preview.Spec().Scale)
	}
}

func TestParseRejects(t *testing.T) {
	tt := map[string]string{
		"empty document":          ``,
		"unknown key":             "renders:\n  - {name: a, output: a.png, hex_raduis: 3}\n",
		"two sources":             "source: {path: a.bin, url: 'https://example.com/a.bin'}\nrenders:\n  - {name: a, output: a.png}\n",
		"no source":               "renders:\n  - {name: a, output: a.png}\n",
		"no renders":              "source: {path: a.bin}\nrenders: []\n",
		"zero radius":             "source: {path: a.bin}\nrenders:\n  - {name: a, output: a.png, hex_radius: 0}\n",
		"bad policy":              "source: {path: a.bin}\nrenders:\n  - {name: a, output: a.png, hex_radius: 3, policy: median}\n",
		"bad extension":           "source: {path: a.bin}\nrenders:\n  - {name: a, output: a.gif}\n",
		"duplicate name":          "source: {path: a.bin}\nrenders:\n  - {name: a, output: a.png}\n  - {name: a, output: b.png}\n",
		"shared output":           "source: {path: a.bin}\nrenders:\n  - {name: a, output: a.png}\n  - {name: b, output: a.png}\n",
		"bad layout":              "source: {path: a.bin, layout: {record_size: 2}}\nrenders:\n  - {name: a, output: a.png}\n",
		"negative synthetic size": "source: {synthetic: {width: -1, height: 3}}\nrenders:\n  - {name: a, output: a.png}\n",
		"not yaml":                "source: [\n",
	}
	for name, doc := range tt {
		if _, err := config.Parse([]byte(doc)); !errors.Is(err, config.ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid; got %v", name, err)
		}
	}
}

func TestSourceRaw(t *testing.T) {
	tt := map[string]struct {
		Source config.Source
		Raw    bool
	}{
		"blob":            {config.Source{Path: "TerrainMap.uncompressed"}, true},
		"png":             {config.Source{Path: "TerrainMap.gwm.png"}, false},
		"url with query":  {config.Source{URL: "https://example.com/map.WEBP?v=1"}, false},
		"compressed blob": {config.Source{URL: "https://example.com/TerrainMap.zst"}, true},
		"forced image":    {config.Source{Path: "terrain.bin", Format: "image"}, false},
		"forced raw":      {config.Source{Path: "terrain.png", Format: "raw"}, true},
	}
	for name, tc := range tt {
		if got := tc.Source.Raw(); got != tc.Raw {
			t.Errorf("%s: expected Raw() = %t", name, tc.Raw)
		}
	}
}

func TestDefault(t *testing.T) {
	c := config.Default()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Source.Raw() {
		t.Error("expected the default source to be an image")
	}
	spec := c.Renders[0].Spec()
	if spec.HexRadius != 10 || spec.Scale != 16 || spec.Policy != hexgrid.PointSample {
		t.Errorf("unexpected default spec %#v", spec)
	}
}

func TestLoad(t *testing.T) {
	name := filepath.Join(t.TempDir(), "hexmap.yaml")
	if err := os.WriteFile(name, []byte(example), 0600); err != nil {
		t.Fatal(err)
	}
	c, err := config.Load(name)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Renders) != 2 {
		t.Errorf("expected 2 renders; got %d", len(c.Renders))
	}
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist; got %v", err)
	}
}
