// Package config loads render configuration files.
//
// A config names one terrain source and any number of renders of it.
// Files are YAML and are checked against an embedded JSON schema before decoding,
// so typos in key names are reported instead of silently ignored.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Travis-Britz/hexterrain/hexgrid"
	"github.com/Travis-Britz/hexterrain/imagefile"
	"github.com/Travis-Britz/hexterrain/rawmap"
)

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("hexmap.schema.json", schemaJSON)

// ErrInvalid is returned (wrapped) for configs that fail validation.
var ErrInvalid = errors.New("invalid config")

// Config is a full render config.
type Config struct {
	Source    Source   `yaml:"source"`
	CacheDir  string   `yaml:"cache_dir"`
	OutputDir string   `yaml:"output_dir"`
	Workers   int      `yaml:"workers"`
	Renders   []Render `yaml:"renders"`
}

// Source says where the terrain raster comes from.
// Exactly one of Path, URL and Synthetic is set.
type Source struct {
	Path string `yaml:"path,omitempty"`
	URL  string `yaml:"url,omitempty"`

	// Format is "raw" for a terrain blob or "image" for an image file.
	// When empty it is guessed from the file extension.
	Format string `yaml:"format,omitempty"`

	Layout    Layout     `yaml:"layout"`
	Synthetic *Synthetic `yaml:"synthetic,omitempty"`
}

// Layout is the yaml form of [rawmap.Layout].
type Layout struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	HeaderSize int `yaml:"header_size"`
	RecordSize int `yaml:"record_size"`
	Blue       int `yaml:"blue"`
	Green      int `yaml:"green"`
	Red        int `yaml:"red"`
}

// Synthetic requests a generated noise terrain instead of a file.
type Synthetic struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Seed   int64 `yaml:"seed"`
}

// Render is one output image.
// A render with a hex radius is resampled onto hexagons;
// the result (or the plain source, without a hex radius) is then enlarged by Upscale.
type Render struct {
	Name      string         `yaml:"name"`
	HexRadius float64        `yaml:"hex_radius,omitempty"`
	Scale     float64        `yaml:"scale,omitempty"`
	Policy    hexgrid.Policy `yaml:"policy,omitempty"`
	Antialias bool           `yaml:"antialias,omitempty"`
	Upscale   int            `yaml:"upscale,omitempty"`
	Output    string         `yaml:"output"`
}

// Hex reports whether the render resamples onto hexagons.
func (r Render) Hex() bool { return r.HexRadius > 0 }

// Spec returns the hex grid parameters for the render. Scale defaults to 1.
func (r Render) Spec() hexgrid.Spec {
	scale := r.Scale
	if scale == 0 {
		scale = 1
	}
	return hexgrid.Spec{
		HexRadius: r.HexRadius,
		Scale:     scale,
		Policy:    r.Policy,
		Antialias: r.Antialias,
	}
}

// Format returns the output encoding, taken from the output file extension.
func (r Render) Format() (imagefile.Format, error) {
	return imagefile.FormatFromPath(r.Output)
}

// Raw converts l for the decoder.
func (l Layout) Raw() rawmap.Layout {
	return rawmap.Layout{
		Width:      l.Width,
		Height:     l.Height,
		HeaderSize: l.HeaderSize,
		RecordSize: l.RecordSize,
		Blue:       l.Blue,
		Green:      l.Green,
		Red:        l.Red,
	}
}

func layoutOf(l rawmap.Layout) Layout {
	return Layout{
		Width:      l.Width,
		Height:     l.Height,
		HeaderSize: l.HeaderSize,
		RecordSize: l.RecordSize,
		Blue:       l.Blue,
		Green:      l.Green,
		Red:        l.Red,
	}
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".bmp":  true,
	".tga":  true,
}

// Raw reports whether the source is a terrain blob rather than an image file.
func (s Source) Raw() bool {
	switch s.Format {
	case "raw":
		return true
	case "image":
		return false
	}
	name := s.Path
	if name == "" {
		name = s.URL
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name = name[:i]
		}
	}
	return !imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// base holds the defaults every config starts from.
func base() Config {
	return Config{
		Source:    Source{Layout: layoutOf(rawmap.DefaultLayout)},
		OutputDir: ".",
	}
}

// Default returns the config of the original terrain hex script:
// assets/data/TerrainMap.gwm.png resampled with radius 10 hexes at 16x into assets/data/TerrainMap.hex.png.
func Default() Config {
	c := base()
	c.Source.Path = filepath.Join("assets", "data", "TerrainMap.gwm.png")
	c.OutputDir = filepath.Join("assets", "data")
	c.Renders = []Render{{
		Name:      "hex",
		HexRadius: 10,
		Scale:     16,
		Policy:    hexgrid.PointSample,
		Output:    "TerrainMap.hex.png",
	}}
	return c
}

// Load reads and parses the named config file.
func Load(name string) (Config, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: %s: %w", name, err)
	}
	return c, nil
}

// Parse validates a yaml document against the config schema and decodes it.
// Keys left out of the document keep their defaults.
func Parse(b []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	// the schema validator wants json values
	j, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	var v any
	if err := json.Unmarshal(j, &v); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := schema.Validate(v); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	c := base()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the parts of a config the schema can't,
// including configs assembled from command line flags.
func (c Config) Validate() error {
	set := 0
	for _, ok := range []bool{c.Source.Path != "", c.Source.URL != "", c.Source.Synthetic != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: source needs exactly one of path, url or synthetic", ErrInvalid)
	}
	if c.Source.Raw() && c.Source.Synthetic == nil {
		if err := c.Source.Layout.Raw().Validate(); err != nil {
			return fmt.Errorf("%w: source layout: %w", ErrInvalid, err)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalid)
	}
	if len(c.Renders) == 0 {
		return fmt.Errorf("%w: no renders", ErrInvalid)
	}

	names := map[string]bool{}
	outputs := map[string]bool{}
	for i, r := range c.Renders {
		if r.Name == "" {
			return fmt.Errorf("%w: render %d has no name", ErrInvalid, i)
		}
		if names[r.Name] {
			return fmt.Errorf("%w: duplicate render name %q", ErrInvalid, r.Name)
		}
		names[r.Name] = true
		if outputs[r.Output] {
			return fmt.Errorf("%w: renders share output %q", ErrInvalid, r.Output)
		}
		outputs[r.Output] = true
		if _, err := r.Format(); err != nil {
			return fmt.Errorf("%w: render %q: %w", ErrInvalid, r.Name, err)
		}
		if r.HexRadius != 0 {
			if err := r.Spec().Validate(); err != nil {
				return fmt.Errorf("%w: render %q: %w", ErrInvalid, r.Name, err)
			}
		}
		if r.Upscale < 0 {
			return fmt.Errorf("%w: render %q: upscale must not be negative", ErrInvalid, r.Name)
		}
	}
	return nil
}
