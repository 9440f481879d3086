package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Travis-Britz/hexterrain"
	"github.com/Travis-Britz/hexterrain/config"
	"github.com/Travis-Britz/hexterrain/hexgrid"
	"github.com/Travis-Britz/hexterrain/imagefile"
	"github.com/Travis-Britz/hexterrain/rawmap"
	"github.com/Travis-Britz/hexterrain/synthetic"
)

// loadSource reads (or generates) the terrain raster every render starts from.
func loadSource(ctx context.Context, src config.Source, cacheDir string) (*hexterrain.Raster, error) {
	if s := src.Synthetic; s != nil {
		slog.DebugContext(ctx, "generating synthetic terrain", "width", s.Width, "height", s.Height, "seed", s.Seed)
		return synthetic.Terrain(s.Width, s.Height, s.Seed), nil
	}

	var f io.ReadCloser
	switch {
	case src.URL != "":
		file, err := rawmap.Fetch(ctx, src.URL, cacheDir)
		if err != nil {
			return nil, fmt.Errorf("unable to fetch terrain source: %w", err)
		}
		f = file
	case src.Path == "-":
		f = io.NopCloser(os.Stdin)
	default:
		file, err := os.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("unable to open terrain source: %w", err)
		}
		f = file
	}
	defer f.Close()

	if !src.Raw() {
		img, format, err := imagefile.Decode(f)
		if err != nil {
			return nil, err
		}
		slog.DebugContext(ctx, "decoded terrain image", "format", format, "width", img.Width, "height", img.Height)
		return img, nil
	}

	r, err := rawmap.Open(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	img, err := rawmap.Decode(r, src.Layout.Raw())
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "decoded terrain blob", "width", img.Width, "height", img.Height)
	return img, nil
}

// render produces the output raster for r.
func render(src *hexterrain.Raster, r config.Render) (*hexterrain.Raster, error) {
	out := src
	if r.Hex() {
		var err error
		out, err = hexgrid.Resample(src, r.Spec())
		if err != nil {
			return nil, err
		}
	}
	if r.Upscale > 1 {
		var err error
		out, err = imagefile.Upscale(out, r.Upscale)
		if err != nil {
			return nil, err
		}
	}
	if out.Empty() {
		return nil, fmt.Errorf("output is %dx%d; increase the scale", out.Width, out.Height)
	}
	return out, nil
}

// result describes one render in the manifest.
type result struct {
	Name      string  `json:"name"`
	File      string  `json:"file"`
	MimeType  string  `json:"mime_type"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	Bytes     int64   `json:"bytes,omitempty"`
	HexRadius float64 `json:"hex_radius,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
	Policy    string  `json:"policy,omitempty"`
	Antialias bool    `json:"antialias,omitempty"`
	Upscale   int     `json:"upscale,omitempty"`
	Duration  string  `json:"duration,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type manifest struct {
	RunID     string    `json:"run_id"`
	Generated time.Time `json:"generated"`
	Source    string    `json:"source"`
	Width     int       `json:"source_width"`
	Height    int       `json:"source_height"`
	Renders   []result  `json:"renders"`
}

// runRenders runs every render in cfg on a pool of workers.
// Results are in the same order as cfg.Renders.
func runRenders(ctx context.Context, cfg config.Config, src *hexterrain.Raster) []result {
	results := make([]result, len(cfg.Renders))
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(cfg.Renders))

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = runRender(ctx, cfg.OutputDir, src, cfg.Renders[i])
			}
		}()
	}
	for i := range cfg.Renders {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func runRender(ctx context.Context, dir string, src *hexterrain.Raster, r config.Render) result {
	res := result{
		Name:      r.Name,
		File:      r.Output,
		HexRadius: r.HexRadius,
		Upscale:   r.Upscale,
		Antialias: r.Antialias,
	}
	if r.Hex() {
		res.Scale = r.Spec().Scale
		res.Policy = r.Policy.String()
	}
	if err := context.Cause(ctx); err != nil {
		res.Error = err.Error()
		return res
	}

	start := time.Now()
	format, err := r.Format()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.MimeType = format.MimeType()

	out, err := render(src, r)
	if err != nil {
		slog.InfoContext(ctx, "error rendering map", "render", r.Name, "error", err)
		res.Error = err.Error()
		return res
	}
	res.Width, res.Height = out.Width, out.Height

	renderer := imagefile.Renderer(out, format)
	defer renderer.Close()

	// encode to a buffer first so that if there were an encoding error for some reason,
	// we don't truncate an existing map file
	buf := bytes.Buffer{}
	if _, err := io.Copy(&buf, renderer); err != nil {
		slog.InfoContext(ctx, "error encoding map", "render", r.Name, "format", format, "error", err)
		res.Error = err.Error()
		return res
	}

	fileName := outputPath(dir, r.Output)
	n, err := writeFile(fileName, &buf)
	if err != nil {
		slog.InfoContext(ctx, "error while writing image", "file", fileName, "error", err)
		res.Error = err.Error()
		return res
	}
	res.Bytes = n
	res.Duration = time.Since(start).Round(time.Millisecond).String()
	slog.InfoContext(ctx, "wrote map", "render", r.Name, "file", fileName, "width", out.Width, "height", out.Height, "bytes", n, "duration", res.Duration)
	return res
}

// outputPath places a render output inside the output directory unless it is already absolute.
func outputPath(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func writeFile(name string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0750); err != nil {
		return 0, fmt.Errorf("failed to create directory %q: %w", filepath.Dir(name), err)
	}
	f, err := os.Create(name)
	if err != nil {
		return 0, fmt.Errorf("unable to create file %q: %w", name, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func writeManifest(ctx context.Context, cfg config.Config, src *hexterrain.Raster, results []result) error {
	m := manifest{
		Generated: time.Now().UTC(),
		Source:    describeSource(cfg.Source),
		Width:     src.Width,
		Height:    src.Height,
		Renders:   results,
	}
	if id, ok := ctx.Value(runID).(uuid.UUID); ok {
		m.RunID = id.String()
	}

	buf := bytes.Buffer{}
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("unable to encode manifest: %w", err)
	}
	name := filepath.Join(cfg.OutputDir, "manifest.json")
	if _, err := writeFile(name, &buf); err != nil {
		return fmt.Errorf("unable to write manifest: %w", err)
	}
	slog.DebugContext(ctx, "wrote manifest", "file", name)
	return nil
}
