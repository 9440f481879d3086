// Command hexmap renders terrain map images as hexagon tiled maps for the web map viewer.
//
// The terrain source is a raw terrain blob exported from the game (optionally zstd or gzip compressed),
// an image file, a URL of either, or generated noise terrain.
// Each render listed in the config file (or described by flags) is written to the output directory
// along with a manifest.json describing every output.
//
// Usage:
//
//	hexmap -in TerrainMap.uncompressed -raw -radius 10 -scale 16 TerrainMap.hex.png
//	hexmap -config hexmap.yaml
//	hexmap -synthetic 256x256:7 -radius 6 -scale 4 -policy mean - > preview.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Travis-Britz/hexterrain/config"
	"github.com/Travis-Britz/hexterrain/hexgrid"
	"github.com/Travis-Britz/hexterrain/imagefile"
)

type options struct {
	ConfigFile string
	In         string
	URL        string
	Raw        bool
	Synthetic  string
	Radius     float64
	Scale      float64
	Policy     string
	Antialias  bool
	Upscale    int
	OutputDir  string
	CacheDir   string
	Workers    int
	VerboseLog bool
	Output     string

	// set holds the names of flags given on the command line
	set map[string]bool
}

var settings = options{
	CacheDir: filepath.Join(os.TempDir(), "hexmap-cache"),
}

func main() {
	flag.StringVar(&settings.ConfigFile, "config", "", "Read sources and renders from a yaml config file. Other flags override the file.")
	flag.StringVar(&settings.In, "in", "", "Terrain source file: a raw terrain blob or an image. \"-\" reads stdin.")
	flag.StringVar(&settings.URL, "url", "", "Download the terrain source from a url. Downloads are cached in -cachedir.")
	flag.BoolVar(&settings.Raw, "raw", false, "Treat the source as a raw terrain blob regardless of its file extension.")
	flag.StringVar(&settings.Synthetic, "synthetic", "", "Generate a noise terrain source instead of reading one, e.g. \"512x512\" or \"512x512:7\" with a seed.")
	flag.Float64Var(&settings.Radius, "radius", 10, "Hex radius in output pixels. 0 skips the hex resample.")
	flag.Float64Var(&settings.Scale, "scale", 16, "Output size multiplier for the hex resample.")
	flag.StringVar(&settings.Policy, "policy", "point", "How hex colors are picked from the source (point, mean).")
	flag.BoolVar(&settings.Antialias, "antialias", false, "Blend hexagon edges instead of painting hard pixel boundaries.")
	flag.IntVar(&settings.Upscale, "upscale", 0, "Enlarge the output by a whole number factor with nearest neighbour scaling.")
	flag.StringVar(&settings.OutputDir, "outputdir", "", "File paths will be appended to this directory.")
	flag.StringVar(&settings.CacheDir, "cachedir", settings.CacheDir, "Directory for downloaded terrain sources.")
	flag.IntVar(&settings.Workers, "workers", 0, "Number of renders to run at once. 0 uses one per CPU.")
	flag.BoolVar(&settings.VerboseLog, "v", false, "Enable writing verbose logging information to stderr.")
	flag.Parse()

	settings.Output = flag.Arg(0)
	settings.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { settings.set[f.Name] = true })

	var logLevel = slog.LevelInfo
	if settings.VerboseLog {
		logLevel = slog.LevelDebug
	}
	slog.SetLogLoggerLevel(logLevel)
	baseLogger := slog.New(&contextHandler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}),
	})
	slog.SetDefault(baseLogger)

	ctx, shutdown := context.WithCancelCause(context.Background())
	ctx = context.WithValue(ctx, runID, uuid.New())
	go func() {
		defer slog.Debug("received interrupt")
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt)
		<-stop
		shutdown(errGracefulShutdown)
	}()

	if err := run(ctx, settings); err != nil {
		if errors.Is(err, context.Canceled) {
			err = context.Cause(ctx)
		}
		if errors.Is(err, errGracefulShutdown) {
			return
		}
		slog.ErrorContext(ctx, err.Error())
		os.Exit(1)
	}
}

var errGracefulShutdown = errors.New("received shutdown signal")

func run(ctx context.Context, o options) error {
	cfg, err := o.build()
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "starting", "source", describeSource(cfg.Source), "renders", len(cfg.Renders), "outputdir", cfg.OutputDir, "workers", cfg.Workers)

	src, err := loadSource(ctx, cfg.Source, cfg.CacheDir)
	if err != nil {
		return err
	}

	if o.Output == "-" {
		r := cfg.Renders[0]
		out, err := render(src, r)
		if err != nil {
			return fmt.Errorf("render %q: %w", r.Name, err)
		}
		format, _ := r.Format()
		return writeToOutput(os.Stdout, imagefile.Renderer(out, format))
	}

	results := runRenders(ctx, cfg, src)
	if err := writeManifest(ctx, cfg, src, results); err != nil {
		return err
	}

	var errs []error
	for _, res := range results {
		if res.Error != "" {
			errs = append(errs, fmt.Errorf("render %q: %s", res.Name, res.Error))
		}
	}
	if err := context.Cause(ctx); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// build assembles the run config from the config file (or the defaults) and the flags given on the command line.
func (o options) build() (config.Config, error) {
	cfg := config.Default()
	if o.ConfigFile != "" {
		var err error
		cfg, err = config.Load(o.ConfigFile)
		if err != nil {
			return cfg, err
		}
	}
	given := func(name string) bool { return o.set[name] }

	switch {
	case given("in"):
		cfg.Source = config.Source{Path: o.In, Layout: cfg.Source.Layout}
	case given("url"):
		cfg.Source = config.Source{URL: o.URL, Layout: cfg.Source.Layout}
	case given("synthetic"):
		s, err := parseSynthetic(o.Synthetic)
		if err != nil {
			return cfg, err
		}
		cfg.Source = config.Source{Synthetic: &s, Layout: cfg.Source.Layout}
	}
	if o.Raw {
		cfg.Source.Format = "raw"
	}
	if given("outputdir") {
		cfg.OutputDir = o.OutputDir
	}
	if given("cachedir") || cfg.CacheDir == "" {
		cfg.CacheDir = o.CacheDir
	}
	if given("workers") {
		cfg.Workers = o.Workers
	}

	// render flags apply to every render in the config
	for i := range cfg.Renders {
		r := &cfg.Renders[i]
		if given("radius") {
			r.HexRadius = o.Radius
		}
		if given("scale") {
			r.Scale = o.Scale
		}
		if given("policy") {
			p, err := hexgrid.ParsePolicy(o.Policy)
			if err != nil {
				return cfg, fmt.Errorf("invalid value for -policy: %w", err)
			}
			r.Policy = p
		}
		if given("antialias") {
			r.Antialias = o.Antialias
		}
		if given("upscale") {
			r.Upscale = o.Upscale
		}
	}

	switch {
	case o.Output == "":
	case len(cfg.Renders) != 1:
		return cfg, fmt.Errorf("an output file can only be given for a single render; the config has %d", len(cfg.Renders))
	case o.Output == "-":
		// stdout gets png unless the config asked for something else
		if _, err := cfg.Renders[0].Format(); err != nil {
			cfg.Renders[0].Output = "stdout.png"
		}
	default:
		cfg.Renders[0].Output = o.Output
		if !given("outputdir") {
			// the output argument is a path of its own, not one inside the config's output directory
			cfg.OutputDir = filepath.Dir(o.Output)
			cfg.Renders[0].Output = filepath.Base(o.Output)
		}
		if cfg.Renders[0].Name == "" {
			cfg.Renders[0].Name = strings.TrimSuffix(filepath.Base(o.Output), filepath.Ext(o.Output))
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseSynthetic parses WIDTHxHEIGHT with an optional :SEED suffix.
func parseSynthetic(s string) (config.Synthetic, error) {
	size, seed, hasSeed := strings.Cut(s, ":")
	ws, hs, ok := strings.Cut(size, "x")
	if !ok {
		return config.Synthetic{}, fmt.Errorf("invalid value for -synthetic %q: expected WIDTHxHEIGHT[:SEED]", s)
	}
	var out config.Synthetic
	var err error
	if out.Width, err = strconv.Atoi(ws); err != nil || out.Width <= 0 {
		return config.Synthetic{}, fmt.Errorf("invalid width in -synthetic %q", s)
	}
	if out.Height, err = strconv.Atoi(hs); err != nil || out.Height <= 0 {
		return config.Synthetic{}, fmt.Errorf("invalid height in -synthetic %q", s)
	}
	if hasSeed {
		if out.Seed, err = strconv.ParseInt(seed, 10, 64); err != nil {
			return config.Synthetic{}, fmt.Errorf("invalid seed in -synthetic %q: %w", s, err)
		}
	}
	return out, nil
}

func describeSource(s config.Source) string {
	switch {
	case s.Synthetic != nil:
		return fmt.Sprintf("synthetic %dx%d seed %d", s.Synthetic.Width, s.Synthetic.Height, s.Synthetic.Seed)
	case s.URL != "":
		return s.URL
	default:
		return s.Path
	}
}

func writeToOutput(w io.Writer, r io.Reader) error {
	slog.Debug("writing to stdout")
	n, err := io.Copy(w, r)
	if err != nil {
		return fmt.Errorf("failed to write output: %w (%d bytes written)", err, n)
	}
	slog.Debug(fmt.Sprintf("finished with %d bytes written", n))
	return nil
}

type contextHandler struct {
	slog.Handler
}

type contextKey string

var runID = contextKey("run_id")

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(runID).(uuid.UUID); ok {
		r.AddAttrs(slog.String(string(runID), id.String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{h.Handler.WithGroup(name)}
}
