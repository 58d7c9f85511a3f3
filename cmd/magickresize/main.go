// Command magickresize resizes an image file with any of the resize entry
// points and optionally compares the result with other resizers.
//
//	magickresize -size 640x480 -filter lanczos -define filter:lobes=4 in.png out.png
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/adriansahlman/magickresize/bmpx"
	"github.com/adriansahlman/magickresize/filter"
	"github.com/adriansahlman/magickresize/resize"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "magickresize:", err)
		os.Exit(1)
	}
}

type config struct {
	input, output string
	// A zero width or height is derived from the other to keep the aspect
	// ratio.
	width, height int
	filter        filter.Type
	blur          float64
	defines       defines
	method        string
	engine        string
	density       [2]float64
	colors        int
	compare       bool
	stream        bool
	parallel      int
	verbose       bool
}

func parseArgs(args []string, stderr io.Writer) (config, error) {
	cfg := config{defines: defines{}}
	fs := flag.NewFlagSet("magickresize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: magickresize [flags] input output")
		fs.PrintDefaults()
	}
	size := fs.String("size", "", "output size as WxH, Wx or xH")
	filterName := fs.String("filter", "", "resize filter, automatic when empty")
	density := fs.String("density", "", "target resolution X[xY] for -method resample")
	fs.Float64Var(&cfg.blur, "blur", 1.0, "support scale, above 1 blurs and below 1 sharpens")
	fs.Var(cfg.defines, "define", "artifact as key=value, may be repeated (filter:lobes=4)")
	fs.StringVar(&cfg.method, "method", "resize",
		"resize, sample, scale, thumbnail, adaptive, magnify, minify or resample")
	fs.StringVar(&cfg.engine, "engine", magickEngine, "resizer, one of "+engineNames())
	fs.IntVar(&cfg.colors, "colors", 0, "quantize the input to a palette of this many colors first")
	fs.BoolVar(&cfg.compare, "compare", false, "print the mean difference to every other engine")
	fs.BoolVar(&cfg.stream, "stream", false, "resize a BMP file as a stream")
	fs.IntVar(&cfg.parallel, "parallel", 0, "maximum goroutines per pass, 0 keeps the default")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return cfg, errors.New("expected input and output file")
	}
	cfg.input, cfg.output = fs.Arg(0), fs.Arg(1)

	var err error
	if *size != "" {
		if cfg.width, cfg.height, err = parseSize(*size); err != nil {
			return cfg, err
		}
	}
	if *filterName != "" {
		if cfg.filter, err = filter.ParseType(*filterName); err != nil {
			return cfg, err
		}
	}
	if *density != "" {
		if cfg.density, err = parseDensity(*density); err != nil {
			return cfg, err
		}
	}
	switch cfg.method {
	case "resize", "sample", "scale", "thumbnail", "adaptive":
		if *size == "" {
			return cfg, fmt.Errorf("-method %s requires -size", cfg.method)
		}
	case "magnify", "minify":
	case "resample":
		if *density == "" {
			return cfg, errors.New("-method resample requires -density")
		}
	default:
		return cfg, fmt.Errorf("unknown method %q", cfg.method)
	}
	if _, ok := engines[cfg.engine]; !ok && cfg.engine != magickEngine {
		return cfg, fmt.Errorf("unknown engine %q", cfg.engine)
	}
	if cfg.engine != magickEngine && cfg.method != "resize" {
		return cfg, fmt.Errorf("engine %s only supports -method resize", cfg.engine)
	}
	if cfg.compare && cfg.method != "resize" {
		return cfg, errors.New("-compare requires -method resize")
	}
	if cfg.stream && (cfg.width == 0 || cfg.height == 0 || cfg.method != "resize") {
		return cfg, errors.New("-stream requires -method resize and both dimensions")
	}
	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if cfg.stream {
		return stream(cfg, logger)
	}

	src, err := imaging.Open(cfg.input)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", cfg.input, err)
	}
	if cfg.colors > 0 {
		src = quantize(src, cfg.colors)
		logger.Debug("quantized input", "colors", cfg.colors)
	}
	if cfg.width == 0 || cfg.height == 0 {
		b := src.Bounds()
		cfg.width, cfg.height = fitSize(cfg.width, cfg.height, b.Dx(), b.Dy())
	}

	opts := []resize.Option{resize.WithLogger(logger), resize.WithVerboseWriter(stdout)}
	if cfg.parallel > 0 {
		opts = append(opts, resize.WithParallelLimit(cfg.parallel))
	}
	var dst image.Image
	if cfg.engine == magickEngine {
		dst, err = runMagick(cfg, src, opts...)
	} else {
		dst, err = engines[cfg.engine](cfg, src)
	}
	if err != nil {
		return err
	}
	if cfg.compare {
		if err := compare(cfg, src, dst, stdout, logger); err != nil {
			return err
		}
	}
	if err := imaging.Save(dst, cfg.output); err != nil {
		return fmt.Errorf("failed to save %q: %w", cfg.output, err)
	}
	return nil
}

func stream(cfg config, logger *slog.Logger) error {
	overrides, err := filter.ParseOverrides(cfg.defines)
	if err != nil {
		return err
	}
	t := cfg.filter
	if t == filter.Undefined {
		t = filter.Lanczos
	}
	in, err := os.Open(cfg.input)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(cfg.output)
	if err != nil {
		return err
	}
	opts := []bmpx.ResizeOption{
		bmpx.WithResizeFilter(t),
		bmpx.WithResizeBlur(cfg.blur),
		bmpx.WithResizeOverrides(overrides),
	}
	if cfg.parallel > 0 {
		opts = append(opts, bmpx.WithResizeParallelLimit(cfg.parallel))
	}
	logger.Debug("streaming resize", "file", cfg.input, "filter", t, "width", cfg.width, "height", cfg.height)
	if err := bmpx.Resize(in, out, cfg.width, cfg.height, opts...); err != nil {
		out.Close()
		return fmt.Errorf("failed to resize %q: %w", cfg.input, err)
	}
	return out.Close()
}

// defines collects -define flags. It is also the artifact source for the
// stream resizer.
type defines map[string]string

func (d defines) String() string {
	parts := make([]string, 0, len(d))
	for k, v := range d {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (d defines) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("define %q is not key=value", s)
	}
	d[key] = value
	return nil
}

func (d defines) Artifact(key string) (string, bool) {
	v, ok := d[key]
	return v, ok
}

func parseSize(s string) (width, height int, err error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok || (w == "" && h == "") {
		return 0, 0, fmt.Errorf("invalid size %q", s)
	}
	if w != "" {
		if width, err = strconv.Atoi(w); err != nil || width <= 0 {
			return 0, 0, fmt.Errorf("invalid width in size %q", s)
		}
	}
	if h != "" {
		if height, err = strconv.Atoi(h); err != nil || height <= 0 {
			return 0, 0, fmt.Errorf("invalid height in size %q", s)
		}
	}
	return width, height, nil
}

func parseDensity(s string) ([2]float64, error) {
	x, y, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		y = x
	}
	var res [2]float64
	for i, v := range []string{x, y} {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return res, fmt.Errorf("invalid density %q", s)
		}
		res[i] = f
	}
	return res, nil
}

// fitSize fills in a zero dimension from the other one and the source
// aspect ratio.
func fitSize(width, height, srcWidth, srcHeight int) (int, int) {
	switch {
	case width == 0 && height == 0:
		return srcWidth, srcHeight
	case width == 0:
		width = int(float64(srcWidth)*float64(height)/float64(srcHeight) + 0.5)
	case height == 0:
		height = int(float64(srcHeight)*float64(width)/float64(srcWidth) + 0.5)
	}
	return max(width, 1), max(height, 1)
}
