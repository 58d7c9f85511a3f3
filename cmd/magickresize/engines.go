package main

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
	nfnt "github.com/nfnt/resize"
	"github.com/soniakeys/quant/median"
	"golang.org/x/image/draw"

	"github.com/adriansahlman/magickresize/filter"
	"github.com/adriansahlman/magickresize/pixel"
	"github.com/adriansahlman/magickresize/resize"
)

const magickEngine = "magick"

// engine resizes src to the configured size with a third-party resizer.
type engine func(cfg config, src image.Image) (image.Image, error)

var engines = map[string]engine{
	"imaging": resizeImaging,
	"nfnt":    resizeNfnt,
	"bild":    resizeBild,
	"xdraw":   resizeXDraw,
}

func runMagick(cfg config, src image.Image, opts ...resize.Option) (image.Image, error) {
	img, err := pixel.FromImage(src)
	if err != nil {
		return nil, err
	}
	for k, v := range cfg.defines {
		img.SetArtifact(k, v)
	}
	img.Filename = cfg.input
	img.MagickColumns, img.MagickRows = img.Columns(), img.Rows()
	if format, err := imaging.FormatFromFilename(cfg.input); err == nil {
		img.Magick = format.String()
	}
	if fi, err := os.Stat(cfg.input); err == nil {
		img.Extent = fi.Size()
	}
	img.Filter, img.Blur = cfg.filter, cfg.blur

	var out *pixel.Image
	switch cfg.method {
	case "resize":
		out, err = resize.ResizeImage(img, cfg.width, cfg.height, cfg.filter, cfg.blur, opts...)
	case "sample":
		out, err = resize.SampleImage(img, cfg.width, cfg.height, opts...)
	case "scale":
		out, err = resize.ScaleImage(img, cfg.width, cfg.height, opts...)
	case "thumbnail":
		out, err = resize.ThumbnailImage(img, cfg.width, cfg.height, opts...)
	case "adaptive":
		out, err = resize.AdaptiveResizeImage(img, cfg.width, cfg.height, opts...)
	case "magnify":
		out, err = resize.MagnifyImage(img, opts...)
	case "minify":
		out, err = resize.MinifyImage(img, opts...)
	case "resample":
		out, err = resize.ResampleImage(img, cfg.density[0], cfg.density[1], cfg.filter, cfg.blur, opts...)
	default:
		err = fmt.Errorf("unknown method %q", cfg.method)
	}
	if err != nil {
		return nil, err
	}
	return out.ToImage()
}

// referenceFilter is the filter the other engines approximate. They have no
// automatic selection, so Lanczos stands in for it.
func referenceFilter(cfg config) filter.Type {
	if cfg.filter == filter.Undefined {
		return filter.Lanczos
	}
	return cfg.filter
}

func unsupported(engine string, t filter.Type) error {
	return fmt.Errorf("engine %s has no %v filter", engine, t)
}

func resizeImaging(cfg config, src image.Image) (image.Image, error) {
	var f imaging.ResampleFilter
	switch t := referenceFilter(cfg); t {
	case filter.Point:
		f = imaging.NearestNeighbor
	case filter.Box:
		f = imaging.Box
	case filter.Triangle:
		f = imaging.Linear
	case filter.Hermite:
		f = imaging.Hermite
	case filter.Hanning:
		f = imaging.Hann
	case filter.Hamming:
		f = imaging.Hamming
	case filter.Blackman:
		f = imaging.Blackman
	case filter.Gaussian:
		f = imaging.Gaussian
	case filter.Cubic:
		f = imaging.BSpline
	case filter.Catrom:
		f = imaging.CatmullRom
	case filter.Mitchell:
		f = imaging.MitchellNetravali
	case filter.Lanczos:
		f = imaging.Lanczos
	case filter.Welsh:
		f = imaging.Welch
	case filter.Bartlett:
		f = imaging.Bartlett
	default:
		return nil, unsupported("imaging", t)
	}
	return imaging.Resize(src, cfg.width, cfg.height, f), nil
}

func resizeNfnt(cfg config, src image.Image) (image.Image, error) {
	var f nfnt.InterpolationFunction
	switch t := referenceFilter(cfg); t {
	case filter.Point:
		f = nfnt.NearestNeighbor
	case filter.Triangle:
		f = nfnt.Bilinear
	case filter.Catrom:
		f = nfnt.Bicubic
	case filter.Mitchell:
		f = nfnt.MitchellNetravali
	case filter.Lanczos:
		f = nfnt.Lanczos3
	default:
		return nil, unsupported("nfnt", t)
	}
	return nfnt.Resize(uint(cfg.width), uint(cfg.height), src, f), nil
}

func resizeBild(cfg config, src image.Image) (image.Image, error) {
	var f transform.ResampleFilter
	switch t := referenceFilter(cfg); t {
	case filter.Point:
		f = transform.NearestNeighbor
	case filter.Box:
		f = transform.Box
	case filter.Triangle:
		f = transform.Linear
	case filter.Gaussian:
		f = transform.Gaussian
	case filter.Catrom:
		f = transform.CatmullRom
	case filter.Mitchell:
		f = transform.MitchellNetravali
	case filter.Lanczos:
		f = transform.Lanczos
	default:
		return nil, unsupported("bild", t)
	}
	return transform.Resize(src, cfg.width, cfg.height, f), nil
}

// resizeXDraw runs our own filter, artifacts included, through the
// x/image/draw kernel scaler.
func resizeXDraw(cfg config, src image.Image) (image.Image, error) {
	overrides, err := filter.ParseOverrides(cfg.defines)
	if err != nil {
		return nil, err
	}
	f, err := filter.New(referenceFilter(cfg), cfg.blur, false, filter.WithOverrides(overrides))
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(image.Rect(0, 0, cfg.width, cfg.height))
	f.Kernel().Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// compare prints the mean absolute channel difference between dst and the
// output of every other engine.
func compare(cfg config, src, dst image.Image, w io.Writer, logger *slog.Logger) error {
	names := make([]string, 0, len(engines)+1)
	for name := range engines {
		names = append(names, name)
	}
	names = append(names, magickEngine)
	sort.Strings(names)
	for _, name := range names {
		if name == cfg.engine {
			continue
		}
		var ref image.Image
		var err error
		if name == magickEngine {
			ref, err = runMagick(cfg, src)
		} else {
			ref, err = engines[name](cfg, src)
		}
		if err != nil {
			logger.Info("skipping comparison", "engine", name, "error", err)
			continue
		}
		diff, err := meanDifference(dst, ref)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%.4f\n", name, diff)
	}
	return nil
}

// meanDifference returns the mean absolute difference of the 8-bit NRGBA
// channels of a and b.
func meanDifference(a, b image.Image) (float64, error) {
	if a.Bounds().Size() != b.Bounds().Size() {
		return 0, fmt.Errorf("cannot compare %v with %v", a.Bounds().Size(), b.Bounds().Size())
	}
	na, nb := imaging.Clone(a), imaging.Clone(b)
	if len(na.Pix) == 0 {
		return 0, nil
	}
	var sum int
	for i := range na.Pix {
		d := int(na.Pix[i]) - int(nb.Pix[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / float64(len(na.Pix)), nil
}

// quantize reduces src to a median cut palette of at most colors entries.
func quantize(src image.Image, colors int) image.Image {
	p := median.Quantizer(colors).Paletted(src)
	draw.FloydSteinberg.Draw(p, p.Rect, src, src.Bounds().Min)
	return p
}

func engineNames() string {
	names := []string{magickEngine}
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names[1:])
	return strings.Join(names, ", ")
}
