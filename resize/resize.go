// Package resize changes the pixel dimensions of images.
//
// ResizeImage reconstructs the image with a windowed filter applied as two
// separable passes. SampleImage, ScaleImage, AdaptiveResizeImage and
// ThumbnailImage provide cheaper or specialized alternatives.
package resize

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/adriansahlman/magickresize/filter"
	"github.com/adriansahlman/magickresize/pixel"
)

// workLoadFactor is the x*y scale above which filtering horizontally first
// produces the cheaper intermediate image.
const workLoadFactor = 0.265

const resizeTag = "Resize/Image"

// AcquireResizeFilter builds a filter for img, honouring its filter:*
// artifacts and taking the SincFast precision from its depth.
func AcquireResizeFilter(
	img *pixel.Image,
	t filter.Type,
	blur float64,
	cylindrical bool,
	opts ...filter.Option,
) (*filter.Filter, error) {
	overrides, err := filter.ParseOverrides(img)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filter settings of %q: %w", img.Filename, err)
	}
	depth := img.Depth
	if depth <= 0 {
		depth = filter.DefaultDepth
	}
	opts = append([]filter.Option{
		filter.WithOverrides(overrides),
		filter.WithDepth(depth),
	}, opts...)
	return filter.New(t, blur, cylindrical, opts...)
}

// defaultFilter picks a filter when none is requested: Point when the size
// does not change, Mitchell for palette or transparent images and for
// enlargements, Lanczos otherwise.
func defaultFilter(img *pixel.Image, xFactor, yFactor float64) filter.Type {
	if xFactor == 1.0 && yFactor == 1.0 {
		return filter.Point
	}
	if img.Class() == pixel.PseudoClass || img.Alpha() || xFactor*yFactor > 1.0 {
		return filter.Mitchell
	}
	return filter.Lanczos
}

// ResizeImage resizes img to columns x rows with filter t, or an automatic
// choice when t is filter.Undefined. blur > 1 softens and blur < 1 sharpens.
//
// Resizing to the same size with blur 1 and no filter:* artifacts returns a
// clone. On any failure no image is returned.
func ResizeImage(
	img *pixel.Image,
	columns, rows int,
	t filter.Type,
	blur float64,
	opts ...Option,
) (*pixel.Image, error) {
	if columns <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: %dx%d for %q", pixel.ErrImageSize, columns, rows, img.Filename)
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	overrides, err := filter.ParseOverrides(img)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filter settings of %q: %w", img.Filename, err)
	}
	if columns == img.Columns() && rows == img.Rows() && blur == 1.0 && overrides.IsZero() {
		return img.Clone()
	}

	xFactor := float64(columns) / float64(img.Columns())
	yFactor := float64(rows) / float64(img.Rows())
	horizontalFirst := xFactor*yFactor > workLoadFactor
	switch o.order {
	case PassHorizontalFirst:
		horizontalFirst = true
	case PassVerticalFirst:
		horizontalFirst = false
	}

	resized, err := img.CloneSize(columns, rows)
	if err != nil {
		return nil, err
	}
	var interm *pixel.Image
	if horizontalFirst {
		interm, err = img.CloneSize(columns, img.Rows())
	} else {
		interm, err = img.CloneSize(img.Columns(), rows)
	}
	if err != nil {
		return nil, err
	}

	filterType := t
	if filterType == filter.Undefined {
		filterType = defaultFilter(img, xFactor, yFactor)
	}
	f, err := AcquireResizeFilter(img, filterType, blur, false, filter.WithVerboseWriter(o.verbose))
	if err != nil {
		return nil, err
	}
	weighting, windowing := f.Functions()
	o.logger.Debug(
		"resize",
		slog.String("file", img.Filename),
		slog.String("from", fmt.Sprintf("%dx%d", img.Columns(), img.Rows())),
		slog.String("to", fmt.Sprintf("%dx%d", columns, rows)),
		slog.String("filter", filterType.String()),
		slog.String("weighting", weighting.String()),
		slog.String("windowing", windowing.String()),
		slog.Float64("support", f.Support()),
		slog.Bool("horizontalFirst", horizontalFirst),
	)

	type pass struct {
		dir      direction
		src, dst *pixel.Image
		factor   float64
	}
	var passes [2]pass
	var span int64
	if horizontalFirst {
		span = int64(interm.Columns() + rows)
		passes = [2]pass{
			{horizontal, img, interm, xFactor},
			{vertical, interm, resized, yFactor},
		}
	} else {
		span = int64(interm.Rows() + columns)
		passes = [2]pass{
			{vertical, img, interm, yFactor},
			{horizontal, interm, resized, xFactor},
		}
	}
	prog := newProgress(img, resizeTag, span)
	for _, p := range passes {
		start := time.Now()
		if err := filterPass(p.dir, f, p.src, p.dst, p.factor, &o, prog); err != nil {
			return nil, fmt.Errorf("%s pass of %q failed: %w", p.dir, img.Filename, err)
		}
		o.logger.Debug(
			"pass done",
			slog.String("direction", p.dir.String()),
			slog.String("class", p.dst.Class().String()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	resized.Type = img.Type
	return resized, nil
}

// MagnifyImage doubles the size of img with the Cubic filter.
func MagnifyImage(img *pixel.Image, opts ...Option) (*pixel.Image, error) {
	return ResizeImage(img, 2*img.Columns(), 2*img.Rows(), filter.Cubic, 1.0, opts...)
}

// MinifyImage halves the size of img with the Cubic filter.
func MinifyImage(img *pixel.Image, opts ...Option) (*pixel.Image, error) {
	return ResizeImage(img, img.Columns()/2, img.Rows()/2, filter.Cubic, 1.0, opts...)
}

// ResampleImage resizes img so that at the new resolution it covers the
// same physical size as before. An unset resolution counts as 72.
func ResampleImage(
	img *pixel.Image,
	xResolution, yResolution float64,
	t filter.Type,
	blur float64,
	opts ...Option,
) (*pixel.Image, error) {
	oldX, oldY := img.XResolution, img.YResolution
	if oldX == 0 {
		oldX = 72.0
	}
	if oldY == 0 {
		oldY = 72.0
	}
	width := int(xResolution*float64(img.Columns())/oldX + 0.5)
	height := int(yResolution*float64(img.Rows())/oldY + 0.5)
	out, err := ResizeImage(img, width, height, t, blur, opts...)
	if err != nil {
		return nil, err
	}
	out.XResolution = xResolution
	out.YResolution = yResolution
	return out, nil
}
