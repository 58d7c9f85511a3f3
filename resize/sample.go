package resize

import (
	"fmt"

	"github.com/adriansahlman/magickresize/internal/parallel"
	"github.com/adriansahlman/magickresize/pixel"
)

const sampleTag = "Sample/Image"

// SampleImage resizes img by copying the nearest source pixel, without any
// filtering. Every channel is copied, so palette images stay PseudoClass.
func SampleImage(img *pixel.Image, columns, rows int, opts ...Option) (*pixel.Image, error) {
	if columns <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: %dx%d for %q", pixel.ErrImageSize, columns, rows, img.Filename)
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	if columns == img.Columns() && rows == img.Rows() {
		return img.Clone()
	}
	sampled, err := img.CloneSize(columns, rows)
	if err != nil {
		return nil, err
	}
	xOffset := make([]int, columns)
	for x := range xOffset {
		xOffset[x] = int((float64(x) + 0.5) * float64(img.Columns()) / float64(columns))
	}

	channels := img.Layout().Channels
	prog := newProgress(img, sampleTag, int64(rows))
	var errs lineErrors
	o.parallel.Run(0, rows, func(chunks <-chan parallel.Chunk) {
		srcView := img.AcquireView()
		defer srcView.Release()
		dstView := sampled.AcquireView()
		defer dstView.Release()
		for c := range chunks {
			for y := c.Start; y < c.Stop; y++ {
				if prog.cancelled() {
					continue
				}
				if err := sampleRow(y, img, sampled, xOffset, channels, srcView, dstView); err != nil {
					errs.add(err)
				}
				prog.step()
			}
		}
	})
	if err := errs.err(prog); err != nil {
		return nil, fmt.Errorf("failed to sample %q: %w", img.Filename, err)
	}
	sampled.Type = img.Type
	return sampled, nil
}

func sampleRow(
	y int,
	src, dst *pixel.Image,
	xOffset []int,
	channels int,
	srcView, dstView *pixel.View,
) error {
	yOffset := int((float64(y) + 0.5) * float64(src.Rows()) / float64(dst.Rows()))
	p, err := srcView.GetPixels(0, yOffset, src.Columns(), 1)
	if err != nil {
		return err
	}
	q, err := dstView.QueuePixels(0, y, dst.Columns(), 1)
	if err != nil {
		return err
	}
	for x, offset := range xOffset {
		copy(q[x*channels:(x+1)*channels], p[offset*channels:(offset+1)*channels])
	}
	return dstView.SyncPixels()
}
