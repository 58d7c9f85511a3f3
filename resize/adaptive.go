package resize

import (
	"fmt"
	"math"

	"github.com/adriansahlman/magickresize/internal/parallel"
	"github.com/adriansahlman/magickresize/pixel"
)

// meshPixel holds red, green, blue, black and alpha. Colors are
// premultiplied by alpha, which is scaled to [0, 1].
type meshPixel [5]float64

func (p meshPixel) luminance() float64 {
	return 0.299*p[0] + 0.587*p[1] + 0.114*p[2]
}

// triangle interpolates linearly over the triangle p, q, r where dx runs
// from p towards q and dy from p towards r.
func triangle(p, q, r meshPixel, dx, dy float64) meshPixel {
	var out meshPixel
	for i := range out {
		out[i] = p[i] + dx*(q[i]-p[i]) + dy*(r[i]-p[i])
	}
	return out
}

// mesh interpolates inside the square p0 p1 (top) p2 p3 (bottom), split
// along the diagonal whose ends differ least in luminance.
func mesh(p [4]meshPixel, dx, dy float64) meshPixel {
	if math.Abs(p[0].luminance()-p[3].luminance()) < math.Abs(p[1].luminance()-p[2].luminance()) {
		if dx <= dy {
			return triangle(p[2], p[3], p[0], dx, 1.0-dy)
		}
		return triangle(p[1], p[0], p[3], 1.0-dx, dy)
	}
	if dx <= 1.0-dy {
		return triangle(p[0], p[1], p[2], dx, dy)
	}
	return triangle(p[3], p[2], p[1], 1.0-dx, 1.0-dy)
}

// AdaptiveResizeImage resizes img by mesh interpolation between the four
// source pixels around each output pixel. It is meant for small size
// changes of images with sharp edges. The result is DirectClass.
func AdaptiveResizeImage(img *pixel.Image, columns, rows int, opts ...Option) (*pixel.Image, error) {
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
	resized, err := img.CloneSizeClass(columns, rows, pixel.DirectClass)
	if err != nil {
		return nil, err
	}

	prog := newProgress(img, resizeTag, int64(rows))
	var errs lineErrors
	o.parallel.Run(0, rows, func(chunks <-chan parallel.Chunk) {
		// The two source rows need separate views as GetPixels reuses
		// its buffer.
		topView := img.AcquireView()
		defer topView.Release()
		bottomView := img.AcquireView()
		defer bottomView.Release()
		dstView := resized.AcquireView()
		defer dstView.Release()
		for c := range chunks {
			for y := c.Start; y < c.Stop; y++ {
				if prog.cancelled() {
					continue
				}
				if err := adaptiveRow(y, img, resized, topView, bottomView, dstView); err != nil {
					errs.add(err)
				}
				prog.step()
			}
		}
	})
	if err := errs.err(prog); err != nil {
		return nil, fmt.Errorf("failed to resize %q: %w", img.Filename, err)
	}
	resized.Type = img.Type
	return resized, nil
}

func adaptiveRow(y int, src, dst *pixel.Image, topView, bottomView, dstView *pixel.View) error {
	sy := float64(y)*float64(src.Rows())/float64(dst.Rows()) - 0.5
	y0 := math.Floor(sy)
	dy := sy - y0
	top, bottom := clampIndex(int(y0), src.Rows()), clampIndex(int(y0)+1, src.Rows())
	topRow, err := topView.GetPixels(0, top, src.Columns(), 1)
	if err != nil {
		return err
	}
	bottomRow, err := bottomView.GetPixels(0, bottom, src.Columns(), 1)
	if err != nil {
		return err
	}
	q, err := dstView.QueuePixels(0, y, dst.Columns(), 1)
	if err != nil {
		return err
	}

	sl, dl := src.Layout(), dst.Layout()
	load := func(row []pixel.Quantum, x int) meshPixel {
		s := row[x*sl.Channels : (x+1)*sl.Channels]
		alpha := 1.0
		if sl.Alpha >= 0 {
			alpha = quantumScale * float64(s[sl.Alpha])
		}
		p := meshPixel{alpha * float64(s[0]), alpha * float64(s[1]), alpha * float64(s[2]), 0, alpha}
		if sl.Black >= 0 {
			p[3] = alpha * float64(s[sl.Black])
		}
		return p
	}
	for x := 0; x < dst.Columns(); x++ {
		sx := float64(x)*float64(src.Columns())/float64(dst.Columns()) - 0.5
		x0 := math.Floor(sx)
		left, right := clampIndex(int(x0), src.Columns()), clampIndex(int(x0)+1, src.Columns())
		v := mesh([4]meshPixel{
			load(topRow, left),
			load(topRow, right),
			load(bottomRow, left),
			load(bottomRow, right),
		}, sx-x0, dy)
		gamma := v[4]
		if math.Abs(gamma) <= epsilon {
			gamma = 1.0
		}
		gamma = 1.0 / gamma
		out := q[x*dl.Channels : (x+1)*dl.Channels]
		out[0] = pixel.ClampToQuantum(gamma * v[0])
		out[1] = pixel.ClampToQuantum(gamma * v[1])
		out[2] = pixel.ClampToQuantum(gamma * v[2])
		if dl.Black >= 0 {
			out[dl.Black] = pixel.ClampToQuantum(gamma * v[3])
		}
		if dl.Alpha >= 0 {
			out[dl.Alpha] = pixel.ClampToQuantum(pixel.QuantumRange * v[4])
		}
	}
	return dstView.SyncPixels()
}

func clampIndex(i, n int) int {
	return min(max(i, 0), n-1)
}
