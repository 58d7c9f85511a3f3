package resize

import (
	"errors"
	"fmt"
	"math"

	"github.com/adriansahlman/magickresize/filter"
	"github.com/adriansahlman/magickresize/internal/parallel"
	"github.com/adriansahlman/magickresize/pixel"
)

// ErrNoContributions is returned when no source pixel falls inside the
// support of an output pixel.
var ErrNoContributions = errors.New("no contributing source pixels")

const quantumScale = 1.0 / pixel.QuantumRange

type direction int

const (
	horizontal direction = iota
	vertical
)

func (d direction) String() string {
	if d == vertical {
		return "vertical"
	}
	return "horizontal"
}

// filterPass resizes src into dst along one axis; the other axis must
// already match. Every output line (a column for horizontal passes, a row
// for vertical ones) is independent, so lines are spread over the workers.
//
// A failing line does not stop the others. Already written lines are kept.
func filterPass(
	dir direction,
	f *filter.Filter,
	src, dst *pixel.Image,
	factor float64,
	o *options,
	prog *progress,
) error {
	extent, lines := src.Columns(), dst.Columns()
	if dir == vertical {
		extent, lines = src.Rows(), dst.Rows()
	}
	axis := NewAxis(f, factor, extent)
	class := src.Class()
	if axis.Interpolates() {
		class = pixel.DirectClass
	}
	if err := dst.SetStorageClass(class); err != nil {
		return fmt.Errorf("failed to set storage class of %q: %w", dst.Filename, err)
	}

	var errs lineErrors
	o.parallel.Run(0, lines, func(chunks <-chan parallel.Chunk) {
		srcView := src.AcquireView()
		defer srcView.Release()
		dstView := dst.AcquireView()
		defer dstView.Release()
		contributions := make([]Contribution, 0, axis.MaxContributions())
		for c := range chunks {
			for line := c.Start; line < c.Stop; line++ {
				if prog.cancelled() {
					continue
				}
				contributions = axis.Contributions(line, contributions)
				if err := convolveLine(dir, axis, line, contributions, src, dst, srcView, dstView); err != nil {
					errs.add(err)
				}
				prog.step()
			}
		}
	})
	return errs.err(prog)
}

// convolveLine computes and syncs one output line.
func convolveLine(
	dir direction,
	axis Axis,
	line int,
	contributions []Contribution,
	src, dst *pixel.Image,
	srcView, dstView *pixel.View,
) error {
	n := len(contributions)
	if n == 0 {
		return fmt.Errorf("%w: %s line %d of %q", ErrNoContributions, dir, line, src.Filename)
	}
	first := contributions[0].Pixel
	width := contributions[n-1].Pixel - first + 1

	// Offset of the source pixel for line position t and contribution
	// pixel i is (t*lineStep + (i-first)*contribStep) pixels into block.
	var (
		block, q              []pixel.Quantum
		length                int
		lineStep, contribStep int
		err                   error
	)
	if dir == horizontal {
		length = dst.Rows()
		lineStep, contribStep = width, 1
		if block, err = srcView.GetPixels(first, 0, width, src.Rows()); err != nil {
			return err
		}
		if q, err = dstView.QueuePixels(line, 0, 1, length); err != nil {
			return err
		}
	} else {
		length = dst.Columns()
		lineStep, contribStep = 1, src.Columns()
		if block, err = srcView.GetPixels(0, first, src.Columns(), width); err != nil {
			return err
		}
		if q, err = dstView.QueuePixels(0, line, length, 1); err != nil {
			return err
		}
	}

	sl, dl := src.Layout(), dst.Layout()
	sc, dc := sl.Channels, dl.Channels
	nearest := -1
	if sl.Index >= 0 && dl.Index >= 0 {
		nearest = axis.Nearest(line)
	}
	var r, g, b, k, a, gamma, alpha float64
	for t := 0; t < length; t++ {
		out := q[t*dc : (t+1)*dc]
		r, g, b, k, a = 0, 0, 0, 0, 0
		if sl.Alpha < 0 {
			for _, c := range contributions {
				off := (t*lineStep + (c.Pixel-first)*contribStep) * sc
				p := block[off : off+sc]
				r += c.Weight * float64(p[0])
				g += c.Weight * float64(p[1])
				b += c.Weight * float64(p[2])
				if sl.Black >= 0 {
					k += c.Weight * float64(p[sl.Black])
				}
			}
			out[0] = pixel.ClampToQuantum(r)
			out[1] = pixel.ClampToQuantum(g)
			out[2] = pixel.ClampToQuantum(b)
			if dl.Black >= 0 {
				out[dl.Black] = pixel.ClampToQuantum(k)
			}
		} else {
			gamma = 0
			for _, c := range contributions {
				off := (t*lineStep + (c.Pixel-first)*contribStep) * sc
				p := block[off : off+sc]
				alpha = c.Weight * quantumScale * float64(p[sl.Alpha])
				r += alpha * float64(p[0])
				g += alpha * float64(p[1])
				b += alpha * float64(p[2])
				if sl.Black >= 0 {
					k += alpha * float64(p[sl.Black])
				}
				a += c.Weight * float64(p[sl.Alpha])
				gamma += alpha
			}
			if math.Abs(gamma) <= epsilon {
				gamma = 1.0
			}
			gamma = 1.0 / gamma
			out[0] = pixel.ClampToQuantum(gamma * r)
			out[1] = pixel.ClampToQuantum(gamma * g)
			out[2] = pixel.ClampToQuantum(gamma * b)
			if dl.Black >= 0 {
				out[dl.Black] = pixel.ClampToQuantum(gamma * k)
			}
			out[dl.Alpha] = pixel.ClampToQuantum(a)
		}
		if dl.Index >= 0 {
			out[dl.Index] = 0
			if nearest >= 0 {
				off := (t*lineStep + (contributions[nearest].Pixel-first)*contribStep) * sc
				out[dl.Index] = block[off+sl.Index]
			}
		}
	}
	return dstView.SyncPixels()
}
