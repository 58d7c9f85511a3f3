package resize

import (
	"github.com/adriansahlman/magickresize/filter"
)

const epsilon = 1.0e-12

// Contribution is the weight one source pixel carries into an output pixel.
type Contribution struct {
	Pixel  int
	Weight float64
}

// Axis computes contribution lists along one image axis.
type Axis struct {
	filter *filter.Filter
	factor float64
	// scale widens the filter when reducing; its reciprocal is applied to
	// source offsets.
	scale   float64
	support float64
	extent  int
	// interpolates is set when the blurred and scaled support exceeds 0.5,
	// before the point sampling correction.
	interpolates bool
}

// NewAxis prepares contributions from a source of extent pixels resized by
// factor (output size over source size).
func NewAxis(f *filter.Filter, factor float64, extent int) Axis {
	scale := max(1.0/factor+epsilon, 1.0)
	support := scale * f.Support()
	a := Axis{
		filter:       f,
		factor:       factor,
		extent:       extent,
		interpolates: support > 0.5,
	}
	if support < 0.5 {
		// Too small even for nearest neighbour: point sample.
		support = 0.5
		scale = 1.0
	}
	a.support = support
	a.scale = 1.0 / scale
	return a
}

// Support returns the scaled support in source pixels.
func (a Axis) Support() float64 { return a.support }

// Interpolates reports whether output pixels blend several source pixels.
// When it is false every output pixel copies exactly one source pixel.
func (a Axis) Interpolates() bool { return a.interpolates }

// MaxContributions is the longest list Contributions can return.
func (a Axis) MaxContributions() int {
	return int(2.0*a.support + 3.0)
}

// Center returns the source coordinate of output pixel i.
func (a Axis) Center(i int) float64 {
	return (float64(i) + 0.5) / a.factor
}

// Bounds returns the source range [start, stop) contributing to a center.
func (a Axis) Bounds(center float64) (start, stop int) {
	start = int(max(center-a.support+0.5, 0.0))
	stop = int(min(center+a.support+0.5, float64(a.extent)))
	return start, stop
}

// Contributions fills buf with the normalized weights of output pixel i and
// returns it. buf should hold MaxContributions entries; it grows otherwise.
func (a Axis) Contributions(i int, buf []Contribution) []Contribution {
	center := a.Center(i)
	start, stop := a.Bounds(center)
	buf = buf[:0]
	density := 0.0
	for n := start; n < stop; n++ {
		w := a.filter.Weight(a.scale * (float64(n) - center + 0.5))
		buf = append(buf, Contribution{Pixel: n, Weight: w})
		density += w
	}
	if density != 0.0 && density != 1.0 {
		density = 1.0 / density
		for k := range buf {
			buf[k].Weight *= density
		}
	}
	return buf
}

// Nearest returns the offset within the contributions of output pixel i of
// the source pixel closest to its center.
func (a Axis) Nearest(i int) int {
	center := a.Center(i)
	start, stop := a.Bounds(center)
	return int(min(max(center, float64(start)), float64(stop)-1.0)+0.5) - start
}

// Weights returns the contribution lists of all size output pixels and the
// length of the longest one.
func (a Axis) Weights(size int) ([][]Contribution, int) {
	out := make([][]Contribution, size)
	longest := 0
	for i := range out {
		out[i] = a.Contributions(i, make([]Contribution, 0, a.MaxContributions()))
		if len(out[i]) > longest {
			longest = len(out[i])
		}
	}
	return out, longest
}
