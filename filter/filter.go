// Package filter holds the resampling filter catalog and builds immutable
// resize filters from a named preset, a blur factor and expert overrides.
//
// A Filter combines a weighting function with a windowing function:
//
//	weight(x) = window(|x|/blur * scale) * weighting(|x|/blur)
//
// where scale maps the support onto the natural width of the window. A Box
// window means the weighting function is used as is, clipped by its support.
//
// Named presets resolve to a (weighting, windowing) pair through a fixed table.
// Lanczos is the one preset that changes function with the filtering mode: it
// is Sinc windowed Sinc for orthogonal (separable) use and Bessel windowed
// Bessel for cylindrical (radial) use.
package filter

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/image/draw"
)

// ErrInvalidArtifact is returned when a filter:* override cannot be parsed.
var ErrInvalidArtifact = errors.New("invalid filter artifact")

// mapping resolves a requested preset into its weighting and windowing
// filter types.
var mapping = [sentinel]struct {
	filter, window Type
}{
	Undefined: {Undefined, Box},
	Point:     {Point, Box},
	Box:       {Box, Box},
	Triangle:  {Triangle, Box},
	Hermite:   {Hermite, Box},
	Hanning:   {Sinc, Hanning},
	Hamming:   {Sinc, Hamming},
	Blackman:  {Sinc, Blackman},
	Gaussian:  {Gaussian, Box},
	Quadratic: {Quadratic, Box},
	Cubic:     {Cubic, Box},
	Catrom:    {Catrom, Box},
	Mitchell:  {Mitchell, Box},
	Lanczos:   {Lanczos, Sinc},
	Bessel:    {Bessel, Blackman},
	Sinc:      {Sinc, Blackman},
	Kaiser:    {Sinc, Kaiser},
	Welsh:     {Sinc, Welsh},
	Parzen:    {Sinc, Cubic},
	Lagrange:  {Lagrange, Box},
	Bohman:    {Sinc, Bohman},
	Bartlett:  {Sinc, Triangle},
	SincFast:  {SincFast, Blackman},
}

// presets holds, per filter type, the function it evaluates, its default
// support as a weighting function, the width it is scaled to as a windowing
// function, and the B,C pair for the cubic family.
var presets = [sentinel]struct {
	fn             function
	support, scale float64
	b, c           float64
}{
	Undefined: {boxFn, 0.0, 0.5, 0, 0},
	Point:     {boxFn, 0.0, 0.5, 0, 0},
	Box:       {boxFn, 0.5, 0.5, 0, 0},
	Triangle:  {triangleFn, 1.0, 1.0, 0, 0},
	Hermite:   {cubicBCFn, 1.0, 1.0, 0, 0},
	Hanning:   {hanningFn, 1.0, 1.0, 0, 0},
	Hamming:   {hammingFn, 1.0, 1.0, 0, 0},
	Blackman:  {blackmanFn, 1.0, 1.0, 0, 0},
	Gaussian:  {gaussianFn, 1.5, 1.5, 0, 0},
	Quadratic: {quadraticFn, 1.5, 1.5, 0, 0},
	Cubic:     {cubicBCFn, 2.0, 2.0, 1.0, 0},
	Catrom:    {cubicBCFn, 2.0, 1.0, 0, 0.5},
	Mitchell:  {cubicBCFn, 2.0, 1.0, 1.0 / 3.0, 1.0 / 3.0},
	Lanczos:   {sincFn, 3.0, 1.0, 0, 0},
	Bessel:    {besselFn, 3.2383, 1.2197, 0, 0},
	Sinc:      {sincFn, 4.0, 1.0, 0, 0},
	Kaiser:    {kaiserFn, 1.0, 1.0, 0, 0},
	Welsh:     {welshFn, 1.0, 1.0, 0, 0},
	Parzen:    {cubicBCFn, 2.0, 2.0, 1.0, 0},
	Lagrange:  {lagrangeFn, 2.0, 1.0, 0, 0},
	Bohman:    {bohmanFn, 1.0, 1.0, 0, 0},
	Bartlett:  {triangleFn, 1.0, 1.0, 0, 0},
	SincFast:  {sincFastFn, 4.0, 1.0, 0, 0},
}

// DefaultDepth is the sample depth assumed when none is given.
const DefaultDepth = 16

// Filter is a fully resolved resize filter. It is immutable once built and
// may be shared by any number of goroutines.
type Filter struct {
	filterType, windowType Type

	filter, window function

	// support is the natural half width of the filter, before blur.
	support float64
	// windowSupport is the point the window function is normalized to.
	windowSupport float64
	// scale is the reciprocal window scaling, 1/windowSupport times the
	// natural width of the window.
	scale float64
	blur  float64
	b, c  float64
	cubic [8]float64
	depth int
}

type options struct {
	overrides Overrides
	depth     int
	verbose   io.Writer
}

func (o *options) validate() error {
	if o.depth <= 0 {
		return errors.New("sample depth must be a positive value")
	}
	return nil
}

// Option configures New.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

// WithOverrides applies expert overrides, normally parsed from the filter:*
// image artifacts.
func WithOverrides(o Overrides) Option {
	return optionFunc(func(opts *options) {
		opts.overrides = o
	})
}

// WithDepth sets the sample depth in bits, which selects the precision tier
// of the SincFast polynomial.
func WithDepth(depth int) Option {
	return optionFunc(func(opts *options) {
		opts.depth = depth
	})
}

// WithVerboseWriter sets where the filter:verbose plot goes. Defaults to
// standard output.
func WithVerboseWriter(w io.Writer) Option {
	return optionFunc(func(opts *options) {
		opts.verbose = w
	})
}

// New resolves a filter preset into a Filter.
//
// blur scales both the support and the sampling pitch; values below epsilon
// are raised to epsilon. cylindrical selects the radial (two dimensional)
// variant of the windowed Sinc presets.
func New(t Type, blur float64, cylindrical bool, opts ...Option) (*Filter, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("filter type %v cannot be built", t)
	}
	o := options{depth: DefaultDepth, verbose: os.Stdout}
	for i := range opts {
		opts[i].apply(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	ov := o.overrides

	filterType := mapping[t].filter
	windowType := mapping[t].window

	f := &Filter{depth: o.depth}
	f.blur = blur
	if ov.Blur != nil {
		f.blur = *ov.Blur
	}
	if f.blur < epsilon {
		f.blur = epsilon
	}
	if cylindrical && t != Sinc {
		switch filterType {
		case Sinc:
			filterType = Bessel
		case Lanczos:
			filterType = Bessel
			windowType = Bessel
		case Gaussian:
			// Equal energy under EWA resampling.
			f.blur *= 2.0 * math.Ln2 / math.Sqrt(2.0/math.Pi)
		case Bessel:
			// Put the first zero crossing at 1.0.
			f.blur *= besselZeros[0]
		}
	}
	switch {
	case ov.Filter.Valid():
		// A raw filter request is unwindowed unless a window is named too.
		filterType = ov.Filter
		windowType = Box
		if ov.Filter == Lanczos {
			filterType, windowType = lanczosPair(cylindrical)
		}
		if ov.Window.Valid() {
			windowType = ov.Window
			if ov.Window == Lanczos {
				_, windowType = lanczosPair(cylindrical)
			}
		}
	case ov.Window.Valid():
		// A window without a filter windows Sinc or Bessel.
		filterType = Sinc
		if cylindrical {
			filterType = Bessel
		}
		windowType = ov.Window
		if ov.Window == Lanczos {
			_, windowType = lanczosPair(cylindrical)
		}
	}
	f.filterType = filterType
	f.windowType = windowType
	f.filter = presets[filterType].fn
	f.support = presets[filterType].support
	f.window = presets[windowType].fn
	f.scale = presets[windowType].scale

	if ov.Lobes != nil {
		lobes := *ov.Lobes
		if lobes < 1 {
			lobes = 1
		}
		f.support = float64(lobes)
		if filterType == Bessel {
			if lobes > len(besselZeros) {
				lobes = len(besselZeros)
			}
			f.support = besselZeros[lobes-1]
		}
	}
	if ov.Support != nil {
		f.support = math.Abs(*ov.Support)
	}
	f.windowSupport = f.support
	if ov.WindowSupport != nil {
		f.windowSupport = math.Abs(*ov.WindowSupport)
	}
	f.scale /= f.windowSupport

	if f.filter == cubicBCFn || f.window == cubicBCFn {
		if f.filter == cubicBCFn {
			f.b, f.c = presets[filterType].b, presets[filterType].c
		} else {
			f.b, f.c = presets[windowType].b, presets[windowType].c
		}
		switch {
		case ov.B != nil:
			// Keys cubic: B+2C=1 unless C is given as well.
			f.b = *ov.B
			f.c = (1.0 - f.b) / 2.0
			if ov.C != nil {
				f.c = *ov.C
			}
		case ov.C != nil:
			f.c = *ov.C
			f.b = 1.0 - 2.0*f.c
		}
		f.cubic = cubicCoefficients(f.b, f.c)
	}

	if ov.Verbose {
		if err := f.Plot(o.verbose); err != nil {
			return nil, fmt.Errorf("failed to write filter plot: %w", err)
		}
	}
	return f, nil
}

func lanczosPair(cylindrical bool) (filter, window Type) {
	if cylindrical {
		return Bessel, Bessel
	}
	return Lanczos, Sinc
}

// Support returns the blurred support, the distance beyond which Weight is
// taken to be zero.
func (f *Filter) Support() float64 {
	return f.support * f.blur
}

// Weight evaluates the windowed filter at offset x.
func (f *Filter) Weight(x float64) float64 {
	xBlur := math.Abs(x) / f.blur
	scale := 1.0
	if f.windowSupport >= epsilon && f.window != boxFn {
		scale = f.window.eval(xBlur*f.scale, f)
	}
	return scale * f.filter.eval(xBlur, f)
}

// Blur returns the effective blur, after artifact overrides and the
// cylindrical rescaling.
func (f *Filter) Blur() float64 { return f.blur }

// WindowSupport returns the point the window function is normalized to.
func (f *Filter) WindowSupport() float64 { return f.windowSupport }

// Scale returns the precomputed window scaling factor.
func (f *Filter) Scale() float64 { return f.scale }

// CubicBC returns the B and C values of a cubic filter, or zeros when neither
// function belongs to the cubic family.
func (f *Filter) CubicBC() (b, c float64) { return f.b, f.c }

// Types returns the resolved filter and window types, as requested from the
// preset table. For the Lanczos preset the filter type stays Lanczos.
func (f *Filter) Types() (filter, window Type) {
	return f.filterType, f.windowType
}

// Functions returns the weighting and windowing functions actually
// evaluated, named by the type that defines them. Any Sinc based preset
// reports Sinc and any B,C cubic reports Cubic.
func (f *Filter) Functions() (weighting, windowing Type) {
	return functionTypes[f.filter], functionTypes[f.window]
}

// Kernel adapts f to the golang.org/x/image/draw separable scaler.
func (f *Filter) Kernel() *draw.Kernel {
	return &draw.Kernel{
		Support: f.Support(),
		At:      f.Weight,
	}
}

// Plot writes the filter settings followed by its weight every 0.01 from 0
// to the blurred support, in a layout gnuplot reads directly.
func (f *Filter) Plot(w io.Writer) error {
	weighting, _ := f.Functions()
	support := f.Support()
	var err error
	printf := func(format string, a ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, a...)
		}
	}
	printf("#\n# Resize Filter (for graphing)\n#\n")
	printf("# filter = %v\n", weighting)
	printf("# window = %v\n", f.windowType)
	printf("# support = %.*g\n", plotPrecision, f.support)
	printf("# win-support = %.*g\n", plotPrecision, f.windowSupport)
	printf("# blur = %.*g\n", plotPrecision, f.blur)
	printf("# blurred_support = %.*g\n", plotPrecision, support)
	printf("# B,C = %.*g,%.*g\n", plotPrecision, f.b, plotPrecision, f.c)
	printf("#\n")
	for x := 0.0; x <= support; x += 0.01 {
		printf("%5.2f\t%.*g\n", x, plotPrecision, f.Weight(x))
	}
	// Closing zero so the plot shows where the support stops.
	printf("%5.2f\t%.*g\n", support, plotPrecision, 0.0)
	return err
}

const plotPrecision = 6
