package filter_test

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adriansahlman/magickresize/filter"
)

type artifacts map[string]string

func (a artifacts) Artifact(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

func ptr[T any](v T) *T {
	return &v
}

func TestParseType(t *testing.T) {
	for _, ft := range filter.Types() {
		for _, name := range []string{ft.String(), strings.ToUpper(ft.String()), strings.ToLower(ft.String())} {
			got, err := filter.ParseType(name)
			require.NoError(t, err, name)
			require.Equal(t, ft, got, name)
		}
	}
	aliases := map[string]filter.Type{
		"Catmull-Rom":    filter.Catrom,
		"jinc":           filter.Bessel,
		"Tent":           filter.Triangle,
		"nearest":        filter.Point,
		"SincPolynomial": filter.SincFast,
	}
	for name, want := range aliases {
		got, err := filter.ParseType(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}
	_, err := filter.ParseType("lanczos5")
	require.Error(t, err)
}

func TestNewIsIdempotent(t *testing.T) {
	offsets := []float64{0, 0.25, 0.5, 1.0}
	for _, ft := range filter.Types() {
		for _, cylindrical := range []bool{false, true} {
			for _, blur := range []float64{0.5, 1.0, 1.75} {
				t.Run(fmt.Sprintf("%v/cylindrical=%v/blur=%v", ft, cylindrical, blur), func(t *testing.T) {
					a, err := filter.New(ft, blur, cylindrical)
					require.NoError(t, err)
					b, err := filter.New(ft, blur, cylindrical)
					require.NoError(t, err)
					require.Equal(t, a.Support(), b.Support())
					require.Equal(t, a.Scale(), b.Scale())
					require.Equal(t, a.Blur(), b.Blur())
					for _, x := range append(offsets, a.Support()) {
						require.Equal(t, a.Weight(x), b.Weight(x), "x=%v", x)
						require.Equal(t, a.Weight(x), a.Weight(-x), "x=%v", x)
					}
				})
			}
		}
	}
}

func TestNewRejectsUndefined(t *testing.T) {
	_, err := filter.New(filter.Type(-1), 1.0, false)
	require.Error(t, err)
	_, err = filter.New(filter.Lanczos, 1.0, false, filter.WithDepth(0))
	require.Error(t, err)
}

func TestLanczosFunctionsByMode(t *testing.T) {
	f, err := filter.New(filter.Lanczos, 1.0, false)
	require.NoError(t, err)
	weighting, windowing := f.Functions()
	require.Equal(t, filter.Sinc, weighting)
	require.Equal(t, filter.Sinc, windowing)
	require.Equal(t, 3.0, f.Support())

	f, err = filter.New(filter.Lanczos, 1.0, true)
	require.NoError(t, err)
	weighting, windowing = f.Functions()
	require.Equal(t, filter.Bessel, weighting)
	require.Equal(t, filter.Bessel, windowing)
}

func TestCylindricalPromotion(t *testing.T) {
	f, err := filter.New(filter.Blackman, 1.0, true)
	require.NoError(t, err)
	weighting, windowing := f.Functions()
	require.Equal(t, filter.Bessel, weighting)
	require.Equal(t, filter.Blackman, windowing)

	// A plain Sinc request is honoured as is.
	f, err = filter.New(filter.Sinc, 1.0, true)
	require.NoError(t, err)
	weighting, _ = f.Functions()
	require.Equal(t, filter.Sinc, weighting)

	f, err = filter.New(filter.Gaussian, 1.0, true)
	require.NoError(t, err)
	require.InDelta(t, 2.0*math.Ln2/math.Sqrt(2.0/math.Pi), f.Blur(), 1e-12)

	f, err = filter.New(filter.Bessel, 1.0, true)
	require.NoError(t, err)
	require.InDelta(t, 1.21966989126651, f.Blur(), 1e-12)
}

func TestCatalogValues(t *testing.T) {
	tests := []struct {
		filter  filter.Type
		support float64
		x, want float64
	}{
		{filter.Box, 0.5, 0.3, 1.0},
		{filter.Triangle, 1.0, 0.5, 0.5},
		{filter.Triangle, 1.0, 1.0, 0.0},
		{filter.Hermite, 1.0, 0.0, 1.0},
		{filter.Hermite, 1.0, 0.5, 0.5},
		{filter.Cubic, 2.0, 0.0, 2.0 / 3.0},
		{filter.Catrom, 2.0, 0.0, 1.0},
		{filter.Catrom, 2.0, 1.0, 0.0},
		{filter.Mitchell, 2.0, 0.0, 8.0 / 9.0},
		{filter.Quadratic, 1.5, 0.0, 0.75},
		{filter.Quadratic, 1.5, 1.0, 0.125},
		{filter.Gaussian, 1.5, 0.0, 1.0},
		{filter.Lanczos, 3.0, 0.0, 1.0},
		{filter.Lanczos, 3.0, 1.0, 0.0},
		{filter.Lanczos, 3.0, 2.0, 0.0},
		{filter.Sinc, 4.0, 0.0, 1.0},
		{filter.Kaiser, 4.0, 0.0, 1.0},
		{filter.Lagrange, 2.0, 0.0, 1.0},
		{filter.Lagrange, 2.0, 1.0, 0.0},
		{filter.Lagrange, 2.0, 2.0, 0.0},
		{filter.Hanning, 4.0, 0.0, 1.0},
		{filter.Hanning, 4.0, 1.0, 0.0},
		{filter.Bartlett, 4.0, 0.5, 0.875 * 2.0 / math.Pi},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%v", tt.filter, tt.x), func(t *testing.T) {
			f, err := filter.New(tt.filter, 1.0, false)
			require.NoError(t, err)
			require.InDelta(t, tt.support, f.Support(), 1e-12)
			require.InDelta(t, tt.want, f.Weight(tt.x), 1e-9)
		})
	}
}

func TestBesselMatchesJ1(t *testing.T) {
	f, err := filter.New(filter.Bessel, 1.0, false, filter.WithOverrides(filter.Overrides{
		Filter: filter.Bessel,
	}))
	require.NoError(t, err)
	weighting, windowing := f.Functions()
	require.Equal(t, filter.Bessel, weighting)
	require.Equal(t, filter.Box, windowing)
	require.InDelta(t, math.Pi/4.0, f.Weight(0), 1e-12)
	for _, x := range []float64{0.1, 0.5, 1.0, 1.21966989126651, 2.0, 2.6, 3.0, 3.2383} {
		require.InDelta(t, math.J1(math.Pi*x)/(2.0*x), f.Weight(x), 1e-7, "x=%v", x)
	}
}

func TestSincFastApproximatesSinc(t *testing.T) {
	for _, depth := range []int{8, 16, 32, 64} {
		f, err := filter.New(filter.SincFast, 1.0, false,
			filter.WithDepth(depth),
			filter.WithOverrides(filter.Overrides{Filter: filter.SincFast}),
		)
		require.NoError(t, err)
		require.InDelta(t, 1.0, f.Weight(0), 2e-3)
		for _, x := range []float64{0.1, 0.5, 1.5, 2.5, 3.7, 4.5} {
			px := math.Pi * x
			require.InDelta(t, math.Sin(px)/px, f.Weight(x), 2e-3, "depth=%d x=%v", depth, x)
		}
	}
}

func TestOverrides(t *testing.T) {
	t.Run("filter", func(t *testing.T) {
		f, err := filter.New(filter.Lanczos, 1.0, false, filter.WithOverrides(filter.Overrides{
			Filter: filter.Triangle,
		}))
		require.NoError(t, err)
		weighting, windowing := f.Types()
		require.Equal(t, filter.Triangle, weighting)
		require.Equal(t, filter.Box, windowing)
		require.Equal(t, 1.0, f.Support())
	})
	t.Run("window", func(t *testing.T) {
		f, err := filter.New(filter.Mitchell, 1.0, false, filter.WithOverrides(filter.Overrides{
			Window: filter.Hanning,
		}))
		require.NoError(t, err)
		weighting, windowing := f.Functions()
		require.Equal(t, filter.Sinc, weighting)
		require.Equal(t, filter.Hanning, windowing)

		f, err = filter.New(filter.Mitchell, 1.0, true, filter.WithOverrides(filter.Overrides{
			Window: filter.Hanning,
		}))
		require.NoError(t, err)
		weighting, _ = f.Functions()
		require.Equal(t, filter.Bessel, weighting)

		f, err = filter.New(filter.Gaussian, 1.0, false, filter.WithOverrides(filter.Overrides{
			Window: filter.Lanczos,
		}))
		require.NoError(t, err)
		weighting, windowing = f.Functions()
		require.Equal(t, filter.Sinc, weighting)
		require.Equal(t, filter.Sinc, windowing)
	})
	t.Run("lobes", func(t *testing.T) {
		f, err := filter.New(filter.Lanczos, 1.0, false, filter.WithOverrides(filter.Overrides{
			Lobes: ptr(2),
		}))
		require.NoError(t, err)
		require.Equal(t, 2.0, f.Support())
		require.Equal(t, 2.0, f.WindowSupport())

		f, err = filter.New(filter.Lanczos, 1.0, false, filter.WithOverrides(filter.Overrides{
			Lobes: ptr(-4),
		}))
		require.NoError(t, err)
		require.Equal(t, 1.0, f.Support())

		f, err = filter.New(filter.Bessel, 1.0, false, filter.WithOverrides(filter.Overrides{
			Lobes: ptr(40),
		}))
		require.NoError(t, err)
		require.InDelta(t, 16.247661874701, f.Support(), 1e-12)
	})
	t.Run("support", func(t *testing.T) {
		f, err := filter.New(filter.Lanczos, 2.0, false, filter.WithOverrides(filter.Overrides{
			Lobes:   ptr(2),
			Support: ptr(-5.0),
		}))
		require.NoError(t, err)
		require.Equal(t, 10.0, f.Support())
	})
	t.Run("win-support", func(t *testing.T) {
		f, err := filter.New(filter.Lanczos, 1.0, false, filter.WithOverrides(filter.Overrides{
			WindowSupport: ptr(4.0),
		}))
		require.NoError(t, err)
		require.Equal(t, 3.0, f.Support())
		require.Equal(t, 4.0, f.WindowSupport())
		require.Equal(t, 0.25, f.Scale())
	})
	t.Run("blur", func(t *testing.T) {
		f, err := filter.New(filter.Triangle, 1.0, false, filter.WithOverrides(filter.Overrides{
			Blur: ptr(2.0),
		}))
		require.NoError(t, err)
		require.Equal(t, 2.0, f.Support())
		require.Equal(t, 0.5, f.Weight(1.0))

		f, err = filter.New(filter.Triangle, 0, false)
		require.NoError(t, err)
		require.Greater(t, f.Blur(), 0.0)
	})
	t.Run("b", func(t *testing.T) {
		f, err := filter.New(filter.Mitchell, 1.0, false, filter.WithOverrides(filter.Overrides{
			B: ptr(0.0),
		}))
		require.NoError(t, err)
		b, c := f.CubicBC()
		require.Equal(t, 0.0, b)
		require.Equal(t, 0.5, c)
		require.InDelta(t, 1.0, f.Weight(0), 1e-12)
	})
	t.Run("c", func(t *testing.T) {
		f, err := filter.New(filter.Mitchell, 1.0, false, filter.WithOverrides(filter.Overrides{
			C: ptr(0.25),
		}))
		require.NoError(t, err)
		b, c := f.CubicBC()
		require.Equal(t, 0.5, b)
		require.Equal(t, 0.25, c)
	})
	t.Run("bc", func(t *testing.T) {
		f, err := filter.New(filter.Cubic, 1.0, false, filter.WithOverrides(filter.Overrides{
			B: ptr(0.2),
			C: ptr(0.7),
		}))
		require.NoError(t, err)
		b, c := f.CubicBC()
		require.Equal(t, 0.2, b)
		require.Equal(t, 0.7, c)
	})
	t.Run("parzen-window", func(t *testing.T) {
		f, err := filter.New(filter.Parzen, 1.0, false)
		require.NoError(t, err)
		b, c := f.CubicBC()
		require.Equal(t, 1.0, b)
		require.Equal(t, 0.0, c)
	})
}

func TestParseOverrides(t *testing.T) {
	o, err := filter.ParseOverrides(artifacts{})
	require.NoError(t, err)
	require.True(t, o.IsZero())

	o, err = filter.ParseOverrides(artifacts{
		filter.ArtifactFilter:        "jinc",
		filter.ArtifactWindow:        "Hanning",
		filter.ArtifactLobes:         " 4 ",
		filter.ArtifactSupport:       "2.5",
		filter.ArtifactWindowSupport: "3",
		filter.ArtifactBlur:          "0.9",
		filter.ArtifactB:             "0.1",
		filter.ArtifactC:             "0.45",
		filter.ArtifactVerbose:       "true",
	})
	require.NoError(t, err)
	require.Equal(t, filter.Bessel, o.Filter)
	require.Equal(t, filter.Hanning, o.Window)
	require.Equal(t, 4, *o.Lobes)
	require.Equal(t, 2.5, *o.Support)
	require.Equal(t, 3.0, *o.WindowSupport)
	require.Equal(t, 0.9, *o.Blur)
	require.Equal(t, 0.1, *o.B)
	require.Equal(t, 0.45, *o.C)
	require.True(t, o.Verbose)

	for key, value := range map[string]string{
		filter.ArtifactFilter:  "lanczos5",
		filter.ArtifactWindow:  "undefined",
		filter.ArtifactLobes:   "2.5",
		filter.ArtifactSupport: "wide",
		filter.ArtifactB:       "",
	} {
		_, err := filter.ParseOverrides(artifacts{key: value})
		require.ErrorIs(t, err, filter.ErrInvalidArtifact, key)
	}
}

func TestPlot(t *testing.T) {
	var buf bytes.Buffer
	f, err := filter.New(filter.Lanczos, 1.0, false,
		filter.WithOverrides(filter.Overrides{Verbose: true}),
		filter.WithVerboseWriter(&buf),
	)
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "# filter = Sinc\n")
	require.Contains(t, out, "# window = Sinc\n")
	require.Contains(t, out, "# support = 3\n")
	require.Contains(t, out, " 0.00\t1\n")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, " 3.00\t0", lines[len(lines)-1])

	var again bytes.Buffer
	require.NoError(t, f.Plot(&again))
	require.Equal(t, out, again.String())
}

func TestKernel(t *testing.T) {
	f, err := filter.New(filter.Catrom, 1.0, false)
	require.NoError(t, err)
	k := f.Kernel()
	require.Equal(t, f.Support(), k.Support)
	for _, x := range []float64{0, 0.3, 1.2, 1.9} {
		require.Equal(t, f.Weight(x), k.At(x))
	}
}
