package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Artifact keys read by ParseOverrides.
const (
	ArtifactFilter        = "filter:filter"
	ArtifactWindow        = "filter:window"
	ArtifactLobes         = "filter:lobes"
	ArtifactSupport       = "filter:support"
	ArtifactWindowSupport = "filter:win-support"
	ArtifactBlur          = "filter:blur"
	ArtifactB             = "filter:b"
	ArtifactC             = "filter:c"
	ArtifactVerbose       = "filter:verbose"
)

// Overrides are the expert settings that refine a preset. Unset fields leave
// the preset untouched: Undefined types and nil pointers mean "not given".
type Overrides struct {
	// Filter replaces the weighting function. Unless Window is also set the
	// result is unwindowed.
	Filter Type
	// Window replaces the windowing function. Given without Filter, it
	// windows Sinc, or Bessel when cylindrical, rather than the preset
	// weighting function. Lanczos as a window means Sinc (Bessel when
	// cylindrical).
	Window Type
	// Lobes sets the support in lobes of the weighting function. Values
	// below 1 count as 1; Bessel support is capped at 16 lobes.
	Lobes *int
	// Support sets the support directly and wins over Lobes.
	Support *float64
	// WindowSupport scales the window without changing the clipping support.
	WindowSupport *float64
	Blur          *float64
	// B and C set the cubic spline coefficients. Given alone, either one
	// derives the other so that B+2C=1.
	B, C    *float64
	Verbose bool
}

// IsZero reports whether no override is set.
func (o Overrides) IsZero() bool {
	return o.Filter == Undefined && o.Window == Undefined && o.Lobes == nil &&
		o.Support == nil && o.WindowSupport == nil && o.Blur == nil &&
		o.B == nil && o.C == nil && !o.Verbose
}

// ArtifactGetter is anything that carries string artifacts, such as an image.
type ArtifactGetter interface {
	Artifact(key string) (string, bool)
}

// ParseOverrides reads the filter:* artifacts of a.
func ParseOverrides(a ArtifactGetter) (Overrides, error) {
	var o Overrides
	var err error
	if v, ok := a.Artifact(ArtifactFilter); ok {
		if o.Filter, err = parseArtifactType(ArtifactFilter, v); err != nil {
			return Overrides{}, err
		}
	}
	if v, ok := a.Artifact(ArtifactWindow); ok {
		if o.Window, err = parseArtifactType(ArtifactWindow, v); err != nil {
			return Overrides{}, err
		}
	}
	if v, ok := a.Artifact(ArtifactLobes); ok {
		lobes, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Overrides{}, fmt.Errorf("%w: %s=%q", ErrInvalidArtifact, ArtifactLobes, v)
		}
		o.Lobes = &lobes
	}
	floats := []struct {
		key string
		dst **float64
	}{
		{ArtifactSupport, &o.Support},
		{ArtifactWindowSupport, &o.WindowSupport},
		{ArtifactBlur, &o.Blur},
		{ArtifactB, &o.B},
		{ArtifactC, &o.C},
	}
	for _, f := range floats {
		v, ok := a.Artifact(f.key)
		if !ok {
			continue
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Overrides{}, fmt.Errorf("%w: %s=%q", ErrInvalidArtifact, f.key, v)
		}
		*f.dst = &x
	}
	if _, ok := a.Artifact(ArtifactVerbose); ok {
		o.Verbose = true
	}
	return o, nil
}

func parseArtifactType(key, value string) (Type, error) {
	t, err := ParseType(value)
	if err != nil || !t.Valid() {
		return Undefined, fmt.Errorf("%w: %s=%q", ErrInvalidArtifact, key, value)
	}
	return t, nil
}
