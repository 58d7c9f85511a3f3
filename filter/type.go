package filter

import (
	"fmt"
	"strings"
)

// Type names a resampling filter preset.
//
// The order of the constants is significant: the mapping and preset tables in
// this package are indexed by Type.
type Type int

const (
	Undefined Type = iota
	Point
	Box
	Triangle
	Hermite
	Hanning
	Hamming
	Blackman
	Gaussian
	Quadratic
	Cubic
	Catrom
	Mitchell
	Lanczos
	Bessel
	Sinc
	Kaiser
	Welsh
	Parzen
	Lagrange
	Bohman
	Bartlett
	SincFast
	sentinel
)

var typeNames = [sentinel]string{
	"Undefined",
	"Point",
	"Box",
	"Triangle",
	"Hermite",
	"Hanning",
	"Hamming",
	"Blackman",
	"Gaussian",
	"Quadratic",
	"Cubic",
	"Catrom",
	"Mitchell",
	"Lanczos",
	"Bessel",
	"Sinc",
	"Kaiser",
	"Welsh",
	"Parzen",
	"Lagrange",
	"Bohman",
	"Bartlett",
	"SincFast",
}

var typeAliases = map[string]Type{
	"catmullrom":     Catrom,
	"catmull-rom":    Catrom,
	"jinc":           Bessel,
	"tent":           Triangle,
	"linear":         Triangle,
	"nearest":        Point,
	"sincpolynomial": SincFast,
}

func (t Type) String() string {
	if t < 0 || t >= sentinel {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Valid reports whether t names a concrete filter, that is anything but
// Undefined or an out of range value.
func (t Type) Valid() bool {
	return t > Undefined && t < sentinel
}

// Types returns every concrete filter type in enumeration order.
func Types() []Type {
	out := make([]Type, 0, sentinel-1)
	for t := Point; t < sentinel; t++ {
		out = append(out, t)
	}
	return out
}

// ParseType resolves a filter name. Matching is case-insensitive.
func ParseType(name string) (Type, error) {
	name = strings.TrimSpace(name)
	for t := Undefined; t < sentinel; t++ {
		if strings.EqualFold(typeNames[t], name) {
			return t, nil
		}
	}
	if t, ok := typeAliases[strings.ToLower(name)]; ok {
		return t, nil
	}
	return Undefined, fmt.Errorf("unrecognized filter type %q", name)
}
