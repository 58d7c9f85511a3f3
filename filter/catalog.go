package filter

import "math"

// function identifies one weighting or windowing function of the catalog.
// Every function is evaluated for x >= 0 only.
type function int

const (
	boxFn function = iota
	triangleFn
	cubicBCFn
	gaussianFn
	quadraticFn
	sincFn
	sincFastFn
	besselFn
	hanningFn
	hammingFn
	blackmanFn
	kaiserFn
	welshFn
	bohmanFn
	lagrangeFn
)

// functionTypes names each function by the Type that reports it, used by
// Filter.Functions and the verbose plot header.
var functionTypes = [...]Type{
	boxFn:       Box,
	triangleFn:  Triangle,
	cubicBCFn:   Cubic,
	gaussianFn:  Gaussian,
	quadraticFn: Quadratic,
	sincFn:      Sinc,
	sincFastFn:  SincFast,
	besselFn:    Bessel,
	hanningFn:   Hanning,
	hammingFn:   Hamming,
	blackmanFn:  Blackman,
	kaiserFn:    Kaiser,
	welshFn:     Welsh,
	bohmanFn:    Bohman,
	lagrangeFn:  Lagrange,
}

func (fn function) eval(x float64, f *Filter) float64 {
	switch fn {
	case boxFn:
		// Clipped by the support window, never here.
		return 1.0
	case triangleFn:
		return triangle(x)
	case cubicBCFn:
		return cubicBC(x, &f.cubic)
	case gaussianFn:
		return gaussian(x)
	case quadraticFn:
		return quadratic(x)
	case sincFn:
		return sinc(x)
	case sincFastFn:
		return sincPolynomial(x, f.depth)
	case besselFn:
		return bessel(x)
	case hanningFn:
		return 0.5 + 0.5*math.Cos(math.Pi*x)
	case hammingFn:
		return 0.54 + 0.46*math.Cos(math.Pi*x)
	case blackmanFn:
		// 0.42 + 0.5 cos(pi x) + 0.08 cos(2 pi x), one trig call.
		c := math.Cos(math.Pi * x)
		return 0.34 + c*(0.5+c*0.16)
	case kaiserFn:
		return kaiser(x)
	case welshFn:
		if x < 1.0 {
			return 1.0 - x*x
		}
		return 0.0
	case bohmanFn:
		px := math.Pi * x
		return (1-x)*math.Cos(px) + math.Sin(px)/math.Pi
	case lagrangeFn:
		return lagrange(x, f.support, f.windowSupport)
	}
	return 0.0
}

func triangle(x float64) float64 {
	if x < 1.0 {
		return 1.0 - x
	}
	return 0.0
}

// cubicBC evaluates the Mitchell-Netravali family from precomputed
// coefficients: P0+P1x+P2x²+P3x³ on [0,1), Q0+Q1x+Q2x²+Q3x³ on [1,2).
func cubicBC(x float64, c *[8]float64) float64 {
	if x < 1.0 {
		return c[0] + x*(c[1]+x*(c[2]+x*c[3]))
	}
	if x < 2.0 {
		return c[4] + x*(c[5]+x*(c[6]+x*c[7]))
	}
	return 0.0
}

func cubicCoefficients(b, c float64) [8]float64 {
	return [8]float64{
		(6.0 - 2.0*b) / 6.0,
		0.0,
		(-18.0 + 12.0*b + 6.0*c) / 6.0,
		(12.0 - 9.0*b - 6.0*c) / 6.0,
		(8.0*b + 24.0*c) / 6.0,
		(-12.0*b - 48.0*c) / 6.0,
		(6.0*b + 30.0*c) / 6.0,
		(-1.0*b - 6.0*c) / 6.0,
	}
}

// gaussian is exp(-2x²/sqrt(pi/2)), unnormalized.
func gaussian(x float64) float64 {
	alpha := -math.Sqrt(8.0 / math.Pi)
	return math.Exp(alpha * x * x)
}

func quadratic(x float64) float64 {
	if x < 0.5 {
		return 0.75 - x*x
	}
	if x < 1.5 {
		return 0.5 * (x - 1.5) * (x - 1.5)
	}
	return 0.0
}

func sinc(x float64) float64 {
	if x == 0.0 {
		return 1.0
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// bessel is the x-scaled Jinc function J1(pi x)/(2x).
func bessel(x float64) float64 {
	if x == 0.0 {
		return 0.25 * math.Pi
	}
	return besselOrderOne(math.Pi*x) / (x + x)
}

const kaiserAlpha = 6.5

var kaiserScale = 1.0 / i0(kaiserAlpha)

func kaiser(x float64) float64 {
	return kaiserScale * i0(kaiserAlpha*math.Sqrt(math.Max(1.0-x*x, 0.0)))
}

// lagrange is the piecewise Lagrange fit of sinc. The order (number of
// pieces) is twice the window support; n selects the piece holding x.
func lagrange(x, support, windowSupport float64) float64 {
	if x > support {
		return 0.0
	}
	order := int(2.0 * windowSupport)
	n := int(float64(order)/2.0 + x)
	value := 1.0
	for i := 0; i < order; i++ {
		if i != n {
			value *= (float64(n-i) - x) / float64(n-i)
		}
	}
	return value
}

// sincPolynomial approximates sinc on [-4,4] with a minimax polynomial whose
// degree grows with the sample depth; exact sinc is used beyond.
func sincPolynomial(x float64, depth int) float64 {
	xx := x * x
	if xx > 16.0 {
		return sinc(x)
	}
	var p float64
	switch {
	case depth <= 8:
		// Max. abs. rel. error 8.9e-4 < 1/2^10.
		const (
			c0 = 0.173456131023616172130931138332417073143e-2
			c1 = -0.380364743836376263041954887553883370815e-3
			c2 = 0.374219191965003105059092491853033171168e-4
			c3 = -0.207789976431855699043820493597151957343e-5
			c4 = 0.643040460008483757431732461799962454945e-7
			c5 = -0.865087318355486581259138486910631069838e-9
		)
		p = c0 + xx*(c1+xx*(c2+xx*(c3+xx*(c4+xx*c5))))
	case depth <= 16:
		// Max. abs. rel. error 6.3e-6 < 1/2^17.
		const (
			c0 = 0.173610016489197553621906385078711564924e-2
			c1 = -0.384186115075660162081071290162149315834e-3
			c2 = 0.393684603287860108352720146121813443561e-4
			c3 = -0.248947210682259168029030370205389323899e-5
			c4 = 0.107791837839662283066379987646635416692e-6
			c5 = -0.324874073895735800961260474028013982211e-8
			c6 = 0.628155216606695311524920882748052490116e-10
			c7 = -0.586110644039348333520104379959307242711e-12
		)
		p = c0 + xx*(c1+xx*(c2+xx*(c3+xx*(c4+xx*(c5+xx*(c6+xx*c7))))))
	case depth <= 32:
		// Max. abs. rel. error 2.2e-8 < 1/2^25.
		const (
			c0 = 0.173611107357320220183368594093166520811e-2
			c1 = -0.384240921114946632192116762889211361285e-3
			c2 = 0.3942011823593181282212298917249470487713e-4
			c3 = -0.2509633016091172176600688891655505348562e-5
			c4 = 0.1119020328180957844142377820713688051202e-6
			c5 = -0.3728951014087795493684656143211370488753e-8
			c6 = 0.9576941966775725703198167801887185183299e-10
			c7 = -0.187208577776590710853865174371617338991e-11
			c8 = 0.253524321426864752676094495396308636823e-13
			c9 = -0.177084805010701112639035485248501049364e-15
		)
		p = c0 + xx*(c1+xx*(c2+xx*(c3+xx*(c4+xx*(c5+xx*(c6+xx*(c7+xx*(c8+xx*c9))))))))
	default:
		// Max. abs. rel. error 7.8e-17 < 1/2^53 in extended precision.
		const (
			c0  = 0.173611111111111105469252061071302221602e-2
			c1  = -0.384241242599157132427086439742003984072e-3
			c2  = 0.394206128796992679471568863267961806723e-4
			c3  = -0.250994617676394984418111934858133321048e-5
			c4  = 0.112007374042376446971339807322892870623e-6
			c5  = -0.375009284680048744128306355614156758655e-8
			c6  = 0.984472073682512367869077201164827198558e-10
			c7  = -0.209062908997015343777869669751033754285e-11
			c8  = 0.367641628743512654638053448370066260797e-13
			c9  = -0.545242123349894319701665127995675600908e-15
			c10 = 0.692018191260376553697599848860742319691e-17
			c11 = -0.760012485650215194550499686240155234683e-19
			c12 = 0.725162722620595651887717538635218514803e-21
			c13 = -0.589967180075110891970034733495852828580e-23
			c14 = 0.374841980075726557899013574367932640586e-25
			c15 = -0.138632329047117683500928913798808544919e-27
		)
		p = c0 + xx*(c1+xx*(c2+xx*(c3+xx*(c4+xx*(c5+xx*(c6+xx*(c7+xx*(c8+xx*(c9+xx*(c10+xx*(c11+xx*(c12+xx*(c13+xx*(c14+xx*c15))))))))))))))
	}
	return (xx - 1.0) * (xx - 4.0) * (xx - 9.0) * (xx - 16.0) * p
}
