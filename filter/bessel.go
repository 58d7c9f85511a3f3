package filter

import "math"

// epsilon matches the tolerance used throughout the resize code.
const epsilon = 1.0e-12

// besselZeros are the first zero crossings of Jinc(pi x), i.e. the roots of
// J1 divided by pi. Index i holds the zero that ends lobe i+1.
var besselZeros = [16]float64{
	1.21966989126651,
	2.23313059438153,
	3.23831548416624,
	4.24106286379607,
	5.24276437687019,
	6.24392168986449,
	7.24475986871996,
	8.24539491395205,
	9.24589268494948,
	10.2462933487549,
	11.2466227948779,
	12.2468984611381,
	13.2471325221811,
	14.2473337358069,
	15.2475085630373,
	16.247661874701,
}

// i0 is the zeroth order modified Bessel function of the first kind,
// summed as a power series until the terms drop below epsilon.
func i0(x float64) float64 {
	sum := 1.0
	y := x * x / 4.0
	t := y
	for i := 2; t > epsilon; i++ {
		sum += t
		t *= y / float64(i*i)
	}
	return sum
}

// j1 is a rational approximation of J1(x)/x valid for |x| < 8.
func j1(x float64) float64 {
	pone := [...]float64{
		0.581199354001606143928050809e+21,
		-0.6672106568924916298020941484e+20,
		0.2316433580634002297931815435e+19,
		-0.3588817569910106050743641413e+17,
		0.2908795263834775409737601689e+15,
		-0.1322983480332126453125473247e+13,
		0.3413234182301700539091292655e+10,
		-0.4695753530642995859767162166e+7,
		0.270112271089232341485679099e+4,
	}
	qone := [...]float64{
		0.11623987080032122878585294e+22,
		0.1185770712190320999837113348e+20,
		0.6092061398917521746105196863e+17,
		0.2081661221307607351240184229e+15,
		0.5243710262167649715406728642e+12,
		0.1013863514358673989967045588e+10,
		0.1501793594998585505921097578e+7,
		0.1606931573481487801970916749e+4,
		0.1e+1,
	}
	p := pone[8]
	q := qone[8]
	for i := 7; i >= 0; i-- {
		p = p*x*x + pone[i]
		q = q*x*x + qone[i]
	}
	return p / q
}

func p1(x float64) float64 {
	pone := [...]float64{
		0.352246649133679798341724373e+5,
		0.62758845247161281269005675e+5,
		0.313539631109159574238669888e+5,
		0.49854832060594338434500455e+4,
		0.2111529182853962382105718e+3,
		0.12571716929145341558495e+1,
	}
	qone := [...]float64{
		0.352246649133679798068390431e+5,
		0.626943469593560511888833731e+5,
		0.312404063819041039923015703e+5,
		0.4930396490181088979386097e+4,
		0.2030775189134759322293574e+3,
		0.1e+1,
	}
	return asymptoticRatio(x, pone[:], qone[:])
}

func q1(x float64) float64 {
	pone := [...]float64{
		0.3511751914303552822533318e+3,
		0.7210391804904475039280863e+3,
		0.4259873011654442389886993e+3,
		0.831898957673850827325226e+2,
		0.45681716295512267064405e+1,
		0.3532840052740123642735e-1,
	}
	qone := [...]float64{
		0.74917374171809127714519505e+4,
		0.154141773392650970499848051e+5,
		0.91522317015169922705904727e+4,
		0.18111867005523513506724158e+4,
		0.1038187585462133728776636e+3,
		0.1e+1,
	}
	return asymptoticRatio(x, pone[:], qone[:])
}

// asymptoticRatio evaluates P(64/x²)/Q(64/x²) for the coefficient tables of
// p1 and q1.
func asymptoticRatio(x float64, pone, qone []float64) float64 {
	n := len(pone) - 1
	p := pone[n]
	q := qone[n]
	for i := n - 1; i >= 0; i-- {
		p = p*(8.0/x)*(8.0/x) + pone[i]
		q = q*(8.0/x)*(8.0/x) + qone[i]
	}
	return p / q
}

// besselOrderOne is J1(x): the rational fit below 8, the Hankel asymptotic
// expansion above.
func besselOrderOne(x float64) float64 {
	if x == 0.0 {
		return 0.0
	}
	p := x
	if x < 0.0 {
		x = -x
	}
	if x < 8.0 {
		return p * j1(x)
	}
	q := math.Sqrt(2.0/(math.Pi*x)) * (p1(x)*(1.0/math.Sqrt2*(math.Sin(x)-math.Cos(x))) -
		8.0/x*q1(x)*(-1.0/math.Sqrt2*(math.Sin(x)+math.Cos(x))))
	if p < 0.0 {
		q = -q
	}
	return q
}
