package lag

import "math"

// T95Percentile is the percentile used for every "t95" horizon in the engine.
const T95Percentile = 0.95

// Erf approximates the error function using Abramowitz and Stegun 7.1.26.
// Maximum absolute error is 1.5e-7.
func Erf(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)
	return sign * y
}

// StandardNormalCDF returns Φ(x).
func StandardNormalCDF(x float64) float64 {
	if math.IsInf(x, 1) {
		return 1
	}
	if math.IsInf(x, -1) {
		return 0
	}
	return clamp01(0.5 * (1.0 + Erf(x/math.Sqrt2)))
}

// Acklam's rational approximation coefficients.
var (
	acklamA = [6]float64{
		-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00,
	}
	acklamB = [5]float64{
		-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01,
	}
	acklamC = [6]float64{
		-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00,
	}
	acklamD = [4]float64{
		7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00,
	}
)

// StandardNormalInverseCDF returns Φ⁻¹(p) using Acklam's algorithm.
// Returns -Inf for p <= 0 and +Inf for p >= 1.
func StandardNormalInverseCDF(p float64) float64 {
	const (
		pLow  = 0.02425
		pHigh = 1 - pLow
	)

	switch {
	case math.IsNaN(p):
		return math.NaN()
	case p <= 0:
		return math.Inf(-1)
	case p >= 1:
		return math.Inf(1)
	}

	a, b, c, d := acklamA, acklamB, acklamC, acklamD

	if p < pLow {
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}

	if p <= pHigh {
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}

	q := math.Sqrt(-2 * math.Log(1-p))
	return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
		((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
}

// LogNormalCDF returns P(T <= t) for T ~ LogNormal(mu, sigma).
// With sigma <= 0 the distribution collapses to a step at exp(mu).
func LogNormalCDF(t, mu, sigma float64) float64 {
	if t <= 0 || math.IsNaN(t) {
		return 0
	}
	if sigma <= 0 {
		if t >= math.Exp(mu) {
			return 1
		}
		return 0
	}
	return StandardNormalCDF((math.Log(t) - mu) / sigma)
}

// LogNormalSurvival returns P(T > t).
func LogNormalSurvival(t, mu, sigma float64) float64 {
	return 1 - LogNormalCDF(t, mu, sigma)
}

// LogNormalInverseCDF returns the p-quantile of LogNormal(mu, sigma).
func LogNormalInverseCDF(p, mu, sigma float64) float64 {
	if sigma <= 0 {
		return math.Exp(mu)
	}
	return math.Exp(mu + sigma*StandardNormalInverseCDF(p))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FiniteOr returns v when it is finite, otherwise fallback. Output records pass
// every computed value through it so NaN/Inf never reach graph state.
func FiniteOr(v, fallback float64) float64 {
	if isFinite(v) {
		return v
	}
	return fallback
}
