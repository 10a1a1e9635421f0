// Public domain.

// Package stats has the Poisson likelihood fit statistics used to compare
// predicted and observed counts: Cash for known background and WStat for
// background measured in an off region.
package stats

import "math"

// Truncation is the floor applied to predicted counts before taking logs.
const Truncation = 1e-25

// Cash returns the Cash statistic 2(mu - n ln mu) for one bin.
func Cash(n, mu float64) float64 {
	if mu <= Truncation {
		mu = Truncation
	}
	return 2 * (mu - n*math.Log(mu))
}

// CashSum sums Cash over bins where mask is true.  A nil mask selects all
// bins.
func CashSum(n, mu []float64, mask []bool) float64 {
	var s float64
	for i := range n {
		if mask == nil || mask[i] {
			s += Cash(n[i], mu[i])
		}
	}
	return s
}

// WStatMuBkg returns the profile likelihood estimate of the background in
// the on region given on and off counts, the on/off exposure ratio alpha,
// and predicted signal muSig.
func WStatMuBkg(nOn, nOff, alpha, muSig float64) float64 {
	if alpha == 0 {
		return nOff
	}
	switch {
	case nOn == 0:
		return nOff / (alpha + 1)
	case nOff == 0:
		if muSig < nOn*alpha/(alpha+1) {
			return nOn/(1+alpha) - muSig/alpha
		}
		return 0
	}
	c := alpha*(nOn+nOff) - (1+alpha)*muSig
	d := math.Sqrt(c*c + 4*alpha*(alpha+1)*nOff*muSig)
	return (c + d) / (2 * alpha * (alpha + 1))
}

// wstatGOF is the saturated model term that makes WStat a goodness of fit
// measure.
func wstatGOF(nOn, nOff float64) float64 {
	var t float64
	if nOn > 0 {
		t -= nOn * (1 - math.Log(nOn))
	}
	if nOff > 0 {
		t -= nOff * (1 - math.Log(nOff))
	}
	return 2 * t
}

// WStat returns the WStat statistic for one bin, with the background
// profiled out.
func WStat(nOn, nOff, alpha, muSig float64) float64 {
	muBkg := WStatMuBkg(nOn, nOff, alpha, muSig)
	s := muSig + (1+alpha)*muBkg
	if nOn > 0 {
		s -= nOn * math.Log(math.Max(muSig+alpha*muBkg, Truncation))
	}
	if nOff > 0 {
		s -= nOff * math.Log(math.Max(muBkg, Truncation))
	}
	return 2*s + wstatGOF(nOn, nOff)
}

// WStatSum sums WStat over bins where mask is true.  A nil mask selects
// all bins.
func WStatSum(nOn, nOff, alpha, muSig []float64, mask []bool) float64 {
	var s float64
	for i := range nOn {
		if mask == nil || mask[i] {
			s += WStat(nOn[i], nOff[i], alpha[i], muSig[i])
		}
	}
	return s
}
