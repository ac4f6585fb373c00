package engine

import (
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// intervals computes lower/upper bounds around the raw predictions in
// fitting space. With uncertainty_samples == 0 estimation is disabled and
// the bounds collapse onto the prediction. With mcmc_samples == 0 the
// bounds come from a Gaussian residual interval at interval_width
// coverage; otherwise from a seeded residual bootstrap with empirical
// quantiles.
func (e *Engine) intervals(yhat []float64) ([]float64, []float64) {
	lower := make([]float64, len(yhat))
	upper := make([]float64, len(yhat))
	copy(lower, yhat)
	copy(upper, yhat)

	if e.opt.UncertaintySamples <= 0 || len(e.residuals) == 0 {
		return lower, upper
	}

	var lo, hi float64
	if e.opt.MCMCSamples <= 0 {
		z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.5 + e.opt.IntervalWidth/2)
		lo, hi = -z*e.sigma, z*e.sigma
	} else {
		lo, hi = e.bootstrapQuantiles()
	}

	for i := range yhat {
		lower[i] += lo
		upper[i] += hi
	}
	return lower, upper
}

// bootstrapQuantiles resamples training residuals with replacement and
// returns the empirical quantiles covering interval_width.
func (e *Engine) bootstrapQuantiles() (float64, float64) {
	draws := make([]float64, e.opt.UncertaintySamples)
	for i := range draws {
		draws[i] = e.residuals[e.rng.Intn(len(e.residuals))]
	}
	sort.Float64s(draws)

	pLo := (1 - e.opt.IntervalWidth) / 2
	pHi := 1 - pLo
	return stat.Quantile(pLo, stat.Empirical, draws, nil),
		stat.Quantile(pHi, stat.Empirical, draws, nil)
}
