// Package optimizer solves the constrained mean-variance allocation:
// minimize −μᵀw + (γ/2)·wᵀΣw over the simplex {w : Σw = 1, 0 ≤ wᵢ ≤ 1}.
// Any numerical failure degrades to the equal-weight portfolio rather than
// halting a backtest.
package optimizer

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"backchain/internal/market"
	"backchain/internal/models"
)

const (
	// RiskAversion is the fixed γ in the mean-variance objective.
	RiskAversion = 1.0

	maxIterations = 2000
	tolerance     = 1e-10
)

// Optimize returns the target weights for the instruments in the estimate.
// With no instruments it returns an empty weighting. Non-convergence and
// degenerate inputs fall back to equal weights; the fallback is logged as a
// warning and never surfaced as an error, since a degraded portfolio beats
// an aborted run.
func Optimize(est *market.Estimate, logger zerolog.Logger) models.Weights {
	n := len(est.Tickers)
	if n == 0 {
		return models.Weights{}
	}
	if n == 1 {
		return models.Weights{est.Tickers[0]: 1}
	}

	w, ok := solve(est.Mean, est.Cov, n)
	if !ok {
		logger.Warn().
			Strs("tickers", est.Tickers).
			Msg("Optimization did not converge, returning equal weight portfolio")
		return equalWeights(est.Tickers)
	}

	weights := make(models.Weights, n)
	for i, ticker := range est.Tickers {
		weights[ticker] = w[i]
	}
	return weights
}

// solve runs projected gradient descent on the simplex. It reports ok=false
// on non-finite inputs, a non-finite iterate, or failure to converge within
// the iteration budget.
func solve(mu []float64, sigma *mat.SymDense, n int) ([]float64, bool) {
	if sigma == nil || sigma.SymmetricDim() != n || !finite(mu, sigma, n) {
		return nil, false
	}

	// Step size from the gradient's Lipschitz constant γ‖Σ‖∞.
	var norm float64
	for i := 0; i < n; i++ {
		var row float64
		for j := 0; j < n; j++ {
			row += math.Abs(sigma.At(i, j))
		}
		norm = math.Max(norm, row)
	}
	step := 1.0 / (RiskAversion*norm + 1)

	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}

	grad := make([]float64, n)
	next := make([]float64, n)
	for iter := 0; iter < maxIterations; iter++ {
		// ∇f = γΣw − μ
		for i := 0; i < n; i++ {
			var dot float64
			for j := 0; j < n; j++ {
				dot += sigma.At(i, j) * w[j]
			}
			grad[i] = RiskAversion*dot - mu[i]
		}

		for i := 0; i < n; i++ {
			next[i] = w[i] - step*grad[i]
		}
		projectSimplex(next)

		var delta float64
		for i := 0; i < n; i++ {
			delta = math.Max(delta, math.Abs(next[i]-w[i]))
			if math.IsNaN(next[i]) || math.IsInf(next[i], 0) {
				return nil, false
			}
		}
		copy(w, next)
		if delta < tolerance {
			return w, true
		}
	}
	return nil, false
}

// projectSimplex replaces v in place with its Euclidean projection onto the
// probability simplex (Duchi et al. 2008). The result is non-negative and
// sums to 1, which also bounds each coordinate by 1.
func projectSimplex(v []float64) {
	n := len(v)
	sorted := make([]float64, n)
	copy(sorted, v)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var cumsum, theta float64
	for i := 0; i < n; i++ {
		cumsum += sorted[i]
		t := (cumsum - 1) / float64(i+1)
		if sorted[i]-t > 0 {
			theta = t
		}
	}
	for i := range v {
		v[i] = math.Max(v[i]-theta, 0)
	}
}

func equalWeights(tickers []string) models.Weights {
	w := make(models.Weights, len(tickers))
	for _, ticker := range tickers {
		w[ticker] = 1 / float64(len(tickers))
	}
	return w
}

func finite(mu []float64, sigma *mat.SymDense, n int) bool {
	for _, v := range mu {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := sigma.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
