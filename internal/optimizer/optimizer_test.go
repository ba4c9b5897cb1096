package optimizer

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"backchain/internal/market"
)

func estimate(tickers []string, mean []float64, cov []float64) *market.Estimate {
	n := len(tickers)
	return &market.Estimate{
		Tickers: tickers,
		Mean:    mean,
		Cov:     mat.NewSymDense(n, cov),
	}
}

func TestOptimizeEmptyUniverse(t *testing.T) {
	w := Optimize(&market.Estimate{}, zerolog.Nop())
	if len(w) != 0 {
		t.Errorf("expected empty weights, got %v", w)
	}
}

func TestOptimizeSingleInstrument(t *testing.T) {
	est := estimate([]string{"X"}, []float64{0.01}, []float64{1})
	w := Optimize(est, zerolog.Nop())
	if w["X"] != 1 {
		t.Errorf("single-instrument weight = %v, want 1", w["X"])
	}
}

func TestOptimizeSymmetricInputsGiveEqualWeights(t *testing.T) {
	est := estimate(
		[]string{"A", "B", "C"},
		[]float64{0.01, 0.01, 0.01},
		[]float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		},
	)
	w := Optimize(est, zerolog.Nop())

	for _, ticker := range est.Tickers {
		if math.Abs(w[ticker]-1.0/3.0) > 1e-6 {
			t.Errorf("weight[%s] = %v, want 1/3", ticker, w[ticker])
		}
	}
}

func TestOptimizeWeightsFormValidPortfolio(t *testing.T) {
	est := estimate(
		[]string{"A", "B", "C"},
		[]float64{0.02, 0.005, -0.01},
		[]float64{
			2.0, 0.3, 0.1,
			0.3, 1.0, 0.2,
			0.1, 0.2, 0.5,
		},
	)
	w := Optimize(est, zerolog.Nop())

	if math.Abs(w.Sum()-1) > 1e-6 {
		t.Errorf("weights sum = %v, want 1", w.Sum())
	}
	for ticker, v := range w {
		if v < 0 || v > 1 {
			t.Errorf("weight[%s] = %v, want in [0,1]", ticker, v)
		}
	}
	// Higher expected return at comparable risk should not be underweighted
	// relative to the negative-return instrument.
	if w["A"] < w["C"] && w["C"] > 0.5 {
		t.Errorf("allocation ignores expected returns: %v", w)
	}
}

func TestOptimizeFavorsHigherReturn(t *testing.T) {
	est := estimate(
		[]string{"HI", "LO"},
		[]float64{0.05, -0.05},
		[]float64{
			1, 0,
			0, 1,
		},
	)
	w := Optimize(est, zerolog.Nop())
	if w["HI"] <= w["LO"] {
		t.Errorf("expected HI overweighted, got %v", w)
	}
}

func TestOptimizeDegenerateInputFallsBackToEqualWeights(t *testing.T) {
	est := estimate(
		[]string{"A", "B", "C"},
		[]float64{0.01, math.NaN(), 0.01},
		[]float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		},
	)
	w := Optimize(est, zerolog.Nop())

	// The fallback is exactly equal weight, not merely close to it.
	for _, ticker := range est.Tickers {
		if w[ticker] != 1.0/3.0 {
			t.Errorf("fallback weight[%s] = %v, want exactly 1/3", ticker, w[ticker])
		}
	}
}

func TestOptimizeNonFiniteCovarianceFallsBack(t *testing.T) {
	est := estimate(
		[]string{"A", "B"},
		[]float64{0.01, 0.02},
		[]float64{
			math.Inf(1), 0,
			0, 1,
		},
	)
	w := Optimize(est, zerolog.Nop())
	if w["A"] != 0.5 || w["B"] != 0.5 {
		t.Errorf("fallback weights = %v, want exactly [0.5 0.5]", w)
	}
}
