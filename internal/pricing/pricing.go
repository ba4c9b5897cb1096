// Package pricing implements a closed-form Black-Scholes pricer with
// analytic Greeks. All functions are pure: they take an option contract plus
// optional per-call overrides and never mutate state, so a position can be
// re-priced under scenario shocks without rebuilding the contract.
package pricing

import (
	"math"

	"backchain/internal/errors"
	"backchain/internal/models"
)

// DaysInYear converts a maturity in calendar days to a year fraction.
const DaysInYear = 365.0

// Overrides optionally replaces contract inputs for a single pricing call.
// Nil fields fall back to the contract's own values.
type Overrides struct {
	Underlying     *float64
	DaysToMaturity *int
	Volatility     *float64
}

type inputs struct {
	s, k, t, r, q, sigma float64
	call                 bool
}

func resolve(c models.OptionContract, o *Overrides) (inputs, error) {
	in := inputs{
		s:     c.Underlying,
		k:     c.Strike,
		r:     c.Rate,
		q:     c.DividendYield,
		sigma: c.Volatility,
	}
	days := c.DaysToMaturity

	if o != nil {
		if o.Underlying != nil {
			in.s = *o.Underlying
		}
		if o.DaysToMaturity != nil {
			days = *o.DaysToMaturity
		}
		if o.Volatility != nil {
			in.sigma = *o.Volatility
		}
	}

	switch c.Type {
	case models.Call:
		in.call = true
	case models.Put:
		in.call = false
	default:
		return inputs{}, errors.NewValidationError("type", c.Type, "option type must be Call or Put")
	}

	if in.s <= 0 {
		return inputs{}, errors.NewValidationError("underlying", in.s, "must be positive")
	}
	if in.k <= 0 {
		return inputs{}, errors.NewValidationError("strike", in.k, "must be positive")
	}
	if days <= 0 {
		return inputs{}, errors.NewValidationError("days_to_maturity", days, "must be positive")
	}
	if in.sigma <= 0 {
		return inputs{}, errors.NewValidationError("volatility", in.sigma, "must be positive")
	}

	in.t = float64(days) / DaysInYear
	return in, nil
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// d1d2 computes the Black-Scholes d1 and d2 terms:
// d1 = (ln(S·e^(−qT) / (K·e^(−rT))) + σ²T/2) / (σ√T), d2 = d1 − σ√T.
func d1d2(in inputs) (float64, float64) {
	d1 := (math.Log(in.s*math.Exp(-in.q*in.t)/(in.k*math.Exp(-in.r*in.t))) +
		0.5*in.sigma*in.sigma*in.t) / (in.sigma * math.Sqrt(in.t))
	return d1, d1 - in.sigma*math.Sqrt(in.t)
}

// Price returns the Black-Scholes value of the contract.
func Price(c models.OptionContract, o *Overrides) (float64, error) {
	in, err := resolve(c, o)
	if err != nil {
		return 0, err
	}
	d1, d2 := d1d2(in)
	if in.call {
		return in.s*math.Exp(-in.q*in.t)*normCDF(d1) -
			in.k*math.Exp(-in.r*in.t)*normCDF(d2), nil
	}
	return in.k*math.Exp(-in.r*in.t)*normCDF(-d2) -
		in.s*math.Exp(-in.q*in.t)*normCDF(-d1), nil
}

// Delta returns the sensitivity of the option price to a unit move in the
// underlying.
func Delta(c models.OptionContract, o *Overrides) (float64, error) {
	in, err := resolve(c, o)
	if err != nil {
		return 0, err
	}
	d1, _ := d1d2(in)
	if in.call {
		return math.Exp(-in.q*in.t) * normCDF(d1), nil
	}
	return math.Exp(-in.q*in.t) * (normCDF(d1) - 1), nil
}

// Gamma returns the sensitivity of delta to a unit move in the underlying.
func Gamma(c models.OptionContract, o *Overrides) (float64, error) {
	in, err := resolve(c, o)
	if err != nil {
		return 0, err
	}
	d1, _ := d1d2(in)
	return normPDF(d1) * math.Exp(-in.q*in.t) / (in.s * in.sigma * math.Sqrt(in.t)), nil
}

// Vega returns the change in option price for a one-percentage-point
// increase in implied volatility.
func Vega(c models.OptionContract, o *Overrides) (float64, error) {
	in, err := resolve(c, o)
	if err != nil {
		return 0, err
	}
	d1, _ := d1d2(in)
	return in.s * math.Exp(-in.q*in.t) * normPDF(d1) * math.Sqrt(in.t) * 0.01, nil
}

// Theta returns the change in option price from the passage of one calendar
// day.
func Theta(c models.OptionContract, o *Overrides) (float64, error) {
	in, err := resolve(c, o)
	if err != nil {
		return 0, err
	}
	d1, d2 := d1d2(in)
	decay := -in.s * normPDF(d1) * in.sigma * math.Exp(-in.q*in.t) / (2 * math.Sqrt(in.t))
	if in.call {
		return (decay +
			in.q*in.s*normCDF(d1)*math.Exp(-in.q*in.t) -
			in.r*in.k*math.Exp(-in.r*in.t)*normCDF(d2)) / DaysInYear, nil
	}
	return (decay -
		in.q*in.s*normCDF(-d1)*math.Exp(-in.q*in.t) +
		in.r*in.k*math.Exp(-in.r*in.t)*normCDF(-d2)) / DaysInYear, nil
}
