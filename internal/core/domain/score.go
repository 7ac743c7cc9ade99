package domain

import "github.com/shopspring/decimal"

// scoreScale fixes the number of fractional digits kept by the division
// term so that identical inputs always yield the identical score.
const scoreScale = 16

// Score computes the composite bid score
//
//	S = alpha*price + beta/(elapsedMs+1) + gamma*weight
//
// It is pure and total: strictly increasing in price and weight (for
// positive coefficients) and non-increasing in elapsed time. elapsedMs must
// already be clamped to >= 0 by the caller.
func Score(price decimal.Decimal, elapsedMs int64, weight decimal.Decimal, c Coefficients) decimal.Decimal {
	t := decimal.NewFromInt(elapsedMs + 1)
	return c.Alpha.Mul(price).
		Add(c.Beta.DivRound(t, scoreScale)).
		Add(c.Gamma.Mul(weight))
}
