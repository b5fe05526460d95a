package arbitrage

import "github.com/shopspring/decimal"

// Divergence is how far the pool prices the base from the CEX, as a
// signed fraction of the CEX mid. Positive means the pool is richer.
// A degenerate CEX mid reports zero.
func Divergence(cexMid, poolMid decimal.Decimal) decimal.Decimal {
	if !cexMid.IsPositive() {
		return decimal.Zero
	}
	return poolMid.Sub(cexMid).Div(cexMid)
}

// DivergenceBps restates Divergence in basis points for log lines and
// the cycle summary.
func DivergenceBps(cexMid, poolMid decimal.Decimal) decimal.Decimal {
	return Divergence(cexMid, poolMid).Mul(decimal.NewFromInt(10000))
}
