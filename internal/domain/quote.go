package domain

import "github.com/shopspring/decimal"

// Quote is the ephemeral result of one swap simulation. Produced per
// call, consumed by the evaluator, never persisted.
type Quote struct {
	TokenIn  Token
	TokenOut Token

	AmountIn  decimal.Decimal // human units of TokenIn
	AmountOut decimal.Decimal // human units of TokenOut

	// NewPrice is the pool price after the hypothetical swap, oriented
	// token-out per token-in for exact-in quotes and token-in per
	// token-out for exact-out quotes.
	NewPrice decimal.Decimal

	// EffectivePrice is AmountOut/AmountIn for exact-in quotes and
	// AmountIn/AmountOut for exact-out quotes; zero when the requested
	// amount is zero.
	EffectivePrice decimal.Decimal

	GasEstimate  uint64
	GasPriceWei  decimal.Decimal
	GasFeeNative decimal.Decimal // GasEstimate * GasPriceWei / 1e18
}
