package uniswap

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PriceInfinity stands in for the inverse of a zero pool price, where the
// division is undefined. Any comparison against a real price treats it as
// unreachable.
var PriceInfinity = decimal.New(1, 60)

// two96 is the Q64.96 fixed-point denominator used by sqrtPriceX96.
var two96 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 96), 0)

// priceFromSqrtX96 converts a Q64.96 square-root price into the pool
// price as token1 per token0, adjusted for token decimals.
func priceFromSqrtX96(sqrtPriceX96 *big.Int, dec0, dec1 int32) decimal.Decimal {
	ratio := decimal.NewFromBigInt(sqrtPriceX96, 0).Div(two96)
	return ratio.Mul(ratio).Shift(dec0 - dec1)
}

// invertPrice returns 1/p, mapping zero to PriceInfinity.
func invertPrice(p decimal.Decimal) decimal.Decimal {
	if p.IsZero() {
		return PriceInfinity
	}
	return decimal.NewFromInt(1).Div(p)
}

// outPerIn orients the pool price (token1 per token0) as output token
// per input token, given which side the input is.
func outPerIn(poolPrice decimal.Decimal, inIsToken0 bool) decimal.Decimal {
	if inIsToken0 {
		return poolPrice
	}
	return invertPrice(poolPrice)
}

// inPerOut orients the pool price as input token per output token.
func inPerOut(poolPrice decimal.Decimal, inIsToken0 bool) decimal.Decimal {
	if inIsToken0 {
		return invertPrice(poolPrice)
	}
	return poolPrice
}

// toRawUnits converts a human amount to integer base units; sub-unit
// remainders truncate here and nowhere else.
func toRawUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}

// fromRawUnits converts integer base units back to a human amount.
func fromRawUnits(raw *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -decimals)
}
