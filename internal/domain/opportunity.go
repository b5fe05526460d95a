package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the arbitrage trade direction.
type Direction string

const (
	// DirectionCEXToDEX buys the base asset on the CEX and sells it on
	// the pool.
	DirectionCEXToDEX Direction = "cex_to_dex"
	// DirectionDEXToCEX buys the base asset on the pool and sells it on
	// the CEX.
	DirectionDEXToCEX Direction = "dex_to_cex"
)

// Description returns the decision phrase recorded in result rows.
func (d Direction) Description() string {
	switch d {
	case DirectionCEXToDEX:
		return "Buy on Binance, Sell on Uniswap"
	case DirectionDEXToCEX:
		return "Buy on Uniswap, Sell on Binance"
	default:
		return "Unknown"
	}
}

// TradeState tracks one opportunity through admission and execution.
type TradeState string

const (
	TradeDetected         TradeState = "DETECTED"
	TradeAdmitted         TradeState = "ADMITTED"
	TradeExecuting        TradeState = "EXECUTING"
	TradeConfirmed        TradeState = "CONFIRMED"
	TradeUnconfirmed      TradeState = "UNCONFIRMED"
	TradeError            TradeState = "ERROR"
	TradeReleased         TradeState = "RELEASED"
	TradeSkippedDuplicate TradeState = "SKIPPED_DUPLICATE"
)

// OpportunityResult is one directional profit estimate for one pair in
// one cycle. Two are produced per evaluated pair.
type OpportunityResult struct {
	ID           string
	CEXPair      string
	PoolPair     string
	PoolAddress  string
	ReversePrice bool
	BaseSymbol   string
	QuoteSymbol  string

	PoolFee decimal.Decimal // fraction of notional (fee tier ppm / 1e6)
	CEXFee  decimal.Decimal // taker fee fraction

	CEXMidPrice  decimal.Decimal
	PoolMidPrice decimal.Decimal

	Direction       Direction
	TradeAmountBase decimal.Decimal

	CEXActualPrice  decimal.Decimal // ask when buying on the CEX, bid when selling
	PoolActualPrice decimal.Decimal // simulation effective price
	SpendQuote      decimal.Decimal
	ReceiveQuote    decimal.Decimal
	PoolNewPrice    decimal.Decimal
	GasFeeQuote     decimal.Decimal

	Profit decimal.Decimal // ReceiveQuote - SpendQuote - GasFeeQuote
	Margin decimal.Decimal // Profit / SpendQuote, zero when SpendQuote <= 0

	BaseStableRate decimal.Decimal
	StableSymbol   string
	// ProfitStable restates Profit in the stable asset, converted at the
	// direction's actual traded CEX price rather than the mid price.
	ProfitStable decimal.Decimal

	CreatedAt time.Time
}
