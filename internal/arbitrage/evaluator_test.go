package arbitrage

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ethInput is the worked ETH/USDT book: ask 100.50, bid 100.00, taker
// fee 0.1%, 10 ETH sized, gas worth 0.50 USDT per swap.
func ethInput() EvaluateInput {
	return EvaluateInput{
		Pair: domain.Pair{
			CEXSymbol:   "ETH/USDT",
			PoolPair:    "WETH/USDT",
			PoolAddress: "0x11b815efB8f581194ae79006d24E0d814B7697F6",
		},
		Ticker: domain.Ticker{
			Symbol: "ETH/USDT",
			Ask:    dec("100.50"),
			Bid:    dec("100.00"),
			Last:   dec("100.20"),
		},
		PoolMid: dec("100.30"),
		PoolFee: dec("0.0005"),
		Sizing: Sizing{
			Amount:       dec("10"),
			StableSymbol: "USDT",
			StableRate:   dec("100.25"),
		},
		SellQuote: domain.Quote{
			AmountIn:     dec("10"),
			AmountOut:    dec("1005.00"),
			NewPrice:     dec("100.10"),
			GasFeeNative: dec("0.005"),
		},
		BuyQuote: domain.Quote{
			AmountIn:     dec("1004.00"),
			AmountOut:    dec("10"),
			NewPrice:     dec("100.45"),
			GasFeeNative: dec("0.005"),
		},
		GasRate: dec("100"),
	}
}

func newTestEvaluator(threshold string) *Evaluator {
	return NewEvaluator(EvaluatorConfig{
		CEXFee:          dec("0.001"),
		MarginThreshold: dec(threshold),
	}, testLogger())
}

func TestEvaluateCEXToDEXUnprofitable(t *testing.T) {
	e := newTestEvaluator("0.001")

	results := e.Evaluate(ethInput())
	require.Len(t, results, 2)

	a := results[0]
	assert.Equal(t, domain.DirectionCEXToDEX, a.Direction)
	assert.True(t, a.CEXActualPrice.Equal(dec("100.50")), "buys at the ask")
	assert.True(t, a.SpendQuote.Equal(dec("1006.005")), "SpendQuote %s", a.SpendQuote)
	assert.True(t, a.ReceiveQuote.Equal(dec("1005.00")))
	assert.True(t, a.GasFeeQuote.Equal(dec("0.50")))
	assert.True(t, a.Profit.Equal(dec("-1.505")), "Profit %s", a.Profit)

	assert.False(t, e.Decide(a), "a losing direction is never an opportunity")
}

func TestEvaluateCEXToDEXProfitable(t *testing.T) {
	e := newTestEvaluator("0.001")

	in := ethInput()
	in.SellQuote.AmountOut = dec("1010.00")

	a := e.Evaluate(in)[0]
	assert.True(t, a.Profit.Equal(dec("3.495")), "Profit %s", a.Profit)
	assert.True(t, a.Margin.Round(6).Equal(dec("0.003474")), "Margin %s", a.Margin)
	assert.True(t, e.Decide(a))

	// Stable restatement converts at the traded ask, not the mid:
	// 3.495 / 100.50 * 100.25.
	assert.True(t, a.ProfitStable.Round(6).Equal(dec("3.486306")),
		"ProfitStable %s", a.ProfitStable)
}

func TestEvaluateDEXToCEX(t *testing.T) {
	e := newTestEvaluator("0.001")

	b := e.Evaluate(ethInput())[1]
	assert.Equal(t, domain.DirectionDEXToCEX, b.Direction)
	assert.True(t, b.CEXActualPrice.Equal(dec("100.00")), "sells at the bid")
	assert.True(t, b.SpendQuote.Equal(dec("1004.00")), "spend is the quoted swap input")
	// 10 * 100.00 * (1 - 0.001)
	assert.True(t, b.ReceiveQuote.Equal(dec("999.00")), "ReceiveQuote %s", b.ReceiveQuote)
	// 999.00 - 1004.00 - 0.50
	assert.True(t, b.Profit.Equal(dec("-5.50")), "Profit %s", b.Profit)
	assert.False(t, e.Decide(b))
}

func TestDecideThresholdIsStrict(t *testing.T) {
	e := NewEvaluator(EvaluatorConfig{
		CEXFee:          decimal.Zero,
		MarginThreshold: dec("0.001"),
	}, testLogger())

	// Engineered to land margin exactly on the threshold: spend 1000,
	// profit 1.
	in := ethInput()
	in.Ticker.Ask = dec("100")
	in.Sizing.Amount = dec("10")
	in.SellQuote.AmountOut = dec("1002.00")
	in.SellQuote.GasFeeNative = dec("0.01") // 1.00 USDT at the 100 gas rate

	a := e.Evaluate(in)[0]
	require.True(t, a.SpendQuote.Equal(dec("1000")), "SpendQuote %s", a.SpendQuote)
	require.True(t, a.Profit.Equal(dec("1")), "Profit %s", a.Profit)
	require.True(t, a.Margin.Equal(dec("0.001")), "Margin %s", a.Margin)

	assert.False(t, e.Decide(a), "margin equal to the threshold does not qualify")

	in.SellQuote.AmountOut = dec("1002.001")
	assert.True(t, e.Decide(e.Evaluate(in)[0]), "one tick above the threshold does")
}

func TestEvaluateZeroSpendZeroMargin(t *testing.T) {
	e := newTestEvaluator("0.001")

	in := ethInput()
	in.Sizing.Amount = decimal.Zero
	in.SellQuote = domain.Quote{}
	in.BuyQuote = domain.Quote{}

	for _, r := range e.Evaluate(in) {
		assert.True(t, r.Margin.IsZero(), "%s margin on zero spend", r.Direction)
	}
}

// poolQuotes models a constant-price pool with fee f: selling amount
// base returns amount*price*(1-f) quote, buying amount base costs
// amount*price/(1-f) quote.
func poolQuotes(amount, price, fee decimal.Decimal) (sell, buy domain.Quote) {
	one := decimal.NewFromInt(1)
	keep := one.Sub(fee)

	sell = domain.Quote{
		AmountIn:  amount,
		AmountOut: amount.Mul(price).Mul(keep),
	}
	buy = domain.Quote{
		AmountIn:  amount.Mul(price).Div(keep),
		AmountOut: amount,
	}
	return sell, buy
}

func TestRoundTripFrictionlessIsBreakEven(t *testing.T) {
	e := NewEvaluator(EvaluatorConfig{
		CEXFee:          decimal.Zero,
		MarginThreshold: decimal.Zero,
	}, testLogger())

	price := dec("100")
	in := ethInput()
	in.Ticker.Ask = price
	in.Ticker.Bid = price
	in.GasRate = decimal.Zero
	in.SellQuote, in.BuyQuote = poolQuotes(in.Sizing.Amount, price, decimal.Zero)

	for _, r := range e.Evaluate(in) {
		assert.True(t, r.Profit.IsZero(),
			"%s profit %s: identical frictionless venues break even exactly", r.Direction, r.Profit)
	}
}

func TestRoundTripFeeLossGrowsWithFee(t *testing.T) {
	e := NewEvaluator(EvaluatorConfig{
		CEXFee:          decimal.Zero,
		MarginThreshold: decimal.Zero,
	}, testLogger())

	price := dec("100")
	base := ethInput()
	base.Ticker.Ask = price
	base.Ticker.Bid = price
	base.GasRate = decimal.Zero

	profitAt := func(fee string) (a, b decimal.Decimal) {
		in := base
		in.SellQuote, in.BuyQuote = poolQuotes(in.Sizing.Amount, price, dec(fee))
		results := e.Evaluate(in)
		return results[0].Profit, results[1].Profit
	}

	lowA, lowB := profitAt("0.003")
	highA, highB := profitAt("0.01")

	assert.True(t, lowA.IsNegative() && lowB.IsNegative(),
		"any pool fee makes identical venues a guaranteed loss")
	assert.True(t, highA.LessThan(lowA), "a higher fee loses more selling into the pool")
	assert.True(t, highB.LessThan(lowB), "a higher fee loses more buying from the pool")
}
