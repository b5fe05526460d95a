package arbitrage

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// EvaluatorConfig configures the profit model.
type EvaluatorConfig struct {
	CEXFee          decimal.Decimal // taker fee fraction applied to the CEX leg
	MarginThreshold decimal.Decimal // minimum profit/spend ratio to qualify
}

// EvaluateInput is one pair's cycle snapshot: the CEX ticker, both swap
// simulations, the sized amount, and the conversion rates evaluation
// needs. All fetching happens before this point; evaluation itself makes
// no calls.
type EvaluateInput struct {
	Pair    domain.Pair
	Ticker  domain.Ticker
	PoolMid decimal.Decimal // pool spot price, quote per base
	PoolFee decimal.Decimal // pool fee tier as a fraction

	Sizing    Sizing
	SellQuote domain.Quote // exact-in: sized base sold into the pool
	BuyQuote  domain.Quote // exact-out: sized base bought from the pool

	// GasRate converts the quotes' native gas fee into the pair's quote
	// asset. Zero prices gas at nothing; the caller logs that case.
	GasRate decimal.Decimal
}

// Evaluator prices both arbitrage directions for a pair and judges
// whether either clears the margin threshold.
type Evaluator struct {
	cfg    EvaluatorConfig
	logger *slog.Logger
}

// NewEvaluator creates the profit evaluator.
func NewEvaluator(cfg EvaluatorConfig, logger *slog.Logger) *Evaluator {
	return &Evaluator{cfg: cfg, logger: logger.With(slog.String("component", "evaluator"))}
}

// Evaluate produces one result per direction. Both directions are always
// priced and recorded; Decide separates opportunities from the rest.
func (e *Evaluator) Evaluate(in EvaluateInput) []domain.OpportunityResult {
	results := []domain.OpportunityResult{
		e.evaluate(in, domain.DirectionCEXToDEX),
		e.evaluate(in, domain.DirectionDEXToCEX),
	}

	for _, r := range results {
		e.logger.Debug("direction evaluated",
			slog.String("pair", r.CEXPair),
			slog.String("direction", string(r.Direction)),
			slog.String("profit", r.Profit.String()),
			slog.String("margin", r.Margin.String()),
		)
	}

	return results
}

// Decide reports whether a result qualifies for execution. Both checks
// are strict: zero profit or a margin exactly at the threshold is not an
// opportunity.
func (e *Evaluator) Decide(r domain.OpportunityResult) bool {
	return r.Profit.IsPositive() && r.Margin.GreaterThan(e.cfg.MarginThreshold)
}

func (e *Evaluator) evaluate(in EvaluateInput, dir domain.Direction) domain.OpportunityResult {
	row := domain.OpportunityResult{
		ID:              uuid.Must(uuid.NewRandom()).String(),
		CEXPair:         in.Pair.CEXSymbol,
		PoolPair:        in.Pair.PoolPair,
		PoolAddress:     in.Pair.PoolAddress,
		ReversePrice:    in.Pair.ReversePrice,
		BaseSymbol:      in.Pair.BaseSymbol(),
		QuoteSymbol:     in.Pair.QuoteSymbol(),
		PoolFee:         in.PoolFee,
		CEXFee:          e.cfg.CEXFee,
		CEXMidPrice:     in.Ticker.Mid(),
		PoolMidPrice:    in.PoolMid,
		Direction:       dir,
		TradeAmountBase: in.Sizing.Amount,
		BaseStableRate:  in.Sizing.StableRate,
		StableSymbol:    in.Sizing.StableSymbol,
		CreatedAt:       time.Now().UTC(),
	}

	one := decimal.NewFromInt(1)
	switch dir {
	case domain.DirectionCEXToDEX:
		// Buy the base at the CEX ask paying the taker fee, sell it into
		// the pool.
		row.CEXActualPrice = in.Ticker.Ask
		row.SpendQuote = in.Sizing.Amount.Mul(in.Ticker.Ask).Mul(one.Add(e.cfg.CEXFee))
		row.ReceiveQuote = in.SellQuote.AmountOut
		row.PoolActualPrice = in.SellQuote.EffectivePrice
		row.PoolNewPrice = in.SellQuote.NewPrice
		row.GasFeeQuote = in.SellQuote.GasFeeNative.Mul(in.GasRate)
	case domain.DirectionDEXToCEX:
		// Buy the base from the pool, sell it at the CEX bid net of the
		// taker fee.
		row.CEXActualPrice = in.Ticker.Bid
		row.SpendQuote = in.BuyQuote.AmountIn
		row.ReceiveQuote = in.Sizing.Amount.Mul(in.Ticker.Bid).Mul(one.Sub(e.cfg.CEXFee))
		row.PoolActualPrice = in.BuyQuote.EffectivePrice
		row.PoolNewPrice = in.BuyQuote.NewPrice
		row.GasFeeQuote = in.BuyQuote.GasFeeNative.Mul(in.GasRate)
	}

	row.Profit = row.ReceiveQuote.Sub(row.SpendQuote).Sub(row.GasFeeQuote)
	if row.SpendQuote.IsPositive() {
		row.Margin = row.Profit.Div(row.SpendQuote)
	}
	if row.CEXActualPrice.IsPositive() {
		// Converted at the direction's traded price, not the mid, so the
		// stable figure matches what the trade would actually clear at.
		row.ProfitStable = row.Profit.Div(row.CEXActualPrice).Mul(in.Sizing.StableRate)
	}

	return row
}
