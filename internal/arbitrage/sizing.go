package arbitrage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// Sizing is one pair's trade size plus the stable conversion behind it.
type Sizing struct {
	Amount       decimal.Decimal // base units to trade this cycle
	StableSymbol string          // stable asset the rate is quoted in
	StableRate   decimal.Decimal // stable units per base unit
}

// Sizer converts the configured per-trade value, denominated in a
// dollar stable, into a base-asset amount for each pair.
type Sizer struct {
	oracle  domain.PriceOracle
	markets domain.MarketSet
	stables []string
	logger  *slog.Logger
}

// NewSizer creates a sizer probing the given stable symbols in order.
// markets is the venue's listing snapshot; probes only hit listed
// symbols.
func NewSizer(oracle domain.PriceOracle, markets domain.MarketSet, stables []string, logger *slog.Logger) *Sizer {
	return &Sizer{
		oracle:  oracle,
		markets: markets,
		stables: stables,
		logger:  logger.With(slog.String("component", "sizer")),
	}
}

// Size returns the base amount worth tradeValue stable units. A stable
// quote prices the base off the pair's own mid; a stable base is the
// value itself; anything else probes BASE/STABLE markets in configured
// order for a usable last price. No route at all fails with
// ErrSizingUnavailable and the caller skips the pair for this cycle.
func (s *Sizer) Size(ctx context.Context, tradeValue decimal.Decimal, base, quote string, mid decimal.Decimal) (Sizing, error) {
	if s.isStable(quote) {
		if !mid.IsPositive() {
			return Sizing{}, fmt.Errorf("arbitrage: size %s/%s: unusable mid price %s: %w",
				base, quote, mid, domain.ErrSizingUnavailable)
		}
		return Sizing{
			Amount:       tradeValue.Div(mid),
			StableSymbol: quote,
			StableRate:   mid,
		}, nil
	}

	if s.isStable(base) {
		return Sizing{
			Amount:       tradeValue,
			StableSymbol: base,
			StableRate:   decimal.NewFromInt(1),
		}, nil
	}

	for _, stable := range s.stables {
		symbol := base + "/" + stable
		if !s.markets.Has(symbol) {
			continue
		}

		ticker, err := s.oracle.FetchTicker(ctx, symbol)
		if err != nil {
			s.logger.Debug("sizing probe failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ticker.Last.IsPositive() {
			continue
		}

		return Sizing{
			Amount:       tradeValue.Div(ticker.Last),
			StableSymbol: stable,
			StableRate:   ticker.Last,
		}, nil
	}

	return Sizing{}, fmt.Errorf("arbitrage: no stable market prices %s: %w", base, domain.ErrSizingUnavailable)
}

func (s *Sizer) isStable(symbol string) bool {
	for _, stable := range s.stables {
		if stable == symbol {
			return true
		}
	}
	return false
}
