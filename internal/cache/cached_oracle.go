// Package cache decorates the CEX price oracle with a read-through
// ticker cache.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// CachedOracle serves tickers from the cache while fresh and falls back
// to the wrapped oracle on a miss. Cache failures degrade to direct
// fetches; they never fail a read.
type CachedOracle struct {
	oracle domain.PriceOracle
	cache  domain.TickerCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedOracle wraps the oracle with the given cache and TTL.
func NewCachedOracle(oracle domain.PriceOracle, cache domain.TickerCache, ttl time.Duration, logger *slog.Logger) *CachedOracle {
	return &CachedOracle{oracle: oracle, cache: cache, ttl: ttl, logger: logger}
}

// FetchTicker returns the cached ticker when present, otherwise fetches
// from the oracle and stores the result for the TTL.
func (o *CachedOracle) FetchTicker(ctx context.Context, symbol string) (domain.Ticker, error) {
	ticker, err := o.cache.GetTicker(ctx, symbol)
	if err == nil {
		return ticker, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		o.logger.WarnContext(ctx, "cache: ticker read failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}

	ticker, err = o.oracle.FetchTicker(ctx, symbol)
	if err != nil {
		return domain.Ticker{}, err
	}
	if err := o.cache.SetTicker(ctx, ticker, o.ttl); err != nil {
		o.logger.WarnContext(ctx, "cache: ticker write failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}
	return ticker, nil
}

// LoadMarkets delegates to the wrapped oracle.
func (o *CachedOracle) LoadMarkets(ctx context.Context) (domain.MarketSet, error) {
	return o.oracle.LoadMarkets(ctx)
}

// ServerTime delegates to the wrapped oracle.
func (o *CachedOracle) ServerTime(ctx context.Context) (time.Time, error) {
	return o.oracle.ServerTime(ctx)
}
