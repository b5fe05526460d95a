package domain

import (
	"context"
	"time"
)

// MarketSet is the set of symbol pairs a venue currently trades.
type MarketSet map[string]struct{}

// Has reports whether the venue lists the symbol.
func (m MarketSet) Has(symbol string) bool {
	_, ok := m[symbol]
	return ok
}

// PriceOracle is the CEX-side price surface the engine reads. The venue
// behind it is an opaque external service; implementations must treat
// every call as a network round trip candidate.
type PriceOracle interface {
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)
	LoadMarkets(ctx context.Context) (MarketSet, error)
	ServerTime(ctx context.Context) (time.Time, error)
}
