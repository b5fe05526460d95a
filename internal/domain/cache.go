package domain

import (
	"context"
	"time"
)

// TickerCache provides short-TTL access to the latest CEX tickers so a
// cycle does not refetch the same symbol within its freshness window.
type TickerCache interface {
	SetTicker(ctx context.Context, ticker Ticker, ttl time.Duration) error
	GetTicker(ctx context.Context, symbol string) (Ticker, error)
}

// OpportunityBus publishes qualifying opportunities for external
// consumers.
type OpportunityBus interface {
	Publish(ctx context.Context, result OpportunityResult) error
}
