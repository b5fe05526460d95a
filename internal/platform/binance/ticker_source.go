package binance

import (
	"context"
	"time"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// LiveTickerSource serves tickers from the WebSocket stream while they are
// fresh and falls back to the REST client otherwise. Markets and server
// time always go through REST.
type LiveTickerSource struct {
	rest       *Client
	ws         *WSClient
	staleAfter time.Duration
}

// NewLiveTickerSource wires a REST client and a connected WSClient into a
// single ticker source. staleAfter bounds how old a streamed ticker may be
// before a REST refetch.
func NewLiveTickerSource(rest *Client, ws *WSClient, staleAfter time.Duration) *LiveTickerSource {
	return &LiveTickerSource{
		rest:       rest,
		ws:         ws,
		staleAfter: staleAfter,
	}
}

// FetchTicker returns the streamed ticker when it is complete and fresh.
// An entry without a last trade price yet is not complete; sizing and gas
// conversion depend on it.
func (s *LiveTickerSource) FetchTicker(ctx context.Context, symbol string) (domain.Ticker, error) {
	if t, ok := s.ws.Snapshot(symbol); ok && !t.Last.IsZero() && time.Since(t.At) <= s.staleAfter {
		return t, nil
	}
	return s.rest.FetchTicker(ctx, symbol)
}

// LoadMarkets delegates to the REST client.
func (s *LiveTickerSource) LoadMarkets(ctx context.Context) (domain.MarketSet, error) {
	return s.rest.LoadMarkets(ctx)
}

// ServerTime delegates to the REST client.
func (s *LiveTickerSource) ServerTime(ctx context.Context) (time.Time, error) {
	return s.rest.ServerTime(ctx)
}

var _ domain.PriceOracle = (*LiveTickerSource)(nil)
