package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// TickerCache implements domain.TickerCache. Each ticker is stored as
// JSON at key "ticker:{symbol}" with a per-entry TTL, so stale entries
// expire on their own between cycles.
type TickerCache struct {
	rdb *redis.Client
}

// NewTickerCache creates a TickerCache backed by the given Client.
func NewTickerCache(c *Client) *TickerCache {
	return &TickerCache{rdb: c.Underlying()}
}

func tickerKey(symbol string) string {
	return "ticker:" + symbol
}

// SetTicker stores the ticker under its symbol for the given TTL.
func (tc *TickerCache) SetTicker(ctx context.Context, ticker domain.Ticker, ttl time.Duration) error {
	payload, err := json.Marshal(ticker)
	if err != nil {
		return fmt.Errorf("redis: marshal ticker %s: %w", ticker.Symbol, err)
	}
	if err := tc.rdb.Set(ctx, tickerKey(ticker.Symbol), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set ticker %s: %w", ticker.Symbol, err)
	}
	return nil
}

// GetTicker retrieves the cached ticker for a symbol. It returns
// domain.ErrNotFound when the key does not exist or has expired.
func (tc *TickerCache) GetTicker(ctx context.Context, symbol string) (domain.Ticker, error) {
	payload, err := tc.rdb.Get(ctx, tickerKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Ticker{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("redis: get ticker %s: %w", symbol, err)
	}

	var ticker domain.Ticker
	if err := json.Unmarshal(payload, &ticker); err != nil {
		return domain.Ticker{}, fmt.Errorf("redis: unmarshal ticker %s: %w", symbol, err)
	}
	return ticker, nil
}
