package arbitrage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// tickerFunc adapts a closure to the oracle interface; sizing only ever
// calls FetchTicker.
type tickerFunc func(ctx context.Context, symbol string) (domain.Ticker, error)

func (f tickerFunc) FetchTicker(ctx context.Context, symbol string) (domain.Ticker, error) {
	return f(ctx, symbol)
}

func (f tickerFunc) LoadMarkets(ctx context.Context) (domain.MarketSet, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f tickerFunc) ServerTime(ctx context.Context) (time.Time, error) {
	return time.Time{}, fmt.Errorf("not implemented")
}

var defaultStables = []string{"USDT", "USDC", "BUSD", "TUSD", "DAI", "USDP", "FDUSD", "USDD"}

func marketsOf(symbols ...string) domain.MarketSet {
	m := make(domain.MarketSet, len(symbols))
	for _, s := range symbols {
		m[s] = struct{}{}
	}
	return m
}

func noFetch(t *testing.T) tickerFunc {
	return func(ctx context.Context, symbol string) (domain.Ticker, error) {
		t.Fatalf("unexpected fetch for %s", symbol)
		return domain.Ticker{}, nil
	}
}

func TestSizeStableQuoteUsesMid(t *testing.T) {
	s := NewSizer(noFetch(t), marketsOf("ETH/USDT"), defaultStables, testLogger())

	sizing, err := s.Size(context.Background(), dec("1000"), "ETH", "USDT", dec("100.25"))
	require.NoError(t, err)

	assert.True(t, sizing.Amount.Equal(dec("1000").Div(dec("100.25"))), "Amount %s", sizing.Amount)
	assert.Equal(t, "USDT", sizing.StableSymbol)
	assert.True(t, sizing.StableRate.Equal(dec("100.25")))
}

func TestSizeStableQuoteRejectsDeadMid(t *testing.T) {
	s := NewSizer(noFetch(t), marketsOf(), defaultStables, testLogger())

	_, err := s.Size(context.Background(), dec("1000"), "ETH", "USDT", dec("0"))
	assert.ErrorIs(t, err, domain.ErrSizingUnavailable)
}

func TestSizeStableBaseIsIdentity(t *testing.T) {
	s := NewSizer(noFetch(t), marketsOf(), defaultStables, testLogger())

	sizing, err := s.Size(context.Background(), dec("1000"), "USDC", "WETH", dec("0.0004"))
	require.NoError(t, err)

	assert.True(t, sizing.Amount.Equal(dec("1000")))
	assert.Equal(t, "USDC", sizing.StableSymbol)
	assert.True(t, sizing.StableRate.Equal(dec("1")))
}

func TestSizeProbesStableMarketsInOrder(t *testing.T) {
	var fetched []string
	oracle := tickerFunc(func(ctx context.Context, symbol string) (domain.Ticker, error) {
		fetched = append(fetched, symbol)
		switch symbol {
		case "LINK/USDT":
			// Listed but momentarily without a trade print.
			return domain.Ticker{Symbol: symbol}, nil
		case "LINK/USDC":
			return domain.Ticker{Symbol: symbol, Last: dec("15")}, nil
		default:
			return domain.Ticker{}, fmt.Errorf("unexpected symbol %s", symbol)
		}
	})

	s := NewSizer(oracle, marketsOf("LINK/USDT", "LINK/USDC", "LINK/DAI"), defaultStables, testLogger())

	sizing, err := s.Size(context.Background(), dec("1500"), "LINK", "WETH", dec("0.006"))
	require.NoError(t, err)

	assert.Equal(t, []string{"LINK/USDT", "LINK/USDC"}, fetched,
		"probing stops at the first usable stable market")
	assert.True(t, sizing.Amount.Equal(dec("100")), "Amount %s", sizing.Amount)
	assert.Equal(t, "USDC", sizing.StableSymbol)
	assert.True(t, sizing.StableRate.Equal(dec("15")))
}

func TestSizeProbeSkipsFetchFailures(t *testing.T) {
	oracle := tickerFunc(func(ctx context.Context, symbol string) (domain.Ticker, error) {
		if symbol == "LINK/USDT" {
			return domain.Ticker{}, fmt.Errorf("binance: book ticker LINKUSDT: %w", domain.ErrConnectivity)
		}
		return domain.Ticker{Symbol: symbol, Last: dec("15")}, nil
	})

	s := NewSizer(oracle, marketsOf("LINK/USDT", "LINK/USDC"), defaultStables, testLogger())

	sizing, err := s.Size(context.Background(), dec("1500"), "LINK", "WETH", dec("0.006"))
	require.NoError(t, err)
	assert.Equal(t, "USDC", sizing.StableSymbol)
}

func TestSizeNoRouteFails(t *testing.T) {
	s := NewSizer(noFetch(t), marketsOf("LINK/BTC", "LINK/ETH"), defaultStables, testLogger())

	_, err := s.Size(context.Background(), dec("1500"), "LINK", "WETH", dec("0.006"))
	assert.ErrorIs(t, err, domain.ErrSizingUnavailable,
		"an unsizable pair is a typed skip, never a defaulted amount")
}
