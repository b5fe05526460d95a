package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

func TestWSClientMergesStreams(t *testing.T) {
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stream", r.URL.Path)
		assert.Contains(t, r.URL.RawQuery, "ethusdt@bookTicker")
		assert.Contains(t, r.URL.RawQuery, "ethusdt@trade")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"stream":"ethusdt@bookTicker","data":{"u":1,"s":"ETHUSDT","b":"100.00","B":"4","a":"100.50","A":"2"}}`))
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"stream":"ethusdt@trade","data":{"s":"ETHUSDT","p":"100.25","q":"1","T":1719878400000}}`))

		// Hold the connection until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws := NewWSClient(wsURL, []string{"ETH/USDT"})
	require.NoError(t, ws.Connect(context.Background()))
	defer ws.Close()

	require.Eventually(t, func() bool {
		tk, ok := ws.Snapshot("ETH/USDT")
		return ok && !tk.Last.IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	tk, ok := ws.Snapshot("ETH/USDT")
	require.True(t, ok)
	assert.True(t, tk.Bid.Equal(decimal.RequireFromString("100")))
	assert.True(t, tk.Ask.Equal(decimal.RequireFromString("100.5")))
	assert.True(t, tk.Last.Equal(decimal.RequireFromString("100.25")))
	assert.WithinDuration(t, time.Now(), tk.At, time.Minute)
}

func TestWSClientIgnoresUnknownSymbols(t *testing.T) {
	ws := NewWSClient("wss://example.invalid", []string{"ETH/USDT"})

	ws.applyBookTicker(WSBookTicker{Symbol: "BTCUSDT", BidPrice: "1", AskPrice: "2"})

	_, ok := ws.Snapshot("BTC/USDT")
	assert.False(t, ok)
}

func TestLiveTickerSourceFallsBackToREST(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/ticker/bookTicker":
			w.Write([]byte(`{"symbol":"ETHUSDT","bidPrice":"99.00","bidQty":"1","askPrice":"99.50","askQty":"1"}`))
		case "/api/v3/ticker/price":
			w.Write([]byte(`{"symbol":"ETHUSDT","price":"99.25"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	rest := NewClient(srv.URL, 5*time.Second)
	ws := NewWSClient("wss://example.invalid", []string{"ETH/USDT"})
	src := NewLiveTickerSource(rest, ws, 3*time.Second)

	// Nothing streamed yet: REST serves the ticker.
	tk, err := src.FetchTicker(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	assert.True(t, tk.Bid.Equal(decimal.RequireFromString("99")))

	// A fresh, complete streamed entry short-circuits REST.
	ws.tickerMu.Lock()
	ws.tickers["ETH/USDT"] = domain.Ticker{
		Symbol: "ETH/USDT",
		Bid:    decimal.RequireFromString("100"),
		Ask:    decimal.RequireFromString("100.5"),
		Last:   decimal.RequireFromString("100.25"),
		At:     time.Now(),
	}
	ws.tickerMu.Unlock()

	tk, err = src.FetchTicker(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	assert.True(t, tk.Bid.Equal(decimal.RequireFromString("100")))

	// A stale entry falls back to REST again.
	ws.tickerMu.Lock()
	stale := ws.tickers["ETH/USDT"]
	stale.At = time.Now().Add(-time.Minute)
	ws.tickers["ETH/USDT"] = stale
	ws.tickerMu.Unlock()

	tk, err = src.FetchTicker(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	assert.True(t, tk.Bid.Equal(decimal.RequireFromString("99")))
}
