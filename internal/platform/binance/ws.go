package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

const (
	// wsWriteWait is the time allowed to write a control message to the peer.
	wsWriteWait = 10 * time.Second

	// wsReadWait is the read deadline. Binance pings the client every three
	// minutes; this allows one missed ping before the read fails.
	wsReadWait = 4 * time.Minute

	// wsHandshakeTimeout bounds the connection handshake.
	wsHandshakeTimeout = 15 * time.Second

	// wsReconnectDelay is the base delay before attempting to reconnect.
	wsReconnectDelay = 2 * time.Second

	// wsMaxReconnectDelay caps the exponential backoff.
	wsMaxReconnectDelay = 60 * time.Second
)

// WSClient maintains a Binance combined-stream subscription for a fixed
// symbol roster. For each symbol it consumes bookTicker (best bid/ask) and
// trade (last price) events, merging them into an in-memory ticker map.
type WSClient struct {
	wsURL   string
	streams []string          // lowercased stream names, fixed in the connect URL
	symbols map[string]string // "ETHUSDT" -> "ETH/USDT"

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool

	tickerMu sync.RWMutex
	tickers  map[string]domain.Ticker // by "BASE/QUOTE"

	// done is closed when the client shuts down.
	done chan struct{}
}

// NewWSClient creates a new Binance WebSocket client streaming the given
// symbols in "BASE/QUOTE" form.
//
// wsURL is the stream endpoint, e.g. "wss://stream.binance.com:9443".
func NewWSClient(wsURL string, symbols []string) *WSClient {
	w := &WSClient{
		wsURL:   strings.TrimRight(wsURL, "/"),
		symbols: make(map[string]string, len(symbols)),
		tickers: make(map[string]domain.Ticker, len(symbols)),
		done:    make(chan struct{}),
	}

	for _, s := range symbols {
		market := marketSymbol(s)
		if _, ok := w.symbols[market]; ok {
			continue
		}
		w.symbols[market] = s

		lower := strings.ToLower(market)
		w.streams = append(w.streams, lower+"@bookTicker", lower+"@trade")
	}

	return w
}

// Connect establishes the combined-stream connection. The streams are
// fixed in the URL, so reconnection needs no subscribe replay.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("binance/ws: client is closed")
	}
	if len(w.streams) == 0 {
		return fmt.Errorf("binance/ws: no symbols to stream")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
	}

	endpoint := w.wsURL + "/stream?streams=" + strings.Join(w.streams, "/")
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("binance/ws: connect: %w", err)
	}

	w.conn = conn

	// Binance pings the client; answer with a pong and push out the read
	// deadline.
	w.conn.SetReadDeadline(time.Now().Add(wsReadWait))
	w.conn.SetPingHandler(func(payload string) error {
		w.conn.SetReadDeadline(time.Now().Add(wsReadWait))
		return w.conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(wsWriteWait))
	})

	go w.readLoop()

	return nil
}

// Snapshot returns the latest merged ticker for a "BASE/QUOTE" symbol.
// Last is zero until the first trade event arrives.
func (w *WSClient) Snapshot(symbol string) (domain.Ticker, bool) {
	w.tickerMu.RLock()
	defer w.tickerMu.RUnlock()
	t, ok := w.tickers[symbol]
	return t, ok
}

// Close shuts down the WebSocket connection.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// readLoop continuously reads stream messages and applies them to the
// ticker map. On disconnect it attempts reconnection.
func (w *WSClient) readLoop() {
	defer func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}

			w.reconnect()
			return
		}

		conn.SetReadDeadline(time.Now().Add(wsReadWait))
		w.handleMessage(message)
	}
}

// handleMessage parses a combined-stream message and routes it by stream
// suffix. Malformed payloads are dropped.
func (w *WSClient) handleMessage(raw []byte) {
	var envelope StreamMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return
	}

	switch {
	case strings.HasSuffix(envelope.Stream, "@bookTicker"):
		var bt WSBookTicker
		if err := json.Unmarshal(envelope.Data, &bt); err != nil {
			return
		}
		w.applyBookTicker(bt)

	case strings.HasSuffix(envelope.Stream, "@trade"):
		var tr WSTrade
		if err := json.Unmarshal(envelope.Data, &tr); err != nil {
			return
		}
		w.applyTrade(tr)
	}
}

// applyBookTicker updates bid/ask and the freshness timestamp for the
// event's symbol.
func (w *WSClient) applyBookTicker(bt WSBookTicker) {
	symbol, ok := w.symbols[bt.Symbol]
	if !ok {
		return
	}

	bid, err := decimal.NewFromString(bt.BidPrice)
	if err != nil {
		return
	}
	ask, err := decimal.NewFromString(bt.AskPrice)
	if err != nil {
		return
	}

	w.tickerMu.Lock()
	defer w.tickerMu.Unlock()

	t := w.tickers[symbol]
	t.Symbol = symbol
	t.Bid = bid
	t.Ask = ask
	t.At = time.Now()
	w.tickers[symbol] = t
}

// applyTrade updates the last trade price for the event's symbol. The
// freshness timestamp tracks bid/ask only.
func (w *WSClient) applyTrade(tr WSTrade) {
	symbol, ok := w.symbols[tr.Symbol]
	if !ok {
		return
	}

	price, err := decimal.NewFromString(tr.Price)
	if err != nil {
		return
	}

	w.tickerMu.Lock()
	defer w.tickerMu.Unlock()

	t := w.tickers[symbol]
	t.Symbol = symbol
	t.Last = price
	w.tickers[symbol] = t
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff.
func (w *WSClient) reconnect() {
	delay := wsReconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), wsHandshakeTimeout)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > wsMaxReconnectDelay {
			delay = wsMaxReconnectDelay
		}
	}
}
