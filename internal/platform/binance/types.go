package binance

import "encoding/json"

// --------------------------------------------------------------------------
// Binance REST DTOs
// --------------------------------------------------------------------------

// BookTicker is the best bid/ask snapshot for a symbol, as returned by
// /api/v3/ticker/bookTicker. Prices arrive as decimal strings.
type BookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

// SymbolPrice is the last trade price for a symbol, as returned by
// /api/v3/ticker/price.
type SymbolPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// SymbolInfo describes one listed market inside the exchangeInfo payload.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"` // "TRADING", "BREAK", "HALT", ...
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

// exchangeInfo is the subset of /api/v3/exchangeInfo the client decodes.
type exchangeInfo struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// serverTime is the /api/v3/time payload. ServerTime is epoch milliseconds.
type serverTime struct {
	ServerTime int64 `json:"serverTime"`
}

// Balance is a single asset balance from the signed /api/v3/account
// endpoint. Amounts arrive as decimal strings.
type Balance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// accountInfo is the subset of /api/v3/account the client decodes.
type accountInfo struct {
	Balances []Balance `json:"balances"`
}

// APIError is the Binance error envelope, e.g.
// {"code":-1121,"msg":"Invalid symbol."}.
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// --------------------------------------------------------------------------
// Binance WebSocket DTOs
// --------------------------------------------------------------------------

// StreamMessage is the combined-stream envelope:
// {"stream":"ethusdt@bookTicker","data":{...}}.
type StreamMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// WSBookTicker is a bookTicker stream event.
type WSBookTicker struct {
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// WSTrade is a trade stream event. Only the fields the ticker map needs
// are decoded.
type WSTrade struct {
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}
