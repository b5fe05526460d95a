package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is a point-in-time top-of-book snapshot for one CEX symbol.
type Ticker struct {
	Symbol string // venue symbol, e.g. "ETH/USDT"
	Ask    decimal.Decimal
	Bid    decimal.Decimal
	Last   decimal.Decimal
	At     time.Time
}

// Mid returns the bid/ask midpoint.
func (t Ticker) Mid() decimal.Decimal {
	return t.Ask.Add(t.Bid).Div(decimal.NewFromInt(2))
}
