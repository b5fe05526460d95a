package domain

import "strings"

// Pair is one configured CEX symbol / pool pairing, as loaded from the
// pairs file.
type Pair struct {
	CEXSymbol    string // e.g. "ETH/USDT"
	PoolPair     string // display name, e.g. "WETH/USDT"
	PoolAddress  string // pool contract address
	ReversePrice bool   // false: token0 is the base asset; true: token1 is
}

// BaseSymbol returns the traded asset of the CEX symbol.
func (p Pair) BaseSymbol() string {
	base, _, _ := strings.Cut(p.CEXSymbol, "/")
	return strings.ToUpper(base)
}

// QuoteSymbol returns the pricing asset of the CEX symbol.
func (p Pair) QuoteSymbol() string {
	_, quote, _ := strings.Cut(p.CEXSymbol, "/")
	return strings.ToUpper(quote)
}

// PairKey identifies a traded pair independent of symbol order; it is
// the admission-lock identity. Two keys built from the same two symbols
// in either order are equal.
type PairKey string

// NewPairKey normalizes and orders the two symbols into a PairKey.
func NewPairKey(a, b string) PairKey {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	if b < a {
		a, b = b, a
	}
	return PairKey(a + "|" + b)
}

// Key returns the admission-lock identity for the pair.
func (p Pair) Key() PairKey {
	return NewPairKey(p.BaseSymbol(), p.QuoteSymbol())
}
