package domain

// Token is the resolved metadata of one ERC-20 token. Immutable once
// resolved; cached per pool for the pool's lifetime.
type Token struct {
	Address  string // checksummed hex address
	Symbol   string
	Decimals int32
}
