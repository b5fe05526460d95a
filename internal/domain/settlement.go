package domain

// Settlement is the on-chain outcome of one routed swap. TxHash stays set
// when the receipt wait times out, so an unconfirmed trade remains
// traceable.
type Settlement struct {
	TxHash    string
	GasUsed   uint64
	Confirmed bool
}
