package domain

import "github.com/shopspring/decimal"

// TradeJob is one admitted execution handed to the scheduler. All price
// and amount values are immutable snapshots; the only shared state a job
// touches is the admission set, through Release.
type TradeJob struct {
	ID          string
	Direction   Direction
	PairKey     PairKey
	CEXPair     string
	PoolAddress string
	Token       Token           // pool-side token being sold or bought
	Amount      decimal.Decimal // base amount: sold for cex_to_dex, bought for dex_to_cex
	Slippage    decimal.Decimal

	// Release frees the admission lock. Idempotent; the scheduler calls
	// it on every exit path of the worker.
	Release func()

	Result OpportunityResult // evaluation snapshot, for notifications
}
