// Package csvfile implements the append-only CSV result sink.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

var header = []string{
	"id", "created_at",
	"cex_pair", "pool_pair", "pool_address", "reverse_price",
	"base_symbol", "quote_symbol", "pool_fee", "cex_fee",
	"cex_mid_price", "pool_mid_price", "decision", "trade_amount_base",
	"cex_actual_price", "pool_actual_price", "spend_quote", "receive_quote",
	"pool_new_price", "gas_fee_quote", "profit", "margin",
	"base_stable_rate", "stable_symbol", "profit_stable",
}

// Sink appends result rows to a CSV file, one row per evaluated
// direction. The header is written once, when the file is created or
// empty; reopening an existing file resumes appending.
type Sink struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

// Open creates or opens the sink file for appending.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvfile: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvfile: stat %s: %w", path, err)
	}

	s := &Sink{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := s.writeLocked(header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return s, nil
}

// Append writes one result row and flushes it to the file.
func (s *Sink) Append(_ context.Context, r domain.OpportunityResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(row(r))
}

// Close flushes buffered rows and closes the file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return fmt.Errorf("csvfile: flush: %w", err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("csvfile: close: %w", err)
	}
	return nil
}

func (s *Sink) writeLocked(record []string) error {
	if err := s.w.Write(record); err != nil {
		return fmt.Errorf("csvfile: write: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("csvfile: flush: %w", err)
	}
	return nil
}

// row renders a result with ten decimal places on every price and
// amount column, matching the precision of the durable store.
func row(r domain.OpportunityResult) []string {
	return []string{
		r.ID,
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.CEXPair,
		r.PoolPair,
		r.PoolAddress,
		boolInt(r.ReversePrice),
		r.BaseSymbol,
		r.QuoteSymbol,
		r.PoolFee.StringFixed(10),
		r.CEXFee.StringFixed(10),
		r.CEXMidPrice.StringFixed(10),
		r.PoolMidPrice.StringFixed(10),
		r.Direction.Description(),
		r.TradeAmountBase.StringFixed(10),
		r.CEXActualPrice.StringFixed(10),
		r.PoolActualPrice.StringFixed(10),
		r.SpendQuote.StringFixed(10),
		r.ReceiveQuote.StringFixed(10),
		r.PoolNewPrice.StringFixed(10),
		r.GasFeeQuote.StringFixed(10),
		r.Profit.StringFixed(10),
		r.Margin.StringFixed(10),
		r.BaseStableRate.StringFixed(10),
		r.StableSymbol,
		r.ProfitStable.StringFixed(10),
	}
}

func boolInt(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
