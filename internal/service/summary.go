package service

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Summary accumulates cycle statistics between reporting boundaries. It
// is written by the cycle driver and read by the status endpoint, so all
// access is serialized.
type Summary struct {
	mu          sync.Mutex
	interval    time.Duration
	windowStart time.Time

	cycles         int64
	pairsEvaluated int64
	pairsSkipped   int64
	opportunities  int64
	duplicateSkips int64
	submitted      int64

	bestMargin   decimal.Decimal
	bestPair     string
	profitStable decimal.Decimal
}

// SummarySnapshot is a point-in-time copy of the current window.
type SummarySnapshot struct {
	WindowStart    time.Time       `json:"window_start"`
	Cycles         int64           `json:"cycles"`
	PairsEvaluated int64           `json:"pairs_evaluated"`
	PairsSkipped   int64           `json:"pairs_skipped"`
	Opportunities  int64           `json:"opportunities"`
	DuplicateSkips int64           `json:"duplicate_skips"`
	Submitted      int64           `json:"submitted"`
	BestMargin     decimal.Decimal `json:"best_margin"`
	BestPair       string          `json:"best_pair"`
	ProfitStable   decimal.Decimal `json:"profit_stable"`
}

// NewSummary creates a summary that rolls over after each interval.
func NewSummary(interval time.Duration) *Summary {
	return &Summary{
		interval:    interval,
		windowStart: time.Now().UTC(),
	}
}

// PairEvaluated counts one pair that produced results this cycle.
func (s *Summary) PairEvaluated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairsEvaluated++
}

// PairSkipped counts one pair dropped from a cycle by a fetch or sizing
// failure.
func (s *Summary) PairSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairsSkipped++
}

// Opportunity counts one qualifying direction and folds its modeled
// stable-denominated profit into the window totals.
func (s *Summary) Opportunity(pair string, margin, profitStable decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opportunities++
	s.profitStable = s.profitStable.Add(profitStable)
	if margin.GreaterThan(s.bestMargin) {
		s.bestMargin = margin
		s.bestPair = pair
	}
}

// DuplicateSkipped counts one qualifying direction refused admission
// because its pair was already in flight.
func (s *Summary) DuplicateSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duplicateSkips++
}

// Submitted counts one job accepted by the execution queue.
func (s *Summary) Submitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted++
}

// CycleDone counts one completed cycle and, when the reporting interval
// has elapsed, returns the finished window and starts a new one.
func (s *Summary) CycleDone() (SummarySnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	if s.interval <= 0 || time.Since(s.windowStart) < s.interval {
		return SummarySnapshot{}, false
	}
	snap := s.snapshotLocked()
	s.resetLocked()
	return snap, true
}

// Snapshot returns the current window without resetting it.
func (s *Summary) Snapshot() SummarySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Summary) snapshotLocked() SummarySnapshot {
	return SummarySnapshot{
		WindowStart:    s.windowStart,
		Cycles:         s.cycles,
		PairsEvaluated: s.pairsEvaluated,
		PairsSkipped:   s.pairsSkipped,
		Opportunities:  s.opportunities,
		DuplicateSkips: s.duplicateSkips,
		Submitted:      s.submitted,
		BestMargin:     s.bestMargin,
		BestPair:       s.bestPair,
		ProfitStable:   s.profitStable,
	}
}

func (s *Summary) resetLocked() {
	s.windowStart = time.Now().UTC()
	s.cycles = 0
	s.pairsEvaluated = 0
	s.pairsSkipped = 0
	s.opportunities = 0
	s.duplicateSkips = 0
	s.submitted = 0
	s.bestMargin = decimal.Zero
	s.bestPair = ""
	s.profitStable = decimal.Zero
}
