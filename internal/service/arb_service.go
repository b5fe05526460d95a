package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/dexarb/internal/arbitrage"
	"github.com/alanyoungcy/dexarb/internal/domain"
	"github.com/alanyoungcy/dexarb/internal/executor"
	"github.com/alanyoungcy/dexarb/internal/platform/uniswap"
)

// Submitter hands an admitted job to the execution queue.
type Submitter interface {
	Submit(job domain.TradeJob) error
}

// Notifier delivers operator alerts. Failures are logged, never fatal.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ArbConfig holds the tunable parameters of the evaluation cycle.
type ArbConfig struct {
	Pairs        []domain.Pair
	TradeValue   decimal.Decimal
	Slippage     decimal.Decimal
	CycleDelay   time.Duration
	FetchTimeout time.Duration
	AutoExecute  bool
}

// ArbDeps are the collaborators of the cycle driver. Queue, Bus and
// Notifier may be nil; the corresponding step is skipped.
type ArbDeps struct {
	Oracle    domain.PriceOracle
	Pools     *uniswap.Registry
	Quoter    *uniswap.Quoter
	Sizer     *arbitrage.Sizer
	Evaluator *arbitrage.Evaluator
	Admission *executor.Admission
	Queue     Submitter
	Sinks     []domain.ResultSink
	Bus       domain.OpportunityBus
	Notifier  Notifier
	Summary   *Summary
	Logger    *slog.Logger
}

// ArbService drives the evaluation loop. Each cycle walks the pair
// roster, snapshots both venues, evaluates both directions, records the
// results and admits qualifying trades to the execution queue. A pair
// that fails any fetch is skipped for the cycle; the loop itself only
// stops with its context.
type ArbService struct {
	cfg       ArbConfig
	oracle    domain.PriceOracle
	pools     *uniswap.Registry
	quoter    *uniswap.Quoter
	sizer     *arbitrage.Sizer
	evaluator *arbitrage.Evaluator
	admission *executor.Admission
	queue     Submitter
	sinks     []domain.ResultSink
	bus       domain.OpportunityBus
	notifier  Notifier
	summary   *Summary
	logger    *slog.Logger
}

// NewArbService creates the cycle driver with all required dependencies.
func NewArbService(cfg ArbConfig, deps ArbDeps) *ArbService {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	summary := deps.Summary
	if summary == nil {
		summary = NewSummary(0)
	}
	return &ArbService{
		cfg:       cfg,
		oracle:    deps.Oracle,
		pools:     deps.Pools,
		quoter:    deps.Quoter,
		sizer:     deps.Sizer,
		evaluator: deps.Evaluator,
		admission: deps.Admission,
		queue:     deps.Queue,
		sinks:     deps.Sinks,
		bus:       deps.Bus,
		notifier:  deps.Notifier,
		summary:   summary,
		logger:    deps.Logger,
	}
}

// Summary exposes the running statistics window for the status endpoint.
func (s *ArbService) Summary() SummarySnapshot {
	return s.summary.Snapshot()
}

// Run executes cycles until the context is cancelled. Cycle errors are
// reported and swallowed; cancellation is the only exit.
func (s *ArbService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "arb_service: cycle driver started",
		slog.Int("pairs", len(s.cfg.Pairs)),
		slog.Duration("cycle_delay", s.cfg.CycleDelay),
		slog.Bool("auto_execute", s.cfg.AutoExecute),
	)

	for {
		if err := s.runCycleSafe(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.InfoContext(ctx, "arb_service: cycle driver stopped")
				return ctx.Err()
			}
			s.logger.ErrorContext(ctx, "arb_service: cycle failed",
				slog.String("error", err.Error()),
			)
			s.notify(ctx, "cycle_error", "Cycle failed", err.Error())
		}

		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "arb_service: cycle driver stopped")
			return ctx.Err()
		case <-time.After(s.cfg.CycleDelay):
		}
	}
}

// runCycleSafe contains a cycle so that nothing short of cancellation
// can stop the loop.
func (s *ArbService) runCycleSafe(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("arb_service: cycle panic: %v", r)
		}
	}()
	_, err = s.RunCycle(ctx)
	return err
}

// RunCycle evaluates every configured pair once and returns the results
// of the pairs that completed. Per-pair failures skip only that pair.
func (s *ArbService) RunCycle(ctx context.Context) ([]domain.OpportunityResult, error) {
	started := time.Now()
	results := make([]domain.OpportunityResult, 0, len(s.cfg.Pairs)*2)

	for _, pair := range s.cfg.Pairs {
		if ctx.Err() != nil {
			return results, fmt.Errorf("arb_service: cycle aborted: %w", ctx.Err())
		}
		rows, err := s.processPair(ctx, pair)
		if err != nil {
			if ctx.Err() != nil {
				return results, fmt.Errorf("arb_service: cycle aborted: %w", ctx.Err())
			}
			s.summary.PairSkipped()
			s.logger.WarnContext(ctx, "arb_service: pair skipped this cycle",
				slog.String("pair", pair.CEXSymbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.summary.PairEvaluated()
		results = append(results, rows...)
	}

	s.logger.InfoContext(ctx, "arb_service: cycle complete",
		slog.Int("pairs", len(s.cfg.Pairs)),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(started)),
	)

	if snap, ok := s.summary.CycleDone(); ok {
		s.logger.InfoContext(ctx, "arb_service: summary window",
			slog.Time("window_start", snap.WindowStart),
			slog.Int64("cycles", snap.Cycles),
			slog.Int64("pairs_evaluated", snap.PairsEvaluated),
			slog.Int64("pairs_skipped", snap.PairsSkipped),
			slog.Int64("opportunities", snap.Opportunities),
			slog.Int64("duplicate_skips", snap.DuplicateSkips),
			slog.Int64("submitted", snap.Submitted),
			slog.String("best_pair", snap.BestPair),
			slog.String("best_margin", snap.BestMargin.String()),
			slog.String("profit_stable", snap.ProfitStable.String()),
		)
	}

	return results, nil
}

// processPair snapshots both venues for one pair, evaluates both
// directions and dispatches the outcome. The whole pair shares one
// fetch deadline: first the ticker and pool spot price load
// concurrently, then the trade is sized, then both swap simulations run
// concurrently with the sized amount.
func (s *ArbService) processPair(ctx context.Context, pair domain.Pair) ([]domain.OpportunityResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	pool, err := s.pools.Get(fetchCtx, pair.PoolAddress)
	if err != nil {
		return nil, fmt.Errorf("arb_service: pool %s: %w", pair.PoolAddress, err)
	}
	baseToken := pool.Token0()
	if pair.ReversePrice {
		baseToken = pool.Token1()
	}

	var (
		ticker  domain.Ticker
		poolMid decimal.Decimal
	)
	snap, snapCtx := errgroup.WithContext(fetchCtx)
	snap.Go(func() error {
		t, err := s.oracle.FetchTicker(snapCtx, pair.CEXSymbol)
		if err != nil {
			return fmt.Errorf("ticker %s: %w", pair.CEXSymbol, err)
		}
		ticker = t
		return nil
	})
	snap.Go(func() error {
		p, err := pool.SpotPrice(snapCtx, pair.ReversePrice)
		if err != nil {
			return fmt.Errorf("pool spot %s: %w", pair.PoolAddress, err)
		}
		poolMid = p
		return nil
	})
	if err := snap.Wait(); err != nil {
		return nil, fmt.Errorf("arb_service: snapshot: %w", err)
	}

	sizing, err := s.sizer.Size(fetchCtx, s.cfg.TradeValue, pair.BaseSymbol(), pair.QuoteSymbol(), ticker.Mid())
	if err != nil {
		return nil, fmt.Errorf("arb_service: size %s: %w", pair.CEXSymbol, err)
	}

	var sellQuote, buyQuote domain.Quote
	sims, simCtx := errgroup.WithContext(fetchCtx)
	sims.Go(func() error {
		q, err := s.quoter.SimulateSell(simCtx, pool, baseToken.Symbol, sizing.Amount)
		if err != nil {
			return fmt.Errorf("sell simulation: %w", err)
		}
		sellQuote = q
		return nil
	})
	sims.Go(func() error {
		q, err := s.quoter.SimulateBuy(simCtx, pool, baseToken.Symbol, sizing.Amount)
		if err != nil {
			return fmt.Errorf("buy simulation: %w", err)
		}
		buyQuote = q
		return nil
	})
	if err := sims.Wait(); err != nil {
		return nil, fmt.Errorf("arb_service: simulate %s: %w", pair.CEXSymbol, err)
	}

	// One native rate serves both directions of the pair.
	gasRate := s.nativeQuoteRate(fetchCtx, pair.QuoteSymbol())

	cexMid := ticker.Mid()
	s.logger.DebugContext(ctx, "arb_service: pair snapshot",
		slog.String("pair", pair.CEXSymbol),
		slog.String("cex_mid", cexMid.String()),
		slog.String("pool_mid", poolMid.String()),
		slog.String("divergence_bps", arbitrage.DivergenceBps(cexMid, poolMid).StringFixed(2)),
		slog.String("trade_amount", sizing.Amount.String()),
	)

	results := s.evaluator.Evaluate(arbitrage.EvaluateInput{
		Pair:      pair,
		Ticker:    ticker,
		PoolMid:   poolMid,
		PoolFee:   pool.FeeFraction(),
		Sizing:    sizing,
		SellQuote: sellQuote,
		BuyQuote:  buyQuote,
		GasRate:   gasRate,
	})

	for _, r := range results {
		s.record(ctx, r)
		s.dispatch(ctx, pair, baseToken, r)
	}
	return results, nil
}

// record fans the result out to every sink. Sink failures never stop
// the cycle.
func (s *ArbService) record(ctx context.Context, r domain.OpportunityResult) {
	for _, sink := range s.sinks {
		if err := sink.Append(ctx, r); err != nil {
			s.logger.WarnContext(ctx, "arb_service: result sink append failed",
				slog.String("result_id", r.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// dispatch admits a qualifying result for execution. The admission lock
// is held from here until the settlement worker releases it.
func (s *ArbService) dispatch(ctx context.Context, pair domain.Pair, baseToken domain.Token, r domain.OpportunityResult) {
	if !s.evaluator.Decide(r) {
		return
	}
	s.summary.Opportunity(pair.CEXSymbol, r.Margin, r.ProfitStable)

	s.logger.InfoContext(ctx, "arb_service: opportunity detected",
		slog.String("pair", pair.CEXSymbol),
		slog.String("direction", string(r.Direction)),
		slog.String("profit", r.Profit.String()),
		slog.String("margin", r.Margin.String()),
		slog.String("state", string(domain.TradeDetected)),
	)

	if s.bus != nil {
		if err := s.bus.Publish(ctx, r); err != nil {
			s.logger.WarnContext(ctx, "arb_service: publish opportunity failed",
				slog.String("result_id", r.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.notify(ctx, "opportunity", "Opportunity: "+pair.CEXSymbol,
		fmt.Sprintf("%s\nprofit %s %s, margin %s",
			r.Direction.Description(), r.Profit.StringFixed(6), r.QuoteSymbol, r.Margin.StringFixed(6)))

	if !s.cfg.AutoExecute || s.queue == nil {
		return
	}

	release, ok := s.admission.TryLock(pair.Key())
	if !ok {
		s.summary.DuplicateSkipped()
		s.logger.InfoContext(ctx, "arb_service: admission refused",
			slog.String("pair", pair.CEXSymbol),
			slog.String("reason", domain.ErrDuplicateTrade.Error()),
			slog.String("state", string(domain.TradeSkippedDuplicate)),
		)
		return
	}

	job := domain.TradeJob{
		ID:          uuid.Must(uuid.NewRandom()).String(),
		Direction:   r.Direction,
		PairKey:     pair.Key(),
		CEXPair:     pair.CEXSymbol,
		PoolAddress: pair.PoolAddress,
		Token:       baseToken,
		Amount:      r.TradeAmountBase,
		Slippage:    s.cfg.Slippage,
		Release:     release,
		Result:      r,
	}
	if err := s.queue.Submit(job); err != nil {
		// Submit released the admission lock on refusal.
		s.logger.WarnContext(ctx, "arb_service: job refused",
			slog.String("pair", pair.CEXSymbol),
			slog.String("error", err.Error()),
		)
		return
	}
	s.summary.Submitted()
	s.logger.InfoContext(ctx, "arb_service: job submitted",
		slog.String("job_id", job.ID),
		slog.String("pair", pair.CEXSymbol),
		slog.String("direction", string(r.Direction)),
		slog.String("state", string(domain.TradeAdmitted)),
	)
}

// nativeQuoteRate resolves the price of the chain's native asset in the
// pair's quote currency, for converting simulated gas into quote units.
// Quote assets that are themselves the native asset rate at one;
// otherwise the direct market is tried, then the cross rate through
// USDT. With no route the rate is zero and gas goes unpriced, which
// understates cost, so it is logged.
func (s *ArbService) nativeQuoteRate(ctx context.Context, quote string) decimal.Decimal {
	switch strings.ToUpper(quote) {
	case "ETH", "WETH":
		return decimal.NewFromInt(1)
	}

	if t, err := s.oracle.FetchTicker(ctx, "ETH/"+quote); err == nil && t.Last.IsPositive() {
		return t.Last
	}

	ethTicker, err := s.oracle.FetchTicker(ctx, "ETH/USDT")
	if err != nil || !ethTicker.Last.IsPositive() {
		s.logger.WarnContext(ctx, "arb_service: no native rate, gas priced at zero",
			slog.String("quote", quote),
		)
		return decimal.Zero
	}
	quoteTicker, err := s.oracle.FetchTicker(ctx, quote+"/USDT")
	if err != nil || !quoteTicker.Last.IsPositive() {
		s.logger.WarnContext(ctx, "arb_service: no native rate, gas priced at zero",
			slog.String("quote", quote),
		)
		return decimal.Zero
	}
	return ethTicker.Last.Div(quoteTicker.Last)
}

func (s *ArbService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "arb_service: notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
