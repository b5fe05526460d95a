package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

const (
	defaultWorkers   = 10
	defaultQueueSize = 32
)

// Settler settles the DEX leg of an admitted trade. It is typically the
// Uniswap router.
type Settler interface {
	Settle(ctx context.Context, job domain.TradeJob) (domain.Settlement, error)
}

// Notifier delivers execution outcomes to operators. Delivery is best
// effort; failures never block settlement.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config sizes the worker pool and its queue.
type Config struct {
	Workers   int
	QueueSize int
}

// Executor runs admitted trade jobs on a fixed worker pool. Jobs enter
// through a non-blocking Submit; every job's admission lock is released
// on every exit path, including worker panics and refused submissions.
type Executor struct {
	settler  Settler
	notifier Notifier
	logger   *slog.Logger

	jobs    chan domain.TradeJob
	workers int
}

// New creates an executor with cfg, falling back to the default pool
// size and queue depth for zero values.
func New(cfg Config, settler Settler, notifier Notifier, logger *slog.Logger) *Executor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = defaultQueueSize
	}

	return &Executor{
		settler:  settler,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "executor")),
		jobs:     make(chan domain.TradeJob, queue),
		workers:  workers,
	}
}

// Submit hands a job to the pool without blocking. A full queue refuses
// the job and releases its admission lock so the pair can be retried on
// a later cycle.
func (e *Executor) Submit(job domain.TradeJob) error {
	select {
	case e.jobs <- job:
		return nil
	default:
		if job.Release != nil {
			job.Release()
		}
		return fmt.Errorf("executor: submit %s: %w", job.CEXPair, domain.ErrQueueFull)
	}
}

// Pending returns the queued job count, for the status endpoint.
func (e *Executor) Pending() int {
	return len(e.jobs)
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Info("executor started", slog.Int("workers", e.workers))
	defer e.logger.Info("executor stopped")

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.work(ctx)
		}()
	}
	wg.Wait()

	return ctx.Err()
}

func (e *Executor) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.jobs:
			e.settle(ctx, job)
		}
	}
}

// settle runs one job through the router and classifies the outcome.
func (e *Executor) settle(ctx context.Context, job domain.TradeJob) {
	log := e.logger.With(
		slog.String("job_id", job.ID),
		slog.String("pair", job.CEXPair),
		slog.String("direction", string(job.Direction)),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("settlement panicked", slog.Any("panic", r))
		}
		if job.Release != nil {
			job.Release()
		}
		log.Debug("admission released", slog.String("state", string(domain.TradeReleased)))
	}()

	log.Info("settling trade",
		slog.String("token", job.Token.Symbol),
		slog.String("amount", job.Amount.String()),
		slog.String("state", string(domain.TradeExecuting)),
	)

	settlement, err := e.settler.Settle(ctx, job)
	state := classify(settlement, err)

	switch state {
	case domain.TradeConfirmed:
		log.Info("trade confirmed",
			slog.String("tx", settlement.TxHash),
			slog.Uint64("gas_used", settlement.GasUsed),
		)
	case domain.TradeUnconfirmed:
		log.Warn("trade unconfirmed within receipt timeout",
			slog.String("tx", settlement.TxHash),
			slog.String("error", err.Error()),
		)
	default:
		log.Error("trade failed", slog.String("error", err.Error()))
	}

	e.notifyOutcome(ctx, job, state, settlement, err)
}

// classify maps a settlement outcome to its terminal trade state. A
// submitted transaction that outlived the receipt wait is Unconfirmed,
// not Error: it may still mine.
func classify(s domain.Settlement, err error) domain.TradeState {
	switch {
	case err == nil:
		return domain.TradeConfirmed
	case errors.Is(err, context.DeadlineExceeded) && s.TxHash != "":
		return domain.TradeUnconfirmed
	default:
		return domain.TradeError
	}
}

func (e *Executor) notifyOutcome(ctx context.Context, job domain.TradeJob, state domain.TradeState, s domain.Settlement, settleErr error) {
	if e.notifier == nil {
		return
	}

	event := "trade_" + strings.ToLower(string(state))
	title := fmt.Sprintf("Trade %s: %s", state, job.CEXPair)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", job.Direction.Description())
	fmt.Fprintf(&b, "amount: %s %s\n", job.Amount, job.Token.Symbol)
	fmt.Fprintf(&b, "modeled profit: %s %s\n", job.Result.Profit, job.Result.QuoteSymbol)
	if s.TxHash != "" {
		fmt.Fprintf(&b, "tx: %s\n", s.TxHash)
	}
	if settleErr != nil {
		fmt.Fprintf(&b, "error: %v\n", settleErr)
	}

	if err := e.notifier.Notify(ctx, event, title, b.String()); err != nil {
		e.logger.Warn("outcome notification failed", slog.String("error", err.Error()))
	}
}
