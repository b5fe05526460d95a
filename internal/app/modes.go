package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/dexarb/internal/arbitrage"
	"github.com/alanyoungcy/dexarb/internal/executor"
	"github.com/alanyoungcy/dexarb/internal/server"
	"github.com/alanyoungcy/dexarb/internal/server/handler"
	"github.com/alanyoungcy/dexarb/internal/service"
)

// engine bundles the per-mode evaluation chain so the HTTP server can
// reach into it for status reporting.
type engine struct {
	svc       *service.ArbService
	admission *executor.Admission
	exec      *executor.Executor // nil when execution is disabled
}

// buildEngine assembles sizing, evaluation, admission and (optionally)
// execution on top of the wired dependencies. execute controls whether
// admitted jobs get a worker pool; without it the cycle records and
// publishes results only.
func (a *App) buildEngine(deps *Dependencies, execute bool) *engine {
	if execute && deps.Router == nil {
		a.logger.Warn("auto_execute is on but no settlement wallet is wired, running without execution")
		execute = false
	}

	sizer := arbitrage.NewSizer(deps.Oracle, deps.Markets, a.cfg.Engine.StableSymbols, a.logger)
	evaluator := arbitrage.NewEvaluator(arbitrage.EvaluatorConfig{
		CEXFee:          decimal.NewFromFloat(a.cfg.Engine.CEXFee),
		MarginThreshold: decimal.NewFromFloat(a.cfg.Engine.MarginThreshold),
	}, a.logger)
	admission := executor.NewAdmission()

	var exec *executor.Executor
	var queue service.Submitter
	if execute {
		exec = executor.New(executor.Config{
			Workers:   a.cfg.Engine.Workers,
			QueueSize: a.cfg.Engine.QueueSize,
		}, deps.Router, deps.Notifier, a.logger)
		queue = exec
	}

	svc := service.NewArbService(service.ArbConfig{
		Pairs:        deps.Pairs,
		TradeValue:   decimal.NewFromFloat(a.cfg.Engine.TradeValue),
		Slippage:     decimal.NewFromFloat(a.cfg.Engine.Slippage),
		CycleDelay:   a.cfg.Engine.CycleDelay.Duration,
		FetchTimeout: a.cfg.Engine.FetchTimeout.Duration,
		AutoExecute:  execute,
	}, service.ArbDeps{
		Oracle:    deps.Oracle,
		Pools:     deps.Pools,
		Quoter:    deps.Quoter,
		Sizer:     sizer,
		Evaluator: evaluator,
		Admission: admission,
		Queue:     queue,
		Sinks:     deps.Sinks,
		Bus:       deps.Bus,
		Notifier:  deps.Notifier,
		Summary:   service.NewSummary(a.cfg.Engine.SummaryInterval.Duration),
		Logger:    a.logger,
	})

	return &engine{svc: svc, admission: admission, exec: exec}
}

// EvaluateMode runs the decision cycle without execution. Opportunities
// are recorded and published but no orders are placed on either venue.
func (a *App) EvaluateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting evaluate mode",
		slog.Int("pairs", len(deps.Pairs)),
	)

	g, ctx := errgroup.WithContext(ctx)

	eng := a.buildEngine(deps, false)
	g.Go(func() error {
		return eng.svc.Run(ctx)
	})

	a.startArchiver(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, eng)
	}

	return g.Wait()
}

// TradeMode runs the decision cycle with the execution queue attached.
// Whether admitted jobs are actually settled follows engine.auto_execute.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode",
		slog.Int("pairs", len(deps.Pairs)),
		slog.Bool("auto_execute", a.cfg.Engine.AutoExecute),
	)

	g, ctx := errgroup.WithContext(ctx)

	eng := a.buildEngine(deps, a.cfg.Engine.AutoExecute)
	g.Go(func() error {
		return eng.svc.Run(ctx)
	})
	if eng.exec != nil {
		g.Go(func() error {
			return eng.exec.Run(ctx)
		})
	}

	a.startArchiver(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, eng)
	}

	return g.Wait()
}

// ServerMode serves the status API without running the decision cycle.
// Recent results come from Postgres when it is enabled; the live status
// fields read as zero.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)
	return g.Wait()
}

// FullMode runs everything: the decision cycle, the execution queue, the
// archival job and the HTTP server.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode",
		slog.Int("pairs", len(deps.Pairs)),
		slog.Bool("auto_execute", a.cfg.Engine.AutoExecute),
	)

	g, ctx := errgroup.WithContext(ctx)

	eng := a.buildEngine(deps, a.cfg.Engine.AutoExecute)
	g.Go(func() error {
		return eng.svc.Run(ctx)
	})
	if eng.exec != nil {
		g.Go(func() error {
			return eng.exec.Run(ctx)
		})
	}

	a.startArchiver(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, eng)

	return g.Wait()
}

// startArchiver adds the retention loop to the group when archival is
// wired.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	g.Go(func() error {
		return deps.Archiver.RunLoop(ctx)
	})
}

// startHTTPServer adds the status server goroutines to the given
// errgroup. eng may be nil (server mode); the status endpoint then
// reports zero values. The server is shut down gracefully when the
// context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, eng *engine) {
	var (
		summary   handler.SummarySource
		admission handler.AdmissionView
		queue     handler.QueueView
	)
	if eng != nil {
		summary = eng.svc
		admission = eng.admission
		if eng.exec != nil {
			queue = eng.exec
		}
	}
	var results handler.ResultStore
	if deps.ResultStore != nil {
		results = deps.ResultStore
	}

	srv := server.NewServer(server.Config{
		Port:   a.cfg.Server.Port,
		APIKey: a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(),
		Status:  handler.NewStatusHandler(a.cfg.Mode, time.Now().UTC(), summary, admission, queue),
		Results: handler.NewResultsHandler(results, a.logger),
	}, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.InfoContext(ctx, "HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})
}
