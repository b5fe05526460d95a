package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/dexarb/internal/blob/s3"
	"github.com/alanyoungcy/dexarb/internal/cache"
	"github.com/alanyoungcy/dexarb/internal/cache/redis"
	"github.com/alanyoungcy/dexarb/internal/config"
	"github.com/alanyoungcy/dexarb/internal/crypto"
	"github.com/alanyoungcy/dexarb/internal/domain"
	"github.com/alanyoungcy/dexarb/internal/notify"
	"github.com/alanyoungcy/dexarb/internal/pipeline"
	"github.com/alanyoungcy/dexarb/internal/platform/binance"
	"github.com/alanyoungcy/dexarb/internal/platform/ethereum"
	"github.com/alanyoungcy/dexarb/internal/platform/uniswap"
	"github.com/alanyoungcy/dexarb/internal/store/csvfile"
	"github.com/alanyoungcy/dexarb/internal/store/postgres"
)

// Dependencies bundles every external resource the application modes
// need to operate. It is constructed by Wire and torn down by the
// returned cleanup function. Fields are nil when the configured mode or
// feature flags do not require them.
type Dependencies struct {
	// Venues
	Oracle  domain.PriceOracle
	Eth     *ethereum.Client
	Pools   *uniswap.Registry
	Quoter  *uniswap.Quoter
	Router  *uniswap.Router // nil unless a settlement wallet is wired
	Markets domain.MarketSet

	// Evaluation roster
	Pairs []domain.Pair

	// Persistence and fan-out
	ResultStore *postgres.ResultStore
	Sinks       []domain.ResultSink
	Bus         domain.OpportunityBus
	Archiver    *pipeline.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsEngine returns true for modes that run the decision cycle and
// therefore need venue access.
func needsEngine(mode string) bool {
	switch mode {
	case "evaluate", "trade", "full":
		return true
	default:
		return false
	}
}

// needsSettlement returns true when the configured mode may submit
// on-chain trades, which requires a funded wallet.
func needsSettlement(cfg *config.Config) bool {
	if !cfg.Engine.AutoExecute {
		return false
	}
	switch cfg.Mode {
	case "trade", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	engine := needsEngine(cfg.Mode)

	// --- Pair roster (engine modes only) ---
	if engine {
		pairs, err := config.LoadPairs(cfg.PairsFile)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: load pairs: %w", err)
		}
		deps.Pairs = pairs
	}

	// --- Binance ---
	if engine {
		rest := binance.NewClient(cfg.Binance.BaseURL, cfg.Binance.HTTPTimeout.Duration)
		if cfg.Binance.ApiKey != "" && cfg.Binance.ApiSecret != "" {
			rest.SetAPIKey(cfg.Binance.ApiKey, cfg.Binance.ApiSecret)
		}

		var oracle domain.PriceOracle = rest
		if cfg.Binance.UseWebsocket {
			symbols := make([]string, 0, len(deps.Pairs))
			for _, p := range deps.Pairs {
				symbols = append(symbols, p.CEXSymbol)
			}
			ws := binance.NewWSClient(cfg.Binance.WsURL, symbols)
			if err := ws.Connect(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: binance websocket: %w", err)
			}
			closers = append(closers, func() { _ = ws.Close() })
			oracle = binance.NewLiveTickerSource(rest, ws, cfg.Binance.WsStaleAfter.Duration)
		}

		// --- Redis (ticker cache and opportunity channel) ---
		if cfg.Redis.Enabled {
			redisClient, err := redis.New(ctx, redis.ClientConfig{
				Addr:       cfg.Redis.Addr,
				Password:   cfg.Redis.Password,
				DB:         cfg.Redis.DB,
				PoolSize:   cfg.Redis.PoolSize,
				MaxRetries: cfg.Redis.MaxRetries,
				TLSEnabled: cfg.Redis.TLSEnabled,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: redis: %w", err)
			}
			closers = append(closers, func() { _ = redisClient.Close() })

			oracle = cache.NewCachedOracle(oracle, redis.NewTickerCache(redisClient), cfg.Redis.TickerTTL.Duration, logger)
			deps.Bus = redis.NewOpportunityBus(redisClient, cfg.Redis.OpportunityChannel, logger)
		}
		deps.Oracle = oracle

		// Market roster for the sizing probe. Failure here only disables
		// depth probing for non-stable quotes, so it is not fatal.
		markets, err := oracle.LoadMarkets(ctx)
		if err != nil {
			logger.WarnContext(ctx, "wire: load markets failed, depth probing disabled",
				slog.String("error", err.Error()),
			)
			markets = domain.MarketSet{}
		}
		deps.Markets = markets
	}

	// --- Ethereum ---
	if engine {
		eth, err := ethereum.Dial(ctx, cfg.Ethereum.RpcURL, cfg.Ethereum.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: ethereum: %w", err)
		}
		closers = append(closers, eth.Close)
		deps.Eth = eth

		deps.Pools = uniswap.NewRegistry(eth.Backend())
		quoter, err := uniswap.NewQuoter(eth.Backend(), eth, cfg.Ethereum.QuoterAddress)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: quoter: %w", err)
		}
		deps.Quoter = quoter

		// Resolve every configured pool up front so bad addresses fail at
		// startup rather than mid-cycle.
		for _, p := range deps.Pairs {
			if _, err := deps.Pools.Get(ctx, p.PoolAddress); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: pool %s (%s): %w", p.PoolPair, p.PoolAddress, err)
			}
		}
		logger.InfoContext(ctx, "wire: pools resolved",
			slog.Int("pools", len(deps.Pools.List())),
			slog.Int64("chain_id", cfg.Ethereum.ChainID),
		)

		// --- Settlement wallet ---
		if needsSettlement(cfg) {
			keyHex, err := crypto.LoadKey(crypto.KeyConfig{
				RawPrivateKey:    cfg.Wallet.PrivateKey,
				EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
				Passphrase:       cfg.Wallet.KeyPassphrase,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
			}
			wallet, err := crypto.NewWallet(keyHex, cfg.Ethereum.ChainID)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: wallet: %w", err)
			}
			if cfg.Wallet.Address != "" && !strings.EqualFold(cfg.Wallet.Address, wallet.Address().Hex()) {
				cleanup()
				return nil, nil, fmt.Errorf("wire: wallet: key derives %s, config says %s",
					wallet.Address().Hex(), cfg.Wallet.Address)
			}

			router, err := uniswap.NewRouter(uniswap.RouterConfig{
				Address:         cfg.Ethereum.RouterAddress,
				Backend:         eth.Backend(),
				Waiter:          eth,
				Wallet:          wallet,
				Quoter:          quoter,
				Pools:           deps.Pools,
				ApproveGasLimit: cfg.Ethereum.ApproveGasLimit,
				SwapGasLimit:    cfg.Ethereum.SwapGasLimit,
				ReceiptTimeout:  cfg.Ethereum.ReceiptTimeout.Duration,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: router: %w", err)
			}
			deps.Router = router
			logger.InfoContext(ctx, "wire: settlement wallet ready",
				slog.String("address", wallet.Address().Hex()),
			)
		}
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.ResultStore = postgres.NewResultStore(pgClient.Pool())
		deps.Sinks = append(deps.Sinks, deps.ResultStore)
	}

	// --- CSV sink ---
	if engine && cfg.Results.CSVEnabled {
		csvSink, err := csvfile.Open(cfg.Results.CSVPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: csv sink: %w", err)
		}
		closers = append(closers, func() { _ = csvSink.Close() })
		deps.Sinks = append(deps.Sinks, csvSink)
	}

	// --- S3 archival ---
	if engine && cfg.Archive.Enabled {
		if deps.ResultStore == nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: archive requires postgres result store")
		}
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3 health: %w", err)
		}

		deps.Archiver = pipeline.NewArchiver(pipeline.ArchiverConfig{
			RetentionDays: cfg.Archive.RetentionDays,
			Interval:      cfg.Archive.Interval.Duration,
			Prefix:        cfg.S3.Prefix,
		}, deps.ResultStore, archiveBlob{
			Writer: s3blob.NewWriter(s3Client),
			Reader: s3blob.NewReader(s3Client),
		}, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// archiveBlob joins the writer and reader halves of the S3 client into
// the archiver's blob surface.
type archiveBlob struct {
	*s3blob.Writer
	*s3blob.Reader
}
