package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DEXARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DEXARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setFloat64(&cfg.Engine.TradeValue, "DEXARB_ENGINE_TRADE_VALUE")
	setFloat64(&cfg.Engine.MarginThreshold, "DEXARB_ENGINE_MARGIN_THRESHOLD")
	setFloat64(&cfg.Engine.CEXFee, "DEXARB_ENGINE_CEX_FEE")
	setFloat64(&cfg.Engine.Slippage, "DEXARB_ENGINE_SLIPPAGE")
	setDuration(&cfg.Engine.CycleDelay, "DEXARB_ENGINE_CYCLE_DELAY")
	setDuration(&cfg.Engine.FetchTimeout, "DEXARB_ENGINE_FETCH_TIMEOUT")
	setInt(&cfg.Engine.Workers, "DEXARB_ENGINE_WORKERS")
	setInt(&cfg.Engine.QueueSize, "DEXARB_ENGINE_QUEUE_SIZE")
	setBool(&cfg.Engine.AutoExecute, "DEXARB_ENGINE_AUTO_EXECUTE")
	setDuration(&cfg.Engine.SummaryInterval, "DEXARB_ENGINE_SUMMARY_INTERVAL")
	setStringSlice(&cfg.Engine.StableSymbols, "DEXARB_ENGINE_STABLE_SYMBOLS")

	// ── Binance ──
	setStr(&cfg.Binance.BaseURL, "DEXARB_BINANCE_BASE_URL")
	setStr(&cfg.Binance.WsURL, "DEXARB_BINANCE_WS_URL")
	setStr(&cfg.Binance.ApiKey, "DEXARB_BINANCE_API_KEY")
	setStr(&cfg.Binance.ApiSecret, "DEXARB_BINANCE_API_SECRET")
	setBool(&cfg.Binance.UseWebsocket, "DEXARB_BINANCE_USE_WEBSOCKET")
	setDuration(&cfg.Binance.WsStaleAfter, "DEXARB_BINANCE_WS_STALE_AFTER")
	setDuration(&cfg.Binance.HTTPTimeout, "DEXARB_BINANCE_HTTP_TIMEOUT")

	// ── Ethereum ──
	setStr(&cfg.Ethereum.RpcURL, "DEXARB_ETHEREUM_RPC_URL")
	setInt64(&cfg.Ethereum.ChainID, "DEXARB_ETHEREUM_CHAIN_ID")
	setStr(&cfg.Ethereum.QuoterAddress, "DEXARB_ETHEREUM_QUOTER_ADDRESS")
	setStr(&cfg.Ethereum.RouterAddress, "DEXARB_ETHEREUM_ROUTER_ADDRESS")
	setDuration(&cfg.Ethereum.CallTimeout, "DEXARB_ETHEREUM_CALL_TIMEOUT")
	setDuration(&cfg.Ethereum.ReceiptTimeout, "DEXARB_ETHEREUM_RECEIPT_TIMEOUT")
	setUint64(&cfg.Ethereum.ApproveGasLimit, "DEXARB_ETHEREUM_APPROVE_GAS_LIMIT")
	setUint64(&cfg.Ethereum.SwapGasLimit, "DEXARB_ETHEREUM_SWAP_GAS_LIMIT")

	// ── Wallet ──
	setStr(&cfg.Wallet.Address, "DEXARB_WALLET_ADDRESS")
	setStr(&cfg.Wallet.PrivateKey, "DEXARB_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "DEXARB_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassphrase, "DEXARB_WALLET_KEY_PASSPHRASE")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "DEXARB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "DEXARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "DEXARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DEXARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DEXARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DEXARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DEXARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "DEXARB_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "DEXARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "DEXARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "DEXARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "DEXARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "DEXARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEXARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEXARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DEXARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DEXARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DEXARB_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.TickerTTL, "DEXARB_REDIS_TICKER_TTL")
	setStr(&cfg.Redis.OpportunityChannel, "DEXARB_REDIS_OPPORTUNITY_CHANNEL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "DEXARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "DEXARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "DEXARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "DEXARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "DEXARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "DEXARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "DEXARB_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "DEXARB_S3_PREFIX")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "DEXARB_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "DEXARB_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "DEXARB_ARCHIVE_INTERVAL")

	// ── Results ──
	setBool(&cfg.Results.CSVEnabled, "DEXARB_RESULTS_CSV_ENABLED")
	setStr(&cfg.Results.CSVPath, "DEXARB_RESULTS_CSV_PATH")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "DEXARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "DEXARB_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "DEXARB_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "DEXARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "DEXARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "DEXARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "DEXARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "DEXARB_MODE")
	setStr(&cfg.LogLevel, "DEXARB_LOG_LEVEL")
	setStr(&cfg.PairsFile, "DEXARB_PAIRS_FILE")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
