// Package config defines the top-level configuration for the arbitrage
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by DEXARB_* environment variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Binance  BinanceConfig  `toml:"binance"`
	Ethereum EthereumConfig `toml:"ethereum"`
	Wallet   WalletConfig   `toml:"wallet"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Results  ResultsConfig  `toml:"results"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`

	// PairsFile is the CSV listing the CEX symbol / pool pairings to watch.
	PairsFile string `toml:"pairs_file"`
}

// EngineConfig holds the evaluation and scheduling parameters.
type EngineConfig struct {
	// TradeValue is the per-trade notional, in US-dollar-stable terms,
	// used to size the base amount for each pair.
	TradeValue      float64  `toml:"trade_value"`
	MarginThreshold float64  `toml:"margin_threshold"`
	CEXFee          float64  `toml:"cex_fee"`
	Slippage        float64  `toml:"slippage"`
	CycleDelay      duration `toml:"cycle_delay"`
	FetchTimeout    duration `toml:"fetch_timeout"`
	Workers         int      `toml:"workers"`
	QueueSize       int      `toml:"queue_size"`
	// AutoExecute submits qualifying opportunities for settlement; when
	// false the engine only evaluates and records.
	AutoExecute     bool     `toml:"auto_execute"`
	SummaryInterval duration `toml:"summary_interval"`
	StableSymbols   []string `toml:"stable_symbols"`
}

// BinanceConfig holds the CEX API endpoints and credentials.
type BinanceConfig struct {
	BaseURL      string   `toml:"base_url"`
	WsURL        string   `toml:"ws_url"`
	ApiKey       string   `toml:"api_key"`
	ApiSecret    string   `toml:"api_secret"`
	UseWebsocket bool     `toml:"use_websocket"`
	WsStaleAfter duration `toml:"ws_stale_after"`
	HTTPTimeout  duration `toml:"http_timeout"`
}

// EthereumConfig holds the chain endpoint and contract parameters.
type EthereumConfig struct {
	RpcURL          string   `toml:"rpc_url"`
	ChainID         int64    `toml:"chain_id"`
	QuoterAddress   string   `toml:"quoter_address"`
	RouterAddress   string   `toml:"router_address"`
	CallTimeout     duration `toml:"call_timeout"`
	ReceiptTimeout  duration `toml:"receipt_timeout"`
	ApproveGasLimit uint64   `toml:"approve_gas_limit"`
	SwapGasLimit    uint64   `toml:"swap_gas_limit"`
}

// WalletConfig holds the settlement wallet credentials.
type WalletConfig struct {
	Address          string `toml:"address"`
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassphrase    string `toml:"key_passphrase"`
}

// PostgresConfig holds PostgreSQL connection parameters for the result
// store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the ticker cache and
// the opportunity bus.
type RedisConfig struct {
	Enabled            bool     `toml:"enabled"`
	Addr               string   `toml:"addr"`
	Password           string   `toml:"password"`
	DB                 int      `toml:"db"`
	PoolSize           int      `toml:"pool_size"`
	MaxRetries         int      `toml:"max_retries"`
	TLSEnabled         bool     `toml:"tls_enabled"`
	TickerTTL          duration `toml:"ticker_ttl"`
	OpportunityChannel string   `toml:"opportunity_channel"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ArchiveConfig holds the result archival job parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// ResultsConfig holds the tabular result sink parameters.
type ResultsConfig struct {
	CSVEnabled bool   `toml:"csv_enabled"`
	CSVPath    string `toml:"csv_path"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP status server parameters. When APIKey is set, all
// endpoints except the health check require it.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Port    int    `toml:"port"`
	APIKey  string `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			TradeValue:      1000.0,
			MarginThreshold: 0.001,
			CEXFee:          0.001,
			Slippage:        0.005,
			CycleDelay:      duration{10 * time.Second},
			FetchTimeout:    duration{5 * time.Second},
			Workers:         10,
			QueueSize:       32,
			AutoExecute:     false,
			SummaryInterval: duration{time.Hour},
			StableSymbols:   []string{"USDT", "USDC", "BUSD", "TUSD", "DAI", "USDP", "FDUSD", "USDD"},
		},
		Binance: BinanceConfig{
			BaseURL:      "https://api.binance.com",
			WsURL:        "wss://stream.binance.com:9443",
			UseWebsocket: false,
			WsStaleAfter: duration{3 * time.Second},
			HTTPTimeout:  duration{10 * time.Second},
		},
		Ethereum: EthereumConfig{
			RpcURL:          "https://ethereum-rpc.publicnode.com",
			ChainID:         1,
			QuoterAddress:   "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
			RouterAddress:   "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
			CallTimeout:     duration{10 * time.Second},
			ReceiptTimeout:  duration{2 * time.Minute},
			ApproveGasLimit: 100_000,
			SwapGasLimit:    300_000,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "dexarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:            false,
			Addr:               "localhost:6379",
			DB:                 0,
			PoolSize:           20,
			MaxRetries:         3,
			TLSEnabled:         false,
			TickerTTL:          duration{2 * time.Second},
			OpportunityChannel: "dexarb.opportunities",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "dexarb-data",
			UseSSL:         false,
			ForcePathStyle: true,
			Prefix:         "results",
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Results: ResultsConfig{
			CSVEnabled: true,
			CSVPath:    "arbitrage_results.csv",
		},
		Server: ServerConfig{
			Enabled: false,
			Port:    8000,
		},
		Notify: NotifyConfig{
			Events: []string{"execution", "error"},
		},
		Mode:      "evaluate",
		LogLevel:  "info",
		PairsFile: "arbitrage_pairs.csv",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"evaluate": true,
	"trade":    true,
	"server":   true,
	"full":     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: evaluate, trade, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if strings.TrimSpace(c.PairsFile) == "" {
		errs = append(errs, "pairs_file must not be empty")
	}

	// Engine
	if c.Engine.TradeValue <= 0 {
		errs = append(errs, "engine: trade_value must be > 0")
	}
	if c.Engine.MarginThreshold < 0 {
		errs = append(errs, "engine: margin_threshold must be >= 0")
	}
	if c.Engine.CEXFee < 0 || c.Engine.CEXFee >= 1 {
		errs = append(errs, fmt.Sprintf("engine: cex_fee must be in [0, 1), got %g", c.Engine.CEXFee))
	}
	if c.Engine.Slippage < 0 || c.Engine.Slippage >= 1 {
		errs = append(errs, fmt.Sprintf("engine: slippage must be in [0, 1), got %g", c.Engine.Slippage))
	}
	if c.Engine.CycleDelay.Duration <= 0 {
		errs = append(errs, "engine: cycle_delay must be > 0")
	}
	if c.Engine.FetchTimeout.Duration <= 0 {
		errs = append(errs, "engine: fetch_timeout must be > 0")
	}
	if c.Engine.Workers < 1 {
		errs = append(errs, "engine: workers must be >= 1")
	}
	if c.Engine.QueueSize < 1 {
		errs = append(errs, "engine: queue_size must be >= 1")
	}
	if len(c.Engine.StableSymbols) == 0 {
		errs = append(errs, "engine: stable_symbols must not be empty")
	}

	// Binance
	if c.Binance.BaseURL == "" {
		errs = append(errs, "binance: base_url must not be empty")
	}
	if c.Binance.UseWebsocket && c.Binance.WsURL == "" {
		errs = append(errs, "binance: ws_url is required when use_websocket is set")
	}
	// Signed endpoints need both halves of the credential.
	if (c.Binance.ApiKey == "") != (c.Binance.ApiSecret == "") {
		errs = append(errs, "binance: api_key and api_secret must be set together")
	}

	// Ethereum
	if c.Ethereum.RpcURL == "" {
		errs = append(errs, "ethereum: rpc_url must not be empty")
	}
	if c.Ethereum.ChainID <= 0 {
		errs = append(errs, "ethereum: chain_id must be positive")
	}
	if c.Ethereum.QuoterAddress == "" {
		errs = append(errs, "ethereum: quoter_address must not be empty")
	}
	if c.Ethereum.RouterAddress == "" {
		errs = append(errs, "ethereum: router_address must not be empty")
	}

	// Wallet is required only when the engine may settle trades.
	needsWallet := c.Engine.AutoExecute && (c.Mode == "trade" || c.Mode == "full")
	if needsWallet {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set when auto_execute is on")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassphrase == "" {
			errs = append(errs, "wallet: key_passphrase is required when encrypted_key_path is set")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.TickerTTL.Duration <= 0 {
			errs = append(errs, "redis: ticker_ttl must be > 0")
		}
	}

	// Archive depends on both stores being configured.
	if c.Archive.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "archive: postgres must be enabled to archive results")
		}
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	// Results
	if c.Results.CSVEnabled && strings.TrimSpace(c.Results.CSVPath) == "" {
		errs = append(errs, "results: csv_path must not be empty when csv_enabled is set")
	}

	// Server
	if c.Server.Enabled || c.Mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
