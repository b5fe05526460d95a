package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Engine.TradeValue = 0
	cfg.Engine.Workers = 0
	cfg.Binance.BaseURL = ""
	cfg.Binance.ApiKey = "key-without-secret"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "bogus"`)
	assert.Contains(t, err.Error(), "trade_value must be > 0")
	assert.Contains(t, err.Error(), "workers must be >= 1")
	assert.Contains(t, err.Error(), "base_url must not be empty")
	assert.Contains(t, err.Error(), "api_key and api_secret must be set together")
}

func TestValidateWalletRequiredForAutoExecute(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Engine.AutoExecute = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet: either private_key or encrypted_key_path")

	cfg.Wallet.PrivateKey = "ab"
	require.NoError(t, cfg.Validate())
}

func TestValidateArchiveNeedsPostgres(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.Postgres.Enabled = false

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres must be enabled to archive")
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "trade"
pairs_file = "pairs.csv"

[engine]
trade_value = 250.0
cycle_delay = "30s"

[ethereum]
chain_id = 11155111
`), 0o644))

	t.Setenv("DEXARB_ENGINE_TRADE_VALUE", "500")
	t.Setenv("DEXARB_WALLET_PRIVATE_KEY", "deadbeef")
	t.Setenv("DEXARB_ENGINE_STABLE_SYMBOLS", "USDT, USDC")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "trade", cfg.Mode)
	assert.Equal(t, 500.0, cfg.Engine.TradeValue, "env overrides file")
	assert.Equal(t, 30*time.Second, cfg.Engine.CycleDelay.Duration)
	assert.Equal(t, int64(11155111), cfg.Ethereum.ChainID)
	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)
	assert.Equal(t, []string{"USDT", "USDC"}, cfg.Engine.StableSymbols)
	// Untouched values fall back to defaults.
	assert.Equal(t, "https://api.binance.com", cfg.Binance.BaseURL)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "secret"
	cfg.Binance.ApiSecret = "secret"
	cfg.Postgres.Password = "secret"
	cfg.Server.APIKey = "secret"
	cfg.Notify.TelegramToken = "secret"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Binance.ApiSecret)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	// Original is untouched.
	assert.Equal(t, "secret", cfg.Wallet.PrivateKey)
	// Empty secrets stay empty rather than gaining a placeholder.
	assert.Empty(t, red.Binance.ApiKey)
}
