package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/levgame/market"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, 2000.0, cfg.Account.StartingBalance)
	assert.Equal(t, 2, cfg.Trading.DefaultLeverage)
	assert.Equal(t, 100.0, cfg.Trading.DefaultAmount)
	assert.Equal(t, []string{"BTC", "DOGE", "SHIB"}, cfg.Catalog().Symbols())
	assert.Equal(t, 3*time.Second, cfg.TickInterval())
	assert.Equal(t, 30*time.Second, cfg.AutosaveInterval())
	assert.Equal(t, market.DefaultParams(), cfg.MarketParams())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "zero balance", mutate: func(c *Config) { c.Account.StartingBalance = 0 }, errMsg: "starting_balance must be positive"},
		{name: "no assets", mutate: func(c *Config) { c.Assets = nil }, errMsg: "at least one asset"},
		{name: "duplicate asset", mutate: func(c *Config) {
			c.Assets = append(c.Assets, market.Asset{Symbol: "btc", BasePrice: 1, Volatility: 0.1})
		}, errMsg: "duplicate asset"},
		{name: "bad base price", mutate: func(c *Config) { c.Assets[0].BasePrice = 0 }, errMsg: "base_price must be positive"},
		{name: "tiny window", mutate: func(c *Config) { c.Market.Window = 1 }, errMsg: "market.window"},
		{name: "inverted volatility", mutate: func(c *Config) { c.Market.MaxVolatility = 0.001 }, errMsg: "volatility bounds"},
		{name: "bad tick interval", mutate: func(c *Config) { c.Market.TickInterval = "soon" }, errMsg: "market.tick_interval"},
		{name: "zero tick interval", mutate: func(c *Config) { c.Market.TickInterval = "0s" }, errMsg: "must be positive"},
		{name: "inverted event interval", mutate: func(c *Config) { c.Events.MinInterval = "90s" }, errMsg: "max_interval must not be shorter"},
		{name: "default leverage not offered", mutate: func(c *Config) { c.Trading.DefaultLeverage = 3 }, errMsg: "default_leverage must be one of"},
		{name: "zero leverage", mutate: func(c *Config) { c.Trading.Leverages = []int{0, 2} }, errMsg: "at least 1"},
		{name: "negative amount", mutate: func(c *Config) { c.Trading.Amounts = []float64{-5} }, errMsg: "amounts must all be positive"},
		{name: "no history", mutate: func(c *Config) { c.Trading.MaxHistory = 0 }, errMsg: "max_history"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Type = "s3" }, errMsg: "storage.type"},
		{name: "redis without url", mutate: func(c *Config) { c.Storage.Type = "redis" }, errMsg: "storage.url required"},
		{name: "csv journal without files", mutate: func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }, errMsg: "trades_file and equity_file"},
		{name: "sqlite journal without path", mutate: func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }, errMsg: "db_path required"},
		{name: "unknown journal", mutate: func(c *Config) { c.Journal.Type = "paper" }, errMsg: "journal.type"},
		{name: "bad log encoding", mutate: func(c *Config) { c.Log.Encoding = "xml" }, errMsg: "log.encoding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Account.UserID = "user_saved"
			cfg.Trading.DefaultLeverage = 10
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  starting_balance: 500\nstorage:\n  type: memory\n  autosave_interval: 1m\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.Account.StartingBalance)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, time.Minute, cfg.AutosaveInterval())
	assert.Equal(t, "3s", cfg.Market.TickInterval)
	assert.Len(t, cfg.Assets, 3)
}

func TestLoadInvalidFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  starting_balance: -1\n"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestEventsConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	ec, err := cfg.EventsConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, ec.MinInterval)
	assert.Equal(t, 60*time.Second, ec.MaxInterval)
	assert.Equal(t, 30*time.Second, ec.Lifetime)

	lc := cfg.LedgerConfig()
	assert.Equal(t, 500.0, lc.ImpactThreshold)
	assert.Equal(t, 100, lc.MaxHistory)

	sc := cfg.StoreConfig()
	assert.Equal(t, "file", sc.Type)
	assert.Equal(t, "./levgame.json", sc.Path)
}
