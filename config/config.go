package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/levgame/events"
	"github.com/rustyeddy/levgame/ledger"
	"github.com/rustyeddy/levgame/market"
	"github.com/rustyeddy/levgame/store"
)

// Config represents the complete game configuration
type Config struct {
	Account AccountConfig  `json:"account" yaml:"account"`
	Assets  []market.Asset `json:"assets" yaml:"assets"`
	Market  MarketConfig   `json:"market" yaml:"market"`
	Events  EventsConfig   `json:"events" yaml:"events"`
	Trading TradingConfig  `json:"trading" yaml:"trading"`
	Storage StorageConfig  `json:"storage" yaml:"storage"`
	Journal JournalConfig  `json:"journal" yaml:"journal"`
	Log     LogConfig      `json:"log" yaml:"log"`
	Metrics MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	StartingBalance float64 `json:"starting_balance" yaml:"starting_balance"`
	UserID          string  `json:"user_id,omitempty" yaml:"user_id,omitempty"` // generated on first run when empty
}

// MarketConfig tunes the price walk
type MarketConfig struct {
	Window             int     `json:"window" yaml:"window"`
	SeedPoints         int     `json:"seed_points" yaml:"seed_points"`
	TickInterval       string  `json:"tick_interval" yaml:"tick_interval"` // e.g. "3s"
	MinVolatility      float64 `json:"min_volatility" yaml:"min_volatility"`
	MaxVolatility      float64 `json:"max_volatility" yaml:"max_volatility"`
	ReversionThreshold float64 `json:"reversion_threshold" yaml:"reversion_threshold"`
	ReversionStrength  float64 `json:"reversion_strength" yaml:"reversion_strength"`
	PressureFactor     float64 `json:"pressure_factor" yaml:"pressure_factor"`
	EventScale         float64 `json:"event_scale" yaml:"event_scale"`
	MaxMoveFactor      float64 `json:"max_move_factor" yaml:"max_move_factor"`
	Seed               uint64  `json:"seed,omitempty" yaml:"seed,omitempty"` // 0 picks a random seed
}

// EventsConfig controls market event timing
type EventsConfig struct {
	MinInterval string `json:"min_interval" yaml:"min_interval"`
	MaxInterval string `json:"max_interval" yaml:"max_interval"`
	Lifetime    string `json:"lifetime" yaml:"lifetime"`
}

// TradingConfig contains the user-selectable trade sizes and house rules
type TradingConfig struct {
	Leverages       []int     `json:"leverages" yaml:"leverages"`
	Amounts         []float64 `json:"amounts" yaml:"amounts"`
	DefaultLeverage int       `json:"default_leverage" yaml:"default_leverage"`
	DefaultAmount   float64   `json:"default_amount" yaml:"default_amount"`
	ImpactThreshold float64   `json:"impact_threshold" yaml:"impact_threshold"`
	ImpactDelta     float64   `json:"impact_delta" yaml:"impact_delta"`
	MaxHistory      int       `json:"max_history" yaml:"max_history"`
}

// StorageConfig selects the document backend
type StorageConfig struct {
	Type             string `json:"type" yaml:"type"` // memory, file, sqlite, redis, postgres
	Path             string `json:"path,omitempty" yaml:"path,omitempty"`
	Key              string `json:"key,omitempty" yaml:"key,omitempty"`
	URL              string `json:"url,omitempty" yaml:"url,omitempty"`
	AutosaveInterval string `json:"autosave_interval" yaml:"autosave_interval"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level    string `json:"level" yaml:"level"`
	Encoding string `json:"encoding" yaml:"encoding"` // console or json
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"` // e.g. ":9090"; empty disables
}

// LoadFromFile loads configuration from a file (YAML or JSON).
// Missing fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.StartingBalance <= 0 {
		return fmt.Errorf("account.starting_balance must be positive")
	}

	if len(c.Assets) == 0 {
		return fmt.Errorf("at least one asset is required")
	}
	seen := map[string]bool{}
	for _, a := range c.Assets {
		if a.Symbol == "" {
			return fmt.Errorf("asset symbol is required")
		}
		key := strings.ToUpper(a.Symbol)
		if seen[key] {
			return fmt.Errorf("duplicate asset: %s", a.Symbol)
		}
		seen[key] = true
		if a.BasePrice <= 0 {
			return fmt.Errorf("asset %s: base_price must be positive", a.Symbol)
		}
		if a.Volatility <= 0 {
			return fmt.Errorf("asset %s: volatility must be positive", a.Symbol)
		}
		if a.Decimals < 0 || a.Decimals > 12 {
			return fmt.Errorf("asset %s: decimals must be between 0 and 12", a.Symbol)
		}
	}

	m := c.Market
	if m.Window < 2 {
		return fmt.Errorf("market.window must be at least 2")
	}
	if m.SeedPoints < 1 {
		return fmt.Errorf("market.seed_points must be positive")
	}
	if m.MinVolatility <= 0 || m.MaxVolatility < m.MinVolatility {
		return fmt.Errorf("market volatility bounds must satisfy 0 < min_volatility <= max_volatility")
	}
	if m.ReversionThreshold < 0 || m.ReversionStrength < 0 || m.PressureFactor < 0 || m.EventScale < 0 || m.MaxMoveFactor < 0 {
		return fmt.Errorf("market factors must not be negative")
	}
	if _, err := positiveDuration("market.tick_interval", m.TickInterval); err != nil {
		return err
	}

	if _, err := c.EventsConfig(); err != nil {
		return err
	}

	t := c.Trading
	if len(t.Leverages) == 0 {
		return fmt.Errorf("trading.leverages is required")
	}
	for _, l := range t.Leverages {
		if l < 1 {
			return fmt.Errorf("trading.leverages must all be at least 1")
		}
	}
	if !slices.Contains(t.Leverages, t.DefaultLeverage) {
		return fmt.Errorf("trading.default_leverage must be one of trading.leverages")
	}
	for _, a := range t.Amounts {
		if a <= 0 {
			return fmt.Errorf("trading.amounts must all be positive")
		}
	}
	if t.DefaultAmount <= 0 {
		return fmt.Errorf("trading.default_amount must be positive")
	}
	if t.ImpactThreshold < 0 || t.ImpactDelta < 0 {
		return fmt.Errorf("trading impact settings must not be negative")
	}
	if t.MaxHistory < 1 {
		return fmt.Errorf("trading.max_history must be positive")
	}

	switch c.Storage.Type {
	case "memory", "file", "sqlite":
	case "redis", "postgres":
		if c.Storage.URL == "" {
			return fmt.Errorf("storage.url required for %s storage", c.Storage.Type)
		}
	default:
		return fmt.Errorf("storage.type must be one of memory, file, sqlite, redis, postgres")
	}
	if _, err := positiveDuration("storage.autosave_interval", c.Storage.AutosaveInterval); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Log.Encoding != "console" && c.Log.Encoding != "json" {
		return fmt.Errorf("log.encoding must be 'console' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			StartingBalance: 2000,
		},
		Assets: market.DefaultCatalog(),
		Market: MarketConfig{
			Window:             50,
			SeedPoints:         50,
			TickInterval:       "3s",
			MinVolatility:      0.01,
			MaxVolatility:      0.2,
			ReversionThreshold: 0.10,
			ReversionStrength:  0.01,
			PressureFactor:     0.5,
			EventScale:         0.1,
			MaxMoveFactor:      3,
		},
		Events: EventsConfig{
			MinInterval: "30s",
			MaxInterval: "60s",
			Lifetime:    "30s",
		},
		Trading: TradingConfig{
			Leverages:       []int{1, 2, 5, 10, 20, 50, 100},
			Amounts:         []float64{10, 50, 100, 500, 1000},
			DefaultLeverage: 2,
			DefaultAmount:   100,
			ImpactThreshold: 500,
			ImpactDelta:     0.01,
			MaxHistory:      100,
		},
		Storage: StorageConfig{
			Type:             "file",
			Path:             "./levgame.json",
			AutosaveInterval: "30s",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./levgame-journal.db",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Catalog returns the configured assets.
func (c *Config) Catalog() market.Catalog {
	return market.Catalog(c.Assets)
}

// MarketParams maps the market section onto the price walk.
func (c *Config) MarketParams() market.Params {
	m := c.Market
	return market.Params{
		Window:             m.Window,
		MinVolatility:      m.MinVolatility,
		MaxVolatility:      m.MaxVolatility,
		ReversionThreshold: m.ReversionThreshold,
		ReversionStrength:  m.ReversionStrength,
		PressureFactor:     m.PressureFactor,
		EventScale:         m.EventScale,
		MaxMoveFactor:      m.MaxMoveFactor,
	}
}

func (c *Config) TickInterval() time.Duration {
	d, _ := positiveDuration("market.tick_interval", c.Market.TickInterval)
	return d
}

func (c *Config) AutosaveInterval() time.Duration {
	d, _ := positiveDuration("storage.autosave_interval", c.Storage.AutosaveInterval)
	return d
}

// EventsConfig parses the events section.
func (c *Config) EventsConfig() (events.Config, error) {
	minI, err := positiveDuration("events.min_interval", c.Events.MinInterval)
	if err != nil {
		return events.Config{}, err
	}
	maxI, err := positiveDuration("events.max_interval", c.Events.MaxInterval)
	if err != nil {
		return events.Config{}, err
	}
	if maxI < minI {
		return events.Config{}, fmt.Errorf("events.max_interval must not be shorter than events.min_interval")
	}
	life, err := positiveDuration("events.lifetime", c.Events.Lifetime)
	if err != nil {
		return events.Config{}, err
	}
	return events.Config{MinInterval: minI, MaxInterval: maxI, Lifetime: life}, nil
}

func (c *Config) LedgerConfig() ledger.Config {
	return ledger.Config{
		ImpactThreshold: c.Trading.ImpactThreshold,
		ImpactDelta:     c.Trading.ImpactDelta,
		MaxHistory:      c.Trading.MaxHistory,
	}
}

func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Type: c.Storage.Type,
		Path: c.Storage.Path,
		Key:  c.Storage.Key,
		URL:  c.Storage.URL,
	}
}

func positiveDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return d, nil
}
