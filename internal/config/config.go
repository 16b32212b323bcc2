// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Binance describes futures connectivity. Credentials are only required when
// live trading or account sync is enabled; env vars override the file values.
type Binance struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// Feed selects the tick source and its tuning.
type Feed struct {
	Provider       string `yaml:"provider"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

// Trading groups the strategy and sizing knobs applied uniformly across symbols.
type Trading struct {
	Symbols               []string `yaml:"symbols"`
	CandleLookback        int      `yaml:"candle_lookback"`
	TakeProfitPct         float64  `yaml:"take_profit_pct"`
	StopLossPct           float64  `yaml:"stop_loss_pct"`
	MinVolatilityPct      float64  `yaml:"min_volatility_pct"`
	MaxPositionsPerSymbol int      `yaml:"max_positions_per_symbol"`
	OrderSizeUSD          float64  `yaml:"order_size_usd"`
	Leverage              float64  `yaml:"leverage"`
	MinTradeIntervalSec   int      `yaml:"min_trade_interval_sec"`
	StartingBalance       float64  `yaml:"starting_balance"`
	Live                  bool     `yaml:"live"`
	LiveBalanceFraction   float64  `yaml:"live_balance_fraction"`
	StatusIntervalSec     int      `yaml:"status_interval_sec"`
	AccountSyncSec        int      `yaml:"account_sync_sec"`
}

// Risk encodes the portfolio drawdown breaker.
type Risk struct {
	MaxDrawdownPct  float64 `yaml:"max_drawdown_pct"`
	CooldownMinutes int     `yaml:"cooldown_minutes"`
}

// Notify configures the Telegram channel. Empty token disables it.
type Notify struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

// Storage configures trade/equity persistence. Empty values disable a sink.
type Storage struct {
	TradesPath   string `yaml:"trades_path"`
	InfluxURL    string `yaml:"influx_url"`
	InfluxToken  string `yaml:"influx_token"`
	InfluxOrg    string `yaml:"influx_org"`
	InfluxBucket string `yaml:"influx_bucket"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Binance Binance `yaml:"binance"`
	Feed    Feed    `yaml:"feed"`
	Trading Trading `yaml:"trading"`
	Risk    Risk    `yaml:"risk"`
	Notify  Notify  `yaml:"notify"`
	Storage Storage `yaml:"storage"`
}

// Load reads a YAML file from disk, hydrates a Config struct, applies
// environment overrides and defaults, then validates.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyEnv()
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyEnv lets secrets live outside the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Binance.APISecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notify.TelegramChatID = id
		}
	}
	if v := os.Getenv("INFLUXDB_TOKEN"); v != "" {
		c.Storage.InfluxToken = v
	}
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "trendbot"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Feed.Provider == "" {
		c.Feed.Provider = "stub"
	}
	if c.Trading.CandleLookback <= 0 {
		c.Trading.CandleLookback = 50
	}
	if c.Trading.TakeProfitPct <= 0 {
		c.Trading.TakeProfitPct = 1.0
	}
	if c.Trading.StopLossPct <= 0 {
		c.Trading.StopLossPct = 2.0
	}
	if c.Trading.MaxPositionsPerSymbol <= 0 {
		c.Trading.MaxPositionsPerSymbol = 1
	}
	if c.Trading.OrderSizeUSD <= 0 {
		c.Trading.OrderSizeUSD = 100
	}
	if c.Trading.Leverage <= 0 {
		c.Trading.Leverage = 1
	}
	if c.Trading.StartingBalance <= 0 {
		c.Trading.StartingBalance = 1000
	}
	if c.Trading.StatusIntervalSec <= 0 {
		c.Trading.StatusIntervalSec = 300
	}
	if c.Risk.MaxDrawdownPct <= 0 {
		c.Risk.MaxDrawdownPct = 10
	}
}

// Validate rejects configurations the engine cannot safely run with.
func (c *Config) Validate() error {
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("config: at least one trading symbol is required")
	}
	if c.Trading.Live && (c.Binance.APIKey == "" || c.Binance.APISecret == "") {
		return fmt.Errorf("config: live trading requires binance credentials")
	}
	if c.Trading.LiveBalanceFraction < 0 || c.Trading.LiveBalanceFraction > 1 {
		return fmt.Errorf("config: live_balance_fraction must be within [0, 1]")
	}
	return nil
}

// PollInterval converts the feed poll cadence to a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Feed.PollIntervalMs) * time.Millisecond
}

// MinTradeInterval converts the inter-trade gate to a duration.
func (c *Config) MinTradeInterval() time.Duration {
	return time.Duration(c.Trading.MinTradeIntervalSec) * time.Second
}

// StatusInterval converts the status cadence to a duration.
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Trading.StatusIntervalSec) * time.Second
}

// AccountSyncInterval converts the account sync cadence to a duration.
func (c *Config) AccountSyncInterval() time.Duration {
	return time.Duration(c.Trading.AccountSyncSec) * time.Second
}

// RiskCooldown converts the breaker cooldown to a duration.
func (c *Config) RiskCooldown() time.Duration {
	return time.Duration(c.Risk.CooldownMinutes) * time.Minute
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
