package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Bitkub   Bitkub   `mapstructure:"bitkub"`
	Telegram Telegram `mapstructure:"telegram"`
	Trading  Trading  `mapstructure:"trading"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Bitkub holds the configuration for the Bitkub API.
type Bitkub struct {
	ApiKey         string  `mapstructure:"api_key"`
	ApiSecret      string  `mapstructure:"api_secret"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Telegram holds the configuration for the Telegram notification channel.
// A missing token disables notifications without disabling the bot.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Server holds the configuration for the dashboard web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the sqlite database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Trading holds every strategy parameter. The decision engine receives this
// struct at construction and never reads the environment itself.
type Trading struct {
	// TickerSymbol is the public market-data symbol, e.g. "THB_BTC".
	// TradeSymbol is the order-submission symbol, e.g. "btc_thb".
	TickerSymbol string `mapstructure:"ticker_symbol"`
	TradeSymbol  string `mapstructure:"trade_symbol"`
	BaseAsset    string `mapstructure:"base_asset"`
	QuoteAsset   string `mapstructure:"quote_asset"`

	// Strategy selects the decision engine variant: "grid", "rsi" or
	// "rsi-stateless".
	Strategy string `mapstructure:"strategy"`

	FeeRate float64 `mapstructure:"fee_rate"`

	// RSI strategy parameters.
	TradeAmount    float64 `mapstructure:"trade_amount"`     // quote units per buy
	RsiResolution  int     `mapstructure:"rsi_resolution"`   // candle size, minutes
	RsiLookback    int     `mapstructure:"rsi_lookback"`     // closes to fetch
	RsiBuyLevel    float64 `mapstructure:"rsi_buy_level"`    // buy at or below
	TakeProfitPct  float64 `mapstructure:"take_profit_pct"`  // e.g. 0.03
	StopLossPct    float64 `mapstructure:"stop_loss_pct"`    // warn-only threshold
	SlippagePct    float64 `mapstructure:"slippage_pct"`     // limit price headroom on buys
	DustThreshold  float64 `mapstructure:"dust_threshold"`   // min base balance that counts as holding
	HistoryLookups int     `mapstructure:"history_lookups"`  // order-history rows scanned for entry price

	// Grid strategy parameters.
	Budget          float64 `mapstructure:"budget"`            // total quote committed to the grid
	GridLevels      int     `mapstructure:"grid_levels"`       // number of ladder levels, >= 2
	GridRange       float64 `mapstructure:"grid_range"`        // symmetric range fraction, e.g. 0.02
	StepProfitPct   float64 `mapstructure:"step_profit_pct"`   // per-rotation profit step
	MinOrderAmount  float64 `mapstructure:"min_order_amount"`  // exchange minimum per order, quote units
	MaxOrderAgeMins int     `mapstructure:"max_order_age_min"` // cancel open buys older than this; 0 disables

	// TickInterval runs the engine as an internal loop when > 0 (seconds).
	// 0 means one decision cycle per process invocation (external scheduler).
	TickInterval int `mapstructure:"tick_interval"`

	DryRun bool `mapstructure:"dry_run"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("bitkub.rate_limit", 10) // requests per second
	viper.SetDefault("bitkub.rate_limit_burst", 5)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("database.dsn", "trader.db")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("trading.strategy", "rsi")
	viper.SetDefault("trading.fee_rate", 0.0025)
	viper.SetDefault("trading.rsi_resolution", 15)
	viper.SetDefault("trading.rsi_lookback", 30)
	viper.SetDefault("trading.rsi_buy_level", 30)
	viper.SetDefault("trading.take_profit_pct", 0.03)
	viper.SetDefault("trading.stop_loss_pct", 0.05)
	viper.SetDefault("trading.slippage_pct", 0.005)
	viper.SetDefault("trading.dust_threshold", 0.0001)
	viper.SetDefault("trading.history_lookups", 20)
	viper.SetDefault("trading.step_profit_pct", 0.012)
	viper.SetDefault("trading.min_order_amount", 10)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

// Validate rejects parameter combinations the strategies cannot run with.
// These are operator errors and must fail the process, not be skipped.
func (c *Config) Validate() error {
	if c.Bitkub.ApiKey == "" || c.Bitkub.ApiSecret == "" {
		return fmt.Errorf("bitkub api credentials are not configured")
	}
	if c.Trading.TradeSymbol == "" || c.Trading.TickerSymbol == "" {
		return fmt.Errorf("trading symbols are not configured")
	}
	switch c.Trading.Strategy {
	case "grid":
		if c.Trading.GridLevels < 2 {
			return fmt.Errorf("grid_levels must be at least 2, got %d", c.Trading.GridLevels)
		}
		if c.Trading.Budget <= 0 {
			return fmt.Errorf("grid budget must be positive")
		}
		if c.Trading.GridRange <= 0 {
			return fmt.Errorf("grid_range must be positive")
		}
	case "rsi", "rsi-stateless":
		if c.Trading.TradeAmount <= 0 {
			return fmt.Errorf("trade_amount must be positive")
		}
	default:
		return fmt.Errorf("unknown strategy %q", c.Trading.Strategy)
	}
	return nil
}
