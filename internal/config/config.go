// Package config provides configuration management for the backtester.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	apperrors "backchain/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Trading TradingConfig `mapstructure:"trading"`
	Market  MarketConfig  `mapstructure:"market"`
	Risk    RiskConfig    `mapstructure:"risk"`
	Data    DataConfig    `mapstructure:"data"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TradingConfig holds the run parameters.
type TradingConfig struct {
	InitialCash float64  `mapstructure:"initial_cash"`
	AssetClass  string   `mapstructure:"asset_class"` // "stocks", "commodities"
	Universe    []string `mapstructure:"universe"`
	Rebalance   string   `mapstructure:"rebalance"` // "first_of_month", "daily"
}

// MarketConfig holds the estimation-window parameters.
type MarketConfig struct {
	WindowDays int `mapstructure:"window_days"`
}

// RiskConfig holds risk management configuration.
type RiskConfig struct {
	StopLoss float64 `mapstructure:"stop_loss"` // loss fraction; 0 disables
}

// DataConfig selects the price source.
type DataConfig struct {
	CSVPath   string `mapstructure:"csv_path"` // takes precedence when set
	BaseURL   string `mapstructure:"base_url"`
	CachePath string `mapstructure:"cache_path"` // "" disables the cache
}

// LedgerConfig holds the audit-chain storage location.
type LedgerConfig struct {
	Dir string `mapstructure:"dir"`
}

// OutputConfig holds the run-artifact location.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/backchain"
	}
	return filepath.Join(home, ".config", "backchain")
}

// Load loads configuration from the specified directory, falling back to
// defaults when no config file exists. If configDir is empty, the default
// config directory is used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("trading.initial_cash", 1_000_000.0)
	v.SetDefault("trading.asset_class", "stocks")
	v.SetDefault("trading.universe", DefaultStockUniverse)
	v.SetDefault("trading.rebalance", "first_of_month")
	v.SetDefault("market.window_days", 360)
	v.SetDefault("risk.stop_loss", 0.1)
	v.SetDefault("data.base_url", "https://stooq.com/q/d/l/")
	v.SetDefault("data.cache_path", filepath.Join(configDir, "bars.db"))
	v.SetDefault("ledger.dir", filepath.Join(configDir, "ledger"))
	v.SetDefault("output.dir", "backtests")
	v.SetDefault("logging.level", "info")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKCHAIN_INITIAL_CASH"); v != "" {
		if cash, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trading.InitialCash = cash
		}
	}
	if v := os.Getenv("BACKCHAIN_ASSET_CLASS"); v != "" {
		cfg.Trading.AssetClass = v
	}
	if v := os.Getenv("BACKCHAIN_DATA_URL"); v != "" {
		cfg.Data.BaseURL = v
	}
	if v := os.Getenv("BACKCHAIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Trading.InitialCash <= 0 {
		return fmt.Errorf("%w: trading.initial_cash must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Trading.AssetClass != "stocks" && c.Trading.AssetClass != "commodities" {
		return fmt.Errorf("%w: trading.asset_class must be stocks or commodities", apperrors.ErrConfigInvalid)
	}
	if c.Trading.Rebalance != "first_of_month" && c.Trading.Rebalance != "daily" {
		return fmt.Errorf("%w: trading.rebalance must be first_of_month or daily", apperrors.ErrConfigInvalid)
	}
	if c.Market.WindowDays <= 0 {
		return fmt.Errorf("%w: market.window_days must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Risk.StopLoss < 0 || c.Risk.StopLoss >= 1 {
		return fmt.Errorf("%w: risk.stop_loss must be in [0, 1)", apperrors.ErrConfigInvalid)
	}
	return nil
}
