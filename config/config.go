package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	StrategyConfig StrategyConfig `json:"strategy"`
	BacktestConfig BacktestConfig `json:"backtest"`
	RunnerConfig   RunnerConfig   `json:"runner"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	LoggingConfig  LoggingConfig  `json:"logging"`
}

// StrategyConfig holds the entry rule thresholds and toggles.
type StrategyConfig struct {
	TransitionLookback      int     `json:"transition_lookback"`         // Bars to scan for a blue-to-green flip
	LeadRedMinBars          int     `json:"lead_red_min_bars"`           // Leading red window lower bound
	LeadRedMaxBars          int     `json:"lead_red_max_bars"`           // Leading red window upper bound
	LeadingMomentumLookback int     `json:"leading_momentum_lookback"`   // MACD histogram flip lookback
	HigherLowMinDiffPct     float64 `json:"higher_low_min_diff_pct"`     // Minimum rise between swing lows
	HigherLowMaxBarsBetween int     `json:"higher_low_max_bars_between"` // Max bar gap between swing lows
	SwingLookbackForLow     int     `json:"swing_lookback_for_low"`      // Swing detection window
	WWindowBars             int     `json:"w_window_bars"`               // Pattern classification window
	EnableLeadingSignal     bool    `json:"enable_leading_signal"`
	EnableWShapeFilter      bool    `json:"enable_w_shape_filter"`
}

// BacktestConfig holds simulation parameters.
type BacktestConfig struct {
	InitialCapital float64 `json:"initial_capital"`
	BudgetFraction float64 `json:"budget_fraction"` // Fraction of initial capital allocated per trade
	TrailingStop   bool    `json:"trailing_stop"`
	RSIPeriod      int     `json:"rsi_period"`
	Timeframe      string  `json:"timeframe"` // e.g., "15m", "1h", "1d"
	DataDir        string  `json:"data_dir"`  // Directory with per-pair candle files
}

// RunnerConfig controls the concurrent multi-pair runner.
type RunnerConfig struct {
	WorkerCount int      `json:"worker_count"` // Concurrent worker count
	Pairs       []string `json:"pairs"`        // Empty = all pairs found in data dir
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for result caching.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
	CacheTTL int    `json:"cache_ttl"` // Seconds a cached result stays fresh
}

type LoggingConfig struct {
	Level  string `json:"level"`  // DEBUG, INFO, WARN, ERROR
	Output string `json:"output"` // stdout, stderr, or file path
	Pretty bool   `json:"pretty"` // Human-readable console output instead of JSON
}

// DefaultConfig returns the strategy and simulation defaults.
func DefaultConfig() *Config {
	return &Config{
		StrategyConfig: StrategyConfig{
			TransitionLookback:      5,
			LeadRedMinBars:          1,
			LeadRedMaxBars:          20,
			LeadingMomentumLookback: 3,
			HigherLowMinDiffPct:     0.002,
			HigherLowMaxBarsBetween: 20,
			SwingLookbackForLow:     50,
			WWindowBars:             30,
			EnableLeadingSignal:     true,
			EnableWShapeFilter:      true,
		},
		BacktestConfig: BacktestConfig{
			InitialCapital: 10000,
			BudgetFraction: 0.01,
			TrailingStop:   true,
			RSIPeriod:      14,
			Timeframe:      "1d",
			DataDir:        "data",
		},
		RunnerConfig: RunnerConfig{
			WorkerCount: 4,
		},
		DatabaseConfig: DatabaseConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			User:     "cdc_bot",
			Password: "cdc_bot_password",
			Database: "cdc_bot",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 3600,
		},
		LoggingConfig: LoggingConfig{
			Level:  "INFO",
			Output: "stdout",
			Pretty: false,
		},
	}
}

// Load reads config.json when present, applies environment overrides and
// validates the result.
func Load() (*Config, error) {
	return LoadFrom("config.json")
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(filename string) (*Config, error) {
	cfg := DefaultConfig()

	// Base config from file; defaults stand when the file is missing
	if err := loadFromFile(filename, cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	// Environment variable overrides take precedence
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFromFile(filename string, cfg *Config) error {
	file, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(file, cfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Strategy config
	cfg.StrategyConfig.TransitionLookback = getEnvIntOrDefault("STRATEGY_TRANSITION_LOOKBACK", cfg.StrategyConfig.TransitionLookback)
	cfg.StrategyConfig.LeadRedMinBars = getEnvIntOrDefault("STRATEGY_LEAD_RED_MIN_BARS", cfg.StrategyConfig.LeadRedMinBars)
	cfg.StrategyConfig.LeadRedMaxBars = getEnvIntOrDefault("STRATEGY_LEAD_RED_MAX_BARS", cfg.StrategyConfig.LeadRedMaxBars)
	cfg.StrategyConfig.LeadingMomentumLookback = getEnvIntOrDefault("STRATEGY_MOMENTUM_LOOKBACK", cfg.StrategyConfig.LeadingMomentumLookback)
	cfg.StrategyConfig.HigherLowMinDiffPct = getEnvFloatOrDefault("STRATEGY_HIGHER_LOW_MIN_DIFF_PCT", cfg.StrategyConfig.HigherLowMinDiffPct)
	cfg.StrategyConfig.HigherLowMaxBarsBetween = getEnvIntOrDefault("STRATEGY_HIGHER_LOW_MAX_BARS", cfg.StrategyConfig.HigherLowMaxBarsBetween)
	cfg.StrategyConfig.SwingLookbackForLow = getEnvIntOrDefault("STRATEGY_SWING_LOOKBACK", cfg.StrategyConfig.SwingLookbackForLow)
	cfg.StrategyConfig.WWindowBars = getEnvIntOrDefault("STRATEGY_W_WINDOW_BARS", cfg.StrategyConfig.WWindowBars)
	cfg.StrategyConfig.EnableLeadingSignal = getEnvBoolOrDefault("STRATEGY_ENABLE_LEADING_SIGNAL", cfg.StrategyConfig.EnableLeadingSignal)
	cfg.StrategyConfig.EnableWShapeFilter = getEnvBoolOrDefault("STRATEGY_ENABLE_W_SHAPE_FILTER", cfg.StrategyConfig.EnableWShapeFilter)

	// Backtest config
	cfg.BacktestConfig.InitialCapital = getEnvFloatOrDefault("BACKTEST_INITIAL_CAPITAL", cfg.BacktestConfig.InitialCapital)
	cfg.BacktestConfig.BudgetFraction = getEnvFloatOrDefault("BACKTEST_BUDGET_FRACTION", cfg.BacktestConfig.BudgetFraction)
	cfg.BacktestConfig.TrailingStop = getEnvBoolOrDefault("BACKTEST_TRAILING_STOP", cfg.BacktestConfig.TrailingStop)
	cfg.BacktestConfig.RSIPeriod = getEnvIntOrDefault("BACKTEST_RSI_PERIOD", cfg.BacktestConfig.RSIPeriod)
	cfg.BacktestConfig.Timeframe = getEnvOrDefault("BACKTEST_TIMEFRAME", cfg.BacktestConfig.Timeframe)
	cfg.BacktestConfig.DataDir = getEnvOrDefault("BACKTEST_DATA_DIR", cfg.BacktestConfig.DataDir)

	// Runner config
	cfg.RunnerConfig.WorkerCount = getEnvIntOrDefault("RUNNER_WORKER_COUNT", cfg.RunnerConfig.WorkerCount)

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvBoolOrDefault("DB_ENABLED", cfg.DatabaseConfig.Enabled)
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", cfg.RedisConfig.PoolSize)
	cfg.RedisConfig.CacheTTL = getEnvIntOrDefault("REDIS_CACHE_TTL", cfg.RedisConfig.CacheTTL)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.Pretty = getEnvBoolOrDefault("LOG_PRETTY", cfg.LoggingConfig.Pretty)
}

// Validate rejects configs that would make the simulation meaningless.
func (c *Config) Validate() error {
	s := c.StrategyConfig
	if s.TransitionLookback < 1 {
		return fmt.Errorf("strategy: transition_lookback must be at least 1, got %d", s.TransitionLookback)
	}
	if s.LeadRedMinBars < 1 {
		return fmt.Errorf("strategy: lead_red_min_bars must be at least 1, got %d", s.LeadRedMinBars)
	}
	if s.LeadRedMaxBars < s.LeadRedMinBars {
		return fmt.Errorf("strategy: lead_red_max_bars (%d) must be >= lead_red_min_bars (%d)", s.LeadRedMaxBars, s.LeadRedMinBars)
	}
	if s.LeadingMomentumLookback < 1 {
		return fmt.Errorf("strategy: leading_momentum_lookback must be at least 1, got %d", s.LeadingMomentumLookback)
	}
	if s.HigherLowMinDiffPct < 0 {
		return fmt.Errorf("strategy: higher_low_min_diff_pct must be non-negative, got %g", s.HigherLowMinDiffPct)
	}
	if s.HigherLowMaxBarsBetween < 1 {
		return fmt.Errorf("strategy: higher_low_max_bars_between must be at least 1, got %d", s.HigherLowMaxBarsBetween)
	}
	if s.SwingLookbackForLow < 1 {
		return fmt.Errorf("strategy: swing_lookback_for_low must be at least 1, got %d", s.SwingLookbackForLow)
	}
	if s.WWindowBars < 1 {
		return fmt.Errorf("strategy: w_window_bars must be at least 1, got %d", s.WWindowBars)
	}

	b := c.BacktestConfig
	if b.InitialCapital < 0 {
		return fmt.Errorf("backtest: initial_capital must be non-negative, got %g", b.InitialCapital)
	}
	if b.BudgetFraction <= 0 || b.BudgetFraction > 1 {
		return fmt.Errorf("backtest: budget_fraction must be in (0, 1], got %g", b.BudgetFraction)
	}
	if b.RSIPeriod < 1 {
		return fmt.Errorf("backtest: rsi_period must be at least 1, got %d", b.RSIPeriod)
	}

	if c.RunnerConfig.WorkerCount < 1 {
		return fmt.Errorf("runner: worker_count must be at least 1, got %d", c.RunnerConfig.WorkerCount)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := DefaultConfig()
	config.RunnerConfig.Pairs = []string{"BTCUSDT", "ETHUSDT"}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
