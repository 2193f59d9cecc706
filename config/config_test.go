package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDefaultConfigValid tests that the defaults pass validation and carry
// the documented strategy values.
func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected valid defaults, got %v", err)
	}
	if cfg.StrategyConfig.WWindowBars != 30 {
		t.Errorf("Expected w_window_bars 30, got %d", cfg.StrategyConfig.WWindowBars)
	}
	if cfg.BacktestConfig.InitialCapital != 10000 {
		t.Errorf("Expected initial capital 10000, got %f", cfg.BacktestConfig.InitialCapital)
	}
	if cfg.BacktestConfig.Timeframe != "1d" {
		t.Errorf("Expected timeframe 1d, got %s", cfg.BacktestConfig.Timeframe)
	}
	if cfg.RunnerConfig.WorkerCount != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.RunnerConfig.WorkerCount)
	}
}

// TestLoadFromMissingFile tests that a missing config file falls back to the
// defaults without error.
func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got %v", err)
	}
	if cfg.BacktestConfig.InitialCapital != 10000 {
		t.Errorf("Expected initial capital 10000, got %f", cfg.BacktestConfig.InitialCapital)
	}
}

// TestLoadFromFileOverrides tests that a partial config file overrides only
// the fields it names.
func TestLoadFromFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"backtest": {"initial_capital": 5000}, "strategy": {"w_window_bars": 40}}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Expected config to load, got %v", err)
	}
	if cfg.BacktestConfig.InitialCapital != 5000 {
		t.Errorf("Expected initial capital 5000, got %f", cfg.BacktestConfig.InitialCapital)
	}
	if cfg.StrategyConfig.WWindowBars != 40 {
		t.Errorf("Expected w_window_bars 40, got %d", cfg.StrategyConfig.WWindowBars)
	}
	// Untouched fields keep their defaults
	if cfg.BacktestConfig.BudgetFraction != 0.01 {
		t.Errorf("Expected budget fraction 0.01, got %f", cfg.BacktestConfig.BudgetFraction)
	}
}

// TestLoadFromInvalidJSON tests that a malformed config file is rejected.
func TestLoadFromInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("Expected an error for malformed JSON")
	}
}

// TestEnvOverrides tests that environment variables take precedence over the
// defaults.
func TestEnvOverrides(t *testing.T) {
	t.Setenv("BACKTEST_INITIAL_CAPITAL", "2500")
	t.Setenv("BACKTEST_TRAILING_STOP", "false")
	t.Setenv("STRATEGY_TRANSITION_LOOKBACK", "8")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Expected config to load, got %v", err)
	}
	if cfg.BacktestConfig.InitialCapital != 2500 {
		t.Errorf("Expected initial capital 2500, got %f", cfg.BacktestConfig.InitialCapital)
	}
	if cfg.BacktestConfig.TrailingStop {
		t.Error("Expected trailing stop disabled")
	}
	if cfg.StrategyConfig.TransitionLookback != 8 {
		t.Errorf("Expected transition lookback 8, got %d", cfg.StrategyConfig.TransitionLookback)
	}
	if cfg.LoggingConfig.Level != "DEBUG" {
		t.Errorf("Expected level DEBUG, got %s", cfg.LoggingConfig.Level)
	}
}

// TestValidateRejectsBadBudget tests the budget fraction bounds.
func TestValidateRejectsBadBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BacktestConfig.BudgetFraction = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected a validation error")
	}
	if !strings.Contains(err.Error(), "budget_fraction") {
		t.Errorf("Expected a budget_fraction error, got %v", err)
	}

	cfg.BacktestConfig.BudgetFraction = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("Expected an error for a fraction above 1")
	}
}

// TestValidateRejectsBadWorkerCount tests the worker count floor.
func TestValidateRejectsBadWorkerCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RunnerConfig.WorkerCount = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected a validation error")
	}
	if !strings.Contains(err.Error(), "worker_count") {
		t.Errorf("Expected a worker_count error, got %v", err)
	}
}

// TestGenerateSampleConfig tests that the generated sample loads back with
// the example pairs.
func TestGenerateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.json")
	if err := GenerateSampleConfig(path); err != nil {
		t.Fatalf("Expected a sample config, got %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Expected the sample to load, got %v", err)
	}
	if len(cfg.RunnerConfig.Pairs) != 2 || cfg.RunnerConfig.Pairs[0] != "BTCUSDT" || cfg.RunnerConfig.Pairs[1] != "ETHUSDT" {
		t.Errorf("Expected the example pairs, got %v", cfg.RunnerConfig.Pairs)
	}
}
