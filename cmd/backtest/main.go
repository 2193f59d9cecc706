package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"cdc-zone-bot/config"
	"cdc-zone-bot/internal/analysis"
	"cdc-zone-bot/internal/backtest"
	"cdc-zone-bot/internal/cache"
	"cdc-zone-bot/internal/database"
	"cdc-zone-bot/internal/logging"
	"cdc-zone-bot/internal/market"
	"cdc-zone-bot/internal/rules"
	"cdc-zone-bot/internal/runner"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to config file")
	pairFlag := flag.String("pair", "", "Run a single pair (default: all pairs in the data dir)")
	timeframeFlag := flag.String("timeframe", "", "Override the configured timeframe")
	dataDirFlag := flag.String("data", "", "Override the configured data directory")
	verbose := flag.Bool("v", false, "Print the closed trade list per pair")
	sampleConfig := flag.Bool("sample-config", false, "Write config.sample.json and exit")
	flag.Parse()

	if *sampleConfig {
		if err := config.GenerateSampleConfig("config.sample.json"); err != nil {
			log.Fatalf("Failed to write sample config: %v", err)
		}
		fmt.Println("✅ Wrote config.sample.json")
		return
	}

	// Try multiple locations for .env
	exe, _ := os.Executable()
	exeDir := filepath.Dir(exe)
	godotenv.Load()
	godotenv.Load(".env")
	godotenv.Load(filepath.Join(exeDir, ".env"))

	// Load configuration
	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Output: cfg.LoggingConfig.Output,
		Pretty: cfg.LoggingConfig.Pretty,
	})

	timeframe := market.Timeframe(cfg.BacktestConfig.Timeframe)
	if *timeframeFlag != "" {
		timeframe = market.Timeframe(*timeframeFlag)
	}
	dataDir := cfg.BacktestConfig.DataDir
	if *dataDirFlag != "" {
		dataDir = *dataDirFlag
	}
	pairs := cfg.RunnerConfig.Pairs
	if *pairFlag != "" {
		pairs = []string{strings.ToUpper(*pairFlag)}
	}

	engineCfg := backtest.Config{
		Rules: rules.Params{
			TransitionLookback:      cfg.StrategyConfig.TransitionLookback,
			LeadRedMinBars:          cfg.StrategyConfig.LeadRedMinBars,
			LeadRedMaxBars:          cfg.StrategyConfig.LeadRedMaxBars,
			LeadingMomentumLookback: cfg.StrategyConfig.LeadingMomentumLookback,
			HigherLowMinDiffPct:     cfg.StrategyConfig.HigherLowMinDiffPct,
			HigherLowMaxBarsBetween: cfg.StrategyConfig.HigherLowMaxBarsBetween,
			SwingLookbackForLow:     cfg.StrategyConfig.SwingLookbackForLow,
			WWindowBars:             cfg.StrategyConfig.WWindowBars,
		},
		EnableLeadingSignal: cfg.StrategyConfig.EnableLeadingSignal,
		EnableWShapeFilter:  cfg.StrategyConfig.EnableWShapeFilter,
		InitialCapital:      cfg.BacktestConfig.InitialCapital,
		BudgetFraction:      cfg.BacktestConfig.BudgetFraction,
		TrailingStop:        cfg.BacktestConfig.TrailingStop,
		RSIPeriod:           cfg.BacktestConfig.RSIPeriod,
	}

	// Optional persistence: a missing database keeps results in memory only
	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Database unavailable, results stay in memory")
		} else {
			defer db.Close()

			migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := db.RunMigrations(migrateCtx)
			cancel()
			if err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
			repo = database.NewRepository(db)
		}
	}

	var results *cache.ResultCache
	if cfg.RedisConfig.Enabled {
		results, err = cache.NewResultCache(cfg.RedisConfig)
		if err != nil {
			log.Fatalf("Failed to initialize result cache: %v", err)
		}
		defer results.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("Interrupt received, stopping...")
		cancel()
	}()

	runnerCfg := runner.Config{
		WorkerCount: cfg.RunnerConfig.WorkerCount,
		Timeframe:   timeframe,
		DataDir:     dataDir,
		Pairs:       pairs,
	}

	batch, err := runner.NewRunner(engineCfg, runnerCfg, repo, results, logger).Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Batch backtest failed")
	}

	printBatchReport(batch)

	if *verbose || len(batch.Outcomes) == 1 {
		for _, outcome := range batch.Outcomes {
			if outcome.Err != nil {
				continue
			}
			printPairDetail(outcome, dataDir, timeframe)
		}
	}
}

func printBatchReport(batch *runner.BatchResult) {
	line := strings.Repeat("=", 80)

	fmt.Println(line)
	fmt.Printf("📊 CDC ZONE BACKTEST: %s, %d pairs in %v\n",
		batch.Timeframe, batch.PairsRun, batch.Duration.Round(time.Millisecond))
	fmt.Println(line)

	fmt.Println("┌────────────────┬────────┬──────────┬────────────┬────────────┬──────────────┐")
	fmt.Println("│ Pair           │ Trades │ Win Rate │ Return     │ CAGR       │ Final Equity │")
	fmt.Println("├────────────────┼────────┼──────────┼────────────┼────────────┼──────────────┤")

	var totalTrades int
	var totalIncome float64
	var failed []runner.Outcome

	for _, o := range batch.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
			continue
		}

		stats := o.Result.Stats
		emoji := "🟢"
		switch {
		case o.Result.InsufficientData:
			emoji = "⚠️"
		case stats.CumulativeReturnPct < 0:
			emoji = "🔴"
		}

		fmt.Printf("│ %s %-12s │ %6d │ %7.1f%% │ %+9.2f%% │ %+9.2f%% │ %12.2f │\n",
			emoji, truncate(o.Pair, 12),
			stats.TotalTrades, stats.WinRatePct,
			stats.CumulativeReturnPct, stats.CAGRPct, stats.FinalEquityValue)

		totalTrades += stats.TotalTrades
		totalIncome += stats.TotalIncome
	}

	fmt.Println("└────────────────┴────────┴──────────┴────────────┴────────────┴──────────────┘")
	fmt.Printf("   Total: %d trades, %+.2f income across %d pairs\n",
		totalTrades, totalIncome, batch.PairsRun-len(failed))

	for _, o := range failed {
		fmt.Printf("❌ %s: %v\n", o.Pair, o.Err)
	}
}

func printPairDetail(outcome runner.Outcome, dataDir string, tf market.Timeframe) {
	res := outcome.Result
	line := strings.Repeat("-", 80)

	fmt.Println()
	fmt.Println(line)
	fmt.Printf("🔍 %s\n", outcome.Pair)
	fmt.Println(line)

	if res.InsufficientData {
		fmt.Println("⚠️  Not enough candle data for this pair")
		return
	}

	// Entry rule snapshot at the end of the series
	fmt.Println("Entry rules at last candle:")
	printRule("CDC green on both timeframes", res.Rules.ColorTransition)
	printRule("Leading red behind green", res.Rules.LeadingRed)
	printRule("Leading signal", res.Rules.LeadingSignal)
	printRule("Base-building pattern", res.Rules.Pattern)

	if len(res.Signals) > 0 {
		fmt.Printf("RSI divergences: %d (last: %s over %d candles)\n",
			len(res.Signals),
			res.Signals[len(res.Signals)-1].Type,
			res.Signals[len(res.Signals)-1].DistanceCandles)
	}

	if len(res.Trades) > 0 {
		fmt.Println("\n┌────────────┬────────────┬────────────┬────────────┬──────────┬────────┬───────────────────────┐")
		fmt.Println("│ Entry      │ Exit       │ Entry Px   │ Exit Px    │ PnL      │ Days   │ Reason                │")
		fmt.Println("├────────────┼────────────┼────────────┼────────────┼──────────┼────────┼───────────────────────┤")
		for _, t := range res.Trades {
			fmt.Printf("│ %s │ %s │ %10.4f │ %10.4f │ %+7.2f%% │ %6.1f │ %-21s │\n",
				t.EntryTime.Format("2006-01-02"), t.ExitTime.Format("2006-01-02"),
				t.EntryPrice, t.ExitPrice, t.PnLPct, t.DurationDays,
				truncate(string(t.ExitReason), 21))
		}
		fmt.Println("└────────────┴────────────┴────────────┴────────────┴──────────┴────────┴───────────────────────┘")
	}

	printMarketContext(outcome.Pair, dataDir, tf)
}

func printRule(name string, r rules.Result) {
	mark := "❌"
	if r.Passed {
		mark = "✅"
	}
	fmt.Printf("  %s %-32s %s\n", mark, name, r.Reason)
}

// printMarketContext re-reads the pair's candles to summarize current
// conditions next to the historical result.
func printMarketContext(pair, dataDir string, tf market.Timeframe) {
	path := filepath.Join(dataDir, fmt.Sprintf("%s_%s.json", pair, tf))
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(dataDir, fmt.Sprintf("%s_%s.csv", pair, tf))
	}

	candles, err := market.LoadFile(path)
	if err != nil {
		return
	}

	mc := analysis.NewContextAnalyzer().Analyze(pair, candles)
	if mc == nil {
		return
	}

	trendEmoji := "⚪"
	switch mc.Trend {
	case analysis.TrendBullish:
		trendEmoji = "🟢"
	case analysis.TrendBearish:
		trendEmoji = "🔴"
	}

	fmt.Printf("\nMarket context: %s %s (strength %.2f)\n", trendEmoji, mc.Trend, mc.TrendStrength)
	fmt.Printf("  RSI %.1f | ATR %.2f%% | momentum %+.2f%% | volume x%.2f | range %.4f-%.4f\n",
		mc.RSI, mc.ATRPct, mc.MomentumPct, mc.VolumeRatio, mc.RangeLow, mc.RangeHigh)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
