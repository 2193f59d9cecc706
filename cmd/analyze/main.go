package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cdc-zone-bot/config"
	"cdc-zone-bot/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to config file")
	pairFlag := flag.String("pair", "", "Filter runs by pair")
	limitFlag := flag.Int("limit", 20, "Max recent runs to list")
	runFlag := flag.String("run", "", "Show one run with its trades and signals")
	flag.Parse()

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

	if !cfg.DatabaseConfig.Enabled {
		fmt.Println("❌ Database is disabled; enable it to analyze stored runs")
		os.Exit(1)
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *runFlag != "" {
		showRun(ctx, repo, *runFlag)
		return
	}

	showOverview(ctx, repo, strings.ToUpper(*pairFlag), *limitFlag)
}

func showOverview(ctx context.Context, repo *database.Repository, pair string, limit int) {
	line := strings.Repeat("=", 80)

	if pair == "" {
		summaries, err := repo.GetPairSummaries(ctx)
		if err != nil {
			log.Fatalf("Failed to load pair summaries: %v", err)
		}

		fmt.Println(line)
		fmt.Println("📈 STORED RUNS BY PAIR")
		fmt.Println(line)

		if len(summaries) == 0 {
			fmt.Println("No stored runs yet")
		} else {
			fmt.Println("┌────────────────┬──────┬──────────┬────────────┬────────────┬────────┐")
			fmt.Println("│ Pair           │ Runs │ Win Rate │ Avg Return │ Best CAGR  │ Trades │")
			fmt.Println("├────────────────┼──────┼──────────┼────────────┼────────────┼────────┤")
			for _, s := range summaries {
				fmt.Printf("│ %-14s │ %4d │ %7.1f%% │ %+9.2f%% │ %+9.2f%% │ %6d │\n",
					truncate(s.Pair, 14), s.Runs, s.AvgWinRatePct, s.AvgReturnPct, s.BestCAGRPct, s.TotalTrades)
			}
			fmt.Println("└────────────────┴──────┴──────────┴────────────┴────────────┴────────┘")
		}
	}

	runs, err := repo.GetRuns(ctx, pair, limit)
	if err != nil {
		log.Fatalf("Failed to load runs: %v", err)
	}

	fmt.Println(line)
	fmt.Println("🗂  RECENT RUNS")
	fmt.Println(line)

	if len(runs) == 0 {
		fmt.Println("No stored runs match")
		return
	}

	for _, run := range runs {
		mark := " "
		if run.InsufficientData {
			mark = "⚠️"
		}
		fmt.Printf("%s %s  %-12s %-4s  %3d trades  %6.1f%% win  %+8.2f%% return  %+8.2f%% CAGR  %s\n",
			mark, run.ID[:8], run.Pair, run.Timeframe,
			run.TotalTrades, run.WinRatePct, run.CumulativeReturnPct, run.CAGRPct,
			run.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Println("\nUse -run <id> (full UUID) for trades and signals")
}

func showRun(ctx context.Context, repo *database.Repository, id string) {
	run, err := repo.GetRun(ctx, id)
	if err != nil {
		log.Fatalf("Failed to load run %s: %v", id, err)
	}

	line := strings.Repeat("=", 80)
	fmt.Println(line)
	fmt.Printf("📊 RUN %s: %s %s, stored %s\n", run.ID[:8], run.Pair, run.Timeframe,
		run.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Println(line)

	fmt.Printf("Capital %.2f, budget fraction %.4f, trailing stop %v\n",
		run.InitialCapital, run.BudgetFraction, run.TrailingStop)
	fmt.Printf("%d trades (%d wins, %.1f%%), return %+.2f%%, CAGR %+.2f%%, ROI %+.2f%%\n",
		run.TotalTrades, run.Wins, run.WinRatePct,
		run.CumulativeReturnPct, run.CAGRPct, run.ROIPct)
	fmt.Printf("Final equity %.2f (income %+.2f), all rules passed at end: %v\n",
		run.FinalEquityValue, run.TotalIncome, run.AllRulesPassed)

	trades, err := repo.GetTrades(ctx, run.ID)
	if err != nil {
		log.Fatalf("Failed to load trades: %v", err)
	}

	if len(trades) > 0 {
		fmt.Println("\n┌────────────┬────────────┬────────────┬────────────┬──────────┬───────────────────────┐")
		fmt.Println("│ Entry      │ Exit       │ Entry Px   │ Exit Px    │ PnL      │ Reason                │")
		fmt.Println("├────────────┼────────────┼────────────┼────────────┼──────────┼───────────────────────┤")

		reasons := map[string]int{}
		for _, t := range trades {
			reasons[t.ExitReason]++
			fmt.Printf("│ %s │ %s │ %10.4f │ %10.4f │ %+7.2f%% │ %-21s │\n",
				t.EntryTime.Format("2006-01-02"), t.ExitTime.Format("2006-01-02"),
				t.EntryPrice, t.ExitPrice, t.PnLPct, truncate(t.ExitReason, 21))
		}
		fmt.Println("└────────────┴────────────┴────────────┴────────────┴──────────┴───────────────────────┘")

		fmt.Println("Exits by reason:")
		for reason, count := range reasons {
			fmt.Printf("  %-22s %d\n", reason, count)
		}
	}

	signals, err := repo.GetSignals(ctx, run.ID)
	if err != nil {
		log.Fatalf("Failed to load signals: %v", err)
	}

	if len(signals) > 0 {
		fmt.Printf("\nRSI divergences (%d):\n", len(signals))
		for _, s := range signals {
			fmt.Printf("  %-8s bars %4d → %-4d  RSI %5.1f → %-5.1f  price %.4f → %.4f\n",
				s.SignalType, s.StartIndex, s.EndIndex, s.RSIStart, s.RSIEnd, s.PriceStart, s.PriceEnd)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
