package backtest

import (
	"math"
	"testing"
	"time"
)

// TestComputeStatsNoTrades tests the empty run: equity stays at the initial
// capital and every rate is zero.
func TestComputeStatsNoTrades(t *testing.T) {
	stats := computeStats(nil, 1.0, 10000)

	if stats.TotalTrades != 0 {
		t.Errorf("Expected 0 trades, got %d", stats.TotalTrades)
	}
	if stats.FinalEquityValue != 10000 {
		t.Errorf("Expected final equity 10000, got %f", stats.FinalEquityValue)
	}
	if stats.TotalIncome != 0 {
		t.Errorf("Expected no income, got %f", stats.TotalIncome)
	}
	if stats.CAGRPct != 0 {
		t.Errorf("Expected CAGR 0, got %f", stats.CAGRPct)
	}
}

// TestComputeStatsAggregates tests the fold over a win and a loss: rates,
// deployed capital and the CAGR anchored on first entry to last exit.
func TestComputeStatsAggregates(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []TradeRecord{
		{
			EntryTime:      base,
			ExitTime:       base.Add(5 * 24 * time.Hour),
			PnLPct:         10,
			InvestedAmount: 100,
			DurationDays:   5,
		},
		{
			EntryTime:      base.Add(7 * 24 * time.Hour),
			ExitTime:       base.Add(17 * 24 * time.Hour),
			PnLPct:         -5,
			InvestedAmount: 110,
			DurationDays:   10,
		},
	}

	equity := 1.00045
	stats := computeStats(trades, equity, 10000)

	if stats.TotalTrades != 2 {
		t.Fatalf("Expected 2 trades, got %d", stats.TotalTrades)
	}
	if stats.Wins != 1 {
		t.Errorf("Expected 1 win, got %d", stats.Wins)
	}
	if stats.WinRatePct != 50 {
		t.Errorf("Expected win rate 50, got %f", stats.WinRatePct)
	}
	if stats.AvgReturnPct != 2.5 {
		t.Errorf("Expected avg return 2.5, got %f", stats.AvgReturnPct)
	}
	if want := (equity - 1) * 100; stats.CumulativeReturnPct != want {
		t.Errorf("Expected cumulative return %f, got %f", want, stats.CumulativeReturnPct)
	}
	if stats.TotalCapitalDeployed != 210 {
		t.Errorf("Expected 210 deployed, got %f", stats.TotalCapitalDeployed)
	}
	if stats.AvgCapitalDeployed != 105 {
		t.Errorf("Expected avg 105 deployed, got %f", stats.AvgCapitalDeployed)
	}
	if stats.TotalDurationDays != 15 {
		t.Errorf("Expected 15 total days, got %f", stats.TotalDurationDays)
	}
	if stats.AvgDurationDays != 7.5 {
		t.Errorf("Expected 7.5 avg days, got %f", stats.AvgDurationDays)
	}

	wantIncome := equity*10000.0 - 10000.0
	if stats.TotalIncome != wantIncome {
		t.Errorf("Expected income %f, got %f", wantIncome, stats.TotalIncome)
	}
	if want := wantIncome / 210.0 * 100; stats.ROIPct != want {
		t.Errorf("Expected ROI %f, got %f", want, stats.ROIPct)
	}

	// 17 days of exposure between first entry and last exit
	wantCAGR := (math.Pow(equity, 365.0/17.0) - 1) * 100
	if math.Abs(stats.CAGRPct-wantCAGR) > 1e-9 {
		t.Errorf("Expected CAGR %f, got %f", wantCAGR, stats.CAGRPct)
	}
}

// TestComputeStatsSameDayFloor tests that a same-day round trip annualizes
// over one day instead of zero.
func TestComputeStatsSameDayFloor(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []TradeRecord{
		{EntryTime: base, ExitTime: base, PnLPct: 1, InvestedAmount: 100, DurationDays: 0},
	}

	stats := computeStats(trades, 1.0001, 10000)

	wantCAGR := (math.Pow(1.0001, 365.0) - 1) * 100
	if math.Abs(stats.CAGRPct-wantCAGR) > 1e-6 {
		t.Errorf("Expected CAGR %f, got %f", wantCAGR, stats.CAGRPct)
	}
}
