package runner

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cdc-zone-bot/internal/backtest"
	"cdc-zone-bot/internal/divergence"
	"cdc-zone-bot/internal/market"
	"cdc-zone-bot/internal/rules"
	"cdc-zone-bot/internal/zone"
)

type jsonKline struct {
	OpenTime int64  `json:"openTime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

// writeCandleFile renders daily candles from closes in the exchange export
// shape: each opens at the prior close with half-point wicks.
func writeCandleFile(t *testing.T, path string, closes []float64, step int) {
	t.Helper()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	var rows []jsonKline
	for i := 0; i < len(closes); i += step {
		open := closes[i]
		if i > 0 {
			open = closes[i-1]
		}
		rows = append(rows, jsonKline{
			OpenTime: base + int64(i)*86400000,
			Open:     ff(open),
			High:     ff(math.Max(open, closes[i]) + 0.5),
			Low:      ff(math.Min(open, closes[i]) - 0.5),
			Close:    ff(closes[i]),
			Volume:   "1000",
		})
	}

	data, err := json.Marshal(rows)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

// rallyCloses is a 30-bar decline to 71 followed by a 25-bar rally: the
// chart entry fires at index 42 and the run closes open-ended.
func rallyCloses() []float64 {
	closes := make([]float64, 0, 55)
	for i := 0; i < 30; i++ {
		closes = append(closes, 100.0-float64(i))
	}
	for i := 0; i < 25; i++ {
		closes = append(closes, 71.0+1.5*float64(i+1))
	}
	return closes
}

// writePairData writes the daily and weekly candle files for one pair.
func writePairData(t *testing.T, dir, pair string) {
	t.Helper()
	closes := rallyCloses()
	writeCandleFile(t, filepath.Join(dir, pair+"_1d.json"), closes, 1)
	writeCandleFile(t, filepath.Join(dir, pair+"_1w.json"), closes, 7)
}

// TestDiscoverPairs tests filename-based discovery: only files matching the
// timeframe suffix count, directories and foreign files are skipped.
func TestDiscoverPairs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"BTCUSDT_1d.json", "ETHUSDT_1d.csv", "ADAUSDT_1w.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "XRPUSDT_1d.json"), 0755); err != nil {
		t.Fatal(err)
	}

	pairs, err := DiscoverPairs(dir, "1d")
	if err != nil {
		t.Fatalf("Expected discovery to succeed, got %v", err)
	}
	if len(pairs) != 2 || pairs[0] != "BTCUSDT" || pairs[1] != "ETHUSDT" {
		t.Errorf("Expected [BTCUSDT ETHUSDT], got %v", pairs)
	}
}

// TestDiscoverPairsDedup tests that a pair with both JSON and CSV files is
// listed once.
func TestDiscoverPairsDedup(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"BTCUSDT_1d.json", "BTCUSDT_1d.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	pairs, err := DiscoverPairs(dir, "1d")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || pairs[0] != "BTCUSDT" {
		t.Errorf("Expected [BTCUSDT], got %v", pairs)
	}
}

// TestDiscoverPairsMissingDir tests that a missing data dir is an error.
func TestDiscoverPairsMissingDir(t *testing.T) {
	if _, err := DiscoverPairs(filepath.Join(t.TempDir(), "missing"), "1d"); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}

// TestRunPair tests the file-to-result path: candles loaded from disk, the
// missing hourly confirmation falling back to close fills, and the backtest
// producing its open-ended trade.
func TestRunPair(t *testing.T) {
	dir := t.TempDir()
	writePairData(t, dir, "TESTUSDT")

	r := NewRunner(backtest.DefaultConfig(), Config{
		WorkerCount: 1,
		Timeframe:   "1d",
		DataDir:     dir,
	}, nil, nil, zerolog.Nop())

	res, err := r.RunPair(context.Background(), "TESTUSDT")
	if err != nil {
		t.Fatalf("Expected the pair to run, got %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(res.Trades))
	}
	if res.Trades[0].EntryPrice != 90.5 {
		t.Errorf("Expected entry at 90.5, got %f", res.Trades[0].EntryPrice)
	}
	if res.Trades[0].ExitReason != backtest.ExitEndOfData {
		t.Errorf("Expected END_OF_DATA, got %s", res.Trades[0].ExitReason)
	}
	if res.Stats.Wins != 1 {
		t.Errorf("Expected 1 win, got %d", res.Stats.Wins)
	}
}

// TestRunPairMissingHigherTimeframe tests that a pair without its weekly
// file fails with a pointed error.
func TestRunPairMissingHigherTimeframe(t *testing.T) {
	dir := t.TempDir()
	writeCandleFile(t, filepath.Join(dir, "TESTUSDT_1d.json"), rallyCloses(), 1)

	r := NewRunner(backtest.DefaultConfig(), Config{
		WorkerCount: 1,
		Timeframe:   "1d",
		DataDir:     dir,
	}, nil, nil, zerolog.Nop())

	_, err := r.RunPair(context.Background(), "TESTUSDT")
	if err == nil {
		t.Fatal("Expected an error without the weekly file")
	}
	if !strings.Contains(err.Error(), "higher timeframe") {
		t.Errorf("Expected a higher timeframe error, got %v", err)
	}
}

// TestRunBatch tests the worker pool over explicit pairs with one good and
// one broken pair: the good outcome sorts first, the broken one carries its
// error.
func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	writePairData(t, dir, "TESTUSDT")

	r := NewRunner(backtest.DefaultConfig(), Config{
		WorkerCount: 2,
		Timeframe:   "1d",
		DataDir:     dir,
		Pairs:       []string{"TESTUSDT", "MISSINGUSDT"},
	}, nil, nil, zerolog.Nop())

	batch, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected the batch to run, got %v", err)
	}
	if batch.PairsRun != 2 {
		t.Fatalf("Expected 2 pairs run, got %d", batch.PairsRun)
	}
	if batch.Timeframe != market.Timeframe("1d") {
		t.Errorf("Expected timeframe 1d, got %s", batch.Timeframe)
	}
	if batch.Outcomes[0].Pair != "TESTUSDT" || batch.Outcomes[0].Err != nil {
		t.Errorf("Expected TESTUSDT first without error, got %s (%v)", batch.Outcomes[0].Pair, batch.Outcomes[0].Err)
	}
	if len(batch.Outcomes[0].Result.Trades) != 1 {
		t.Errorf("Expected 1 trade, got %d", len(batch.Outcomes[0].Result.Trades))
	}
	if batch.Outcomes[1].Pair != "MISSINGUSDT" || batch.Outcomes[1].Err == nil {
		t.Errorf("Expected MISSINGUSDT last with an error, got %s (%v)", batch.Outcomes[1].Pair, batch.Outcomes[1].Err)
	}
}

// TestRunBatchNoPairs tests that a batch over an empty data dir fails.
func TestRunBatchNoPairs(t *testing.T) {
	r := NewRunner(backtest.DefaultConfig(), Config{
		WorkerCount: 1,
		Timeframe:   "1d",
		DataDir:     t.TempDir(),
	}, nil, nil, zerolog.Nop())

	if _, err := r.Run(context.Background()); err == nil {
		t.Error("Expected an error with no candle data")
	}
}

// TestToStorageModels tests the flattening of a result into database rows.
func TestToStorageModels(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := backtest.DefaultConfig()
	res := backtest.Result{
		Pair:  "BTCUSDT",
		Rules: rules.AllResult{AllPassed: true},
		Trades: []backtest.TradeRecord{{
			EntryTime:       base,
			EntryPrice:      100,
			ExitTime:        base.Add(48 * time.Hour),
			ExitPrice:       110,
			PnLPct:          10,
			PnLAmount:       10,
			InvestedAmount:  100,
			PositionUnits:   1,
			CutlossPrice:    90,
			DurationDays:    2,
			LTFColorAtEntry: zone.CDCGreen,
			LTFColorAtExit:  zone.CDCNone,
			ExitReason:      backtest.ExitTrailingStop,
		}},
		Stats: backtest.Stats{TotalTrades: 1, Wins: 1, WinRatePct: 100, FinalEquityValue: 10010},
		Signals: []divergence.Signal{{
			Type:            divergence.Bullish,
			StartIndex:      3,
			EndIndex:        20,
			RSIStart:        25,
			RSIEnd:          33,
			PriceStart:      100,
			PriceEnd:        95,
			DistanceCandles: 17,
		}},
	}

	run, trades, signals := toStorageModels("BTCUSDT", "1d", cfg, res)

	if run.Pair != "BTCUSDT" || run.Timeframe != "1d" {
		t.Errorf("Unexpected run identity: %s %s", run.Pair, run.Timeframe)
	}
	if run.InitialCapital != cfg.InitialCapital {
		t.Errorf("Expected capital %f, got %f", cfg.InitialCapital, run.InitialCapital)
	}
	if !run.AllRulesPassed {
		t.Error("Expected the rule flag carried over")
	}
	if run.TotalTrades != 1 || run.FinalEquityValue != 10010 {
		t.Errorf("Unexpected run stats: %d trades, equity %f", run.TotalTrades, run.FinalEquityValue)
	}

	if len(trades) != 1 {
		t.Fatalf("Expected 1 stored trade, got %d", len(trades))
	}
	if trades[0].EntryColor != "green" || trades[0].ExitColor != "none" {
		t.Errorf("Expected colors green/none, got %s/%s", trades[0].EntryColor, trades[0].ExitColor)
	}
	if trades[0].ExitReason != "TRAILING_STOP" {
		t.Errorf("Expected TRAILING_STOP, got %s", trades[0].ExitReason)
	}
	if trades[0].EntryPrice != 100 || trades[0].ExitPrice != 110 {
		t.Errorf("Unexpected prices: %f/%f", trades[0].EntryPrice, trades[0].ExitPrice)
	}

	if len(signals) != 1 {
		t.Fatalf("Expected 1 stored signal, got %d", len(signals))
	}
	if signals[0].SignalType != "bullish" || signals[0].DistanceCandles != 17 {
		t.Errorf("Unexpected signal: %s over %d candles", signals[0].SignalType, signals[0].DistanceCandles)
	}
}
