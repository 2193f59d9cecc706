// Package runner fans one backtest per pair across a bounded worker pool and
// persists each finished run to the configured stores.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cdc-zone-bot/internal/backtest"
	"cdc-zone-bot/internal/cache"
	"cdc-zone-bot/internal/database"
	"cdc-zone-bot/internal/market"

	"github.com/rs/zerolog"
)

// Config controls pair discovery and pool sizing.
type Config struct {
	WorkerCount int
	Timeframe   market.Timeframe
	DataDir     string
	Pairs       []string // Empty = all pairs found in the data dir
}

// Outcome is the result of one pair's backtest within a batch.
type Outcome struct {
	Pair   string
	Result backtest.Result
	Err    error
}

// BatchResult aggregates a whole batch run.
type BatchResult struct {
	Timeframe market.Timeframe
	StartTime time.Time
	Duration  time.Duration
	PairsRun  int
	Outcomes  []Outcome
}

// Runner orchestrates backtests across multiple pairs. The repository and
// result cache are optional; a nil store skips that persistence step.
type Runner struct {
	engine    *backtest.Engine
	engineCfg backtest.Config
	cfg       Config
	repo      *database.Repository
	results   *cache.ResultCache
	log       zerolog.Logger
}

// NewRunner creates a runner with its own engine instance.
func NewRunner(engineCfg backtest.Config, cfg Config, repo *database.Repository, results *cache.ResultCache, logger zerolog.Logger) *Runner {
	return &Runner{
		engine:    backtest.NewEngine(engineCfg, logger),
		engineCfg: engineCfg,
		cfg:       cfg,
		repo:      repo,
		results:   results,
		log:       logger.With().Str("component", "Runner").Logger(),
	}
}

// Run backtests every configured pair and collects the outcomes, best CAGR
// first with failed pairs at the end.
func (r *Runner) Run(ctx context.Context) (*BatchResult, error) {
	startTime := time.Now()

	pairs := r.cfg.Pairs
	if len(pairs) == 0 {
		var err error
		pairs, err = DiscoverPairs(r.cfg.DataDir, r.cfg.Timeframe)
		if err != nil {
			return nil, err
		}
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no candle data for timeframe %s in %s", r.cfg.Timeframe, r.cfg.DataDir)
	}

	workers := r.cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}
	if workers > len(pairs) {
		workers = len(pairs)
	}

	r.log.Info().
		Int("pairs", len(pairs)).
		Int("workers", workers).
		Str("timeframe", string(r.cfg.Timeframe)).
		Msg("Starting batch backtest")

	pairChan := make(chan string, len(pairs))
	resultChan := make(chan Outcome, len(pairs))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go r.worker(ctx, pairChan, resultChan, &wg)
	}

	// Feed pairs to workers
	go func() {
		defer close(pairChan)
		for _, pair := range pairs {
			select {
			case pairChan <- pair:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Wait for workers to finish
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results
	outcomes := []Outcome{}
	for outcome := range resultChan {
		outcomes = append(outcomes, outcome)
	}

	sort.Slice(outcomes, func(i, j int) bool {
		if (outcomes[i].Err == nil) != (outcomes[j].Err == nil) {
			return outcomes[i].Err == nil
		}
		if outcomes[i].Result.Stats.CAGRPct != outcomes[j].Result.Stats.CAGRPct {
			return outcomes[i].Result.Stats.CAGRPct > outcomes[j].Result.Stats.CAGRPct
		}
		return outcomes[i].Pair < outcomes[j].Pair
	})

	batch := &BatchResult{
		Timeframe: r.cfg.Timeframe,
		StartTime: startTime,
		Duration:  time.Since(startTime),
		PairsRun:  len(outcomes),
		Outcomes:  outcomes,
	}

	r.log.Info().
		Dur("duration", batch.Duration).
		Int("pairs", batch.PairsRun).
		Msg("Batch backtest complete")

	return batch, nil
}

// worker processes pairs from the channel
func (r *Runner) worker(ctx context.Context, pairChan <-chan string, resultChan chan<- Outcome, wg *sync.WaitGroup) {
	defer wg.Done()

	for pair := range pairChan {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := r.RunPair(ctx, pair)
		if err != nil {
			r.log.Warn().Err(err).Str("pair", pair).Msg("Pair backtest failed")
		}
		resultChan <- Outcome{Pair: pair, Result: res, Err: err}
	}
}

// RunPair loads one pair's candle series, runs the backtest and persists the
// result.
func (r *Runner) RunPair(ctx context.Context, pair string) (backtest.Result, error) {
	ltfPath := dataFile(r.cfg.DataDir, pair, r.cfg.Timeframe)
	if ltfPath == "" {
		return backtest.Result{}, fmt.Errorf("no candle file for %s at %s", pair, r.cfg.Timeframe)
	}
	ltf, err := market.LoadFile(ltfPath)
	if err != nil {
		return backtest.Result{}, err
	}

	htfTF := market.HigherTimeframe(r.cfg.Timeframe)
	htfPath := dataFile(r.cfg.DataDir, pair, htfTF)
	if htfPath == "" {
		return backtest.Result{}, fmt.Errorf("no candle file for %s at higher timeframe %s", pair, htfTF)
	}
	htf, err := market.LoadFile(htfPath)
	if err != nil {
		return backtest.Result{}, err
	}

	// A confirmation series refines fills only where a finer timeframe is
	// mapped; otherwise trades fill at lower timeframe closes.
	var conf market.Series
	if confTF := market.ConfirmationTimeframe(r.cfg.Timeframe); confTF != r.cfg.Timeframe {
		if confPath := dataFile(r.cfg.DataDir, pair, confTF); confPath != "" {
			conf, err = market.LoadFile(confPath)
			if err != nil {
				return backtest.Result{}, err
			}
		} else {
			r.log.Warn().Str("pair", pair).Str("timeframe", string(confTF)).
				Msg("Confirmation series missing, filling at candle closes")
		}
	}

	res := r.engine.Run(backtest.Input{
		Pair:         pair,
		LTF:          ltf,
		HTF:          htf,
		Confirmation: conf,
	})

	r.persist(ctx, pair, res)

	return res, nil
}

// persist stores a finished run. Store failures are logged, not fatal: the
// batch result still carries everything in memory.
func (r *Runner) persist(ctx context.Context, pair string, res backtest.Result) {
	if r.repo != nil {
		run, trades, signals := toStorageModels(pair, r.cfg.Timeframe, r.engineCfg, res)
		if err := r.repo.SaveRun(ctx, run, trades, signals); err != nil {
			r.log.Warn().Err(err).Str("pair", pair).Msg("Failed to persist run")
		}
	}

	if r.results != nil {
		err := r.results.SetLatest(ctx, pair, string(r.cfg.Timeframe), res)
		if err != nil && !errors.Is(err, cache.ErrCacheUnavailable) {
			r.log.Warn().Err(err).Str("pair", pair).Msg("Failed to cache run")
		}
	}
}

// DiscoverPairs lists pairs with a candle file for the timeframe in dir,
// sorted alphabetically. Files follow the <PAIR>_<TF>.json|csv convention.
func DiscoverPairs(dir string, tf market.Timeframe) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	suffixes := []string{
		fmt.Sprintf("_%s.json", tf),
		fmt.Sprintf("_%s.csv", tf),
	}

	seen := map[string]bool{}
	pairs := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, suffix := range suffixes {
			if !strings.HasSuffix(entry.Name(), suffix) {
				continue
			}
			pair := strings.TrimSuffix(entry.Name(), suffix)
			if pair != "" && !seen[pair] {
				seen[pair] = true
				pairs = append(pairs, pair)
			}
		}
	}

	sort.Strings(pairs)
	return pairs, nil
}

// dataFile resolves the candle file for a pair and timeframe, preferring JSON.
func dataFile(dir, pair string, tf market.Timeframe) string {
	for _, ext := range []string{".json", ".csv"} {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s%s", pair, tf, ext))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
