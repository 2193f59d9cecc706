package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// SaveRun saves a backtest run with its trades and divergence signals in a
// transaction. A missing run ID is assigned here.
func (r *Repository) SaveRun(ctx context.Context, run *BacktestRun, trades []StoredTrade, signals []StoredSignal) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	// Start transaction
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Insert run
	query := `
		INSERT INTO backtest_runs (
			id, pair, timeframe, initial_capital, budget_fraction, trailing_stop,
			insufficient_data, all_rules_passed,
			total_trades, wins, win_rate_pct, avg_return_pct,
			cumulative_return_pct, final_equity_value, total_income,
			roi_pct, cagr_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = tx.Exec(ctx, query,
		run.ID, run.Pair, run.Timeframe, run.InitialCapital, run.BudgetFraction, run.TrailingStop,
		run.InsufficientData, run.AllRulesPassed,
		run.TotalTrades, run.Wins, run.WinRatePct, run.AvgReturnPct,
		run.CumulativeReturnPct, run.FinalEquityValue, run.TotalIncome,
		run.ROIPct, run.CAGRPct,
	)
	if err != nil {
		return fmt.Errorf("failed to insert backtest run: %w", err)
	}

	// Insert trades
	if len(trades) > 0 {
		tradeQuery := `
			INSERT INTO backtest_trades (
				run_id, entry_time, exit_time, entry_price, exit_price,
				position_units, invested_amount, pnl_pct, pnl_amount,
				cutloss_price, duration_days, entry_color, exit_color,
				exit_reason, open_ended
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`

		for _, trade := range trades {
			_, err = tx.Exec(ctx, tradeQuery,
				run.ID, trade.EntryTime, trade.ExitTime, trade.EntryPrice, trade.ExitPrice,
				trade.PositionUnits, trade.InvestedAmount, trade.PnLPct, trade.PnLAmount,
				trade.CutlossPrice, trade.DurationDays, trade.EntryColor, trade.ExitColor,
				trade.ExitReason, trade.OpenEnded,
			)
			if err != nil {
				return fmt.Errorf("failed to insert backtest trade: %w", err)
			}
		}
	}

	// Insert divergence signals
	if len(signals) > 0 {
		signalQuery := `
			INSERT INTO divergence_signals (
				run_id, signal_type, start_index, end_index,
				rsi_start, rsi_end, price_start, price_end, distance_candles
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`

		for _, sig := range signals {
			_, err = tx.Exec(ctx, signalQuery,
				run.ID, sig.SignalType, sig.StartIndex, sig.EndIndex,
				sig.RSIStart, sig.RSIEnd, sig.PriceStart, sig.PriceEnd, sig.DistanceCandles,
			)
			if err != nil {
				return fmt.Errorf("failed to insert divergence signal: %w", err)
			}
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRuns retrieves stored runs, newest first. An empty pair matches all pairs.
func (r *Repository) GetRuns(ctx context.Context, pair string, limit int) ([]BacktestRun, error) {
	query := `
		SELECT id, pair, timeframe, initial_capital, budget_fraction, trailing_stop,
			   insufficient_data, all_rules_passed,
			   total_trades, wins, win_rate_pct, avg_return_pct,
			   cumulative_return_pct, final_equity_value, total_income,
			   roi_pct, cagr_pct, created_at
		FROM backtest_runs
		WHERE ($1 = '' OR pair = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, pair, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	runs := []BacktestRun{}
	for rows.Next() {
		var run BacktestRun
		err := rows.Scan(
			&run.ID, &run.Pair, &run.Timeframe, &run.InitialCapital, &run.BudgetFraction, &run.TrailingStop,
			&run.InsufficientData, &run.AllRulesPassed,
			&run.TotalTrades, &run.Wins, &run.WinRatePct, &run.AvgReturnPct,
			&run.CumulativeReturnPct, &run.FinalEquityValue, &run.TotalIncome,
			&run.ROIPct, &run.CAGRPct, &run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backtest runs: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a single run by ID
func (r *Repository) GetRun(ctx context.Context, id string) (*BacktestRun, error) {
	query := `
		SELECT id, pair, timeframe, initial_capital, budget_fraction, trailing_stop,
			   insufficient_data, all_rules_passed,
			   total_trades, wins, win_rate_pct, avg_return_pct,
			   cumulative_return_pct, final_equity_value, total_income,
			   roi_pct, cagr_pct, created_at
		FROM backtest_runs
		WHERE id = $1
	`

	var run BacktestRun
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Pair, &run.Timeframe, &run.InitialCapital, &run.BudgetFraction, &run.TrailingStop,
		&run.InsufficientData, &run.AllRulesPassed,
		&run.TotalTrades, &run.Wins, &run.WinRatePct, &run.AvgReturnPct,
		&run.CumulativeReturnPct, &run.FinalEquityValue, &run.TotalIncome,
		&run.ROIPct, &run.CAGRPct, &run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest run: %w", err)
	}

	return &run, nil
}

// GetTrades retrieves trades for a specific run, oldest entry first
func (r *Repository) GetTrades(ctx context.Context, runID string) ([]StoredTrade, error) {
	query := `
		SELECT id, run_id, entry_time, exit_time, entry_price, exit_price,
			   position_units, invested_amount, pnl_pct, pnl_amount,
			   cutloss_price, duration_days, entry_color, exit_color,
			   exit_reason, open_ended, created_at
		FROM backtest_trades
		WHERE run_id = $1
		ORDER BY entry_time ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest trades: %w", err)
	}
	defer rows.Close()

	trades := []StoredTrade{}
	for rows.Next() {
		var trade StoredTrade
		err := rows.Scan(
			&trade.ID, &trade.RunID, &trade.EntryTime, &trade.ExitTime, &trade.EntryPrice, &trade.ExitPrice,
			&trade.PositionUnits, &trade.InvestedAmount, &trade.PnLPct, &trade.PnLAmount,
			&trade.CutlossPrice, &trade.DurationDays, &trade.EntryColor, &trade.ExitColor,
			&trade.ExitReason, &trade.OpenEnded, &trade.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backtest trades: %w", err)
	}

	return trades, nil
}

// GetSignals retrieves divergence signals for a specific run
func (r *Repository) GetSignals(ctx context.Context, runID string) ([]StoredSignal, error) {
	query := `
		SELECT id, run_id, signal_type, start_index, end_index,
			   rsi_start, rsi_end, price_start, price_end, distance_candles, created_at
		FROM divergence_signals
		WHERE run_id = $1
		ORDER BY end_index ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query divergence signals: %w", err)
	}
	defer rows.Close()

	signals := []StoredSignal{}
	for rows.Next() {
		var sig StoredSignal
		err := rows.Scan(
			&sig.ID, &sig.RunID, &sig.SignalType, &sig.StartIndex, &sig.EndIndex,
			&sig.RSIStart, &sig.RSIEnd, &sig.PriceStart, &sig.PriceEnd, &sig.DistanceCandles, &sig.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan divergence signal: %w", err)
		}
		signals = append(signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating divergence signals: %w", err)
	}

	return signals, nil
}

// GetPairSummaries aggregates stored runs per pair, best CAGR first
func (r *Repository) GetPairSummaries(ctx context.Context) ([]PairSummary, error) {
	query := `
		SELECT pair, COUNT(*) AS runs,
			   AVG(win_rate_pct) AS avg_win_rate_pct,
			   AVG(avg_return_pct) AS avg_return_pct,
			   MAX(cagr_pct) AS best_cagr_pct,
			   SUM(total_trades) AS total_trades
		FROM backtest_runs
		WHERE insufficient_data = FALSE
		GROUP BY pair
		ORDER BY best_cagr_pct DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pair summaries: %w", err)
	}
	defer rows.Close()

	summaries := []PairSummary{}
	for rows.Next() {
		var s PairSummary
		err := rows.Scan(&s.Pair, &s.Runs, &s.AvgWinRatePct, &s.AvgReturnPct, &s.BestCAGRPct, &s.TotalTrades)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pair summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pair summaries: %w", err)
	}

	return summaries, nil
}
