package database

import (
	"time"
)

// BacktestRun is a persisted simulation outcome for one pair.
type BacktestRun struct {
	ID                  string    `json:"id"`
	Pair                string    `json:"pair"`
	Timeframe           string    `json:"timeframe"`
	InitialCapital      float64   `json:"initial_capital"`
	BudgetFraction      float64   `json:"budget_fraction"`
	TrailingStop        bool      `json:"trailing_stop"`
	InsufficientData    bool      `json:"insufficient_data"`
	AllRulesPassed      bool      `json:"all_rules_passed"`
	TotalTrades         int       `json:"total_trades"`
	Wins                int       `json:"wins"`
	WinRatePct          float64   `json:"win_rate_pct"`
	AvgReturnPct        float64   `json:"avg_return_pct"`
	CumulativeReturnPct float64   `json:"cumulative_return_pct"`
	FinalEquityValue    float64   `json:"final_equity_value"`
	TotalIncome         float64   `json:"total_income"`
	ROIPct              float64   `json:"roi_pct"`
	CAGRPct             float64   `json:"cagr_pct"`
	CreatedAt           time.Time `json:"created_at"`
}

// StoredTrade is one closed trade row belonging to a run.
type StoredTrade struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	EntryTime      time.Time `json:"entry_time"`
	ExitTime       time.Time `json:"exit_time"`
	EntryPrice     float64   `json:"entry_price"`
	ExitPrice      float64   `json:"exit_price"`
	PositionUnits  float64   `json:"position_units"`
	InvestedAmount float64   `json:"invested_amount"`
	PnLPct         float64   `json:"pnl_pct"`
	PnLAmount      float64   `json:"pnl_amount"`
	CutlossPrice   float64   `json:"cutloss_price"`
	DurationDays   float64   `json:"duration_days"`
	EntryColor     string    `json:"entry_color"`
	ExitColor      string    `json:"exit_color"`
	ExitReason     string    `json:"exit_reason"`
	OpenEnded      bool      `json:"open_ended"`
	CreatedAt      time.Time `json:"created_at"`
}

// StoredSignal is one RSI divergence row belonging to a run.
type StoredSignal struct {
	ID              int64     `json:"id"`
	RunID           string    `json:"run_id"`
	SignalType      string    `json:"signal_type"`
	StartIndex      int       `json:"start_index"`
	EndIndex        int       `json:"end_index"`
	RSIStart        float64   `json:"rsi_start"`
	RSIEnd          float64   `json:"rsi_end"`
	PriceStart      float64   `json:"price_start"`
	PriceEnd        float64   `json:"price_end"`
	DistanceCandles int       `json:"distance_candles"`
	CreatedAt       time.Time `json:"created_at"`
}

// PairSummary aggregates stored runs per pair.
type PairSummary struct {
	Pair          string  `json:"pair"`
	Runs          int     `json:"runs"`
	AvgWinRatePct float64 `json:"avg_win_rate_pct"`
	AvgReturnPct  float64 `json:"avg_return_pct"`
	BestCAGRPct   float64 `json:"best_cagr_pct"`
	TotalTrades   int     `json:"total_trades"`
}
