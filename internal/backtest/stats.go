package backtest

import "math"

// Stats aggregates a finished run.
type Stats struct {
	TotalTrades          int     `json:"total_trades"`
	Wins                 int     `json:"wins"`
	WinRatePct           float64 `json:"win_rate_pct"`
	AvgReturnPct         float64 `json:"avg_return_pct"`
	CumulativeReturnPct  float64 `json:"cumulative_return_pct"`
	InitialCapital       float64 `json:"initial_capital"`
	FinalEquityValue     float64 `json:"final_equity_value"`
	TotalIncome          float64 `json:"total_income"`
	TotalCapitalDeployed float64 `json:"total_capital_deployed"`
	AvgCapitalDeployed   float64 `json:"avg_capital_deployed"`
	ROIPct               float64 `json:"roi_pct"`
	TotalDurationDays    float64 `json:"total_duration_days"`
	AvgDurationDays      float64 `json:"avg_duration_days"`
	CAGRPct              float64 `json:"cagr_pct"`
}

// computeStats folds the trade list and final equity multiplier into the run
// aggregate. CAGR anchors on first entry to last exit, floored at one day.
func computeStats(trades []TradeRecord, equity, initialCapital float64) Stats {
	stats := Stats{
		TotalTrades:         len(trades),
		InitialCapital:      initialCapital,
		FinalEquityValue:    equity * initialCapital,
		CumulativeReturnPct: (equity - 1) * 100,
	}
	stats.TotalIncome = stats.FinalEquityValue - initialCapital

	var sumReturn float64
	for _, t := range trades {
		if t.PnLPct > 0 {
			stats.Wins++
		}
		sumReturn += t.PnLPct
		stats.TotalCapitalDeployed += t.InvestedAmount
		stats.TotalDurationDays += t.DurationDays
	}

	if stats.TotalTrades > 0 {
		stats.WinRatePct = float64(stats.Wins) / float64(stats.TotalTrades) * 100
		stats.AvgReturnPct = sumReturn / float64(stats.TotalTrades)
		stats.AvgCapitalDeployed = stats.TotalCapitalDeployed / float64(stats.TotalTrades)
		stats.AvgDurationDays = stats.TotalDurationDays / float64(stats.TotalTrades)
	}

	if stats.TotalCapitalDeployed > 0 {
		stats.ROIPct = stats.TotalIncome / stats.TotalCapitalDeployed * 100
	}

	totalDays := 1
	if len(trades) > 0 {
		first := trades[0].EntryTime
		last := trades[len(trades)-1].ExitTime
		totalDays = int(last.Sub(first).Hours() / 24)
		if totalDays < 1 {
			totalDays = 1
		}
	}
	years := float64(totalDays) / 365.0
	if years > 0 {
		stats.CAGRPct = (math.Pow(equity, 1/years) - 1) * 100
	} else {
		stats.CAGRPct = (equity - 1) * 100
	}

	return stats
}
