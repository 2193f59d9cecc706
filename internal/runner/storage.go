package runner

import (
	"cdc-zone-bot/internal/backtest"
	"cdc-zone-bot/internal/database"
	"cdc-zone-bot/internal/market"
)

// toStorageModels flattens an in-memory result into database rows.
func toStorageModels(pair string, tf market.Timeframe, cfg backtest.Config, res backtest.Result) (*database.BacktestRun, []database.StoredTrade, []database.StoredSignal) {
	run := &database.BacktestRun{
		Pair:                pair,
		Timeframe:           string(tf),
		InitialCapital:      cfg.InitialCapital,
		BudgetFraction:      cfg.BudgetFraction,
		TrailingStop:        cfg.TrailingStop,
		InsufficientData:    res.InsufficientData,
		AllRulesPassed:      res.Rules.AllPassed,
		TotalTrades:         res.Stats.TotalTrades,
		Wins:                res.Stats.Wins,
		WinRatePct:          res.Stats.WinRatePct,
		AvgReturnPct:        res.Stats.AvgReturnPct,
		CumulativeReturnPct: res.Stats.CumulativeReturnPct,
		FinalEquityValue:    res.Stats.FinalEquityValue,
		TotalIncome:         res.Stats.TotalIncome,
		ROIPct:              res.Stats.ROIPct,
		CAGRPct:             res.Stats.CAGRPct,
	}

	trades := make([]database.StoredTrade, 0, len(res.Trades))
	for _, t := range res.Trades {
		trades = append(trades, database.StoredTrade{
			EntryTime:      t.EntryTime,
			ExitTime:       t.ExitTime,
			EntryPrice:     t.EntryPrice,
			ExitPrice:      t.ExitPrice,
			PositionUnits:  t.PositionUnits,
			InvestedAmount: t.InvestedAmount,
			PnLPct:         t.PnLPct,
			PnLAmount:      t.PnLAmount,
			CutlossPrice:   t.CutlossPrice,
			DurationDays:   t.DurationDays,
			EntryColor:     string(t.LTFColorAtEntry),
			ExitColor:      string(t.LTFColorAtExit),
			ExitReason:     string(t.ExitReason),
			OpenEnded:      t.OpenEnded,
		})
	}

	signals := make([]database.StoredSignal, 0, len(res.Signals))
	for _, s := range res.Signals {
		signals = append(signals, database.StoredSignal{
			SignalType:      string(s.Type),
			StartIndex:      s.StartIndex,
			EndIndex:        s.EndIndex,
			RSIStart:        s.RSIStart,
			RSIEnd:          s.RSIEnd,
			PriceStart:      s.PriceStart,
			PriceEnd:        s.PriceEnd,
			DistanceCandles: s.DistanceCandles,
		})
	}

	return run, trades, signals
}
