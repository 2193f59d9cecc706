package backtest

import (
	"time"

	"cdc-zone-bot/internal/risk"
	"cdc-zone-bot/internal/zone"
)

// Status is the position lifecycle state. FLAT and LONG are the only states;
// a position is created FLAT and mutated only by the engine run that owns it.
type Status string

const (
	StatusFlat Status = "FLAT"
	StatusLong Status = "LONG"
)

// ExitReason tags why a trade was closed.
type ExitReason string

const (
	ExitEMACrossoverBearish ExitReason = "EMA_CROSSOVER_BEARISH"
	ExitTrailingStop        ExitReason = "TRAILING_STOP"
	ExitOrangeRed           ExitReason = "ORANGE_RED"
	ExitStopLossSupport     ExitReason = "STOP_LOSS_SUPPORT"
	ExitStrongSell          ExitReason = "STRONG_SELL"
	ExitEndOfData           ExitReason = "END_OF_DATA"
)

// PositionState carries one open trade through the candle loop.
type PositionState struct {
	Status       Status
	EntryPrice   float64
	EntryTime    time.Time
	EntryIndex   int
	Units        float64
	Capital      float64
	Cutloss      float64
	EntryRules   map[string]bool
	EntryCDC     zone.CDCColor
	TrendBullish bool
	Trailing     *risk.TrailingStop
}

// Long reports whether a trade is open.
func (p *PositionState) Long() bool { return p.Status == StatusLong }

// reset returns the position to FLAT.
func (p *PositionState) reset() {
	*p = PositionState{Status: StatusFlat}
}

// TradeRecord is one closed trade.
type TradeRecord struct {
	EntryTime       time.Time       `json:"entry_time"`
	EntryPrice      float64         `json:"entry_price"`
	ExitTime        time.Time       `json:"exit_time"`
	ExitPrice       float64         `json:"exit_price"`
	PnLPct          float64         `json:"pnl_pct"`
	PnLAmount       float64         `json:"pnl_amount"`
	InvestedAmount  float64         `json:"invested_amount"`
	PositionUnits   float64         `json:"position_units"`
	CutlossPrice    float64         `json:"cutloss_price"`
	DurationDays    float64         `json:"duration_days"`
	LTFColorAtEntry zone.CDCColor   `json:"ltf_color_at_entry"`
	LTFColorAtExit  zone.CDCColor   `json:"ltf_color_at_exit"`
	Rules           map[string]bool `json:"rules"`
	ExitReason      ExitReason      `json:"exit_reason"`
	OpenEnded       bool            `json:"open_ended,omitempty"`
}
