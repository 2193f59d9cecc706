// Package zone implements the action-zone color classification: each candle
// is assigned one of six colors from its close price relative to a fast and
// a slow EMA, plus a binary CDC color (green/red) consumed by the trading
// rules.
package zone

import "cdc-zone-bot/internal/indicators"

// Color is the six-way action-zone classification.
type Color string

const (
	Green     Color = "green"
	Blue      Color = "blue"
	LightBlue Color = "lblue"
	Red       Color = "red"
	Orange    Color = "orange"
	Yellow    Color = "yellow"
	None      Color = "none"
)

// CDCColor is the binary reduction of Color used by the rule evaluator.
// Only green and red survive; every other zone maps to CDCNone.
type CDCColor string

const (
	CDCGreen CDCColor = "green"
	CDCRed   CDCColor = "red"
	CDCNone  CDCColor = "none"
)

// Default smoothing periods for the action-zone EMAs.
const (
	DefaultFastPeriod = 12
	DefaultSlowPeriod = 26
)

// Info carries the derived per-candle zone values. It is produced as a
// parallel slice so candle data stays immutable.
type Info struct {
	Fast float64
	Slow float64
	Zone Color
	CDC  CDCColor
}

// Bullish reports whether the fast EMA is above the slow EMA.
func (f Info) Bullish() bool {
	return f.Fast > f.Slow
}

// Compute classifies every close price into a zone color. Pure and
// prefix-stable: classifying a prefix of a series yields the same tags as
// classifying that prefix within a longer series.
func Compute(closes []float64, fastPeriod, slowPeriod int) []Info {
	if len(closes) == 0 {
		return nil
	}

	fast := indicators.CalculateEMA(closes, fastPeriod)
	slow := indicators.CalculateEMA(closes, slowPeriod)

	infos := make([]Info, len(closes))
	for i, price := range closes {
		color := classify(price, fast[i], slow[i])
		infos[i] = Info{
			Fast: fast[i],
			Slow: slow[i],
			Zone: color,
			CDC:  reduceCDC(color),
		}
	}
	return infos
}

func classify(price, fast, slow float64) Color {
	bull := fast > slow
	switch {
	case bull && price > fast:
		return Green
	case !bull && price > fast && price > slow:
		return Blue
	case !bull && price > fast && price < slow:
		return LightBlue
	case !bull && price < fast:
		return Red
	case bull && price < fast && price < slow:
		return Orange
	case bull && price < fast && price > slow:
		return Yellow
	default:
		return None
	}
}

func reduceCDC(c Color) CDCColor {
	switch c {
	case Green:
		return CDCGreen
	case Red:
		return CDCRed
	default:
		return CDCNone
	}
}
