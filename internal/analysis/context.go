// Package analysis summarizes recent market conditions alongside a backtest
// report. Nothing here feeds entries or exits; the numbers exist to put a
// run's trades in context.
package analysis

import (
	"math"

	"cdc-zone-bot/internal/market"

	"github.com/markcheno/go-talib"
)

// TrendDirection represents market trend
type TrendDirection string

const (
	TrendBullish  TrendDirection = "bullish"
	TrendBearish  TrendDirection = "bearish"
	TrendSideways TrendDirection = "sideways"
)

// MarketContext summarizes the tail of a candle series.
type MarketContext struct {
	Pair          string
	Candles       int
	LastClose     float64
	Trend         TrendDirection
	TrendStrength float64 // 0.0 to 1.0
	RSI           float64
	ATR           float64
	ATRPct        float64 // ATR relative to last close
	MomentumPct   float64 // Close change over the momentum window
	VolumeRatio   float64 // Last volume vs its moving average
	RangeHigh     float64
	RangeLow      float64
}

// ContextAnalyzer computes market context snapshots.
type ContextAnalyzer struct {
	emaFast        int
	emaSlow        int
	rsiPeriod      int
	atrPeriod      int
	momentumPeriod int
	volumeWindow   int
}

// NewContextAnalyzer creates an analyzer with the standard periods.
func NewContextAnalyzer() *ContextAnalyzer {
	return &ContextAnalyzer{
		emaFast:        12,
		emaSlow:        26,
		rsiPeriod:      14,
		atrPeriod:      14,
		momentumPeriod: 10,
		volumeWindow:   20,
	}
}

// Analyze summarizes the series tail. Returns nil when the series is too
// short for the slow EMA.
func (ca *ContextAnalyzer) Analyze(pair string, candles market.Series) *MarketContext {
	if len(candles) <= ca.emaSlow {
		return nil
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	fast := talib.Ema(closes, ca.emaFast)
	slow := talib.Ema(closes, ca.emaSlow)
	rsi := talib.Rsi(closes, ca.rsiPeriod)
	atr := talib.Atr(highs, lows, closes, ca.atrPeriod)
	momentum := talib.Mom(closes, ca.momentumPeriod)
	volumeSMA := talib.Sma(volumes, ca.volumeWindow)

	last := len(candles) - 1
	mc := &MarketContext{
		Pair:      pair,
		Candles:   len(candles),
		LastClose: closes[last],
		RSI:       rsi[last],
		ATR:       atr[last],
	}

	if closes[last] > 0 {
		mc.ATRPct = atr[last] / closes[last] * 100
	}

	base := closes[last] - momentum[last]
	if base > 0 {
		mc.MomentumPct = momentum[last] / base * 100
	}

	if last >= ca.volumeWindow && volumeSMA[last] > 0 {
		mc.VolumeRatio = volumes[last] / volumeSMA[last]
	}

	// Trend from the EMA pair separation
	var gapPct float64
	if slow[last] > 0 {
		gapPct = (fast[last] - slow[last]) / slow[last]
	}
	switch {
	case gapPct > 0.001:
		mc.Trend = TrendBullish
	case gapPct < -0.001:
		mc.Trend = TrendBearish
	default:
		mc.Trend = TrendSideways
	}
	mc.TrendStrength = math.Min(1.0, math.Abs(gapPct)*20)

	mc.RangeHigh, mc.RangeLow = tailRange(highs, lows, ca.volumeWindow)

	return mc
}

// tailRange reports the high-low envelope of the last window bars.
func tailRange(highs, lows []float64, window int) (float64, float64) {
	start := len(highs) - window
	if start < 0 {
		start = 0
	}

	high := highs[start]
	low := lows[start]
	for i := start + 1; i < len(highs); i++ {
		if highs[i] > high {
			high = highs[i]
		}
		if lows[i] < low {
			low = lows[i]
		}
	}
	return high, low
}
