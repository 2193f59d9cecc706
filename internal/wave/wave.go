// Package wave reconstructs the three-point swing structure (low1 → high →
// low2) behind an entry by walking EMA-trend zones backward from the entry
// bar. The engine consumes a single scalar from it: the 100% projection above
// low2, used as the trailing-stop activation price.
package wave

import (
	"time"

	"cdc-zone-bot/internal/market"
	"cdc-zone-bot/internal/swing"
	"cdc-zone-bot/internal/zone"
)

// Level is a single Fibonacci level derived from a wave.
type Level struct {
	Ratio float64
	Price float64
	Label string
}

// Pattern is a three-point wave with its derived Fibonacci levels.
type Pattern struct {
	Low1 swing.Point
	High swing.Point
	Low2 swing.Point

	Retracements []Level
	Projections  []Level
}

// ActivationPrice returns the 100% projection of the first leg above low2.
func (p Pattern) ActivationPrice() float64 {
	return p.Low2.Price + (p.High.Price - p.Low1.Price)
}

var retracementRatios = []struct {
	ratio float64
	label string
}{
	{0.0, "0%"},
	{0.236, "23.6%"},
	{0.382, "38.2%"},
	{0.5, "50%"},
	{0.618, "61.8%"},
	{0.786, "78.6%"},
	{0.887, "88.7%"},
	{0.942, "94.2%"},
	{1.0, "100%"},
}

var projectionRatios = []struct {
	ratio float64
	label string
}{
	{0.382, "38.2%"},
	{0.618, "61.8%"},
	{1.0, "100%"},
	{1.618, "161.8%"},
	{2.618, "261.8%"},
}

// RetracementLevels returns standard retracement levels measured down from
// high toward low.
func RetracementLevels(low, high float64) []Level {
	priceRange := high - low
	levels := make([]Level, 0, len(retracementRatios))
	for _, r := range retracementRatios {
		levels = append(levels, Level{
			Ratio: r.ratio,
			Price: high - priceRange*r.ratio,
			Label: r.label,
		})
	}
	return levels
}

// ProjectionLevels returns uptrend projection levels: the low1→high range
// extended above low2.
func ProjectionLevels(low1, high, low2 float64) []Level {
	waveRange := high - low1
	levels := make([]Level, 0, len(projectionRatios))
	for _, r := range projectionRatios {
		levels = append(levels, Level{
			Ratio: r.ratio,
			Price: low2 + waveRange*r.ratio,
			Label: r.label,
		})
	}
	return levels
}

// Trace walks EMA-trend zones backward from the entry bar: it skips the
// bullish zone holding the entry, takes the lowest low of the bearish zone
// before it (low2), the highest high of the bullish zone before that (high)
// and the lowest low of the bearish zone before that (low1). low1 must sit
// strictly below low2 or no wave is reported. zones must be parallel to
// candles.
func Trace(candles market.Series, zones []zone.Info, entryTime time.Time) (Pattern, bool) {
	entryIdx := -1
	for i := len(candles) - 1; i >= 0; i-- {
		if !candles[i].OpenTime.After(entryTime) {
			entryIdx = i
			break
		}
	}
	if entryIdx < 10 {
		return Pattern{}, false
	}

	bullEntryStart, _, ok := findTrendZone(zones, entryIdx, true)
	if !ok {
		return Pattern{}, false
	}

	bear2Start, bear2End, ok := findTrendZone(zones, bullEntryStart-1, false)
	if !ok {
		return Pattern{}, false
	}
	low2 := lowestIn(candles, bear2Start, bear2End)

	bullStart, bullEnd, ok := findTrendZone(zones, bear2Start-1, true)
	if !ok {
		return Pattern{}, false
	}
	high := highestIn(candles, bullStart, bullEnd)

	bear1Start, bear1End, ok := findTrendZone(zones, bullStart-1, false)
	if !ok {
		return Pattern{}, false
	}
	low1 := lowestIn(candles, bear1Start, bear1End)

	if low1.Price >= low2.Price {
		return Pattern{}, false
	}

	return Pattern{
		Low1:         low1,
		High:         high,
		Low2:         low2,
		Retracements: RetracementLevels(low2.Price, high.Price),
		Projections:  ProjectionLevels(low1.Price, high.Price, low2.Price),
	}, true
}

// findTrendZone locates the contiguous run of the requested EMA trend at or
// before start, scanning backward.
func findTrendZone(zones []zone.Info, start int, bullish bool) (int, int, bool) {
	end := -1
	for i := start; i >= 0; i-- {
		if zones[i].Bullish() == bullish {
			end = i
			break
		}
	}
	if end == -1 {
		return 0, 0, false
	}

	zoneStart := end
	for i := end; i >= 0; i-- {
		if zones[i].Bullish() != bullish {
			break
		}
		zoneStart = i
	}
	return zoneStart, end, true
}

func lowestIn(candles market.Series, start, end int) swing.Point {
	best := swing.Point{Index: end, Timestamp: candles[end].OpenTime, Price: candles[end].Low}
	for i := end - 1; i >= start; i-- {
		if candles[i].Low < best.Price {
			best = swing.Point{Index: i, Timestamp: candles[i].OpenTime, Price: candles[i].Low}
		}
	}
	return best
}

func highestIn(candles market.Series, start, end int) swing.Point {
	best := swing.Point{Index: end, Timestamp: candles[end].OpenTime, Price: candles[end].High, IsHigh: true}
	for i := end - 1; i >= start; i-- {
		if candles[i].High > best.Price {
			best = swing.Point{Index: i, Timestamp: candles[i].OpenTime, Price: candles[i].High, IsHigh: true}
		}
	}
	return best
}
