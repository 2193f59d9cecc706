// Package swing finds fractal swing points: local price extrema that are
// strictly more extreme than every neighbor within a half-width window on
// both sides.
package swing

import (
	"time"

	"cdc-zone-bot/internal/market"
)

// DefaultWindow is the fractal half-width used by the trading rules.
const DefaultWindow = 2

// Point is a detected local extremum.
type Point struct {
	Index     int
	Timestamp time.Time
	Price     float64
	IsHigh    bool
}

// FindLows returns the swing lows of the series in index order. Index i is a
// swing low iff its low is strictly below the low of each of the window
// candles on both sides; edge indices without enough neighbors are excluded.
func FindLows(candles market.Series, window int) []Point {
	var points []Point
	for i := window; i < len(candles)-window; i++ {
		if isSwingLow(candles, i, window) {
			points = append(points, Point{
				Index:     i,
				Timestamp: candles[i].OpenTime,
				Price:     candles[i].Low,
				IsHigh:    false,
			})
		}
	}
	return points
}

// FindHighs returns the swing highs of the series in index order, symmetric
// to FindLows.
func FindHighs(candles market.Series, window int) []Point {
	var points []Point
	for i := window; i < len(candles)-window; i++ {
		if isSwingHigh(candles, i, window) {
			points = append(points, Point{
				Index:     i,
				Timestamp: candles[i].OpenTime,
				Price:     candles[i].High,
				IsHigh:    true,
			})
		}
	}
	return points
}

func isSwingLow(candles market.Series, i, window int) bool {
	for j := 1; j <= window; j++ {
		if candles[i].Low >= candles[i-j].Low || candles[i].Low >= candles[i+j].Low {
			return false
		}
	}
	return true
}

func isSwingHigh(candles market.Series, i, window int) bool {
	for j := 1; j <= window; j++ {
		if candles[i].High <= candles[i-j].High || candles[i].High <= candles[i+j].High {
			return false
		}
	}
	return true
}
