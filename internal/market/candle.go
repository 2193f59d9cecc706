package market

import (
	"errors"
	"fmt"
	"time"
)

// Candle represents a single closed candlestick.
type Candle struct {
	OpenTime time.Time `json:"openTime"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Series is a time-ordered list of candles.
type Series []Candle

var (
	ErrEmptySeries        = errors.New("candle series is empty")
	ErrUnorderedSeries    = errors.New("candle series is not ordered by open time")
	ErrDuplicateTimestamp = errors.New("candle series contains duplicate timestamps")
)

// Validate checks that the series is non-empty, strictly ascending by open
// time, and free of duplicate timestamps. The signal and simulation layers
// assume these properties and do not re-check them.
func (s Series) Validate() error {
	if len(s) == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(s); i++ {
		switch {
		case s[i].OpenTime.Equal(s[i-1].OpenTime):
			return fmt.Errorf("%w: %s at index %d", ErrDuplicateTimestamp, s[i].OpenTime.Format(time.RFC3339), i)
		case s[i].OpenTime.Before(s[i-1].OpenTime):
			return fmt.Errorf("%w: index %d precedes index %d", ErrUnorderedSeries, i, i-1)
		}
	}
	return nil
}

// Closes returns the close prices in series order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Lows returns the low prices in series order.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Highs returns the high prices in series order.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// IndexAtOrBefore returns the index of the last candle whose open time does
// not exceed ts, or -1 when every candle opens after ts.
func (s Series) IndexAtOrBefore(ts time.Time) int {
	for i := len(s) - 1; i >= 0; i-- {
		if !s[i].OpenTime.After(ts) {
			return i
		}
	}
	return -1
}
