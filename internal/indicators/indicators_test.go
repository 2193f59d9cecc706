package indicators

import (
	"math"
	"testing"
)

// TestCalculateEMASeedsWithFirstValue tests that the EMA starts at the first
// input value instead of an SMA warmup. Period 3 gives alpha 0.5, so every
// expected value is exact in floating point.
func TestCalculateEMASeedsWithFirstValue(t *testing.T) {
	ema := CalculateEMA([]float64{2, 4, 6, 8}, 3)

	expected := []float64{2, 3, 4.5, 6.25}
	if len(ema) != len(expected) {
		t.Fatalf("Expected %d values, got %d", len(expected), len(ema))
	}
	for i, want := range expected {
		if ema[i] != want {
			t.Errorf("Expected EMA[%d] = %f, got %f", i, want, ema[i])
		}
	}
}

// TestCalculateEMAEmpty tests that an empty input yields nil.
func TestCalculateEMAEmpty(t *testing.T) {
	if out := CalculateEMA(nil, 12); out != nil {
		t.Errorf("Expected nil for empty input, got %d values", len(out))
	}
}

// TestCalculateRSIWarmup tests the NaN warmup and the all-gains ceiling: a
// strictly rising series has zero average loss, so RSI pins at 100 once the
// warmup ends.
func TestCalculateRSIWarmup(t *testing.T) {
	closes := make([]float64, 16)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	rsi := CalculateRSI(closes, 14)

	if len(rsi) != 16 {
		t.Fatalf("Expected 16 values, got %d", len(rsi))
	}
	for i := 0; i < 14; i++ {
		if !math.IsNaN(rsi[i]) {
			t.Errorf("Expected NaN at warmup index %d, got %f", i, rsi[i])
		}
	}
	if rsi[14] != 100 {
		t.Errorf("Expected RSI 100 at index 14, got %f", rsi[14])
	}
	if rsi[15] != 100 {
		t.Errorf("Expected RSI 100 at index 15, got %f", rsi[15])
	}
}

// TestCalculateRSIWilderSmoothing tests Wilder smoothing on a short series
// with period 2, where the averages stay exact. Gains are [1, 0, 1] and
// losses [0, 0.5, 0]: the seed averages are 0.5/0.25 and the smoothed
// averages 0.75/0.125.
func TestCalculateRSIWilderSmoothing(t *testing.T) {
	rsi := CalculateRSI([]float64{10, 11, 10.5, 11.5}, 2)

	if !math.IsNaN(rsi[0]) || !math.IsNaN(rsi[1]) {
		t.Error("Expected NaN below the period index")
	}

	want2 := 100.0 - 100.0/(1.0+2.0) // rs = 0.5/0.25
	if math.Abs(rsi[2]-want2) > 1e-9 {
		t.Errorf("Expected RSI[2] = %f, got %f", want2, rsi[2])
	}
	want3 := 100.0 - 100.0/(1.0+6.0) // rs = 0.75/0.125
	if math.Abs(rsi[3]-want3) > 1e-9 {
		t.Errorf("Expected RSI[3] = %f, got %f", want3, rsi[3])
	}
}

// TestCalculateRSIShortSeries tests that a series shorter than period+1 is
// all NaN.
func TestCalculateRSIShortSeries(t *testing.T) {
	rsi := CalculateRSI([]float64{100, 101, 102}, 14)

	if len(rsi) != 3 {
		t.Fatalf("Expected 3 values, got %d", len(rsi))
	}
	for i, v := range rsi {
		if !math.IsNaN(v) {
			t.Errorf("Expected NaN at index %d, got %f", i, v)
		}
	}
}

// TestCalculateMACDHistogramFlat tests that a flat series produces a zero
// histogram: both EMAs sit on the price, so the MACD line and its signal
// are identically zero.
func TestCalculateMACDHistogramFlat(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}

	hist := CalculateMACDHistogram(closes)

	if len(hist) != 30 {
		t.Fatalf("Expected 30 values, got %d", len(hist))
	}
	for i, v := range hist {
		if v != 0 {
			t.Errorf("Expected 0 at index %d, got %f", i, v)
		}
	}
}

// TestCalculateMACDHistogramRising tests the first step after a price jump.
// The fast EMA moves by 20/13 and the slow by 20/27; the 9-period signal
// absorbs a fifth of the difference, leaving 0.8 of it in the histogram.
func TestCalculateMACDHistogramRising(t *testing.T) {
	hist := CalculateMACDHistogram([]float64{100, 110})

	if len(hist) != 2 {
		t.Fatalf("Expected 2 values, got %d", len(hist))
	}
	if hist[0] != 0 {
		t.Errorf("Expected 0 at index 0, got %f", hist[0])
	}
	want := 0.8 * (20.0/13.0 - 20.0/27.0)
	if math.Abs(hist[1]-want) > 1e-9 {
		t.Errorf("Expected %f at index 1, got %f", want, hist[1])
	}
}
