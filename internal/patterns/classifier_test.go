package patterns

import (
	"testing"
	"time"

	"cdc-zone-bot/internal/market"
)

// basingSeries builds 30 candles of sideways action with two higher swing
// lows (100 at index 5, 101 at index 13) separated by a swing high (104 at
// index 9), followed by a sharp dip to 90 at index 24 that recovers into the
// final close.
func basingSeries() market.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	closes := make([]float64, 30)
	lows := make([]float64, 30)
	highs := make([]float64, 30)
	for i := range closes {
		closes[i] = 102.5
		lows[i] = 102.0
		highs[i] = 103.0
	}

	lows[5] = 100.0  // first swing low
	highs[9] = 104.0 // swing high between the lows
	lows[13] = 101.0 // higher second swing low

	// V-dip: two bars down to 90, five bars back up
	dipCloses := []float64{97, 91, 95, 98, 100, 101.5, 102.5}
	dipLows := []float64{96.5, 90, 94.5, 97.5, 99.5, 101}
	for i, c := range dipCloses {
		closes[23+i] = c
	}
	for i, l := range dipLows {
		lows[23+i] = l
	}

	series := make(market.Series, 30)
	for i := range series {
		series[i] = market.Candle{
			OpenTime: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:     102.5,
			High:     highs[i],
			Low:      lows[i],
			Close:    closes[i],
			Volume:   1000,
		}
	}
	return series
}

// TestClassifyWShape tests W detection with the default thresholds. The
// default V window cannot match this dip (the low sits too far back), so the
// two higher swing lows around the 104 high classify as a W.
func TestClassifyWShape(t *testing.T) {
	res := NewClassifier().Classify(basingSeries())

	if res.Tag != WShape {
		t.Fatalf("Expected tag %s, got %s", WShape, res.Tag)
	}
	if !res.Passed {
		t.Error("Expected a W-shape to permit entry")
	}
	if res.W == nil {
		t.Fatal("Expected W details")
	}
	if res.V != nil {
		t.Error("Expected no V details on a W classification")
	}

	if res.W.Low1 != 100 {
		t.Errorf("Expected low1 100, got %f", res.W.Low1)
	}
	if res.W.MidHigh != 104 {
		t.Errorf("Expected mid high 104, got %f", res.W.MidHigh)
	}
	if res.W.Low2 != 101 {
		t.Errorf("Expected low2 101, got %f", res.W.Low2)
	}
	if res.W.Leg1Bars != 4 || res.W.Leg2Bars != 4 {
		t.Errorf("Expected 4-bar legs, got %d and %d", res.W.Leg1Bars, res.W.Leg2Bars)
	}
	if res.W.HeightDiffPct != (104.0-100.0)/100.0 {
		t.Errorf("Expected height diff 0.04, got %f", res.W.HeightDiffPct)
	}
	if res.W.Low2VsLow1Pct != (101.0-100.0)/100.0 {
		t.Errorf("Expected higher low diff 0.01, got %f", res.W.Low2VsLow1Pct)
	}
}

// TestClassifyVShapeWinsOverW tests V-over-W precedence: shrinking the V
// window so the dip low lands within the drop limit flips the same series
// from a passing W to a failing V.
func TestClassifyVShapeWinsOverW(t *testing.T) {
	c := NewClassifier()
	c.VWindowBars = 8
	c.VMaxDropBars = 4
	c.VMaxRecoveryBars = 5

	res := c.Classify(basingSeries())

	if res.Tag != VShape {
		t.Fatalf("Expected tag %s, got %s", VShape, res.Tag)
	}
	if res.Passed {
		t.Error("Expected a V-shape to veto entry")
	}
	if res.V == nil {
		t.Fatal("Expected V details")
	}

	if res.V.StartPrice != 102.5 {
		t.Errorf("Expected start price 102.5, got %f", res.V.StartPrice)
	}
	if res.V.LowestPrice != 90 {
		t.Errorf("Expected lowest price 90, got %f", res.V.LowestPrice)
	}
	if res.V.EndPrice != 102.5 {
		t.Errorf("Expected end price 102.5, got %f", res.V.EndPrice)
	}
	if res.V.DropBars != 2 {
		t.Errorf("Expected 2 drop bars, got %d", res.V.DropBars)
	}
	if res.V.RecoveryBars != 5 {
		t.Errorf("Expected 5 recovery bars, got %d", res.V.RecoveryBars)
	}
	if res.V.DropPct != (102.5-90.0)/102.5 {
		t.Errorf("Expected drop pct %f, got %f", (102.5-90.0)/102.5, res.V.DropPct)
	}
	if res.V.RecoveryPct != (102.5-90.0)/90.0 {
		t.Errorf("Expected recovery pct %f, got %f", (102.5-90.0)/90.0, res.V.RecoveryPct)
	}
}

// TestClassifyShortSeries tests that a series shorter than both windows
// carries no tag and permits entry.
func TestClassifyShortSeries(t *testing.T) {
	res := NewClassifier().Classify(basingSeries()[:10])

	if res.Tag != NoneTag {
		t.Errorf("Expected tag %s, got %s", NoneTag, res.Tag)
	}
	if !res.Passed {
		t.Error("Expected an untagged series to permit entry")
	}
	if res.W != nil || res.V != nil {
		t.Error("Expected no pattern details")
	}
}

// TestClassifyFlatSeries tests that featureless candles produce no pattern.
func TestClassifyFlatSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(market.Series, 30)
	for i := range series {
		series[i] = market.Candle{
			OpenTime: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:     100, High: 101, Low: 99, Close: 100, Volume: 1000,
		}
	}

	res := NewClassifier().Classify(series)

	if res.Tag != NoneTag {
		t.Errorf("Expected tag %s, got %s", NoneTag, res.Tag)
	}
	if !res.Passed {
		t.Error("Expected a flat series to permit entry")
	}
}
