// Package patterns classifies recent price action as a W-shape base, a
// V-shape spike, or no pattern. V-shape is checked first and always takes
// precedence: a V blocks entries, a W or no pattern allows them.
package patterns

import (
	"cdc-zone-bot/internal/market"
	"cdc-zone-bot/internal/swing"
)

// Tag identifies the detected pattern.
type Tag string

const (
	WShape  Tag = "W"
	VShape  Tag = "V"
	NoneTag Tag = "NONE"
)

// Result is the typed classification outcome. Passed reports whether the
// pattern permits an entry (V fails, W and NONE pass).
type Result struct {
	Tag    Tag
	Passed bool
	Reason string
	W      *WDetail
	V      *VDetail
}

// WDetail describes a detected W-shape.
type WDetail struct {
	Low1          float64
	MidHigh       float64
	Low2          float64
	Leg1Bars      int
	Leg2Bars      int
	HeightDiffPct float64
	Low2VsLow1Pct float64
}

// VDetail describes a detected V-shape.
type VDetail struct {
	StartPrice   float64
	LowestPrice  float64
	EndPrice     float64
	DropBars     int
	RecoveryBars int
	DropPct      float64
	RecoveryPct  float64
}

// Classifier holds the pattern thresholds.
type Classifier struct {
	WWindowBars        int
	WMidHighMinDiffPct float64
	WLegMinBars        int
	WLegMaxBars        int
	WMinHigherLowPct   float64

	VWindowBars      int
	VMaxDropBars     int
	VMaxRecoveryBars int
	VMinDropPct      float64
	VMinRecoveryPct  float64
}

// NewClassifier returns a classifier with the strategy defaults.
func NewClassifier() *Classifier {
	return &Classifier{
		WWindowBars:        30,
		WMidHighMinDiffPct: 0.02,
		WLegMinBars:        3,
		WLegMaxBars:        15,
		WMinHigherLowPct:   0.0,

		VWindowBars:      15,
		VMaxDropBars:     5,
		VMaxRecoveryBars: 5,
		VMinDropPct:      0.03,
		VMinRecoveryPct:  0.03,
	}
}

// Classify evaluates the series ending at its last candle. V-shape is
// evaluated before W-shape and wins when both match.
func (c *Classifier) Classify(candles market.Series) Result {
	if v, ok := c.checkVShape(candles); ok {
		return Result{
			Tag:    VShape,
			Passed: false,
			Reason: "V-shape detected - consolidation too shallow",
			V:      v,
		}
	}

	if w, ok := c.checkWShape(candles); ok {
		return Result{
			Tag:    WShape,
			Passed: true,
			Reason: "W-shape detected - valid base building",
			W:      w,
		}
	}

	return Result{
		Tag:    NoneTag,
		Passed: true,
		Reason: "No clear W or V pattern",
	}
}

// checkVShape looks for a sharp drop to a single deepest low near the window
// start followed by a sharp recovery into the window end.
func (c *Classifier) checkVShape(candles market.Series) (*VDetail, bool) {
	if len(candles) < c.VWindowBars {
		return nil, false
	}

	recent := candles[len(candles)-c.VWindowBars:]

	lowestIdx := 0
	for i := 1; i < len(recent); i++ {
		if recent[i].Low < recent[lowestIdx].Low {
			lowestIdx = i
		}
	}
	lowestPrice := recent[lowestIdx].Low

	if lowestIdx == 0 || lowestIdx >= c.VMaxDropBars {
		return nil, false
	}

	startPrice := recent[0].Close
	dropPct := (startPrice - lowestPrice) / startPrice
	if dropPct < c.VMinDropPct {
		return nil, false
	}

	recoveryBars := len(recent) - 1 - lowestIdx
	if recoveryBars > c.VMaxRecoveryBars || recoveryBars < 1 {
		return nil, false
	}

	endPrice := recent[len(recent)-1].Close
	recoveryPct := (endPrice - lowestPrice) / lowestPrice
	if recoveryPct < c.VMinRecoveryPct {
		return nil, false
	}

	return &VDetail{
		StartPrice:   startPrice,
		LowestPrice:  lowestPrice,
		EndPrice:     endPrice,
		DropBars:     lowestIdx,
		RecoveryBars: recoveryBars,
		DropPct:      dropPct,
		RecoveryPct:  recoveryPct,
	}, true
}

// checkWShape scans consecutive swing-low pairs most-recent-first for two
// lows separated by the highest swing high between them, with both legs
// inside the configured bar range.
func (c *Classifier) checkWShape(candles market.Series) (*WDetail, bool) {
	if len(candles) < c.WWindowBars {
		return nil, false
	}

	recent := candles[len(candles)-c.WWindowBars:]
	swingLows := swing.FindLows(recent, swing.DefaultWindow)
	swingHighs := swing.FindHighs(recent, swing.DefaultWindow)

	if len(swingLows) < 2 || len(swingHighs) < 1 {
		return nil, false
	}

	for i := len(swingLows) - 1; i >= 1; i-- {
		low2 := swingLows[i]
		low1 := swingLows[i-1]

		var midHigh *swing.Point
		for j := range swingHighs {
			h := swingHighs[j]
			if low1.Index < h.Index && h.Index < low2.Index {
				if midHigh == nil || h.Price > midHigh.Price {
					midHigh = &swingHighs[j]
				}
			}
		}
		if midHigh == nil {
			continue
		}

		leg1Bars := midHigh.Index - low1.Index
		leg2Bars := low2.Index - midHigh.Index
		if leg1Bars < c.WLegMinBars || leg1Bars > c.WLegMaxBars {
			continue
		}
		if leg2Bars < c.WLegMinBars || leg2Bars > c.WLegMaxBars {
			continue
		}

		heightDiffPct := (midHigh.Price - low1.Price) / low1.Price
		if heightDiffPct < c.WMidHighMinDiffPct {
			continue
		}

		low2VsLow1Pct := (low2.Price - low1.Price) / low1.Price
		if low2VsLow1Pct < c.WMinHigherLowPct {
			continue
		}

		return &WDetail{
			Low1:          low1.Price,
			MidHigh:       midHigh.Price,
			Low2:          low2.Price,
			Leg1Bars:      leg1Bars,
			Leg2Bars:      leg2Bars,
			HeightDiffPct: heightDiffPct,
			Low2VsLow1Pct: low2VsLow1Pct,
		}, true
	}

	return nil, false
}
