// Package rules evaluates the four entry rules over zone-decorated candle
// series: a BLUE→GREEN color transition on both timeframes, a leading red bar
// behind a green close, a leading signal (momentum flip plus higher low), and
// a base-building pattern check where a V-shape blocks entry.
package rules

import (
	"fmt"

	"cdc-zone-bot/internal/market"
	"cdc-zone-bot/internal/patterns"
	"cdc-zone-bot/internal/swing"
	"cdc-zone-bot/internal/zone"
)

// Result is the outcome of a single rule check.
type Result struct {
	Passed   bool
	Reason   string
	Metadata map[string]any
}

// Params tunes the rule thresholds.
type Params struct {
	TransitionLookback      int
	LeadRedMinBars          int
	LeadRedMaxBars          int
	LeadingMomentumLookback int
	HigherLowMinDiffPct     float64
	HigherLowMaxBarsBetween int
	SwingLookbackForLow     int
	WWindowBars             int
}

// DefaultParams returns the strategy defaults.
func DefaultParams() Params {
	return Params{
		TransitionLookback:      5,
		LeadRedMinBars:          1,
		LeadRedMaxBars:          20,
		LeadingMomentumLookback: 3,
		HigherLowMinDiffPct:     0.002,
		HigherLowMaxBarsBetween: 20,
		SwingLookbackForLow:     50,
		WWindowBars:             30,
	}
}

// AllResult aggregates the four rule outcomes.
type AllResult struct {
	AllPassed       bool
	ColorTransition Result
	LeadingRed      Result
	LeadingSignal   Result
	Pattern         Result
	PatternTag      patterns.Tag
	Summary         map[string]bool
}

// findTransition reports the most recent blue-to-green zone flip within the
// last lookback bar pairs.
func findTransition(zones []zone.Info, lookback int) (bool, int, zone.Color) {
	if len(zones) < 2 {
		return false, 0, zone.None
	}
	start := len(zones) - lookback
	if start < 1 {
		start = 1
	}
	for i := len(zones) - 1; i >= start; i-- {
		prev := zones[i-1].Zone
		if (prev == zone.Blue || prev == zone.LightBlue) && zones[i].Zone == zone.Green {
			return true, len(zones) - 1 - i, prev
		}
	}
	return false, 0, zone.None
}

// CheckColorTransition requires a BLUE→GREEN transition on both timeframes
// within the lookback window. The higher timeframe is checked first.
func CheckColorTransition(ltfZones, htfZones []zone.Info, lookback int) Result {
	htfFound, htfBarsAgo, htfFrom := findTransition(htfZones, lookback)
	ltfFound, ltfBarsAgo, ltfFrom := findTransition(ltfZones, lookback)

	meta := map[string]any{
		"htf_transition": transitionMeta(htfFound, htfBarsAgo, htfFrom),
		"ltf_transition": transitionMeta(ltfFound, ltfBarsAgo, ltfFrom),
	}

	if !htfFound {
		return Result{
			Passed:   false,
			Reason:   fmt.Sprintf("HTF has no BLUE→GREEN transition in last %d bars", lookback),
			Metadata: meta,
		}
	}
	if !ltfFound {
		return Result{
			Passed:   false,
			Reason:   fmt.Sprintf("LTF has no BLUE→GREEN transition in last %d bars", lookback),
			Metadata: meta,
		}
	}
	return Result{
		Passed:   true,
		Reason:   "Both HTF and LTF have BLUE→GREEN transition",
		Metadata: meta,
	}
}

func transitionMeta(found bool, barsAgo int, from zone.Color) map[string]any {
	if !found {
		return map[string]any{"found": false}
	}
	return map[string]any{
		"found":     true,
		"bars_ago":  barsAgo,
		"from_zone": string(from),
	}
}

// CheckLeadingRed requires the current CDC color to be green on both
// timeframes and a red CDC bar in the lower timeframe within the inclusive
// [minBars, maxBars] lookback window.
func CheckLeadingRed(ltfZones, htfZones []zone.Info, minBars, maxBars int) Result {
	if len(ltfZones) == 0 || len(htfZones) == 0 {
		return Result{
			Passed:   false,
			Reason:   "Insufficient candle data",
			Metadata: map[string]any{"ltf_count": len(ltfZones), "htf_count": len(htfZones)},
		}
	}

	htfColor := htfZones[len(htfZones)-1].CDC
	if htfColor != zone.CDCGreen {
		return Result{
			Passed:   false,
			Reason:   fmt.Sprintf("HTF is not GREEN (current: %s)", htfColor),
			Metadata: map[string]any{"htf_color": string(htfColor)},
		}
	}

	ltfColor := ltfZones[len(ltfZones)-1].CDC
	if ltfColor != zone.CDCGreen {
		return Result{
			Passed:   false,
			Reason:   fmt.Sprintf("LTF current bar is not GREEN (current: %s)", ltfColor),
			Metadata: map[string]any{"ltf_color": string(ltfColor)},
		}
	}

	lookbackStart := len(ltfZones) - maxBars - 1
	if lookbackStart < 0 {
		lookbackStart = 0
	}
	lookbackEnd := len(ltfZones) - minBars - 1
	if lookbackEnd < 0 {
		lookbackEnd = 0
	}

	var redBarsAgo []int
	for i := lookbackStart; i <= lookbackEnd && i < len(ltfZones); i++ {
		if ltfZones[i].CDC == zone.CDCRed {
			redBarsAgo = append(redBarsAgo, len(ltfZones)-1-i)
		}
	}

	if len(redBarsAgo) == 0 {
		return Result{
			Passed: false,
			Reason: fmt.Sprintf("No RED bars found in LTF within [%d, %d] bars", minBars, maxBars),
			Metadata: map[string]any{
				"window_start": minBars,
				"window_end":   maxBars,
			},
		}
	}

	closest := redBarsAgo[0]
	for _, b := range redBarsAgo {
		if b < closest {
			closest = b
		}
	}

	return Result{
		Passed: true,
		Reason: fmt.Sprintf("Leading RED found %d bars ago", closest),
		Metadata: map[string]any{
			"red_bars_ago": redBarsAgo,
			"closest_red":  closest,
			"htf_color":    string(htfColor),
			"ltf_color":    string(ltfColor),
		},
	}
}

// CheckMomentumFlip requires the MACD histogram to cross from negative to
// non-negative within the lookback window.
func CheckMomentumFlip(macdHistogram []float64, lookback int) Result {
	if len(macdHistogram) < 2 {
		return Result{
			Passed:   false,
			Reason:   "Insufficient MACD histogram data",
			Metadata: map[string]any{"count": len(macdHistogram)},
		}
	}

	lookbackStart := len(macdHistogram) - lookback - 1
	if lookbackStart < 0 {
		lookbackStart = 0
	}

	for i := lookbackStart; i < len(macdHistogram)-1; i++ {
		prev := macdHistogram[i]
		curr := macdHistogram[i+1]
		if prev < 0 && curr >= 0 {
			barsAgo := len(macdHistogram) - 2 - i
			return Result{
				Passed: true,
				Reason: fmt.Sprintf("Momentum flip found %d bars ago", barsAgo),
				Metadata: map[string]any{
					"bars_ago":   barsAgo,
					"prev_value": prev,
					"curr_value": curr,
				},
			}
		}
	}

	return Result{
		Passed:   false,
		Reason:   fmt.Sprintf("No momentum flip in last %d bars", lookback),
		Metadata: map[string]any{"lookback": lookback},
	}
}

// CheckHigherLow requires two recent swing lows where the newer one sits at
// least minDiffPct above the older one, no more than maxBarsBetween apart.
func CheckHigherLow(candles market.Series, minDiffPct float64, maxBarsBetween, swingLookback int) Result {
	if len(candles) < 10 {
		return Result{
			Passed:   false,
			Reason:   "Insufficient candle data for swing detection",
			Metadata: map[string]any{"count": len(candles)},
		}
	}

	recent := candles
	if len(candles) > swingLookback {
		recent = candles[len(candles)-swingLookback:]
	}
	swingLows := swing.FindLows(recent, swing.DefaultWindow)

	if len(swingLows) < 2 {
		return Result{
			Passed:   false,
			Reason:   fmt.Sprintf("Need at least 2 swing lows, found %d", len(swingLows)),
			Metadata: map[string]any{"swing_count": len(swingLows)},
		}
	}

	for i := len(swingLows) - 1; i >= 1; i-- {
		low2 := swingLows[i]
		low1 := swingLows[i-1]

		barsBetween := low2.Index - low1.Index
		if barsBetween > maxBarsBetween {
			continue
		}

		if low2.Price > low1.Price {
			diffPct := (low2.Price - low1.Price) / low1.Price
			if diffPct >= minDiffPct {
				return Result{
					Passed: true,
					Reason: fmt.Sprintf("Higher low found: %.2f -> %.2f (%.2f%%)", low1.Price, low2.Price, diffPct*100),
					Metadata: map[string]any{
						"low1_price":   low1.Price,
						"low2_price":   low2.Price,
						"diff_pct":     diffPct,
						"bars_between": barsBetween,
					},
				}
			}
		}
	}

	return Result{
		Passed:   false,
		Reason:   "No valid higher low pattern found",
		Metadata: map[string]any{"swing_lows_count": len(swingLows)},
	}
}

// EvaluateAll runs the four rules. Rule 3 and rule 4 honor their enable
// flags; a disabled rule passes with a marker reason.
func EvaluateAll(ltfCandles market.Series, ltfZones, htfZones []zone.Info, macdHistogram []float64, params Params, enableLeadingSignal, enableWShapeFilter bool) AllResult {
	rule1 := CheckColorTransition(ltfZones, htfZones, params.TransitionLookback)

	rule2 := CheckLeadingRed(ltfZones, htfZones, params.LeadRedMinBars, params.LeadRedMaxBars)

	var rule3 Result
	if !enableLeadingSignal {
		rule3 = Result{
			Passed:   true,
			Reason:   "Leading signal check disabled",
			Metadata: map[string]any{"enabled": false},
		}
	} else {
		momentum := CheckMomentumFlip(macdHistogram, params.LeadingMomentumLookback)
		higherLow := CheckHigherLow(ltfCandles, params.HigherLowMinDiffPct, params.HigherLowMaxBarsBetween, params.SwingLookbackForLow)

		if momentum.Passed && higherLow.Passed {
			rule3 = Result{
				Passed: true,
				Reason: "Both momentum flip and higher low detected",
				Metadata: map[string]any{
					"momentum":   momentum.Metadata,
					"higher_low": higherLow.Metadata,
				},
			}
		} else {
			var missing string
			switch {
			case !momentum.Passed && !higherLow.Passed:
				missing = "momentum flip, higher low"
			case !momentum.Passed:
				missing = "momentum flip"
			default:
				missing = "higher low"
			}
			rule3 = Result{
				Passed: false,
				Reason: fmt.Sprintf("Leading signal incomplete: missing %s", missing),
				Metadata: map[string]any{
					"momentum_passed":   momentum.Passed,
					"higher_low_passed": higherLow.Passed,
					"momentum_reason":   momentum.Reason,
					"higher_low_reason": higherLow.Reason,
				},
			}
		}
	}

	var rule4 Result
	tag := patterns.NoneTag
	if !enableWShapeFilter {
		rule4 = Result{
			Passed:   true,
			Reason:   "W-shape filter disabled",
			Metadata: map[string]any{"enabled": false},
		}
	} else {
		classifier := patterns.NewClassifier()
		classifier.WWindowBars = params.WWindowBars
		pr := classifier.Classify(ltfCandles)
		tag = pr.Tag
		rule4 = Result{
			Passed:   pr.Passed,
			Reason:   pr.Reason,
			Metadata: patternMeta(pr),
		}
	}

	allPassed := rule1.Passed && rule2.Passed && rule3.Passed && rule4.Passed

	return AllResult{
		AllPassed:       allPassed,
		ColorTransition: rule1,
		LeadingRed:      rule2,
		LeadingSignal:   rule3,
		Pattern:         rule4,
		PatternTag:      tag,
		Summary: map[string]bool{
			"rule_1_cdc_green":      rule1.Passed,
			"rule_2_leading_red":    rule2.Passed,
			"rule_3_leading_signal": rule3.Passed,
			"rule_4_pattern":        rule4.Passed,
			"all_passed":            allPassed,
		},
	}
}

func patternMeta(pr patterns.Result) map[string]any {
	meta := map[string]any{"pattern": string(pr.Tag)}
	details := map[string]any{}
	if pr.W != nil {
		details["low1"] = pr.W.Low1
		details["mid_high"] = pr.W.MidHigh
		details["low2"] = pr.W.Low2
		details["leg1_bars"] = pr.W.Leg1Bars
		details["leg2_bars"] = pr.W.Leg2Bars
		details["height_diff_pct"] = pr.W.HeightDiffPct
	}
	if pr.V != nil {
		details["drop_pct"] = pr.V.DropPct
		details["recovery_pct"] = pr.V.RecoveryPct
		details["drop_bars"] = pr.V.DropBars
		details["recovery_bars"] = pr.V.RecoveryBars
	}
	meta["details"] = details
	return meta
}
