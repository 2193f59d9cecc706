// Package backtest simulates the zone strategy over aligned historical
// candle series. A single forward pass over the lower timeframe drives rule
// evaluation, divergence-armed strong entries, pattern entries filled on a
// finer confirmation timeframe, and the trailing and structural exits,
// producing the trade list and its aggregate statistics.
package backtest

import (
	"time"

	"cdc-zone-bot/internal/divergence"
	"cdc-zone-bot/internal/indicators"
	"cdc-zone-bot/internal/market"
	"cdc-zone-bot/internal/patterns"
	"cdc-zone-bot/internal/risk"
	"cdc-zone-bot/internal/rules"
	"cdc-zone-bot/internal/wave"
	"cdc-zone-bot/internal/zone"
	"github.com/rs/zerolog"
)

// historicalBuffer pads the start of the confirmation series. Lower-timeframe
// candles opening earlier than the first confirmation candle minus this
// buffer fill directly on the lower timeframe instead of drilling down.
const historicalBuffer = 5 * 24 * time.Hour

// Config tunes one backtest run.
type Config struct {
	Rules               rules.Params
	EnableLeadingSignal bool
	EnableWShapeFilter  bool
	InitialCapital      float64
	BudgetFraction      float64
	TrailingStop        bool
	RSIPeriod           int
}

// DefaultConfig returns the strategy defaults: both optional rule filters
// enabled, trailing stops on, and 1% of the initial capital per trade.
func DefaultConfig() Config {
	return Config{
		Rules:               rules.DefaultParams(),
		EnableLeadingSignal: true,
		EnableWShapeFilter:  true,
		InitialCapital:      10000,
		BudgetFraction:      0.01,
		TrailingStop:        true,
		RSIPeriod:           indicators.DefaultRSIPeriod,
	}
}

// Input is one pair's aligned market data. MACDHistogram and RSI are
// optional; when nil the engine derives them from the lower-timeframe
// closes. When provided they must be aligned index-for-index with LTF.
type Input struct {
	Pair          string
	LTF           market.Series
	HTF           market.Series
	Confirmation  market.Series
	MACDHistogram []float64
	RSI           []float64
}

// Result is a finished run: the closed trades, aggregate statistics, the
// rule evaluation at the final candle, and the RSI divergences found on the
// lower timeframe.
type Result struct {
	Pair             string
	InsufficientData bool
	Trades           []TradeRecord
	Stats            Stats
	Rules            rules.AllResult
	Signals          []divergence.Signal
}

// Engine simulates the strategy over historical candles. An engine holds no
// per-run state; one instance may serve many pairs and separate instances
// may run concurrently.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// NewEngine creates a backtest engine.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: logger.With().Str("component", "BacktestEngine").Logger(),
	}
}

// Run simulates the strategy over the input series. The input is never
// mutated and the result is deterministic for identical inputs. Fewer than
// two lower-timeframe candles (or an empty higher timeframe) reports
// insufficient data instead of failing.
func (e *Engine) Run(in Input) Result {
	res := Result{Pair: in.Pair}

	if len(in.LTF) < 2 || len(in.HTF) == 0 {
		e.log.Warn().
			Str("pair", in.Pair).
			Int("ltf_candles", len(in.LTF)).
			Int("htf_candles", len(in.HTF)).
			Msg("Insufficient data for backtest")
		res.InsufficientData = true
		res.Stats = computeStats(nil, 1.0, e.cfg.InitialCapital)
		return res
	}

	ltfCloses := in.LTF.Closes()
	ltfZones := zone.Compute(ltfCloses, zone.DefaultFastPeriod, zone.DefaultSlowPeriod)
	htfZones := zone.Compute(in.HTF.Closes(), zone.DefaultFastPeriod, zone.DefaultSlowPeriod)

	macd := in.MACDHistogram
	if macd == nil {
		macd = indicators.CalculateMACDHistogram(ltfCloses)
	}
	rsi := in.RSI
	if rsi == nil {
		period := e.cfg.RSIPeriod
		if period <= 0 {
			period = indicators.DefaultRSIPeriod
		}
		rsi = indicators.CalculateRSI(ltfCloses, period)
	}

	markers := detectMarkers(in.LTF, ltfZones, rsi)
	ltfTags := patternTags(in.LTF, e.cfg.Rules.WWindowBars)

	confirmation := in.Confirmation
	var confZones []zone.Info
	var confTags []patterns.Tag
	if len(confirmation) > 0 {
		confZones = zone.Compute(confirmation.Closes(), zone.DefaultFastPeriod, zone.DefaultSlowPeriod)
		confTags = patternTags(confirmation, e.cfg.Rules.WWindowBars)
	}

	trend := make([]bool, len(ltfZones))
	for i, z := range ltfZones {
		trend[i] = z.Bullish()
	}
	res.Signals = divergence.NewDetector().Detect(rsi, in.LTF.Lows(), in.LTF.Highs(), trend)

	var (
		trades   []TradeRecord
		pos      = PositionState{Status: StatusFlat}
		equity   = 1.0
		realized float64
	)

	closeTrade := func(price float64, ts time.Time, reason ExitReason, exitCDC zone.CDCColor, openEnded bool) {
		pnlPct := (price - pos.EntryPrice) / pos.EntryPrice * 100
		pnlAmount := pos.Capital * (pnlPct / 100)
		realized += pnlAmount
		equity += pnlAmount / e.cfg.InitialCapital

		trades = append(trades, TradeRecord{
			EntryTime:       pos.EntryTime,
			EntryPrice:      pos.EntryPrice,
			ExitTime:        ts,
			ExitPrice:       price,
			PnLPct:          pnlPct,
			PnLAmount:       pnlAmount,
			InvestedAmount:  pos.Capital,
			PositionUnits:   pos.Units,
			CutlossPrice:    pos.Cutloss,
			DurationDays:    ts.Sub(pos.EntryTime).Seconds() / 86400,
			LTFColorAtEntry: pos.EntryCDC,
			LTFColorAtExit:  exitCDC,
			Rules:           pos.EntryRules,
			ExitReason:      reason,
			OpenEnded:       openEnded,
		})

		e.log.Debug().
			Str("pair", in.Pair).
			Str("reason", string(reason)).
			Float64("entry_price", pos.EntryPrice).
			Float64("exit_price", price).
			Float64("pnl_pct", pnlPct).
			Msg("Trade closed")

		pos.reset()
	}

	// enterLong opens a position at the given fill, rejecting entries whose
	// cutloss sits at or above the fill price or whose sizing comes out
	// non-positive. Rejections skip the candidate without error.
	enterLong := func(idx int, price float64, ts time.Time, cutloss float64, eval rules.AllResult) bool {
		if cutloss <= 0 || price <= cutloss {
			return false
		}
		capital := e.cfg.InitialCapital*e.cfg.BudgetFraction + realized
		if capital <= 0 {
			return false
		}
		units := capital / price
		if units <= 0 {
			return false
		}

		pos = PositionState{
			Status:       StatusLong,
			EntryPrice:   price,
			EntryTime:    ts,
			EntryIndex:   idx,
			Units:        units,
			Capital:      capital,
			Cutloss:      cutloss,
			EntryRules:   copySummary(eval.Summary),
			EntryCDC:     ltfZones[idx].CDC,
			TrendBullish: ltfZones[idx].Bullish(),
		}
		if e.cfg.TrailingStop {
			activation := risk.FallbackActivation(price)
			if pat, ok := wave.Trace(in.LTF, ltfZones, ts); ok {
				activation = pat.ActivationPrice()
			}
			pos.Trailing = risk.NewTrailingStop(cutloss, activation)
		}

		e.log.Debug().
			Str("pair", in.Pair).
			Time("entry_time", ts).
			Float64("entry_price", price).
			Float64("cutloss", cutloss).
			Msg("Position opened")
		return true
	}

	htfIdx := 0
	for idx := 2; idx < len(in.LTF); idx++ {
		candle := in.LTF[idx]
		htfIdx = alignHTF(in.HTF, candle.OpenTime, htfIdx)

		ruleEval := rules.EvaluateAll(
			in.LTF[:idx+1],
			ltfZones[:idx+1],
			htfZones[:htfIdx+1],
			macd[:idx+1],
			e.cfg.Rules,
			e.cfg.EnableLeadingSignal,
			e.cfg.EnableWShapeFilter,
		)

		historical := len(confirmation) == 0 ||
			candle.OpenTime.Before(confirmation[0].OpenTime.Add(-historicalBuffer))

		if !pos.Long() {
			// Divergence-confirmed strong entry wins the candle outright; a
			// rejected one still blocks the pattern entry.
			if markers[idx].Buy {
				enterLong(idx, candle.Close, candle.OpenTime, markers[idx].Cutloss, ruleEval)
				continue
			}

			if ltfZones[idx-2].Zone == zone.Blue && ltfZones[idx-1].Zone == zone.Green &&
				ltfZones[idx].Bullish() && ltfTags[idx] != patterns.VShape {
				if historical {
					cutloss := risk.StructuralStop(ltfZones, ltfCloses, idx, risk.DefaultCutlossLookback)
					enterLong(idx, candle.Close, candle.OpenTime, cutloss, ruleEval)
					continue
				}

				hIdx := in.HTF.IndexAtOrBefore(candle.OpenTime)
				if hIdx < 0 || !htfZones[hIdx].Bullish() {
					continue
				}

				// The confirmation fill may land on a later candle; the trade
				// stays eligible for a same-candle strong-sell close below.
				if confIdx := findBuyEntry(confirmation, confZones, confTags, candle.OpenTime); confIdx >= 0 {
					cutloss := risk.StructuralStop(ltfZones, ltfCloses, idx, risk.DefaultCutlossLookback)
					if !enterLong(idx, confirmation[confIdx].Close, confirmation[confIdx].OpenTime, cutloss, ruleEval) {
						continue
					}
				}
			}
		}

		if pos.Long() && e.cfg.TrailingStop && pos.Trailing != nil && idx > pos.EntryIndex {
			// Trend reversal closes at the candle close. A bearish entry
			// trend flipping bullish is adopted instead of exited.
			if pos.TrendBullish && !ltfZones[idx].Bullish() {
				closeTrade(candle.Close, candle.OpenTime, ExitEMACrossoverBearish, ltfZones[idx].CDC, false)
				continue
			}
			if !pos.TrendBullish && ltfZones[idx].Bullish() {
				pos.TrendBullish = true
			}

			// The stop in force was computed on the previous candle; this
			// candle's low is judged against it before any recompute.
			if pos.Trailing.Hit(candle.Low) {
				closeTrade(pos.Trailing.Stop(), candle.OpenTime, ExitTrailingStop, ltfZones[idx].CDC, false)
				continue
			}

			pos.Trailing.CheckActivation(candle.Low)
			pos.Trailing.Advance(candle.Open, candle.Close)
		}

		if pos.Long() && ltfZones[idx-2].Zone == zone.Orange && ltfZones[idx-1].Zone == zone.Red {
			var exitPrice float64
			var exitTime time.Time
			if historical || len(confirmation) == 0 {
				exitPrice = candle.Close
				exitTime = candle.OpenTime
			} else {
				start := candle.OpenTime
				if pos.EntryTime.After(start) {
					start = pos.EntryTime
				}
				confIdx := findSellExit(confirmation, confZones, start)
				if confIdx < 0 {
					continue
				}
				exitPrice = confirmation[confIdx].Close
				exitTime = confirmation[confIdx].OpenTime
			}

			reason := ExitOrangeRed
			if pos.Cutloss > 0 && exitPrice <= pos.Cutloss {
				reason = ExitStopLossSupport
				exitPrice = pos.Cutloss
			}
			closeTrade(exitPrice, exitTime, reason, ltfZones[idx].CDC, false)
			continue
		}

		if pos.Long() && markers[idx].Sell {
			closeTrade(candle.Close, candle.OpenTime, ExitStrongSell, ltfZones[idx].CDC, false)
		}
	}

	htfIdx = alignHTF(in.HTF, in.LTF[len(in.LTF)-1].OpenTime, htfIdx)
	res.Rules = rules.EvaluateAll(
		in.LTF,
		ltfZones,
		htfZones[:htfIdx+1],
		macd,
		e.cfg.Rules,
		e.cfg.EnableLeadingSignal,
		e.cfg.EnableWShapeFilter,
	)

	if pos.Long() {
		var exitPrice float64
		var exitTime time.Time
		if len(confirmation) > 0 {
			last := confirmation[len(confirmation)-1]
			exitPrice, exitTime = last.Close, last.OpenTime
		} else {
			last := in.LTF[len(in.LTF)-1]
			exitPrice, exitTime = last.Close, last.OpenTime
		}
		// The cutloss clamp caps only the price; the reason stays END_OF_DATA.
		if pos.Cutloss > 0 && exitPrice <= pos.Cutloss {
			exitPrice = pos.Cutloss
		}
		closeTrade(exitPrice, exitTime, ExitEndOfData, ltfZones[len(ltfZones)-1].CDC, true)
	}

	res.Trades = trades
	res.Stats = computeStats(trades, equity, e.cfg.InitialCapital)

	e.log.Info().
		Str("pair", in.Pair).
		Int("trades", len(trades)).
		Float64("cumulative_return_pct", res.Stats.CumulativeReturnPct).
		Msg("Backtest complete")

	return res
}

// alignHTF advances the pointer while the next higher-timeframe candle does
// not open after the lower-timeframe time.
func alignHTF(htf market.Series, ltfTime time.Time, idx int) int {
	for idx+1 < len(htf) && !htf[idx+1].OpenTime.After(ltfTime) {
		idx++
	}
	return idx
}

// findBuyEntry scans the confirmation series for the first candle at or
// after start matching the chart entry: blue then green zones behind a
// bullish candle that is not in a V-shape.
func findBuyEntry(candles market.Series, zones []zone.Info, tags []patterns.Tag, start time.Time) int {
	for i := 2; i < len(candles); i++ {
		if candles[i].OpenTime.Before(start) {
			continue
		}
		if zones[i-2].Zone == zone.Blue && zones[i-1].Zone == zone.Green &&
			zones[i].Bullish() && tags[i] != patterns.VShape {
			return i
		}
	}
	return -1
}

// findSellExit scans the confirmation series for the first candle at or
// after start that is bearish (fast EMA below slow with the close under the
// fast) or sits in the red zone.
func findSellExit(candles market.Series, zones []zone.Info, start time.Time) int {
	for i := range candles {
		if candles[i].OpenTime.Before(start) {
			continue
		}
		bearish := zones[i].Fast < zones[i].Slow && candles[i].Close < zones[i].Fast
		if bearish || zones[i].Zone == zone.Red {
			return i
		}
	}
	return -1
}

// patternTags classifies every candle from its series prefix. Indices below
// the pattern window carry no tag.
func patternTags(candles market.Series, window int) []patterns.Tag {
	classifier := patterns.NewClassifier()
	if window > 0 {
		classifier.WWindowBars = window
	}
	tags := make([]patterns.Tag, len(candles))
	for i := range candles {
		if i < window {
			tags[i] = patterns.NoneTag
			continue
		}
		tags[i] = classifier.Classify(candles[:i+1]).Tag
	}
	return tags
}

func copySummary(summary map[string]bool) map[string]bool {
	out := make(map[string]bool, len(summary))
	for k, v := range summary {
		out[k] = v
	}
	return out
}
