// Package risk holds per-trade stop management: the structural cutloss
// derived from the last contiguous red-zone run, and a trailing stop that
// follows the candle body midpoint once price clears its activation level.
package risk

// Trailing stop tuning. The stop trails 7% below the candle body midpoint,
// engages once a low clears the activation price by 5%, and the fallback
// activation sits 7.5% above entry when no wave structure is available.
const (
	TrailingDistancePct   = 0.07
	ActivationBufferPct   = 0.05
	FallbackActivationPct = 0.075

	DefaultCutlossLookback = 30
)

// TrailingStop tracks the trailing stop for one long trade.
//
// The stop held here is always the one in force for the current candle: the
// engine checks hits before calling Advance, so every candle is judged
// against the stop computed on the previous candle (one-candle lag).
type TrailingStop struct {
	activation float64
	activated  bool
	stop       float64
}

// NewTrailingStop starts a trailing stop at the structural stop price with
// the given activation level.
func NewTrailingStop(initialStop, activationPrice float64) *TrailingStop {
	return &TrailingStop{
		activation: activationPrice,
		stop:       initialStop,
	}
}

// FallbackActivation returns the activation price used when no wave
// structure can be traced at entry.
func FallbackActivation(entryPrice float64) float64 {
	return entryPrice * (1 + FallbackActivationPct)
}

// Stop returns the stop price in force for the current candle.
func (t *TrailingStop) Stop() float64 { return t.stop }

// ActivationPrice returns the configured activation level.
func (t *TrailingStop) ActivationPrice() float64 { return t.activation }

// Activated reports whether trailing has engaged.
func (t *TrailingStop) Activated() bool { return t.activated }

// Hit reports whether the candle low breaches the stop in force. Only an
// activated stop can be hit.
func (t *TrailingStop) Hit(low float64) bool {
	return t.activated && low <= t.stop
}

// CheckActivation engages trailing once a candle low clears the activation
// price plus buffer, and reports the resulting state.
func (t *TrailingStop) CheckActivation(low float64) bool {
	if !t.activated && low >= t.activation*(1+ActivationBufferPct) {
		t.activated = true
	}
	return t.activated
}

// Advance recomputes the stop from this candle's body midpoint. The stop
// only ever rises. The returned value takes effect on the next candle.
func (t *TrailingStop) Advance(open, close float64) float64 {
	candidate := (open + close) / 2 * (1 - TrailingDistancePct)
	if candidate > t.stop {
		t.stop = candidate
	}
	return t.stop
}
