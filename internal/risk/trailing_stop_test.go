package risk

import "testing"

// TestTrailingStopLifecycle walks a stop through its full life: dormant
// below activation, trailing the body midpoint once engaged, and firing on
// a breach of the raised stop.
func TestTrailingStopLifecycle(t *testing.T) {
	ts := NewTrailingStop(90, 100)

	if ts.Stop() != 90 {
		t.Errorf("Expected initial stop 90, got %f", ts.Stop())
	}
	if ts.ActivationPrice() != 100 {
		t.Errorf("Expected activation price 100, got %f", ts.ActivationPrice())
	}
	if ts.Activated() {
		t.Error("Expected a fresh stop to be dormant")
	}
	if ts.Hit(85) {
		t.Error("Expected no hit while dormant")
	}

	// Low just under activation plus the 5% buffer
	if ts.CheckActivation(104.9) {
		t.Error("Expected activation to require the buffer")
	}

	mid := (100.0 + 110.0) / 2
	stop := ts.Advance(100, 110)
	if want := mid * (1 - TrailingDistancePct); stop != want {
		t.Errorf("Expected stop %f, got %f", want, stop)
	}

	if !ts.CheckActivation(105.1) {
		t.Error("Expected activation once the buffer is cleared")
	}
	if ts.Hit(98) {
		t.Error("Expected no hit above the stop")
	}
	if !ts.Hit(97) {
		t.Error("Expected a hit at the stop")
	}

	// A weaker candle must not lower the stop
	before := ts.Stop()
	if stop := ts.Advance(90, 92); stop != before {
		t.Errorf("Expected stop to hold at %f, got %f", before, stop)
	}
}

// TestTrailingStopAdvanceBeforeActivation tests that the stop ratchets up
// while dormant but still cannot fire.
func TestTrailingStopAdvanceBeforeActivation(t *testing.T) {
	ts := NewTrailingStop(80, 1000)

	mid := (100.0 + 110.0) / 2
	stop := ts.Advance(100, 110)
	if want := mid * (1 - TrailingDistancePct); stop != want {
		t.Errorf("Expected stop %f, got %f", want, stop)
	}
	if ts.Hit(50) {
		t.Error("Expected no hit before activation")
	}
}

// TestFallbackActivation tests the activation level used when no wave
// structure exists at entry.
func TestFallbackActivation(t *testing.T) {
	if got := FallbackActivation(100); got != 100*(1+FallbackActivationPct) {
		t.Errorf("Expected %f, got %f", 100*(1+FallbackActivationPct), got)
	}
}
