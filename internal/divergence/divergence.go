// Package divergence detects RSI divergences with a zone state machine. A
// reference extreme is recorded when RSI leaves the extreme band, then a later
// visit to the near band that prints a weaker oscillator reading against a
// more extreme price confirms the divergence. Bullish and bearish detection
// run as two independent instances of the same machine.
package divergence

// Type marks the direction of a detected divergence.
type Type string

const (
	Bullish Type = "bullish"
	Bearish Type = "bearish"
)

// Zone thresholds and the minimum candle distance between the reference
// extreme and the confirming near-zone visit.
const (
	OversoldThreshold       = 30.0
	NearOversoldThreshold   = 35.0
	OverboughtThreshold     = 70.0
	NearOverboughtThreshold = 65.0
	MinCandlesBetweenZones  = 10

	midline = 50.0
)

// ZonePoint is a candle that printed inside an extreme or near RSI zone.
type ZonePoint struct {
	Index int
	RSI   float64
	Price float64
}

// Signal is a confirmed divergence between a reference extreme and a later
// near-zone visit.
type Signal struct {
	Type            Type
	StartIndex      int
	EndIndex        int
	RSIStart        float64
	RSIEnd          float64
	PriceStart      float64
	PriceEnd        float64
	DistanceCandles int
}

// machine is the state for one divergence direction. The bullish machine
// watches the oversold bands against lows during bearish trend; the bearish
// machine mirrors it over the overbought bands against highs during bullish
// trend.
type machine struct {
	typ          Type
	extremeLimit float64
	nearLimit    float64
	overbought   bool

	extreme      []ZonePoint
	near         []ZonePoint
	ref          *ZonePoint
	refFavorable bool
	waiting      bool
}

func (m *machine) inExtreme(rsi float64) bool {
	if m.overbought {
		return rsi > m.extremeLimit
	}
	return rsi < m.extremeLimit
}

func (m *machine) inNear(rsi float64) bool {
	if m.overbought {
		return rsi >= m.nearLimit
	}
	return rsi <= m.nearLimit
}

func (m *machine) pastMidline(rsi float64) bool {
	if m.overbought {
		return rsi < midline
	}
	return rsi > midline
}

// stronger reports whether RSI value a marks a more extreme reading than b.
func (m *machine) stronger(a, b float64) bool {
	if m.overbought {
		return a > b
	}
	return a < b
}

// pickExtreme returns the most extreme point of the buffer by RSI.
func (m *machine) pickExtreme(points []ZonePoint) ZonePoint {
	best := points[0]
	for _, p := range points[1:] {
		if m.stronger(p.RSI, best.RSI) {
			best = p
		}
	}
	return best
}

// pickAdversePrice returns the most adverse price of the buffer: the lowest
// low for the bullish machine, the highest high for the bearish one.
func (m *machine) pickAdversePrice(points []ZonePoint) float64 {
	best := points[0].Price
	for _, p := range points[1:] {
		if m.overbought {
			if p.Price > best {
				best = p.Price
			}
		} else if p.Price < best {
			best = p.Price
		}
	}
	return best
}

func (m *machine) reset() {
	m.ref = nil
	m.refFavorable = false
	m.near = nil
	m.waiting = false
}

// step advances the machine by one candle. price is the low for the bullish
// machine and the high for the bearish one. favorable reports whether the
// candle trend runs against the divergence direction (bearish trend for
// bullish divergence and vice versa).
func (m *machine) step(i int, rsi, price float64, favorable bool) *Signal {
	if m.inExtreme(rsi) {
		m.extreme = append(m.extreme, ZonePoint{Index: i, RSI: rsi, Price: price})
	} else if len(m.extreme) > 0 {
		best := m.pickExtreme(m.extreme)
		if m.ref == nil || m.stronger(best.RSI, m.ref.RSI) {
			m.ref = &best
			m.refFavorable = favorable
		}
		m.extreme = nil
		m.waiting = true
		m.near = nil
	}

	// A stronger extreme while waiting replaces the reference.
	if m.waiting && m.inExtreme(rsi) && favorable {
		if m.ref == nil || m.stronger(rsi, m.ref.RSI) {
			m.ref = &ZonePoint{Index: i, RSI: rsi, Price: price}
			m.refFavorable = true
			m.near = nil
		}
	}

	if m.waiting && m.refFavorable && !favorable {
		m.reset()
	}

	if m.waiting && m.inNear(rsi) && favorable {
		m.near = append(m.near, ZonePoint{Index: i, RSI: rsi, Price: price})
	} else if m.waiting && len(m.near) > 0 && !m.inNear(rsi) {
		nearBest := m.pickExtreme(m.near)

		if m.ref != nil && nearBest.Index-m.ref.Index < MinCandlesBetweenZones {
			m.near = nil
			return nil
		}

		if m.ref != nil && m.refFavorable {
			if !m.stronger(m.ref.RSI, nearBest.RSI) {
				// Near zone reached an equal or stronger extreme, adopt it.
				m.ref = &nearBest
				m.refFavorable = true
			} else {
				refPrice := m.ref.Price
				currPrice := m.pickAdversePrice(m.near)
				adverse := currPrice < refPrice
				if m.overbought {
					adverse = currPrice > refPrice
				}
				if adverse {
					sig := &Signal{
						Type:            m.typ,
						StartIndex:      m.ref.Index,
						EndIndex:        nearBest.Index,
						RSIStart:        m.ref.RSI,
						RSIEnd:          nearBest.RSI,
						PriceStart:      refPrice,
						PriceEnd:        currPrice,
						DistanceCandles: nearBest.Index - m.ref.Index,
					}
					m.reset()
					return sig
				}
			}
		}

		m.near = nil
	}

	if m.waiting && m.pastMidline(rsi) {
		m.reset()
	}

	return nil
}

// Detector runs the bullish and bearish machines side by side.
type Detector struct {
	bullish machine
	bearish machine
}

// NewDetector returns a detector with empty state for both directions.
func NewDetector() *Detector {
	return &Detector{
		bullish: machine{
			typ:          Bullish,
			extremeLimit: OversoldThreshold,
			nearLimit:    NearOversoldThreshold,
		},
		bearish: machine{
			typ:          Bearish,
			extremeLimit: OverboughtThreshold,
			nearLimit:    NearOverboughtThreshold,
			overbought:   true,
		},
	}
}

// Step feeds one candle to both machines and returns any signals confirmed on
// this candle. trendBullish is the candle trend (fast EMA above slow).
func (d *Detector) Step(i int, rsi, low, high float64, trendBullish bool) []Signal {
	var out []Signal
	if sig := d.bullish.step(i, rsi, low, !trendBullish); sig != nil {
		out = append(out, *sig)
	}
	if sig := d.bearish.step(i, rsi, high, trendBullish); sig != nil {
		out = append(out, *sig)
	}
	return out
}

// Detect runs both machines over full aligned series. Inputs shorter than 30
// candles yield no signals.
func (d *Detector) Detect(rsi, lows, highs []float64, trendBullish []bool) []Signal {
	var signals []Signal
	if len(rsi) < 30 {
		return signals
	}
	for i := range rsi {
		signals = append(signals, d.Step(i, rsi[i], lows[i], highs[i], trendBullish[i])...)
	}
	return signals
}
