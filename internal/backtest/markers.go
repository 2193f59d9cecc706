package backtest

import (
	"math"

	"cdc-zone-bot/internal/market"
	"cdc-zone-bot/internal/risk"
	"cdc-zone-bot/internal/zone"
)

// Marker is a per-candle overlay produced by the strong-signal scan: a
// divergence arms a direction, and the first matching zone afterward fires
// the marker. BUY markers carry the structural cutloss for the entry.
type Marker struct {
	Buy     bool
	Sell    bool
	Cutloss float64
}

type extremePoint struct {
	index int
	rsi   float64
	price float64
}

// detectMarkers scans the decorated series for strong BUY/SELL signals.
// Bullish arming: a finished oversold visit whose minimum RSI sits above the
// previous visit's while its lowest low undercuts it. A later blue-zone
// candle fires BUY. Bearish mirrors over the overbought band, additionally
// requiring a bullish EMA trend at the arming candle, and fires SELL on an
// orange-zone candle. Candles without a defined RSI are skipped.
func detectMarkers(candles market.Series, zones []zone.Info, rsi []float64) []Marker {
	markers := make([]Marker, len(candles))
	closes := candles.Closes()

	var bullishBuffer []extremePoint
	var bullishPrev *extremePoint
	bullishActive := false

	var bearishBuffer []extremePoint
	var bearishPrev *extremePoint
	bearishActive := false

	for i := range candles {
		if i >= len(rsi) || math.IsNaN(rsi[i]) {
			continue
		}
		r := rsi[i]
		info := zones[i]

		if !bullishActive {
			if r < divergenceOversold {
				bullishBuffer = append(bullishBuffer, extremePoint{index: i, rsi: r, price: candles[i].Low})
			} else if len(bullishBuffer) > 0 {
				lowest := bullishBuffer[0]
				for _, p := range bullishBuffer[1:] {
					if p.rsi < lowest.rsi {
						lowest = p
					}
				}
				if bullishPrev != nil && lowest.rsi > bullishPrev.rsi {
					currLow := bullishBuffer[0].price
					for _, p := range bullishBuffer[1:] {
						if p.price < currLow {
							currLow = p.price
						}
					}
					if currLow < bullishPrev.price {
						bullishActive = true
					}
				}
				bullishPrev = &lowest
				bullishBuffer = nil
			}
		}
		if bullishActive && info.Zone == zone.Blue {
			markers[i].Buy = true
			markers[i].Cutloss = risk.StructuralStop(zones, closes, i, risk.DefaultCutlossLookback)
			bullishActive = false
			bullishPrev = nil
		}

		if !bearishActive {
			if r > divergenceOverbought {
				bearishBuffer = append(bearishBuffer, extremePoint{index: i, rsi: r, price: candles[i].High})
			} else if len(bearishBuffer) > 0 {
				highest := bearishBuffer[0]
				for _, p := range bearishBuffer[1:] {
					if p.rsi > highest.rsi {
						highest = p
					}
				}
				if bearishPrev != nil && highest.rsi < bearishPrev.rsi {
					currHigh := bearishBuffer[0].price
					for _, p := range bearishBuffer[1:] {
						if p.price > currHigh {
							currHigh = p.price
						}
					}
					if currHigh > bearishPrev.price && info.Bullish() {
						bearishActive = true
					}
				}
				bearishPrev = &highest
				bearishBuffer = nil
			}
		}
		if bearishActive && info.Zone == zone.Orange {
			markers[i].Sell = true
			bearishActive = false
			bearishPrev = nil
		}
	}

	return markers
}

const (
	divergenceOversold   = 30.0
	divergenceOverbought = 70.0
)
