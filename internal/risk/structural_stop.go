package risk

import "cdc-zone-bot/internal/zone"

// StructuralStop computes the cutloss for an entry at index i: the minimum
// close of the most recent contiguous run of red-zone candles within the
// lookback window. With no red run it falls back to the minimum of the two
// closes before i, and below index 2 to 95% of the entry candle close.
func StructuralStop(zones []zone.Info, closes []float64, i, lookback int) float64 {
	stop := closes[i] * 0.95

	floor := i - lookback
	if floor < -1 {
		floor = -1
	}

	var reds []float64
	for j := i - 1; j > floor; j-- {
		if zones[j].Zone == zone.Red {
			reds = append(reds, closes[j])
		} else if len(reds) > 0 {
			break
		}
	}

	if len(reds) > 0 {
		minRed := reds[0]
		for _, c := range reds[1:] {
			if c < minRed {
				minRed = c
			}
		}
		return minRed
	}

	if i >= 2 {
		if closes[i-2] < closes[i-1] {
			return closes[i-2]
		}
		return closes[i-1]
	}

	return stop
}
