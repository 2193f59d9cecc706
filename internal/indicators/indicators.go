// Package indicators provides the moving-average and oscillator math used by
// the zone classifier, rule evaluator, and divergence detector. The EMA here
// is seeded with the first value (not an SMA warmup) and the RSI uses Wilder
// smoothing with a NaN-padded warmup; both must stay aligned with the chart
// logic the strategy was tuned against.
package indicators

import "math"

// DefaultRSIPeriod is the lookback used for RSI when none is configured.
const DefaultRSIPeriod = 14

// CalculateEMA calculates an exponential moving average seeded with the
// first value. The result is aligned index-for-index with the input.
func CalculateEMA(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	ema := values[0]
	out[0] = ema
	for i := 1; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
		out[i] = ema
	}
	return out
}

// CalculateRSI calculates the Wilder-smoothed relative strength index.
// The result is aligned with closes; indices below period are NaN (warmup).
func CalculateRSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) < period+1 {
		return out
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gains[i-1] = math.Max(change, 0)
		losses[i-1] = math.Max(-change, 0)
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out[period] = rsiValue(avgGain, avgLoss)
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		out[i+1] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// CalculateMACDHistogram calculates the MACD histogram (MACD line minus its
// signal line) with 12/26/9 periods, aligned with the input closes.
func CalculateMACDHistogram(closes []float64) []float64 {
	if len(closes) == 0 {
		return nil
	}

	emaFast := CalculateEMA(closes, 12)
	emaSlow := CalculateEMA(closes, 26)

	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = emaFast[i] - emaSlow[i]
	}

	signal := CalculateEMA(macdLine, 9)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = macdLine[i] - signal[i]
	}
	return hist
}
