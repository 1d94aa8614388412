// Package indicators implements the moving-average, RSI and MACD series
// math consumed by the trading strategies. All functions return only the
// defined portion of a series: the caller aligns tails by length.
package indicators

// SMASeries calculates the simple moving average over a sliding window.
// The result has len(values)-period+1 entries; nil when there is not enough
// data.
func SMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMASeries calculates the exponential moving average, seeded with the SMA
// of the first period values. The result has len(values)-period+1 entries.
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	mult := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	ema := seed
	for _, v := range values[period:] {
		ema = (v-ema)*mult + ema
		out = append(out, ema)
	}
	return out
}

// RSISeries calculates the Relative Strength Index with Wilder smoothing.
// The result has len(values)-period entries; nil when there is not enough
// data for a single value.
func RSISeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period+1 {
		return nil
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta >= 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	out := make([]float64, 0, len(values)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta >= 0 {
			avgGain = (avgGain*float64(period-1) + delta) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - delta) / float64(period)
		}
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDSeries calculates the MACD line and its signal line. Both returned
// slices have the same length and are aligned to the most recent value;
// both are nil when there is not enough data for a single signal value.
func MACDSeries(values []float64, fastPeriod, slowPeriod, signalPeriod int) (macd, signal []float64) {
	if fastPeriod <= 0 || slowPeriod <= fastPeriod || signalPeriod <= 0 {
		return nil, nil
	}
	if len(values) < slowPeriod+signalPeriod-1 {
		return nil, nil
	}

	emaFast := EMASeries(values, fastPeriod)
	emaSlow := EMASeries(values, slowPeriod)

	// The MACD line is defined from the point the slow EMA exists.
	line := make([]float64, len(emaSlow))
	offset := len(emaFast) - len(emaSlow)
	for i := range emaSlow {
		line[i] = emaFast[i+offset] - emaSlow[i]
	}

	signal = EMASeries(line, signalPeriod)
	macd = line[len(line)-len(signal):]
	return macd, signal
}
