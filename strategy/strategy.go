// Package strategy implements the signal generators a bot can run: a simple
// moving-average crossover, an RSI threshold cross and a MACD line/signal
// crossover. Strategies are pure: the same candle window always produces the
// same signal, and a window too short for the indicator yields neutral.
package strategy

import (
	"fmt"

	"bitget-trader/internal/constants"
	"bitget-trader/models"
)

// Strategy turns a candle window into a trading signal.
type Strategy interface {
	Name() string
	Analyze(candles []models.Candle) models.Analysis
}

// New builds a strategy from its kind identifier with the given tunables.
func New(kind string, p models.StrategyParams) (Strategy, error) {
	switch kind {
	case constants.StrategySMA:
		return NewSMACrossover(p.ShortPeriod, p.LongPeriod), nil
	case constants.StrategyRSI:
		return NewRSIThreshold(p.Period, p.Overbought, p.Oversold), nil
	case constants.StrategyMACD:
		return NewMACDCrossover(p.FastPeriod, p.SlowPeriod, p.SignalPeriod), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind: %q", kind)
	}
}

// closes extracts the closing prices from a candle window.
func closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func neutral() models.Analysis {
	return models.Analysis{Signal: models.SignalNeutral}
}

// crossSignal applies the shared crossing rule: the comparison is inclusive
// on the previous pair and strict on the current one, so a flat touch counts
// as the trigger tick, not the tick before it.
func crossSignal(prevA, prevB, curA, curB float64) models.Signal {
	if prevA <= prevB && curA > curB {
		return models.SignalBuy
	}
	if prevA >= prevB && curA < curB {
		return models.SignalSell
	}
	return models.SignalNeutral
}
