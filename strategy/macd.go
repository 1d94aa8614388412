package strategy

import (
	"bitget-trader/indicators"
	"bitget-trader/internal/constants"
	"bitget-trader/models"
)

// MACDCrossover signals on crossings of the MACD line and its signal line.
type MACDCrossover struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

// NewMACDCrossover creates the MACD strategy; non-positive periods fall back
// to the 12/26/9 defaults.
func NewMACDCrossover(fastPeriod, slowPeriod, signalPeriod int) *MACDCrossover {
	if fastPeriod <= 0 {
		fastPeriod = constants.DefaultMACDFastPeriod
	}
	if slowPeriod <= 0 {
		slowPeriod = constants.DefaultMACDSlowPeriod
	}
	if signalPeriod <= 0 {
		signalPeriod = constants.DefaultMACDSignalPeriod
	}
	return &MACDCrossover{FastPeriod: fastPeriod, SlowPeriod: slowPeriod, SignalPeriod: signalPeriod}
}

// Name implements Strategy.
func (s *MACDCrossover) Name() string { return "MACD Strategy" }

// Analyze signals a buy when the MACD line crosses above its signal line
// and a sell on the opposite crossing. Two MACD/signal pairs are required.
func (s *MACDCrossover) Analyze(candles []models.Candle) models.Analysis {
	macd, signal := indicators.MACDSeries(closes(candles), s.FastPeriod, s.SlowPeriod, s.SignalPeriod)
	if len(macd) < 2 || len(signal) < 2 {
		return neutral()
	}

	curMACD, prevMACD := macd[len(macd)-1], macd[len(macd)-2]
	curSig, prevSig := signal[len(signal)-1], signal[len(signal)-2]

	return models.Analysis{
		Signal: crossSignal(prevMACD, prevSig, curMACD, curSig),
		Values: map[string]float64{
			"macd":      curMACD,
			"signal":    curSig,
			"histogram": curMACD - curSig,
		},
	}
}
