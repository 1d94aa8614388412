package strategy

import (
	"bitget-trader/indicators"
	"bitget-trader/internal/constants"
	"bitget-trader/models"
)

// RSIThreshold signals on RSI crossings of the oversold and overbought
// levels.
type RSIThreshold struct {
	Period     int
	Overbought float64
	Oversold   float64
}

// NewRSIThreshold creates the RSI strategy; zero parameters fall back to the
// 14/70/30 defaults.
func NewRSIThreshold(period int, overbought, oversold float64) *RSIThreshold {
	if period <= 0 {
		period = constants.DefaultRSIPeriod
	}
	if overbought == 0 {
		overbought = constants.DefaultRSIOverbought
	}
	if oversold == 0 {
		oversold = constants.DefaultRSIOversold
	}
	return &RSIThreshold{Period: period, Overbought: overbought, Oversold: oversold}
}

// Name implements Strategy.
func (s *RSIThreshold) Name() string { return "RSI Strategy" }

// Analyze signals a buy when the RSI crosses upward through the oversold
// level and a sell when it crosses downward through the overbought level.
// Two RSI values are needed, so Period+2 closes is the minimum window.
func (s *RSIThreshold) Analyze(candles []models.Candle) models.Analysis {
	rsi := indicators.RSISeries(closes(candles), s.Period)
	if len(rsi) < 2 {
		return neutral()
	}

	cur, prev := rsi[len(rsi)-1], rsi[len(rsi)-2]

	signal := models.SignalNeutral
	switch {
	case prev <= s.Oversold && cur > s.Oversold:
		signal = models.SignalBuy
	case prev >= s.Overbought && cur < s.Overbought:
		signal = models.SignalSell
	}

	return models.Analysis{
		Signal: signal,
		Values: map[string]float64{"rsi": cur},
	}
}
