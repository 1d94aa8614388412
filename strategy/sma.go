package strategy

import (
	"bitget-trader/indicators"
	"bitget-trader/internal/constants"
	"bitget-trader/models"
)

// SMACrossover signals on short/long simple moving average crossovers.
type SMACrossover struct {
	ShortPeriod int
	LongPeriod  int
}

// NewSMACrossover creates the crossover strategy; non-positive periods fall
// back to the 9/21 defaults.
func NewSMACrossover(shortPeriod, longPeriod int) *SMACrossover {
	if shortPeriod <= 0 {
		shortPeriod = constants.DefaultSMAShortPeriod
	}
	if longPeriod <= 0 {
		longPeriod = constants.DefaultSMALongPeriod
	}
	return &SMACrossover{ShortPeriod: shortPeriod, LongPeriod: longPeriod}
}

// Name implements Strategy.
func (s *SMACrossover) Name() string { return "SMA Crossover" }

// Analyze compares the two most recent short/long average pairs. A bullish
// crossover (short moves above long) is a buy, a bearish one a sell. At
// least LongPeriod+1 closes are required for two pairs.
func (s *SMACrossover) Analyze(candles []models.Candle) models.Analysis {
	prices := closes(candles)

	short := indicators.SMASeries(prices, s.ShortPeriod)
	long := indicators.SMASeries(prices, s.LongPeriod)
	if len(long) < 2 || len(short) < 2 {
		return neutral()
	}

	curShort, prevShort := short[len(short)-1], short[len(short)-2]
	curLong, prevLong := long[len(long)-1], long[len(long)-2]

	return models.Analysis{
		Signal: crossSignal(prevShort, prevLong, curShort, curLong),
		Values: map[string]float64{
			"shortSMA": curShort,
			"longSMA":  curLong,
		},
	}
}
