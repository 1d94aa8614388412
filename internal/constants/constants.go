package constants

// Order sides
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order types
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// Strategy kinds
const (
	StrategySMA  = "sma"
	StrategyRSI  = "rsi"
	StrategyMACD = "macd"
)

// Default strategy parameters
const (
	DefaultSMAShortPeriod   = 9
	DefaultSMALongPeriod    = 21
	DefaultRSIPeriod        = 14
	DefaultRSIOverbought    = 70
	DefaultRSIOversold      = 30
	DefaultMACDFastPeriod   = 12
	DefaultMACDSlowPeriod   = 26
	DefaultMACDSignalPeriod = 9
)

// Bot loop tuning
const (
	MaxCandleHistory    = 100
	FetchBackoffSeconds = 10
)
