// Package models defines the shared data types for the trading bot:
// candles, signals, positions, bot configuration and the events a running
// bot emits towards the control layer.
package models

import (
	"errors"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a bot config carries a zero or negative
// order amount.
var ErrInvalidAmount = errors.New("order amount must be positive")

// Signal is the outcome of a strategy analysis pass.
type Signal string

const (
	SignalBuy     Signal = "buy"
	SignalSell    Signal = "sell"
	SignalNeutral Signal = "neutral"
)

// Candle represents a single OHLCV data point. Timestamp is milliseconds
// since epoch, matching the exchange wire format.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Analysis is the per-tick strategy output: the signal plus the indicator
// readings that produced it, keyed by indicator name for the dashboard.
type Analysis struct {
	Signal Signal             `json:"signal"`
	Values map[string]float64 `json:"values,omitempty"`
}

// Position is an open long position owned by exactly one bot. Stop-loss and
// take-profit prices are derived from the entry price when the position is
// opened and never change afterwards.
type Position struct {
	ID              string          `json:"id"`
	Symbol          string          `json:"symbol"`
	Side            string          `json:"side"`
	EntryPrice      decimal.Decimal `json:"entryPrice"`
	Amount          decimal.Decimal `json:"amount"`
	StopLossPrice   decimal.Decimal `json:"stopLossPrice"`
	TakeProfitPrice decimal.Decimal `json:"takeProfitPrice"`
	OpenedAt        time.Time       `json:"openedAt"`
}

// StrategyParams carries the tunables for every strategy kind; zero fields
// fall back to the conventional defaults.
type StrategyParams struct {
	ShortPeriod  int     `json:"shortPeriod,omitempty"`
	LongPeriod   int     `json:"longPeriod,omitempty"`
	Period       int     `json:"period,omitempty"`
	Overbought   float64 `json:"overbought,omitempty"`
	Oversold     float64 `json:"oversold,omitempty"`
	FastPeriod   int     `json:"fastPeriod,omitempty"`
	SlowPeriod   int     `json:"slowPeriod,omitempty"`
	SignalPeriod int     `json:"signalPeriod,omitempty"`
}

// BotConfig holds the per-bot trading parameters. A config is an immutable
// snapshot: updates replace the whole value, never individual fields.
type BotConfig struct {
	Symbol         string          `json:"symbol" validate:"required"`
	Interval       string          `json:"interval" validate:"required"`
	Strategy       string          `json:"strategy" validate:"required,oneof=sma rsi macd"`
	StrategyParams StrategyParams  `json:"strategyParams"`
	Amount         decimal.Decimal `json:"amount"`
	Enabled        bool            `json:"enabled"`
	StopLoss       float64         `json:"stopLoss" validate:"gte=0,lte=1"`
	TakeProfit     float64         `json:"takeProfit" validate:"gte=0,lte=1"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate checks the config for structural problems before it is handed to
// a bot. The amount check is done by hand: validator only sees the converted
// float for tagged fields and the zero value would pass a gte tag.
func (c BotConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !c.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// EventType identifies the kind of event a running bot emitted.
type EventType string

const (
	EventStatus EventType = "status"
	EventUpdate EventType = "update"
	EventTrade  EventType = "trade"
	EventError  EventType = "error"
	EventConfig EventType = "config"
)

// TradeKind distinguishes why an order was placed.
type TradeKind string

const (
	TradeBuy        TradeKind = "buy"
	TradeSell       TradeKind = "sell"
	TradeStopLoss   TradeKind = "stop_loss"
	TradeTakeProfit TradeKind = "take_profit"
)

// Event is a single notification from a running bot to its observers.
// Only the fields relevant to Type are populated.
type Event struct {
	Type      EventType        `json:"type"`
	BotID     string           `json:"botId,omitempty"`
	Time      time.Time        `json:"time"`
	Status    string           `json:"status,omitempty"`
	Candle    *Candle          `json:"candle,omitempty"`
	Analysis  *Analysis        `json:"analysis,omitempty"`
	Positions []Position       `json:"positions,omitempty"`
	TradeKind TradeKind        `json:"tradeKind,omitempty"`
	Position  *Position        `json:"position,omitempty"`
	Profit    *decimal.Decimal `json:"profit,omitempty"`
	Err       string           `json:"error,omitempty"`
	Config    *BotConfig       `json:"config,omitempty"`
}

// EventHandler receives events from a bot. Tick events arrive on the bot's
// loop goroutine in tick order; status and config events arrive on the
// goroutine driving the lifecycle call. Handlers must not block.
type EventHandler func(Event)
