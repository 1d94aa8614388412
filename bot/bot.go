// Package bot runs the trading loop: poll the market, analyze the candle
// window with the configured strategy, execute trades on signal edges and
// enforce stop loss and take profit on open positions.
package bot

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bitget-trader/api"
	"bitget-trader/internal/constants"
	"bitget-trader/internal/utils"
	"bitget-trader/logging"
	"bitget-trader/models"
	"bitget-trader/position"
	"bitget-trader/strategy"
)

var (
	ErrAlreadyRunning = errors.New("bot is already running")
	ErrNotRunning     = errors.New("bot is not running")
)

// Exchange is the slice of the REST client the trading loop needs.
type Exchange interface {
	GetTicker(symbol string) (api.Ticker, error)
	GetCandles(symbol, period string, startTime, endTime int64, limit int) ([]models.Candle, error)
	PlaceOrder(req api.OrderRequest) (string, error)
}

// Bot is one trading loop instance. A bot owns its candle window and its
// position book; ticks run strictly one after another on a single
// goroutine.
type Bot struct {
	ID string

	exchange Exchange
	logger   logging.LoggerInterface
	book     *position.Manager
	handlers []models.EventHandler

	// lifecycle serializes Start, Stop and UpdateConfig so two callers can
	// never interleave a loop shutdown with a fresh launch.
	lifecycle sync.Mutex

	mu         sync.Mutex
	config     models.BotConfig
	strat      strategy.Strategy
	running    bool
	quit       chan struct{}
	done       chan struct{}
	lastCandle *models.Candle

	// Loop-goroutine state, never touched from outside the loop.
	candles    []models.Candle
	lastSignal models.Signal

	// backoff is the wait after a failed market data fetch. Tests shrink it.
	backoff time.Duration
}

// New creates a stopped bot for the given config.
func New(id string, cfg models.BotConfig, exchange Exchange, logger logging.LoggerInterface) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strat, err := strategy.New(cfg.Strategy, cfg.StrategyParams)
	if err != nil {
		return nil, err
	}
	return &Bot{
		ID:       id,
		exchange: exchange,
		logger:   logger,
		book:     position.NewManager(),
		config:   cfg,
		strat:    strat,
		backoff:  constants.FetchBackoffSeconds * time.Second,
	}, nil
}

// RegisterHandler subscribes to the bot's events. Tick events run on the
// loop goroutine in tick order. Status and config events run on the
// caller's goroutine, serialized by the lifecycle lock: "started" fires
// before the loop launches and "stopped" after it has exited, so they
// never interleave with that loop's tick events. Config events can land
// between ticks. Handlers must not block. Registration is only safe while
// the bot is stopped.
func (b *Bot) RegisterHandler(h models.EventHandler) {
	b.handlers = append(b.handlers, h)
}

func (b *Bot) emit(ev models.Event) {
	ev.BotID = b.ID
	ev.Time = time.Now().UTC()
	for _, h := range b.handlers {
		h(ev)
	}
}

// Config returns the current configuration snapshot.
func (b *Bot) Config() models.BotConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config
}

// Running reports whether the loop goroutine is alive.
func (b *Bot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Positions returns a copy of the open positions.
func (b *Bot) Positions() []models.Position {
	return b.book.Positions()
}

// LastCandle returns the most recently observed candle, or nil before the
// first successful tick.
func (b *Bot) LastCandle() *models.Candle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastCandle == nil {
		return nil
	}
	c := *b.lastCandle
	return &c
}

// UpdateConfig replaces the bot configuration. The running loop picks the
// new config up on its next tick.
func (b *Bot) UpdateConfig(cfg models.BotConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	strat, err := strategy.New(cfg.Strategy, cfg.StrategyParams)
	if err != nil {
		return err
	}

	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	b.mu.Lock()
	b.config = cfg
	b.strat = strat
	b.mu.Unlock()

	b.emit(models.Event{Type: models.EventConfig, Config: &cfg})
	return nil
}

// Start launches the trading loop.
func (b *Bot) Start() error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return ErrAlreadyRunning
	}
	quit := make(chan struct{})
	done := make(chan struct{})
	b.running = true
	b.quit = quit
	b.done = done
	cfg := b.config
	b.mu.Unlock()

	b.emit(models.Event{Type: models.EventStatus, Status: "started", Config: &cfg})
	go b.loop(quit, done)
	return nil
}

// Stop asks the loop to finish its current tick and waits for it to exit.
func (b *Bot) Stop() error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return ErrNotRunning
	}
	b.running = false
	quit, done := b.quit, b.done
	b.mu.Unlock()

	close(quit)
	<-done

	b.emit(models.Event{Type: models.EventStatus, Status: "stopped"})
	return nil
}

func (b *Bot) loop(quit, done chan struct{}) {
	defer close(done)

	b.seedHistory()

	for {
		delay := b.tick()
		select {
		case <-quit:
			return
		case <-time.After(delay):
		}
	}
}

// seedHistory prefills the candle window from the history endpoint so the
// first signals do not have to wait for the window to grow tick by tick. A
// failure here is harmless, the window just starts empty.
func (b *Bot) seedHistory() {
	cfg := b.Config()
	candles, err := b.exchange.GetCandles(cfg.Symbol, utils.CandlePeriod(cfg.Interval), 0, 0, constants.MaxCandleHistory)
	if err != nil {
		if b.logger != nil {
			b.logger.Warning("Bot %s: history seed failed: %v", b.ID, err)
		}
		return
	}
	if len(candles) > constants.MaxCandleHistory {
		candles = candles[len(candles)-constants.MaxCandleHistory:]
	}
	b.candles = candles
}

// tick runs one full cycle and returns how long to wait before the next
// one: the configured interval, or the fetch backoff after a market data
// failure.
func (b *Bot) tick() time.Duration {
	b.mu.Lock()
	cfg := b.config
	strat := b.strat
	b.mu.Unlock()

	ticker, err := b.exchange.GetTicker(cfg.Symbol)
	if err != nil {
		if b.logger != nil {
			b.logger.Error("Bot %s: market data fetch failed: %v", b.ID, err)
		}
		b.emit(models.Event{Type: models.EventError, Err: err.Error()})
		return b.backoff
	}

	price := ticker.Close
	candle := b.appendCandle(ticker)
	b.mu.Lock()
	b.lastCandle = &candle
	b.mu.Unlock()

	analysis := strat.Analyze(b.candles)

	if cfg.Enabled && analysis.Signal != models.SignalNeutral && analysis.Signal != b.lastSignal {
		b.executeTrade(cfg, analysis.Signal, price)
		b.lastSignal = analysis.Signal
	}

	b.checkPositions(cfg, price)

	b.emit(models.Event{
		Type:      models.EventUpdate,
		Candle:    &candle,
		Analysis:  &analysis,
		Positions: b.book.Positions(),
	})

	return utils.ParseInterval(cfg.Interval)
}

// appendCandle folds the ticker snapshot into the candle window, keeping at
// most MaxCandleHistory entries.
func (b *Bot) appendCandle(t api.Ticker) models.Candle {
	last, _ := t.Close.Float64()
	vol, _ := t.BaseVol.Float64()
	ts := t.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	candle := models.Candle{
		Timestamp: ts,
		Open:      last,
		High:      last,
		Low:       last,
		Close:     last,
		Volume:    vol,
	}

	b.candles = append(b.candles, candle)
	if len(b.candles) > constants.MaxCandleHistory {
		b.candles = b.candles[len(b.candles)-constants.MaxCandleHistory:]
	}
	return candle
}

// executeTrade places the orders for a signal edge. A buy opens one new
// position; a sell liquidates every open position whose close order
// succeeds, leaving failed ones on the book.
func (b *Bot) executeTrade(cfg models.BotConfig, signal models.Signal, price decimal.Decimal) {
	switch signal {
	case models.SignalBuy:
		orderID, err := b.placeMarketOrder(cfg.Symbol, constants.SideBuy, price, cfg.Amount)
		if err != nil {
			b.emit(models.Event{Type: models.EventError, Err: err.Error()})
			return
		}
		p := position.New(cfg.Symbol, constants.SideBuy, price, cfg.Amount, cfg.StopLoss, cfg.TakeProfit)
		if orderID != "" {
			p.ID = orderID
		}
		b.book.Open(p)
		b.emit(models.Event{Type: models.EventTrade, TradeKind: models.TradeBuy, Position: &p})

	case models.SignalSell:
		for _, p := range b.book.Positions() {
			if p.Side != constants.SideBuy {
				continue
			}
			if _, err := b.placeMarketOrder(cfg.Symbol, constants.SideSell, price, p.Amount); err != nil {
				b.emit(models.Event{Type: models.EventError, Err: err.Error()})
				continue
			}
			b.book.Remove(p.ID)
			profit := position.Profit(p, price)
			pos := p
			b.emit(models.Event{Type: models.EventTrade, TradeKind: models.TradeSell, Position: &pos, Profit: &profit})
		}
	}
}

// checkPositions closes positions whose stop loss or take profit level the
// price has reached. A position stays on the book when its close order
// fails and is retried on the next tick.
func (b *Bot) checkPositions(cfg models.BotConfig, price decimal.Decimal) {
	for _, exit := range b.book.CheckExits(price) {
		p := exit.Position
		if _, err := b.placeMarketOrder(p.Symbol, constants.SideSell, price, p.Amount); err != nil {
			if b.logger != nil {
				b.logger.Error("Bot %s: %s close failed for position %s: %v", b.ID, exit.Reason, p.ID, err)
			}
			b.emit(models.Event{Type: models.EventError, Err: err.Error()})
			continue
		}
		b.book.Remove(p.ID)
		profit := position.Profit(p, price)
		pos := p
		b.emit(models.Event{Type: models.EventTrade, TradeKind: exit.Reason, Position: &pos, Profit: &profit})
	}
}

func (b *Bot) placeMarketOrder(symbol, side string, price, amount decimal.Decimal) (string, error) {
	return b.exchange.PlaceOrder(api.OrderRequest{
		Symbol:    symbol,
		Side:      side,
		OrderType: constants.OrderTypeMarket,
		Price:     price.String(),
		Quantity:  amount.String(),
	})
}
