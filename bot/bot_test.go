package bot

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitget-trader/api"
	"bitget-trader/internal/constants"
	"bitget-trader/models"
	"bitget-trader/position"
)

type fakeExchange struct {
	mu        sync.Mutex
	price     decimal.Decimal
	tickerErr error
	seed      []models.Candle
	seedErr   error
	orders    []api.OrderRequest
	orderErrs map[int]error // 1-based PlaceOrder call number -> error
	ticked    chan struct{}
}

func newFakeExchange(price string) *fakeExchange {
	return &fakeExchange{
		price:     decimal.RequireFromString(price),
		orderErrs: map[int]error{},
	}
}

func (f *fakeExchange) GetTicker(symbol string) (api.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ticked != nil {
		select {
		case f.ticked <- struct{}{}:
		default:
		}
	}
	if f.tickerErr != nil {
		return api.Ticker{}, f.tickerErr
	}
	return api.Ticker{Symbol: symbol, Close: f.price, Timestamp: time.Now().UnixMilli()}, nil
}

func (f *fakeExchange) GetCandles(symbol, period string, startTime, endTime int64, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seed, f.seedErr
}

func (f *fakeExchange) PlaceOrder(req api.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if err := f.orderErrs[len(f.orders)]; err != nil {
		return "", err
	}
	return fmt.Sprintf("order-%d", len(f.orders)), nil
}

func (f *fakeExchange) setPrice(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = decimal.RequireFromString(p)
}

func (f *fakeExchange) placedOrders() []api.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.OrderRequest, len(f.orders))
	copy(out, f.orders)
	return out
}

// stubStrategy serves a scripted signal sequence, then neutral forever.
type stubStrategy struct {
	signals []models.Signal
	i       int
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) Analyze([]models.Candle) models.Analysis {
	if s.i >= len(s.signals) {
		return models.Analysis{Signal: models.SignalNeutral}
	}
	sig := s.signals[s.i]
	s.i++
	return models.Analysis{Signal: sig}
}

func testBotConfig() models.BotConfig {
	return models.BotConfig{
		Symbol:     "BTCUSDT_SPBL",
		Interval:   "1m",
		Strategy:   constants.StrategySMA,
		Amount:     decimal.RequireFromString("0.01"),
		Enabled:    true,
		StopLoss:   0.05,
		TakeProfit: 0.10,
	}
}

// eventRecorder collects events; safe because handlers run on one
// goroutine at a time.
type eventRecorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *eventRecorder) handle(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) ofType(t models.EventType) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *eventRecorder) trades(kind models.TradeKind) []models.Event {
	var out []models.Event
	for _, ev := range r.ofType(models.EventTrade) {
		if ev.TradeKind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func newTestBot(t *testing.T, exch Exchange, signals ...models.Signal) (*Bot, *eventRecorder) {
	t.Helper()
	b, err := New("test-bot", testBotConfig(), exch, nil)
	require.NoError(t, err)
	b.strat = &stubStrategy{signals: signals}
	rec := &eventRecorder{}
	b.RegisterHandler(rec.handle)
	return b, rec
}

func TestTickTradesOnlyOnSignalEdges(t *testing.T) {
	exch := newFakeExchange("100")
	b, rec := newTestBot(t, exch,
		models.SignalNeutral,
		models.SignalBuy,
		models.SignalBuy,
		models.SignalBuy,
		models.SignalSell,
		models.SignalSell,
	)

	for i := 0; i < 6; i++ {
		b.tick()
	}

	orders := exch.placedOrders()
	require.Len(t, orders, 2, "one buy on the edge, one sell closing it")
	assert.Equal(t, constants.SideBuy, orders[0].Side)
	assert.Equal(t, constants.SideSell, orders[1].Side)

	assert.Len(t, rec.trades(models.TradeBuy), 1)
	assert.Len(t, rec.trades(models.TradeSell), 1)
	assert.Zero(t, b.book.Len())
}

func TestTickBuyOpensPositionWithProtectiveLevels(t *testing.T) {
	exch := newFakeExchange("100")
	b, rec := newTestBot(t, exch, models.SignalBuy)

	b.tick()

	positions := b.Positions()
	require.Len(t, positions, 1)
	p := positions[0]
	assert.Equal(t, "order-1", p.ID, "position id follows the exchange order id")
	assert.True(t, p.StopLossPrice.Equal(decimal.RequireFromString("95")))
	assert.True(t, p.TakeProfitPrice.Equal(decimal.RequireFromString("110")))

	trades := rec.trades(models.TradeBuy)
	require.Len(t, trades, 1)
	assert.Equal(t, p.ID, trades[0].Position.ID)
}

func TestTickDisabledBotNeverTrades(t *testing.T) {
	exch := newFakeExchange("100")
	b, rec := newTestBot(t, exch, models.SignalBuy, models.SignalSell)
	cfg := b.Config()
	cfg.Enabled = false
	require.NoError(t, b.UpdateConfig(cfg))
	b.strat = &stubStrategy{signals: []models.Signal{models.SignalBuy, models.SignalSell}}

	b.tick()
	b.tick()

	assert.Empty(t, exch.placedOrders())
	assert.Empty(t, rec.ofType(models.EventTrade))
	// Updates still flow so the dashboard keeps drawing.
	assert.Len(t, rec.ofType(models.EventUpdate), 2)
}

func TestTickSellKeepsPositionsWhoseCloseFailed(t *testing.T) {
	exch := newFakeExchange("100")
	b, rec := newTestBot(t, exch, models.SignalSell)

	var ids []string
	for i := 0; i < 3; i++ {
		p := position.New("BTCUSDT_SPBL", constants.SideBuy, decimal.RequireFromString("90"), decimal.RequireFromString("0.01"), 0, 0)
		b.book.Open(p)
		ids = append(ids, p.ID)
	}
	exch.orderErrs[2] = errors.New("insufficient balance")

	b.tick()

	remaining := b.Positions()
	require.Len(t, remaining, 1, "the failed close stays on the book")
	assert.Equal(t, ids[1], remaining[0].ID)

	assert.Len(t, rec.trades(models.TradeSell), 2)
	require.Len(t, rec.ofType(models.EventError), 1)
	assert.Contains(t, rec.ofType(models.EventError)[0].Err, "insufficient balance")
}

func TestTickFetchErrorBacksOff(t *testing.T) {
	exch := newFakeExchange("100")
	exch.tickerErr = errors.New("connection refused")
	b, rec := newTestBot(t, exch, models.SignalBuy)

	delay := b.tick()
	assert.Equal(t, constants.FetchBackoffSeconds*time.Second, delay)
	assert.Empty(t, exch.placedOrders(), "no trading on a failed fetch")
	assert.Len(t, rec.ofType(models.EventError), 1)
	assert.Empty(t, rec.ofType(models.EventUpdate))

	// The loop recovers once market data is back.
	exch.mu.Lock()
	exch.tickerErr = nil
	exch.mu.Unlock()
	delay = b.tick()
	assert.Equal(t, time.Minute, delay)
	assert.Len(t, rec.ofType(models.EventUpdate), 1)
}

func TestTickStopLossCloses(t *testing.T) {
	exch := newFakeExchange("94")
	b, rec := newTestBot(t, exch)

	p := position.New("BTCUSDT_SPBL", constants.SideBuy, decimal.RequireFromString("100"), decimal.RequireFromString("1"), 0.05, 0.10)
	b.book.Open(p)

	b.tick()

	assert.Zero(t, b.book.Len())
	trades := rec.trades(models.TradeStopLoss)
	require.Len(t, trades, 1)
	require.NotNil(t, trades[0].Profit)
	assert.True(t, trades[0].Profit.Equal(decimal.RequireFromString("-6")))

	orders := exch.placedOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, constants.SideSell, orders[0].Side)
}

func TestTickTakeProfitCloses(t *testing.T) {
	exch := newFakeExchange("111")
	b, rec := newTestBot(t, exch)

	p := position.New("BTCUSDT_SPBL", constants.SideBuy, decimal.RequireFromString("100"), decimal.RequireFromString("1"), 0.05, 0.10)
	b.book.Open(p)

	b.tick()

	assert.Zero(t, b.book.Len())
	trades := rec.trades(models.TradeTakeProfit)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Profit.Equal(decimal.RequireFromString("11")))
}

func TestTickFailedExitStaysOnBook(t *testing.T) {
	exch := newFakeExchange("90")
	exch.orderErrs[1] = errors.New("exchange maintenance")
	b, rec := newTestBot(t, exch)

	p := position.New("BTCUSDT_SPBL", constants.SideBuy, decimal.RequireFromString("100"), decimal.RequireFromString("1"), 0.05, 0)
	b.book.Open(p)

	b.tick()
	assert.Equal(t, 1, b.book.Len())
	assert.Len(t, rec.ofType(models.EventError), 1)

	// Next tick retries and succeeds.
	b.tick()
	assert.Zero(t, b.book.Len())
	assert.Len(t, rec.trades(models.TradeStopLoss), 1)
}

func TestCandleWindowIsBounded(t *testing.T) {
	exch := newFakeExchange("100")
	b, _ := newTestBot(t, exch)

	for i := 0; i < constants.MaxCandleHistory+50; i++ {
		b.appendCandle(api.Ticker{Close: decimal.NewFromInt(int64(100 + i)), Timestamp: int64(i)})
	}
	require.Len(t, b.candles, constants.MaxCandleHistory)
	// Oldest candles fall off the front.
	assert.Equal(t, int64(50), b.candles[0].Timestamp)
}

func TestSeedHistory(t *testing.T) {
	exch := newFakeExchange("100")
	exch.seed = []models.Candle{{Timestamp: 1, Close: 99}, {Timestamp: 2, Close: 100}}
	b, _ := newTestBot(t, exch)

	b.seedHistory()
	assert.Len(t, b.candles, 2)

	exch2 := newFakeExchange("100")
	exch2.seedErr = errors.New("unavailable")
	b2, _ := newTestBot(t, exch2)
	b2.seedHistory()
	assert.Empty(t, b2.candles, "seed failure leaves the window empty")
}

func TestStartStopLifecycle(t *testing.T) {
	exch := newFakeExchange("100")
	exch.ticked = make(chan struct{}, 1)
	b, rec := newTestBot(t, exch)

	require.NoError(t, b.Start())
	assert.True(t, b.Running())
	assert.ErrorIs(t, b.Start(), ErrAlreadyRunning)

	select {
	case <-exch.ticked:
	case <-time.After(5 * time.Second):
		t.Fatal("loop never ticked")
	}

	require.NoError(t, b.Stop())
	assert.False(t, b.Running())
	assert.ErrorIs(t, b.Stop(), ErrNotRunning)

	statuses := rec.ofType(models.EventStatus)
	require.Len(t, statuses, 2)
	assert.Equal(t, "started", statuses[0].Status)
	assert.Equal(t, "stopped", statuses[1].Status)
}

// blockingExchange gates GetTicker so a tick can be held mid-flight.
type blockingExchange struct {
	*fakeExchange
	entered chan struct{}
	release chan struct{}
}

func (b *blockingExchange) GetTicker(symbol string) (api.Ticker, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.fakeExchange.GetTicker(symbol)
}

func TestStopMidTickLetsTickFinish(t *testing.T) {
	exch := &blockingExchange{
		fakeExchange: newFakeExchange("100"),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	b, rec := newTestBot(t, exch)

	require.NoError(t, b.Start())
	<-exch.entered // the first tick is now in flight

	stopped := make(chan struct{})
	go func() {
		b.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a tick was still in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(exch.release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop never returned")
	}

	// The in-flight tick completed its full cycle before the loop exited.
	assert.Len(t, rec.ofType(models.EventUpdate), 1)
	assert.False(t, b.Running())
}

func TestConcurrentStartStopIsSerialized(t *testing.T) {
	exch := newFakeExchange("100")
	b, rec := newTestBot(t, exch)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if err := b.Start(); err != nil && !errors.Is(err, ErrAlreadyRunning) {
					t.Errorf("Start: %v", err)
				}
				if err := b.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
					t.Errorf("Stop: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if b.Running() {
		require.NoError(t, b.Stop())
	}

	// Launches and shutdowns alternate strictly: at most one loop ever ran
	// at a time, and every loop that started was also stopped.
	statuses := rec.ofType(models.EventStatus)
	want := "started"
	for i, ev := range statuses {
		assert.Equalf(t, want, ev.Status, "status event %d out of order", i)
		if want == "started" {
			want = "stopped"
		} else {
			want = "started"
		}
	}
	assert.Equal(t, "started", want, "a started loop was never stopped")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	exch := newFakeExchange("100")

	cfg := testBotConfig()
	cfg.Symbol = ""
	_, err := New("id", cfg, exch, nil)
	assert.Error(t, err)

	cfg = testBotConfig()
	cfg.Amount = decimal.Zero
	_, err = New("id", cfg, exch, nil)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	cfg = testBotConfig()
	cfg.Strategy = "bollinger"
	_, err = New("id", cfg, exch, nil)
	assert.Error(t, err)
}

func TestUpdateConfigEmitsConfigEvent(t *testing.T) {
	exch := newFakeExchange("100")
	b, rec := newTestBot(t, exch)

	cfg := b.Config()
	cfg.TakeProfit = 0.2
	require.NoError(t, b.UpdateConfig(cfg))

	events := rec.ofType(models.EventConfig)
	require.Len(t, events, 1)
	assert.Equal(t, 0.2, events[0].Config.TakeProfit)
	assert.Equal(t, 0.2, b.Config().TakeProfit)
}
