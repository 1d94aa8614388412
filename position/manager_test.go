package position

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitget-trader/internal/constants"
	"bitget-trader/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewDerivesProtectiveLevels(t *testing.T) {
	p := New("BTCUSDT_SPBL", constants.SideBuy, d("100"), d("0.5"), 0.05, 0.10)

	assert.NotEmpty(t, p.ID)
	assert.True(t, p.StopLossPrice.Equal(d("95")), "stop loss = %s", p.StopLossPrice)
	assert.True(t, p.TakeProfitPrice.Equal(d("110")), "take profit = %s", p.TakeProfitPrice)
	assert.False(t, p.OpenedAt.IsZero())
}

func TestNewZeroFractionsDisableExits(t *testing.T) {
	p := New("BTCUSDT_SPBL", constants.SideBuy, d("100"), d("1"), 0, 0)
	assert.True(t, p.StopLossPrice.IsZero())
	assert.True(t, p.TakeProfitPrice.IsZero())

	m := NewManager()
	m.Open(p)
	assert.Empty(t, m.CheckExits(d("0.01")), "disabled stop loss fired")
	assert.Empty(t, m.CheckExits(d("1000000")), "disabled take profit fired")
}

func TestCheckExits(t *testing.T) {
	m := NewManager()
	m.Open(New("BTCUSDT_SPBL", constants.SideBuy, d("100"), d("1"), 0.05, 0.10))

	cases := []struct {
		name  string
		price string
		want  models.TradeKind
	}{
		{"at entry", "100", ""},
		{"just above stop", "95.01", ""},
		{"at stop", "95", models.TradeStopLoss},
		{"below stop", "80", models.TradeStopLoss},
		{"just below target", "109.99", ""},
		{"at target", "110", models.TradeTakeProfit},
		{"above target", "150", models.TradeTakeProfit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exits := m.CheckExits(d(tc.price))
			if tc.want == "" {
				assert.Empty(t, exits)
				return
			}
			require.Len(t, exits, 1)
			assert.Equal(t, tc.want, exits[0].Reason)
		})
	}
}

func TestCheckExitsStopLossWinsOverTakeProfit(t *testing.T) {
	// A degenerate position whose stop sits above its target: the stop is
	// evaluated first and is the only reason reported.
	m := NewManager()
	p := New("BTCUSDT_SPBL", constants.SideBuy, d("100"), d("1"), 0, 0)
	p.StopLossPrice = d("120")
	p.TakeProfitPrice = d("110")
	m.Open(p)

	exits := m.CheckExits(d("115"))
	require.Len(t, exits, 1)
	assert.Equal(t, models.TradeStopLoss, exits[0].Reason)
}

func TestCheckExitsLeavesBookUntouched(t *testing.T) {
	m := NewManager()
	m.Open(New("BTCUSDT_SPBL", constants.SideBuy, d("100"), d("1"), 0.05, 0.10))

	require.Len(t, m.CheckExits(d("90")), 1)
	assert.Equal(t, 1, m.Len(), "CheckExits must not remove positions")
}

func TestRemove(t *testing.T) {
	m := NewManager()
	a := New("BTCUSDT_SPBL", constants.SideBuy, d("100"), d("1"), 0, 0)
	b := New("BTCUSDT_SPBL", constants.SideBuy, d("101"), d("1"), 0, 0)
	m.Open(a)
	m.Open(b)

	assert.True(t, m.Remove(a.ID))
	assert.False(t, m.Remove(a.ID), "second removal of the same id")
	require.Len(t, m.Positions(), 1)
	assert.Equal(t, b.ID, m.Positions()[0].ID)

	m.Clear()
	assert.Zero(t, m.Len())
}

func TestProfit(t *testing.T) {
	p := New("BTCUSDT_SPBL", constants.SideBuy, d("100"), d("0.5"), 0, 0)

	assert.True(t, Profit(p, d("110")).Equal(d("5")))
	assert.True(t, Profit(p, d("90")).Equal(d("-5")))
	assert.True(t, Profit(p, d("100")).IsZero())
}
