// Package position tracks the open positions of one bot and decides when
// protective exits fire.
package position

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"bitget-trader/models"
)

// New builds an open position at the given entry price. Stop loss and take
// profit prices are derived from the configured fractions of the entry
// price; a zero fraction leaves that exit disabled.
func New(symbol, side string, entry, amount decimal.Decimal, stopLossFrac, takeProfitFrac float64) models.Position {
	p := models.Position{
		ID:         uuid.Must(uuid.NewV4()).String(),
		Symbol:     symbol,
		Side:       side,
		EntryPrice: entry,
		Amount:     amount,
		OpenedAt:   time.Now().UTC(),
	}
	if stopLossFrac > 0 {
		p.StopLossPrice = entry.Mul(decimal.NewFromFloat(1 - stopLossFrac))
	}
	if takeProfitFrac > 0 {
		p.TakeProfitPrice = entry.Mul(decimal.NewFromFloat(1 + takeProfitFrac))
	}
	return p
}

// Profit is the unrealized result of closing the position at price.
func Profit(p models.Position, price decimal.Decimal) decimal.Decimal {
	return price.Sub(p.EntryPrice).Mul(p.Amount)
}
