package position

import (
	"sync"

	"github.com/shopspring/decimal"

	"bitget-trader/models"
)

// Exit is a position the current price pushed through one of its
// protective levels, together with the level that fired.
type Exit struct {
	Position models.Position
	Reason   models.TradeKind
}

// Manager holds the open positions of one bot. All methods are safe for
// concurrent use.
type Manager struct {
	mu        sync.Mutex
	positions []models.Position
}

// NewManager creates an empty position book.
func NewManager() *Manager {
	return &Manager{}
}

// Open records a new position.
func (m *Manager) Open(p models.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = append(m.positions, p)
}

// Positions returns a copy of the open positions in opening order.
func (m *Manager) Positions() []models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Position, len(m.positions))
	copy(out, m.positions)
	return out
}

// Len reports how many positions are open.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

// Remove drops the position with the given id and reports whether it was
// present.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.positions {
		if p.ID == id {
			m.positions = append(m.positions[:i], m.positions[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every position.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = nil
}

// CheckExits returns the positions whose protective levels the price has
// reached. The stop loss is evaluated before the take profit, so each
// position yields at most one exit reason per call. The book itself is not
// modified; the caller removes positions once their close orders succeed.
func (m *Manager) CheckExits(price decimal.Decimal) []Exit {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exits []Exit
	for _, p := range m.positions {
		switch {
		case !p.StopLossPrice.IsZero() && price.LessThanOrEqual(p.StopLossPrice):
			exits = append(exits, Exit{Position: p, Reason: models.TradeStopLoss})
		case !p.TakeProfitPrice.IsZero() && price.GreaterThanOrEqual(p.TakeProfitPrice):
			exits = append(exits, Exit{Position: p, Reason: models.TradeTakeProfit})
		}
	}
	return exits
}
