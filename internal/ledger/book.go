// Package ledger tracks open and closed positions, realized PnL, and balance
// bookkeeping for the engine. Ledger state is simulated truth: live order
// mirroring is best-effort and never gates these mutations.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"trendbot-go/internal/market"
)

// DefaultHistoryCap bounds the closed-trade log; the oldest entries are
// trimmed past it.
const DefaultHistoryCap = 500

// Position is one long or short exposure. It is created on entry and mutated
// exactly once at close; afterwards it is side-effect-free. Closed positions
// survive only in the bounded trade history.
type Position struct {
	ID          string
	Symbol      string
	Side        market.Side
	Quantity    float64
	Leverage    float64
	EntryPrice  float64
	OpenTime    time.Time
	ClosePrice  float64
	CloseTime   time.Time
	RealizedPnL float64
	IsOpen      bool
}

// PnLPercent reports the position's profit at price, as a percentage of the
// entry price, signed for the position's side.
func (p *Position) PnLPercent(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	pct := (price - p.EntryPrice) / p.EntryPrice * 100
	if p.Side == market.Short {
		pct = -pct
	}
	return pct
}

// Book is the position ledger. It is not safe for concurrent use: the engine
// coordinator owns it exclusively and serializes every access under its
// critical section.
type Book struct {
	balance    float64
	realized   float64
	open       []*Position
	history    []Position
	historyCap int
	lastTrade  time.Time
}

// NewBook creates a ledger with the given starting balance.
func NewBook(startingBalance float64) *Book {
	return &Book{
		balance:    startingBalance,
		historyCap: DefaultHistoryCap,
	}
}

// Open allocates a new position, appends it to the open set, and stamps the
// last-trade time.
func (b *Book) Open(symbol string, side market.Side, qty, leverage, price float64, now time.Time) *Position {
	if leverage <= 0 {
		leverage = 1
	}
	p := &Position{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		Leverage:   leverage,
		EntryPrice: price,
		OpenTime:   now,
		IsOpen:     true,
	}
	b.open = append(b.open, p)
	b.lastTrade = now
	return p
}

// Close realizes a position at price. Calling it on an already-closed
// position is a no-op and returns false: no double PnL booking, no duplicate
// history entry.
func (b *Book) Close(p *Position, price float64, now time.Time) bool {
	if p == nil || !p.IsOpen {
		return false
	}
	pnl := (price - p.EntryPrice) * p.Quantity
	if p.Side == market.Short {
		pnl = -pnl
	}
	p.ClosePrice = price
	p.CloseTime = now
	p.RealizedPnL = pnl
	p.IsOpen = false

	b.balance += pnl
	b.realized += pnl

	for i, cur := range b.open {
		if cur == p {
			b.open = append(b.open[:i], b.open[i+1:]...)
			break
		}
	}
	b.history = append(b.history, *p)
	if len(b.history) > b.historyCap {
		b.history = b.history[len(b.history)-b.historyCap:]
	}
	return true
}

// OpenPositions returns the open set, optionally filtered by symbol (empty
// string matches all). The slice is a copy; the positions are live.
func (b *Book) OpenPositions(symbol string) []*Position {
	out := make([]*Position, 0, len(b.open))
	for _, p := range b.open {
		if symbol == "" || p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out
}

// OpenCount reports how many positions are open on symbol.
func (b *Book) OpenCount(symbol string) int {
	n := 0
	for _, p := range b.open {
		if p.Symbol == symbol {
			n++
		}
	}
	return n
}

// SideCounts reports open long and short counts for symbol.
func (b *Book) SideCounts(symbol string) (longs, shorts int) {
	for _, p := range b.open {
		if p.Symbol != symbol {
			continue
		}
		if p.Side == market.Long {
			longs++
		} else {
			shorts++
		}
	}
	return longs, shorts
}

// UnrealizedPnL marks every open position against the supplied prices.
// Symbols without a mark contribute nothing.
func (b *Book) UnrealizedPnL(marks map[string]float64) float64 {
	var total float64
	for _, p := range b.open {
		mark, ok := marks[p.Symbol]
		if !ok || mark <= 0 {
			continue
		}
		pnl := (mark - p.EntryPrice) * p.Quantity
		if p.Side == market.Short {
			pnl = -pnl
		}
		total += pnl
	}
	return total
}

// Balance returns the settled balance.
func (b *Book) Balance() float64 { return b.balance }

// RealizedPnL returns cumulative realized profit and loss.
func (b *Book) RealizedPnL() float64 { return b.realized }

// LastTradeTime returns when the most recent position was opened.
func (b *Book) LastTradeTime() time.Time { return b.lastTrade }

// History returns a copy of the closed-trade log, oldest first.
func (b *Book) History() []Position {
	out := make([]Position, len(b.history))
	copy(out, b.history)
	return out
}
