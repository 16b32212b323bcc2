package strategy

import (
	"math"
	"testing"
	"time"

	"trendbot-go/internal/indicator"
	"trendbot-go/internal/ledger"
	"trendbot-go/internal/market"
)

// flatView returns a view with every EMA pinned at price so no momentum or
// cross trigger fires on its own.
func flatView(price float64) indicator.View {
	pair := indicator.EMAPair{Prev: price, Cur: price}
	return indicator.View{
		Symbol:      "BTCUSDT",
		LastPrice:   price,
		EMA3:        pair,
		EMA9:        pair,
		EMA21:       pair,
		HighestHigh: price * 2,
		LowestLow:   price / 2,
	}
}

func TestTakeProfitScenario(t *testing.T) {
	// Entry 100 long, qty 10, take-profit 1%: at 101 the exit fires with
	// pnl +10 and pnlPercent +1.0.
	book := ledger.NewBook(1000)
	now := time.Now()
	pos := book.Open("BTCUSDT", market.Long, 10, 1, 100, now)

	exits := Exits(flatView(101), book.OpenPositions("BTCUSDT"), 101, 1.0, 2.0)
	if len(exits) != 1 {
		t.Fatalf("expected one exit, got %d", len(exits))
	}
	if exits[0].Reason != ReasonTakeProfit {
		t.Fatalf("expected take profit, got %s", exits[0].Reason)
	}
	if math.Abs(exits[0].PnLPercent-1.0) > 1e-9 {
		t.Fatalf("expected pnl percent 1.0, got %f", exits[0].PnLPercent)
	}
	book.Close(pos, 101, now)
	if math.Abs(pos.RealizedPnL-10) > 1e-9 {
		t.Fatalf("expected realized pnl 10, got %f", pos.RealizedPnL)
	}
}

func TestStopLossFiresOnShorts(t *testing.T) {
	book := ledger.NewBook(1000)
	book.Open("BTCUSDT", market.Short, 1, 1, 100, time.Now())

	// Price rallies 3% against the short; stop loss threshold 2%.
	exits := Exits(flatView(103), book.OpenPositions("BTCUSDT"), 103, 5.0, 2.0)
	if len(exits) != 1 || exits[0].Reason != ReasonStopLoss {
		t.Fatalf("expected stop loss exit, got %+v", exits)
	}
}

func TestEMAFlipClosesLongOnCrossDown(t *testing.T) {
	book := ledger.NewBook(1000)
	book.Open("BTCUSDT", market.Long, 1, 1, 100, time.Now())

	v := flatView(100)
	v.EMA9 = indicator.EMAPair{Prev: 100.2, Cur: 99.8}
	v.EMA21 = indicator.EMAPair{Prev: 100.0, Cur: 100.0}

	exits := Exits(v, book.OpenPositions("BTCUSDT"), 100, 5.0, 5.0)
	if len(exits) != 1 || exits[0].Reason != ReasonEMAFlip {
		t.Fatalf("expected ema flip exit, got %+v", exits)
	}

	// The mirror condition must not touch a short.
	shortBook := ledger.NewBook(1000)
	shortBook.Open("BTCUSDT", market.Short, 1, 1, 100, time.Now())
	exits = Exits(v, shortBook.OpenPositions("BTCUSDT"), 100, 5.0, 5.0)
	if len(exits) != 0 {
		t.Fatalf("cross down should not close a short, got %+v", exits)
	}
}

func TestNoFlipWithoutCrossing(t *testing.T) {
	book := ledger.NewBook(1000)
	book.Open("BTCUSDT", market.Long, 1, 1, 100, time.Now())

	// ema9 already below ema21 before this tick: no crossing event.
	v := flatView(100)
	v.EMA9 = indicator.EMAPair{Prev: 99.5, Cur: 99.4}
	v.EMA21 = indicator.EMAPair{Prev: 100.0, Cur: 100.0}

	if exits := Exits(v, book.OpenPositions("BTCUSDT"), 100, 50, 50); len(exits) != 0 {
		t.Fatalf("expected no exit without a crossing, got %+v", exits)
	}
}

func TestEntryBreakoutLong(t *testing.T) {
	v := flatView(100)
	side, ok := Entry(v, v.HighestHigh+1)
	if !ok || side != market.Long {
		t.Fatalf("expected long breakout entry, got %v %v", side, ok)
	}
}

func TestEntryBreakdownShort(t *testing.T) {
	v := flatView(100)
	side, ok := Entry(v, v.LowestLow-1)
	if !ok || side != market.Short {
		t.Fatalf("expected short breakdown entry, got %v %v", side, ok)
	}
}

func TestEntryBullishCross(t *testing.T) {
	v := flatView(100)
	v.EMA9 = indicator.EMAPair{Prev: 99.9, Cur: 100.2}
	v.EMA21 = indicator.EMAPair{Prev: 100.0, Cur: 100.1}

	side, ok := Entry(v, 100)
	if !ok || side != market.Long {
		t.Fatalf("expected long entry on bullish cross, got %v %v", side, ok)
	}
}

func TestEntryMomentum(t *testing.T) {
	v := flatView(100)
	v.EMA3 = indicator.EMAPair{Prev: 100, Cur: 100.5}
	if side, ok := Entry(v, 100); !ok || side != market.Long {
		t.Fatalf("expected long momentum entry, got %v %v", side, ok)
	}

	v.EMA3 = indicator.EMAPair{Prev: 100, Cur: 99.5}
	if side, ok := Entry(v, 100); !ok || side != market.Short {
		t.Fatalf("expected short momentum entry, got %v %v", side, ok)
	}
}

func TestEntryTieBreakPrefersLong(t *testing.T) {
	// Pathological view where both a long momentum and a short breakdown
	// trigger would fire: long must win because it is evaluated first.
	v := flatView(100)
	v.EMA3 = indicator.EMAPair{Prev: 100, Cur: 100.5}
	price := v.LowestLow - 1

	side, ok := Entry(v, price)
	if !ok || side != market.Long {
		t.Fatalf("tie break must prefer long, got %v %v", side, ok)
	}
}

func TestEntryNoneWhenFlat(t *testing.T) {
	if side, ok := Entry(flatView(100), 100); ok {
		t.Fatalf("expected no entry on a flat view, got %v", side)
	}
}
