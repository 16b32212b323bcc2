// Package strategy holds the pure signal evaluators: functions from the
// current indicator view and open positions to entry and exit decisions.
// Nothing here mutates state or performs I/O.
package strategy

import (
	"trendbot-go/internal/indicator"
	"trendbot-go/internal/ledger"
	"trendbot-go/internal/market"
)

// ExitReason labels why a position should close.
type ExitReason string

const (
	ReasonTakeProfit ExitReason = "take_profit"
	ReasonStopLoss   ExitReason = "stop_loss"
	ReasonEMAFlip    ExitReason = "ema_flip"
)

// Exit is a decision to close one position at the current price.
type Exit struct {
	Position   *ledger.Position
	Reason     ExitReason
	PnLPercent float64
}

// Exits evaluates every open position against the current price and the 9/21
// EMA pair. The conditions are independent; a position closes at most once
// per tick, with the first matching reason reported.
func Exits(v indicator.View, open []*ledger.Position, price, takeProfitPct, stopLossPct float64) []Exit {
	var out []Exit
	for _, p := range open {
		pct := p.PnLPercent(price)
		switch {
		case pct >= takeProfitPct:
			out = append(out, Exit{Position: p, Reason: ReasonTakeProfit, PnLPercent: pct})
		case pct <= -stopLossPct:
			out = append(out, Exit{Position: p, Reason: ReasonStopLoss, PnLPercent: pct})
		case flippedAgainst(v, p.Side):
			out = append(out, Exit{Position: p, Reason: ReasonEMAFlip, PnLPercent: pct})
		}
	}
	return out
}

// flippedAgainst reports whether the 9/21 EMA pair crossed against the
// position's side on this tick.
func flippedAgainst(v indicator.View, side market.Side) bool {
	if side == market.Long {
		return v.EMA9.Cur < v.EMA21.Cur && v.EMA9.Prev >= v.EMA21.Prev
	}
	return v.EMA9.Cur > v.EMA21.Cur && v.EMA9.Prev <= v.EMA21.Prev
}

// Entry returns the side to open at the current price, if any directional
// trigger fires. Long triggers are evaluated strictly before short triggers;
// when both sides would fire, long wins. The order is deterministic but
// arbitrary, and callers rely on it for reproducibility.
func Entry(v indicator.View, price float64) (market.Side, bool) {
	if longTriggered(v, price) {
		return market.Long, true
	}
	if shortTriggered(v, price) {
		return market.Short, true
	}
	return "", false
}

func longTriggered(v indicator.View, price float64) bool {
	if price > v.HighestHigh {
		return true
	}
	if bullishCross(v) {
		return true
	}
	return v.EMA3.Cur > v.EMA3.Prev
}

func shortTriggered(v indicator.View, price float64) bool {
	if price < v.LowestLow {
		return true
	}
	if bearishCross(v) {
		return true
	}
	return v.EMA3.Cur < v.EMA3.Prev
}

func bullishCross(v indicator.View) bool {
	return v.EMA9.Prev <= v.EMA21.Prev && v.EMA9.Cur > v.EMA21.Cur && v.EMA9.Cur > v.EMA9.Prev
}

func bearishCross(v indicator.View) bool {
	return v.EMA9.Prev >= v.EMA21.Prev && v.EMA9.Cur < v.EMA21.Cur && v.EMA9.Cur < v.EMA9.Prev
}
