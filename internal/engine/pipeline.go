package engine

import (
	"context"
	"fmt"
	"time"

	"trendbot-go/internal/indicator"
	"trendbot-go/internal/ledger"
	"trendbot-go/internal/market"
	"trendbot-go/internal/metrics"
	"trendbot-go/internal/strategy"
)

type effectKind int

const (
	effectOpen effectKind = iota
	effectClose
	effectNotice
)

// effect is an immutable record of a decision, dispatched after the critical
// section releases. Position is a value copy taken at decision time.
type effect struct {
	kind     effectKind
	position ledger.Position
	reason   strategy.ExitReason
	text     string
}

// OnTick drives the full pipeline for one tick: indicator update, exit
// evaluation for every open position, risk recomputation, then entry. The
// whole pipeline holds the engine lock; side effects are queued and
// dispatched after release.
func (e *Engine) OnTick(t market.Tick) {
	if t.Price <= 0 {
		// Expected with filtered or quiet input, not an error.
		return
	}
	now := e.clock.Now()
	var effs []effect

	e.mu.Lock()
	st, ok := e.states[t.Symbol]
	if !ok {
		e.mu.Unlock()
		return
	}

	st.Apply(t)
	view := st.View()

	// Exits for all open positions come before risk recomputation and any
	// entry on this tick.
	exits := strategy.Exits(view, e.book.OpenPositions(t.Symbol), t.Price, e.cfg.TakeProfitPct, e.cfg.StopLossPct)
	for _, x := range exits {
		if !e.book.Close(x.Position, t.Price, now) {
			continue
		}
		metrics.TradesClosedTotal.WithLabelValues(t.Symbol, string(x.Reason)).Inc()
		effs = append(effs, effect{kind: effectClose, position: *x.Position, reason: x.Reason})
	}

	equity := e.equityLocked()
	blocked := e.governor.Update(equity, now)
	if off := e.governor.RiskOff(); off != e.wasRiskOff {
		e.wasRiskOff = off
		effs = append(effs, effect{kind: effectNotice, text: e.riskNoticeLocked(off, equity)})
	}

	if !blocked && e.entryAllowedLocked(view, t.Symbol, now) {
		if side, found := strategy.Entry(view, t.Price); found {
			qty := e.orderQuantityLocked(t.Price)
			if qty > 0 {
				pos := e.book.Open(t.Symbol, side, qty, e.cfg.Leverage, t.Price, now)
				metrics.OrdersTotal.WithLabelValues(t.Symbol, string(side)).Inc()
				effs = append(effs, effect{kind: effectOpen, position: *pos})
			}
		}
	}

	metrics.Equity.Set(equity)
	metrics.Drawdown.Set(e.governor.Drawdown())
	if e.governor.RiskOff() {
		metrics.RiskOff.Set(1)
	} else {
		metrics.RiskOff.Set(0)
	}
	metrics.OpenPositions.WithLabelValues(t.Symbol).Set(float64(e.book.OpenCount(t.Symbol)))
	e.mu.Unlock()

	metrics.TicksTotal.WithLabelValues(t.Symbol).Inc()
	e.dispatch(effs)
}

// entryAllowedLocked checks the volatility gate, the per-symbol position
// cap, and the minimum inter-trade interval.
func (e *Engine) entryAllowedLocked(view indicator.View, symbol string, now time.Time) bool {
	if view.Volatility < e.cfg.MinVolatilityPct {
		return false
	}
	if e.cfg.MaxPositionsPerSymbol > 0 && e.book.OpenCount(symbol) >= e.cfg.MaxPositionsPerSymbol {
		return false
	}
	if e.cfg.MinTradeInterval > 0 {
		if last := e.book.LastTradeTime(); !last.IsZero() && now.Sub(last) < e.cfg.MinTradeInterval {
			return false
		}
	}
	return true
}

// equityLocked is balance plus unrealized PnL, or the live account figures
// when a sync has landed.
func (e *Engine) equityLocked() float64 {
	if e.cfg.Live && e.liveSynced {
		return e.liveWallet + e.liveUnreal
	}
	marks := make(map[string]float64, len(e.states))
	for sym, st := range e.states {
		marks[sym] = st.LastPrice()
	}
	return e.book.Balance() + e.book.UnrealizedPnL(marks)
}

// orderQuantityLocked sizes an entry: the order budget, capped by a fraction
// of the live balance when configured, leveraged and converted to base
// quantity. Non-positive results mean no entry, silently.
func (e *Engine) orderQuantityLocked(price float64) float64 {
	if price <= 0 {
		return 0
	}
	budget := e.cfg.OrderSizeUSD
	if e.cfg.Live && e.cfg.LiveBalanceFraction > 0 {
		balance := e.book.Balance()
		if e.liveSynced {
			balance = e.liveWallet
		}
		if limit := balance * e.cfg.LiveBalanceFraction; limit < budget {
			budget = limit
		}
	}
	leverage := e.cfg.Leverage
	if leverage <= 0 {
		leverage = 1
	}
	qty := budget * leverage / price
	if qty <= 0 {
		return 0
	}
	return qty
}

func (e *Engine) riskNoticeLocked(off bool, equity float64) string {
	if off {
		return fmt.Sprintf("⛔ risk-off: drawdown %.2f%% (equity %.2f, peak %.2f)",
			e.governor.Drawdown(), equity, e.governor.PeakEquity())
	}
	return fmt.Sprintf("✅ risk-on: drawdown %.2f%%, trading resumed", e.governor.Drawdown())
}

// dispatch hands effects to the dispatcher without ever blocking the tick
// path; a full queue drops the effect and logs.
func (e *Engine) dispatch(effs []effect) {
	for _, eff := range effs {
		select {
		case e.effects <- eff:
		default:
			e.log.Warn().Int("kind", int(eff.kind)).Msg("effect queue full, dropping")
		}
	}
}

// runDispatcher applies queued side effects: best-effort order mirroring,
// notifications, and trade recording. Failures are reported and forgotten.
func (e *Engine) runDispatcher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case eff := <-e.effects:
			e.applyEffect(ctx, eff)
		}
	}
}

func (e *Engine) applyEffect(ctx context.Context, eff effect) {
	switch eff.kind {
	case effectOpen:
		p := eff.position
		e.mirrorOrder(ctx, p.Symbol, p.Side, false, p.Quantity)
		e.notifier.Notify(fmt.Sprintf("📈 %s %s qty %.6f @ %.4f", p.Side, p.Symbol, p.Quantity, p.EntryPrice))
	case effectClose:
		p := eff.position
		e.mirrorOrder(ctx, p.Symbol, p.Side.Opposite(), true, p.Quantity)
		e.notifier.Notify(fmt.Sprintf("📉 close %s %s @ %.4f (%s, pnl %.2f)",
			p.Side, p.Symbol, p.ClosePrice, eff.reason, p.RealizedPnL))
		e.recorder.RecordTrade(p)
	case effectNotice:
		e.notifier.Notify(eff.text)
	}
}

func (e *Engine) mirrorOrder(ctx context.Context, symbol string, side market.Side, reduceOnly bool, qty float64) {
	if e.executor == nil {
		return
	}
	orderID, err := e.executor.PlaceMarketOrder(ctx, symbol, side, reduceOnly, qty)
	if err != nil {
		metrics.OrderMirrorFailures.Inc()
		e.log.Warn().Err(err).Str("symbol", symbol).Str("side", string(side)).Msg("order mirror failed")
		return
	}
	e.log.Info().Str("symbol", symbol).Str("side", string(side)).Str("order_id", orderID).Bool("reduce_only", reduceOnly).Msg("order mirrored")
}
