// Package risk implements the portfolio-level drawdown breaker that gates
// new entries: peak-equity tracking, a risk-off state with hysteresis, and an
// optional cooldown timer.
package risk

import "time"

// hysteresisFactor is the fraction of the drawdown threshold below which a
// risk-off state without a pending cooldown clears again.
const hysteresisFactor = 0.5

// Governor is the risk state machine. Like the rest of the engine-owned
// state it is not safe for concurrent use; the engine serializes access.
type Governor struct {
	maxDrawdownPct float64
	cooldown       time.Duration

	peak     float64
	drawdown float64
	riskOff  bool
	until    time.Time
}

// NewGovernor creates a governor that trips at maxDrawdownPct percent
// drawdown from peak equity. A positive cooldown keeps the breaker open for
// at least that long once tripped.
func NewGovernor(maxDrawdownPct float64, cooldown time.Duration) *Governor {
	return &Governor{maxDrawdownPct: maxDrawdownPct, cooldown: cooldown}
}

// Update recomputes the risk state from the post-exit equity and reports
// whether entries are blocked on this tick. The blocked flag is sampled
// before the cooldown-expiry re-evaluation, so an expiring cooldown frees
// entries from the next tick onward while the hysteresis path frees them
// immediately.
func (g *Governor) Update(equity float64, now time.Time) bool {
	if equity > g.peak {
		g.peak = equity
	}
	g.drawdown = 0
	if g.peak > 0 {
		g.drawdown = (g.peak - equity) / g.peak * 100
	}

	if g.drawdown >= g.maxDrawdownPct {
		g.riskOff = true
		if g.cooldown > 0 {
			// Cooldown expiry only ever extends, never shortens.
			if until := now.Add(g.cooldown); until.After(g.until) {
				g.until = until
			}
		}
	} else if g.riskOff && g.until.IsZero() && g.drawdown < g.maxDrawdownPct*hysteresisFactor {
		g.riskOff = false
	}

	blocked := g.riskOff

	if g.riskOff && !g.until.IsZero() && !now.Before(g.until) {
		// Cooldown elapsed: clear unconditionally and re-base drawdown
		// measurement at the current equity.
		g.riskOff = false
		g.until = time.Time{}
		g.peak = equity
	}

	return blocked
}

// RiskOff reports whether the breaker is currently open.
func (g *Governor) RiskOff() bool { return g.riskOff }

// RiskOffUntil returns the pending cooldown expiry, zero when none.
func (g *Governor) RiskOffUntil() time.Time { return g.until }

// Drawdown returns the most recently computed drawdown percentage.
func (g *Governor) Drawdown() float64 { return g.drawdown }

// PeakEquity returns the current peak-equity watermark.
func (g *Governor) PeakEquity() float64 { return g.peak }
