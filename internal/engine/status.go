package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SymbolStatus is the per-symbol slice of a snapshot.
type SymbolStatus struct {
	LastPrice float64
	Longs     int
	Shorts    int
}

// Status is a consistent view of the whole engine, taken under the critical
// section. It exists for observability only and is never persisted.
type Status struct {
	Symbols       map[string]SymbolStatus
	Balance       float64
	RealizedPnL   float64
	UnrealizedPnL float64
	Equity        float64
	PeakEquity    float64
	Drawdown      float64
	RiskOff       bool
	RiskOffUntil  time.Time
	OpenPositions int
	Uptime        time.Duration
}

// Snapshot produces a Status under the engine lock so concurrent tick
// pipelines never expose a half-applied view.
func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Symbols:      make(map[string]SymbolStatus, len(e.states)),
		Balance:      e.book.Balance(),
		RealizedPnL:  e.book.RealizedPnL(),
		PeakEquity:   e.governor.PeakEquity(),
		Drawdown:     e.governor.Drawdown(),
		RiskOff:      e.governor.RiskOff(),
		RiskOffUntil: e.governor.RiskOffUntil(),
	}
	marks := make(map[string]float64, len(e.states))
	for sym, st := range e.states {
		longs, shorts := e.book.SideCounts(sym)
		s.Symbols[sym] = SymbolStatus{LastPrice: st.LastPrice(), Longs: longs, Shorts: shorts}
		s.OpenPositions += longs + shorts
		marks[sym] = st.LastPrice()
	}
	s.UnrealizedPnL = e.book.UnrealizedPnL(marks)
	s.Equity = s.Balance + s.UnrealizedPnL
	if e.cfg.Live && e.liveSynced {
		s.Balance = e.liveWallet
		s.UnrealizedPnL = e.liveUnreal
		s.Equity = e.liveWallet + e.liveUnreal
	}
	if !e.started.IsZero() {
		s.Uptime = e.clock.Now().Sub(e.started)
	}
	return s
}

// Format renders the status as notification text.
func (s Status) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "💼 balance %.2f | realized %.2f | unrealized %.2f\n", s.Balance, s.RealizedPnL, s.UnrealizedPnL)
	fmt.Fprintf(&b, "📊 equity %.2f | peak %.2f | drawdown %.2f%%\n", s.Equity, s.PeakEquity, s.Drawdown)
	if s.RiskOff {
		if s.RiskOffUntil.IsZero() {
			b.WriteString("⛔ risk-off\n")
		} else {
			fmt.Fprintf(&b, "⛔ risk-off until %s\n", s.RiskOffUntil.Format(time.RFC3339))
		}
	}

	symbols := make([]string, 0, len(s.Symbols))
	for sym := range s.Symbols {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		st := s.Symbols[sym]
		fmt.Fprintf(&b, "%s: %.4f (L%d/S%d)\n", sym, st.LastPrice, st.Longs, st.Shorts)
	}
	fmt.Fprintf(&b, "⏱ uptime %s", s.Uptime.Truncate(time.Second))
	return b.String()
}
