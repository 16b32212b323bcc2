// Package indicator maintains rolling per-symbol market state: minute candle
// aggregation, exponential moving averages, average true range, and breakout
// bands. All state here is owned by the engine coordinator and mutated under
// its critical section; nothing in this package locks.
package indicator

import (
	"fmt"
	"math"
	"time"

	"trendbot-go/internal/market"
)

const (
	// EMA periods tracked per symbol.
	PeriodFast = 3
	PeriodMid  = 9
	PeriodSlow = 21

	atrPeriod      = 14
	breakoutWindow = 20
)

// EMAPair carries the current EMA value alongside the value it had before the
// most recent tick, so crossovers can be detected exactly. The pair is
// replaced as a whole on every update; it is never partially mutated.
type EMAPair struct {
	Prev float64
	Cur  float64
}

// next applies one step of the EMA recurrence to price. An unseeded series
// (zero) is seeded to the incoming price instead of blending against zero.
func (p EMAPair) next(price float64, period int) EMAPair {
	if p.Cur == 0 {
		return EMAPair{Prev: p.Cur, Cur: price}
	}
	k := 2.0 / (float64(period) + 1)
	return EMAPair{Prev: p.Cur, Cur: price*k + p.Cur*(1-k)}
}

// View is a read-only snapshot of the indicator state handed to the signal
// evaluators.
type View struct {
	Symbol      string
	LastPrice   float64
	EMA3        EMAPair
	EMA9        EMAPair
	EMA21       EMAPair
	ATR         float64
	Volatility  float64
	HighestHigh float64
	LowestLow   float64
}

// State is the rolling indicator state for one symbol.
type State struct {
	symbol   string
	lookback int

	candles []market.Candle
	current *market.Candle

	lastPrice  float64
	lastUpdate time.Time

	ema3  EMAPair
	ema9  EMAPair
	ema21 EMAPair

	atr         float64
	volatility  float64
	highestHigh float64
	lowestLow   float64
}

// New builds indicator state from historical warm-up candles, oldest first.
// An empty warm-up set is a fatal initialization error: no symbol may start
// trading blind.
func New(symbol string, warmup []market.Candle, lookback int) (*State, error) {
	if len(warmup) == 0 {
		return nil, fmt.Errorf("indicator: no historical candles for %s", symbol)
	}
	if lookback <= 0 {
		lookback = breakoutWindow
	}

	s := &State{symbol: symbol, lookback: lookback}
	start := 0
	if len(warmup) > lookback {
		start = len(warmup) - lookback
	}
	s.candles = append(s.candles, warmup[start:]...)

	// Seed the EMA series by folding the recurrence over every warm-up
	// close, with the first close as the seed.
	fast := EMAPair{Prev: warmup[0].Close, Cur: warmup[0].Close}
	mid, slow := fast, fast
	for _, c := range warmup[1:] {
		fast = fast.next(c.Close, PeriodFast)
		mid = mid.next(c.Close, PeriodMid)
		slow = slow.next(c.Close, PeriodSlow)
	}
	// Warm-up ends with no tick observed yet, so previous equals current.
	s.ema3 = EMAPair{Prev: fast.Cur, Cur: fast.Cur}
	s.ema9 = EMAPair{Prev: mid.Cur, Cur: mid.Cur}
	s.ema21 = EMAPair{Prev: slow.Cur, Cur: slow.Cur}

	last := warmup[len(warmup)-1]
	s.lastPrice = last.Close
	s.lastUpdate = last.OpenTime
	s.atr = averageTrueRange(s.candles)
	s.highestHigh, s.lowestLow = breakoutBand(s.candles)
	s.volatility = volatility(s.atr, s.lastPrice)
	return s, nil
}

// Apply folds one tick into the state. Crossing a minute boundary closes the
// current candle at the last known price and recomputes the close-driven
// fields (ATR, breakout band, volatility); ticks inside the bucket only touch
// the current candle and the last price. The EMA snapshots advance on every
// tick.
func (s *State) Apply(t market.Tick) {
	bucket := t.Ts.Truncate(time.Minute)

	switch {
	case s.current == nil:
		s.openCandle(bucket, t.Price)
	case bucket.After(s.current.OpenTime):
		s.closeCurrent()
		s.openCandle(bucket, t.Price)
	default:
		if t.Price > s.current.High {
			s.current.High = t.Price
		}
		if t.Price < s.current.Low {
			s.current.Low = t.Price
		}
		s.current.Close = t.Price
	}

	s.ema3 = s.ema3.next(t.Price, PeriodFast)
	s.ema9 = s.ema9.next(t.Price, PeriodMid)
	s.ema21 = s.ema21.next(t.Price, PeriodSlow)

	s.lastPrice = t.Price
	s.lastUpdate = t.Ts
}

func (s *State) openCandle(bucket time.Time, price float64) {
	s.current = &market.Candle{
		OpenTime: bucket,
		Open:     price,
		High:     price,
		Low:      price,
		Close:    price,
	}
}

// closeCurrent seals the in-progress candle at the last known price, appends
// it to history, and recomputes every close-driven field.
func (s *State) closeCurrent() {
	c := *s.current
	if s.lastPrice > 0 {
		c.Close = s.lastPrice
	}
	s.current = nil

	s.candles = append(s.candles, c)
	if len(s.candles) > s.lookback {
		s.candles = s.candles[len(s.candles)-s.lookback:]
	}

	s.atr = averageTrueRange(s.candles)
	s.highestHigh, s.lowestLow = breakoutBand(s.candles)
	s.volatility = volatility(s.atr, s.lastPrice)
}

// View snapshots the state for the signal evaluators.
func (s *State) View() View {
	return View{
		Symbol:      s.symbol,
		LastPrice:   s.lastPrice,
		EMA3:        s.ema3,
		EMA9:        s.ema9,
		EMA21:       s.ema21,
		ATR:         s.atr,
		Volatility:  s.volatility,
		HighestHigh: s.highestHigh,
		LowestLow:   s.lowestLow,
	}
}

// Symbol returns the symbol this state tracks.
func (s *State) Symbol() string { return s.symbol }

// LastPrice returns the most recently observed price.
func (s *State) LastPrice() float64 { return s.lastPrice }

// LastUpdate returns the timestamp of the most recent tick.
func (s *State) LastUpdate() time.Time { return s.lastUpdate }

// Current returns a copy of the in-progress candle, if any.
func (s *State) Current() (market.Candle, bool) {
	if s.current == nil {
		return market.Candle{}, false
	}
	return *s.current, true
}

// History returns a copy of the closed-candle history, oldest first.
func (s *State) History() []market.Candle {
	out := make([]market.Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// averageTrueRange computes the mean true range over the most recent
// atrPeriod candles (fewer when history is shorter), seeding the previous
// close with the window's first close.
func averageTrueRange(candles []market.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	w := atrPeriod
	if len(candles) < w {
		w = len(candles)
	}
	window := candles[len(candles)-w:]
	prevClose := window[0].Close
	var sum float64
	for _, c := range window {
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
		sum += tr
		prevClose = c.Close
	}
	return sum / float64(w)
}

// breakoutBand returns the high/low extremes over the trailing breakout
// window of closed candles.
func breakoutBand(candles []market.Candle) (high, low float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	w := breakoutWindow
	if len(candles) < w {
		w = len(candles)
	}
	window := candles[len(candles)-w:]
	high = window[0].High
	low = window[0].Low
	for _, c := range window[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

func volatility(atr, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return atr / price * 100
}
