package indicator

import (
	"math"
	"testing"
	"time"

	"trendbot-go/internal/market"
)

func minuteCandles(closes []float64, start time.Time) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Minute),
			Open:     c,
			High:     c + 0.5,
			Low:      c - 0.5,
			Close:    c,
			Volume:   1,
		}
	}
	return out
}

func TestNewRequiresWarmup(t *testing.T) {
	if _, err := New("BTCUSDT", nil, 100); err == nil {
		t.Fatalf("expected error for empty warm-up set")
	}
}

func TestWarmupSeedsEMAByFold(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state, err := New("BTCUSDT", minuteCandles(closes, start), 100)
	if err != nil {
		t.Fatalf("unexpected warm-up error: %v", err)
	}

	// Direct fold over the same closes must match the incremental result.
	k := 2.0 / (float64(PeriodMid) + 1)
	want := closes[0]
	for _, c := range closes[1:] {
		want = c*k + want*(1-k)
	}
	view := state.View()
	if math.Abs(view.EMA9.Cur-want) > 1e-9 {
		t.Fatalf("ema9 drifted from direct fold: got %.10f want %.10f", view.EMA9.Cur, want)
	}
	if view.EMA9.Prev != view.EMA9.Cur {
		t.Fatalf("previous EMA should equal current straight after warm-up")
	}
}

func TestConstantWarmupHasZeroVolatility(t *testing.T) {
	closes := make([]float64, 20)
	candles := make([]market.Candle, 20)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range closes {
		closes[i] = 50
		candles[i] = market.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Minute),
			Open:     50, High: 50, Low: 50, Close: 50,
		}
	}
	state, err := New("FLATUSDT", candles, 100)
	if err != nil {
		t.Fatalf("unexpected warm-up error: %v", err)
	}
	view := state.View()
	if view.ATR != 0 {
		t.Fatalf("expected zero ATR for constant closes, got %f", view.ATR)
	}
	if view.Volatility != 0 {
		t.Fatalf("expected zero volatility, got %f", view.Volatility)
	}
}

func TestIntraMinuteTicksOnlyTouchCurrentCandle(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state, err := New("BTCUSDT", minuteCandles([]float64{100, 101, 102}, start), 100)
	if err != nil {
		t.Fatalf("unexpected warm-up error: %v", err)
	}
	before := state.View()

	bucket := start.Add(10 * time.Minute)
	state.Apply(market.Tick{Symbol: "BTCUSDT", Price: 103, Ts: bucket})
	state.Apply(market.Tick{Symbol: "BTCUSDT", Price: 105, Ts: bucket.Add(10 * time.Second)})
	state.Apply(market.Tick{Symbol: "BTCUSDT", Price: 101, Ts: bucket.Add(30 * time.Second)})

	after := state.View()
	if after.ATR != before.ATR || after.HighestHigh != before.HighestHigh || after.LowestLow != before.LowestLow {
		t.Fatalf("close-driven fields changed inside a minute bucket")
	}
	if after.Volatility != before.Volatility {
		t.Fatalf("volatility changed inside a minute bucket")
	}
	cur, ok := state.Current()
	if !ok {
		t.Fatalf("expected an in-progress candle")
	}
	if cur.High != 105 || cur.Low != 101 || cur.Close != 101 || cur.Open != 103 {
		t.Fatalf("current candle not aggregated as expected: %+v", cur)
	}
	if state.LastPrice() != 101 {
		t.Fatalf("last price not updated, got %f", state.LastPrice())
	}
}

func TestBucketRolloverClosesAtLastKnownPrice(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state, err := New("BTCUSDT", minuteCandles([]float64{100, 101, 102}, start), 100)
	if err != nil {
		t.Fatalf("unexpected warm-up error: %v", err)
	}
	bucket := start.Add(10 * time.Minute)
	state.Apply(market.Tick{Symbol: "BTCUSDT", Price: 103, Ts: bucket})
	state.Apply(market.Tick{Symbol: "BTCUSDT", Price: 104, Ts: bucket.Add(20 * time.Second)})

	hist := len(state.History())
	state.Apply(market.Tick{Symbol: "BTCUSDT", Price: 110, Ts: bucket.Add(time.Minute)})

	candles := state.History()
	if len(candles) != hist+1 {
		t.Fatalf("expected one closed candle, got %d -> %d", hist, len(candles))
	}
	closed := candles[len(candles)-1]
	if closed.Close != 104 {
		t.Fatalf("candle should close at last known price 104, got %f", closed.Close)
	}
	cur, ok := state.Current()
	if !ok || cur.Open != 110 || cur.High != 110 || cur.Low != 110 || cur.Close != 110 {
		t.Fatalf("new candle should open at tick price: %+v", cur)
	}
}

func TestEMAUpdatesEveryTickAndKeepsPrevious(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state, err := New("BTCUSDT", minuteCandles([]float64{100, 100, 100}, start), 100)
	if err != nil {
		t.Fatalf("unexpected warm-up error: %v", err)
	}
	before := state.View()

	state.Apply(market.Tick{Symbol: "BTCUSDT", Price: 106, Ts: start.Add(5 * time.Minute)})
	after := state.View()

	if after.EMA3.Prev != before.EMA3.Cur {
		t.Fatalf("previous EMA not snapshotted before overwrite")
	}
	k := 2.0 / (float64(PeriodFast) + 1)
	want := 106*k + before.EMA3.Cur*(1-k)
	if math.Abs(after.EMA3.Cur-want) > 1e-9 {
		t.Fatalf("ema3 recurrence mismatch: got %.10f want %.10f", after.EMA3.Cur, want)
	}
}

func TestHistoryBoundedByLookback(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state, err := New("BTCUSDT", minuteCandles([]float64{100, 101}, start), 5)
	if err != nil {
		t.Fatalf("unexpected warm-up error: %v", err)
	}
	ts := start.Add(10 * time.Minute)
	for i := 0; i < 12; i++ {
		state.Apply(market.Tick{Symbol: "BTCUSDT", Price: 100 + float64(i), Ts: ts.Add(time.Duration(i) * time.Minute)})
	}
	if got := len(state.History()); got != 5 {
		t.Fatalf("history not trimmed to lookback: got %d", got)
	}
}

func TestBreakoutBandTracksWindowExtremes(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	candles := minuteCandles([]float64{100, 120, 90, 100}, start)
	state, err := New("BTCUSDT", candles, 100)
	if err != nil {
		t.Fatalf("unexpected warm-up error: %v", err)
	}
	view := state.View()
	if view.HighestHigh != 120.5 {
		t.Fatalf("expected highest high 120.5, got %f", view.HighestHigh)
	}
	if view.LowestLow != 89.5 {
		t.Fatalf("expected lowest low 89.5, got %f", view.LowestLow)
	}
}
