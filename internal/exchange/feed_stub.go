package exchange

import (
	"context"
	"math"
	"time"

	"trendbot-go/internal/market"
)

// runStub emits a slow synthetic sine walk for every tracked symbol. Useful
// for offline runs and tests.
func (f *Feed) runStub(ctx context.Context, out chan<- market.Tick) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var step float64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			step++
			px := 100 + 2*math.Sin(step/20)
			for _, s := range f.snapshotSymbols() {
				tick := market.Tick{Symbol: s, Price: px, Ts: ts}
				if err := f.emit(ctx, out, tick); err != nil {
					return err
				}
			}
		}
	}
}

// SyntheticHistory builds flat warm-up candles around the stub's base price
// so an offline engine can start without touching the network.
type SyntheticHistory struct{}

// HistoricalCandles returns limit one-minute candles ending at the current
// minute, with a small range so volatility is non-zero.
func (SyntheticHistory) HistoricalCandles(_ context.Context, _ string, _ string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 50
	}
	end := time.Now().UTC().Truncate(time.Minute)
	out := make([]market.Candle, limit)
	for i := 0; i < limit; i++ {
		out[i] = market.Candle{
			OpenTime: end.Add(time.Duration(i-limit) * time.Minute),
			Open:     100,
			High:     100.5,
			Low:      99.5,
			Close:    100,
			Volume:   1,
		}
	}
	return out, nil
}
