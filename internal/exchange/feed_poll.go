package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trendbot-go/internal/market"
)

// runPoll samples futures mark prices over REST. A fallback for environments
// where outbound websockets are blocked; cadence is WithPollInterval.
func (f *Feed) runPoll(ctx context.Context, out chan<- market.Tick) error {
	if f.client == nil {
		return fmt.Errorf("poll feed requires a REST client")
	}

	if err := f.pollOnce(ctx, out); err != nil && !errors.Is(err, context.Canceled) {
		f.log.Warn().Err(err).Msg("initial mark price poll failed")
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.pollOnce(ctx, out); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				f.log.Warn().Err(err).Msg("mark price poll failed")
			}
		}
	}
}

func (f *Feed) pollOnce(ctx context.Context, out chan<- market.Tick) error {
	for _, sym := range f.snapshotSymbols() {
		px, err := f.client.MarkPrice(ctx, sym)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Str("symbol", sym).Msg("mark price fetch failed")
			continue
		}
		tick := market.Tick{Symbol: sym, Price: px, Ts: time.Now().UTC()}
		if err := f.emit(ctx, out, tick); err != nil {
			return err
		}
	}
	return nil
}
