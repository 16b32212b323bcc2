package engine

import (
	"context"
	"time"

	"trendbot-go/internal/ledger"
	"trendbot-go/internal/market"
)

// HistoryProvider supplies warm-up candles at startup. An empty result for
// any tracked symbol is fatal.
type HistoryProvider interface {
	HistoricalCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
}

// TickFeed pushes live ticks onto out until the context is canceled.
// Reconnection is the feed's concern, not the engine's.
type TickFeed interface {
	Run(ctx context.Context, out chan<- market.Tick) error
}

// OrderExecutor mirrors ledger decisions to a venue, best effort. The side
// is the order side: a close passes the position side's opposite with
// reduceOnly set.
type OrderExecutor interface {
	PlaceMarketOrder(ctx context.Context, symbol string, side market.Side, reduceOnly bool, qty float64) (orderID string, err error)
}

// AccountSyncer reports the live wallet balance and unrealized PnL. Consulted
// only on the periodic sync task, never on the tick path.
type AccountSyncer interface {
	AccountSnapshot(ctx context.Context) (walletBalance, unrealizedPnL float64, err error)
}

// Notifier delivers formatted text somewhere a human reads it. Failures are
// the notifier's to log; the engine never waits on them.
type Notifier interface {
	Notify(text string)
}

// Recorder persists closed trades and periodic equity samples. Called from
// the dispatcher and status tasks, off the tick path.
type Recorder interface {
	RecordTrade(ledger.Position)
	RecordEquity(ts time.Time, equity, drawdown float64)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

type nopRecorder struct{}

func (nopRecorder) RecordTrade(ledger.Position)              {}
func (nopRecorder) RecordEquity(time.Time, float64, float64) {}
