package storage

import (
	"time"

	"trendbot-go/internal/ledger"
)

// Recorder is the sink contract shared by all storage backends.
type Recorder interface {
	RecordTrade(ledger.Position)
	RecordEquity(ts time.Time, equity, drawdown float64)
}

// Multi fans every record out to all configured backends.
type Multi []Recorder

func (m Multi) RecordTrade(p ledger.Position) {
	for _, r := range m {
		r.RecordTrade(p)
	}
}

func (m Multi) RecordEquity(ts time.Time, equity, drawdown float64) {
	for _, r := range m {
		r.RecordEquity(ts, equity, drawdown)
	}
}
