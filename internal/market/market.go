// Package market standardizes payloads shared between data ingestion and the
// decision engine.
package market

import "time"

// Tick models a single timestamped price observation for a symbol.
type Tick struct {
	Symbol string
	Price  float64
	Ts     time.Time
}

// Side enumerates position directions.
type Side string

const (
	// Long profits when price rises.
	Long Side = "LONG"
	// Short profits when price falls.
	Short Side = "SHORT"
)

// Opposite returns the side that closes a position held on s.
func (s Side) Opposite() Side {
	if s == Long {
		return Short
	}
	return Long
}

// Candle is an OHLCV aggregate over a one-minute bucket. A candle is mutable
// only while it is the current in-progress candle for its symbol; once
// superseded it is immutable.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}
