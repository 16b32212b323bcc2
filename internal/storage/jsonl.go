// Package storage persists closed trades and equity samples for later
// analysis: an append-only JSONL file and an optional InfluxDB sink.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trendbot-go/internal/ledger"
)

type tradeRecord struct {
	Kind        string    `json:"kind"`
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Quantity    float64   `json:"quantity"`
	Leverage    float64   `json:"leverage"`
	EntryPrice  float64   `json:"entry_price"`
	ClosePrice  float64   `json:"close_price"`
	OpenTime    time.Time `json:"open_time"`
	CloseTime   time.Time `json:"close_time"`
	RealizedPnL float64   `json:"realized_pnl"`
}

type equityRecord struct {
	Kind     string    `json:"kind"`
	Ts       time.Time `json:"ts"`
	Equity   float64   `json:"equity"`
	Drawdown float64   `json:"drawdown_pct"`
}

// JSONLRecorder appends trades and equity samples as JSON lines.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// RecordTrade writes one closed trade to the underlying JSONL file.
func (r *JSONLRecorder) RecordTrade(p ledger.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(tradeRecord{
		Kind:        "trade",
		ID:          p.ID,
		Symbol:      p.Symbol,
		Side:        string(p.Side),
		Quantity:    p.Quantity,
		Leverage:    p.Leverage,
		EntryPrice:  p.EntryPrice,
		ClosePrice:  p.ClosePrice,
		OpenTime:    p.OpenTime,
		CloseTime:   p.CloseTime,
		RealizedPnL: p.RealizedPnL,
	})
}

// RecordEquity writes one equity sample.
func (r *JSONLRecorder) RecordEquity(ts time.Time, equity, drawdown float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(equityRecord{
		Kind:     "equity",
		Ts:       ts,
		Equity:   equity,
		Drawdown: drawdown,
	})
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
