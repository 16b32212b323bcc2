package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"trendbot-go/internal/ledger"
)

// InfluxRecorder writes trades and equity samples to InfluxDB using the
// async write API.
type InfluxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// NewInfluxRecorder connects and health-checks the target instance.
func NewInfluxRecorder(url, token, org, bucket string) (*InfluxRecorder, error) {
	client := influxdb2.NewClient(url, token)

	health, err := client.Health(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb health check: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("influxdb unhealthy: %+v", health)
	}

	return &InfluxRecorder{
		client:   client,
		writeAPI: client.WriteAPI(org, bucket),
	}, nil
}

// RecordTrade writes one closed trade as a point in the trades measurement.
func (r *InfluxRecorder) RecordTrade(p ledger.Position) {
	point := influxdb2.NewPoint(
		"trades",
		map[string]string{
			"symbol": p.Symbol,
			"side":   string(p.Side),
		},
		map[string]interface{}{
			"quantity":     p.Quantity,
			"entry_price":  p.EntryPrice,
			"close_price":  p.ClosePrice,
			"realized_pnl": p.RealizedPnL,
		},
		p.CloseTime,
	)
	r.writeAPI.WritePoint(point)
}

// RecordEquity writes one equity sample to the equity measurement.
func (r *InfluxRecorder) RecordEquity(ts time.Time, equity, drawdown float64) {
	point := influxdb2.NewPoint(
		"equity",
		nil,
		map[string]interface{}{
			"equity":       equity,
			"drawdown_pct": drawdown,
		},
		ts,
	)
	r.writeAPI.WritePoint(point)
}

// Close flushes pending writes and tears down the client.
func (r *InfluxRecorder) Close() {
	r.writeAPI.Flush()
	r.client.Close()
}
