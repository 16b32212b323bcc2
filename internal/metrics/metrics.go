package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Positions opened"},
		[]string{"symbol", "side"},
	)
	TradesClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_closed_total", Help: "Positions closed, by exit reason"},
		[]string{"symbol", "reason"},
	)
	OrderMirrorFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "order_mirror_failures_total", Help: "Best-effort live order placements that failed"},
	)
	OpenPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "open_positions", Help: "Open positions per symbol"},
		[]string{"symbol"},
	)
	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "equity_usd", Help: "Balance plus unrealized PnL"},
	)
	Drawdown = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "drawdown_percent", Help: "Percent decline from peak equity"},
	)
	RiskOff = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "risk_off", Help: "1 while new entries are suppressed"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, OrdersTotal, TradesClosedTotal, OrderMirrorFailures,
		OpenPositions, Equity, Drawdown, RiskOff,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
