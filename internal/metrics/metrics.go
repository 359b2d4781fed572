// Package metrics provides Prometheus instrumentation for the pricing engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts executed trades, partitioned by action and side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amm_trades_total",
		Help: "Total number of trades executed",
	}, []string{"action", "side"})

	// TradeRejections counts trades rejected before commit, by reason.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amm_trade_rejections_total",
		Help: "Trades rejected before commit",
	}, []string{"reason"})

	// TradeLatency is a histogram of trade execution latency.
	TradeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "amm_trade_latency_seconds",
		Help:    "Trade execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	// PoolPrice tracks the current internal YES price (approximate; the
	// exact WAD value lives in the store).
	PoolPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amm_pool_price",
		Help: "Current internal YES-side price",
	})

	// RiskScore tracks the composite risk score observed on the last trade.
	RiskScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amm_risk_score",
		Help: "Composite risk score at last execution",
	})

	// CollateralBalance tracks collateral backing outstanding positions.
	CollateralBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amm_collateral_balance",
		Help: "Collateral backing outstanding position tokens",
	})

	// ClaimsTotal counts settlement claims paid out.
	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amm_claims_total",
		Help: "Settlement claims paid",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amm_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amm_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "amm_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small enough
		// that cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
