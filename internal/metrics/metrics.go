// Package metrics exposes Prometheus instrumentation for the bot and API.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SignalsTotal counts inbound signal messages by pipeline outcome.
	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalforge_signals_total",
		Help: "Signal messages processed, by outcome",
	}, []string{"outcome"})

	// TradesSettled counts settled simulated trades by result (win|loss).
	TradesSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalforge_trades_settled_total",
		Help: "Simulated trades settled, by result",
	}, []string{"result"})

	QuoteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signalforge_quote_latency_seconds",
		Help:    "Latency of quote lookups in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// TransfersTotal counts wallet transfers by status (ok|failed|rejected).
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalforge_transfers_total",
		Help: "Wallet transfers attempted, by status",
	}, []string{"status"})

	BotRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalforge_bot_running",
		Help: "1 when the bot is monitoring signals, 0 when stopped",
	})

	LedgerPnLPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalforge_ledger_pnl_percent",
		Help: "Ledger-wide P&L percentage after the last settlement",
	})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signalforge_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalforge_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signalforge_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency. The path label is the chi
// route pattern so token addresses in URLs don't explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// SetBotRunning mirrors the run state into the gauge.
func SetBotRunning(running bool) {
	if running {
		BotRunning.Set(1)
		return
	}
	BotRunning.Set(0)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
