package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// LedgerOperations counts wallet mutations by operation and outcome.
	LedgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_ledger_operations_total",
			Help: "Wallet ledger mutations by operation and result",
		},
		[]string{"operation", "result"},
	)

	LedgerRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_ledger_cas_retries_total",
			Help: "Optimistic balance updates that lost a race and were retried",
		},
	)

	GatewayPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_polls_total",
			Help: "Payment gateway status polls by gateway and reported status",
		},
		[]string{"gateway", "status"},
	)

	ChatOnlineClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_online_clients",
			Help: "Websocket chat clients connected to this instance",
		},
	)

	ChatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat frames by type and direction",
		},
		[]string{"type", "direction"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(LedgerOperations)
	prometheus.MustRegister(LedgerRetries)
	prometheus.MustRegister(GatewayPolls)
	prometheus.MustRegister(ChatOnlineClients)
	prometheus.MustRegister(ChatMessages)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
