package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
)

// InitMetrics registers the HTTP collectors once per process.
func InitMetrics() {
	metricsOnce.Do(func() {
		requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})
		requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"})
	})
}

// RequestTimer records latency and status per matched route. Unmatched
// paths share one label to keep cardinality bounded.
func RequestTimer() gin.HandlerFunc {
	InitMetrics()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
