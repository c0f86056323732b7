package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry registry riêng của service
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "psgc_resolver",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psgc_resolver",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "psgc_resolver",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psgc_resolver",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "PSGC cache lookups by result (hit, stale, miss, error).",
		},
		[]string{"result"},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psgc_resolver",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Requests sent to the PSGC API.",
		},
		[]string{"level", "status"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "psgc_resolver",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of PSGC API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"level"},
	)

	resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psgc_resolver",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Levels resolved from names, by level and match strategy.",
		},
		[]string{"level", "strategy"},
	)

	loadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psgc_resolver",
			Subsystem: "resolver",
			Name:      "load_failures_total",
			Help:      "Option list loads that failed, by level.",
		},
		[]string{"level"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "psgc_resolver",
			Subsystem: "resolver",
			Name:      "active_sessions",
			Help:      "Interactive address form sessions currently stored.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		cacheLookups,
		upstreamRequests,
		upstreamDuration,
		resolutions,
		loadFailures,
		activeSessions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler HTTP handler expose metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware đo request theo route template
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordCacheLookup ghi nhận kết quả tra cache
func RecordCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// RecordUpstream ghi nhận một request tới PSGC API
func RecordUpstream(level string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	upstreamRequests.WithLabelValues(level, label).Inc()
	upstreamDuration.WithLabelValues(level).Observe(duration.Seconds())
}

// RecordResolution ghi nhận một cấp được resolve tự động
func RecordResolution(level, strategy string) {
	resolutions.WithLabelValues(level, strategy).Inc()
}

// RecordLoadFailure ghi nhận load option thất bại
func RecordLoadFailure(level string) {
	loadFailures.WithLabelValues(level).Inc()
}

// SetActiveSessions cập nhật số session đang lưu
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
