package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoanchor",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geoanchor",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Session metrics
	SessionTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geoanchor",
		Subsystem: "session",
		Name:      "ticks_total",
		Help:      "Total frames evaluated by the session controller",
	})

	SessionClassifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoanchor",
		Subsystem: "session",
		Name:      "classification_changes_total",
		Help:      "Total changes of the session classification, by new classification",
	}, []string{"classification"})

	SessionTerminations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoanchor",
		Subsystem: "session",
		Name:      "terminations_total",
		Help:      "Total sessions terminated after a fatal classification",
	}, []string{"classification"})

	LocalizationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geoanchor",
		Subsystem: "session",
		Name:      "localization_duration_seconds",
		Help:      "Time spent localizing before the pose met the accuracy thresholds",
		Buckets:   []float64{1, 5, 10, 20, 30, 60, 90, 120, 180},
	})

	// Anchor metrics
	AnchorsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoanchor",
		Subsystem: "anchor",
		Name:      "placed_total",
		Help:      "Total anchors placed, by source (user or replay)",
	}, []string{"source"})

	AnchorPlacementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geoanchor",
		Subsystem: "anchor",
		Name:      "placement_failures_total",
		Help:      "Total anchors the tracking subsystem refused to create",
	})

	// History metrics
	HistoryOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoanchor",
		Subsystem: "history",
		Name:      "operations_total",
		Help:      "Total history store operations",
	}, []string{"op"})

	HistoryEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoanchor",
		Subsystem: "history",
		Name:      "evictions_total",
		Help:      "Total anchor records evicted from the history, by reason",
	}, []string{"reason"})

	HistoryCorruptBlobs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geoanchor",
		Subsystem: "history",
		Name:      "corrupt_blobs_total",
		Help:      "Total stored histories that could not be decoded and were reset",
	})

	// Transport metrics
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoanchor",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoanchor",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Total session events published, by type",
	}, []string{"type"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoanchor",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoanchor",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoanchor",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat the pool gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool stats into the pool gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
