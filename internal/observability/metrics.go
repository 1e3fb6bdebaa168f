package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rettiwt_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rettiwt_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the gauge of active WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rettiwt_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events pushed to clients by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rettiwt_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rettiwt_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// EngagementOpsTotal counts engagement state transitions by operation and outcome.
	EngagementOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rettiwt_engagement_ops_total",
		Help: "Total engagement operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// FanoutDeliveriesTotal counts notification fan-out deliveries by type and outcome.
	FanoutDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rettiwt_fanout_deliveries_total",
		Help: "Total notification fan-out deliveries by notification type and outcome",
	}, []string{"type", "outcome"})

	// TrendRecomputeDuration records the latency of trending hashtag recomputation.
	TrendRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rettiwt_trend_recompute_duration_seconds",
		Help:    "Duration of trending hashtag recomputation in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// CacheRequestsTotal counts cache-aside lookups by key prefix and outcome (hit/miss).
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rettiwt_cache_requests_total",
		Help: "Total cache lookups by key prefix and outcome",
	}, []string{"prefix", "outcome"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// TrackQuery records query latency without a DatabaseMetrics receiver, for
// repositories that only need the histogram.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
