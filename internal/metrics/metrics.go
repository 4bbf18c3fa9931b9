// Package metrics exposes the handheld's Prometheus instruments.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Location
	LocationUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsa_location_updates_total",
			Help: "Position updates received, by outcome",
		},
		[]string{"source", "status"},
	)

	PositionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsa_position_errors_total",
			Help: "Errors reported by the position source",
		},
		[]string{"source"},
	)

	HeadingDegrees = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dsa_heading_degrees",
			Help: "Last known heading in degrees clockwise from north",
		},
	)

	// Highlight
	HighlightActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dsa_highlight_active",
			Help: "1 while a point highlight is animating",
		},
	)

	// Alerts
	AlertConditions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dsa_alert_conditions",
			Help: "Alert conditions currently registered",
		},
	)

	AlertsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsa_alerts_raised_total",
			Help: "Alerts raised, by level",
		},
		[]string{"level"},
	)

	AlertsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dsa_alerts_active",
			Help: "Alerts currently raised",
		},
	)

	AlertPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsa_alert_publish_total",
			Help: "Alert deliveries to sinks, by sink and outcome",
		},
		[]string{"sink", "status"},
	)

	// Storage
	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsa_database_queries_total",
			Help: "Condition store queries, by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dsa_database_query_duration_seconds",
			Help:    "Condition store query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Web
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsa_http_requests_total",
			Help: "HTTP requests served by the web UI",
		},
		[]string{"method", "path", "status"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dsa_websocket_clients",
			Help: "Connected web UI clients",
		},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordDatabaseQuery records one condition store query.
func RecordDatabaseQuery(operation string, err error, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(operation, status(err)).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAlertPublish records one delivery attempt to an alert sink.
func RecordAlertPublish(sink string, err error) {
	AlertPublishTotal.WithLabelValues(sink, status(err)).Inc()
}

func RecordHTTPRequest(method, path string, statusCode int) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
}

// SetHighlightActive mirrors the highlighter state.
func SetHighlightActive(active bool) {
	if active {
		HighlightActive.Set(1)
		return
	}
	HighlightActive.Set(0)
}
