// Package metrics provides Prometheus metrics for the soundboard.
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
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soundboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Playback metrics
	playsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundboard_plays_total",
			Help: "Total plays by trigger and result",
		},
		[]string{"source", "result"},
	)

	volumeLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soundboard_volume",
			Help: "Current output volume in [0, 1]",
		},
	)

	// Library metrics
	catalogSounds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soundboard_catalog_sounds",
			Help: "Number of sounds in the catalog",
		},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soundboard_scan_duration_seconds",
			Help:    "Time to rescan the sound directory",
			Buckets: prometheus.DefBuckets,
		},
	)

	importsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundboard_imports_total",
			Help: "Total sound imports",
		},
		[]string{"status"},
	)

	// Hotkey metrics
	hotkeyBindings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soundboard_hotkey_bindings",
			Help: "Number of bound hotkeys",
		},
	)

	// SSE metrics
	sseEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundboard_sse_events_total",
			Help: "Total SSE events published",
		},
		[]string{"type"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPlay records an attempted play.
func RecordPlay(source string, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	playsTotal.WithLabelValues(source, result).Inc()
}

// SetVolume sets the current volume.
func SetVolume(level float64) {
	volumeLevel.Set(level)
}

// SetCatalogSize sets the number of catalog entries.
func SetCatalogSize(n int) {
	catalogSounds.Set(float64(n))
}

// RecordScan records a directory scan duration.
func RecordScan(duration time.Duration) {
	scanDuration.Observe(duration.Seconds())
}

// RecordImport records a sound import.
func RecordImport(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	importsTotal.WithLabelValues(status).Inc()
}

// SetHotkeyBindings sets the number of bound keys.
func SetHotkeyBindings(n int) {
	hotkeyBindings.Set(float64(n))
}

// RecordSSEEvent records a published SSE event.
func RecordSSEEvent(eventType string) {
	sseEventsTotal.WithLabelValues(eventType).Inc()
}
