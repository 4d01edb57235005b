package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Message metrics
	MessagesProcessed    *prometheus.CounterVec
	MessagesSkipped      prometheus.Counter
	MessagesUnrecognized prometheus.Counter
	MessagesFailed       prometheus.Counter

	// Record metrics
	RecordsLogged *prometheus.CounterVec

	// Conversion metrics
	ConversionsTotal   prometheus.Counter
	ConversionsFailed  prometheus.Counter
	ConversionDuration prometheus.Histogram
	RecordingSize      prometheus.Histogram

	// Thumbnail metrics
	ThumbnailsExtracted prometheus.Counter
	ThumbnailsFailed    prometheus.Counter
	KeyframeScanDepth   prometheus.Histogram

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		// Message metrics
		MessagesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umigallery_messages_processed_total",
				Help: "Total capture messages handled successfully",
			},
			[]string{"schema"},
		),
		MessagesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "umigallery_messages_skipped_total",
			Help: "Total capture messages dropped by the topic skip list",
		}),
		MessagesUnrecognized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "umigallery_messages_unrecognized_total",
			Help: "Total capture messages whose schema matched no handler",
		}),
		MessagesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "umigallery_messages_failed_total",
			Help: "Total capture messages whose handler reported an error",
		}),

		// Record metrics
		RecordsLogged: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umigallery_records_logged_total",
				Help: "Total visualization records written",
			},
			[]string{"kind"},
		),

		// Conversion metrics
		ConversionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "umigallery_conversions_total",
			Help: "Total capture files converted",
		}),
		ConversionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "umigallery_conversions_failed_total",
			Help: "Total capture files that failed to convert",
		}),
		ConversionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "umigallery_conversion_duration_seconds",
			Help:    "Duration of single-file conversions",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		}),
		RecordingSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "umigallery_recording_size_bytes",
			Help:    "Size of written recordings in bytes",
			Buckets: prometheus.ExponentialBuckets(1<<20, 2, 10), // 1MB to ~512MB
		}),

		// Thumbnail metrics
		ThumbnailsExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "umigallery_thumbnails_extracted_total",
			Help: "Total thumbnails extracted",
		}),
		ThumbnailsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "umigallery_thumbnails_failed_total",
			Help: "Total captures where thumbnail extraction failed",
		}),
		KeyframeScanDepth: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "umigallery_keyframe_scan_fragments",
			Help:    "Fragments inspected before the keyframe search ended",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),

		// HTTP metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umigallery_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "umigallery_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	return m
}

// RecordMessageProcessed records a successfully handled message
func (m *Metrics) RecordMessageProcessed(schema string) {
	m.MessagesProcessed.WithLabelValues(schema).Inc()
}

// RecordMessageSkipped records a message dropped by the skip list
func (m *Metrics) RecordMessageSkipped() {
	m.MessagesSkipped.Inc()
}

// RecordMessageUnrecognized records a message with an unhandled schema
func (m *Metrics) RecordMessageUnrecognized() {
	m.MessagesUnrecognized.Inc()
}

// RecordMessageFailed records a message whose handler failed
func (m *Metrics) RecordMessageFailed() {
	m.MessagesFailed.Inc()
}

// RecordRecordLogged records one written visualization record
func (m *Metrics) RecordRecordLogged(kind string) {
	m.RecordsLogged.WithLabelValues(kind).Inc()
}

// RecordConversion records a finished single-file conversion
func (m *Metrics) RecordConversion(durationSeconds float64, sizeBytes int64, ok bool) {
	m.ConversionsTotal.Inc()
	if !ok {
		m.ConversionsFailed.Inc()
		return
	}
	m.ConversionDuration.Observe(durationSeconds)
	m.RecordingSize.Observe(float64(sizeBytes))
}

// RecordThumbnail records a thumbnail extraction attempt
func (m *Metrics) RecordThumbnail(ok bool) {
	if ok {
		m.ThumbnailsExtracted.Inc()
	} else {
		m.ThumbnailsFailed.Inc()
	}
}

// RecordKeyframeScan records how deep the keyframe search went
func (m *Metrics) RecordKeyframeScan(fragments int) {
	m.KeyframeScanDepth.Observe(float64(fragments))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, path, m.statusCodeToString(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// statusCodeToString converts an HTTP status code to a string
func (m *Metrics) statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
