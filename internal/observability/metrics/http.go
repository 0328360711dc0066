package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadsTotal     *prometheus.CounterVec
	uploadDuration   *prometheus.HistogramVec
	uploadBatchSize  *prometheus.HistogramVec
	dedupHitsTotal   *prometheus.CounterVec
	jobsScheduled    *prometheus.CounterVec
	documentsServed  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metadoc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metadoc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "metadoc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metadoc",
			Subsystem: "pipeline",
			Name:      "uploads_total",
			Help:      "Total uploaded files by per-file outcome.",
		},
		[]string{"service", "status"},
	)
	uploadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metadoc",
			Subsystem: "pipeline",
			Name:      "upload_duration_seconds",
			Help:      "Synchronous upload batch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	uploadBatchSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metadoc",
			Subsystem: "pipeline",
			Name:      "upload_batch_size",
			Help:      "Distribution of files per upload batch.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	dedupHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metadoc",
			Subsystem: "pipeline",
			Name:      "dedup_hits_total",
			Help:      "Total uploads resolved by fingerprint deduplication.",
		},
		[]string{"service"},
	)
	jobsScheduled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metadoc",
			Subsystem: "pipeline",
			Name:      "jobs_scheduled_total",
			Help:      "Total asynchronous jobs accepted by outcome.",
		},
		[]string{"service", "status"},
	)
	documentsServed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metadoc",
			Subsystem: "pipeline",
			Name:      "documents_served_total",
			Help:      "Total document reads served by endpoint.",
		},
		[]string{"service", "endpoint"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		uploadDuration,
		uploadBatchSize,
		dedupHitsTotal,
		jobsScheduled,
		documentsServed,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		uploadsTotal:    uploadsTotal,
		uploadDuration:  uploadDuration,
		uploadBatchSize: uploadBatchSize,
		dedupHitsTotal:  dedupHitsTotal,
		jobsScheduled:   jobsScheduled,
		documentsServed: documentsServed,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/documents/") && path != "/api/v1/documents/upload" && path != "/api/v1/documents/upload-async":
		return "/api/v1/documents/{id}"
	case strings.HasPrefix(path, "/api/v1/jobs/"):
		return "/api/v1/jobs/{job_id}"
	default:
		return path
	}
}

// RecordUploadBatch counts per-file outcomes of one synchronous batch.
func (m *HTTPServerMetrics) RecordUploadBatch(service string, statuses []string, dedupHits int, duration time.Duration) {
	for _, status := range statuses {
		if status == "" {
			status = "unknown"
		}
		m.uploadsTotal.WithLabelValues(service, status).Inc()
	}
	m.uploadBatchSize.WithLabelValues(service).Observe(float64(len(statuses)))
	m.uploadDuration.WithLabelValues(service).Observe(duration.Seconds())
	if dedupHits > 0 {
		m.dedupHitsTotal.WithLabelValues(service).Add(float64(dedupHits))
	}
}

func (m *HTTPServerMetrics) RecordJobScheduled(service string, err error) {
	status := "accepted"
	if err != nil {
		status = "rejected"
	}
	m.jobsScheduled.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) RecordDocumentRead(service, endpoint string) {
	m.documentsServed.WithLabelValues(service, endpoint).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
