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

	tasksSubmittedTotal *prometheus.CounterVec
	taskPollsTotal      *prometheus.CounterVec
	sessionsEndedTotal  *prometheus.CounterVec
	cardReviewsTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faqbot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faqbot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "faqbot",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	tasksSubmittedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faqbot",
			Subsystem: "chat",
			Name:      "tasks_submitted_total",
			Help:      "Total chat tasks accepted for asynchronous processing.",
		},
		[]string{"service"},
	)
	taskPollsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faqbot",
			Subsystem: "chat",
			Name:      "task_polls_total",
			Help:      "Total task status polls by observed status.",
		},
		[]string{"service", "status"},
	)
	sessionsEndedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faqbot",
			Subsystem: "chat",
			Name:      "sessions_ended_total",
			Help:      "Total explicit session terminations.",
		},
		[]string{"service"},
	)
	cardReviewsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faqbot",
			Subsystem: "cards",
			Name:      "reviews_total",
			Help:      "Total knowledge card reviews by decision.",
		},
		[]string{"service", "decision"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		tasksSubmittedTotal,
		taskPollsTotal,
		sessionsEndedTotal,
		cardReviewsTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		tasksSubmittedTotal: tasksSubmittedTotal,
		taskPollsTotal:      taskPollsTotal,
		sessionsEndedTotal:  sessionsEndedTotal,
		cardReviewsTotal:    cardReviewsTotal,
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

// normalizePath collapses resource ids so metric cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/tasks/"):
		return "/v1/tasks/{task_id}"
	case strings.HasPrefix(path, "/v1/sessions/") && strings.HasSuffix(path, "/history"):
		return "/v1/sessions/{session_id}/history"
	case strings.HasPrefix(path, "/v1/sessions/"):
		return "/v1/sessions/{session_id}"
	case strings.HasPrefix(path, "/v1/knowledge-cards/") && strings.HasSuffix(path, "/review"):
		return "/v1/knowledge-cards/{card_id}/review"
	case strings.HasPrefix(path, "/v1/knowledge-cards/"):
		return "/v1/knowledge-cards/{card_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordTaskSubmitted(service string) {
	m.tasksSubmittedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordTaskPoll(service, status string) {
	if status == "" {
		status = "unknown"
	}
	m.taskPollsTotal.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) RecordSessionEnded(service string) {
	m.sessionsEndedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordCardReview(service, decision string) {
	if decision == "" {
		decision = "unknown"
	}
	m.cardReviewsTotal.WithLabelValues(service, decision).Inc()
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
