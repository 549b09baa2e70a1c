package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal     *prometheus.CounterVec
	processDuration  *prometheus.HistogramVec
	processInFlight  prometheus.Gauge
	queueLag         *prometheus.HistogramVec
	evidenceRetained *prometheus.HistogramVec
	degradedTotal    *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faqbot",
			Subsystem: "worker",
			Name:      "task_process_total",
			Help:      "Total processed chat tasks by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faqbot",
			Subsystem: "worker",
			Name:      "task_process_duration_seconds",
			Help:      "Chat task processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "faqbot",
			Subsystem: "worker",
			Name:      "task_process_in_flight",
			Help:      "Number of in-flight chat task executions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faqbot",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between task submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	evidenceRetained := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faqbot",
			Subsystem: "worker",
			Name:      "evidence_retained",
			Help:      "Distribution of citations retained per completed task.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faqbot",
			Subsystem: "worker",
			Name:      "degraded_answers_total",
			Help:      "Total completed tasks that carried a degradation note.",
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, evidenceRetained, degradedTotal)

	return &WorkerMetrics{
		registry:         registry,
		processTotal:     processTotal,
		processDuration:  processDuration,
		processInFlight:  processInFlight,
		queueLag:         queueLag,
		evidenceRetained: evidenceRetained,
		degradedTotal:    degradedTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartTask() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishTask(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveEvidence(service string, citations int, degraded bool) {
	m.evidenceRetained.WithLabelValues(service).Observe(float64(citations))
	if degraded {
		m.degradedTotal.WithLabelValues(service).Inc()
	}
}
