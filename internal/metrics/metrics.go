package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. All recording methods are safe on a nil
// receiver so services can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	uploads     *prometheus.CounterVec
	batches     *prometheus.CounterVec
	ingestJobs  *prometheus.CounterVec
	sessions    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docassist",
			Name:      "runs_total",
			Help:      "Assistant runs by terminal status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docassist",
			Name:      "run_duration_seconds",
			Help:      "Wall time from run creation to terminal status.",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 160, 300},
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docassist",
			Name:      "file_uploads_total",
			Help:      "File uploads by result.",
		}, []string{"result"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docassist",
			Name:      "file_batches_total",
			Help:      "Vector store file batches by terminal status.",
		}, []string{"status"}),
		ingestJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docassist",
			Name:      "ingest_jobs_total",
			Help:      "Async ingestion jobs by result.",
		}, []string{"result"}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docassist",
			Name:      "sessions_started_total",
			Help:      "Chat sessions started since process start.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runs, m.runDuration, m.uploads, m.batches, m.ingestJobs, m.sessions,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRun(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) FileUploaded(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) BatchFinished(status string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(status).Inc()
}

func (m *Metrics) IngestJobFinished(result string) {
	if m == nil {
		return
	}
	m.ingestJobs.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}
