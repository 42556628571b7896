// Package metrics holds the Prometheus collectors for the pipeline and the
// HTTP layer. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "batchpulse"

type Metrics struct {
	ingestRows   *prometheus.CounterVec
	ingestFiles  *prometheus.CounterVec
	slaRecords   *prometheus.CounterVec
	predictions  *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ingestRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "Spreadsheet rows ingested, by file type and outcome.",
		}, []string{"file_type", "outcome"}),
		ingestFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_files_total",
			Help:      "Uploaded files processed, by file type and result.",
		}, []string{"file_type", "result"}),
		slaRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_records_total",
			Help:      "SLA compliance records written by the analyzer, by status.",
		}, []string{"status"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions generated, by type and source.",
		}, []string{"type", "source"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Prediction alerts raised, by type and severity.",
		}, []string{"type", "severity"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.ingestRows, m.ingestFiles, m.slaRecords, m.predictions, m.alerts, m.httpDuration)
	return m
}

func (m *Metrics) IngestRows(fileType, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestRows.WithLabelValues(fileType, outcome).Add(float64(n))
}

func (m *Metrics) IngestFile(fileType string, ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.ingestFiles.WithLabelValues(fileType, result).Inc()
}

func (m *Metrics) SLARecord(status string) {
	if m == nil {
		return
	}
	m.slaRecords.WithLabelValues(status).Inc()
}

func (m *Metrics) Prediction(typ, source string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(typ, source).Inc()
}

func (m *Metrics) Alert(typ, severity string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(typ, severity).Inc()
}

// ObserveHTTP records one request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
