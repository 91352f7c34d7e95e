// Package prometheus provides Prometheus instrumentation for downloader runs.
// Metrics live on a private registry and are exported once per run as a
// node_exporter textfile.
package prometheus

import (
	"context"
	"strconv"
	"time"

	"github.com/fwojciec/arcgisdl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements arcgisdl.Observer.
var _ arcgisdl.Observer = (*Metrics)(nil)

const namespace = "arcgis_dl"

// Metrics collects counters for a downloader run.
type Metrics struct {
	registry *prometheus.Registry

	Requests     *prometheus.CounterVec
	SoftFailures *prometheus.CounterVec
	TokenRetries prometheus.Counter
	Layers       *prometheus.CounterVec
	Features     prometheus.Counter
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_total",
				Help:      "Total number of JSON documents served, by source",
			},
			[]string{"source"}, // "cache", "server"
		),
		SoftFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "soft_failures_total",
				Help:      "Total number of fetches that yielded an empty result",
			},
			[]string{"code"},
		),
		TokenRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_retries_total",
				Help:      "Total number of requests retried without a token",
			},
		),
		Layers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layers_total",
				Help:      "Total number of layer endpoints processed, by outcome",
			},
			[]string{"status"}, // "written", "skipped", "failed"
		),
		Features: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "features_total",
				Help:      "Total number of features written",
			},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests to ArcGIS servers",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"status"},
		),
	}
}

// Registry returns the registry holding the run's metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// FetchCompleted counts a served document.
func (m *Metrics) FetchCompleted(source arcgisdl.FetchSource) {
	m.Requests.WithLabelValues(string(source)).Inc()
}

// FetchFailed counts a soft failure by error code.
func (m *Metrics) FetchFailed(err error) {
	m.SoftFailures.WithLabelValues(arcgisdl.ErrorCode(err)).Inc()
}

// TokenRetried counts a tokenless retry.
func (m *Metrics) TokenRetried() {
	m.TokenRetries.Inc()
}

// LayerFinished counts a layer outcome and its features.
func (m *Metrics) LayerFinished(status arcgisdl.LayerStatus, features int) {
	m.Layers.WithLabelValues(string(status)).Inc()
	if status == arcgisdl.LayerWritten {
		m.Features.Add(float64(features))
	}
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is written atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Ensure InstrumentedTransport implements arcgisdl.Transport.
var _ arcgisdl.Transport = (*InstrumentedTransport)(nil)

// InstrumentedTransport wraps a Transport and records request durations.
type InstrumentedTransport struct {
	next    arcgisdl.Transport
	metrics *Metrics
}

// NewInstrumentedTransport creates a new InstrumentedTransport.
func NewInstrumentedTransport(next arcgisdl.Transport, metrics *Metrics) *InstrumentedTransport {
	return &InstrumentedTransport{next: next, metrics: metrics}
}

// Do delegates to the wrapped transport and observes its duration.
func (t *InstrumentedTransport) Do(ctx context.Context, req *arcgisdl.Request) (*arcgisdl.Response, error) {
	begin := time.Now()
	resp, err := t.next.Do(ctx, req)

	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	t.metrics.HTTPDuration.WithLabelValues(status).Observe(time.Since(begin).Seconds())
	return resp, err
}
