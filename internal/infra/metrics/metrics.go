// Package metrics exports registry read outcomes and batch sizes to
// Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/mahmed0x1/ARTEMIS/internal/domain"
	"github.com/mahmed0x1/ARTEMIS/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "artemis"

type Metrics struct {
	registry  *prometheus.Registry
	reads     *prometheus.CounterVec
	faults    *prometheus.CounterVec
	batchSize prometheus.Histogram
}

// New registers the oracle collectors plus the Go and process collectors on
// a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_reads_total",
			Help:      "Registry reads by operation and outcome (found, not_found, fault).",
		}, []string{"operation", "outcome"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_faults_total",
			Help:      "Registry reads degraded to absent because of a transport fault.",
		}, []string{"operation"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Distinct content hashes per batch query.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
	}
	m.registry.MustRegister(
		m.reads,
		m.faults,
		m.batchSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRead(_ context.Context, operation string, _ domain.ContentHash, kind domain.LookupKind, _ error) {
	m.reads.WithLabelValues(operation, string(kind)).Inc()
	if kind == domain.LookupFault {
		m.faults.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) ObserveBatch(size int) {
	m.batchSize.Observe(float64(size))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

var (
	_ usecase.RegistryObserver = (*Metrics)(nil)
	_ usecase.BatchObserver    = (*Metrics)(nil)
)
