// Package metrics exposes Prometheus metrics for the DMS object service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

// Metrics holds all collectors of the service. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// Lifecycle metrics
	DeletionsTotal    *prometheus.CounterVec
	DeletedEntities   prometheus.Counter
	RevertedEntities  prometheus.Counter
	PurgedEntities    prometheus.Counter
	HistoryEntries    *prometheus.CounterVec
	RejectedMutations *prometheus.CounterVec
	CascadeSize       prometheus.Histogram

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var _ ports.LifecycleMetrics = (*Metrics)(nil)

// New creates and registers all collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.DeletionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dms_deletions_total",
			Help: "Deletion sets by lifecycle transition",
		},
		[]string{"transition"},
	)

	m.DeletedEntities = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "dms_deleted_entities_total",
			Help: "Entities moved to the trash",
		},
	)

	m.RevertedEntities = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "dms_reverted_entities_total",
			Help: "Entities restored from the trash",
		},
	)

	m.PurgedEntities = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "dms_purged_entities_total",
			Help: "Entities permanently removed",
		},
	)

	m.HistoryEntries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dms_history_entries_total",
			Help: "History entries recorded by relation type",
		},
		[]string{"relation"},
	)

	m.RejectedMutations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dms_frozen_rejections_total",
			Help: "Mutations rejected by freeze flags",
		},
		[]string{"operation"},
	)

	m.CascadeSize = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dms_deletion_set_size",
			Help:    "Number of entities in a new deletion set",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dms_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dms_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	return m
}

func (m *Metrics) DeletionCreated(entities int) {
	m.DeletionsTotal.WithLabelValues("created").Inc()
	m.DeletedEntities.Add(float64(entities))
	m.CascadeSize.Observe(float64(entities))
}

func (m *Metrics) DeletionReverted(entities int) {
	m.DeletionsTotal.WithLabelValues("reverted").Inc()
	m.RevertedEntities.Add(float64(entities))
}

func (m *Metrics) DeletionPurged(entities int) {
	m.DeletionsTotal.WithLabelValues("purged").Inc()
	m.PurgedEntities.Add(float64(entities))
}

func (m *Metrics) HistoryRecorded(relation domain.RelationType) {
	m.HistoryEntries.WithLabelValues(string(relation)).Inc()
}

func (m *Metrics) MutationRejected(op domain.Operation) {
	m.RejectedMutations.WithLabelValues(string(op)).Inc()
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
