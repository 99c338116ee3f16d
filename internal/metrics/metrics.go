// Package metrics provides Prometheus metrics for link validation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all link-validator metrics.
	Namespace = "linkvalidator"

	subsystemValidator = "validator"
	subsystemRenderer  = "renderer"
	subsystemFallback  = "fallback"
	subsystemCache     = "cache"
	subsystemCleanser  = "cleanser"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	VerdictsTotal  *prometheus.CounterVec
	BatchesTotal   prometheus.Counter
	BatchSize      prometheus.Histogram
	BatchDuration  prometheus.Histogram
	RenderTotal    *prometheus.CounterVec
	RenderDuration prometheus.Histogram
	CircuitState   prometheus.Gauge
	FallbackTotal  *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	LinksChecked   prometheus.Counter
	LinksRemoved   prometheus.Counter
}

// New creates and registers all metrics on reg, or on the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initValidatorMetrics(factory)
	m.initRendererMetrics(factory)
	m.initFallbackMetrics(factory)
	m.initCacheMetrics(factory)
	m.initCleanserMetrics(factory)

	return m
}

func (m *Metrics) initValidatorMetrics(factory promauto.Factory) {
	m.VerdictsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemValidator,
		Name:      "verdicts_total",
		Help:      "Total number of URL verdicts by status",
	}, []string{"status"})

	m.BatchesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemValidator,
		Name:      "batches_total",
		Help:      "Total number of validated batches",
	})

	m.BatchSize = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystemValidator,
		Name:      "batch_size",
		Help:      "Number of URLs per batch",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	m.BatchDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystemValidator,
		Name:      "batch_duration_seconds",
		Help:      "Wall-clock duration of a batch",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
}

func (m *Metrics) initRendererMetrics(factory promauto.Factory) {
	m.RenderTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemRenderer,
		Name:      "requests_total",
		Help:      "Render service calls by outcome",
	}, []string{"outcome"})

	m.RenderDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystemRenderer,
		Name:      "duration_seconds",
		Help:      "Render service call latency",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 9),
	})

	m.CircuitState = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: subsystemRenderer,
		Name:      "circuit_state",
		Help:      "Render circuit breaker state (0=closed, 1=open, 2=half-open)",
	})
}

func (m *Metrics) initFallbackMetrics(factory promauto.Factory) {
	m.FallbackTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemFallback,
		Name:      "requests_total",
		Help:      "Plain HTTP fallback checks by outcome",
	}, []string{"outcome"})
}

func (m *Metrics) initCacheMetrics(factory promauto.Factory) {
	m.CacheLookups = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemCache,
		Name:      "lookups_total",
		Help:      "Verdict cache lookups by result",
	}, []string{"result"})
}

func (m *Metrics) initCleanserMetrics(factory promauto.Factory) {
	m.LinksChecked = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemCleanser,
		Name:      "links_checked_total",
		Help:      "Unique external links validated by the cleanser",
	})

	m.LinksRemoved = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemCleanser,
		Name:      "links_removed_total",
		Help:      "Markdown links reduced to their anchor text",
	})
}

// ObserveVerdict counts one verdict.
func (m *Metrics) ObserveVerdict(status string) {
	if m == nil {
		return
	}
	m.VerdictsTotal.WithLabelValues(status).Inc()
}

// ObserveBatch records a finished batch.
func (m *Metrics) ObserveBatch(size int, d time.Duration) {
	if m == nil {
		return
	}
	m.BatchesTotal.Inc()
	m.BatchSize.Observe(float64(size))
	m.BatchDuration.Observe(d.Seconds())
}

// ObserveRender records one render service call.
func (m *Metrics) ObserveRender(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RenderTotal.WithLabelValues(outcome).Inc()
	m.RenderDuration.Observe(d.Seconds())
}

// SetCircuitState exports the breaker state.
func (m *Metrics) SetCircuitState(state int) {
	if m == nil {
		return
	}
	m.CircuitState.Set(float64(state))
}

// ObserveFallback records one fallback check.
func (m *Metrics) ObserveFallback(outcome string) {
	if m == nil {
		return
	}
	m.FallbackTotal.WithLabelValues(outcome).Inc()
}

// ObserveCacheLookup records a cache hit, miss or error.
func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveCleanse records one cleanser pass.
func (m *Metrics) ObserveCleanse(checked, removed int) {
	if m == nil {
		return
	}
	m.LinksChecked.Add(float64(checked))
	m.LinksRemoved.Add(float64(removed))
}
