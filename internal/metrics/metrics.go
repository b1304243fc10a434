package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hohparser/internal/extractor"
)

// Collector owns a private registry with the analysis and request metrics.
// It implements extractor.Observer.
type Collector struct {
	registry *prometheus.Registry

	analysesTotal   *prometheus.CounterVec
	analysisSeconds prometheus.Histogram
	entitiesTotal   *prometheus.CounterVec
	edgesTotal      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestSeconds  *prometheus.HistogramVec
}

var _ extractor.Observer = (*Collector)(nil)

// NewCollector registers every metric on a fresh registry, along with the
// Go runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		// Labels: outcome (ok, syntax_error, rejected, error)
		analysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hohparser",
			Subsystem: "analysis",
			Name:      "total",
			Help:      "Analyses by outcome",
		}, []string{"outcome"}),
		analysisSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hohparser",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Time spent analyzing one file",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		// Labels: kind (class, function)
		entitiesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hohparser",
			Subsystem: "analysis",
			Name:      "entities_total",
			Help:      "Classes and functions extracted",
		}, []string{"kind"}),
		// Labels: type (edge kind)
		edgesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hohparser",
			Subsystem: "analysis",
			Name:      "relationships_total",
			Help:      "Relationship edges extracted by type",
		}, []string{"type"}),
		// Labels: route, method, status
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hohparser",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hohparser",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveAnalysis records one analysis outcome.
func (c *Collector) ObserveAnalysis(outcome string, elapsed time.Duration, unit *extractor.SourceUnit) {
	c.analysesTotal.WithLabelValues(outcome).Inc()
	c.analysisSeconds.Observe(elapsed.Seconds())
	if unit == nil {
		return
	}
	c.entitiesTotal.WithLabelValues(extractor.KindClass).Add(float64(len(unit.Classes)))
	c.entitiesTotal.WithLabelValues(extractor.KindFunction).Add(float64(len(unit.Functions)))
	for _, r := range unit.Relationships {
		c.edgesTotal.WithLabelValues(string(r.Type)).Inc()
	}
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	c.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.requestSeconds.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
