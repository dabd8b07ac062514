// Package metrics exposes engine lifecycle events as Prometheus collectors.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups the facet metrics.
type Collectors struct {
	registry *prometheus.Registry

	composed    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	layers      prometheus.Histogram
	lookups     *prometheus.CounterVec
	invalidated prometheus.Counter
}

// New creates the collectors on a dedicated registry, together with the Go runtime
// and process collectors.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		composed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facet_compositions_total",
				Help: "Total number of composition attempts",
			},
			[]string{"mode", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "facet_composition_duration_seconds",
				Help:    "Duration of compositions, including fragment resolution",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"mode"},
		),
		layers: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "facet_composition_layers",
				Help:    "Number of layers per composition",
				Buckets: prometheus.LinearBuckets(1, 2, 8),
			},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facet_fragment_lookups_total",
				Help: "Fragment lookups by cache outcome",
			},
			[]string{"outcome"},
		),
		invalidated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "facet_fragments_invalidated_total",
				Help: "Total number of cached fragments invalidated",
			},
		),
	}

	c.registry.MustRegister(
		c.composed, c.duration, c.layers, c.lookups, c.invalidated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Hooks returns lifecycle hooks that record into the collectors. next, when set, is
// invoked after recording so that hooks can be chained.
func (c *Collectors) Hooks(next domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCompose: func(ctx context.Context, e *domain.ComposeEvent) {
			mode := "explicit"
			if e.Random {
				mode = "random"
			}
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			c.composed.WithLabelValues(mode, result).Inc()
			c.duration.WithLabelValues(mode).Observe(e.Duration.Seconds())
			if e.Err == nil {
				c.layers.Observe(float64(e.Layers))
			}
			if next.OnCompose != nil {
				next.OnCompose(ctx, e)
			}
		},
		OnResolve: func(ctx context.Context, e *domain.ResolveEvent) {
			c.lookups.WithLabelValues("hit").Add(float64(e.CacheHits))
			c.lookups.WithLabelValues("miss").Add(float64(e.Requested - e.CacheHits))
			if next.OnResolve != nil {
				next.OnResolve(ctx, e)
			}
		},
		OnInvalidate: func(ctx context.Context, e *domain.InvalidateEvent) {
			c.invalidated.Add(float64(len(e.VariationIDs)))
			if next.OnInvalidate != nil {
				next.OnInvalidate(ctx, e)
			}
		},
	}
}

// Handler serves the collectors in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}
