// Package metrics exposes location store activity as prometheus collectors.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwebster45206/lootmap/internal/services/events"
	"github.com/jwebster45206/lootmap/pkg/location"
)

const namespace = "lootmap"

// Recorder owns a registry and the collectors published on it
type Recorder struct {
	registry *prometheus.Registry

	storageDuration *prometheus.HistogramVec
	storageResults  *prometheus.CounterVec
	eventsTotal     *prometheus.CounterVec
	locationTypes   prometheus.Gauge
	instances       *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry. Process and Go
// runtime collectors are included so /metrics is useful on its own.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		storageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Time spent in storage operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		storageResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Storage operations by outcome.",
		}, []string{"operation", "status"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Location events emitted on the bus.",
		}, []string{"kind"}),
		locationTypes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "location_types",
			Help:      "Distinct location names currently stored.",
		}),
		instances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "location_instances",
			Help:      "Stored instances by loot state.",
		}, []string{"state"}),
	}

	r.registry.MustRegister(
		r.storageDuration,
		r.storageResults,
		r.eventsTotal,
		r.locationTypes,
		r.instances,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry backing the recorder
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveStorage records one storage operation outcome
func (r *Recorder) ObserveStorage(operation string, success bool, duration time.Duration) {
	status := "error"
	if success {
		status = "success"
	}
	r.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
	r.storageResults.WithLabelValues(operation, status).Inc()
}

// SetStats publishes the current totals
func (r *Recorder) SetStats(s location.Stats) {
	r.locationTypes.Set(float64(s.LocationTypes))
	r.instances.WithLabelValues("available").Set(float64(s.Available))
	r.instances.WithLabelValues("looted").Set(float64(s.Looted))
}

// StatsFunc supplies fresh totals after each event
type StatsFunc func() location.Stats

// Attach counts every event on bus. When stats is non-nil the gauges are
// refreshed after each event.
func (r *Recorder) Attach(bus *events.Bus, stats StatsFunc) []events.Subscription {
	kinds := []events.Kind{
		events.KindLocationAdded,
		events.KindLocationRemoved,
		events.KindLootUpdated,
		events.KindLocationsLoaded,
	}
	subs := make([]events.Subscription, 0, len(kinds))
	for _, kind := range kinds {
		subs = append(subs, bus.Subscribe(kind, "metrics", func(ctx context.Context, ev events.Event) error {
			r.eventsTotal.WithLabelValues(string(ev.Kind())).Inc()
			if stats != nil {
				r.SetStats(stats())
			}
			return nil
		}))
	}
	return subs
}
