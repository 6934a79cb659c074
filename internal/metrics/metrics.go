// Package metrics exposes engine and sink counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vehicletracker/vehicletracker/internal/animation"
)

// Collector implements animation.Recorder and the publisher metrics hooks on a
// private registry.
type Collector struct {
	reg *prometheus.Registry

	RoutesGenerated *prometheus.CounterVec // option
	RoutesFailed    *prometheus.CounterVec // option, reason
	RouteFetch      prometheus.Histogram
	RoutePoints     prometheus.Histogram

	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram

	StateTransitions *prometheus.CounterVec // from, to
	CurrentState     *prometheus.GaugeVec   // state; 1 for the current one

	SnapshotsDropped prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	TickInterval prometheus.Gauge // seconds
}

var allStates = []animation.State{
	animation.StateIdle,
	animation.StateGenerating,
	animation.StateReady,
	animation.StatePlaying,
	animation.StateFinished,
}

// NewCollector builds a collector and records the configured tick interval.
func NewCollector(tickInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RoutesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_routes_generated_total",
			Help: "Routes successfully generated.",
		}, []string{"option"}),
		RoutesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_routes_failed_total",
			Help: "Route generations that ended without a route.",
		}, []string{"option", "reason"}),
		RouteFetch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_route_fetch_duration_seconds",
			Help:    "Provider latency of successful route fetches.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		RoutePoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_route_points",
			Help:    "Coordinate count of generated routes.",
			Buckets: prometheus.ExponentialBuckets(2, 2, 12),
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_ticks_total",
			Help: "Playback ticks that advanced the cursor.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_tick_duration_seconds",
			Help:    "Duration of playback tick computations.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		}),
		StateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_state_transitions_total",
			Help: "Engine state transitions.",
		}, []string{"from", "to"}),
		CurrentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tracker_state",
			Help: "1 for the engine's current state, 0 otherwise.",
		}, []string{"state"}),
		SnapshotsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_snapshots_dropped_total",
			Help: "Snapshots not delivered because a subscriber was full.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_tick_interval_seconds",
			Help: "Configured playback tick interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.RoutesGenerated, c.RoutesFailed, c.RouteFetch, c.RoutePoints,
		c.Ticks, c.TickDuration,
		c.StateTransitions, c.CurrentState,
		c.SnapshotsDropped,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.TickInterval,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c.TickInterval.Set(tickInterval.Seconds())
	for _, s := range allStates {
		c.CurrentState.WithLabelValues(s.String()).Set(0)
	}
	c.CurrentState.WithLabelValues(animation.StateIdle.String()).Set(1)

	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// RouteGenerated implements animation.Recorder.
func (c *Collector) RouteGenerated(option animation.Option, points int, fetch time.Duration) {
	c.RoutesGenerated.WithLabelValues(string(option)).Inc()
	c.RouteFetch.Observe(fetch.Seconds())
	c.RoutePoints.Observe(float64(points))
}

// RouteFailed implements animation.Recorder.
func (c *Collector) RouteFailed(option animation.Option, reason string) {
	c.RoutesFailed.WithLabelValues(string(option), reason).Inc()
}

// TickObserved implements animation.Recorder.
func (c *Collector) TickObserved(d time.Duration) {
	c.Ticks.Inc()
	c.TickDuration.Observe(d.Seconds())
}

// StateChanged implements animation.Recorder.
func (c *Collector) StateChanged(from, to animation.State) {
	c.StateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	c.CurrentState.WithLabelValues(from.String()).Set(0)
	c.CurrentState.WithLabelValues(to.String()).Set(1)
}

// SnapshotDropped implements animation.Recorder.
func (c *Collector) SnapshotDropped(n int) {
	c.SnapshotsDropped.Add(float64(n))
}

// NATSPublishedInc counts a successful publish.
func (c *Collector) NATSPublishedInc() { c.NATSPublished.Inc() }

// NATSPublishErrInc counts a failed publish.
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

// PublishObserve records publish latency.
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

// NATSSetConnected flips the connection gauge.
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}
