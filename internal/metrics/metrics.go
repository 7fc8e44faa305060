// Package metrics exposes Prometheus metrics of the library server and
// client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storyshelf"

// Collector holds all Prometheus metrics. Every method is safe on a nil
// *Collector, which disables collection.
type Collector struct {
	registry *prometheus.Registry

	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	AuthRejections  prometheus.Counter
	ProgressTicks   prometheus.Counter
	PartsStreamed   *prometheus.CounterVec
	Dials           *prometheus.CounterVec
}

// New creates a Collector with its own registry.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of protocol commands served",
			},
			[]string{"command", "outcome"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Protocol command duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		AuthRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_rejections_total",
				Help:      "Total number of commands rejected for a bad key",
			},
		),
		ProgressTicks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "progress_ticks_total",
				Help:      "Total number of progress ticks forwarded to clients",
			},
		),
		PartsStreamed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "story_parts_total",
				Help:      "Total number of story parts streamed",
			},
			[]string{"direction"},
		),
		Dials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_dials_total",
				Help:      "Total number of connections opened by the remote client",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		c.Commands,
		c.CommandDuration,
		c.AuthRejections,
		c.ProgressTicks,
		c.PartsStreamed,
		c.Dials,
	)

	return c
}

// Registry returns the registry metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) CommandServed(command, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.Commands.WithLabelValues(command, outcome).Inc()
	c.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

func (c *Collector) AuthRejected() {
	if c == nil {
		return
	}
	c.AuthRejections.Inc()
}

func (c *Collector) ProgressForwarded() {
	if c == nil {
		return
	}
	c.ProgressTicks.Inc()
}

// PartStreamed counts one story part; direction is "in" or "out".
func (c *Collector) PartStreamed(direction string) {
	if c == nil {
		return
	}
	c.PartsStreamed.WithLabelValues(direction).Inc()
}

func (c *Collector) Dialed(outcome string) {
	if c == nil {
		return
	}
	c.Dials.WithLabelValues(outcome).Inc()
}
