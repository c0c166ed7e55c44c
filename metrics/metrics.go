// Package metrics is the optional Prometheus collector: queue depth,
// worker busy count, and live secure-session count, the three numbers
// an operator would reach for first when diagnosing the server under
// load.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the gauges/counters the server updates as it runs.
type Collector struct {
	QueueDepth    prometheus.Gauge
	WorkerBusy    prometheus.Counter
	SessionsLive  prometheus.Gauge
	MessagesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New builds a Collector registered against its own private registry
// (not the global default), so tests can build more than one without
// colliding.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "space_captain",
			Name:      "queue_depth",
			Help:      "Current number of items in the work queue.",
		}),
		WorkerBusy: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "space_captain",
			Name:      "worker_dispatches_total",
			Help:      "Total number of work items dispatched to a handler.",
		}),
		SessionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "space_captain",
			Name:      "sessions_live",
			Help:      "Current number of live secure sessions.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "space_captain",
			Name:      "messages_total",
			Help:      "Total messages handled, by message type.",
		}, []string{"message_type"}),
		registry: reg,
	}

	reg.MustRegister(c.QueueDepth, c.WorkerBusy, c.SessionsLive, c.MessagesTotal)
	return c
}

// Handler returns an http.Handler serving this Collector's metrics in
// the Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveQueueDepth and IncDispatch implement worker.Recorder, letting a
// Collector be attached directly to a worker.Pool via SetRecorder.
func (c *Collector) ObserveQueueDepth(n int) {
	c.QueueDepth.Set(float64(n))
}

func (c *Collector) IncDispatch(messageType string) {
	c.WorkerBusy.Inc()
	c.MessagesTotal.WithLabelValues(messageType).Inc()
}
