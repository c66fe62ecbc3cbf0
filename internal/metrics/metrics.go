package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the sampler's Prometheus collectors and implements
// sampler.Observer.
type Metrics struct {
	registry *prometheus.Registry

	Sessions prometheus.Gauge
	Produced prometheus.Counter
	Drained  prometheus.Counter
	Dropped  prometheus.Counter
	Backends *prometheus.CounterVec
}

// New creates collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mitschreiber_sessions_active",
			Help: "Number of running sampling sessions",
		}),
		Produced: factory.NewCounter(prometheus.CounterOpts{
			Name: "mitschreiber_samples_produced_total",
			Help: "Total number of samples produced by session workers",
		}),
		Drained: factory.NewCounter(prometheus.CounterOpts{
			Name: "mitschreiber_samples_drained_total",
			Help: "Total number of samples returned to poll callers",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "mitschreiber_samples_dropped_total",
			Help: "Total number of samples dropped by bounded session buffers",
		}),
		Backends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mitschreiber_probe_selected_total",
				Help: "Probe backends selected at worker start",
			},
			[]string{"backend"},
		),
	}
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted(string) { m.Sessions.Inc() }
func (m *Metrics) SessionStopped(string) { m.Sessions.Dec() }

func (m *Metrics) ProbeSelected(_ string, backend string) {
	m.Backends.WithLabelValues(backend).Inc()
}

func (m *Metrics) SampleProduced(string) { m.Produced.Inc() }

func (m *Metrics) SamplesDropped(_ string, n int) { m.Dropped.Add(float64(n)) }

func (m *Metrics) SamplesDrained(_ string, n int) { m.Drained.Add(float64(n)) }
