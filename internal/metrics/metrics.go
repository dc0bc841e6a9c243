package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keyrelay"

// Metrics groups the collectors the services report to.
type Metrics struct {
	registry *prometheus.Registry

	Commands        *prometheus.CounterVec
	UnlockFailures  prometheus.Counter
	UnlockThrottled prometheus.Counter
	RegistryOps     *prometheus.CounterVec
	DevicesOnline   prometheus.Gauge
	DevicesPolled   prometheus.Gauge
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Signed commands by action and result.",
		}, []string{"action", "result"}),
		UnlockFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlock_failures_total",
			Help:      "Key unlocks rejected as a wrong PIN.",
		}),
		UnlockThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlock_throttled_total",
			Help:      "Key unlocks refused by the attempt limiter.",
		}),
		RegistryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_mutations_total",
			Help:      "Device registry mutations by operation and result.",
		}, []string{"op", "result"}),
		DevicesOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_online",
			Help:      "Devices seen online in the last status poll.",
		}),
		DevicesPolled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_polled",
			Help:      "Devices checked in the last status poll.",
		}),
	}
	m.registry.MustRegister(
		m.Commands,
		m.UnlockFailures,
		m.UnlockThrottled,
		m.RegistryOps,
		m.DevicesOnline,
		m.DevicesPolled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer returns the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Result maps an error to a "success"/"failure" label value.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
