package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes, used as the outcome label of the login counter.
const (
	outcomeSuccess = "success"
	outcomeMissing = "missing_credentials"
	outcomeInvalid = "invalid_credentials"
	outcomeError   = "error"
)

type metrics struct {
	registry *prometheus.Registry
	logins   *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lapor",
			Subsystem: "admin",
			Name:      "logins_total",
			Help:      "Admin login attempts by outcome.",
		}, []string{"outcome"}),
	}
	for _, outcome := range []string{outcomeSuccess, outcomeMissing, outcomeInvalid, outcomeError} {
		m.logins.WithLabelValues(outcome)
	}
	m.registry.MustRegister(
		m.logins,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) login(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
