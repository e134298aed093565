package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yetla"

// Metrics owns its registry so several instances can coexist in one process.
type Metrics struct {
	registry  *prometheus.Registry
	redirects *prometheus.CounterVec
	misses    *prometheus.CounterVec
	logins    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		redirects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Redirects served, by rule kind and HTTP status.",
		}, []string{"kind", "status"}),
		misses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirect_misses_total",
			Help:      "Catch-all requests that matched no rule.",
		}, []string{"reason"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login form submissions, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) Redirect(kind string, status int) {
	m.redirects.WithLabelValues(kind, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Miss(reason string) {
	m.misses.WithLabelValues(reason).Inc()
}

func (m *Metrics) Login(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
