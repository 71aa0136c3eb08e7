package keyserver

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	registry *prometheus.Registry
}

func newMetrics(reg *prometheus.Registry, store Store) *metrics {
	m := &metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "knapchat_keyserver_requests_total",
			Help: "Directory requests by type and response status.",
		}, []string{"type", "status"}),
	}
	keys := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "knapchat_keyserver_registered_keys",
		Help: "Number of public keys currently registered.",
	}, func() float64 {
		entries, err := store.List(context.Background())
		if err != nil {
			return 0
		}
		return float64(len(entries))
	})
	reg.MustRegister(m.requests, keys)
	return m
}

// observe counts one answered request. An empty type is reported as
// "invalid".
func (m *metrics) observe(typ, status string) {
	if typ == "" {
		typ = "invalid"
	}
	m.requests.WithLabelValues(typ, status).Inc()
}
