package internal

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the request pipeline does. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests       *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	sessionExpired *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authfetch_requests_total",
			Help: "Authenticated requests by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authfetch_refresh_total",
			Help: "Access credential refresh attempts by result.",
		}, []string{"result"}),
		sessionExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authfetch_session_expired_total",
			Help: "Sessions terminated because they could not be refreshed.",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.refreshes, m.sessionExpired} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) request(outcome string) {
	if m != nil {
		m.requests.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) refresh(result string) {
	if m != nil {
		m.refreshes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) expired(reason ExpiryReason) {
	if m != nil {
		m.sessionExpired.WithLabelValues(string(reason)).Inc()
	}
}
