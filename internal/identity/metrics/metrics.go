// Package metrics exposes Prometheus collectors for identity resolution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ResolutionsTotal     *prometheus.CounterVec
	UnauthenticatedTotal prometheus.Counter
	LoginAttemptsTotal   *prometheus.CounterVec
	FreshLookupFallbacks prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tillgate_identity_resolutions_total",
			Help: "Successful principal resolutions by credential source.",
		}, []string{"source"}),
		UnauthenticatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tillgate_identity_unauthenticated_total",
			Help: "Requests where no credential channel yielded a principal.",
		}),
		LoginAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tillgate_identity_login_attempts_total",
			Help: "Password login attempts by outcome.",
		}, []string{"outcome"}),
		FreshLookupFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "tillgate_identity_fresh_lookup_fallbacks_total",
			Help: "Resolutions that fell back to embedded credential claims after a failed store lookup.",
		}),
	}
}

func (m *Metrics) ObserveResolution(source string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveUnauthenticated() {
	if m == nil {
		return
	}
	m.UnauthenticatedTotal.Inc()
}

func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.FreshLookupFallbacks.Inc()
}
