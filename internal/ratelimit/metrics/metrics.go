package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AdmissionsTotal      *prometheus.CounterVec
	DenialsTotal         *prometheus.CounterVec
	BlocksImposedTotal   prometheus.Counter
	TrackedClients       prometheus.Gauge
	SweepRunsTotal       *prometheus.CounterVec
	SweepEvictionsTotal  prometheus.Counter
	SweepDurationSeconds prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AdmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tillgate_ratelimit_admissions_total",
			Help: "Total number of admitted requests by endpoint class",
		}, []string{"class"}),
		DenialsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tillgate_ratelimit_denials_total",
			Help: "Total number of denied requests by endpoint class and reason",
		}, []string{"class", "reason"}),
		BlocksImposedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tillgate_ratelimit_blocks_imposed_total",
			Help: "Total number of punitive blocks imposed",
		}),
		TrackedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tillgate_ratelimit_tracked_clients",
			Help: "Current number of tracked client window entries",
		}),
		SweepRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tillgate_ratelimit_sweep_runs_total",
			Help: "Total number of sweep runs",
		}, []string{"status"}),
		SweepEvictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tillgate_ratelimit_sweep_evictions_total",
			Help: "Total number of client entries evicted by the sweeper",
		}),
		SweepDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "tillgate_ratelimit_sweep_duration_seconds",
			Help: "Duration of sweep runs in seconds",
		}),
	}
}

func (m *Metrics) RecordAdmission(class string) {
	m.AdmissionsTotal.WithLabelValues(class).Inc()
}

func (m *Metrics) RecordDenial(class, reason string) {
	m.DenialsTotal.WithLabelValues(class, reason).Inc()
}

func (m *Metrics) RecordBlockImposed() {
	m.BlocksImposedTotal.Inc()
}

func (m *Metrics) SetTrackedClients(count int) {
	m.TrackedClients.Set(float64(count))
}

func (m *Metrics) RecordSweep(status string, evicted int, durationSeconds float64) {
	m.SweepRunsTotal.WithLabelValues(status).Inc()
	m.SweepEvictionsTotal.Add(float64(evicted))
	m.SweepDurationSeconds.Observe(durationSeconds)
}
