package metrics

import "github.com/prometheus/client_golang/prometheus"

// AdviceLatencyMetric is the histogram the admin dashboard snapshots.
const AdviceLatencyMetric = "medicare_advice_latency_seconds"

// AuthMetrics exposes counters for the auth surface.
type AuthMetrics struct {
	loginsTotal  *prometheus.CounterVec
	signupsTotal *prometheus.CounterVec
}

func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medicare",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total sign-in attempts by outcome",
		}, []string{"outcome"}),
		signupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medicare",
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      "Total registration attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.loginsTotal, m.signupsTotal)
	return m
}

func (m *AuthMetrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObserveSignup(outcome string) {
	if m == nil {
		return
	}
	m.signupsTotal.WithLabelValues(outcome).Inc()
}

// AdviceMetrics exposes counters/histograms for the advice relay.
type AdviceMetrics struct {
	requestsTotal *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

func NewAdviceMetrics(reg prometheus.Registerer) *AdviceMetrics {
	m := &AdviceMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medicare",
			Subsystem: "advice",
			Name:      "requests_total",
			Help:      "Total advice relay requests by feature and status",
		}, []string{"feature", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    AdviceLatencyMetric,
			Help:    "Latency of upstream inference calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"feature"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.latency)
	return m
}

func (m *AdviceMetrics) ObserveRequest(feature, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(feature, status).Inc()
}

func (m *AdviceMetrics) ObserveLatency(feature string, seconds float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(feature).Observe(seconds)
}

// AppointmentMetrics tracks lifecycle transitions.
type AppointmentMetrics struct {
	transitionsTotal *prometheus.CounterVec
	createdTotal     prometheus.Counter
}

func NewAppointmentMetrics(reg prometheus.Registerer) *AppointmentMetrics {
	m := &AppointmentMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medicare",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Status transitions by target status and actor role",
		}, []string{"to", "actor"}),
		createdTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medicare",
			Subsystem: "appointments",
			Name:      "created_total",
			Help:      "Appointment requests created",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.createdTotal)
	return m
}

func (m *AppointmentMetrics) ObserveTransition(to, actor string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to, actor).Inc()
}

func (m *AppointmentMetrics) ObserveCreated() {
	if m == nil {
		return
	}
	m.createdTotal.Inc()
}
