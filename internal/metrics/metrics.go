package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the application's counters on a private prometheus
// registry so tests can construct isolated instances.
type Registry struct {
	registry        *prometheus.Registry
	loginAttempts   *prometheus.CounterVec
	policyDecisions *prometheus.CounterVec
	accountLockouts prometheus.Counter
	tokenRefreshes  *prometheus.CounterVec
}

func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		registry: reg,
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		policyDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rbac_policy_decisions_total",
			Help: "Policy engine decisions by outcome.",
		}, []string{"outcome"}),
		accountLockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_account_lockouts_total",
			Help: "Accounts locked after repeated failed logins.",
		}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_refreshes_total",
			Help: "Refresh attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.loginAttempts, m.policyDecisions, m.accountLockouts, m.tokenRefreshes)
	return m
}

func (m *Registry) LoginAttempt(success bool) {
	m.loginAttempts.WithLabelValues(outcome(success)).Inc()
}

func (m *Registry) PolicyDecision(allowed bool) {
	m.policyDecisions.WithLabelValues(outcome(allowed)).Inc()
}

func (m *Registry) AccountLocked() {
	m.accountLockouts.Inc()
}

func (m *Registry) TokenRefresh(success bool) {
	m.tokenRefreshes.WithLabelValues(outcome(success)).Inc()
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
