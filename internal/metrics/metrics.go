package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "sink_client"

// Logout reasons.
const (
	ReasonRefreshFailed = "refresh_failed"
	ReasonUnauthorized  = "unauthorized"
	ReasonUser          = "user"
)

// Metrics counts session lifecycle events. A nil *Metrics is valid and records nothing.
type Metrics struct {
	refreshes   *prometheus.CounterVec
	logouts     *prometheus.CounterVec
	keeperTicks prometheus.Counter
}

// New registers the session counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Refresh-token exchanges by result.",
		}, []string{"result"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Sessions ended, by reason.",
		}, []string{"reason"}),
		keeperTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keeper_ticks_total",
			Help:      "Session Keeper firings.",
		}),
	}
	reg.MustRegister(m.refreshes, m.logouts, m.keeperTicks)
	return m
}

func (m *Metrics) RefreshSucceeded() {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues("success").Inc()
}

func (m *Metrics) RefreshFailed() {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues("failure").Inc()
}

func (m *Metrics) LoggedOut(reason string) {
	if m == nil {
		return
	}
	m.logouts.WithLabelValues(reason).Inc()
}

func (m *Metrics) KeeperTicked() {
	if m == nil {
		return
	}
	m.keeperTicks.Inc()
}

// Refreshes exposes the refresh counter for a result label, for tests and reports.
func (m *Metrics) Refreshes(result string) prometheus.Counter {
	return m.refreshes.WithLabelValues(result)
}

// Logouts exposes the logout counter for a reason label.
func (m *Metrics) Logouts(reason string) prometheus.Counter {
	return m.logouts.WithLabelValues(reason)
}

// KeeperTicks exposes the keeper tick counter.
func (m *Metrics) KeeperTicks() prometheus.Counter {
	return m.keeperTicks
}
