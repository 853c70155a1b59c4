// Package poolmetrics exports sesspool statistics to Prometheus.
package poolmetrics

import (
	"github.com/derElektrobesen/sesspool"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is implemented by sesspool.ConnPool.
type StatsSource interface {
	Stats() sesspool.Stats
}

type collector struct {
	src StatsSource

	maxConnections    *prometheus.Desc
	connections       *prometheus.Desc
	pending           *prometheus.Desc
	activeSessions    *prometheus.Desc
	connectionsOpened *prometheus.Desc
	connectFailures   *prometheus.Desc
	sessionsExhausted *prometheus.Desc
}

// NewCollector returns a prometheus.Collector which reads the pool statistics on every scrape.
// Metric names are prefixed with namespace; constLabels are attached to every metric
// (useful when several pools are registered in one registry).
func NewCollector(namespace string, constLabels prometheus.Labels, src StatsSource) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, nil, constLabels)
	}

	return &collector{
		src: src,

		maxConnections:    desc("max_connections", "Maximum number of opened connections"),
		connections:       desc("connections", "Number of opened connections"),
		pending:           desc("pending_connections", "Number of connections being opened"),
		activeSessions:    desc("active_sessions", "Number of sessions in use over all connections"),
		connectionsOpened: desc("connections_opened_total", "Total number of opened connections"),
		connectFailures:   desc("connect_failures_total", "Total number of failed connection attempts"),
		sessionsExhausted: desc("sessions_exhausted_total", "Total number of session requests rejected by a full connection"),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.maxConnections
	ch <- c.connections
	ch <- c.pending
	ch <- c.activeSessions
	ch <- c.connectionsOpened
	ch <- c.connectFailures
	ch <- c.sessionsExhausted
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	ch <- prometheus.MustNewConstMetric(c.maxConnections, prometheus.GaugeValue, float64(st.MaxConnections))
	ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(st.Connections))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(st.Pending))
	ch <- prometheus.MustNewConstMetric(c.activeSessions, prometheus.GaugeValue, float64(st.ActiveSessions))
	ch <- prometheus.MustNewConstMetric(c.connectionsOpened, prometheus.CounterValue, float64(st.ConnectionsOpened))
	ch <- prometheus.MustNewConstMetric(c.connectFailures, prometheus.CounterValue, float64(st.ConnectFailures))
	ch <- prometheus.MustNewConstMetric(c.sessionsExhausted, prometheus.CounterValue, float64(st.SessionsExhausted))
}
