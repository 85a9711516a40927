package internal

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics counts SessionSync outcomes
type SyncMetrics struct {
	Polls         *prometheus.CounterVec
	DetailFetches *prometheus.CounterVec
	StaleDiscards prometheus.Counter
	Deletes       *prometheus.CounterVec
	Sessions      prometheus.Gauge
}

// NewSyncMetrics creates the collectors and registers them with reg when reg is non-nil
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llm_inspector",
			Name:      "session_list_polls_total",
			Help:      "Session list refreshes by result.",
		}, []string{"result"}),
		DetailFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llm_inspector",
			Name:      "session_detail_fetches_total",
			Help:      "Session detail fetches by result.",
		}, []string{"result"}),
		StaleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "llm_inspector",
			Name:      "session_detail_stale_discards_total",
			Help:      "Detail responses dropped because the selection moved on.",
		}),
		Deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llm_inspector",
			Name:      "session_deletes_total",
			Help:      "Session deletes by result.",
		}, []string{"result"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "llm_inspector",
			Name:      "sessions",
			Help:      "Sessions in the last successfully fetched list.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Polls, m.DetailFetches, m.StaleDiscards, m.Deletes, m.Sessions)
	}
	return m
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
