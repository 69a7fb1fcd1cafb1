package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rust_affected_runs_total",
		Help: "Total number of affected-set computations, by trigger source.",
	}, []string{"trigger"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rust_affected_run_seconds",
		Help:    "Time spent computing one affected set.",
		Buckets: prometheus.DefBuckets,
	})

	GraphPackages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rust_affected_graph_packages_total",
		Help: "Total number of packages in the dependency graph.",
	})

	GraphMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rust_affected_graph_members_total",
		Help: "Total number of workspace members in the dependency graph.",
	})

	GraphLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rust_affected_graph_load_seconds",
		Help:    "Time spent loading workspace metadata into a graph.",
		Buckets: prometheus.DefBuckets,
	})

	GraphReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rust_affected_graph_reloads_total",
		Help: "Total number of graph reloads triggered by manifest changes.",
	})

	LastChangedCrates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rust_affected_last_changed_crates",
		Help: "Number of directly changed crates in the most recent run.",
	})

	LastAffectedMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rust_affected_last_affected_members",
		Help: "Number of affected workspace members in the most recent run.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rust_affected_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
