package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	FileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relink_file_seconds",
		Help:    "Time spent scanning, resolving and rewriting a single content file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relink_run_seconds",
		Help:    "Time spent on a full pipeline phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	TokensScannedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relink_tokens_scanned_total",
		Help: "Total number of link tokens extracted, by token class.",
	}, []string{"class"})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relink_resolutions_total",
		Help: "Total number of internal link resolutions, by outcome and reason.",
	}, []string{"outcome", "reason"})

	FilesRewrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relink_files_rewritten_total",
		Help: "Total number of content files written back to disk.",
	})

	FileErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relink_file_errors_total",
		Help: "Total number of content files skipped because they could not be read or decoded.",
	}, []string{"code"})

	CheckEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relink_check_entries_total",
		Help: "Total number of link check entries produced by the final pass, by status.",
	}, []string{"status"})

	BrokenLinks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relink_broken_links",
		Help: "Number of broken links reported by the most recent check.",
	})

	RouteRules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relink_route_rules",
		Help: "Number of route rules in the most recently built route table.",
	})

	DirectiveWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relink_directive_warnings_total",
		Help: "Total number of directive lines skipped as unparseable.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relink_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
