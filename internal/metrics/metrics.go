// Registers:
//
//	#ldexplorer_lookups_total{service,status}
//	#ldexplorer_runs_total{status}
//	#ldexplorer_run_duration_seconds
//	#ldexplorer_reports_written_total{format,destination}
//	#go_* and process_* system metrics
//
// Handler exposes them in the Prometheus text format.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ServiceLDLink      = "ldlink"
	ServiceAssociation = "gwas_association"
	ServiceTrait       = "gwas_trait"

	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

var (
	once           sync.Once
	registry       *prometheus.Registry
	lookups        *prometheus.CounterVec
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	reportsWritten *prometheus.CounterVec
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		lookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ldexplorer_lookups_total",
				Help: "Remote lookups by service and outcome",
			},
			[]string{"service", "status"},
		)
		runs = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ldexplorer_runs_total",
				Help: "Explorer runs by outcome",
			},
			[]string{"status"},
		)
		runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ldexplorer_run_duration_seconds",
			Help:    "Wall time of explorer runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		})
		reportsWritten = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ldexplorer_reports_written_total",
				Help: "Reports written by format and destination",
			},
			[]string{"format", "destination"},
		)

		registry.MustRegister(lookups, runs, runDuration, reportsWritten)
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the registry. Init is called if needed.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func IncrementLookup(service, status string) {
	if lookups != nil {
		lookups.WithLabelValues(service, status).Inc()
	}
}

func ObserveRun(status string, elapsed time.Duration) {
	if runs == nil {
		return
	}
	runs.WithLabelValues(status).Inc()
	runDuration.Observe(elapsed.Seconds())
}

func IncrementReportWritten(format, destination string) {
	if reportsWritten != nil {
		reportsWritten.WithLabelValues(format, destination).Inc()
	}
}
