package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "diamond_fetch_total", Help: "Per-symbol fetch attempts by outcome"},
		[]string{"outcome"},
	)
	BreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "diamond_breaker_trips_total", Help: "Aborted strategy runs by check"},
		[]string{"check"},
	)
	Candidates = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "diamond_candidates", Help: "Candidates in the last published contract"},
	)
	Dispersion = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "diamond_dispersion", Help: "Sector dispersion of the last regime"},
	)
	KillSwitch = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "diamond_kill_switch", Help: "1 when the last contract carried the kill switch"},
	)
	QuarantineSize = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "diamond_quarantine_size", Help: "Symbols currently quarantined"},
	)
	RecordsAppended = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "diamond_records_appended_total", Help: "Execution records appended to the history store"},
	)
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "diamond_job_runs_total", Help: "Scheduled job runs by status"},
		[]string{"job", "status"},
	)
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diamond_stage_duration_seconds",
			Help:    "Wall time of pipeline stages",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(
		FetchTotal, BreakerTrips, Candidates, Dispersion, KillSwitch,
		QuarantineSize, RecordsAppended, JobRuns, StageDuration,
	)
}

// ObserveStage records the elapsed time since start for a stage
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// SetBool sets a gauge to 1 or 0
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
