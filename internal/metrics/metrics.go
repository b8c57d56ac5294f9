package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobscout_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	ScrapeSessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobscout_scrape_session_duration_seconds",
			Help:    "Duration of each scrape session in seconds.",
			Buckets: []float64{10, 60, 300, 900, 1800},
		},
	)
	MatchSessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobscout_match_session_duration_seconds",
			Help:    "Duration of each match session in seconds.",
			Buckets: []float64{10, 60, 300, 900, 1800},
		},
	)
	SessionStepDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "jobscout_session_step_duration_seconds",
			Help:       "Duration of each step inside a session.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step"},
	)
	JobsDiscoveredCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobscout_jobs_discovered_total",
			Help: "Total number of discovered postings by diff outcome.",
		},
		[]string{"outcome"},
	)
	JobsScoredCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobscout_jobs_scored_total",
			Help: "Total number of scoring outcomes.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(ScrapeSessionDuration)
	prometheus.MustRegister(MatchSessionDuration)
	prometheus.MustRegister(SessionStepDuration)
	prometheus.MustRegister(JobsDiscoveredCounter)
	prometheus.MustRegister(JobsScoredCounter)
}

// Handler returns the /metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
