package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postwatch_poll_ticks_total",
		Help: "Total poll loop ticks",
	})
	PollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postwatch_poll_errors_total",
		Help: "Total poll tick failures",
	})
	NewPosts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postwatch_new_posts_total",
		Help: "Total posts classified as new by the dedup tracker",
	})
	PollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "postwatch_poll_duration_seconds",
		Help:    "Poll tick duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	RangeRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postwatch_range_requests_total",
		Help: "Total accepted range-count requests",
	})
	RangePages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postwatch_range_pages_total",
		Help: "Total history pages fetched by range counts",
	})
	RangeRateLimitWaits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postwatch_range_rate_limit_waits_total",
		Help: "Total rate-limit suspensions during range counts",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postwatch_command_runs_total",
		Help: "Total command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postwatch_command_errors_total",
		Help: "Total command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(
		PollTicks, PollErrors, NewPosts, PollDuration,
		RangeRequests, RangePages, RangeRateLimitWaits,
		CommandRuns, CommandErrors,
	)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObservePollDuration records one tick duration.
func ObservePollDuration(start time.Time) {
	PollDuration.Observe(time.Since(start).Seconds())
}

// IncCommandRun increments the invocation counter for a command.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError increments the failure counter for a command.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
