package cookiestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Commit outcomes.
const (
	outcomeOK    = "ok"
	outcomeFail  = "fail"
	outcomeMixed = "mixed"
	// outcomeNone marks a commit that had nothing to write.
	outcomeNone = "none"
)

// Load kinds.
const (
	loadFull     = "full"
	loadPriority = "priority"
)

type metrics struct {
	commits           *prometheus.CounterVec
	statements        prometheus.Counter
	statementFailures prometheus.Counter
	pending           prometheus.Gauge
	backlogWarnings   prometheus.Counter

	loads           *prometheus.CounterVec
	loadDuration    *prometheus.HistogramVec
	loadedCookies   prometheus.Counter
	malformedRows   prometheus.Counter
	decryptFailures prometheus.Counter
	slowDecrypts    prometheus.Counter

	priorityBlocking prometheus.Counter

	corruptions prometheus.Counter
	razes       prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		commits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiestore_commit_total",
			Help: "Commits by outcome (ok, fail, mixed, none).",
		}, []string{"outcome"}),
		statements: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiestore_commit_statements_total",
			Help: "Write statements applied by commits.",
		}),
		statementFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiestore_commit_statement_failures_total",
			Help: "Write statements that failed inside a commit.",
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "cookiestore_pending_operations",
			Help: "Operations queued for the next commit.",
		}),
		backlogWarnings: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiestore_backlog_warnings_total",
			Help: "Times the pending queue exceeded the backlog threshold.",
		}),
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiestore_load_total",
			Help: "Completed loads by kind and result.",
		}, []string{"kind", "result"}),
		loadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cookiestore_load_duration_seconds",
			Help:    "Time from load request to callback.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		}, []string{"kind"}),
		loadedCookies: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiestore_loaded_cookies_total",
			Help: "Cookies decoded from disk.",
		}),
		malformedRows: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiestore_malformed_rows_total",
			Help: "Rows dropped on load for failing the canonical form check.",
		}),
		decryptFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiestore_decrypt_failures_total",
			Help: "Rows dropped on load because their value could not be decrypted.",
		}),
		slowDecrypts: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiestore_slow_decrypts_total",
			Help: "Decryptions that exceeded the watchdog timeout.",
		}),
		priorityBlocking: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiestore_priority_blocking_seconds_total",
			Help: "Wall time with at least one priority load outstanding.",
		}),
		corruptions: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiestore_corruption_total",
			Help: "Corruption errors reported by SQLite.",
		}),
		razes: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiestore_raze_total",
			Help: "Times the database was razed and recreated.",
		}),
	}
}
