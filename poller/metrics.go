package poller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for poll loop activity.
type Metrics struct {
	cycleDuration prometheus.Histogram
	posts         *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
}

// MustNewMetrics registers the poller collectors with reg. Registration errors
// panic, as with promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hire_scout",
			Subsystem: "poller",
			Name:      "cycle_duration_seconds",
			Help:      "Time spent in one poll cycle, excluding the sleep afterwards.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hire_scout",
			Subsystem: "poller",
			Name:      "posts_total",
			Help:      "Posts handled, by result.",
		}, []string{"result"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hire_scout",
			Subsystem: "poller",
			Name:      "fetch_errors_total",
			Help:      "Feed listing failures, by feed.",
		}, []string{"feed"}),
	}
	reg.MustRegister(m.cycleDuration, m.posts, m.fetchErrors)
	return m
}

func (m *Metrics) observeCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) incPost(result string) {
	if m == nil {
		return
	}
	m.posts.WithLabelValues(result).Inc()
}

func (m *Metrics) incFetchError(feedRef string) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(feedRef).Inc()
}
