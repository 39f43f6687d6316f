package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bitunix_client"

// Collector groups the client's prometheus series. A nil *Collector is
// valid and records nothing.
type Collector struct {
	attempts       *prometheus.CounterVec
	retries        *prometheus.CounterVec
	resyncs        *prometheus.CounterVec
	attemptLatency *prometheus.HistogramVec
	clockOffset    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "HTTP attempts by path and outcome",
			},
			[]string{"path", "outcome"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Retries scheduled by error kind",
			},
			[]string{"kind"},
		),
		resyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clock_resyncs_total",
				Help:      "Server clock synchronizations by trigger and source",
			},
			[]string{"trigger", "source"},
		),
		attemptLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Latency of a single HTTP attempt",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		clockOffset: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "clock_offset_ms",
				Help:      "Last measured server minus local clock offset",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(c.attempts, c.retries, c.resyncs, c.attemptLatency, c.clockOffset)
	}
	return c
}

func (c *Collector) ObserveAttempt(path, outcome string, took time.Duration) {
	if c == nil {
		return
	}
	c.attempts.WithLabelValues(path, outcome).Inc()
	c.attemptLatency.WithLabelValues(path).Observe(took.Seconds())
}

func (c *Collector) ObserveRetry(kind string) {
	if c == nil {
		return
	}
	c.retries.WithLabelValues(kind).Inc()
}

// ObserveSync implements timesync.Observer.
func (c *Collector) ObserveSync(trigger, source string, offsetMs int64) {
	if c == nil {
		return
	}
	c.resyncs.WithLabelValues(trigger, source).Inc()
	c.clockOffset.Set(float64(offsetMs))
}
