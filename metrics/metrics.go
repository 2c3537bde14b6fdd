// Package metrics holds the Prometheus collectors shared by the loader,
// the dispatcher and the web adapter.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tableqa"

var (
	datasetLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dataset_loads_total",
		Help:      "Dataset load attempts by format and outcome.",
	}, []string{"format", "outcome"})

	dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_total",
		Help:      "Model dispatches by outcome.",
	}, []string{"outcome"})

	dispatchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dispatch_duration_seconds",
		Help:      "Wall time of one model round trip.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	truncatedInputs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_truncated_total",
		Help:      "Dispatches whose table had to be cut to fit the token limit.",
	})

	webSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "web_sessions",
		Help:      "Web form sessions currently holding a dataset.",
	})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveLoad counts one load attempt.
func ObserveLoad(format string, err error) {
	datasetLoads.WithLabelValues(format, outcome(err)).Inc()
}

// ObserveDispatch counts one dispatch and records its duration.
func ObserveDispatch(started time.Time, truncated bool, err error) {
	dispatches.WithLabelValues(outcome(err)).Inc()
	dispatchSeconds.Observe(time.Since(started).Seconds())
	if truncated {
		truncatedInputs.Inc()
	}
}

// SessionOpened and SessionClosed track live web sessions.
func SessionOpened() { webSessions.Inc() }
func SessionClosed() { webSessions.Dec() }
