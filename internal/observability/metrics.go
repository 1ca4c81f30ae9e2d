// Package observability exposes Prometheus metrics for activity writes and
// the mirror pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daylog",
		Subsystem: "activities",
		Name:      "writes_total",
		Help:      "Activity write operations, labelled by operation and outcome.",
	}, []string{"operation", "outcome"})

	budgetRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daylog",
		Subsystem: "activities",
		Name:      "budget_rejections_total",
		Help:      "Writes rejected because they would exceed the day budget.",
	})

	mirrorResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daylog",
		Subsystem: "mirror",
		Name:      "messages_total",
		Help:      "Mirror messages processed by the worker, labelled by outcome.",
	}, []string{"outcome"})

	mirrorWatermark = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daylog",
		Subsystem: "mirror",
		Name:      "last_mirrored_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity mirrored to Postgres.",
	})

	watchSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daylog",
		Subsystem: "watch",
		Name:      "active_sessions",
		Help:      "Currently open watch streams.",
	})
)

func init() {
	prometheus.MustRegister(activityWrites, budgetRejections, mirrorResults, mirrorWatermark, watchSessions)
}

// RecordActivityWrite counts one write operation.
func RecordActivityWrite(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	activityWrites.WithLabelValues(operation, outcome).Inc()
}

// RecordBudgetRejection counts a write refused by the day budget check.
func RecordBudgetRejection() {
	budgetRejections.Inc()
}

// RecordMirrorResult counts one processed mirror message.
func RecordMirrorResult(err error) {
	if err != nil {
		mirrorResults.WithLabelValues("error").Inc()
		return
	}
	mirrorResults.WithLabelValues("ok").Inc()
}

// RecordMirrored updates the mirror watermark gauge.
func RecordMirrored(ts time.Time) {
	if ts.IsZero() {
		return
	}
	mirrorWatermark.Set(float64(ts.Unix()))
}

// WatchOpened and WatchClosed track open watch streams.
func WatchOpened() { watchSessions.Inc() }

func WatchClosed() { watchSessions.Dec() }
