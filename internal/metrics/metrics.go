// Package metrics holds the Prometheus instrumentation of the poll loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts completed and attempted poll cycles.
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zhs_poll_cycles_total",
		Help: "Number of poll cycles started.",
	})

	// FetchErrors counts failed source fetches per source.
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zhs_fetch_errors_total",
		Help: "Number of failed source fetches.",
	}, []string{"source"})

	// ChangesDetected counts detected change events by kind.
	ChangesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zhs_changes_detected_total",
		Help: "Number of detected course changes.",
	}, []string{"kind"})

	// NotificationsSent counts successfully delivered change notifications.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zhs_notifications_sent_total",
		Help: "Number of delivered change notifications.",
	})

	// AlertsSent counts delivered error alerts.
	AlertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zhs_alerts_sent_total",
		Help: "Number of delivered error alerts.",
	})

	// AlertsSuppressed counts error alerts suppressed by the cooldown.
	AlertsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zhs_alerts_suppressed_total",
		Help: "Number of error alerts suppressed by the per-subject cooldown.",
	})

	// CoursesTracked reports the size of the last aggregated snapshot.
	CoursesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zhs_courses_tracked",
		Help: "Number of courses in the last aggregated snapshot.",
	})
)
