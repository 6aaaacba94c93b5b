// Package metrics exposes Prometheus collectors for the api and worker
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachbot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	EntryActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachbot_entry_actions_total",
			Help: "Medication entry mutations by action",
		},
		[]string{"action"}, // add, taken, delete
	)

	StreakResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coachbot_streak_resets_total",
			Help: "Positive streaks reset by a missed dose",
		},
	)

	BadgesUnlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachbot_badges_unlocked_total",
			Help: "Badges unlocked by badge id",
		},
		[]string{"badge"},
	)

	Reminders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachbot_reminders_total",
			Help: "Dose reminders by outcome",
		},
		[]string{"outcome"}, // scheduled, sent, failed
	)
)

// RecordEntryAction counts one store mutation
func RecordEntryAction(action string) {
	EntryActions.WithLabelValues(action).Inc()
}

// RecordReminder counts one reminder outcome
func RecordReminder(outcome string) {
	Reminders.WithLabelValues(outcome).Inc()
}

// Middleware observes request duration labelled by chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
