// Package telemetry holds the process-wide tracer and Prometheus collectors
// of solving sessions. No exporter is configured here; spans go to whatever
// provider the embedding program installs, and the collectors are served by
// the app's /metrics endpoint.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("mzngo")

var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mzngo_sessions_started_total",
		Help: "Number of solving sessions that spawned a driver process.",
	})
	sessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mzngo_sessions_finished_total",
		Help: "Number of finished solving sessions by final status and outcome.",
	}, []string{"status", "outcome"})
	solutionsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mzngo_solutions_total",
		Help: "Number of decoded solutions across all sessions.",
	})
	sessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mzngo_session_duration_seconds",
		Help:    "Wall-clock duration of solving sessions.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"outcome"})
	forcedKills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mzngo_forced_kills_total",
		Help: "Number of driver processes killed after the stop grace period.",
	})
	preflightRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mzngo_preflight_rejections_total",
		Help: "Number of sessions rejected before spawning a process.",
	})
)

// StartSpan opens a span named after the operation.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// SessionStarted counts a spawned session.
func SessionStarted() { sessionsStarted.Inc() }

// SessionFinished records the end of a session.
func SessionFinished(status, outcome string, elapsed time.Duration) {
	sessionsFinished.WithLabelValues(status, outcome).Inc()
	sessionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// SolutionFound counts one decoded solution.
func SolutionFound() { solutionsFound.Inc() }

// ForcedKill counts a process killed after its grace period.
func ForcedKill() { forcedKills.Inc() }

// PreflightRejected counts a session refused before spawning.
func PreflightRejected() { preflightRejections.Inc() }
