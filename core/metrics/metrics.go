// Package metrics holds the Prometheus collectors shared by the bot runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "datepoll"

var (
	// HandlerTotal counts handled updates by handler name and outcome.
	HandlerTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_total",
		Help:      "Updates handled, by handler and outcome.",
	}, []string{"handler", "outcome"})

	// HandlerDuration observes handler latency in seconds.
	HandlerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "handler_duration_seconds",
		Help:      "Time spent inside update handlers.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"handler"})

	// MessagesSent counts successful sends and edits made from handlers.
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Messages sent or edited, by kind.",
	}, []string{"kind"})

	// SenderFailures counts jobs the async dispatcher gave up on.
	SenderFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sender_failures_total",
		Help:      "Outbound jobs that failed after retries, by error kind.",
	}, []string{"kind"})

	// RateLimited counts updates dropped by the rate limiter.
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Updates dropped by the per-user rate limiter.",
	})

	// Polls counts poll lifecycle events (published, tallied, cancelled).
	Polls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "polls_total",
		Help:      "Poll lifecycle events.",
	}, []string{"event"})
)

// ActiveSessions exposes the number of live selection sessions, read from fn
// at scrape time.
func ActiveSessions(fn func() float64) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Selection sessions currently in memory.",
	}, fn)
}

// Register adds the shared collectors and any extra ones to reg.
func Register(reg prometheus.Registerer, extra ...prometheus.Collector) error {
	collectors := []prometheus.Collector{
		HandlerTotal, HandlerDuration, MessagesSent, SenderFailures, RateLimited, Polls,
	}
	for _, c := range append(collectors, extra...) {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
