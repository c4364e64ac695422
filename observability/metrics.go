package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the money paths. Registered on the default registry at
// package init.
var (
	// WagersSettled counts settled wagers by result.
	WagersSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankroll_wagers_settled_total",
		Help: "Number of wagers settled, labelled by result.",
	}, []string{"result"})

	// SpinPayoutFailures counts spins whose payout credit failed after the
	// spin record committed. These need manual follow-up.
	SpinPayoutFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bankroll_spin_payout_failures_total",
		Help: "Number of spins whose payout credit failed.",
	})

	// EventsPublished counts domain events flushed to the bus after commit.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankroll_events_published_total",
		Help: "Number of domain events published, labelled by type.",
	}, []string{"type"})

	// StatsHandlerFailures counts aggregator handler errors by handler name.
	StatsHandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankroll_stats_handler_failures_total",
		Help: "Number of stats aggregator handler failures, labelled by handler.",
	}, []string{"handler"})
)
