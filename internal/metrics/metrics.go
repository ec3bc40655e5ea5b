// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "soseska"

const (
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelResult    = "result"
)

// Outcomes of a lending transition besides the rejection kinds.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var LendingTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      "lending_transitions_total",
		Help:      "Lending operations by operation and outcome",
		Namespace: Namespace,
	},
	[]string{LabelOperation, LabelOutcome},
)

var Logins = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      "logins_total",
		Help:      "Login attempts by result",
		Namespace: Namespace,
	},
	[]string{LabelResult},
)

var MessagesSent = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      "messages_sent_total",
		Help:      "Direct messages sent",
		Namespace: Namespace,
	},
)

var RevokedTokensPurged = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      "revoked_tokens_purged_total",
		Help:      "Expired revoked tokens removed from the database",
		Namespace: Namespace,
	},
)
