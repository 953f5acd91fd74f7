// Package metrics defines and registers all custom Prometheus metrics for the
// portal API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package init
// through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Authentication ────────────────────────────────────────────────────────────

// SignInsTotal counts customer and employee sign-in attempts.
// Labels:
//   - kind: "customer" or "employee"
//   - result: "ok", "rejected" or "error"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ins_total",
		Help:      "Total number of sign-in attempts, by actor kind and result.",
	},
	[]string{"kind", "result"},
)

// SignupsTotal counts sign-up saga outcomes.
// Label:
//   - stage: "ok" on success, otherwise the failing stage (e.g. "insert_profile")
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of sign-up attempts, labelled by the failing stage or ok.",
	},
	[]string{"stage"},
)

// SignupCompensationsTotal counts identity deletions run after a failed
// profile insert.
// Label:
//   - result: "ok" or "failed"
var SignupCompensationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signup_compensations_total",
		Help:      "Total number of sign-up compensations, by result.",
	},
	[]string{"result"},
)

// ── Access control ────────────────────────────────────────────────────────────

// GuardDecisionsTotal counts guard evaluations.
// Label:
//   - decision: "checking", "authenticated" or "redirecting"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of guard evaluations, by decision.",
	},
	[]string{"decision"},
)

// ProtectedActionsTotal counts protected action dispatches.
// Label:
//   - outcome: "invoked", "redirected" or "check_failed"
var ProtectedActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "protected_actions_total",
		Help:      "Total number of protected action dispatches, by outcome.",
	},
	[]string{"outcome"},
)

// NoticesTotal counts notice requests.
// Label:
//   - result: "shown" or "suppressed" (an identical keyed notice was visible)
var NoticesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notices_total",
		Help:      "Total number of notices requested, by result.",
	},
	[]string{"result"},
)

// ── Sessions ──────────────────────────────────────────────────────────────────

// SessionEventsTotal counts session change events delivered to subscribers.
// Label:
//   - type: "signed_in", "signed_out" or "token_refreshed"
var SessionEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Total number of session change events delivered.",
	},
	[]string{"type"},
)

// SessionEventsQueueDepth tracks the events waiting in each hub worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var SessionEventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_events_queue_depth",
		Help:      "Current number of session events pending in each hub worker channel.",
	},
	[]string{"worker_id"},
)

// ActiveVisitors is the number of portal sessions held in memory.
var ActiveVisitors = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_visitors",
		Help:      "Number of visitor portal sessions currently held in memory.",
	},
)

// SessionBootstrapDuration measures the initial session lookup of a visitor,
// from Initialize to loading=false.
var SessionBootstrapDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_bootstrap_duration_seconds",
		Help:      "Duration of the initial session resolution per visitor.",
		Buckets:   prometheus.DefBuckets,
	},
)
