// Package metrics defines and registers the custom Prometheus metrics of the
// catalog API. It is the single source of truth for metric names, labels, and
// help strings. HTTP request metrics come from echoprometheus and are not
// declared here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catalog"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts register/login/logout outcomes.
// Labels:
//   - operation: "register", "login" or "logout"
//   - result: "success", "duplicate", "invalid_credentials", "invalid_input", "forbidden", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// AuthRejectedTotal counts requests the access middleware turned away.
// Label:
//   - reason: "missing_header", "malformed_header", "invalid_token", "revoked"
var AuthRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_rejected_total",
		Help:      "Total number of requests rejected by bearer token verification.",
	},
	[]string{"reason"},
)

// RateLimitedTotal counts requests refused by the auth rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests refused because the client exceeded its rate limit.",
	},
)

// ── Catalog metrics ───────────────────────────────────────────────────────────

// BookWritesTotal counts successful catalog writes.
// Label:
//   - action: "created", "updated" or "deleted"
var BookWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "book_writes_total",
		Help:      "Total number of successful catalog writes, by action.",
	},
	[]string{"action"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit events by outcome.
// Label:
//   - result: "recorded", "failed" or "dropped" (queue full or closed)
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of catalog audit events, by outcome.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the number of events waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditRecordDuration measures how long persisting one audit event takes.
var AuditRecordDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_record_duration_seconds",
		Help:      "Duration of audit event persistence from dequeue to insert.",
		Buckets:   prometheus.DefBuckets,
	},
)
