// Package metrics defines the custom Prometheus metrics of the chat backend.
// It is the single source of truth for metric names, labels and help strings.
//
// Metrics are registered with the default registry on package init via
// promauto; HTTP request metrics are recorded separately by the echoprometheus
// middleware installed in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "suatgpt"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts registration and login attempts.
// Labels:
//   - operation: "register" or "login"
//   - result: "success", "duplicate", "invalid", "failed" or "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of registration and login attempts, by outcome.",
	},
	[]string{"operation", "result"},
)

// TokenValidationsTotal counts bearer tokens seen by the request gate.
// Label:
//   - result: "valid", "invalid" or "unknown_subject"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of bearer tokens evaluated by the request gate.",
	},
	[]string{"result"},
)

// ── Chat metrics ──────────────────────────────────────────────────────────────

// ChatTurnsTotal counts persisted conversation turns.
// Label:
//   - sender: "USER" or "AI"
var ChatTurnsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_turns_total",
		Help:      "Total number of conversation turns persisted, by sender.",
	},
	[]string{"sender"},
)

// RateLimitedTotal counts chat requests rejected by the rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_rate_limited_total",
		Help:      "Total number of chat requests rejected by the rate limiter.",
	},
)

// ── Provider metrics ──────────────────────────────────────────────────────────

// CompletionsTotal counts provider calls.
// Labels:
//   - model_key: the resolved route key (e.g. "qwen-public")
//   - outcome: "success", "missing_key", "provider_error" or "empty_response"
var CompletionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completions_total",
		Help:      "Total number of chat-completion calls, by route and outcome.",
	},
	[]string{"model_key", "outcome"},
)

// CompletionDuration measures provider round trips including retries.
// Label:
//   - model_key: the resolved route key
var CompletionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "completion_duration_seconds",
		Help:      "Duration of chat-completion calls, including retries.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	},
	[]string{"model_key"},
)

// CompletionRetriesTotal counts retried provider attempts.
var CompletionRetriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_retries_total",
		Help:      "Total number of retried chat-completion attempts.",
	},
	[]string{"model_key"},
)
