/*
Package metrics provides Prometheus metrics collection and exposition for
the Strata graph server.

The package defines and registers every metric using the Prometheus client
library, giving observability into resource/relation counts, transaction
throughput and latency, authorization decisions, rule evaluation cost, and
token lifecycle. Metrics are exposed via an HTTP endpoint for scraping by
Prometheus servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │                                              │          │
	│  │  Gauge: Instant values (resource count)     │          │
	│  │  Counter: Monotonic increases (transactions)│          │
	│  │  Histogram: Distributions (commit latency)  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Graph: Resources, relations, principals    │          │
	│  │  Controller: Transaction count, duration,   │          │
	│  │              replay count                   │          │
	│  │  Authz: Decisions by kind and result        │          │
	│  │  Rules: Evaluation count, duration          │          │
	│  │  Notify: Connected subscribers, published   │          │
	│  │          and replayed events                │          │
	│  │  Token: Signatures, validations, rotations  │          │
	│  │  Store: Per-kind bbolt operation duration   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Prometheus Server                   │          │
	│  │  - Scrapes /metrics every 15s               │          │
	│  │  - Stores time series data                  │          │
	│  │  - Provides PromQL query interface          │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init
  - Automatic collection of Go runtime metrics
  - Thread-safe for concurrent updates

Gauge Metrics:
  - Instant value that can go up or down
  - Examples: resource count by variant, connected subscribers
  - Operations: Set, Inc, Dec, Add, Sub

Counter Metrics:
  - Monotonically increasing value
  - Examples: transactions total, rule evaluations total
  - Operations: Inc, Add (cannot decrease)

Histogram Metrics:
  - Distribution of observed values
  - Buckets for latency percentiles (p50, p95, p99)
  - Examples: transaction duration, rule evaluation duration
  - Includes: sum, count, buckets

Timer Helper:
  - Convenience wrapper for timing operations
  - Start timer, observe duration to histogram
  - Supports label values for histogram vectors

Collector:
  - Runs on a 15s ticker alongside the server
  - Walks storage.Txn.AllNodes/AllRelations under a read-only view
    transaction and sets the graph gauges from the tallies
  - Reads notify.Broker's connected-subscriber count directly
  - Counters and histograms are updated inline by the packages that own
    the event (controller, authz, rules), not by the Collector; the notify
    replay counter and the token counters are registered but nothing in
    this module increments them

# Metrics Catalog

Graph Metrics:

strata_resources_total{variant, status}:
  - Type: Gauge
  - Description: Resource nodes by variant (Project/Collection/Dataset/
    Object) and status (Available/Deleted)
  - Example: strata_resources_total{variant="Dataset",status="Available"} 42

strata_relations_total{variant}:
  - Type: Gauge
  - Description: Edges by relation variant label (HasPart, SharesPermission,
    etc.)
  - Example: strata_relations_total{variant="HasPart"} 120

strata_principals_total{kind}:
  - Type: Gauge
  - Description: Principal nodes by kind (user/service_account)
  - Example: strata_principals_total{kind="user"} 8

strata_tokens_total:
  - Type: Gauge
  - Description: Live (unexpired, unrevoked) token count

Controller Metrics:

strata_controller_transactions_total{op, outcome}:
  - Type: Counter
  - Description: Transactions submitted to the controller by Write op name
    and outcome (success/error)
  - Example: strata_controller_transactions_total{op="CreateResource",outcome="success"} 100

strata_controller_transaction_duration_seconds{op}:
  - Type: Histogram
  - Description: Time to execute and commit one transaction
  - Labels: op
  - Buckets: 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10

strata_controller_transaction_replays_total:
  - Type: Counter
  - Description: Transactions short-circuited by a duplicate tx-id, returning
    the cached response instead of re-executing

Authorization Metrics:

strata_authz_decisions_total{kind, result}:
  - Type: Counter
  - Description: Authorization checks by requirement kind (Permission/
    GlobalAdmin/SubscriberOwner/...) and result (allow/deny)

Rule Metrics:

strata_rule_evaluations_total{result}:
  - Type: Counter
  - Description: Rule-binding evaluations by result (passed/failed)

strata_rule_evaluation_duration_seconds:
  - Type: Histogram
  - Description: Time to evaluate every effective binding on a resource
  - Buckets: Default Prometheus buckets

Notification Metrics:

strata_notify_subscribers_connected:
  - Type: Gauge
  - Description: Subscribers with a live delivery channel registered on the
    broker

strata_notify_events_published_total{kind}:
  - Type: Counter
  - Description: Events committed to the log by event kind

strata_notify_replayed_events_total:
  - Type: Counter
  - Description: Events redelivered to a subscriber via watermark replay
    rather than live dispatch; registered, but no package in this module
    increments it

Token Metrics (registered; no package in this module increments them):

strata_token_signatures_total:
  - Type: Counter
  - Description: Tokens signed by this server's own issuer identity

strata_token_validations_total{issuer_type, result}:
  - Type: Counter
  - Description: Token validations by issuer type (server/data-proxy/oidc)
    and result (valid/invalid)

strata_token_key_rotations_total:
  - Type: Counter
  - Description: Signing-key rotations performed on the keyring

Store Metrics:

strata_store_operation_duration_seconds{kind}:
  - Type: Histogram
  - Description: bbolt transaction duration by kind; pkg/controller
    records the "update" kind, and nothing records a "view" kind

# Usage

Updating Gauge Metrics:

	import "github.com/cuemby/strata/pkg/metrics"

	// Set absolute value
	metrics.ResourcesTotal.WithLabelValues("Dataset", "Available").Set(42)

	// Increment/decrement
	metrics.TokensTotal.Inc()
	metrics.TokensTotal.Dec()

Updating Counter Metrics:

	// Increment by 1
	metrics.TransactionReplaysTotal.Inc()

	// Add arbitrary value
	metrics.TransactionsTotal.WithLabelValues("CreateResource", "success").Add(1)

Recording Histogram Observations:

	// Direct observation
	metrics.RuleEvaluationDuration.Observe(0.004) // 4ms

	// Using Timer helper
	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.RuleEvaluationDuration)

Using Timer with Labels:

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDurationVec(metrics.TransactionDuration, "CreateResource")

Complete Example:

	package main

	import (
		"net/http"
		"github.com/cuemby/strata/pkg/metrics"
	)

	func main() {
		collector := metrics.NewCollector(store, broker)
		collector.Start()
		defer collector.Stop()

		http.Handle("/metrics", metrics.Handler())
		http.ListenAndServe(":9090", nil)
	}

# Integration Points

This package integrates with:

  - pkg/controller: records transaction count, duration, and replay count,
    published events, and the "update" store-operation duration
  - pkg/authz: records authorization decision outcomes
  - pkg/rules: records rule evaluation count and duration
  - pkg/notify: the Collector reads its subscriber count
  - pkg/token and pkg/storage: record nothing themselves
  - Prometheus: scrapes /metrics endpoint

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration
  - Ensures metrics available before main()
  - No runtime registration needed

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels
  - Avoid high-cardinality labels (resource ids, timestamps)
  - Keep label count low (< 5 per metric)

Timer Pattern:
  - Create timer at operation start
  - Defer or explicitly call ObserveDuration
  - Automatically calculates elapsed time
  - Supports both simple and vector histograms

Global Metrics:
  - Package-level variables for all metrics
  - Accessible from any package in the module
  - Thread-safe concurrent updates

# Monitoring

Prometheus Queries (PromQL):

Graph Size:
  - Total resources: sum(strata_resources_total)
  - Available datasets: strata_resources_total{variant="Dataset",status="Available"}

Controller Performance:
  - Commit rate: rate(strata_controller_transactions_total[1m])
  - Rejection rate: rate(strata_controller_transactions_total{outcome="error"}[5m])
  - p95 commit latency: histogram_quantile(0.95, strata_controller_transaction_duration_seconds_bucket)
  - Replay rate: rate(strata_controller_transaction_replays_total[5m])

Authorization:
  - Deny rate: rate(strata_authz_decisions_total{result="deny"}[5m])

Rule Engine:
  - Fail rate: rate(strata_rule_evaluations_total{result="failed"}[5m])
  - p99 evaluation latency: histogram_quantile(0.99, strata_rule_evaluation_duration_seconds_bucket)

Notifications:
  - Connected subscribers: strata_notify_subscribers_connected
  - Replay ratio: rate(strata_notify_replayed_events_total[5m]) / rate(strata_notify_events_published_total[5m])

# Alerting Rules

Recommended Prometheus alerts:

High Transaction Rejection Rate:
  - Alert: rate(strata_controller_transactions_total{outcome="error"}[5m]) > 0.1
  - Description: More than 0.1 transactions rejected per second
  - Action: Check rule bindings and authorization failures driving rejections

High Commit Latency:
  - Alert: histogram_quantile(0.95, strata_controller_transaction_duration_seconds_bucket) > 1
  - Description: p95 commit latency > 1 second
  - Action: Check store operation duration and rule evaluation cost

No Subscribers Draining Events:
  - Alert: rate(strata_notify_replayed_events_total[10m]) > rate(strata_notify_events_published_total[10m])
  - Description: Subscribers are falling behind and relying on replay more
    than live delivery
  - Action: Check subscriber watermarks and broker buffer saturation

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - PromQL tutorial: https://prometheus.io/docs/prometheus/latest/querying/basics/
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
