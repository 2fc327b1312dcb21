/*
Package log provides structured logging for the Strata server using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("controller")              │          │
	│  │  - WithResourceID("rsc-abc123")             │          │
	│  │  - WithPrincipalID("usr-xyz")               │          │
	│  │  - WithTxID("tx-def456")                    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "controller",               │          │
	│  │    "time": "2026-07-30T10:30:00Z",         │          │
	│  │    "message": "resource created"            │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  2026-07-30T10:30:00Z INF resource created component=controller │  │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from every package in the module
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithResourceID: Add resource ID context
  - WithPrincipalID: Add principal (user/service account) ID context
  - WithTxID: Add transaction ID context

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "evaluating binding rule-1 against resource rsc-42"

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "resource created: Dataset rsc-42 under rsc-7"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "subscriber sub-3 watermark lagging 500 events behind head"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "transaction rejected: rule binding rb-1 failed"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "failed to open store: %v"

# Usage

Initializing the Logger:

	import "github.com/cuemby/strata/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Custom output (file)
	file, _ := os.OpenFile("/var/log/strata.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     file,
	})

Simple Logging:

	log.Info("store opened successfully")
	log.Debug("checking rule bindings")
	log.Warn("subscriber watermark lagging")
	log.Error("failed to verify token signature")
	log.Fatal("cannot start without a store path") // Exits process

Structured Logging:

	log.Logger.Info().
		Str("resource_id", "rsc-42").
		Int("child_count", 3).
		Msg("resource created")

	log.Logger.Error().
		Err(err).
		Str("principal_id", "usr-7").
		Msg("authorization denied")

Component Loggers:

	// Create component-specific logger
	controllerLog := log.WithComponent("controller")
	controllerLog.Info().Msg("transaction committed")
	controllerLog.Debug().Str("tx_id", "tx-123").Msg("replaying duplicate tx-id")

	// Multiple context fields
	notifyLog := log.WithComponent("notify").
		With().Str("resource_id", "rsc-42").
		Str("tx_id", "tx-123").Logger()
	notifyLog.Info().Msg("publishing event")
	notifyLog.Error().Err(err).Msg("dispatch failed")

Context Logger Helpers:

	// Resource-specific logs
	resourceLog := log.WithResourceID("rsc-42")
	resourceLog.Info().Msg("resource snapshotted")

	// Principal-specific logs
	principalLog := log.WithPrincipalID("usr-7")
	principalLog.Info().Msg("token issued")

	// Transaction-specific logs
	txLog := log.WithTxID("tx-123")
	txLog.Info().Msg("transaction started")

Complete Example:

	package main

	import (
		"errors"
		"os"
		"github.com/cuemby/strata/pkg/log"
	)

	func main() {
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("strata server starting")

		controllerLog := log.WithComponent("controller")
		controllerLog.Info().
			Str("resource_id", "rsc-42").
			Int("touched", 3).
			Msg("transaction committed")

		err := errors.New("connection refused")
		log.Logger.Error().
			Err(err).
			Str("component", "store").
			Msg("failed to open bbolt file")

		log.Info("strata server stopped")
	}

# Integration Points

This package integrates with:

  - cmd/strata-server: logs startup steps (store opened, graph loaded,
    keyring ready) and shutdown
  - pkg/controller: logs internal errors with their incident id and tx id,
    and notification failures after a commit

No other package imports pkg/log: pkg/authz, pkg/rules, pkg/notify,
pkg/token and pkg/storage do not log.

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"controller","time":"2026-07-30T10:30:00Z","message":"transaction committed"}
	{"level":"info","component":"notify","tx_id":"tx-123","time":"2026-07-30T10:30:01Z","message":"event published"}
	{"level":"error","component":"authz","principal_id":"usr-7","error":"permission denied","time":"2026-07-30T10:30:02Z","message":"authorization denied"}

Console Format (Development):

	2026-07-30T10:30:00Z INF transaction committed component=controller
	2026-07-30T10:30:01Z INF event published component=notify tx_id=tx-123
	2026-07-30T10:30:02Z ERR authorization denied component=authz principal_id=usr-7 error="permission denied"

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field setup at each call site

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Enables log aggregation and querying
  - Parseable by log analysis tools

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Enables error tracking and alerting
  - Consistent error format across the codebase

# Troubleshooting

Common Issues:

No Log Output:
  - Symptom: No logs appearing
  - Check: log.Init() called before logging
  - Check: Log level set appropriately (Debug < Info < Warn < Error)
  - Solution: Initialize logger in main() before any logging

Missing Context Fields:
  - Symptom: Logs missing component or ID fields
  - Cause: Using global Logger instead of a context logger
  - Solution: Use WithComponent() or create a child logger

Log Parsing Fails:
  - Symptom: Cannot parse JSON logs
  - Cause: Invalid JSON in message field
  - Solution: Use .Str() instead of string interpolation

# Security

Log Content:
  - Never log secrets or sensitive data
  - Redact tokens, passwords, and signing key material
  - Review logs before sharing externally

Log Injection:
  - Use structured logging (prevents injection)
  - Never concatenate user input into log messages
  - Use typed fields (.Str, .Int) for user data

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Log errors with .Err() for stack traces
  - Include context (resource ID, principal ID, tx ID)

Don't:
  - Log sensitive data (tokens, signing keys)
  - Use Debug level in production
  - Log in tight loops (use sampling)
  - Concatenate strings (use .Str, .Int)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Structured logging: https://www.thoughtworks.com/radar/techniques/structured-logging
  - 12-Factor App Logs: https://12factor.net/logs
*/
package log
