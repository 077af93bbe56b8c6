/*
Package log provides structured logging for the holon engine using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, configurable log levels, and helper
functions for the engine's own context fields (transaction, holon,
commit).

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
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("commit")                  │          │
	│  │  - WithTxID("tx-abc123")                    │          │
	│  │  - WithHolonID("local-xyz")                 │          │
	│  │  - WithCommitID("commit-9")                 │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │  JSON: {"level":"info","component":"commit",│          │
	│  │         "tx_id":"tx-abc123","message":"..."}│          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	log.Info("engine starting")

	commitLog := log.WithComponent("commit")
	commitLog.Info().Str("tx_id", tc.TxID()).Int("saved", len(resp.SavedHolons)).Msg("commit pass 1 complete")

	txLog := log.WithTxID(tc.TxID())
	txLog.Debug().Msg("transaction opened")

# Design Patterns

Global Logger Pattern: a single package-level Logger, initialized once
at process start, accessible from every package without threading a
logger through every call.

Context Logger Pattern: WithComponent/WithTxID/WithHolonID/WithCommitID
return child loggers carrying one context field, composed via
zerolog's With() chain when more than one applies.

# Best Practices

Do: log at each lifecycle transition (stage, abandon, commit pass
1/2, loader pass 1/2, dispatch); use structured fields, not string
concatenation; log errors with .Err() rather than formatting them
into the message.

Don't: log property values (they may carry caller-provided data not
meant for log aggregation); log in pool-insert hot paths.
*/
package log
