// Package logger builds slog.Logger instances with a consistent setup:
// JSON output for production aggregation or text for local debugging,
// level from configuration, and static service attributes on every record.
//
// Reconciliation components treat Error-level records as the alarm
// channel: failures that must never surface to end users are logged here
// and picked up by log-based alerting.
package logger
