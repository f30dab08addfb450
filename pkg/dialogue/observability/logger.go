// Package observability provides structured logging, metrics and tracing
// for the dialogue runtime.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds session context to a logger.
func EnrichLogger(logger *slog.Logger, sessionID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("session_id", sessionID))
}

// LogSessionStart logs the start of a dialogue session.
func LogSessionStart(logger *slog.Logger, sessionID, graphName string) {
	if logger == nil {
		return
	}
	logger.Info("dialogue session starting",
		slog.String("session_id", sessionID),
		slog.String("graph", graphName),
	)
}

// LogSessionEnd logs a session reaching its end.
func LogSessionEnd(logger *slog.Logger, sessionID string) {
	if logger == nil {
		return
	}
	logger.Info("dialogue session ended",
		slog.String("session_id", sessionID),
	)
}

// LogOpComplete logs a successful Start/Advance/Select call.
func LogOpComplete(logger *slog.Logger, sessionID, op string, durationMs float64, eventCount int) {
	if logger == nil {
		return
	}
	logger.Debug("session call completed",
		slog.String("session_id", sessionID),
		slog.String("op", op),
		slog.Float64("duration_ms", durationMs),
		slog.Int("events", eventCount),
	)
}

// LogOpError logs a failed Start/Advance/Select call.
func LogOpError(logger *slog.Logger, sessionID, op string, err error) {
	if logger == nil {
		return
	}
	logger.Error("session call failed",
		slog.String("session_id", sessionID),
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

// LogNodeVisit logs one node visit during auto-processing.
func LogNodeVisit(logger *slog.Logger, sessionID, nodeID, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("node visited",
		slog.String("session_id", sessionID),
		slog.String("node_id", nodeID),
		slog.String("kind", kind),
	)
}

// LogChoice logs a player selection.
func LogChoice(logger *slog.Logger, sessionID string, edgeID int) {
	if logger == nil {
		return
	}
	logger.Debug("choice selected",
		slog.String("session_id", sessionID),
		slog.Int("edge_id", edgeID),
	)
}

// LogSnapshot logs a session snapshot being taken or restored.
func LogSnapshot(logger *slog.Logger, sessionID, op string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("session snapshot",
		slog.String("session_id", sessionID),
		slog.String("operation", op),
		slog.Int("size_bytes", sizeBytes),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in
// milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
