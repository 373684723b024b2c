// Package logger provides a structured logging facility based on Zap.
//
// # Context Awareness
//
// Two helpers attach correlation fields:
//   - WithRayID extracts the RayID (request id) from a Fiber context so every log line
//     of a status API request can be correlated.
//   - WithRun tags a logger with the sync run id and the dry-run flag.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: pretty (colored console output) or json
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "pretty"})
//	log.Info("Sync started")
//
//	// In a request handler:
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
