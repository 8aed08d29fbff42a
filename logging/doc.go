// Package logging provides a minimal logging interface and adapters for the
// research pipeline.
//
// The Logger interface defines the key/value logging methods (Debug, Info,
// Warn, Error) every component accepts through its Options. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ResearchLogger with contextual cloning helpers and domain helpers for
//     tool, model and graph executions
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "text"})
//	mesh := researchmesh.New(model, func(o *researchmesh.Options) { o.Logger = logger })
package logging
