// Package errorsink provides ports.ErrorSink implementations.
//
// Implementations:
//   - Logger: logs every reported error with zap
//   - Recorder: keeps reported errors in memory, for tests and diagnostics
//   - Multi: forwards to several sinks
package errorsink
