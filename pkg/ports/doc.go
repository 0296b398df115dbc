// Package ports defines the domain types and the interfaces that connect the
// storage area core to its adapters.
//
// Interfaces:
//   - Store: the underlying persistent key-value engine
//   - ErrorSink: side channel for recoverable failures
//   - MetricsCollector: operation and notification metrics
package ports
