// Package storage provides the underlying key-value stores behind the
// storage areas.
//
// Implementations:
//   - redis: Redis with JSON serialization under a key prefix
//   - memory: In-memory, for tests and single-process use
package storage
