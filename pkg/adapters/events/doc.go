// Package events provides change notification for storage areas.
//
// Implementations:
//   - memory: synchronous in-process bus that owns the listener registry
//   - redis: Redis Streams relay that mirrors ChangeSets to other processes
package events
