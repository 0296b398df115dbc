// Package workers implements a bounded worker pool for background jobs.
//
// The pool runs a fixed number of goroutines that:
//   - Take jobs from a bounded queue (Submit never blocks)
//   - Run each job with the pool context
//   - Log job failures
//
// The health monitor tracks worker status and records metrics.
// The change relay uses the pool to ship ChangeSets to Redis off the
// publishing goroutine.
package workers
