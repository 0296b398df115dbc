// Package area implements storage areas: a uniform get/set/remove/clear API
// over one underlying key-value store, with change notification.
//
// Every mutating call snapshots the affected keys before writing, so the
// ChangeSet it publishes carries accurate previous values. All area names
// ("local", "sync", "managed") alias the same Area; a write through one name
// is immediately visible through the others.
//
// Values are stored as JSON. Set publishes, and Get later returns, the
// decoded form of what was written: numbers widen to float64, structs
// become map[string]interface{} and slices become []interface{}. Callers
// comparing a read value with the one they wrote should compare decoded
// forms.
//
// Public operations never return errors. Failures are reported to the
// configured ports.ErrorSink and the call still returns, with a nil payload
// where one was expected.
//
// Overlapping calls from different goroutines are not serialized: two Set
// calls on the same key may interleave their snapshot and write phases, and
// one of the resulting ChangeSets will then carry a stale previous value.
package area
