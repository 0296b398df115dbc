package area

import "errors"

// Error kinds reported to the error sink.
var (
	// ErrStoreFailure wraps failures of the underlying store.
	ErrStoreFailure = errors.New("store failure")
	// ErrNotImplemented is reported by operations the store model cannot support.
	ErrNotImplemented = errors.New("not implemented")
	// ErrInvalidInput is reported when arguments fail validation; no I/O is done.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownArea is returned by Registry.Area for unbound names.
	ErrUnknownArea = errors.New("unknown storage area")
)

// errorKind classifies err for metrics labels
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, ErrStoreFailure):
		return "store"
	default:
		return "other"
	}
}
