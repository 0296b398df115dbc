package ports

import "context"

// Store is the underlying persistent key-value engine.
//
// Get returns (nil, nil) for a missing key. Values handed out are copies:
// mutating them never changes what is stored.
type Store interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// IterateAll visits every entry exactly once, in unspecified order.
	// A visitor error stops the iteration and is returned.
	IterateAll(ctx context.Context, visit func(key string, value interface{}) error) error
}

// Pinger is implemented by stores that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by stores holding resources.
type Closer interface {
	Close() error
}

// HealthChecker is implemented by background components whose failure
// should surface on the health endpoints. A nil error means healthy.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}
