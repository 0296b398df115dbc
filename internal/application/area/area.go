package area

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aescanero/kvarea/pkg/ports"
	"go.uber.org/zap"
)

// Operation names used in logs and metrics
const (
	OpGet        = "get"
	OpSet        = "set"
	OpRemove     = "remove"
	OpClear      = "clear"
	OpBytesInUse = "get_bytes_in_use"
)

// EventBus carries ChangeSets to listeners
type EventBus interface {
	Publish(changes ports.ChangeSet)
	AddListener(fn ports.Listener) ports.ListenerID
	RemoveListener(id ports.ListenerID) bool
	ResetListeners()
}

// Area is a storage area over the underlying store
type Area struct {
	store     ports.Store
	bus       EventBus
	sink      ports.ErrorSink
	validator *Validator
	metrics   ports.MetricsCollector
	logger    *zap.Logger
}

// NewArea creates a new storage area. A nil sink discards reported errors,
// nil metrics are not recorded and a nil logger does not log.
func NewArea(
	store ports.Store,
	bus EventBus,
	sink ports.ErrorSink,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Area {
	if sink == nil {
		sink = ports.ErrorSinkFunc(func(error) {})
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Area{
		store:     store,
		bus:       bus,
		sink:      sink,
		validator: NewValidator(),
		metrics:   metrics,
		logger:    logger,
	}
}

// Get reads the entries chosen by sel. AllKeys (or nil) returns only stored
// entries; KeyList returns every requested key with nil for missing ones;
// KeyDefaults substitutes the default for missing keys.
// On failure the error is reported and Get returns nil.
func (a *Area) Get(ctx context.Context, sel Selector) ports.Items {
	start := time.Now()

	items, err := a.get(ctx, sel)
	a.finish(OpGet, start, len(items), err)
	if err != nil {
		return nil
	}

	return items
}

// Set writes items and publishes one ChangeSet covering every key in items.
// Previous values are read before the first write is issued.
// On failure the error is reported and nothing is published.
func (a *Area) Set(ctx context.Context, items ports.Items) {
	start := time.Now()
	err := a.set(ctx, items)
	a.finish(OpSet, start, len(items), err)
}

// Remove deletes keys and publishes one ChangeSet in which every key has
// its previous value and no new value.
func (a *Area) Remove(ctx context.Context, keys ...string) {
	start := time.Now()
	err := a.remove(ctx, keys)
	a.finish(OpRemove, start, len(keys), err)
}

// Clear deletes every entry and publishes one ChangeSet covering every key
// that existed. The ChangeSet is published after the store is cleared.
func (a *Area) Clear(ctx context.Context) {
	start := time.Now()
	err := a.clear(ctx)
	a.finish(OpClear, start, 0, err)
}

// GetBytesInUse is not supported: the store has no byte accounting. It
// reports ErrNotImplemented and returns (0, false) for any selector.
func (a *Area) GetBytesInUse(ctx context.Context, sel Selector) (int64, bool) {
	start := time.Now()
	a.finish(OpBytesInUse, start, 0, ErrNotImplemented)
	return 0, false
}

func (a *Area) get(ctx context.Context, sel Selector) (ports.Items, error) {
	if err := a.validator.ValidateSelector(sel); err != nil {
		return nil, err
	}

	switch s := sel.(type) {
	case nil, AllKeys:
		return a.getAll(ctx)
	case SingleKey:
		return a.getKeys(ctx, []string{string(s)}, nil)
	case KeyList:
		return a.getKeys(ctx, s, nil)
	case KeyDefaults:
		return a.getKeys(ctx, s.Keys(), s)
	default:
		return nil, fmt.Errorf("%w: unsupported selector %T", ErrInvalidInput, sel)
	}
}

func (a *Area) set(ctx context.Context, items ports.Items) error {
	normalized, err := a.validator.NormalizeItems(items)
	if err != nil {
		return err
	}

	keys := sortedKeys(normalized)

	previous, err := a.getKeys(ctx, keys, nil)
	if err != nil {
		return fmt.Errorf("failed to snapshot items: %w", err)
	}

	err = forEachKey(keys, func(key string) error {
		return a.store.Set(ctx, key, normalized[key])
	})
	if err != nil {
		return fmt.Errorf("%w: failed to write items: %w", ErrStoreFailure, err)
	}

	changes := make(ports.ChangeSet, len(keys))
	for _, key := range keys {
		changes[key] = ports.StorageChange{
			OldValue: previous[key],
			NewValue: normalized[key],
		}
	}

	a.bus.Publish(changes)
	return nil
}

func (a *Area) remove(ctx context.Context, keys []string) error {
	previous, err := a.getKeys(ctx, keys, nil)
	if err != nil {
		return fmt.Errorf("failed to snapshot items: %w", err)
	}

	err = forEachKey(keys, func(key string) error {
		return a.store.Remove(ctx, key)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to remove items: %w", ErrStoreFailure, err)
	}

	changes := make(ports.ChangeSet, len(keys))
	for _, key := range keys {
		changes[key] = ports.StorageChange{OldValue: previous[key]}
	}

	a.bus.Publish(changes)
	return nil
}

func (a *Area) clear(ctx context.Context) error {
	previous, err := a.getAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot items: %w", err)
	}

	if err := a.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: failed to clear store: %w", ErrStoreFailure, err)
	}

	changes := make(ports.ChangeSet, len(previous))
	for key, value := range previous {
		changes[key] = ports.StorageChange{OldValue: value}
	}

	a.bus.Publish(changes)
	return nil
}

// getAll reads every stored entry
func (a *Area) getAll(ctx context.Context) (ports.Items, error) {
	items := make(ports.Items)
	err := a.store.IterateAll(ctx, func(key string, value interface{}) error {
		items[key] = value
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to iterate items: %w", ErrStoreFailure, err)
	}

	return items, nil
}

// getKeys fetches keys concurrently. The result holds every key; a missing
// key maps to its entry in defaults, or nil.
func (a *Area) getKeys(ctx context.Context, keys []string, defaults KeyDefaults) (ports.Items, error) {
	var mu sync.Mutex
	items := make(ports.Items, len(keys))

	err := forEachKey(keys, func(key string) error {
		value, err := a.store.Get(ctx, key)
		if err != nil {
			return err
		}
		if value == nil && defaults != nil {
			value = defaults[key]
		}

		mu.Lock()
		items[key] = value
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get items: %w", ErrStoreFailure, err)
	}

	return items, nil
}

// finish records the outcome of an operation and reports a failure
func (a *Area) finish(op string, start time.Time, keys int, err error) {
	duration := time.Since(start)
	a.metrics.ObserveOperation(op, duration, err == nil)

	if err != nil {
		a.metrics.IncErrors(errorKind(err))
		a.logger.Debug("storage operation failed",
			zap.String("op", op),
			zap.Duration("duration", duration),
			zap.Error(err))
		a.sink.ReportError(err)
		return
	}

	a.logger.Debug("storage operation completed",
		zap.String("op", op),
		zap.Int("keys", keys),
		zap.Duration("duration", duration))
}

// forEachKey runs fn for every key concurrently and waits for all of them.
// It returns the error of the first failing key in input order.
func forEachKey(keys []string, fn func(key string) error) error {
	errs := make([]error, len(keys))

	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			if err := fn(key); err != nil {
				errs[i] = fmt.Errorf("key %q: %w", key, err)
			}
		}(i, key)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(items ports.Items) []string {
	keys := items.Keys()
	sort.Strings(keys)
	return keys
}
