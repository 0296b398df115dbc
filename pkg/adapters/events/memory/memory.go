package memory

import (
	"sync"

	"github.com/aescanero/kvarea/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type registration struct {
	id       ports.ListenerID
	listener ports.Listener
}

// EventBus fans ChangeSets out to in-process listeners.
// Publish is synchronous: listeners run on the publishing goroutine, in
// registration order, and a slow listener delays every later one.
type EventBus struct {
	listeners []registration
	mu        sync.RWMutex
	metrics   ports.MetricsCollector
	logger    *zap.Logger
}

// NewEventBus creates a new in-memory event bus
func NewEventBus(metrics ports.MetricsCollector, logger *zap.Logger) *EventBus {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EventBus{
		metrics: metrics,
		logger:  logger,
	}
}

// Publish notifies every listener registered when the call starts.
// The listener list is copied before dispatch, so listeners may add or
// remove listeners without deadlocking; such changes apply from the next
// publish on.
func (e *EventBus) Publish(changes ports.ChangeSet) {
	e.mu.RLock()
	listeners := make([]registration, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.RUnlock()

	e.logger.Debug("publishing change set",
		zap.Int("keys", len(changes)),
		zap.Int("listeners", len(listeners)))

	for _, r := range listeners {
		r.listener(changes, ports.AreaUnspecified)
	}

	e.metrics.RecordChangeSetPublished(len(changes))
}

// AddListener registers fn for every future publish until removed
func (e *EventBus) AddListener(fn ports.Listener) ports.ListenerID {
	id := ports.ListenerID(uuid.New().String())

	e.mu.Lock()
	e.listeners = append(e.listeners, registration{id: id, listener: fn})
	count := len(e.listeners)
	e.mu.Unlock()

	e.metrics.SetListeners(count)
	e.logger.Debug("listener added", zap.String("listener_id", string(id)))

	return id
}

// RemoveListener deregisters the listener with the given id.
// It reports whether the listener was registered.
func (e *EventBus) RemoveListener(id ports.ListenerID) bool {
	e.mu.Lock()
	removed := false
	for i, r := range e.listeners {
		if r.id == id {
			// Build a new slice so in-flight publish snapshots stay intact
			next := make([]registration, 0, len(e.listeners)-1)
			next = append(next, e.listeners[:i]...)
			e.listeners = append(next, e.listeners[i+1:]...)
			removed = true
			break
		}
	}
	count := len(e.listeners)
	e.mu.Unlock()

	if removed {
		e.metrics.SetListeners(count)
		e.logger.Debug("listener removed", zap.String("listener_id", string(id)))
	}

	return removed
}

// HasListener reports whether id is registered
func (e *EventBus) HasListener(id ports.ListenerID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, r := range e.listeners {
		if r.id == id {
			return true
		}
	}
	return false
}

// HasListeners reports whether any listener is registered
func (e *EventBus) HasListeners() bool {
	return e.Len() > 0
}

// Len returns the number of registered listeners
func (e *EventBus) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.listeners)
}

// ResetListeners discards every listener at once. It is a lifecycle hook for
// tests and reinitialization; calling it repeatedly is harmless.
func (e *EventBus) ResetListeners() {
	e.mu.Lock()
	e.listeners = nil
	e.mu.Unlock()

	e.metrics.SetListeners(0)
	e.logger.Debug("listeners reset")
}
