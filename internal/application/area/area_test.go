package area

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aescanero/kvarea/pkg/adapters/errorsink"
	eventsmemory "github.com/aescanero/kvarea/pkg/adapters/events/memory"
	"github.com/aescanero/kvarea/pkg/adapters/storage/memory"
	"github.com/aescanero/kvarea/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// faultyStore wraps a memory store, failing chosen operations and logging
// every call in order.
type faultyStore struct {
	*memory.Store

	mu      sync.Mutex
	calls   []string
	failGet map[string]bool
	failSet bool
	failDel bool
	failClr bool
	failAll bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.NewStore(), failGet: map[string]bool{}}
}

func (f *faultyStore) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *faultyStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *faultyStore) Get(ctx context.Context, key string) (interface{}, error) {
	f.record("get:" + key)
	if f.failGet[key] {
		return nil, errBoom
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyStore) Set(ctx context.Context, key string, value interface{}) error {
	f.record("set:" + key)
	if f.failSet {
		return errBoom
	}
	return f.Store.Set(ctx, key, value)
}

func (f *faultyStore) Remove(ctx context.Context, key string) error {
	f.record("remove:" + key)
	if f.failDel {
		return errBoom
	}
	return f.Store.Remove(ctx, key)
}

func (f *faultyStore) Clear(ctx context.Context) error {
	f.record("clear")
	if f.failClr {
		return errBoom
	}
	return f.Store.Clear(ctx)
}

func (f *faultyStore) IterateAll(ctx context.Context, visit func(string, interface{}) error) error {
	f.record("iterate")
	if f.failAll {
		return errBoom
	}
	return f.Store.IterateAll(ctx, visit)
}

type fixture struct {
	store    *faultyStore
	bus      *eventsmemory.EventBus
	sink     *errorsink.Recorder
	area     *Area
	registry *Registry

	mu        sync.Mutex
	published []ports.ChangeSet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: newFaultyStore(),
		bus:   eventsmemory.NewEventBus(nil, nil),
		sink:  errorsink.NewRecorder(),
	}
	f.area = NewArea(f.store, f.bus, f.sink, nil, nil)
	f.registry = NewRegistry(f.area)
	f.registry.AddChangeListener(func(changes ports.ChangeSet, area string) {
		f.mu.Lock()
		f.published = append(f.published, changes)
		f.mu.Unlock()
	})
	return f
}

func (f *fixture) Published() []ports.ChangeSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.ChangeSet(nil), f.published...)
}

func TestArea_SetThenGetReturnsItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items := ports.Items{"a": "x", "b": float64(2), "c": map[string]interface{}{"d": true}}
	f.area.Set(ctx, items)

	got := f.area.Get(ctx, KeyList(items.Keys()))
	assert.Equal(t, items, got)
	assert.Zero(t, f.sink.Len())
}

func TestArea_GetSelectors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.area.Set(ctx, ports.Items{"a": float64(5), "z": "zz"})

	t.Run("all keys", func(t *testing.T) {
		assert.Equal(t, ports.Items{"a": float64(5), "z": "zz"}, f.area.Get(ctx, AllKeys{}))
		assert.Equal(t, ports.Items{"a": float64(5), "z": "zz"}, f.area.Get(ctx, nil))
	})

	t.Run("single key", func(t *testing.T) {
		assert.Equal(t, ports.Items{"a": float64(5)}, f.area.Get(ctx, SingleKey("a")))
	})

	t.Run("missing key is present as nil", func(t *testing.T) {
		got := f.area.Get(ctx, KeyList{"a", "missing"})
		require.Len(t, got, 2)
		assert.Equal(t, float64(5), got["a"])
		v, ok := got["missing"]
		assert.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("empty key list", func(t *testing.T) {
		got := f.area.Get(ctx, KeyList{})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("defaults", func(t *testing.T) {
		got := f.area.Get(ctx, KeyDefaults{"a": 1, "b": 2})
		assert.Equal(t, ports.Items{"a": float64(5), "b": 2}, got)
	})

	assert.Zero(t, f.sink.Len())
}

func TestArea_SetStoresDecodedForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	type point struct {
		X int `json:"x"`
	}
	f.area.Set(ctx, ports.Items{"n": 10, "p": point{X: 1}, "l": []string{"a"}})

	want := ports.Items{
		"n": float64(10),
		"p": map[string]interface{}{"x": float64(1)},
		"l": []interface{}{"a"},
	}
	assert.Equal(t, want, f.area.Get(ctx, AllKeys{}))

	published := f.Published()
	require.Len(t, published, 1)
	for key, value := range want {
		assert.Equal(t, value, published[0][key].NewValue)
	}
}

func TestArea_SetPublishesPreviousValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.area.Set(ctx, ports.Items{"x": 10})
	f.area.Set(ctx, ports.Items{"x": 20})

	published := f.Published()
	require.Len(t, published, 2)
	assert.Equal(t, ports.ChangeSet{"x": {OldValue: nil, NewValue: float64(10)}}, published[0])
	assert.Equal(t, ports.ChangeSet{"x": {OldValue: float64(10), NewValue: float64(20)}}, published[1])
}

func TestArea_SetOneChangeSetPerCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.area.Set(ctx, ports.Items{"a": 1})
	f.area.Set(ctx, ports.Items{"a": 2, "b": 3, "c": 4})

	published := f.Published()
	require.Len(t, published, 2)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, published[1].Keys())
	assert.Equal(t, float64(1), published[1]["a"].OldValue)
	assert.Nil(t, published[1]["b"].OldValue)
}

func TestArea_SetSnapshotsBeforeWriting(t *testing.T) {
	f := newFixture(t)

	f.area.Set(context.Background(), ports.Items{"a": 1, "b": 2, "c": 3})

	calls := f.store.Calls()
	require.Len(t, calls, 6)
	for _, c := range calls[:3] {
		assert.Contains(t, c, "get:")
	}
	for _, c := range calls[3:] {
		assert.Contains(t, c, "set:")
	}
}

func TestArea_RemoveAfterSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.area.Set(ctx, ports.Items{"k": "v"})
	f.area.Remove(ctx, "k")

	got := f.area.Get(ctx, SingleKey("k"))
	assert.Equal(t, ports.Items{"k": nil}, got)

	published := f.Published()
	require.Len(t, published, 2)
	assert.Equal(t, ports.ChangeSet{"k": {OldValue: "v"}}, published[1])
}

func TestArea_RemoveKeyList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.area.Set(ctx, ports.Items{"a": 1, "b": 2, "c": 3})
	f.area.Remove(ctx, "a", "b")

	assert.Equal(t, ports.Items{"c": float64(3)}, f.area.Get(ctx, AllKeys{}))

	published := f.Published()
	require.Len(t, published, 2)
	assert.Equal(t, ports.ChangeSet{
		"a": {OldValue: float64(1)},
		"b": {OldValue: float64(2)},
	}, published[1])
}

func TestArea_ClearPublishesEveryKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.area.Set(ctx, ports.Items{"a": 1, "b": 2, "c": 3})
	f.area.Clear(ctx)

	published := f.Published()
	require.Len(t, published, 2)
	assert.Equal(t, ports.ChangeSet{
		"a": {OldValue: float64(1)},
		"b": {OldValue: float64(2)},
		"c": {OldValue: float64(3)},
	}, published[1])

	got := f.area.Get(ctx, AllKeys{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestArea_ClearPublishesAfterStoreClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.area.Set(ctx, ports.Items{"a": 1})

	var storeLen = -1
	f.registry.AddChangeListener(func(ports.ChangeSet, string) {
		storeLen = f.store.Len()
	})
	f.area.Clear(ctx)

	assert.Equal(t, 0, storeLen)
}

func TestArea_GetBytesInUseNotImplemented(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.area.Set(ctx, ports.Items{"x": 1})

	for _, sel := range []Selector{SingleKey("x"), nil, KeyList{"x"}} {
		n, ok := f.area.GetBytesInUse(ctx, sel)
		assert.False(t, ok)
		assert.Zero(t, n)
	}

	assert.Equal(t, []string{"not implemented", "not implemented", "not implemented"}, f.sink.Messages())
	for _, err := range f.sink.Errors() {
		assert.ErrorIs(t, err, ErrNotImplemented)
	}
}

func TestArea_GetFailureReportsAndReturnsNil(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.area.Set(ctx, ports.Items{"a": 1})
	f.store.failGet["b"] = true

	got := f.area.Get(ctx, KeyList{"a", "b"})
	assert.Nil(t, got)

	require.Equal(t, 1, f.sink.Len())
	assert.ErrorIs(t, f.sink.Errors()[0], ErrStoreFailure)
	assert.ErrorIs(t, f.sink.Errors()[0], errBoom)

	f.store.failAll = true
	assert.Nil(t, f.area.Get(ctx, AllKeys{}))
	assert.Equal(t, 2, f.sink.Len())
}

func TestArea_SetSnapshotFailurePublishesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.failGet["a"] = true

	f.area.Set(context.Background(), ports.Items{"a": 1})

	assert.Empty(t, f.Published())
	assert.Equal(t, 1, f.sink.Len())
	for _, c := range f.store.Calls() {
		assert.NotContains(t, c, "set:")
	}
}

func TestArea_SetWriteFailurePublishesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.failSet = true

	f.area.Set(context.Background(), ports.Items{"a": 1, "b": 2})

	assert.Empty(t, f.Published())
	require.Equal(t, 1, f.sink.Len())
	assert.ErrorIs(t, f.sink.Errors()[0], ErrStoreFailure)
}

func TestArea_SetInvalidInput(t *testing.T) {
	f := newFixture(t)

	f.area.Set(context.Background(), nil)
	f.area.Set(context.Background(), ports.Items{"ch": make(chan int)})

	assert.Empty(t, f.Published())
	assert.Empty(t, f.store.Calls())
	require.Equal(t, 2, f.sink.Len())
	for _, err := range f.sink.Errors() {
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestArea_RemoveFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.area.Set(ctx, ports.Items{"a": 1})
	f.store.failDel = true

	f.area.Remove(ctx, "a")

	assert.Len(t, f.Published(), 1)
	assert.Equal(t, 1, f.sink.Len())
}

func TestArea_ClearFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.area.Set(ctx, ports.Items{"a": 1})

	f.store.failClr = true
	f.area.Clear(ctx)
	assert.Len(t, f.Published(), 1)
	assert.Equal(t, 1, f.sink.Len())

	f.store.failClr = false
	f.store.failAll = true
	f.area.Clear(ctx)
	assert.Len(t, f.Published(), 1)
	assert.Equal(t, 2, f.sink.Len())
	clears := 0
	for _, c := range f.store.Calls() {
		if c == "clear" {
			clears++
		}
	}
	assert.Equal(t, 1, clears, "store must not be cleared without a snapshot")
}

func TestArea_ListenersReceiveSameChangeSetInOrder(t *testing.T) {
	f := newFixture(t)
	f.registry.ResetListeners()

	var order []string
	var got []ports.ChangeSet
	f.registry.AddChangeListener(func(c ports.ChangeSet, area string) {
		order = append(order, "A")
		got = append(got, c)
		assert.Equal(t, ports.AreaUnspecified, area)
	})
	f.registry.AddChangeListener(func(c ports.ChangeSet, area string) {
		order = append(order, "B")
		got = append(got, c)
	})

	f.area.Set(context.Background(), ports.Items{"k": 1})
	f.area.Remove(context.Background(), "k")

	assert.Equal(t, []string{"A", "B", "A", "B"}, order)
	assert.Equal(t, got[0], got[1])
	assert.Equal(t, got[2], got[3])
}

func TestArea_ConcurrentSetsDistinctKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.area.Set(ctx, ports.Items{string(rune('a' + i)): i})
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.area.Get(ctx, AllKeys{}), 20)
	assert.Len(t, f.Published(), 20)
	assert.Zero(t, f.sink.Len())
}
