package area

import (
	"context"
	"testing"

	"github.com/aescanero/kvarea/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_NamesAliasOneArea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, []string{NameLocal, NameManaged, NameSync}, f.registry.Names())
	assert.Same(t, f.registry.Local(), f.registry.Sync())
	assert.Same(t, f.registry.Local(), f.registry.Managed())

	f.registry.Sync().Set(ctx, ports.Items{"shared": "yes"})
	assert.Equal(t, ports.Items{"shared": "yes"}, f.registry.Local().Get(ctx, SingleKey("shared")))
	assert.Equal(t, ports.Items{"shared": "yes"}, f.registry.Managed().Get(ctx, SingleKey("shared")))
}

func TestRegistry_Area(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{NameLocal, NameSync, NameManaged} {
		a, err := f.registry.Area(name)
		require.NoError(t, err)
		assert.Same(t, f.area, a)
	}

	_, err := f.registry.Area("session")
	assert.ErrorIs(t, err, ErrUnknownArea)
}

func TestRegistry_Listeners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := 0
	id := f.registry.AddChangeListener(func(ports.ChangeSet, string) { calls++ })

	f.registry.Local().Set(ctx, ports.Items{"a": 1})
	assert.Equal(t, 1, calls)

	assert.True(t, f.registry.RemoveChangeListener(id))
	f.registry.Local().Set(ctx, ports.Items{"a": 2})
	assert.Equal(t, 1, calls)
}

func TestRegistry_ResetListenersTwice(t *testing.T) {
	f := newFixture(t)

	f.registry.ResetListeners()
	f.registry.ResetListeners()

	assert.Equal(t, 0, f.bus.Len())

	f.registry.Local().Set(context.Background(), ports.Items{"a": 1})
	assert.Empty(t, f.Published())
}
