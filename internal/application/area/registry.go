package area

import (
	"fmt"
	"sort"

	"github.com/aescanero/kvarea/pkg/ports"
)

// Area names bound by NewRegistry. They all alias one Area.
const (
	NameLocal   = "local"
	NameSync    = "sync"
	NameManaged = "managed"
)

// Registry exposes named handles onto a single shared Area and owns the
// change listener registration for it.
type Registry struct {
	area  *Area
	names map[string]*Area
}

// NewRegistry binds the local, sync and managed names to the given area
func NewRegistry(a *Area) *Registry {
	return &Registry{
		area: a,
		names: map[string]*Area{
			NameLocal:   a,
			NameSync:    a,
			NameManaged: a,
		},
	}
}

// Area returns the area bound to name
func (r *Registry) Area(name string) (*Area, error) {
	a, ok := r.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArea, name)
	}
	return a, nil
}

// Local returns the local area
func (r *Registry) Local() *Area { return r.names[NameLocal] }

// Sync returns the sync area. It is an alias of the local area.
func (r *Registry) Sync() *Area { return r.names[NameSync] }

// Managed returns the managed area. It is an alias of the local area.
func (r *Registry) Managed() *Area { return r.names[NameManaged] }

// Names returns the bound area names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddChangeListener registers fn to receive every ChangeSet published by any
// area. The area name passed to fn is always ports.AreaUnspecified.
func (r *Registry) AddChangeListener(fn ports.Listener) ports.ListenerID {
	return r.area.bus.AddListener(fn)
}

// RemoveChangeListener deregisters a listener added with AddChangeListener
func (r *Registry) RemoveChangeListener(id ports.ListenerID) bool {
	return r.area.bus.RemoveListener(id)
}

// ResetListeners discards every change listener
func (r *Registry) ResetListeners() {
	r.area.bus.ResetListeners()
}
