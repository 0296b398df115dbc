package ports

// Items maps storage keys to their values. Values are opaque and must be
// serializable as JSON. A nil value stands for "absent".
type Items map[string]interface{}

// Keys returns the keys of the item set in unspecified order.
func (i Items) Keys() []string {
	keys := make([]string, 0, len(i))
	for k := range i {
		keys = append(keys, k)
	}
	return keys
}

// StorageChange describes the transition of a single key.
// A nil OldValue means the key did not exist before the operation;
// a nil NewValue means the key was removed.
type StorageChange struct {
	OldValue interface{} `json:"oldValue,omitempty"`
	NewValue interface{} `json:"newValue,omitempty"`
}

// ChangeSet holds every key touched by one set, remove or clear call.
type ChangeSet map[string]StorageChange

// Keys returns the changed keys in unspecified order.
func (c ChangeSet) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// AreaUnspecified is the area name handed to listeners. All area names
// alias the same namespace, so listeners never learn which one was used.
const AreaUnspecified = ""

// Listener receives every published ChangeSet.
type Listener func(changes ChangeSet, areaName string)

// ListenerID identifies a registered listener for later removal.
type ListenerID string
