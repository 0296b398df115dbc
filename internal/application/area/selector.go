package area

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Selector chooses which entries Get reads. It is one of AllKeys, SingleKey,
// KeyList or KeyDefaults. A nil Selector means AllKeys.
type Selector interface {
	isSelector()
}

// AllKeys selects every stored entry.
type AllKeys struct{}

// SingleKey selects one key.
type SingleKey string

// KeyList selects the listed keys. Missing keys appear in the result as nil.
type KeyList []string

// KeyDefaults selects its keys; a missing key takes the mapped default.
type KeyDefaults map[string]interface{}

func (AllKeys) isSelector()     {}
func (SingleKey) isSelector()   {}
func (KeyList) isSelector()     {}
func (KeyDefaults) isSelector() {}

// Keys returns the selected keys in sorted order
func (d KeyDefaults) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseSelector decodes a JSON selector: null or empty input selects all
// keys, a string one key, an array of strings a key list and an object a
// key-to-default mapping.
func ParseSelector(raw json.RawMessage) (Selector, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return AllKeys{}, nil
	}

	switch raw[0] {
	case '"':
		var key string
		if err := json.Unmarshal(raw, &key); err != nil {
			return nil, fmt.Errorf("%w: invalid key: %v", ErrInvalidInput, err)
		}
		return SingleKey(key), nil
	case '[':
		var keys []string
		if err := json.Unmarshal(raw, &keys); err != nil {
			return nil, fmt.Errorf("%w: invalid key list: %v", ErrInvalidInput, err)
		}
		return KeyList(keys), nil
	case '{':
		var defaults map[string]interface{}
		if err := json.Unmarshal(raw, &defaults); err != nil {
			return nil, fmt.Errorf("%w: invalid defaults: %v", ErrInvalidInput, err)
		}
		return KeyDefaults(defaults), nil
	default:
		return nil, fmt.Errorf("%w: selector must be null, a string, an array of strings or an object", ErrInvalidInput)
	}
}

// ParseKeys decodes a JSON key argument for Remove: a string or an array of
// strings.
func ParseKeys(raw json.RawMessage) ([]string, error) {
	sel, err := ParseSelector(raw)
	if err != nil {
		return nil, err
	}

	switch s := sel.(type) {
	case SingleKey:
		return []string{string(s)}, nil
	case KeyList:
		return []string(s), nil
	default:
		return nil, fmt.Errorf("%w: keys must be a string or an array of strings", ErrInvalidInput)
	}
}
