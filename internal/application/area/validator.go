package area

import (
	"encoding/json"
	"fmt"

	"github.com/aescanero/kvarea/pkg/ports"
)

// Validator checks caller input before any store I/O happens
type Validator struct{}

// NewValidator creates a new input validator
func NewValidator() *Validator {
	return &Validator{}
}

// NormalizeItems validates items and returns a copy holding each value in
// its stored form (the JSON round trip of the caller's value).
func (v *Validator) NormalizeItems(items ports.Items) (ports.Items, error) {
	if items == nil {
		return nil, fmt.Errorf("%w: items are nil", ErrInvalidInput)
	}

	normalized := make(ports.Items, len(items))
	for key, value := range items {
		if value == nil {
			return nil, fmt.Errorf("%w: value for key %q is absent", ErrInvalidInput, key)
		}

		clone, err := cloneValue(value)
		if err != nil {
			return nil, fmt.Errorf("%w: value for key %q is not serializable: %v", ErrInvalidInput, key, err)
		}
		normalized[key] = clone
	}

	return normalized, nil
}

// ValidateSelector rejects selectors that cannot be resolved
func (v *Validator) ValidateSelector(sel Selector) error {
	switch s := sel.(type) {
	case nil, AllKeys, SingleKey:
		return nil
	case KeyList:
		if s == nil {
			return fmt.Errorf("%w: key list is nil", ErrInvalidInput)
		}
		return nil
	case KeyDefaults:
		if s == nil {
			return fmt.Errorf("%w: defaults are nil", ErrInvalidInput)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported selector %T", ErrInvalidInput, sel)
	}
}

func cloneValue(value interface{}) (interface{}, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var clone interface{}
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	return clone, nil
}
