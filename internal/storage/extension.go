package storage

import (
	"encoding/json"
	"fmt"
)

// Extras carries free-form per-asset data the core passes through without
// interpreting, such as client presentation hints.
type Extras map[string]json.RawMessage

// Set stores v under key after marshalling it to JSON.
func (e *Extras) Set(k string, v any) error {
	if *e == nil {
		*e = Extras{}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal extra %q: %w", k, err)
	}

	(*e)[k] = json.RawMessage(b)
	return nil
}

// Get unmarshals the value at key into out.
// Returns (found=false, nil) if not present.
func (e Extras) Get(key string, out any) (bool, error) {
	raw, ok := e[key]
	if !ok || len(raw) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("unmarshal extra %q: %w", key, err)
	}
	return true, nil
}
