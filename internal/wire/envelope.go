package wire

import (
	"encoding/json"
	"fmt"
)

// Kind tags what an envelope delivered to a participant carries.
type Kind byte

const (
	KindSnapshot Kind = iota + 1
	KindEffect
	KindSelection
)

func (k Kind) String() string {
	switch k {
	case KindSnapshot:
		return "snapshot"
	case KindEffect:
		return "effect"
	case KindSelection:
		return "selection"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// Frame prefixes payload with its kind.
func Frame(kind Kind, payload []byte) []byte {
	out := make([]byte, 1+len(payload))
	out[0] = byte(kind)
	copy(out[1:], payload)
	return out
}

// Unframe splits a delivered message into its kind and payload.
func Unframe(data []byte) (Kind, []byte, error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("%w: empty envelope", ErrMalformed)
	}
	k := Kind(data[0])
	switch k {
	case KindSnapshot, KindEffect, KindSelection:
		return k, data[1:], nil
	default:
		return 0, nil, fmt.Errorf("%w: unknown envelope %s", ErrMalformed, k)
	}
}

// EncodeSnapshot frames a snapshot for delivery.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	b, err := s.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return Frame(KindSnapshot, b), nil
}

// EncodeJSON frames a JSON payload for delivery.
func EncodeJSON(kind Kind, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", kind, err)
	}
	return Frame(kind, b), nil
}

// Decode unframes data and decodes its payload into a *Snapshot, *Effect or
// *Selection depending on the kind.
func Decode(data []byte) (any, error) {
	k, payload, err := Unframe(data)
	if err != nil {
		return nil, err
	}

	switch k {
	case KindSnapshot:
		var s Snapshot
		if err := s.UnmarshalBinary(payload); err != nil {
			return nil, err
		}
		return &s, nil
	case KindEffect:
		var e Effect
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("%w: effect: %w", ErrMalformed, err)
		}
		return &e, nil
	default:
		var s Selection
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("%w: selection: %w", ErrMalformed, err)
		}
		return &s, nil
	}
}
