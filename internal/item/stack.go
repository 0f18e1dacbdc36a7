package item

import (
	"strconv"

	"github.com/google/uuid"
)

// ID identifies an item kind in the catalog. InvalidID marks an empty slot.
type ID uint16

const InvalidID ID = 0

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Valid reports whether id names a real item kind.
func (id ID) Valid() bool {
	return id != InvalidID
}

// Stack is the content of one slot. InstanceID is uuid.Nil for stackable
// kinds; instanced stacks always hold exactly one unit.
type Stack struct {
	ID         ID
	Quantity   uint16
	InstanceID uuid.UUID
}

// Empty is the value held by an unoccupied slot.
var Empty = Stack{}

// IsEmpty reports whether the slot holds nothing.
func (s Stack) IsEmpty() bool {
	return s.ID == InvalidID
}

// HasInstance reports whether the stack carries per-instance data.
func (s Stack) HasInstance() bool {
	return s.InstanceID != uuid.Nil
}
