// Package instance holds the mutable per-unit state of non-stackable items.
package instance

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/go-satchel/internal/item"
)

// Data is the per-instance state of one instanced item unit.
type Data interface {
	ItemID() item.ID
	InstanceID() uuid.UUID
}

type base struct {
	Item     item.ID   `json:"item_id"`
	Instance uuid.UUID `json:"instance_id"`
}

func (b *base) ItemID() item.ID       { return b.Item }
func (b *base) InstanceID() uuid.UUID { return b.Instance }

// Tool is the instance state of a tool: its remaining durability.
type Tool struct {
	base
	CurrentDurability int `json:"current_durability"`
	MaxDurability     int `json:"max_durability"`
}

// NewTool returns tool state at full durability.
func NewTool(id item.ID, instanceId uuid.UUID, maxDurability int) *Tool {
	return &Tool{
		base:              base{Item: id, Instance: instanceId},
		CurrentDurability: maxDurability,
		MaxDurability:     maxDurability,
	}
}

// Wear reduces durability by amount, never below zero, and reports whether
// the tool is now broken.
func (t *Tool) Wear(amount int) bool {
	t.CurrentDurability -= amount
	if t.CurrentDurability < 0 {
		t.CurrentDurability = 0
	}
	return t.CurrentDurability == 0
}

// Store maps instance ids to their data. Each container owns one.
type Store struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Data
}

func NewStore() *Store {
	return &Store{entries: make(map[uuid.UUID]Data)}
}

// Create allocates instance data for def. It returns false for purely
// stackable kinds, meaning no instance is needed.
func (s *Store) Create(def *item.Definition) (uuid.UUID, bool) {
	if def == nil {
		return uuid.Nil, false
	}

	var d Data
	switch def.Category {
	case item.CategoryTool:
		d = NewTool(def.ID, uuid.New(), def.Durability)
	default:
		return uuid.Nil, false
	}

	s.mu.Lock()
	s.entries[d.InstanceID()] = d
	s.mu.Unlock()

	return d.InstanceID(), true
}

func (s *Store) Get(id uuid.UUID) (Data, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.entries[id]
	return d, ok
}

func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
}

// Adopt inserts data created by another store, used when an instanced
// unit moves between containers.
func (s *Store) Adopt(d Data) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[d.InstanceID()] = d
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}
