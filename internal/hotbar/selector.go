// Package hotbar tracks which reserved slot of a participant's container is
// active.
package hotbar

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/inventory"
	"github.com/pixil98/go-satchel/internal/item"
)

// SelectFunc observes a committed selection.
type SelectFunc func(ctx context.Context, s *Selector, index int)

// Selector holds the authoritative selected hotbar index for one container.
type Selector struct {
	owner     access.ParticipantID
	container *inventory.Container

	mu       sync.Mutex
	index    int
	handlers []SelectFunc
}

// NewSelector starts at index 0. Any change to the container's contents
// re-commits the current index so observers of the held item stay current.
func NewSelector(owner access.ParticipantID, c *inventory.Container) *Selector {
	s := &Selector{owner: owner, container: c}
	c.OnChange(func(ctx context.Context, _ *inventory.Container) {
		s.SetSelectedIndex(ctx, s.SelectedIndex())
	})
	return s
}

func (s *Selector) Owner() access.ParticipantID     { return s.owner }
func (s *Selector) Container() *inventory.Container { return s.container }

func (s *Selector) SelectedIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// OnSelectedIndexChanged registers fn to run after every commit.
func (s *Selector) OnSelectedIndexChanged(fn SelectFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

// SetSelectedIndex clamps index into the hotbar range, commits it and
// returns the committed value.
func (s *Selector) SetSelectedIndex(ctx context.Context, index int) int {
	count := s.container.HotbarCount()
	clamped := max(0, min(index, count-1))
	if clamped != index {
		slog.DebugContext(ctx, "clamped hotbar index", "container", s.container.ID(), "requested", index, "selected", clamped)
	}

	s.mu.Lock()
	s.index = clamped
	handlers := make([]SelectFunc, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(ctx, s, clamped)
	}
	return clamped
}

// Scroll moves the selection by direction, wrapping at either end.
func (s *Selector) Scroll(ctx context.Context, direction int) int {
	count := s.container.HotbarCount()
	if count == 0 {
		slog.WarnContext(ctx, "cannot scroll an empty hotbar", "container", s.container.ID())
		return s.SetSelectedIndex(ctx, 0)
	}

	next := ((s.SelectedIndex()+direction)%count + count) % count
	return s.SetSelectedIndex(ctx, next)
}

// Selected returns the stack in the active slot. ok is false when the index
// is outside the current hotbar.
func (s *Selector) Selected() (item.Stack, int, bool) {
	index := s.SelectedIndex()
	if index >= s.container.HotbarCount() {
		return item.Empty, index, false
	}
	st, ok := s.container.Slot(index)
	return st, index, ok
}
