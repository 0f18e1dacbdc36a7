package inventory

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pixil98/go-satchel/internal/instance"
	"github.com/pixil98/go-satchel/internal/item"
)

// At is a convenience for passing an explicit target slot.
func At(index int) *int {
	return &index
}

// span is a half-open slot index range [from, to).
type span struct {
	from, to int
}

// addSpans orders ranges for placement: general slots first, reserved
// slots last.
func (c *Container) addSpans() []span {
	n := len(c.slots)
	h := min(c.hotbarCount(), n)
	if h == 0 {
		return []span{{0, n}}
	}
	return []span{{h, n}, {0, h}}
}

// removeSpans orders ranges for removal: reserved slots first.
func (c *Container) removeSpans() []span {
	n := len(c.slots)
	h := min(c.hotbarCount(), n)
	if h == 0 {
		return []span{{0, n}}
	}
	return []span{{0, h}, {h, n}}
}

func (c *Container) definition(ctx context.Context, id item.ID) (*item.Definition, bool) {
	def, ok := c.catalog.Definition(id)
	if !ok {
		slog.ErrorContext(ctx, "item not found in catalog", "container", c.id, "item", id)
	}
	return def, ok
}

// AddItem places quantity units of id. With a nil target it stacks onto
// compatible slots, then fills empty ones; with a target it only touches
// that slot. Whatever fit stays placed; the result reports whether all of it
// did.
func (c *Container) AddItem(ctx context.Context, id item.ID, quantity uint16, target *int) bool {
	if quantity == 0 {
		return true
	}

	def, ok := c.definition(ctx, id)
	if !ok {
		return false
	}

	c.mu.Lock()
	placed := c.add(ctx, def, quantity, target)
	c.mu.Unlock()

	if placed > 0 {
		c.notify(ctx)
	}
	return placed == quantity
}

// AddItemAtSlot is AddItem with an explicit target slot.
func (c *Container) AddItemAtSlot(ctx context.Context, slot int, id item.ID, quantity uint16) bool {
	return c.AddItem(ctx, id, quantity, &slot)
}

// TryAddAsManyAsPossible places as many units as fit and returns the number
// left unplaced.
func (c *Container) TryAddAsManyAsPossible(ctx context.Context, id item.ID, quantity uint16, target *int) (bool, uint16) {
	if quantity == 0 {
		return true, 0
	}

	def, ok := c.definition(ctx, id)
	if !ok {
		return false, quantity
	}

	c.mu.Lock()
	if target != nil && (*target < 0 || *target >= len(c.slots)) {
		n := len(c.slots)
		c.mu.Unlock()
		slog.WarnContext(ctx, "invalid slot index", "container", c.id, "slot", *target, "slots", n)
		return false, quantity
	}
	placed := c.add(ctx, def, quantity, target)
	c.mu.Unlock()

	remainder := quantity - placed
	slog.DebugContext(ctx, "added as many as possible", "container", c.id, "item", id, "requested", quantity, "remainder", remainder)

	if placed > 0 {
		c.notify(ctx)
	}
	return remainder == 0, remainder
}

// add places up to quantity units and returns how many were placed.
// Callers hold c.mu.
func (c *Container) add(ctx context.Context, def *item.Definition, quantity uint16, target *int) uint16 {
	var placed uint16
	if target != nil {
		placed = c.addToSlot(ctx, *target, def, quantity)
	} else {
		placed = c.addAuto(ctx, def, quantity)
	}
	if placed > 0 {
		c.version++
	}
	return placed
}

func (c *Container) addAuto(ctx context.Context, def *item.Definition, quantity uint16) uint16 {
	remaining := quantity
	spans := c.addSpans()

	if def.StackSize > 1 {
		for _, sp := range spans {
			for i := sp.from; i < sp.to && remaining > 0; i++ {
				s := &c.slots[i]
				if s.ID != def.ID || s.HasInstance() || s.Quantity >= def.StackSize {
					continue
				}
				toAdd := min(def.StackSize-s.Quantity, remaining)
				s.Quantity += toAdd
				remaining -= toAdd
				slog.DebugContext(ctx, "stacked item", "container", c.id, "item", def.ID, "slot", i, "quantity", toAdd)
			}
		}
	}

	for _, sp := range spans {
		for i := sp.from; i < sp.to && remaining > 0; i++ {
			if !c.slots[i].IsEmpty() {
				continue
			}

			if instanceId, ok := c.instances.Create(def); ok {
				c.slots[i] = item.Stack{ID: def.ID, Quantity: 1, InstanceID: instanceId}
				remaining--
				slog.DebugContext(ctx, "added instanced item", "container", c.id, "item", def.ID, "slot", i)
				continue
			}

			toAdd := min(def.StackSize, remaining)
			c.slots[i] = item.Stack{ID: def.ID, Quantity: toAdd}
			remaining -= toAdd
			slog.DebugContext(ctx, "added stackable item", "container", c.id, "item", def.ID, "slot", i, "quantity", toAdd)
		}
	}

	return quantity - remaining
}

func (c *Container) addToSlot(ctx context.Context, index int, def *item.Definition, quantity uint16) uint16 {
	if index < 0 || index >= len(c.slots) {
		slog.WarnContext(ctx, "invalid slot index", "container", c.id, "slot", index)
		return 0
	}

	s := c.slots[index]

	if s.IsEmpty() {
		toAdd := min(quantity, def.StackSize)
		if toAdd == 0 {
			return 0
		}

		instanceId, instanced := c.instances.Create(def)
		if instanced && toAdd > 1 {
			slog.WarnContext(ctx, "cannot add a stack of instanced items to a single slot, adding one", "container", c.id, "item", def.ID, "slot", index)
			toAdd = 1
		}

		c.slots[index] = item.Stack{ID: def.ID, Quantity: toAdd, InstanceID: instanceId}
		slog.DebugContext(ctx, "added item to empty slot", "container", c.id, "item", def.ID, "slot", index, "quantity", toAdd)
		return toAdd
	}

	if s.ID == def.ID && !s.HasInstance() {
		toAdd := min(def.StackSize-min(s.Quantity, def.StackSize), quantity)
		if toAdd > 0 {
			c.slots[index].Quantity += toAdd
			slog.DebugContext(ctx, "stacked item onto slot", "container", c.id, "item", def.ID, "slot", index, "quantity", toAdd)
		}
		return toAdd
	}

	slog.WarnContext(ctx, "slot holds another item or an instanced item", "container", c.id, "item", def.ID, "slot", index)
	return 0
}

// RemoveItem removes quantity units of id, either from one slot or from the
// whole container. It fails without touching anything when fewer units are
// available than requested.
func (c *Container) RemoveItem(ctx context.Context, id item.ID, quantity uint16, target *int) bool {
	if quantity == 0 {
		return true
	}

	c.mu.Lock()
	var ok bool
	if target != nil {
		ok = c.removeFromSlot(ctx, *target, id, quantity)
	} else {
		ok = c.removeAuto(ctx, id, quantity)
	}
	if ok {
		c.version++
	}
	c.mu.Unlock()

	if ok {
		c.notify(ctx)
	}
	return ok
}

// RemoveItemAtSlot is RemoveItem with an explicit target slot.
func (c *Container) RemoveItemAtSlot(ctx context.Context, slot int, id item.ID, quantity uint16) bool {
	return c.RemoveItem(ctx, id, quantity, &slot)
}

func (c *Container) removeAuto(ctx context.Context, id item.ID, quantity uint16) bool {
	available := c.countRange(id, 0, len(c.slots))
	if available < int(quantity) {
		slog.WarnContext(ctx, "not enough of item to remove", "container", c.id, "item", id, "requested", quantity, "available", available)
		return false
	}

	remaining := quantity
	for _, sp := range c.removeSpans() {
		for i := sp.from; i < sp.to && remaining > 0; i++ {
			if c.slots[i].ID != id {
				continue
			}
			if c.slots[i].Quantity <= remaining {
				remaining -= c.slots[i].Quantity
				c.clearSlot(i)
			} else {
				c.slots[i].Quantity -= remaining
				remaining = 0
			}
			slog.DebugContext(ctx, "removed from slot", "container", c.id, "item", id, "slot", i, "remaining", remaining)
		}
	}

	return true
}

func (c *Container) removeFromSlot(ctx context.Context, index int, id item.ID, quantity uint16) bool {
	if index < 0 || index >= len(c.slots) {
		slog.WarnContext(ctx, "invalid slot index", "container", c.id, "slot", index)
		return false
	}

	s := c.slots[index]
	if s.ID != id {
		slog.WarnContext(ctx, "slot does not contain expected item", "container", c.id, "slot", index, "expected", id, "found", s.ID)
		return false
	}
	if s.Quantity < quantity {
		slog.WarnContext(ctx, "not enough items in slot", "container", c.id, "slot", index, "requested", quantity, "available", s.Quantity)
		return false
	}

	if s.Quantity == quantity {
		c.clearSlot(index)
	} else {
		c.slots[index].Quantity -= quantity
	}

	slog.DebugContext(ctx, "removed item from slot", "container", c.id, "item", id, "slot", index, "quantity", quantity)
	return true
}

// clearSlot empties a slot and releases its instance data.
func (c *Container) clearSlot(index int) {
	if s := c.slots[index]; s.HasInstance() {
		c.instances.Remove(s.InstanceID)
	}
	c.slots[index] = item.Empty
}

// Wear consumes durability from the tool instance id, wherever it sits in
// the container now. A tool worn to zero is removed from its slot and its
// instance data released. ok is false when the container no longer holds
// that instance as tool state.
func (c *Container) Wear(ctx context.Context, id uuid.UUID, amount int) (remaining int, broken bool, ok bool) {
	c.mu.Lock()
	index := c.instanceSlot(id)
	data, found := c.instances.Get(id)
	tool, isTool := data.(*instance.Tool)
	if index < 0 || !found || !isTool {
		c.mu.Unlock()
		slog.WarnContext(ctx, "no tool state to wear", "container", c.id, "instance", id)
		return 0, false, false
	}

	broken = tool.Wear(amount)
	remaining = tool.CurrentDurability
	itemID := c.slots[index].ID
	if broken {
		c.clearSlot(index)
		c.version++
	}
	c.mu.Unlock()

	if broken {
		slog.InfoContext(ctx, "tool broke", "container", c.id, "slot", index, "item", itemID, "instance", id)
		c.notify(ctx)
	}
	return remaining, broken, true
}

// instanceSlot returns the slot holding instance id, or -1. Callers hold
// c.mu.
func (c *Container) instanceSlot(id uuid.UUID) int {
	if id == uuid.Nil {
		return -1
	}
	for i, s := range c.slots {
		if s.InstanceID == id {
			return i
		}
	}
	return -1
}

// Durability reports the tool state of the instanced item at index.
func (c *Container) Durability(index int) (current int, maxDurability int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.slots) || !c.slots[index].HasInstance() {
		return 0, 0, false
	}
	data, found := c.instances.Get(c.slots[index].InstanceID)
	tool, isTool := data.(*instance.Tool)
	if !found || !isTool {
		return 0, 0, false
	}
	return tool.CurrentDurability, tool.MaxDurability, true
}
