package inventory

import (
	"context"
	"log/slog"

	"github.com/pixil98/go-satchel/internal/item"
)

// lockPair locks two distinct containers in (id, creation) order so
// concurrent transfers in opposite directions cannot deadlock, even between
// containers that share an id.
func lockPair(a, b *Container) func() {
	first, second := a, b
	if b.id < a.id || (b.id == a.id && b.seq < a.seq) {
		first, second = b, a
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// TransferSlot moves the whole stack at srcIndex of src into dst. Within one
// container the two slots are exchanged directly (or merged when they hold
// the same stackable item) so instance data is never recreated.
func TransferSlot(ctx context.Context, src *Container, srcIndex int, dst *Container, dstIndex *int) bool {
	if src == dst {
		if dstIndex == nil {
			slog.WarnContext(ctx, "transfer within a container requires a target slot", "container", src.id, "slot", srcIndex)
			return false
		}

		src.mu.Lock()
		changed, ok := src.exchange(ctx, srcIndex, *dstIndex)
		if changed {
			src.version++
		}
		src.mu.Unlock()

		if changed {
			src.notify(ctx)
		}
		return ok
	}

	unlock := lockPair(src, dst)
	var quantity uint16
	if srcIndex >= 0 && srcIndex < len(src.slots) {
		quantity = src.slots[srcIndex].Quantity
	}
	moved := moveLocked(ctx, src, srcIndex, quantity, dst, dstIndex)
	unlock()

	if moved > 0 {
		src.notify(ctx)
		dst.notify(ctx)
	}
	return moved > 0 && moved == quantity
}

// MoveQuantity moves up to quantity units out of one slot into dst and
// returns how many moved. Units that do not fit stay in the source slot.
func MoveQuantity(ctx context.Context, src *Container, srcIndex int, quantity uint16, dst *Container, dstIndex *int) (uint16, bool) {
	if quantity == 0 {
		slog.WarnContext(ctx, "refusing to move zero items", "container", src.id, "slot", srcIndex)
		return 0, false
	}

	var moved uint16
	if src == dst {
		src.mu.Lock()
		moved = src.moveWithin(ctx, srcIndex, quantity, dstIndex)
		if moved > 0 {
			src.version++
		}
		src.mu.Unlock()

		if moved > 0 {
			src.notify(ctx)
		}
	} else {
		unlock := lockPair(src, dst)
		moved = moveLocked(ctx, src, srcIndex, quantity, dst, dstIndex)
		unlock()

		if moved > 0 {
			src.notify(ctx)
			dst.notify(ctx)
		}
	}

	if moved < quantity {
		slog.WarnContext(ctx, "could not move all items", "container", src.id, "requested", quantity, "moved", moved, "remaining", quantity-moved)
	}
	return moved, moved == quantity
}

// moveLocked moves units between two distinct containers. Callers hold
// both locks.
func moveLocked(ctx context.Context, src *Container, srcIndex int, quantity uint16, dst *Container, dstIndex *int) uint16 {
	if srcIndex < 0 || srcIndex >= len(src.slots) {
		slog.WarnContext(ctx, "invalid source slot", "container", src.id, "slot", srcIndex)
		return 0
	}

	s := src.slots[srcIndex]
	if s.IsEmpty() {
		slog.WarnContext(ctx, "source slot is empty", "container", src.id, "slot", srcIndex)
		return 0
	}
	if quantity == 0 || s.Quantity < quantity {
		slog.WarnContext(ctx, "not enough quantity in slot", "container", src.id, "slot", srcIndex, "requested", quantity, "available", s.Quantity)
		return 0
	}

	if s.HasInstance() {
		data, ok := src.instances.Get(s.InstanceID)
		if !ok {
			slog.ErrorContext(ctx, "instanced stack has no instance data", "container", src.id, "slot", srcIndex, "instance", s.InstanceID)
			return 0
		}

		at := dst.emptySlot(dstIndex)
		if at < 0 {
			slog.WarnContext(ctx, "no free slot for instanced item", "container", dst.id, "item", s.ID)
			return 0
		}

		dst.slots[at] = s
		dst.instances.Adopt(data)
		src.instances.Remove(s.InstanceID)
		src.slots[srcIndex] = item.Empty
		src.version++
		dst.version++
		return 1
	}

	def, ok := dst.definition(ctx, s.ID)
	if !ok {
		return 0
	}

	placed := dst.add(ctx, def, quantity, dstIndex)
	if placed == 0 {
		return 0
	}

	if src.slots[srcIndex].Quantity == placed {
		src.slots[srcIndex] = item.Empty
	} else {
		src.slots[srcIndex].Quantity -= placed
	}
	src.version++
	return placed
}

// moveWithin moves units between two slots of the same container. Callers
// hold c.mu.
func (c *Container) moveWithin(ctx context.Context, srcIndex int, quantity uint16, dstIndex *int) uint16 {
	if srcIndex < 0 || srcIndex >= len(c.slots) {
		slog.WarnContext(ctx, "invalid source slot", "container", c.id, "slot", srcIndex)
		return 0
	}

	s := c.slots[srcIndex]
	if s.IsEmpty() || s.Quantity < quantity {
		slog.WarnContext(ctx, "not enough quantity in slot", "container", c.id, "slot", srcIndex, "requested", quantity, "available", s.Quantity)
		return 0
	}

	if s.HasInstance() {
		if dstIndex == nil {
			slog.WarnContext(ctx, "moving an instanced item within a container requires a target slot", "container", c.id, "slot", srcIndex)
			return 0
		}
		changed, _ := c.exchange(ctx, srcIndex, *dstIndex)
		if !changed {
			return 0
		}
		return 1
	}

	if dstIndex != nil && *dstIndex == srcIndex {
		return 0
	}

	def, ok := c.definition(ctx, s.ID)
	if !ok {
		return 0
	}

	// Lift the units out first so an automatic placement may reuse the
	// freed slot, then return whatever did not fit.
	if s.Quantity == quantity {
		c.slots[srcIndex] = item.Empty
	} else {
		c.slots[srcIndex].Quantity -= quantity
	}

	placed := c.add(ctx, def, quantity, dstIndex)
	if rest := quantity - placed; rest > 0 {
		if c.slots[srcIndex].IsEmpty() {
			c.slots[srcIndex] = item.Stack{ID: s.ID, Quantity: rest}
		} else {
			c.slots[srcIndex].Quantity += rest
		}
	}
	return placed
}

// exchange swaps two slots of the same container, merging instead when both
// hold the same stackable item. Callers hold c.mu.
func (c *Container) exchange(ctx context.Context, a, b int) (changed bool, ok bool) {
	n := len(c.slots)
	if a < 0 || a >= n || b < 0 || b >= n {
		slog.WarnContext(ctx, "invalid slot index for swap", "container", c.id, "from", a, "to", b)
		return false, false
	}
	if a == b {
		return false, true
	}

	from, to := c.slots[a], c.slots[b]
	if !from.IsEmpty() && from.ID == to.ID && !from.HasInstance() && !to.HasInstance() {
		if def, found := c.catalog.Definition(from.ID); found && to.Quantity < def.StackSize {
			moved := min(def.StackSize-to.Quantity, from.Quantity)
			c.slots[b].Quantity += moved
			if moved == from.Quantity {
				c.slots[a] = item.Empty
			} else {
				c.slots[a].Quantity -= moved
			}
			slog.DebugContext(ctx, "merged slots", "container", c.id, "from", a, "to", b, "quantity", moved)
			return true, true
		}
	}

	c.slots[a], c.slots[b] = to, from
	slog.DebugContext(ctx, "swapped slots", "container", c.id, "from", a, "to", b)
	return true, true
}

// emptySlot returns the target if it is a valid empty slot, or the first
// empty slot in placement order when target is nil. Returns -1 when none.
func (c *Container) emptySlot(target *int) int {
	if target != nil {
		if *target >= 0 && *target < len(c.slots) && c.slots[*target].IsEmpty() {
			return *target
		}
		return -1
	}

	for _, sp := range c.addSpans() {
		for i := sp.from; i < sp.to; i++ {
			if c.slots[i].IsEmpty() {
				return i
			}
		}
	}
	return -1
}
