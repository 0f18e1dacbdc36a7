// Package inventory implements the authoritative slot container: stacking,
// placement and removal over an ordered array of item stacks.
package inventory

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/instance"
	"github.com/pixil98/go-satchel/internal/item"
)

// ID is the network identifier of a container.
type ID uint64

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Config describes the shape and visibility of a container.
type Config struct {
	// Slots is the base number of general slots.
	Slots int
	// HotbarSlots reserves a leading sub-range [0, HotbarSlots). Zero for
	// plain containers.
	HotbarSlots int
	Policy      access.Policy
	Radius      float64
}

// containerSeq numbers containers in creation order.
var containerSeq atomic.Uint64

// ChangeFunc is invoked after a mutation has been applied.
type ChangeFunc func(ctx context.Context, c *Container)

// Container is the single source of truth for one entity's items. Every
// mutation is applied under the container's lock, so mutations are
// serialized in the order callers acquire it.
type Container struct {
	id      ID
	seq     uint64
	owner   access.ParticipantID
	catalog item.Catalog

	mu          sync.Mutex
	policy      access.Policy
	radius      float64
	baseSlots   int
	bonusSlots  int
	hotbarSlots int
	bonusHotbar int
	slots       []item.Stack
	instances   *instance.Store
	version     uint64

	handlersMu sync.RWMutex
	handlers   []ChangeFunc
}

// NewContainer creates an unspawned container. Slots are allocated by Spawn.
// The version starts at the creation time so a container recreated under a
// reused id is newer than anything its predecessor published.
func NewContainer(id ID, owner access.ParticipantID, catalog item.Catalog, cfg Config) *Container {
	return &Container{
		version:     uint64(time.Now().UnixNano()),
		id:          id,
		seq:         containerSeq.Add(1),
		owner:       owner,
		catalog:     catalog,
		policy:      cfg.Policy,
		radius:      cfg.Radius,
		baseSlots:   cfg.Slots,
		hotbarSlots: cfg.HotbarSlots,
		instances:   instance.NewStore(),
	}
}

func (c *Container) ID() ID                      { return c.id }
func (c *Container) Owner() access.ParticipantID { return c.owner }

// Policy returns the access policy and proximity radius.
func (c *Container) Policy() (access.Policy, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy, c.radius
}

// SlotCount is the current logical length.
func (c *Container) SlotCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slotCount()
}

func (c *Container) slotCount() int {
	return c.baseSlots + c.bonusSlots + c.hotbarCount()
}

// HotbarCount is the size of the reserved leading range.
func (c *Container) HotbarCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hotbarCount()
}

func (c *Container) hotbarCount() int {
	return c.hotbarSlots + c.bonusHotbar
}

// Version increases by one for every applied mutation.
func (c *Container) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Spawn allocates empty slots. It does nothing if slots already exist.
func (c *Container) Spawn(ctx context.Context) {
	c.mu.Lock()
	if len(c.slots) != 0 {
		c.mu.Unlock()
		return
	}
	c.slots = make([]item.Stack, c.slotCount())
	c.version++
	n := len(c.slots)
	c.mu.Unlock()

	slog.DebugContext(ctx, "initialized container", "container", c.id, "slots", n)
	c.notify(ctx)
}

// OnChange registers fn to run after every successful mutation. Handlers
// run synchronously on the mutating goroutine, after the lock is released.
func (c *Container) OnChange(fn ChangeFunc) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = append(c.handlers, fn)
}

func (c *Container) notify(ctx context.Context) {
	c.handlersMu.RLock()
	handlers := make([]ChangeFunc, len(c.handlers))
	copy(handlers, c.handlers)
	c.handlersMu.RUnlock()

	for _, fn := range handlers {
		fn(ctx, c)
	}
}

// Snapshot is a fully-applied copy of the slot sequence.
type Snapshot struct {
	Container ID
	Version   uint64
	Slots     []item.Stack
}

// Snapshot copies the current slots. It never observes a half-applied
// mutation.
func (c *Container) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots := make([]item.Stack, len(c.slots))
	copy(slots, c.slots)
	return Snapshot{Container: c.id, Version: c.version, Slots: slots}
}

// Slot returns the stack at index and whether the index is valid.
func (c *Container) Slot(index int) (item.Stack, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.slots) {
		return item.Empty, false
	}
	return c.slots[index], true
}

// Hotbar returns a copy of the reserved leading range.
func (c *Container) Hotbar() []item.Stack {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := min(c.hotbarCount(), len(c.slots))
	out := make([]item.Stack, n)
	copy(out, c.slots[:n])
	return out
}

// General returns a copy of the slots after the reserved range.
func (c *Container) General() []item.Stack {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := min(c.hotbarCount(), len(c.slots))
	out := make([]item.Stack, len(c.slots)-n)
	copy(out, c.slots[n:])
	return out
}

// Instance looks up instance data owned by this container.
func (c *Container) Instance(id uuid.UUID) (instance.Data, bool) {
	d, ok := c.instances.Get(id)
	if !ok {
		slog.Warn("instance data not found", "container", c.id, "instance", id)
	}
	return d, ok
}

// InstanceCount returns the number of live instance entries.
func (c *Container) InstanceCount() int {
	return c.instances.Len()
}

// Count returns the total quantity of id across all slots.
func (c *Container) Count(id item.ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countRange(id, 0, len(c.slots))
}

func (c *Container) countRange(id item.ID, from, to int) int {
	total := 0
	for i := from; i < to; i++ {
		if c.slots[i].ID == id {
			total += int(c.slots[i].Quantity)
		}
	}
	return total
}

// SetSlot overwrites a slot directly. Instance data of a replaced instanced
// stack is released; the caller owns the consistency of the new stack.
func (c *Container) SetSlot(ctx context.Context, index int, s item.Stack) bool {
	c.mu.Lock()
	if index < 0 || index >= len(c.slots) {
		c.mu.Unlock()
		slog.WarnContext(ctx, "set slot index out of range", "container", c.id, "slot", index)
		return false
	}
	if old := c.slots[index]; old.HasInstance() && old.InstanceID != s.InstanceID {
		c.instances.Remove(old.InstanceID)
	}
	c.slots[index] = s
	c.version++
	c.mu.Unlock()

	c.notify(ctx)
	return true
}

// GrantBonusSlots appends n general slots.
func (c *Container) GrantBonusSlots(ctx context.Context, n int) {
	if n <= 0 {
		return
	}

	c.mu.Lock()
	c.bonusSlots += n
	if len(c.slots) != 0 {
		c.slots = append(c.slots, make([]item.Stack, n)...)
	}
	c.version++
	c.mu.Unlock()

	slog.DebugContext(ctx, "granted bonus slots", "container", c.id, "count", n)
	c.notify(ctx)
}

// GrantBonusHotbarSlots grows the reserved range by n, inserting the new
// slots at its end so existing general slots shift up.
func (c *Container) GrantBonusHotbarSlots(ctx context.Context, n int) {
	if n <= 0 {
		return
	}

	c.mu.Lock()
	at := c.hotbarCount()
	c.bonusHotbar += n
	if len(c.slots) != 0 {
		grown := make([]item.Stack, 0, len(c.slots)+n)
		grown = append(grown, c.slots[:at]...)
		grown = append(grown, make([]item.Stack, n)...)
		grown = append(grown, c.slots[at:]...)
		c.slots = grown
	}
	c.version++
	c.mu.Unlock()

	slog.DebugContext(ctx, "granted bonus hotbar slots", "container", c.id, "count", n)
	c.notify(ctx)
}
