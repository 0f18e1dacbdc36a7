package inventory

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/instance"
	"github.com/pixil98/go-satchel/internal/item"
	"github.com/pixil98/go-testutil"
)

const (
	wood    item.ID = 5
	stone   item.ID = 7
	pickaxe item.ID = 9
	missing item.ID = 99
)

var testCatalog = item.MapCatalog{
	wood:    {ID: wood, Name: "Wood", StackSize: 64, Category: item.CategoryMaterial},
	stone:   {ID: stone, Name: "Stone", StackSize: 16, Category: item.CategoryMaterial},
	pickaxe: {ID: pickaxe, Name: "Pickaxe", StackSize: 1, Category: item.CategoryTool, Durability: 20},
}

func newContainer(t *testing.T, id ID, slots, hotbar int) *Container {
	t.Helper()
	c := NewContainer(id, 1, testCatalog, Config{Slots: slots, HotbarSlots: hotbar, Policy: access.OwnerOnly})
	c.Spawn(context.Background())
	return c
}

func stack(id item.ID, qty uint16) item.Stack {
	return item.Stack{ID: id, Quantity: qty}
}

// assertInstances checks that every instanced stack has exactly one live
// entry and that nothing else is stored.
func assertInstances(t *testing.T, c *Container) {
	t.Helper()

	live := 0
	for i, s := range c.Snapshot().Slots {
		if !s.HasInstance() {
			continue
		}
		live++
		testutil.AssertEqual(t, "instanced quantity", s.Quantity, uint16(1))
		if _, ok := c.instances.Get(s.InstanceID); !ok {
			t.Errorf("slot %d: instance %s has no data", i, s.InstanceID)
		}
	}
	testutil.AssertEqual(t, "live instances", c.InstanceCount(), live)
}

func assertStacks(t *testing.T, name string, got, want []item.Stack) {
	t.Helper()

	testutil.AssertEqual(t, name+" length", len(got), len(want))
	for i := range min(len(got), len(want)) {
		testutil.AssertEqual(t, fmt.Sprintf("%s[%d]", name, i), got[i], want[i])
	}
}

func TestContainer_Spawn(t *testing.T) {
	ctx := context.Background()
	c := NewContainer(1, 1, testCatalog, Config{Slots: 4, HotbarSlots: 2})

	testutil.AssertEqual(t, "slots before spawn", len(c.Snapshot().Slots), 0)
	c.Spawn(ctx)
	testutil.AssertEqual(t, "slots after spawn", len(c.Snapshot().Slots), 6)

	c.AddItemAtSlot(ctx, 0, wood, 3)
	c.Spawn(ctx)
	slot, _ := c.Slot(0)
	testutil.AssertEqual(t, "respawn keeps contents", slot, stack(wood, 3))
}

func TestContainer_AddItem(t *testing.T) {
	tests := map[string]struct {
		initial   map[int]item.Stack
		slots     int
		item      item.ID
		quantity  uint16
		target    *int
		exp       bool
		expSlots  map[int]item.Stack
		expInstan int
	}{
		"zero quantity succeeds": {
			slots: 2, item: wood, quantity: 0, exp: true,
			expSlots: map[int]item.Stack{0: item.Empty},
		},
		"stack merge overflows into next empty slot": {
			initial: map[int]item.Stack{0: stack(wood, 40)},
			slots:   3, item: wood, quantity: 30, exp: true,
			expSlots: map[int]item.Stack{0: stack(wood, 64), 1: stack(wood, 6)},
		},
		"fills several empty slots": {
			slots: 3, item: stone, quantity: 40, exp: true,
			expSlots: map[int]item.Stack{0: stack(stone, 16), 1: stack(stone, 16), 2: stack(stone, 8)},
		},
		"partial placement stays placed": {
			initial: map[int]item.Stack{0: stack(wood, 1)},
			slots:   2, item: stone, quantity: 40, exp: false,
			expSlots: map[int]item.Stack{0: stack(wood, 1), 1: stack(stone, 16)},
		},
		"unknown item fails": {
			slots: 2, item: missing, quantity: 1, exp: false,
			expSlots: map[int]item.Stack{0: item.Empty, 1: item.Empty},
		},
		"target stacks onto compatible slot": {
			initial: map[int]item.Stack{1: stack(wood, 10)},
			slots:   2, item: wood, quantity: 5, target: At(1), exp: true,
			expSlots: map[int]item.Stack{0: item.Empty, 1: stack(wood, 15)},
		},
		"target caps at stack size": {
			initial: map[int]item.Stack{1: stack(stone, 10)},
			slots:   2, item: stone, quantity: 10, target: At(1), exp: false,
			expSlots: map[int]item.Stack{0: item.Empty, 1: stack(stone, 16)},
		},
		"target holds another item": {
			initial: map[int]item.Stack{0: stack(stone, 1)},
			slots:   2, item: wood, quantity: 1, target: At(0), exp: false,
			expSlots: map[int]item.Stack{0: stack(stone, 1), 1: item.Empty},
		},
		"target out of range": {
			slots: 2, item: wood, quantity: 1, target: At(5), exp: false,
			expSlots: map[int]item.Stack{0: item.Empty, 1: item.Empty},
		},
		"instanced items take one slot each": {
			slots: 3, item: pickaxe, quantity: 2, exp: true, expInstan: 2,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newContainer(t, 1, tt.slots, 0)
			for i, s := range tt.initial {
				c.SetSlot(ctx, i, s)
			}

			got := c.AddItem(ctx, tt.item, tt.quantity, tt.target)

			testutil.AssertEqual(t, "result", got, tt.exp)
			for i, exp := range tt.expSlots {
				s, _ := c.Slot(i)
				testutil.AssertEqual(t, "slot", s, exp)
			}
			testutil.AssertEqual(t, "instances", c.InstanceCount(), tt.expInstan)
			assertInstances(t, c)
		})
	}
}

func TestContainer_AddInstancedAtSlotRejectsStack(t *testing.T) {
	ctx := context.Background()
	c := newContainer(t, 1, 3, 0)

	got := c.AddItemAtSlot(ctx, 1, pickaxe, 3)

	testutil.AssertEqual(t, "result", got, false)
	s, _ := c.Slot(1)
	testutil.AssertEqual(t, "item", s.ID, pickaxe)
	testutil.AssertEqual(t, "quantity", s.Quantity, uint16(1))
	testutil.AssertEqual(t, "instances", c.InstanceCount(), 1)

	data, ok := c.Instance(s.InstanceID)
	testutil.AssertEqual(t, "found", ok, true)
	tool := data.(*instance.Tool)
	testutil.AssertEqual(t, "durability", tool.CurrentDurability, 20)
}

func TestContainer_RemoveItem(t *testing.T) {
	tests := map[string]struct {
		initial  map[int]item.Stack
		item     item.ID
		quantity uint16
		target   *int
		exp      bool
		expSlots map[int]item.Stack
	}{
		"removal below available changes nothing": {
			initial: map[int]item.Stack{0: stack(stone, 1), 2: stack(stone, 1)},
			item:    stone, quantity: 5, exp: false,
			expSlots: map[int]item.Stack{0: stack(stone, 1), 2: stack(stone, 1)},
		},
		"removes across slots in index order": {
			initial: map[int]item.Stack{0: stack(stone, 3), 1: stack(wood, 2), 2: stack(stone, 4)},
			item:    stone, quantity: 5, exp: true,
			expSlots: map[int]item.Stack{0: item.Empty, 1: stack(wood, 2), 2: stack(stone, 2)},
		},
		"counts matches after threshold": {
			initial: map[int]item.Stack{0: stack(stone, 1), 1: stack(stone, 1), 2: stack(stone, 1), 3: stack(stone, 1)},
			item:    stone, quantity: 4, exp: true,
			expSlots: map[int]item.Stack{0: item.Empty, 1: item.Empty, 2: item.Empty, 3: item.Empty},
		},
		"target slot": {
			initial: map[int]item.Stack{0: stack(stone, 3), 2: stack(stone, 4)},
			item:    stone, quantity: 4, target: At(2), exp: true,
			expSlots: map[int]item.Stack{0: stack(stone, 3), 2: item.Empty},
		},
		"target slot insufficient": {
			initial: map[int]item.Stack{0: stack(stone, 3), 2: stack(stone, 4)},
			item:    stone, quantity: 5, target: At(2), exp: false,
			expSlots: map[int]item.Stack{0: stack(stone, 3), 2: stack(stone, 4)},
		},
		"target slot wrong item": {
			initial: map[int]item.Stack{0: stack(wood, 3)},
			item:    stone, quantity: 1, target: At(0), exp: false,
			expSlots: map[int]item.Stack{0: stack(wood, 3)},
		},
		"zero quantity succeeds": {
			item: stone, quantity: 0, exp: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newContainer(t, 1, 4, 0)
			for i, s := range tt.initial {
				c.SetSlot(ctx, i, s)
			}
			before := c.Version()

			got := c.RemoveItem(ctx, tt.item, tt.quantity, tt.target)

			testutil.AssertEqual(t, "result", got, tt.exp)
			for i, exp := range tt.expSlots {
				s, _ := c.Slot(i)
				testutil.AssertEqual(t, "slot", s, exp)
			}
			if !tt.exp {
				testutil.AssertEqual(t, "version unchanged", c.Version(), before)
			}
		})
	}
}

func TestContainer_RemoveReleasesInstance(t *testing.T) {
	ctx := context.Background()
	c := newContainer(t, 1, 3, 0)
	c.AddItem(ctx, pickaxe, 2, nil)
	testutil.AssertEqual(t, "instances", c.InstanceCount(), 2)

	testutil.AssertEqual(t, "remove one", c.RemoveItem(ctx, pickaxe, 1, nil), true)
	testutil.AssertEqual(t, "instances after one", c.InstanceCount(), 1)
	assertInstances(t, c)

	testutil.AssertEqual(t, "remove too many", c.RemoveItem(ctx, pickaxe, 2, nil), false)
	testutil.AssertEqual(t, "instances unchanged", c.InstanceCount(), 1)

	testutil.AssertEqual(t, "remove last", c.RemoveItem(ctx, pickaxe, 1, nil), true)
	testutil.AssertEqual(t, "instances after all", c.InstanceCount(), 0)
}

func TestContainer_HotbarPriority(t *testing.T) {
	ctx := context.Background()
	// Slots 0-1 are hotbar, 2-3 are general.
	c := newContainer(t, 1, 2, 2)

	c.AddItem(ctx, stone, 16, nil)
	s, _ := c.Slot(2)
	testutil.AssertEqual(t, "first add lands in general", s, stack(stone, 16))

	c.AddItem(ctx, stone, 32, nil)
	assertStacks(t, "general full", c.General(), []item.Stack{stack(stone, 16), stack(stone, 16)})
	assertStacks(t, "hotbar used last", c.Hotbar(), []item.Stack{stack(stone, 16), item.Empty})

	c.RemoveItem(ctx, stone, 20, nil)
	assertStacks(t, "hotbar drained first", c.Hotbar(), []item.Stack{item.Empty, item.Empty})
	assertStacks(t, "general drained second", c.General(), []item.Stack{stack(stone, 12), stack(stone, 16)})
}

func TestContainer_HotbarStackingPrefersGeneral(t *testing.T) {
	ctx := context.Background()
	c := newContainer(t, 1, 2, 2)
	c.SetSlot(ctx, 0, stack(wood, 10))
	c.SetSlot(ctx, 3, stack(wood, 10))

	c.AddItem(ctx, wood, 60, nil)

	assertStacks(t, "general stacked first", c.General(), []item.Stack{item.Empty, stack(wood, 64)})
	assertStacks(t, "hotbar stacked second", c.Hotbar(), []item.Stack{stack(wood, 16), item.Empty})
}

func TestContainer_TryAddAsManyAsPossible(t *testing.T) {
	ctx := context.Background()
	tests := map[string]struct {
		item         item.ID
		quantity     uint16
		target       *int
		expOK        bool
		expRemainder uint16
		expCount     int
	}{
		"all fit":                  {item: stone, quantity: 20, expOK: true, expRemainder: 0, expCount: 20},
		"partial":                  {item: stone, quantity: 40, expOK: false, expRemainder: 8, expCount: 32},
		"target partial":           {item: stone, quantity: 20, target: At(1), expOK: false, expRemainder: 4, expCount: 16},
		"target out of range":      {item: stone, quantity: 5, target: At(9), expOK: false, expRemainder: 5, expCount: 0},
		"instanced at target":      {item: pickaxe, quantity: 3, target: At(0), expOK: false, expRemainder: 2, expCount: 1},
		"unknown item":             {item: missing, quantity: 3, expOK: false, expRemainder: 3, expCount: 0},
		"zero quantity is a no-op": {item: stone, quantity: 0, expOK: true, expRemainder: 0, expCount: 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := newContainer(t, 1, 2, 0)

			ok, remainder := c.TryAddAsManyAsPossible(ctx, tt.item, tt.quantity, tt.target)

			testutil.AssertEqual(t, "ok", ok, tt.expOK)
			testutil.AssertEqual(t, "remainder", remainder, tt.expRemainder)
			testutil.AssertEqual(t, "count", c.Count(tt.item), tt.expCount)
			assertInstances(t, c)
		})
	}
}

func TestContainer_Conservation(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	c := newContainer(t, 1, 6, 3)

	expected := map[item.ID]int{}
	ids := []item.ID{wood, stone, pickaxe}

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		qty := uint16(rng.Intn(40))

		var target *int
		if rng.Intn(3) == 0 {
			target = At(rng.Intn(9))
		}

		if rng.Intn(2) == 0 {
			_, remainder := c.TryAddAsManyAsPossible(ctx, id, qty, target)
			expected[id] += int(qty - remainder)
		} else if c.RemoveItem(ctx, id, qty, target) {
			expected[id] -= int(qty)
		}

		for _, id := range ids {
			if got := c.Count(id); got != expected[id] {
				t.Fatalf("step %d: item %d count = %d, expected %d", i, id, got, expected[id])
			}
		}
		assertInstances(t, c)
	}
}

func TestContainer_OnChange(t *testing.T) {
	ctx := context.Background()
	c := newContainer(t, 1, 2, 0)

	calls := 0
	c.OnChange(func(ctx context.Context, changed *Container) {
		calls++
		// Handlers run after the lock is released.
		_ = changed.Snapshot()
	})

	c.AddItem(ctx, wood, 1, nil)
	testutil.AssertEqual(t, "after add", calls, 1)

	c.RemoveItem(ctx, wood, 5, nil)
	testutil.AssertEqual(t, "failed remove does not notify", calls, 1)

	c.RemoveItem(ctx, wood, 1, nil)
	testutil.AssertEqual(t, "after remove", calls, 2)

	c.AddItem(ctx, missing, 1, nil)
	testutil.AssertEqual(t, "failed add does not notify", calls, 2)
}

func TestContainer_GrantBonusSlots(t *testing.T) {
	ctx := context.Background()
	c := newContainer(t, 1, 2, 1)
	c.SetSlot(ctx, 0, stack(wood, 1))
	c.SetSlot(ctx, 1, stack(stone, 2))

	c.GrantBonusSlots(ctx, 2)
	testutil.AssertEqual(t, "slot count", c.SlotCount(), 5)
	testutil.AssertEqual(t, "snapshot length", len(c.Snapshot().Slots), 5)

	c.GrantBonusHotbarSlots(ctx, 1)
	testutil.AssertEqual(t, "hotbar count", c.HotbarCount(), 2)
	assertStacks(t, "hotbar", c.Hotbar(), []item.Stack{stack(wood, 1), item.Empty})
	testutil.AssertEqual(t, "general shifted", c.General()[0], stack(stone, 2))
}

func TestContainer_SetSlotReleasesReplacedInstance(t *testing.T) {
	ctx := context.Background()
	c := newContainer(t, 1, 2, 0)
	c.AddItemAtSlot(ctx, 0, pickaxe, 1)
	testutil.AssertEqual(t, "instances", c.InstanceCount(), 1)

	c.SetSlot(ctx, 0, item.Empty)
	testutil.AssertEqual(t, "instances", c.InstanceCount(), 0)

	testutil.AssertEqual(t, "out of range", c.SetSlot(ctx, 7, item.Empty), false)
}

func TestContainer_RecreatedVersionIsNewer(t *testing.T) {
	ctx := context.Background()
	old := newContainer(t, 1, 2, 0)
	old.AddItem(ctx, wood, 3, nil)
	old.RemoveItem(ctx, wood, 1, nil)
	time.Sleep(time.Millisecond)

	recreated := newContainer(t, 1, 2, 0)
	if recreated.Version() <= old.Version() {
		t.Errorf("recreated version %d not newer than %d", recreated.Version(), old.Version())
	}
}

func TestContainer_InstanceLookupMissing(t *testing.T) {
	c := newContainer(t, 1, 1, 0)
	_, ok := c.Instance(uuid.New())
	testutil.AssertEqual(t, "found", ok, false)
}

func TestContainer_Wear(t *testing.T) {
	ctx := context.Background()
	c := newContainer(t, 1, 2, 0)
	c.AddItemAtSlot(ctx, 0, pickaxe, 1)
	c.SetSlot(ctx, 1, stack(wood, 2))
	held, _ := c.Slot(0)

	remaining, broken, ok := c.Wear(ctx, held.InstanceID, 19)
	testutil.AssertEqual(t, "ok", ok, true)
	testutil.AssertEqual(t, "broken", broken, false)
	testutil.AssertEqual(t, "remaining", remaining, 1)
	testutil.AssertEqual(t, "still held", c.Count(pickaxe), 1)

	calls := 0
	c.OnChange(func(context.Context, *Container) { calls++ })

	remaining, broken, ok = c.Wear(ctx, held.InstanceID, 1)
	testutil.AssertEqual(t, "ok", ok, true)
	testutil.AssertEqual(t, "broken", broken, true)
	testutil.AssertEqual(t, "remaining", remaining, 0)
	testutil.AssertEqual(t, "removed", c.Count(pickaxe), 0)
	testutil.AssertEqual(t, "instances", c.InstanceCount(), 0)
	testutil.AssertEqual(t, "notified", calls, 1)

	_, _, ok = c.Wear(ctx, held.InstanceID, 1)
	testutil.AssertEqual(t, "already broken", ok, false)
	_, _, ok = c.Wear(ctx, uuid.Nil, 1)
	testutil.AssertEqual(t, "stackable", ok, false)
	_, _, ok = c.Wear(ctx, uuid.New(), 1)
	testutil.AssertEqual(t, "unknown instance", ok, false)
}

func TestContainer_WearFollowsInstance(t *testing.T) {
	ctx := context.Background()
	c := newContainer(t, 1, 3, 0)
	c.AddItemAtSlot(ctx, 0, pickaxe, 1)
	c.AddItemAtSlot(ctx, 1, pickaxe, 1)
	worn, _ := c.Slot(0)
	spare, _ := c.Slot(1)

	if !TransferSlot(ctx, c, 0, c, At(2)) {
		t.Fatal("expected the move to succeed")
	}
	if !TransferSlot(ctx, c, 1, c, At(0)) {
		t.Fatal("expected the move to succeed")
	}

	_, _, ok := c.Wear(ctx, worn.InstanceID, 5)
	testutil.AssertEqual(t, "ok", ok, true)

	moved, _ := c.Slot(2)
	testutil.AssertEqual(t, "worn tool moved", moved.InstanceID, worn.InstanceID)
	cur, maxDurability, _ := c.Durability(2)
	testutil.AssertEqual(t, "worn durability", cur, maxDurability-5)
	cur, maxDurability, _ = c.Durability(0)
	testutil.AssertEqual(t, "spare untouched", cur, maxDurability)
	now, _ := c.Slot(0)
	testutil.AssertEqual(t, "spare in old slot", now.InstanceID, spare.InstanceID)
}
