package world

import (
	"context"
	"errors"
	"testing"

	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/geom"
	"github.com/pixil98/go-satchel/internal/hotbar"
	"github.com/pixil98/go-satchel/internal/inventory"
	"github.com/pixil98/go-satchel/internal/item"
	"github.com/pixil98/go-satchel/internal/storage"
	"github.com/pixil98/go-satchel/internal/use"
	"github.com/pixil98/go-testutil"
)

const (
	wood  item.ID = 1
	stone item.ID = 2
	axe   item.ID = 3
)

var testCatalog = item.MapCatalog{
	wood:  {ID: wood, Name: "Wood", StackSize: 64, Category: item.CategoryMaterial},
	stone: {ID: stone, Name: "Stone", StackSize: 16, Category: item.CategoryMaterial},
	axe:   {ID: axe, Name: "Axe", StackSize: 1, Category: item.CategoryTool, Durability: 10},
}

var testBag = inventory.Config{Slots: 4, HotbarSlots: 2, Policy: access.OwnerOnly}

func newWorld(t *testing.T) *World {
	t.Helper()
	return NewWorld(testCatalog, testBag)
}

func slot(i int) *int { return &i }

func TestWorld_JoinLeave(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	var joined []string
	var left []inventory.ID
	w.OnJoin(func(_ context.Context, p Participant, bag *inventory.Container, sel *hotbar.Selector) {
		joined = append(joined, p.Name)
		if sel.Container() != bag {
			t.Errorf("selector container: got %d, want %d", sel.Container().ID(), bag.ID())
		}
	})
	w.OnLeave(func(_ context.Context, _ Participant, bag inventory.ID) {
		left = append(left, bag)
	})

	bag, err := w.Join(ctx, 4, "ada", geom.Vec3{X: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "bag id", bag.ID(), BagID(4))
	testutil.AssertEqual(t, "bag owner", bag.Owner(), access.ParticipantID(4))
	testutil.AssertEqual(t, "bag slots", bag.SlotCount(), 6)
	testutil.AssertEqual(t, "spawned", len(bag.Snapshot().Slots), 6)

	if _, err := w.Join(ctx, 4, "ada", geom.Vec3{}); !errors.Is(err, ErrParticipantExists) {
		t.Errorf("expected ErrParticipantExists, got %v", err)
	}

	if _, ok := w.Selector(BagID(4)); !ok {
		t.Errorf("expected a hotbar selector for the bag")
	}

	if err := w.Leave(ctx, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Leave(ctx, 4); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("expected ErrParticipantNotFound, got %v", err)
	}
	if _, ok := w.Container(BagID(4)); ok {
		t.Errorf("bag should be gone after leave")
	}

	testutil.AssertEqual(t, "joined", len(joined), 1)
	testutil.AssertEqual(t, "left", len(left), 1)
	testutil.AssertEqual(t, "left bag", left[0], BagID(4))
}

func TestWorld_Positions(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	if _, err := w.Join(ctx, 2, "bo", geom.Vec3{X: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.AddChest(ctx, ChestSpec{ContainerID: 9, Name: "crate", Position: geom.Vec3{Z: 5}, Slots: 3, Policy: access.EveryoneProximity, Radius: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos, ok := w.ContainerPosition(BagID(2))
	testutil.AssertEqual(t, "bag found", ok, true)
	testutil.AssertEqual(t, "bag follows owner", pos, geom.Vec3{X: 2})

	if err := w.Move(ctx, 2, geom.Vec3{Y: 8}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos, _ = w.ContainerPosition(BagID(2))
	testutil.AssertEqual(t, "bag after move", pos, geom.Vec3{Y: 8})

	pos, ok = w.ContainerPosition(9)
	testutil.AssertEqual(t, "chest found", ok, true)
	testutil.AssertEqual(t, "chest anchor", pos, geom.Vec3{Z: 5})

	_, ok = w.ContainerPosition(77)
	testutil.AssertEqual(t, "unknown container", ok, false)

	if err := w.Move(ctx, 5, geom.Vec3{}); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestWorld_Participants(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	for _, id := range []access.ParticipantID{7, 3, 5} {
		if _, err := w.Join(ctx, id, "p", geom.Vec3{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got := w.Participants()
	testutil.AssertEqual(t, "count", len(got), 3)
	for i, exp := range []access.ParticipantID{3, 5, 7} {
		testutil.AssertEqual(t, "participant", got[i], exp)
	}
}

func TestWorld_AddChest(t *testing.T) {
	tests := map[string]struct {
		spec     ChestSpec
		expWood  int
		expStone int
		expSlot0 item.ID
	}{
		"seeded automatically": {
			spec: ChestSpec{ContainerID: 1, Name: "a", Slots: 2, Contents: []Seed{
				{Item: wood, Quantity: 70},
			}},
			expWood:  70,
			expSlot0: wood,
		},
		"seeded at slot": {
			spec: ChestSpec{ContainerID: 1, Name: "a", Slots: 2, Contents: []Seed{
				{Item: stone, Quantity: 3, Slot: slot(1)},
			}},
			expStone: 3,
		},
		"overflow is dropped": {
			spec: ChestSpec{ContainerID: 1, Name: "a", Slots: 1, Contents: []Seed{
				{Item: stone, Quantity: 20},
			}},
			expStone: 16,
			expSlot0: stone,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := newWorld(t).AddChest(context.Background(), tt.spec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			testutil.AssertEqual(t, "owner", c.Owner(), access.Server)
			testutil.AssertEqual(t, "wood", c.Count(wood), tt.expWood)
			testutil.AssertEqual(t, "stone", c.Count(stone), tt.expStone)
			s, _ := c.Slot(0)
			testutil.AssertEqual(t, "slot 0", s.ID, tt.expSlot0)
		})
	}
}

func TestWorld_AddChestDuplicate(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	spec := ChestSpec{ContainerID: 3, Name: "a", Slots: 1}

	if _, err := w.AddChest(ctx, spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.AddChest(ctx, spec); !errors.Is(err, ErrContainerExists) {
		t.Errorf("expected ErrContainerExists, got %v", err)
	}
}

func TestWorld_Load(t *testing.T) {
	chests, err := storage.NewMemoryStore(map[storage.Identifier]*ChestSpec{
		"crate": {ContainerID: 11, Name: "Crate", Slots: 2, Policy: access.Everyone, Contents: []Seed{{Item: wood, Quantity: 5}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nodes, err := storage.NewMemoryStore(map[storage.Identifier]*NodeSpec{
		"oak": {Name: "Oak", Radius: 1, RequiredTool: "axe", Health: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := newWorld(t)
	if err := w.Load(context.Background(), chests, nodes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, ok := w.Container(11)
	testutil.AssertEqual(t, "chest loaded", ok, true)
	testutil.AssertEqual(t, "chest wood", c.Count(wood), 5)
	testutil.AssertEqual(t, "nodes", len(w.Nodes()), 1)

	infos := w.Containers()
	testutil.AssertEqual(t, "containers", len(infos), 1)
	testutil.AssertEqual(t, "name", infos[0].Name, "Crate")
	testutil.AssertEqual(t, "slots", infos[0].Slots, 2)
}

func TestWorld_Raycast(t *testing.T) {
	w := newWorld(t)
	near := w.AddNode(NodeSpec{Name: "near", Position: geom.Vec3{Z: 4}, Radius: 1, RequiredTool: "axe", Health: 1})
	w.AddNode(NodeSpec{Name: "far", Position: geom.Vec3{Z: 8}, Radius: 1, RequiredTool: "axe", Health: 1})
	w.AddNode(NodeSpec{Name: "aside", Position: geom.Vec3{X: 5, Z: 2}, Radius: 1, RequiredTool: "axe", Health: 1})

	tests := map[string]struct {
		origin   geom.Vec3
		dir      geom.Vec3
		maxRange float64
		expHit   bool
		expObj   *ResourceNode
		expDist  float64
	}{
		"nearest of two in line": {dir: geom.Vec3{Z: 1}, maxRange: 20, expHit: true, expObj: near, expDist: 3},
		"unnormalized aim":       {dir: geom.Vec3{Z: 4}, maxRange: 20, expHit: true, expObj: near, expDist: 3},
		"out of range":           {dir: geom.Vec3{Z: 1}, maxRange: 2},
		"pointing away":          {dir: geom.Vec3{Z: -1}, maxRange: 20},
		"zero aim":               {maxRange: 20},
		"inside a node":          {origin: geom.Vec3{X: 5, Z: 2}, dir: geom.Vec3{Y: 1}, maxRange: 20},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			hit, ok := w.Raycast(context.Background(), tt.origin, tt.dir, tt.maxRange)
			testutil.AssertEqual(t, "hit", ok, tt.expHit)
			if !tt.expHit {
				return
			}
			if node, _ := hit.Object.(*ResourceNode); node != tt.expObj {
				t.Fatalf("object: got %v, want %s", hit.Object, tt.expObj.Name())
			}
			testutil.AssertEqual(t, "distance", hit.Distance, tt.expDist)
			testutil.AssertEqual(t, "point", hit.Point, geom.Vec3{Z: 3})
		})
	}
}

func TestWorld_HarvestYield(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	bag, err := w.Join(ctx, 6, "ada", geom.Vec3{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n := w.AddNode(NodeSpec{Name: "oak", Radius: 1, RequiredTool: "axe", Health: 5, Yield: &Seed{Item: wood, Quantity: 3}})

	n.ApplyDamage(ctx, use.DamageEvent{Amount: 3, Source: 6})
	testutil.AssertEqual(t, "health", n.Health(), 2)
	testutil.AssertEqual(t, "no yield yet", bag.Count(wood), 0)

	n.ApplyDamage(ctx, use.DamageEvent{Amount: 3, Source: 6})
	testutil.AssertEqual(t, "regrown", n.Health(), 5)
	testutil.AssertEqual(t, "harvested", n.Harvested(), 1)
	testutil.AssertEqual(t, "yield", bag.Count(wood), 3)

	// A harvester without a bag gets nothing and nothing breaks.
	n.ApplyDamage(ctx, use.DamageEvent{Amount: 5, Source: 99})
	testutil.AssertEqual(t, "harvested again", n.Harvested(), 2)
	testutil.AssertEqual(t, "bag unchanged", bag.Count(wood), 3)
}

func TestWorld_HandleSession(t *testing.T) {
	tests := map[string]struct {
		msgs      []string
		expErr    string
		expJoined bool
		expPos    geom.Vec3
	}{
		"join": {
			msgs:      []string{`{"op":"join","participant":4,"name":"ada","position":{"x":1,"y":0,"z":0}}`},
			expJoined: true,
			expPos:    geom.Vec3{X: 1},
		},
		"join then move": {
			msgs: []string{
				`{"op":"join","participant":4,"name":"ada"}`,
				`{"op":"move","participant":4,"position":{"x":0,"y":2,"z":0}}`,
			},
			expJoined: true,
			expPos:    geom.Vec3{Y: 2},
		},
		"join then leave": {
			msgs: []string{
				`{"op":"join","participant":4,"name":"ada"}`,
				`{"op":"leave","participant":4}`,
			},
		},
		"move before join": {
			msgs:   []string{`{"op":"move","participant":4}`},
			expErr: "participant not found",
		},
		"malformed": {
			msgs:   []string{`{"op":`},
			expErr: "unexpected end",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := newWorld(t)

			var err error
			for _, m := range tt.msgs {
				err = w.HandleSession(context.Background(), []byte(m))
			}

			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			p, ok := w.Participant(4)
			testutil.AssertEqual(t, "joined", ok, tt.expJoined)
			testutil.AssertEqual(t, "position", p.Position, tt.expPos)
		})
	}
}
