// Package world is the authoritative process's view of who is connected,
// where they stand and which containers and resource nodes exist.
package world

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/geom"
	"github.com/pixil98/go-satchel/internal/hotbar"
	"github.com/pixil98/go-satchel/internal/inventory"
	"github.com/pixil98/go-satchel/internal/item"
	"github.com/pixil98/go-satchel/internal/storage"
	"github.com/pixil98/go-satchel/internal/use"
	"github.com/pixil98/go-satchel/internal/wire"
)

// Participant container ids live above bagIDBase; world-placed containers
// below it.
const bagIDBase uint64 = 1 << 32

// BagID is the container id of a participant's own inventory.
func BagID(p access.ParticipantID) inventory.ID {
	return inventory.ID(bagIDBase + uint64(p))
}

// Participant is a connected remote peer.
type Participant struct {
	ID       access.ParticipantID
	Name     string
	Position geom.Vec3
}

// JoinFunc observes a participant joining with their new bag and hotbar.
type JoinFunc func(ctx context.Context, p Participant, bag *inventory.Container, sel *hotbar.Selector)

// LeaveFunc observes a participant leaving.
type LeaveFunc func(ctx context.Context, p Participant, bag inventory.ID)

type placed struct {
	container *inventory.Container
	name      string
	// anchor is nil for bags, which follow their owner.
	anchor   *geom.Vec3
	selector *hotbar.Selector
}

// World is the single source of truth for participants and placement.
type World struct {
	catalog item.Catalog
	bag     inventory.Config

	mu           sync.RWMutex
	participants map[access.ParticipantID]*Participant
	containers   map[inventory.ID]*placed
	nodes        []*ResourceNode

	hooksMu sync.RWMutex
	onJoin  []JoinFunc
	onLeave []LeaveFunc
}

// NewWorld creates an empty world. Participant bags are shaped by bag.
func NewWorld(catalog item.Catalog, bag inventory.Config) *World {
	return &World{
		catalog:      catalog,
		bag:          bag,
		participants: map[access.ParticipantID]*Participant{},
		containers:   map[inventory.ID]*placed{},
	}
}

func (w *World) OnJoin(fn JoinFunc) {
	w.hooksMu.Lock()
	defer w.hooksMu.Unlock()
	w.onJoin = append(w.onJoin, fn)
}

func (w *World) OnLeave(fn LeaveFunc) {
	w.hooksMu.Lock()
	defer w.hooksMu.Unlock()
	w.onLeave = append(w.onLeave, fn)
}

// Load places every chest and node from the given stores.
func (w *World) Load(ctx context.Context, chests storage.Storer[*ChestSpec], nodes storage.Storer[*NodeSpec]) error {
	for id, spec := range chests.GetAll() {
		if _, err := w.AddChest(ctx, *spec); err != nil {
			return fmt.Errorf("chest %s: %w", id, err)
		}
	}
	for _, spec := range nodes.GetAll() {
		w.AddNode(*spec)
	}
	slog.InfoContext(ctx, "world loaded", "chests", len(chests.GetAll()), "nodes", len(nodes.GetAll()))
	return nil
}

// AddChest spawns a world-placed container and fills it with its seeds.
func (w *World) AddChest(ctx context.Context, spec ChestSpec) (*inventory.Container, error) {
	id := inventory.ID(spec.ContainerID)
	c := inventory.NewContainer(id, access.Server, w.catalog, inventory.Config{
		Slots:  spec.Slots,
		Policy: spec.Policy,
		Radius: spec.Radius,
	})

	pos := spec.Position
	w.mu.Lock()
	if _, exists := w.containers[id]; exists {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrContainerExists, id)
	}
	w.containers[id] = &placed{container: c, name: spec.Name, anchor: &pos}
	w.mu.Unlock()

	c.Spawn(ctx)
	for _, seed := range spec.Contents {
		if ok, remainder := c.TryAddAsManyAsPossible(ctx, seed.Item, seed.Quantity, seed.Slot); !ok {
			slog.WarnContext(ctx, "chest seed did not fit", "chest", spec.Name, "item", seed.Item, "remainder", remainder)
		}
	}
	return c, nil
}

// AddNode places a resource node. Depleting it gives its yield to the
// participant who struck the last blow.
func (w *World) AddNode(spec NodeSpec) *ResourceNode {
	n := NewResourceNode(spec, w.giveYield)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.nodes = append(w.nodes, n)
	return n
}

func (w *World) giveYield(ctx context.Context, n *ResourceNode, ev use.DamageEvent) {
	y := n.Yield()
	if y == nil {
		return
	}

	c, ok := w.Container(BagID(ev.Source))
	if !ok {
		slog.WarnContext(ctx, "harvester has no bag", "node", n.Name(), "participant", ev.Source)
		return
	}
	if ok, remainder := c.TryAddAsManyAsPossible(ctx, y.Item, y.Quantity, nil); !ok {
		slog.InfoContext(ctx, "harvest did not fit", "node", n.Name(), "participant", ev.Source, "lost", remainder)
	}
}

// Join registers a participant and spawns their bag and hotbar.
func (w *World) Join(ctx context.Context, id access.ParticipantID, name string, pos geom.Vec3) (*inventory.Container, error) {
	bagID := BagID(id)
	bag := inventory.NewContainer(bagID, id, w.catalog, w.bag)
	sel := hotbar.NewSelector(id, bag)
	p := &Participant{ID: id, Name: name, Position: pos}

	w.mu.Lock()
	if _, exists := w.participants[id]; exists {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrParticipantExists, id)
	}
	w.participants[id] = p
	w.containers[bagID] = &placed{container: bag, name: name, selector: sel}
	w.mu.Unlock()

	slog.InfoContext(ctx, "participant joined", "participant", id, "name", name)

	w.hooksMu.RLock()
	hooks := slices.Clone(w.onJoin)
	w.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, *p, bag, sel)
	}

	bag.Spawn(ctx)
	return bag, nil
}

// Leave removes a participant and their bag.
func (w *World) Leave(ctx context.Context, id access.ParticipantID) error {
	w.mu.Lock()
	p, exists := w.participants[id]
	if !exists {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
	}
	delete(w.participants, id)
	delete(w.containers, BagID(id))
	w.mu.Unlock()

	slog.InfoContext(ctx, "participant left", "participant", id, "name", p.Name)

	w.hooksMu.RLock()
	hooks := slices.Clone(w.onLeave)
	w.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, *p, BagID(id))
	}
	return nil
}

// Move updates a participant's position.
func (w *World) Move(ctx context.Context, id access.ParticipantID, pos geom.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, exists := w.participants[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
	}
	p.Position = pos
	slog.DebugContext(ctx, "participant moved", "participant", id, "position", pos)
	return nil
}

// HandleSession applies a raw session message.
func (w *World) HandleSession(ctx context.Context, data []byte) error {
	s, err := wire.ParseSession(data)
	if err != nil {
		slog.WarnContext(ctx, "dropping invalid session message", "error", err)
		return err
	}

	id := access.ParticipantID(s.Participant)
	switch s.Op {
	case wire.SessionJoin:
		_, err = w.Join(ctx, id, s.Name, s.Position)
	case wire.SessionLeave:
		err = w.Leave(ctx, id)
	case wire.SessionMove:
		err = w.Move(ctx, id, s.Position)
	}
	return err
}

// Participants returns connected participant ids in ascending order.
func (w *World) Participants() []access.ParticipantID {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ids := make([]access.ParticipantID, 0, len(w.participants))
	for id := range w.participants {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Participant returns a copy of a participant's state.
func (w *World) Participant(id access.ParticipantID) (Participant, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	p, ok := w.participants[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

func (w *World) ParticipantPosition(id access.ParticipantID) (geom.Vec3, bool) {
	p, ok := w.Participant(id)
	return p.Position, ok
}

// ContainerPosition is the chest's anchor, or the owner's position for a
// bag.
func (w *World) ContainerPosition(id inventory.ID) (geom.Vec3, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	pl, ok := w.containers[id]
	if !ok {
		return geom.Vec3{}, false
	}
	if pl.anchor != nil {
		return *pl.anchor, true
	}
	p, ok := w.participants[pl.container.Owner()]
	if !ok {
		return geom.Vec3{}, false
	}
	return p.Position, true
}

func (w *World) Container(id inventory.ID) (*inventory.Container, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	pl, ok := w.containers[id]
	if !ok {
		return nil, false
	}
	return pl.container, true
}

func (w *World) Selector(id inventory.ID) (*hotbar.Selector, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	pl, ok := w.containers[id]
	if !ok || pl.selector == nil {
		return nil, false
	}
	return pl.selector, true
}

// ContainerInfo is a listing entry for operators.
type ContainerInfo struct {
	ID       inventory.ID
	Name     string
	Owner    access.ParticipantID
	Position geom.Vec3
	Slots    int
	Hotbar   int
}

// Containers lists every container in id order.
func (w *World) Containers() []ContainerInfo {
	w.mu.RLock()
	out := make([]ContainerInfo, 0, len(w.containers))
	for id, pl := range w.containers {
		info := ContainerInfo{
			ID:    id,
			Name:  pl.name,
			Owner: pl.container.Owner(),
		}
		if pl.anchor != nil {
			info.Position = *pl.anchor
		} else if p, ok := w.participants[info.Owner]; ok {
			info.Position = p.Position
		}
		out = append(out, info)
	}
	w.mu.RUnlock()

	for i := range out {
		c, _ := w.Container(out[i].ID)
		if c == nil {
			continue
		}
		out[i].Slots = c.SlotCount()
		out[i].Hotbar = c.HotbarCount()
	}
	slices.SortFunc(out, func(a, b ContainerInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Nodes returns the placed resource nodes.
func (w *World) Nodes() []*ResourceNode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.nodes)
}

// Raycast returns the nearest node struck by a ray within maxRange.
func (w *World) Raycast(_ context.Context, origin, direction geom.Vec3, maxRange float64) (use.Hit, bool) {
	dir := direction.Normalize()
	if dir.Length() == 0 {
		return use.Hit{}, false
	}

	var best *ResourceNode
	bestT := maxRange
	for _, n := range w.Nodes() {
		if t, ok := n.intersect(origin, dir, maxRange); ok && (best == nil || t < bestT) {
			best, bestT = n, t
		}
	}
	if best == nil {
		return use.Hit{}, false
	}

	return use.Hit{
		Point:    origin.Add(dir.Scale(bestT)),
		Distance: bestT,
		Object:   best,
	}, true
}
