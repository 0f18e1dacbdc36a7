// Package replication pushes authoritative container state to participants
// and applies their mutation requests.
package replication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	goerrors "github.com/pixil98/go-errors"
	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/geom"
	"github.com/pixil98/go-satchel/internal/hotbar"
	"github.com/pixil98/go-satchel/internal/inventory"
	"github.com/pixil98/go-satchel/internal/item"
	"github.com/pixil98/go-satchel/internal/use"
	"github.com/pixil98/go-satchel/internal/wire"
)

var (
	ErrAuthorityViolation = errors.New("not running with authority")
	ErrAccessDenied       = errors.New("access denied")
	ErrValidation         = errors.New("invalid request")
	ErrDataIntegrity      = errors.New("inconsistent state")
)

// Transport delivers framed messages to participants.
type Transport interface {
	Send(ctx context.Context, to access.ParticipantID, data []byte) error
	Broadcast(ctx context.Context, except []access.ParticipantID, data []byte) error
}

// Locator knows who is connected and where things are.
type Locator interface {
	Participants() []access.ParticipantID
	ParticipantPosition(p access.ParticipantID) (geom.Vec3, bool)
	ContainerPosition(c inventory.ID) (geom.Vec3, bool)
}

// Registry resolves network ids to live containers.
type Registry interface {
	Container(id inventory.ID) (*inventory.Container, bool)
	Selector(id inventory.ID) (*hotbar.Selector, bool)
}

// User runs item-use requests.
type User interface {
	Use(ctx context.Context, owner access.ParticipantID, sel *hotbar.Selector, uc use.Context) error
}

// Replicator is the server side of the inventory protocol.
type Replicator struct {
	transport Transport
	locator   Locator
	registry  Registry
	user      User
	catalog   item.Catalog

	authoritative bool

	mu      sync.Mutex
	tracked map[inventory.ID]bool
}

func NewReplicator(transport Transport, locator Locator, registry Registry, opts ...ReplicatorOpt) *Replicator {
	r := &Replicator{
		transport:     transport,
		locator:       locator,
		registry:      registry,
		authoritative: true,
		tracked:       map[inventory.ID]bool{},
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Track broadcasts a fresh snapshot of c after every mutation.
func (r *Replicator) Track(c *inventory.Container) {
	r.mu.Lock()
	if r.tracked[c.ID()] {
		r.mu.Unlock()
		return
	}
	r.tracked[c.ID()] = true
	r.mu.Unlock()

	c.OnChange(func(ctx context.Context, changed *inventory.Container) {
		if !r.isTracked(changed.ID()) {
			return
		}
		if err := r.BroadcastSnapshot(ctx, changed); err != nil {
			slog.ErrorContext(ctx, "broadcasting snapshot", "container", changed.ID(), "error", err)
		}
	})
}

// Untrack stops automatic broadcasts for a container id.
func (r *Replicator) Untrack(id inventory.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tracked, id)
}

func (r *Replicator) isTracked(id inventory.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tracked[id]
}

// TrackSelector announces every committed selection to all participants.
func (r *Replicator) TrackSelector(sel *hotbar.Selector) {
	sel.OnSelectedIndexChanged(func(ctx context.Context, s *hotbar.Selector, index int) {
		if err := r.AnnounceSelection(ctx, s); err != nil {
			slog.ErrorContext(ctx, "announcing selection", "container", s.Container().ID(), "error", err)
		}
	})
}

// PushSnapshot sends the full state of c to one participant if the
// participant may see it.
func (r *Replicator) PushSnapshot(ctx context.Context, c *inventory.Container, to access.ParticipantID) error {
	if !r.authoritative {
		slog.WarnContext(ctx, "snapshot push attempted without authority", "container", c.ID())
		return ErrAuthorityViolation
	}

	if !r.canAccess(ctx, c, to) {
		slog.InfoContext(ctx, "snapshot denied", "container", c.ID(), "participant", to)
		return fmt.Errorf("%w: participant %s on container %s", ErrAccessDenied, to, c.ID())
	}

	data, err := encodeSnapshot(c)
	if err != nil {
		return err
	}
	return r.transport.Send(ctx, to, data)
}

// BroadcastSnapshot pushes the state of c to every connected participant
// that may see it.
func (r *Replicator) BroadcastSnapshot(ctx context.Context, c *inventory.Container) error {
	if !r.authoritative {
		slog.WarnContext(ctx, "snapshot broadcast attempted without authority", "container", c.ID())
		return ErrAuthorityViolation
	}

	data, err := encodeSnapshot(c)
	if err != nil {
		return err
	}

	el := goerrors.NewErrorList()
	for _, p := range r.locator.Participants() {
		if !r.canAccess(ctx, c, p) {
			slog.DebugContext(ctx, "skipping snapshot for participant", "container", c.ID(), "participant", p)
			continue
		}
		if err := r.transport.Send(ctx, p, data); err != nil {
			el.Add(fmt.Errorf("participant %s: %w", p, err))
		}
	}
	return el.Err()
}

// HandlePullRequest answers a participant asking for the current state.
func (r *Replicator) HandlePullRequest(ctx context.Context, c *inventory.Container, requester access.ParticipantID) error {
	slog.DebugContext(ctx, "snapshot requested", "container", c.ID(), "participant", requester)
	return r.PushSnapshot(ctx, c, requester)
}

// Resync rebroadcasts every tracked container. Ids that no longer resolve
// are dropped from tracking.
func (r *Replicator) Resync(ctx context.Context) error {
	r.mu.Lock()
	ids := make([]inventory.ID, 0, len(r.tracked))
	for id := range r.tracked {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	slices.Sort(ids)

	el := goerrors.NewErrorList()
	for _, id := range ids {
		c, ok := r.registry.Container(id)
		if !ok {
			slog.DebugContext(ctx, "tracked container is gone", "container", id)
			r.Untrack(id)
			continue
		}
		if err := r.BroadcastSnapshot(ctx, c); err != nil {
			el.Add(fmt.Errorf("container %s: %w", id, err))
		}
	}
	return el.Err()
}

// Tick satisfies driver.Manager. Delivery failures are logged, not fatal.
func (r *Replicator) Tick(ctx context.Context) error {
	if !r.authoritative {
		return nil
	}
	if err := r.Resync(ctx); err != nil {
		slog.WarnContext(ctx, "periodic resync", "error", err)
	}
	return nil
}

// AnnounceSelection tells every participant what the owner of s now holds.
func (r *Replicator) AnnounceSelection(ctx context.Context, s *hotbar.Selector) error {
	if !r.authoritative {
		return ErrAuthorityViolation
	}

	st, index, ok := s.Selected()
	if !ok {
		return nil
	}

	sel := wire.Selection{
		Owner:     uint64(s.Owner()),
		Container: uint64(s.Container().ID()),
		Index:     index,
		Item:      st.ID,
	}
	if r.catalog != nil && !st.IsEmpty() {
		if def, found := r.catalog.Definition(st.ID); found {
			if v, hasVisual := def.Visual(); hasVisual {
				sel.Prefab = v.Prefab
				sel.Socket = v.Socket
			}
		}
	}

	data, err := wire.EncodeJSON(wire.KindSelection, sel)
	if err != nil {
		return err
	}
	return r.transport.Broadcast(ctx, nil, data)
}

func (r *Replicator) canAccess(ctx context.Context, c *inventory.Container, p access.ParticipantID) bool {
	policy, radius := c.Policy()
	req := access.Request{
		Owner:     c.Owner(),
		Requester: p,
		Policy:    policy,
		Radius:    radius,
	}

	if policy.Proximity() {
		var ok bool
		if req.OwnerPos, ok = r.locator.ContainerPosition(c.ID()); !ok {
			slog.WarnContext(ctx, "container has no position, denying", "container", c.ID())
			return false
		}
		if req.RequesterPos, ok = r.locator.ParticipantPosition(p); !ok {
			slog.WarnContext(ctx, "participant has no position, denying", "participant", p)
			return false
		}
	}

	return access.CanAccess(ctx, req)
}

func encodeSnapshot(c *inventory.Container) ([]byte, error) {
	snap := c.Snapshot()
	data, err := wire.EncodeSnapshot(wire.Snapshot{Container: uint64(snap.Container), Version: snap.Version, Slots: snap.Slots})
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot of container %s: %w", c.ID(), err)
	}
	return data, nil
}
