package replication

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/hotbar"
	"github.com/pixil98/go-satchel/internal/inventory"
	"github.com/pixil98/go-satchel/internal/use"
	"github.com/pixil98/go-satchel/internal/wire"
)

// HandleRequest applies one decoded request on behalf of p. The caller
// establishes p from the connection the request arrived on.
func (r *Replicator) HandleRequest(ctx context.Context, p access.ParticipantID, req wire.Request) error {
	if p == access.Server {
		slog.WarnContext(ctx, "dropping request without a sender", "op", req.Op)
		return fmt.Errorf("%w: request has no sender", ErrValidation)
	}
	if err := req.Validate(); err != nil {
		slog.WarnContext(ctx, "dropping invalid request", "participant", p, "op", req.Op, "error", err)
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	id := inventory.ID(req.Container)

	switch req.Op {
	case wire.OpPull:
		c, err := r.container(ctx, id)
		if err != nil {
			return err
		}
		return r.HandlePullRequest(ctx, c, p)
	case wire.OpSwap:
		return r.SwapSlots(ctx, p, id, req.From, *req.To)
	case wire.OpSwapTo:
		return r.SwapSlotToOtherContainer(ctx, p, id, req.From, inventory.ID(req.Target), req.To)
	case wire.OpMoveQuantity:
		return r.MoveQuantityToOtherContainer(ctx, p, id, req.From, req.Quantity, inventory.ID(req.Target), req.To)
	case wire.OpSelect:
		return r.SetSelectedIndex(ctx, p, id, req.Index)
	case wire.OpScroll:
		return r.Scroll(ctx, p, id, req.Direction)
	case wire.OpUse:
		return r.Use(ctx, p, id, use.Context{Origin: *req.Origin, Aim: *req.Aim})
	default:
		return fmt.Errorf("%w: unhandled op %q", ErrValidation, req.Op)
	}
}

// SwapSlots exchanges two slots of one container.
func (r *Replicator) SwapSlots(ctx context.Context, p access.ParticipantID, id inventory.ID, from, to int) error {
	c, err := r.authorize(ctx, p, id)
	if err != nil {
		return err
	}

	before := c.Version()
	ok := inventory.TransferSlot(ctx, c, from, c, &to)
	return r.settle(ctx, ok, []*inventory.Container{c}, []uint64{before})
}

// SwapSlotToOtherContainer moves the whole stack at from into another
// container.
func (r *Replicator) SwapSlotToOtherContainer(ctx context.Context, p access.ParticipantID, id inventory.ID, from int, target inventory.ID, to *int) error {
	src, err := r.authorize(ctx, p, id)
	if err != nil {
		return err
	}
	dst, err := r.authorize(ctx, p, target)
	if err != nil {
		return err
	}

	before := []uint64{src.Version(), dst.Version()}
	ok := inventory.TransferSlot(ctx, src, from, dst, to)
	return r.settle(ctx, ok, []*inventory.Container{src, dst}, before)
}

// MoveQuantityToOtherContainer moves part of a stack into another
// container. Units that do not fit stay where they were.
func (r *Replicator) MoveQuantityToOtherContainer(ctx context.Context, p access.ParticipantID, id inventory.ID, from int, quantity uint16, target inventory.ID, to *int) error {
	src, err := r.authorize(ctx, p, id)
	if err != nil {
		return err
	}
	dst, err := r.authorize(ctx, p, target)
	if err != nil {
		return err
	}

	before := []uint64{src.Version(), dst.Version()}
	_, ok := inventory.MoveQuantity(ctx, src, from, quantity, dst, to)
	return r.settle(ctx, ok, []*inventory.Container{src, dst}, before)
}

// SetSelectedIndex commits a hotbar selection for the container's owner.
func (r *Replicator) SetSelectedIndex(ctx context.Context, p access.ParticipantID, id inventory.ID, index int) error {
	sel, err := r.selector(ctx, p, id)
	if err != nil {
		return err
	}
	sel.SetSelectedIndex(ctx, index)
	return nil
}

// Scroll moves a hotbar selection by direction.
func (r *Replicator) Scroll(ctx context.Context, p access.ParticipantID, id inventory.ID, direction int) error {
	sel, err := r.selector(ctx, p, id)
	if err != nil {
		return err
	}
	sel.Scroll(ctx, direction)
	return nil
}

// Use runs the item in the requester's active hotbar slot.
func (r *Replicator) Use(ctx context.Context, p access.ParticipantID, id inventory.ID, uc use.Context) error {
	sel, err := r.selector(ctx, p, id)
	if err != nil {
		return err
	}
	if r.user == nil {
		slog.WarnContext(ctx, "item use is not enabled", "participant", p)
		return fmt.Errorf("%w: item use is not enabled", ErrValidation)
	}
	return r.user.Use(ctx, p, sel, uc)
}

func (r *Replicator) container(ctx context.Context, id inventory.ID) (*inventory.Container, error) {
	c, ok := r.registry.Container(id)
	if !ok {
		slog.WarnContext(ctx, "unknown container", "container", id)
		return nil, fmt.Errorf("%w: unknown container %s", ErrValidation, id)
	}
	return c, nil
}

// authorize resolves id and checks the requester may mutate it.
func (r *Replicator) authorize(ctx context.Context, p access.ParticipantID, id inventory.ID) (*inventory.Container, error) {
	if !r.authoritative {
		slog.WarnContext(ctx, "mutation attempted without authority", "participant", p, "container", id)
		return nil, ErrAuthorityViolation
	}

	c, err := r.container(ctx, id)
	if err != nil {
		return nil, err
	}

	if !r.canAccess(ctx, c, p) {
		slog.InfoContext(ctx, "mutation denied", "participant", p, "container", id)
		return nil, fmt.Errorf("%w: participant %s on container %s", ErrAccessDenied, p, id)
	}
	return c, nil
}

// selector resolves the hotbar of id. Only the owner may drive it.
func (r *Replicator) selector(ctx context.Context, p access.ParticipantID, id inventory.ID) (*hotbar.Selector, error) {
	c, err := r.authorize(ctx, p, id)
	if err != nil {
		return nil, err
	}

	sel, ok := r.registry.Selector(id)
	if !ok {
		slog.WarnContext(ctx, "container has no hotbar", "container", id)
		return nil, fmt.Errorf("%w: container %s has no hotbar", ErrValidation, id)
	}
	if c.Owner() != p {
		slog.InfoContext(ctx, "hotbar request from non-owner", "participant", p, "container", id)
		return nil, fmt.Errorf("%w: participant %s does not own container %s", ErrAccessDenied, p, id)
	}
	return sel, nil
}

// settle publishes the result of a mutation. Tracked containers that
// changed have already broadcast through their change handlers; everything
// else touched is pushed here. A failed operation that changed nothing
// pushes nothing.
func (r *Replicator) settle(ctx context.Context, ok bool, touched []*inventory.Container, before []uint64) error {
	changed := false
	for i, c := range touched {
		if c.Version() != before[i] {
			changed = true
		}
	}

	if !ok && !changed {
		return fmt.Errorf("%w: operation rejected", ErrValidation)
	}
	if !ok {
		slog.WarnContext(ctx, "request only partially applied")
	}

	seen := map[inventory.ID]bool{}
	for i, c := range touched {
		if seen[c.ID()] {
			continue
		}
		seen[c.ID()] = true

		if r.isTracked(c.ID()) && c.Version() != before[i] {
			continue
		}
		if err := r.BroadcastSnapshot(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
