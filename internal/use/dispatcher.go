// Package use resolves a participant's "use the held item" request into a
// world effect.
package use

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/geom"
	"github.com/pixil98/go-satchel/internal/hotbar"
	"github.com/pixil98/go-satchel/internal/instance"
	"github.com/pixil98/go-satchel/internal/item"
	"github.com/pixil98/go-satchel/internal/wire"
)

var (
	ErrAuthorityViolation = errors.New("not running with authority")
	ErrValidation         = errors.New("invalid use")
	ErrDataIntegrity      = errors.New("instance data missing")
	ErrEffectFault        = errors.New("use effect failed")
)

// Context is where the participant was looking when they used the item.
type Context struct {
	Origin geom.Vec3
	Aim    geom.Vec3
}

// Invocation is everything a behavior gets to work with.
type Invocation struct {
	Owner      access.ParticipantID
	Definition *item.Definition
	Stack      item.Stack
	Slot       int
	Instance   instance.Data
	Context    Context
}

// Outcome reports what a behavior did.
type Outcome struct {
	Hit bool
}

// Behavior executes one use-behavior variant.
type Behavior func(ctx context.Context, inv Invocation) (Outcome, error)

// EffectSink receives fire-and-forget notices for observers.
type EffectSink interface {
	ReplicateEffect(ctx context.Context, owner access.ParticipantID, e wire.Effect)
}

// Dispatcher validates a use request against the active hotbar slot and runs
// the behavior configured for the held item.
type Dispatcher struct {
	catalog   item.Catalog
	raycaster Raycaster
	effects   EffectSink
	behaviors map[item.UseKind]Behavior

	authoritative bool
	development   bool
	wearPerHit    int
}

func NewDispatcher(catalog item.Catalog, raycaster Raycaster, effects EffectSink, opts ...DispatcherOpt) *Dispatcher {
	d := &Dispatcher{
		catalog:       catalog,
		raycaster:     raycaster,
		effects:       effects,
		behaviors:     map[item.UseKind]Behavior{},
		authoritative: true,
		wearPerHit:    1,
	}
	d.behaviors[item.UseResourceHarvest] = d.harvest

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Use runs one request for the item in the selector's active slot.
func (d *Dispatcher) Use(ctx context.Context, owner access.ParticipantID, sel *hotbar.Selector, uc Context) error {
	if !d.authoritative {
		slog.WarnContext(ctx, "item use can only run with authority", "participant", owner)
		return ErrAuthorityViolation
	}

	c := sel.Container()
	st, slot, ok := sel.Selected()
	if !ok || st.IsEmpty() {
		slog.WarnContext(ctx, "no valid item selected to use", "participant", owner, "container", c.ID(), "slot", slot)
		return fmt.Errorf("%w: slot %d is empty", ErrValidation, slot)
	}

	def, ok := d.catalog.Definition(st.ID)
	if !ok {
		slog.WarnContext(ctx, "selected item is not in the catalog", "participant", owner, "item", st.ID)
		return fmt.Errorf("%w: unknown item %d", ErrValidation, st.ID)
	}
	if def.Category != item.CategoryTool || def.Use == nil {
		slog.WarnContext(ctx, "selected item has no use", "participant", owner, "item", def.Name)
		return fmt.Errorf("%w: %s is not usable", ErrValidation, def.Name)
	}

	behavior, ok := d.behaviors[def.Use.Kind]
	if !ok {
		slog.WarnContext(ctx, "no behavior for use kind", "item", def.Name, "kind", def.Use.Kind)
		return fmt.Errorf("%w: no behavior for %s", ErrValidation, def.Use.Kind)
	}

	var data instance.Data
	if def.Instanced() {
		if !st.HasInstance() {
			slog.ErrorContext(ctx, "instanced item has no instance id", "participant", owner, "item", def.Name, "slot", slot)
			return fmt.Errorf("%w: %s in slot %d", ErrDataIntegrity, def.Name, slot)
		}
		if data, ok = c.Instance(st.InstanceID); !ok {
			slog.ErrorContext(ctx, "no instance data for item", "participant", owner, "item", def.Name, "instance", st.InstanceID)
			return fmt.Errorf("%w: %s", ErrDataIntegrity, st.InstanceID)
		}
	}

	inv := Invocation{
		Owner:      owner,
		Definition: def,
		Stack:      st,
		Slot:       slot,
		Instance:   data,
		Context:    uc,
	}

	out, err := d.execute(ctx, behavior, inv)
	if err != nil {
		return err
	}

	if out.Hit && def.Instanced() && d.wearPerHit > 0 {
		remaining, broken, ok := c.Wear(ctx, st.InstanceID, d.wearPerHit)
		slog.DebugContext(ctx, "tool wear", "item", def.Name, "remaining", remaining, "broken", broken, "applied", ok)
	}

	if d.effects != nil {
		d.effects.ReplicateEffect(ctx, owner, wire.Effect{
			Owner:     uint64(owner),
			Container: uint64(c.ID()),
			Slot:      slot,
			Item:      st.ID,
			Origin:    uc.Origin,
			Aim:       uc.Aim,
		})
	}
	return nil
}

// execute runs a behavior, converting a panic into ErrEffectFault. In
// development mode the panic is re-raised after logging.
func (d *Dispatcher) execute(ctx context.Context, behavior Behavior, inv Invocation) (out Outcome, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		slog.ErrorContext(ctx, "panic while using item", "item", inv.Definition.Name, "participant", inv.Owner, "panic", r, "stack", string(debug.Stack()))
		if d.development {
			panic(r)
		}
		out = Outcome{}
		err = fmt.Errorf("%w: %v", ErrEffectFault, r)
	}()

	out, err = behavior(ctx, inv)
	if err != nil {
		slog.ErrorContext(ctx, "error using item", "item", inv.Definition.Name, "participant", inv.Owner, "error", err)
		return Outcome{}, fmt.Errorf("%w: %w", ErrEffectFault, err)
	}
	return out, nil
}
