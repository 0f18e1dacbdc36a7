package use

import (
	"context"
	"log/slog"

	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/geom"
	"github.com/pixil98/go-satchel/internal/item"
)

// Hit is the nearest object a ray struck.
type Hit struct {
	Point    geom.Vec3
	Distance float64
	Object   any
}

// Raycaster answers ray queries against the world.
type Raycaster interface {
	Raycast(ctx context.Context, origin, direction geom.Vec3, maxRange float64) (Hit, bool)
}

// DamageEvent is applied to a damageable target.
type DamageEvent struct {
	Amount int
	Source access.ParticipantID
	Tool   item.ID
	Point  geom.Vec3
}

// Damageable is implemented by objects harvest tools can strike.
type Damageable interface {
	RequiredToolKind() item.ToolKind
	ApplyDamage(ctx context.Context, ev DamageEvent)
}

// harvest casts along the aim up to the tool's range and damages a
// resource that accepts this kind of tool.
func (d *Dispatcher) harvest(ctx context.Context, inv Invocation) (Outcome, error) {
	def := inv.Definition
	slog.DebugContext(ctx, "using tool", "item", def.Name, "participant", inv.Owner)

	if d.raycaster == nil {
		return Outcome{}, nil
	}

	hit, ok := d.raycaster.Raycast(ctx, inv.Context.Origin, inv.Context.Aim.Normalize(), def.Range)
	if !ok {
		return Outcome{}, nil
	}

	target, ok := hit.Object.(Damageable)
	if !ok {
		return Outcome{}, nil
	}

	if target.RequiredToolKind() != def.Use.ToolKind {
		slog.DebugContext(ctx, "tool kind not suitable for target", "item", def.Name, "tool_kind", def.Use.ToolKind, "required", target.RequiredToolKind())
		return Outcome{}, nil
	}

	target.ApplyDamage(ctx, DamageEvent{
		Amount: def.Damage,
		Source: inv.Owner,
		Tool:   def.ID,
		Point:  hit.Point,
	})
	return Outcome{Hit: true}, nil
}
