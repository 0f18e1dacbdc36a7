package world

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/pixil98/go-satchel/internal/geom"
	"github.com/pixil98/go-satchel/internal/item"
	"github.com/pixil98/go-satchel/internal/use"
)

// DepletedFunc runs when a node's health reaches zero.
type DepletedFunc func(ctx context.Context, n *ResourceNode, ev use.DamageEvent)

// ResourceNode is a sphere-shaped harvestable object.
type ResourceNode struct {
	spec NodeSpec

	mu        sync.Mutex
	health    int
	depleted  DepletedFunc
	harvested int
}

func NewResourceNode(spec NodeSpec, onDepleted DepletedFunc) *ResourceNode {
	return &ResourceNode{spec: spec, health: spec.Health, depleted: onDepleted}
}

func (n *ResourceNode) Name() string                    { return n.spec.Name }
func (n *ResourceNode) Yield() *Seed                    { return n.spec.Yield }
func (n *ResourceNode) RequiredToolKind() item.ToolKind { return n.spec.RequiredTool }

func (n *ResourceNode) Health() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.health
}

// Harvested is how many times the node has been depleted.
func (n *ResourceNode) Harvested() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.harvested
}

// ApplyDamage reduces health. At zero the node is harvested and regrows to
// full health.
func (n *ResourceNode) ApplyDamage(ctx context.Context, ev use.DamageEvent) {
	n.mu.Lock()
	n.health -= ev.Amount
	depleted := n.health <= 0
	if depleted {
		n.health = n.spec.Health
		n.harvested++
	}
	health := n.health
	n.mu.Unlock()

	slog.DebugContext(ctx, "resource node damaged", "node", n.spec.Name, "amount", ev.Amount, "source", ev.Source, "health", health)

	if depleted && n.depleted != nil {
		n.depleted(ctx, n, ev)
	}
}

// intersect returns the distance along a unit-length ray to the node's
// surface, or false when the ray misses within maxRange.
func (n *ResourceNode) intersect(origin, dir geom.Vec3, maxRange float64) (float64, bool) {
	oc := origin.Sub(n.spec.Position)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - n.spec.Radius*n.spec.Radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}

	// Rays starting inside the sphere do not hit it.
	t := -b - math.Sqrt(disc)
	if t < 0 || t > maxRange {
		return 0, false
	}
	return t, true
}
