package world

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/geom"
	"github.com/pixil98/go-satchel/internal/item"
)

// Seed is an item placed into a container when it is spawned.
type Seed struct {
	Item     item.ID `json:"item_id"`
	Quantity uint16  `json:"quantity"`
	Slot     *int    `json:"slot,omitempty"`
}

func (s *Seed) Validate() error {
	el := errors.NewErrorList()
	if !s.Item.Valid() {
		el.Add(fmt.Errorf("seed item_id is required"))
	}
	if s.Quantity == 0 {
		el.Add(fmt.Errorf("seed quantity must be positive"))
	}
	if s.Slot != nil && *s.Slot < 0 {
		el.Add(fmt.Errorf("seed slot must not be negative"))
	}
	return el.Err()
}

// ChestSpec describes a world-placed container.
type ChestSpec struct {
	ContainerID uint64        `json:"container_id"`
	Name        string        `json:"name"`
	Position    geom.Vec3     `json:"position"`
	Slots       int           `json:"slots"`
	Policy      access.Policy `json:"policy"`
	Radius      float64       `json:"radius"`
	Contents    []Seed        `json:"contents,omitempty"`
}

// Validate satisfies storage.ValidatingSpec
func (c *ChestSpec) Validate() error {
	el := errors.NewErrorList()

	if c.ContainerID == 0 || c.ContainerID >= bagIDBase {
		el.Add(fmt.Errorf("container_id must be between 1 and %d", bagIDBase-1))
	}
	if c.Name == "" {
		el.Add(fmt.Errorf("chest name is required"))
	}
	if c.Slots <= 0 {
		el.Add(fmt.Errorf("slots must be positive"))
	}
	if c.Policy.Proximity() && c.Radius <= 0 {
		el.Add(fmt.Errorf("proximity policies need a positive radius"))
	}
	for i := range c.Contents {
		if err := c.Contents[i].Validate(); err != nil {
			el.Add(fmt.Errorf("contents %d: %w", i, err))
		}
	}

	return el.Err()
}

// NodeSpec describes a harvestable resource.
type NodeSpec struct {
	Name         string        `json:"name"`
	Position     geom.Vec3     `json:"position"`
	Radius       float64       `json:"radius"`
	RequiredTool item.ToolKind `json:"required_tool"`
	Health       int           `json:"health"`
	Yield        *Seed         `json:"yield,omitempty"`
}

// Validate satisfies storage.ValidatingSpec
func (n *NodeSpec) Validate() error {
	el := errors.NewErrorList()

	if n.Name == "" {
		el.Add(fmt.Errorf("node name is required"))
	}
	if n.Radius <= 0 {
		el.Add(fmt.Errorf("node radius must be positive"))
	}
	if n.RequiredTool == item.ToolKindNone {
		el.Add(fmt.Errorf("required_tool is required"))
	}
	if n.Health <= 0 {
		el.Add(fmt.Errorf("node health must be positive"))
	}
	if n.Yield != nil {
		if err := n.Yield.Validate(); err != nil {
			el.Add(fmt.Errorf("yield: %w", err))
		}
	}

	return el.Err()
}
