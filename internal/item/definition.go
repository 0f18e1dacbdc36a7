package item

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-satchel/internal/storage"
)

// Category groups item kinds by how the core treats them.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryTool
	CategoryConsumable
	CategoryMaterial
	CategoryMisc
)

var categoryNames = map[Category]string{
	CategoryTool:       "tool",
	CategoryConsumable: "consumable",
	CategoryMaterial:   "material",
	CategoryMisc:       "misc",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return "unknown"
}

func (c *Category) UnmarshalText(text []byte) error {
	for k, v := range categoryNames {
		if strings.EqualFold(v, string(text)) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown item category: %s", text)
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ToolKind is matched against the kind a resource node requires.
type ToolKind string

const ToolKindNone ToolKind = ""

// UseKind tags the variant of a use behavior.
type UseKind string

const (
	UseResourceHarvest UseKind = "resource_harvest"
)

// UseBehavior is the configured effect of using an item. Kind selects the
// variant; the remaining fields belong to that variant.
type UseBehavior struct {
	Kind UseKind `json:"kind"`

	// ToolKind is the kind of resource-harvest tool this behaves as.
	ToolKind ToolKind `json:"tool_kind,omitempty"`
}

func (u *UseBehavior) Validate() error {
	switch u.Kind {
	case UseResourceHarvest:
		if u.ToolKind == ToolKindNone {
			return fmt.Errorf("resource_harvest use requires tool_kind")
		}
		return nil
	case "":
		return fmt.Errorf("use kind is required")
	default:
		return fmt.Errorf("unknown use kind %q", u.Kind)
	}
}

// Definition is the static, catalog-owned description of an item kind.
type Definition struct {
	ID        ID       `json:"item_id"`
	Name      string   `json:"name"`
	StackSize uint16   `json:"stack_size"`
	Category  Category `json:"category"`

	// Tool fields.
	Range      float64      `json:"range,omitempty"`
	Damage     int          `json:"damage,omitempty"`
	Durability int          `json:"durability,omitempty"`
	Use        *UseBehavior `json:"use,omitempty"`

	storage.Extras `json:"ext,omitempty"`
}

// Instanced reports whether each unit of this kind carries its own
// instance data.
func (d *Definition) Instanced() bool {
	return d.Category == CategoryTool
}

// Validate satisfies storage.ValidatingSpec
func (d *Definition) Validate() error {
	el := errors.NewErrorList()

	if !d.ID.Valid() {
		el.Add(fmt.Errorf("item_id must be non-zero"))
	}
	if d.Name == "" {
		el.Add(fmt.Errorf("item name is required"))
	}
	if d.StackSize == 0 {
		el.Add(fmt.Errorf("stack_size must be at least 1"))
	}
	if d.Category == CategoryUnknown {
		el.Add(fmt.Errorf("item category is required"))
	}

	if d.Category == CategoryTool {
		if d.StackSize != 1 {
			el.Add(fmt.Errorf("tools must have stack_size 1"))
		}
		if d.Durability <= 0 {
			el.Add(fmt.Errorf("tools must have positive durability"))
		}
		if d.Range < 0 {
			el.Add(fmt.Errorf("range must not be negative"))
		}
	}

	if d.Use != nil {
		el.Add(d.Use.Validate())
	}

	return el.Err()
}

// Visual is the optional presentation hint stored under the "visual" extra.
type Visual struct {
	Prefab string `json:"prefab"`
	Socket string `json:"socket,omitempty"`
}

// Visual returns the presentation hint, if the definition carries one.
func (d *Definition) Visual() (Visual, bool) {
	var v Visual
	found, err := d.Extras.Get("visual", &v)
	if err != nil || !found {
		return Visual{}, false
	}
	return v, true
}
