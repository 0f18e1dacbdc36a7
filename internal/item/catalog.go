package item

import (
	"fmt"

	"github.com/pixil98/go-satchel/internal/storage"
)

// Catalog is the read-only item definition lookup.
type Catalog interface {
	Definition(id ID) (*Definition, bool)
}

// StoreCatalog indexes definitions loaded by a storage.Storer by item id.
type StoreCatalog struct {
	byID map[ID]*Definition
}

// NewStoreCatalog builds the id index, rejecting two assets that claim the
// same item id.
func NewStoreCatalog(st storage.Storer[*Definition]) (*StoreCatalog, error) {
	c := &StoreCatalog{byID: map[ID]*Definition{}}

	for assetId, def := range st.GetAll() {
		if existing, ok := c.byID[def.ID]; ok {
			return nil, fmt.Errorf("item id %d claimed by both %q and %q", def.ID, existing.Name, assetId)
		}
		c.byID[def.ID] = def
	}

	return c, nil
}

func (c *StoreCatalog) Definition(id ID) (*Definition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// Len returns the number of known item kinds.
func (c *StoreCatalog) Len() int {
	return len(c.byID)
}

// MapCatalog is a Catalog backed by a plain map.
type MapCatalog map[ID]*Definition

func (m MapCatalog) Definition(id ID) (*Definition, bool) {
	def, ok := m[id]
	return def, ok
}
