package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-satchel/internal/item"
	"github.com/pixil98/go-satchel/internal/storage"
	"github.com/pixil98/go-satchel/internal/world"
)

type StorageConfig struct {
	Items  AssetConfig[*item.Definition] `json:"items"`
	Chests AssetConfig[*world.ChestSpec] `json:"chests"`
	Nodes  AssetConfig[*world.NodeSpec]  `json:"nodes"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Items.Validate("items"))
	if c.Chests.Path != "" {
		el.Add(c.Chests.Validate("chests"))
	}
	if c.Nodes.Path != "" {
		el.Add(c.Nodes.Validate("nodes"))
	}
	return el.Err()
}

// BuildCatalog loads the item definitions.
func (c *StorageConfig) BuildCatalog() (*item.StoreCatalog, error) {
	items, err := c.Items.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating item store: %w", err)
	}
	return item.NewStoreCatalog(items)
}

// BuildPlacements loads chests and resource nodes. Either may be omitted.
func (c *StorageConfig) BuildPlacements() (storage.Storer[*world.ChestSpec], storage.Storer[*world.NodeSpec], error) {
	chests, err := c.Chests.BuildOptionalStore()
	if err != nil {
		return nil, nil, fmt.Errorf("creating chest store: %w", err)
	}
	nodes, err := c.Nodes.BuildOptionalStore()
	if err != nil {
		return nil, nil, fmt.Errorf("creating node store: %w", err)
	}
	return chests, nodes, nil
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}

// BuildOptionalStore returns an empty store when no path is configured.
func (c *AssetConfig[T]) BuildOptionalStore() (*storage.FileStore[T], error) {
	if c.Path == "" {
		return storage.NewMemoryStore[T](nil)
	}
	return c.BuildFileStore()
}
