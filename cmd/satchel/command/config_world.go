package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/inventory"
)

const (
	defaultBagSlots   = 27
	defaultHotbarSize = 9
)

// BagConfig shapes every participant's own inventory.
type BagConfig struct {
	Slots       int `json:"slots"`
	HotbarSlots int `json:"hotbar_slots"`
}

func (c *BagConfig) validate() error {
	el := errors.NewErrorList()

	if c.Slots < 0 {
		el.Add(fmt.Errorf("bag slots must not be negative"))
	}
	if c.HotbarSlots < 0 {
		el.Add(fmt.Errorf("bag hotbar_slots must not be negative"))
	}

	return el.Err()
}

func (c *BagConfig) inventoryConfig() inventory.Config {
	cfg := inventory.Config{
		Slots:       c.Slots,
		HotbarSlots: c.HotbarSlots,
		Policy:      access.OwnerOnly,
	}
	if cfg.Slots == 0 {
		cfg.Slots = defaultBagSlots
	}
	if cfg.HotbarSlots == 0 {
		cfg.HotbarSlots = defaultHotbarSize
	}
	return cfg
}

// UseConfig tunes item use.
type UseConfig struct {
	WearPerHit int `json:"wear_per_hit"`
}

func (c *UseConfig) validate() error {
	if c.WearPerHit < 0 {
		return fmt.Errorf("wear_per_hit must not be negative")
	}
	return nil
}
