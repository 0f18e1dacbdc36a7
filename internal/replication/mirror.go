package replication

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-satchel/internal/item"
	"github.com/pixil98/go-satchel/internal/wire"
)

// Mirror is a participant's read-only copy of one container. It only ever
// changes by replacing its contents with a pushed snapshot, and never goes
// back to an older version than the one it holds.
type Mirror struct {
	container uint64

	mu       sync.RWMutex
	items    []item.Stack
	version  uint64
	received bool
	handlers []func([]item.Stack)
}

func NewMirror(container uint64) *Mirror {
	return &Mirror{container: container}
}

// Apply replaces the mirrored contents wholesale. A snapshot older than the
// applied one arrived out of order and is dropped.
func (m *Mirror) Apply(s wire.Snapshot) error {
	if s.Container != m.container {
		return fmt.Errorf("snapshot for container %d applied to mirror of %d", s.Container, m.container)
	}

	items := make([]item.Stack, len(s.Slots))
	copy(items, s.Slots)

	m.mu.Lock()
	if m.received && s.Version < m.version {
		held := m.version
		m.mu.Unlock()
		slog.Debug("dropping stale snapshot", "container", s.Container, "version", s.Version, "held", held)
		return nil
	}
	m.items = items
	m.version = s.Version
	m.received = true
	handlers := make([]func([]item.Stack), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, fn := range handlers {
		fn(m.Items())
	}
	return nil
}

// Items returns a copy of the last applied snapshot.
func (m *Mirror) Items() []item.Stack {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]item.Stack, len(m.items))
	copy(out, m.items)
	return out
}

// Version is the version of the last applied snapshot.
func (m *Mirror) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Received reports whether any snapshot has been applied.
func (m *Mirror) Received() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.received
}

// OnChange registers fn to run after each applied snapshot.
func (m *Mirror) OnChange(fn func([]item.Stack)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// Client routes messages delivered to one participant into per-container
// mirrors and observer callbacks.
type Client struct {
	mu          sync.Mutex
	mirrors     map[uint64]*Mirror
	onEffect    func(wire.Effect)
	onSelection func(wire.Selection)
}

func NewClient() *Client {
	return &Client{mirrors: map[uint64]*Mirror{}}
}

// Mirror returns the mirror of container, creating it on first use.
func (c *Client) Mirror(container uint64) *Mirror {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.mirrors[container]
	if !ok {
		m = NewMirror(container)
		c.mirrors[container] = m
	}
	return m
}

func (c *Client) OnEffect(fn func(wire.Effect)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEffect = fn
}

func (c *Client) OnSelection(fn func(wire.Selection)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSelection = fn
}

// Receive decodes one delivered message and applies it.
func (c *Client) Receive(ctx context.Context, data []byte) error {
	msg, err := wire.Decode(data)
	if err != nil {
		slog.WarnContext(ctx, "dropping undecodable message", "error", err)
		return err
	}

	switch m := msg.(type) {
	case *wire.Snapshot:
		return c.Mirror(m.Container).Apply(*m)
	case *wire.Effect:
		c.mu.Lock()
		fn := c.onEffect
		c.mu.Unlock()
		if fn != nil {
			fn(*m)
		}
	case *wire.Selection:
		c.mu.Lock()
		fn := c.onSelection
		c.mu.Unlock()
		if fn != nil {
			fn(*m)
		}
	}
	return nil
}
