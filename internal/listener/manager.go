package listener

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
)

// SessionRunner serves one interactive connection until it ends.
type SessionRunner interface {
	RunSession(ctx context.Context, rw io.ReadWriter) error
}

type ConnectionManager struct {
	runner SessionRunner
	active atomic.Int64
}

func NewConnectionManager(runner SessionRunner) *ConnectionManager {
	return &ConnectionManager{
		runner: runner,
	}
}

// Active is the number of sessions currently being served.
func (m *ConnectionManager) Active() int64 {
	return m.active.Load()
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	n := m.active.Add(1)
	defer m.active.Add(-1)

	slog.InfoContext(ctx, "console session started", "active", n)
	if err := m.runner.RunSession(ctx, conn); err != nil {
		slog.WarnContext(ctx, "console session", "error", err)
	}
	slog.InfoContext(ctx, "console session ended")
}
