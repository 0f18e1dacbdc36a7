package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"

	"github.com/iammegalith/telnet"
)

type TelnetListener struct {
	port uint16
	cm   *ConnectionManager
}

func NewTelnetListener(port uint16, cm *ConnectionManager) *TelnetListener {
	return &TelnetListener{
		port: port,
		cm:   cm,
	}
}

func (l *TelnetListener) Start(ctx context.Context) error {
	sessions := newTelnetSessions(l.cm)
	svr := telnet.NewServer(fmt.Sprintf(":%d", l.port), sessions)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			svr.Stop()
			sessions.closeAll()
		case <-stopped:
		}
	}()

	slog.InfoContext(ctx, "listening for telnet", "port", l.port)

	if err := svr.ListenAndServe(); err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use (another server running?)", l.port)
		}
		return fmt.Errorf("serving telnet on port %d: %w", l.port, err)
	}
	return nil
}

// telnetSessions runs console sessions for accepted telnet connections.
// Sessions outlive the Start context until closeAll cancels them.
type telnetSessions struct {
	cm     *ConnectionManager
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newTelnetSessions(cm *ConnectionManager) *telnetSessions {
	ctx, cancel := context.WithCancel(context.Background())
	return &telnetSessions{cm: cm, ctx: ctx, cancel: cancel}
}

// HandleTelnet satisfies telnet.Handler.
func (s *telnetSessions) HandleTelnet(conn *telnet.Connection) {
	s.wg.Add(1)
	defer s.wg.Done()
	defer func() {
		if err := conn.Close(); err != nil {
			slog.ErrorContext(s.ctx, "closing telnet connection", "error", err)
		}
	}()

	s.cm.AcceptConnection(s.ctx, newCRLFReadWriter(conn))
}

func (s *telnetSessions) closeAll() {
	s.cancel()
	s.wg.Wait()
}
