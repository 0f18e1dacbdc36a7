package messaging

import (
	"context"
	"fmt"
	"log/slog"
)

// Subscriber is the part of NatsServer an Intake needs.
type Subscriber interface {
	WaitReady(ctx context.Context) error
	Subscribe(subject string, handler func(subject string, data []byte)) (func(), error)
}

// HandlerFunc handles one raw message and the concrete subject it arrived
// on.
type HandlerFunc func(ctx context.Context, subject string, data []byte) error

// Intake feeds every message on one subject to a handler. Messages are
// handled one at a time in the order they arrive.
type Intake struct {
	sub     Subscriber
	subject string
	handler HandlerFunc
}

func NewIntake(sub Subscriber, subject string, handler HandlerFunc) *Intake {
	return &Intake{sub: sub, subject: subject, handler: handler}
}

func (i *Intake) Start(ctx context.Context) error {
	if err := i.sub.WaitReady(ctx); err != nil {
		return fmt.Errorf("waiting for nats: %w", err)
	}

	unsub, err := i.sub.Subscribe(i.subject, func(subject string, data []byte) {
		if err := i.handler(ctx, subject, data); err != nil {
			slog.DebugContext(ctx, "request dropped", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", i.subject, err)
	}
	defer unsub()

	slog.InfoContext(ctx, "accepting messages", "subject", i.subject)
	<-ctx.Done()
	return nil
}
