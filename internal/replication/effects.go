package replication

import (
	"context"
	"log/slog"

	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/wire"
)

// EffectPublisher replicates use effects to everyone but the participant
// that caused them.
type EffectPublisher struct {
	transport Transport
}

func NewEffectPublisher(t Transport) *EffectPublisher {
	return &EffectPublisher{transport: t}
}

func (p *EffectPublisher) ReplicateEffect(ctx context.Context, owner access.ParticipantID, e wire.Effect) {
	data, err := wire.EncodeJSON(wire.KindEffect, e)
	if err != nil {
		slog.ErrorContext(ctx, "encoding effect", "participant", owner, "error", err)
		return
	}
	if err := p.transport.Broadcast(ctx, []access.ParticipantID{owner}, data); err != nil {
		slog.ErrorContext(ctx, "replicating effect", "participant", owner, "error", err)
	}
}
