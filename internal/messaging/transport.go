package messaging

import (
	"context"
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-satchel/internal/access"
)

// ParticipantSubject is where messages for one participant are delivered.
func ParticipantSubject(p access.ParticipantID) string {
	return fmt.Sprintf("participant-%s", p)
}

// Publisher is the part of NatsServer the transport needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Roster lists connected participants.
type Roster interface {
	Participants() []access.ParticipantID
}

// NatsTransport delivers framed messages to per-participant subjects.
type NatsTransport struct {
	pub    Publisher
	roster Roster
}

func NewNatsTransport(pub Publisher, roster Roster) *NatsTransport {
	return &NatsTransport{pub: pub, roster: roster}
}

func (t *NatsTransport) Send(_ context.Context, to access.ParticipantID, data []byte) error {
	if err := t.pub.Publish(ParticipantSubject(to), data); err != nil {
		return fmt.Errorf("publishing to participant %s: %w", to, err)
	}
	return nil
}

func (t *NatsTransport) Broadcast(ctx context.Context, except []access.ParticipantID, data []byte) error {
	excludeSet := make(map[access.ParticipantID]bool, len(except))
	for _, id := range except {
		excludeSet[id] = true
	}

	el := errors.NewErrorList()
	for _, p := range t.roster.Participants() {
		if excludeSet[p] {
			continue
		}
		el.Add(t.Send(ctx, p, data))
	}
	return el.Err()
}
