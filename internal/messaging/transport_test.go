package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-testutil"
)

type fakePublisher struct {
	published map[string]int
	fail      map[string]bool
}

func (p *fakePublisher) Publish(subject string, _ []byte) error {
	if p.fail[subject] {
		return errors.New("connection closed")
	}
	p.published[subject]++
	return nil
}

type fakeRoster []access.ParticipantID

func (r fakeRoster) Participants() []access.ParticipantID { return r }

func TestNatsTransport_Broadcast(t *testing.T) {
	tests := map[string]struct {
		except []access.ParticipantID
		fail   map[string]bool
		exp    map[string]int
		expErr string
	}{
		"everyone": {
			exp: map[string]int{"participant-1": 1, "participant-2": 1, "participant-3": 1},
		},
		"except owner": {
			except: []access.ParticipantID{2},
			exp:    map[string]int{"participant-1": 1, "participant-3": 1},
		},
		"one failure does not stop the rest": {
			fail:   map[string]bool{"participant-1": true},
			exp:    map[string]int{"participant-2": 1, "participant-3": 1},
			expErr: "publishing to participant 1",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			pub := &fakePublisher{published: map[string]int{}, fail: tt.fail}
			tr := NewNatsTransport(pub, fakeRoster{1, 2, 3})

			err := tr.Broadcast(context.Background(), tt.except, []byte("x"))

			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "subjects", len(pub.published), len(tt.exp))
			for subject, n := range tt.exp {
				testutil.AssertEqual(t, subject, pub.published[subject], n)
			}
		})
	}
}

func TestNatsTransport_Send(t *testing.T) {
	pub := &fakePublisher{published: map[string]int{}}
	tr := NewNatsTransport(pub, fakeRoster{})

	if err := tr.Send(context.Background(), 42, []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "published", pub.published["participant-42"], 1)
}
