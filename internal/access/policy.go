// Package access decides which participants may observe or mutate a
// container.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pixil98/go-satchel/internal/geom"
)

// ParticipantID identifies a connected remote participant.
type ParticipantID uint64

// Server is the participant id of the authoritative process itself.
const Server ParticipantID = 0

func (p ParticipantID) String() string {
	return strconv.FormatUint(uint64(p), 10)
}

// Policy is configured per container, not per request.
type Policy int

const (
	OwnerOnly Policy = iota
	Everyone
	OwnerOnlyProximity
	EveryoneProximity
)

var policyNames = map[Policy]string{
	OwnerOnly:          "owner_only",
	Everyone:           "everyone",
	OwnerOnlyProximity: "owner_only_proximity",
	EveryoneProximity:  "everyone_proximity",
}

func (p Policy) String() string {
	if n, ok := policyNames[p]; ok {
		return n
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

func (p *Policy) UnmarshalText(text []byte) error {
	for k, v := range policyNames {
		if v == string(text) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown access policy: %s", text)
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Proximity reports whether the policy depends on distance.
func (p Policy) Proximity() bool {
	return p == OwnerOnlyProximity || p == EveryoneProximity
}

// Request carries everything CanAccess needs to decide.
type Request struct {
	Owner     ParticipantID
	Requester ParticipantID
	Policy    Policy
	// OwnerPos is the position of the container (for player inventories,
	// the owner's position).
	OwnerPos     geom.Vec3
	RequesterPos geom.Vec3
	Radius       float64
}

// CanAccess evaluates the policy table. Unknown policies deny.
func CanAccess(ctx context.Context, r Request) bool {
	switch r.Policy {
	case OwnerOnly:
		return r.Owner == r.Requester
	case Everyone:
		return true
	case OwnerOnlyProximity:
		return r.Owner == r.Requester && geom.Distance(r.OwnerPos, r.RequesterPos) <= r.Radius
	case EveryoneProximity:
		return geom.Distance(r.OwnerPos, r.RequesterPos) <= r.Radius
	default:
		slog.WarnContext(ctx, "unknown access policy, denying", "policy", r.Policy.String())
		return false
	}
}
