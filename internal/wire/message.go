package wire

import (
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-satchel/internal/geom"
	"github.com/pixil98/go-satchel/internal/item"
)

// Op names a participant request.
type Op string

const (
	OpPull         Op = "pull"
	OpSwap         Op = "swap"
	OpSwapTo       Op = "swap_to"
	OpMoveQuantity Op = "move_quantity"
	OpSelect       Op = "select"
	OpScroll       Op = "scroll"
	OpUse          Op = "use"
)

// Request is a participant's intent. Which fields are meaningful depends on
// Op; Validate checks the ones each op needs. The sender is never part of
// the body; it comes from the subject the request was published on.
type Request struct {
	Op        Op     `json:"op"`
	Container uint64 `json:"container"`

	From   int    `json:"from,omitempty"`
	To     *int   `json:"to,omitempty"`
	Target uint64 `json:"target,omitempty"`

	Quantity  uint16 `json:"quantity,omitempty"`
	Index     int    `json:"index,omitempty"`
	Direction int    `json:"direction,omitempty"`

	Origin *geom.Vec3 `json:"origin,omitempty"`
	Aim    *geom.Vec3 `json:"aim,omitempty"`
}

// ParseRequest decodes and validates a JSON request.
func ParseRequest(data []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return Request{}, fmt.Errorf("%w: request: %w", ErrMalformed, err)
	}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}

func (r *Request) Validate() error {
	el := errors.NewErrorList()

	if r.Container == 0 {
		el.Add(fmt.Errorf("container is required"))
	}

	switch r.Op {
	case OpPull, OpSelect, OpScroll:
	case OpSwap:
		if r.To == nil {
			el.Add(fmt.Errorf("swap requires to"))
		}
	case OpSwapTo:
		if r.Target == 0 {
			el.Add(fmt.Errorf("swap_to requires target"))
		}
	case OpMoveQuantity:
		if r.Target == 0 {
			el.Add(fmt.Errorf("move_quantity requires target"))
		}
		if r.Quantity == 0 {
			el.Add(fmt.Errorf("move_quantity requires quantity"))
		}
	case OpUse:
		if r.Origin == nil || r.Aim == nil {
			el.Add(fmt.Errorf("use requires origin and aim"))
		}
	case "":
		el.Add(fmt.Errorf("op is required"))
	default:
		el.Add(fmt.Errorf("unknown op %q", r.Op))
	}

	return el.Err()
}

// Effect tells observers that a participant used an item so they can play
// the matching visual.
type Effect struct {
	Owner     uint64    `json:"owner"`
	Container uint64    `json:"container"`
	Slot      int       `json:"slot"`
	Item      item.ID   `json:"item_id"`
	Origin    geom.Vec3 `json:"origin"`
	Aim       geom.Vec3 `json:"aim"`
}

// Selection announces the active hotbar slot of a participant and what it
// holds, so observers can show the held item.
type Selection struct {
	Owner     uint64  `json:"owner"`
	Container uint64  `json:"container"`
	Index     int     `json:"index"`
	Item      item.ID `json:"item_id"`
	Prefab    string  `json:"prefab,omitempty"`
	Socket    string  `json:"socket,omitempty"`
}

// SessionOp names a participant lifecycle message.
type SessionOp string

const (
	SessionJoin  SessionOp = "join"
	SessionLeave SessionOp = "leave"
	SessionMove  SessionOp = "move"
)

// Session announces a participant connecting, leaving or moving.
type Session struct {
	Op          SessionOp `json:"op"`
	Participant uint64    `json:"participant"`
	Name        string    `json:"name,omitempty"`
	Position    geom.Vec3 `json:"position"`
}

// ParseSession decodes and validates a JSON session message.
func ParseSession(data []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("%w: session: %w", ErrMalformed, err)
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (s *Session) Validate() error {
	el := errors.NewErrorList()

	if s.Participant == 0 {
		el.Add(fmt.Errorf("participant is required"))
	}

	switch s.Op {
	case SessionJoin:
		if s.Name == "" {
			el.Add(fmt.Errorf("join requires name"))
		}
	case SessionLeave, SessionMove:
	case "":
		el.Add(fmt.Errorf("op is required"))
	default:
		el.Add(fmt.Errorf("unknown session op %q", s.Op))
	}

	return el.Err()
}
