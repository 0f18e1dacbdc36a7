package command

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/messaging"
)

type NatsConfig struct {
	Host         string                  `json:"host"`
	Port         int                     `json:"port"`
	StartTimeout string                  `json:"start_timeout"`
	Gateway      *NatsCredential         `json:"gateway,omitempty"`
	Participants []ParticipantCredential `json:"participants"`
}

// NatsCredential authenticates the trusted frontend that reports joins,
// leaves and movement.
type NatsCredential struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// ParticipantCredential lets one participant connect and send requests as
// itself.
type ParticipantCredential struct {
	ID       uint64 `json:"id"`
	Password string `json:"password"`
}

func (n *NatsConfig) validate() error {
	el := errors.NewErrorList()

	if n.StartTimeout != "" {
		_, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing start_timeout: %w", err))
		}
	}
	if n.Port < -1 || n.Port > 65535 {
		el.Add(fmt.Errorf("nats port %d is out of range", n.Port))
	}

	if n.Gateway != nil {
		if n.Gateway.User == "" {
			el.Add(fmt.Errorf("gateway user is required"))
		}
		if n.Gateway.Password == "" {
			el.Add(fmt.Errorf("gateway password is required"))
		}
	}

	seen := map[uint64]bool{}
	for i, p := range n.Participants {
		if p.ID == 0 {
			el.Add(fmt.Errorf("participant %d: id is required", i))
		} else if seen[p.ID] {
			el.Add(fmt.Errorf("participant %d: duplicate id %d", i, p.ID))
		}
		seen[p.ID] = true
		if p.Password == "" {
			el.Add(fmt.Errorf("participant %d: password is required", i))
		}
	}

	return el.Err()
}

func (n *NatsConfig) users() []*server.User {
	var users []*server.User
	if n.Gateway != nil {
		users = append(users, messaging.GatewayUser(n.Gateway.User, n.Gateway.Password))
	}
	for _, p := range n.Participants {
		users = append(users, messaging.ParticipantUser(access.ParticipantID(p.ID), p.Password))
	}
	return users
}

func (n *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if n.StartTimeout != "" {
		d, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing start_timeout: %w", err)
		}
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if n.Host != "" {
		opts = append(opts, messaging.WithHost(n.Host))
	}
	if n.Port != 0 {
		opts = append(opts, messaging.WithPort(n.Port))
	}
	if users := n.users(); len(users) > 0 {
		opts = append(opts, messaging.WithUsers(users...))
	}

	return messaging.NewNatsServer(opts...)
}
