package world

import "errors"

var (
	ErrParticipantExists   = errors.New("participant already joined")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrContainerExists     = errors.New("container id already in use")
)
