// Package wire defines the byte-level shapes exchanged with participants:
// full container snapshots pushed by the server, JSON requests sent by
// participants, and fire-and-forget effect notices.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/pixil98/go-satchel/internal/item"
)

const (
	snapshotHeaderSize = 8 + 8 + 2
	slotSize           = 2 + 2 + 16
)

var ErrMalformed = errors.New("malformed message")

// Snapshot is the full slot sequence of one container at Version.
type Snapshot struct {
	Container uint64
	Version   uint64
	Slots     []item.Stack
}

// MarshalBinary encodes the snapshot big endian: container id, version,
// slot count, then item id, quantity and instance id per slot.
func (s Snapshot) MarshalBinary() ([]byte, error) {
	if len(s.Slots) > math.MaxUint16 {
		return nil, fmt.Errorf("snapshot has %d slots, at most %d allowed", len(s.Slots), math.MaxUint16)
	}

	buf := make([]byte, snapshotHeaderSize+len(s.Slots)*slotSize)
	binary.BigEndian.PutUint64(buf[0:8], s.Container)
	binary.BigEndian.PutUint64(buf[8:16], s.Version)
	binary.BigEndian.PutUint16(buf[16:18], uint16(len(s.Slots)))

	off := snapshotHeaderSize
	for _, st := range s.Slots {
		binary.BigEndian.PutUint16(buf[off:], uint16(st.ID))
		binary.BigEndian.PutUint16(buf[off+2:], st.Quantity)
		copy(buf[off+4:off+slotSize], st.InstanceID[:])
		off += slotSize
	}
	return buf, nil
}

func (s *Snapshot) UnmarshalBinary(data []byte) error {
	if len(data) < snapshotHeaderSize {
		return fmt.Errorf("%w: snapshot header needs %d bytes, got %d", ErrMalformed, snapshotHeaderSize, len(data))
	}

	container := binary.BigEndian.Uint64(data[0:8])
	version := binary.BigEndian.Uint64(data[8:16])
	count := int(binary.BigEndian.Uint16(data[16:18]))
	if want := snapshotHeaderSize + count*slotSize; len(data) != want {
		return fmt.Errorf("%w: snapshot of %d slots needs %d bytes, got %d", ErrMalformed, count, want, len(data))
	}

	slots := make([]item.Stack, count)
	off := snapshotHeaderSize
	for i := range slots {
		id, err := uuid.FromBytes(data[off+4 : off+slotSize])
		if err != nil {
			return fmt.Errorf("%w: slot %d instance id: %w", ErrMalformed, i, err)
		}
		slots[i] = item.Stack{
			ID:         item.ID(binary.BigEndian.Uint16(data[off:])),
			Quantity:   binary.BigEndian.Uint16(data[off+2:]),
			InstanceID: id,
		}
		off += slotSize
	}

	s.Container = container
	s.Version = version
	s.Slots = slots
	return nil
}
