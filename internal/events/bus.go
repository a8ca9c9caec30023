// Package events surfaces session and directory activity to the application
// as a closed set of typed events on a publish/subscribe bus.
package events

import (
	"sync"

	"github.com/danmuck/meshctl/internal/protocol"
)

// Kind discriminates the event set.
type Kind int

const (
	KindConnected Kind = iota
	KindDisconnected
	KindConfigDone
	KindNodeListChanged
	KindDataPacket
	KindUserPacket
	KindPositionPacket
	KindDiagnostic
)

func (k Kind) String() string {
	switch k {
	case KindConnected:
		return "connected"
	case KindDisconnected:
		return "disconnected"
	case KindConfigDone:
		return "config_done"
	case KindNodeListChanged:
		return "node_list_changed"
	case KindDataPacket:
		return "data_packet"
	case KindUserPacket:
		return "user_packet"
	case KindPositionPacket:
		return "position_packet"
	case KindDiagnostic:
		return "diagnostic"
	default:
		return "unknown"
	}
}

// Event is one bus message. Implementations form the closed event set.
type Event interface {
	Kind() Kind
}

type Connected struct{}

func (Connected) Kind() Kind { return KindConnected }

type Disconnected struct{}

func (Disconnected) Kind() Kind { return KindDisconnected }

type ConfigDone struct {
	NodeNum uint32
}

func (ConfigDone) Kind() Kind { return KindConfigDone }

// NodeListChanged reports one directory mutation by node number.
type NodeListChanged struct {
	Num uint32
}

func (NodeListChanged) Kind() Kind { return KindNodeListChanged }

type DataPacket struct {
	Packet *protocol.MeshPacket
}

func (DataPacket) Kind() Kind { return KindDataPacket }

type UserPacket struct {
	From uint32
	User protocol.User
}

func (UserPacket) Kind() Kind { return KindUserPacket }

type PositionPacket struct {
	From     uint32
	Position protocol.Position
}

func (PositionPacket) Kind() Kind { return KindPositionPacket }

// Diagnostic reports a non-fatal anomaly (decode failures, unrecognized
// envelopes, exhausted reconfigure attempts).
type Diagnostic struct {
	Message string
	Err     error
}

func (Diagnostic) Kind() Kind { return KindDiagnostic }

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// whose buffer is full misses the event, so sizing the buffer is the
// subscriber's flow-control decision.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

// NewBus creates a bus whose subscriber channels buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The returned cancel function closes
// the channel and must be called exactly once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber with buffer room.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
