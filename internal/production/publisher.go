package production

import (
	"sync/atomic"
	"time"

	"github.com/comalice/storex/internal/core"
	"github.com/comalice/storex/internal/primitives"
)

// StateChange is one published state tree.
type StateChange struct {
	StoreID   string           `json:"storeID"`
	Version   string           `json:"version"`
	State     primitives.State `json:"state"`
	Timestamp time.Time        `json:"timestamp"`
}

// StateSource is the part of a store a publisher reads from.
type StateSource interface {
	ID() string
	GetState() primitives.State
	Subscribe(listener core.Listener) (func(), error)
}

// ChannelPublisher forwards every state change to a Go channel.
// Non-blocking publish with drop on backpressure.
type ChannelPublisher struct {
	ch      chan StateChange
	dropped atomic.Int64
}

// NewChannelPublisher creates a ChannelPublisher with the given buffer size.
func NewChannelPublisher(buffer int) *ChannelPublisher {
	return &ChannelPublisher{ch: make(chan StateChange, buffer)}
}

// Changes returns the receive side of the channel.
func (p *ChannelPublisher) Changes() <-chan StateChange {
	return p.ch
}

// Dropped returns how many changes were dropped because the channel was full.
func (p *ChannelPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// Attach subscribes the publisher to src and returns the unsubscribe func.
func (p *ChannelPublisher) Attach(src StateSource) (func(), error) {
	return src.Subscribe(func() {
		state := src.GetState()
		p.Publish(StateChange{
			StoreID:   src.ID(),
			Version:   primitives.ComputeVersion(state),
			State:     state,
			Timestamp: time.Now().UTC(),
		})
	})
}

// Publish sends change without blocking.
func (p *ChannelPublisher) Publish(change StateChange) {
	select {
	case p.ch <- change:
	default:
		p.dropped.Add(1)
	}
}

// Close closes the channel. Detach the publisher first.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
