package extensibility

import (
	"context"
	"fmt"
	"time"

	"github.com/comalice/storex/internal/primitives"
)

// ActionSource feeds actions from outside the store.
type ActionSource interface {
	Actions() <-chan primitives.Action
}

// ChannelSource is an ActionSource backed by a caller-owned channel.
type ChannelSource struct {
	ch chan primitives.Action
}

// NewChannelSource wraps ch. The channel should be buffered if producers
// must not block on a slow Pump.
func NewChannelSource(ch chan primitives.Action) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// Actions returns the receive side of the channel.
func (s *ChannelSource) Actions() <-chan primitives.Action {
	return s.ch
}

// Send queues an action for the next Pump iteration.
func (s *ChannelSource) Send(action primitives.Action) {
	s.ch <- action
}

// TimerSource emits the same action every interval.
// Useful for heartbeats and polling slices.
type TimerSource struct {
	ch      chan primitives.Action
	action  primitives.Action
	ticker  *time.Ticker
	stop    chan struct{}
	stopped bool
}

// NewTimerSource starts a TimerSource emitting action every d.
func NewTimerSource(action primitives.Action, d time.Duration) *TimerSource {
	t := &TimerSource{
		ch:     make(chan primitives.Action, 10),
		action: action,
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TimerSource) run() {
	for {
		select {
		case <-t.ticker.C:
			select {
			case t.ch <- t.action:
			default:
				// drop if full
			}
		case <-t.stop:
			t.ticker.Stop()
			close(t.ch)
			return
		}
	}
}

// Actions returns the action channel. It is closed after Stop.
func (t *TimerSource) Actions() <-chan primitives.Action {
	return t.ch
}

// Stop stops the ticker and closes the channel. Safe to call twice from the
// same goroutine.
func (t *TimerSource) Stop() {
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stop)
}

// Pump dispatches every action received from src on the calling goroutine,
// keeping store access single-threaded. It returns nil when the source
// closes, ctx.Err() when ctx is done, and the first dispatch error otherwise.
func Pump(ctx context.Context, src ActionSource, dispatch func(primitives.Action) error) error {
	actions := src.Actions()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case action, ok := <-actions:
			if !ok {
				return nil
			}
			if err := dispatch(action); err != nil {
				return fmt.Errorf("pump %s: %w", action.TypeString(), err)
			}
		}
	}
}
