// Package matchclock drives the timed phases of a single room.
//
// A Clock runs at most one process at a time. Every tick it emits carries
// the generation of the process that produced it, and the owner checks it
// with Accept before acting, so a tick that was already in flight when the
// process was stopped or replaced is dropped instead of mutating a room
// that has moved on.
package matchclock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

type Process int

const (
	ProcessNone Process = iota
	ProcessSettle
	ProcessCountdown
	ProcessRound
)

func (p Process) String() string {
	switch p {
	case ProcessNone:
		return "none"
	case ProcessSettle:
		return "settle"
	case ProcessCountdown:
		return "countdown"
	case ProcessRound:
		return "round"
	default:
		return "unknown"
	}
}

type Tick struct {
	Process Process
	Gen     uint64
	At      time.Time
}

// Clock is owned by a single goroutine and is not safe for concurrent use.
// Ticks are delivered on the channel given to New.
type Clock struct {
	parent context.Context
	clock  clockwork.Clock
	out    chan<- Tick

	gen    uint64
	active Process
	once   bool
	cancel context.CancelFunc
	halt   func()
}

func New(parent context.Context, clock clockwork.Clock, out chan<- Tick) *Clock {
	return &Clock{parent: parent, clock: clock, out: out}
}

// Every replaces the running process with p, ticking once per interval.
func (c *Clock) Every(p Process, interval time.Duration) {
	c.Stop()
	ticker := c.clock.NewTicker(interval)
	c.start(p, ticker.Chan(), ticker.Stop, false)
}

// After replaces the running process with p, firing once after d.
func (c *Clock) After(p Process, d time.Duration) {
	c.Stop()
	timer := c.clock.NewTimer(d)
	c.start(p, timer.Chan(), func() { timer.Stop() }, true)
}

func (c *Clock) start(p Process, ch <-chan time.Time, halt func(), once bool) {
	ctx, cancel := context.WithCancel(c.parent)
	c.active = p
	c.once = once
	c.cancel = cancel
	c.halt = halt

	go forward(ctx, ch, c.out, Tick{Process: p, Gen: c.gen}, once)
}

func forward(ctx context.Context, ch <-chan time.Time, out chan<- Tick, tick Tick, once bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ch:
			tick.At = now
			select {
			case out <- tick:
			case <-ctx.Done():
				return
			}
			if once {
				return
			}
		}
	}
}

// Stop cancels the running process. Ticks it already emitted will fail Accept.
func (c *Clock) Stop() {
	if c.cancel != nil {
		c.halt()
		c.cancel()
		c.cancel = nil
		c.halt = nil
	}
	c.gen++
	c.active = ProcessNone
	c.once = false
}

func (c *Clock) Active() Process {
	return c.active
}

// Accept reports whether t came from the running process. A one-shot
// process is retired once its tick is accepted.
func (c *Clock) Accept(t Tick) bool {
	if c.active == ProcessNone || t.Gen != c.gen || t.Process != c.active {
		return false
	}
	if c.once {
		c.Stop()
	}
	return true
}
