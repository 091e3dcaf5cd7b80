// Package learn holds the learning-session state machine: Idle until armed,
// Armed until a capture completes, times out or the session is cancelled.
// Capture outcomes flow from the receiver callback to the saving worker
// through a small bounded queue of fixed-size events; when the queue is
// full the newest outcome is dropped and counted, never blocking the
// receiver. A caller that wants the blocking flow parks in Wait and is
// released by the worker once the capture has been persisted.
package learn

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"voiceboard-go/drivers/irproto"
	"voiceboard-go/services/ir/internal/ircore"
	"voiceboard-go/x/timex"
)

// DefaultQueue is the capture queue depth. Five outcomes cover a remote
// key held down across one save cycle.
const DefaultQueue = 5

// waitSlice bounds one blocking interval inside Wait so cancellation is
// honored promptly even mid-timeout.
const waitSlice = time.Second

// Event is one capture outcome. The raw buffer is a fixed array so the
// whole event moves through the queue by value, with no allocation on the
// producing side.
type Event struct {
	Cmd    irproto.Command
	HasCmd bool
	Raw    [ircore.MaxPulses]uint32
	RawLen uint16
}

// Pulses returns the raw timing view of the event. The slice aliases the
// event's buffer; callers copy before retaining.
func (e *Event) Pulses() irproto.Pulses {
	if e.RawLen == 0 {
		return nil
	}
	return irproto.Pulses(e.Raw[:e.RawLen])
}

// Result is a persisted capture handed back to a blocked waiter.
type Result struct {
	Event Event
	Name  string
	Err   error
}

// Controller is safe for concurrent use by the receiver callback, the
// saving worker and command handlers.
type Controller struct {
	mu      sync.Mutex
	armed   bool
	oneShot bool
	target  string

	queue  chan Event
	result chan Result
	drops  atomic.Uint32
}

func New(queue int) *Controller {
	if queue <= 0 {
		queue = DefaultQueue
	}
	return &Controller{
		queue:  make(chan Event, queue),
		result: make(chan Result, 1),
	}
}

// Arm enters learning mode. target names the next capture; empty selects
// auto-naming. oneShot sessions disarm after the first persisted capture,
// persistent sessions keep saving until Disarm. Re-arming replaces the
// previous target; any result still parked from an earlier session is
// discarded so it cannot satisfy this one.
func (c *Controller) Arm(target string, oneShot bool) {
	c.mu.Lock()
	c.armed = true
	c.target = target
	c.oneShot = oneShot
	c.mu.Unlock()
	select {
	case <-c.result:
	default:
	}
}

// Disarm returns to Idle. An outcome already queued keeps flowing to the
// worker but is discarded there, because the session it belonged to is
// gone.
func (c *Controller) Disarm() {
	c.mu.Lock()
	c.armed = false
	c.target = ""
	c.oneShot = false
	c.mu.Unlock()
}

func (c *Controller) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Target returns the pending capture name and whether the session is
// one-shot.
func (c *Controller) Target() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.oneShot
}

// Offer enqueues a capture outcome from the receiver callback. It reports
// false when the session is idle or the queue is full; the full case bumps
// the drop counter.
func (c *Controller) Offer(cmd irproto.Command, hasCmd bool, raw irproto.Pulses) bool {
	if !c.Armed() {
		return false
	}
	var ev Event
	ev.Cmd = cmd
	ev.HasCmd = hasCmd
	n := len(raw)
	if n > len(ev.Raw) {
		n = len(ev.Raw)
	}
	copy(ev.Raw[:n], raw)
	ev.RawLen = uint16(n)
	select {
	case c.queue <- ev:
		return true
	default:
		c.drops.Add(1)
		return false
	}
}

// Events is the worker's intake. The channel is never closed; the worker
// selects against its own context.
func (c *Controller) Events() <-chan Event { return c.queue }

// Drops counts outcomes discarded on a full queue.
func (c *Controller) Drops() uint32 { return c.drops.Load() }

// Finish reports a persisted capture. One-shot sessions disarm; the result
// replaces any unclaimed predecessor so a waiter always sees the newest.
func (c *Controller) Finish(ev Event, name string, err error) {
	c.mu.Lock()
	if c.oneShot {
		c.armed = false
		c.target = ""
		c.oneShot = false
	}
	c.mu.Unlock()
	select {
	case <-c.result:
	default:
	}
	select {
	case c.result <- Result{Event: ev, Name: name, Err: err}:
	default:
	}
}

// Wait blocks until a capture is persisted, the timeout elapses or ctx is
// cancelled. It waits in one-second slices so shutdown never parks longer
// than a slice. On timeout or cancellation the session is disarmed and ok
// is false.
func (c *Controller) Wait(ctx context.Context, timeout time.Duration) (Result, bool) {
	deadline := time.Now().Add(timeout)
	slice := time.NewTimer(waitSlice)
	slice.Stop()
	timex.DrainTimer(slice)
	defer slice.Stop()
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.Disarm()
			return Result{}, false
		}
		if remaining > waitSlice {
			remaining = waitSlice
		}
		timex.ResetTimer(slice, remaining)
		select {
		case r := <-c.result:
			return r, true
		case <-ctx.Done():
			c.Disarm()
			return Result{}, false
		case <-slice.C:
		}
	}
}
