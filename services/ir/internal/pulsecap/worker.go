// Package pulsecap turns edge interrupts from an IR demodulator into
// mark/space timing frames. An interrupt handler timestamps each edge and
// hands it to a worker goroutine over a buffered queue; the worker computes
// inter-edge durations, assembles them into a bounded frame buffer and
// closes the frame when the line stays idle past the frame gap. When a
// queue is full the newest element is dropped and counted, never blocking
// the interrupt path.
package pulsecap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"voiceboard-go/drivers/irproto"
	"voiceboard-go/services/ir/internal/ircore"
	"voiceboard-go/x/timex"
)

const (
	defaultFrameGap = 10 * time.Millisecond
	defaultISRQueue = 256
	defaultOutQueue = 8

	// Frames with fewer pulses than this are ambient noise blips.
	minFramePulses = 4
)

// Config parameterizes a capture worker. The zero value of every field
// except Pin selects a sane default for a standard active-low demodulator.
type Config struct {
	Pin ircore.IRQPin

	// Pull is the input bias; PullNone selects PullUp, which suits the
	// open-collector output of common receiver modules.
	Pull ircore.Pull

	// ActiveHigh inverts the line sense. Leave false for demodulators
	// that idle high and pull low during a mark.
	ActiveHigh bool

	// FrameGap is the idle time that terminates a frame. It must exceed
	// the longest in-frame space of any supported protocol (4.5 ms).
	FrameGap time.Duration

	ISRQueue int
	OutQueue int
}

// Frame is one captured transmission. Pulses alternate mark/space starting
// on a mark; the trailing idle period is not included, so frames normally
// have odd length.
type Frame struct {
	Pulses irproto.Pulses
	At     time.Time
}

type edge struct {
	at    time.Time
	level bool
}

// Worker owns the IRQ pin and the assembly state. Start and Stop may be
// called repeatedly; the pin handle is retained across runs.
type Worker struct {
	pin        ircore.IRQPin
	pull       ircore.Pull
	activeHigh bool
	frameGap   time.Duration

	// now is the edge timestamp source. Tests substitute a synthetic
	// clock so pulse widths do not depend on scheduler latency.
	now func() time.Time

	isrQ chan edge
	outQ chan Frame

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	isrDrops uint32
	outDrops uint32
	overruns uint32

	// Assembly state. Owned by the worker goroutine.
	buf     [ircore.MaxPulses]uint32
	n       int
	active  bool
	overrun bool
	startAt time.Time
	last    time.Time
	lastLvl bool
}

// NewWorker builds a stopped worker around cfg.Pin.
func NewWorker(cfg Config) *Worker {
	if cfg.Pull == ircore.PullNone {
		cfg.Pull = ircore.PullUp
	}
	if cfg.FrameGap <= 0 {
		cfg.FrameGap = defaultFrameGap
	}
	if cfg.ISRQueue <= 0 {
		cfg.ISRQueue = defaultISRQueue
	}
	if cfg.OutQueue <= 0 {
		cfg.OutQueue = defaultOutQueue
	}
	return &Worker{
		pin:        cfg.Pin,
		pull:       cfg.Pull,
		activeHigh: cfg.ActiveHigh,
		frameGap:   cfg.FrameGap,
		now:        time.Now,
		isrQ:       make(chan edge, cfg.ISRQueue),
		outQ:       make(chan Frame, cfg.OutQueue),
	}
}

// Frames is the assembled-frame output. The channel is never closed;
// consumers select against their own context.
func (w *Worker) Frames() <-chan Frame { return w.outQ }

// Start configures the pin and arms the edge interrupt. Starting a running
// worker is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.pin.ConfigureInput(w.pull); err != nil {
		return fmt.Errorf("pulsecap: configure pin %d: %w", w.pin.Number(), err)
	}
	w.resetAssembly()
	pin, isrQ, now := w.pin, w.isrQ, w.now
	handler := func() {
		ev := edge{at: now(), level: pin.Get()}
		select {
		case isrQ <- ev:
		default:
			atomic.AddUint32(&w.isrDrops, 1)
		}
	}
	if err := w.pin.SetIRQ(ircore.EdgeBoth, handler); err != nil {
		return fmt.Errorf("pulsecap: irq on pin %d: %w", w.pin.Number(), err)
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true
	go w.run(ctx)
	return nil
}

// Stop tears down in a fixed order: mark stopped, detach the interrupt so
// no new edges arrive, cancel the worker loop, join it, then drain both
// queues so a later Start begins clean. Stopping twice is harmless.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	_ = w.pin.ClearIRQ()
	cancel()
	<-done
	for {
		select {
		case <-w.isrQ:
		case <-w.outQ:
		default:
			return
		}
	}
}

func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// ISRDrops counts edges discarded because the interrupt queue was full.
func (w *Worker) ISRDrops() uint32 { return atomic.LoadUint32(&w.isrDrops) }

// OutDrops counts frames discarded because the output queue was full.
func (w *Worker) OutDrops() uint32 { return atomic.LoadUint32(&w.outDrops) }

// Overruns counts frames discarded for exceeding MaxPulses.
func (w *Worker) Overruns() uint32 { return atomic.LoadUint32(&w.overruns) }

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	gap := time.NewTimer(w.frameGap)
	gap.Stop()
	timex.DrainTimer(gap)
	defer gap.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.isrQ:
			w.handleEdge(ev)
			if w.active {
				timex.ResetTimer(gap, w.frameGap)
			}
		case <-gap.C:
			w.finish()
		}
	}
}

// handleEdge folds one edge into the frame under assembly. An edge asserts
// a new line level; the duration since the previous edge is the period that
// just ended.
func (w *Worker) handleEdge(ev edge) {
	mark := ev.level == w.activeHigh
	if !w.active {
		// A frame opens on the edge that asserts the mark.
		if mark {
			w.active = true
			w.overrun = false
			w.n = 0
			w.startAt = ev.at
			w.last = ev.at
			w.lastLvl = true
		}
		return
	}
	if mark == w.lastLvl {
		// Same level twice means an edge was lost; the mark/space
		// alternation cannot be trusted any more.
		w.resetAssembly()
		return
	}
	d := ev.at.Sub(w.last).Microseconds()
	w.last = ev.at
	w.lastLvl = mark
	if d < 1 {
		d = 1
	}
	if w.n < len(w.buf) {
		w.buf[w.n] = uint32(d)
		w.n++
	} else {
		w.overrun = true
	}
}

// finish closes the frame under assembly when the gap timer fires.
func (w *Worker) finish() {
	if !w.active {
		return
	}
	n, overrun, at := w.n, w.overrun, w.startAt
	w.resetAssembly()
	if overrun {
		atomic.AddUint32(&w.overruns, 1)
		return
	}
	if n < minFramePulses {
		return
	}
	f := Frame{Pulses: append(irproto.Pulses(nil), w.buf[:n]...), At: at}
	select {
	case w.outQ <- f:
	default:
		atomic.AddUint32(&w.outDrops, 1)
	}
}

func (w *Worker) resetAssembly() {
	w.active = false
	w.overrun = false
	w.n = 0
}
