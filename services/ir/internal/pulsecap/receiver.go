package pulsecap

import (
	"context"
	"sync"

	"voiceboard-go/drivers/irproto"
)

// Receiver consumes frames from a Worker, runs protocol detection and fans
// out to the installed handlers. It implements ircore.Receiver.
type Receiver struct {
	w *Worker

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	cmdFn   func(irproto.Command)
	rawFn   func(irproto.Pulses)
	lastRaw irproto.Pulses
}

// NewReceiver builds a stopped receiver over a capture worker for cfg.Pin.
func NewReceiver(cfg Config) *Receiver {
	return &Receiver{w: NewWorker(cfg)}
}

func (r *Receiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.w.Start(ctx); err != nil {
		cancel()
		return err
	}
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true
	go r.consume(ctx, r.done)
	return nil
}

func (r *Receiver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	// The worker detaches the interrupt and drains its queues; only then
	// is the consumer released.
	r.w.Stop()
	cancel()
	<-done
}

func (r *Receiver) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Receiver) SetCommandHandler(fn func(cmd irproto.Command)) {
	r.mu.Lock()
	r.cmdFn = fn
	r.mu.Unlock()
}

func (r *Receiver) SetRawHandler(fn func(seq irproto.Pulses)) {
	r.mu.Lock()
	r.rawFn = fn
	r.mu.Unlock()
}

// RawData returns a copy of the most recent frame, decoded or not.
func (r *Receiver) RawData() irproto.Pulses {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastRaw == nil {
		return nil
	}
	return append(irproto.Pulses(nil), r.lastRaw...)
}

// Drops reports the worker's discard counters: edges lost in the interrupt
// queue, frames lost in the output queue and frames over the size bound.
func (r *Receiver) Drops() (isr, out, overruns uint32) {
	return r.w.ISRDrops(), r.w.OutDrops(), r.w.Overruns()
}

func (r *Receiver) consume(ctx context.Context, done chan struct{}) {
	defer close(done)
	frames := r.w.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-frames:
			r.dispatch(f.Pulses)
		}
	}
}

func (r *Receiver) dispatch(seq irproto.Pulses) {
	r.mu.Lock()
	r.lastRaw = append(r.lastRaw[:0], seq...)
	cmdFn, rawFn := r.cmdFn, r.rawFn
	r.mu.Unlock()

	if cmd, ok := irproto.Decode(seq); ok {
		if cmdFn != nil {
			cmdFn(cmd)
		}
		return
	}
	if rawFn != nil {
		rawFn(seq)
	}
}
