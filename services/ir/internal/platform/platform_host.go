//go:build !(rp2040 || rp2350)

package platform

import (
	"sync"

	"voiceboard-go/drivers/irproto"
	"voiceboard-go/types"
)

// Detect builds the simulated IR set for host builds. Negative pins
// disable the respective capability, mirroring board variants that omit
// the part.
func Detect(cfg types.IRConfig) (Set, error) {
	var s Set
	if cfg.RxPin >= 0 {
		s.Receiver = NewSimReceiver()
	}
	if cfg.TxPin >= 0 {
		s.Carrier = NewSimCarrier()
	}
	return s, nil
}

// SimReceiver is the host stand-in for a capture backend. Tests and the
// simulator inject timing frames or pre-decoded commands; dispatch runs on
// the caller's goroutine, which keeps scenario tests deterministic.
type SimReceiver struct {
	mu      sync.Mutex
	running bool
	cmdFn   func(irproto.Command)
	rawFn   func(irproto.Pulses)
	lastRaw irproto.Pulses
}

func NewSimReceiver() *SimReceiver { return &SimReceiver{} }

func (r *SimReceiver) Start() error {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	return nil
}

func (r *SimReceiver) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *SimReceiver) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *SimReceiver) SetCommandHandler(fn func(cmd irproto.Command)) {
	r.mu.Lock()
	r.cmdFn = fn
	r.mu.Unlock()
}

func (r *SimReceiver) SetRawHandler(fn func(seq irproto.Pulses)) {
	r.mu.Lock()
	r.rawFn = fn
	r.mu.Unlock()
}

func (r *SimReceiver) RawData() irproto.Pulses {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastRaw == nil {
		return nil
	}
	return append(irproto.Pulses(nil), r.lastRaw...)
}

// Inject feeds one captured frame through protocol detection, exactly as
// the real capture path would. Frames on a stopped receiver are dropped.
func (r *SimReceiver) Inject(seq irproto.Pulses) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
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

// InjectCommand bypasses decoding, like a vendor helper that hands over
// finished commands.
func (r *SimReceiver) InjectCommand(cmd irproto.Command) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cmdFn := r.cmdFn
	r.mu.Unlock()
	if cmdFn != nil {
		cmdFn(cmd)
	}
}

// Transmission is one frame recorded by the SimCarrier.
type Transmission struct {
	Seq       irproto.Pulses
	CarrierHz uint32
}

// SimCarrier records outgoing frames instead of driving an LED.
type SimCarrier struct {
	mu   sync.Mutex
	sent []Transmission
}

func NewSimCarrier() *SimCarrier { return &SimCarrier{} }

func (c *SimCarrier) Transmit(seq irproto.Pulses, carrierHz uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, Transmission{
		Seq:       append(irproto.Pulses(nil), seq...),
		CarrierHz: carrierHz,
	})
	return nil
}

// Sent returns the recorded transmissions, oldest first.
func (c *SimCarrier) Sent() []Transmission {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Transmission, len(c.sent))
	copy(out, c.sent)
	return out
}

// Reset clears the record between scenario steps.
func (c *SimCarrier) Reset() {
	c.mu.Lock()
	c.sent = nil
	c.mu.Unlock()
}
