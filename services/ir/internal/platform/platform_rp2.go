//go:build rp2040 || rp2350

package platform

import (
	"machine"
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers/irremote"

	"voiceboard-go/drivers/irproto"
	"voiceboard-go/errcode"
	"voiceboard-go/services/ir/internal/ircore"
	"voiceboard-go/services/ir/internal/pulsecap"
	"voiceboard-go/types"
	"voiceboard-go/x/timex"
)

// Detect wires the configured pins on RP2 boards. The pulse backend owns
// the pin interrupt and decodes timings in software; the vendor backend
// delegates to the hardware helper, which only speaks NEC and exposes no
// timings, so learning raw codes needs the pulse backend.
func Detect(cfg types.IRConfig) (Set, error) {
	var s Set
	if cfg.RxPin >= 0 {
		pin, ok := pinByNumber(cfg.RxPin)
		if !ok {
			return Set{}, &errcode.E{C: errcode.InvalidParams, Op: "platform.rx_pin"}
		}
		switch cfg.Backend {
		case BackendVendor:
			s.Receiver = newVendorReceiver(machine.Pin(cfg.RxPin))
		default:
			s.Receiver = pulsecap.NewReceiver(pulsecap.Config{
				Pin:      pin,
				OutQueue: cfg.QueueDepth,
			})
		}
	}
	if cfg.TxPin >= 0 {
		if _, ok := pinByNumber(cfg.TxPin); !ok {
			return Set{}, &errcode.E{C: errcode.InvalidParams, Op: "platform.tx_pin"}
		}
		s.Carrier = newPWMCarrier(machine.Pin(cfg.TxPin))
	}
	return s, nil
}

// ---- GPIO with edge interrupts ----

// pinByNumber constrains to the RP2 user GPIOs (GP0..GP28).
func pinByNumber(n int) (ircore.IRQPin, bool) {
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull ircore.Pull) error {
	var mode machine.PinMode
	switch pull {
	case ircore.PullUp:
		mode = machine.PinInputPullup
	case ircore.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) Get() bool   { return r.p.Get() }
func (r *rp2Pin) Number() int { return r.n }

func (r *rp2Pin) SetIRQ(edge ircore.Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e ircore.Edge) machine.PinChange {
	switch e {
	case ircore.EdgeRising:
		return machine.PinRising
	case ircore.EdgeFalling:
		return machine.PinFalling
	case ircore.EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}

// ---- Vendor NEC helper ----

// vendorReceiver adapts the irremote hardware helper to ircore.Receiver.
// The helper invokes its callback from interrupt context, so commands hop
// through a small queue to a dispatch goroutine before reaching service
// code; a full queue drops the newest command and counts it.
type vendorReceiver struct {
	dev irremote.ReceiverDevice

	mu      sync.Mutex
	running bool
	cancel  chan struct{}
	done    chan struct{}
	cmdFn   func(irproto.Command)

	q     chan irproto.Command
	drops uint32
}

func newVendorReceiver(pin machine.Pin) *vendorReceiver {
	return &vendorReceiver{
		dev: irremote.NewReceiver(pin),
		q:   make(chan irproto.Command, 8),
	}
}

func (v *vendorReceiver) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.running {
		return nil
	}
	v.dev.Configure()
	v.dev.SetCommandHandler(v.onData)
	v.cancel = make(chan struct{})
	v.done = make(chan struct{})
	v.running = true
	go v.dispatch(v.cancel, v.done)
	return nil
}

func (v *vendorReceiver) Stop() {
	v.mu.Lock()
	if !v.running {
		v.mu.Unlock()
		return
	}
	v.running = false
	cancel, done := v.cancel, v.done
	v.mu.Unlock()

	v.dev.SetCommandHandler(nil)
	close(cancel)
	<-done
	for {
		select {
		case <-v.q:
		default:
			return
		}
	}
}

func (v *vendorReceiver) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.running
}

func (v *vendorReceiver) SetCommandHandler(fn func(cmd irproto.Command)) {
	v.mu.Lock()
	v.cmdFn = fn
	v.mu.Unlock()
}

// SetRawHandler is accepted but never fires: the helper exposes decoded
// commands only.
func (v *vendorReceiver) SetRawHandler(fn func(seq irproto.Pulses)) {}

// RawData is always nil on this backend.
func (v *vendorReceiver) RawData() irproto.Pulses { return nil }

// Drops counts commands lost on a full hand-off queue.
func (v *vendorReceiver) Drops() uint32 { return atomic.LoadUint32(&v.drops) }

// onData runs in interrupt context: queue or drop, nothing else.
func (v *vendorReceiver) onData(d irremote.Data) {
	if d.Flags&irremote.DataFlagIsRepeat != 0 {
		return
	}
	cmd := irproto.Command{Protocol: irproto.ProtocolNEC, Value: uint64(d.Code), Bits: 32}
	select {
	case v.q <- cmd:
	default:
		atomic.AddUint32(&v.drops, 1)
	}
}

func (v *vendorReceiver) dispatch(cancel <-chan struct{}, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-cancel:
			return
		case cmd := <-v.q:
			v.mu.Lock()
			fn := v.cmdFn
			v.mu.Unlock()
			if fn != nil {
				fn(cmd)
			}
		}
	}
}

// ---- PWM carrier ----

// irPWM is the slice of the machine PWM groups the carrier needs.
type irPWM interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// pwmCarrier modulates the IR LED: each mark runs the PWM at a 33% duty
// carrier, each space holds the line low. Reconfiguration happens only
// when the carrier frequency changes between sends.
type pwmCarrier struct {
	mu         sync.Mutex
	pin        machine.Pin
	pwm        irPWM
	ch         uint8
	hz         uint32
	configured bool
}

func newPWMCarrier(pin machine.Pin) *pwmCarrier {
	return &pwmCarrier{pin: pin, pwm: pwmForPin(pin)}
}

func (c *pwmCarrier) Transmit(seq irproto.Pulses, carrierHz uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensure(carrierHz); err != nil {
		return err
	}
	markDuty := c.pwm.Top() / 3
	for i, d := range seq {
		if i%2 == 0 {
			c.pwm.Set(c.ch, markDuty)
		} else {
			c.pwm.Set(c.ch, 0)
		}
		time.Sleep(time.Duration(d) * time.Microsecond)
	}
	c.pwm.Set(c.ch, 0)
	return nil
}

func (c *pwmCarrier) ensure(hz uint32) error {
	if c.configured && c.hz == hz {
		return nil
	}
	c.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	if err := c.pwm.Configure(machine.PWMConfig{Period: timex.PeriodFromHz(hz)}); err != nil {
		return &errcode.E{C: errcode.Error, Op: "platform.pwm", Err: err}
	}
	ch, err := c.pwm.Channel(c.pin)
	if err != nil {
		return &errcode.E{C: errcode.Error, Op: "platform.pwm_channel", Err: err}
	}
	c.ch = ch
	c.hz = hz
	c.configured = true
	return nil
}

// pwmForPin maps a GPIO to its PWM slice; GP0..GP28 all land on a slice.
func pwmForPin(pin machine.Pin) irPWM {
	switch (uint8(pin) >> 1) & 0x7 {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
