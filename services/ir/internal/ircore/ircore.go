// Package ircore defines the contracts between the IR service and its
// platform backends: GPIO pins with edge interrupts, capture receivers and
// the transmit carrier. Implementations live in the platform package; the
// service and its workers depend only on these interfaces.
package ircore

import (
	"voiceboard-go/drivers/irproto"
)

// MaxPulses bounds one captured frame. Longer transmissions are truncated
// by the capture layer and rejected for storage.
const MaxPulses = 200

// Pull selects the input bias of a pin.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// Pin is the input subset of a GPIO line.
type Pin interface {
	ConfigureInput(pull Pull) error
	Get() bool
	Number() int
}

// IRQPin extends Pin with edge interrupts. Handlers run in interrupt-like
// context: they must not block or allocate.
type IRQPin interface {
	Pin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// Receiver is the capture capability. Two kinds exist: a pulse receiver
// that decodes edge timings in software, and vendor helpers that deliver
// pre-decoded commands. Handlers are invoked from the receiver's worker
// context; implementations copy handlers out under their own lock before
// calling.
type Receiver interface {
	// Start powers the peripheral and begins delivering events. Starting a
	// running receiver is a no-op.
	Start() error
	// Stop idles the peripheral. The hardware handle is retained so a later
	// Start can reuse it. Stopping twice is harmless.
	Stop()
	Running() bool

	// SetCommandHandler installs the decoded-command callback; nil clears.
	SetCommandHandler(fn func(cmd irproto.Command))
	// SetRawHandler installs the raw-fallback callback; nil clears.
	SetRawHandler(fn func(seq irproto.Pulses))

	// RawData returns a copy of the most recent captured timing sequence,
	// decoded or not. Nil before the first capture.
	RawData() irproto.Pulses
}

// Carrier drives the transmit LED: each mark modulates at carrierHz, each
// space is idle. Transmit blocks until the sequence has been sent.
type Carrier interface {
	Transmit(seq irproto.Pulses, carrierHz uint32) error
}
