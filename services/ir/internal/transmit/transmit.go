// Package transmit renders stored commands into timing frames and drives
// them out through the board's carrier. On boards where the IR LED shares
// a PWM slice with the light strip, the strip is parked for the duration
// of the transmission and restored afterwards.
package transmit

import (
	"voiceboard-go/drivers/irproto"
	"voiceboard-go/errcode"
	"voiceboard-go/services/ir/internal/ircore"
	"voiceboard-go/types"
)

// Transmitter is safe for concurrent use; the carrier itself serializes
// overlapping sends.
type Transmitter struct {
	carrier ircore.Carrier
	strip   types.LedStrip
}

// New builds a transmitter. carrier may be nil on receive-only boards;
// sends then fail with IRNotInitialized. A nil strip gets the no-op.
func New(carrier ircore.Carrier, strip types.LedStrip) *Transmitter {
	if strip == nil {
		strip = types.NopStrip{}
	}
	return &Transmitter{carrier: carrier, strip: strip}
}

// Ready reports whether a carrier is wired up.
func (t *Transmitter) Ready() bool { return t.carrier != nil }

// Send renders cmd as a timing frame and transmits it at the protocol's
// carrier frequency. Protocols without a renderer go out in the NEC frame
// shape, which is what the record was captured against.
func (t *Transmitter) Send(cmd irproto.Command) error {
	if t.carrier == nil {
		return errcode.IRNotInitialized
	}
	if !irproto.Valid(cmd) || cmd.Protocol == irproto.ProtocolRaw {
		return errcode.InvalidParams
	}
	return t.transmit(irproto.Marshal(cmd), irproto.CarrierHz(cmd.Protocol))
}

// SendRaw replays a captured timing sequence verbatim.
func (t *Transmitter) SendRaw(seq irproto.Pulses, carrierHz uint32) error {
	if t.carrier == nil {
		return errcode.IRNotInitialized
	}
	if len(seq) == 0 || carrierHz == 0 {
		return errcode.InvalidParams
	}
	if len(seq) > ircore.MaxPulses {
		return errcode.IRFrameTooLong
	}
	return t.transmit(seq, carrierHz)
}

func (t *Transmitter) transmit(seq irproto.Pulses, carrierHz uint32) error {
	t.strip.Disable()
	err := t.carrier.Transmit(seq, carrierHz)
	t.strip.Enable()
	if err != nil {
		return &errcode.E{C: errcode.Error, Op: "transmit", Err: err}
	}
	return nil
}
