package transmit

import (
	"errors"
	"sync"
	"testing"

	"voiceboard-go/drivers/irproto"
	"voiceboard-go/errcode"
)

type sentFrame struct {
	seq irproto.Pulses
	hz  uint32
}

type fakeCarrier struct {
	mu   sync.Mutex
	sent []sentFrame
	err  error

	// busyDuringSend is set by the strip fake to verify ordering.
	stripDisabled *bool
	sawDisabled   bool
}

func (c *fakeCarrier) Transmit(seq irproto.Pulses, hz uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stripDisabled != nil {
		c.sawDisabled = *c.stripDisabled
	}
	c.sent = append(c.sent, sentFrame{seq: append(irproto.Pulses(nil), seq...), hz: hz})
	return c.err
}

type fakeStrip struct {
	disabled bool
	toggles  int
}

func (s *fakeStrip) Enable()  { s.disabled = false; s.toggles++ }
func (s *fakeStrip) Disable() { s.disabled = true; s.toggles++ }

func TestSendRendersProtocolFrame(t *testing.T) {
	car := &fakeCarrier{}
	tx := New(car, nil)
	cmd := irproto.Command{Protocol: irproto.ProtocolNEC, Value: 0x20DF10EF, Bits: 32}
	if err := tx.Send(cmd); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(car.sent) != 1 {
		t.Fatalf("sent %d frames", len(car.sent))
	}
	f := car.sent[0]
	if f.hz != 38000 {
		t.Fatalf("carrier = %d", f.hz)
	}
	// NEC: header pair, 32 bit pairs, trailer mark, inter-frame gap.
	if len(f.seq) != 2+64+2 {
		t.Fatalf("frame len = %d", len(f.seq))
	}
	if f.seq[0] != 9000 || f.seq[1] != 4500 {
		t.Fatalf("header = %d,%d", f.seq[0], f.seq[1])
	}
	// The frame must round-trip through the decoder.
	got, ok := irproto.Decode(f.seq)
	if !ok || got != cmd {
		t.Fatalf("round trip = %+v ok=%v", got, ok)
	}
}

func TestSendUsesProtocolCarrier(t *testing.T) {
	car := &fakeCarrier{}
	tx := New(car, nil)
	if err := tx.Send(irproto.Command{Protocol: irproto.ProtocolSony, Value: 0x123, Bits: 12}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if car.sent[0].hz != 40000 {
		t.Fatalf("sony carrier = %d", car.sent[0].hz)
	}
	if err := tx.Send(irproto.Command{Protocol: irproto.ProtocolRC5, Value: 0x1234, Bits: 13}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if car.sent[1].hz != 36000 {
		t.Fatalf("rc5 carrier = %d", car.sent[1].hz)
	}
}

func TestSendUnidentifiedFallsBackToNECShape(t *testing.T) {
	car := &fakeCarrier{}
	tx := New(car, nil)
	cmd := irproto.Command{Protocol: irproto.ProtocolUnknown, Value: 0xBEEF, Bits: 16}
	if err := tx.Send(cmd); err != nil {
		t.Fatalf("send: %v", err)
	}
	// The fallback renders a full 32-bit NEC frame around the value.
	f := car.sent[0]
	if f.seq[0] != 9000 || f.seq[1] != 4500 {
		t.Fatalf("header = %d,%d", f.seq[0], f.seq[1])
	}
	if len(f.seq) != 2+64+2 {
		t.Fatalf("frame len = %d", len(f.seq))
	}
	got, ok := irproto.Decode(f.seq)
	if !ok || got.Protocol != irproto.ProtocolNEC || got.Value != 0xBEEF {
		t.Fatalf("round trip = %+v ok=%v", got, ok)
	}
}

func TestSendRawReplaysVerbatim(t *testing.T) {
	car := &fakeCarrier{}
	tx := New(car, nil)
	seq := irproto.Pulses{4500, 4500, 560, 560, 560}
	if err := tx.SendRaw(seq, 36000); err != nil {
		t.Fatalf("send raw: %v", err)
	}
	f := car.sent[0]
	if f.hz != 36000 {
		t.Fatalf("carrier = %d", f.hz)
	}
	if len(f.seq) != len(seq) {
		t.Fatalf("len = %d", len(f.seq))
	}
	for i := range seq {
		if f.seq[i] != seq[i] {
			t.Fatalf("seq[%d] = %d", i, f.seq[i])
		}
	}
}

func TestNotInitialized(t *testing.T) {
	tx := New(nil, nil)
	if tx.Ready() {
		t.Fatalf("ready with no carrier")
	}
	err := tx.Send(irproto.Command{Protocol: irproto.ProtocolNEC, Value: 1, Bits: 32})
	if !errors.Is(err, errcode.IRNotInitialized) {
		t.Fatalf("send: %v", err)
	}
	err = tx.SendRaw(irproto.Pulses{100}, 38000)
	if !errors.Is(err, errcode.IRNotInitialized) {
		t.Fatalf("send raw: %v", err)
	}
}

func TestRejectsBadInput(t *testing.T) {
	tx := New(&fakeCarrier{}, nil)
	if err := tx.Send(irproto.Command{Protocol: irproto.ProtocolRaw, Value: 1, Bits: 8}); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("raw protocol via Send: %v", err)
	}
	if err := tx.SendRaw(nil, 38000); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("empty raw: %v", err)
	}
	if err := tx.SendRaw(irproto.Pulses{100}, 0); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("zero carrier: %v", err)
	}
	long := make(irproto.Pulses, 201)
	for i := range long {
		long[i] = 500
	}
	if err := tx.SendRaw(long, 38000); !errors.Is(err, errcode.IRFrameTooLong) {
		t.Fatalf("oversize raw: %v", err)
	}
}

func TestStripParkedDuringTransmit(t *testing.T) {
	strip := &fakeStrip{}
	car := &fakeCarrier{stripDisabled: &strip.disabled}
	tx := New(car, strip)
	if err := tx.SendRaw(irproto.Pulses{560, 560, 560}, 38000); err != nil {
		t.Fatalf("send raw: %v", err)
	}
	if !car.sawDisabled {
		t.Fatalf("strip active while the carrier was transmitting")
	}
	if strip.disabled {
		t.Fatalf("strip not restored after transmit")
	}
	if strip.toggles != 2 {
		t.Fatalf("toggles = %d", strip.toggles)
	}
}

func TestCarrierErrorWrapped(t *testing.T) {
	strip := &fakeStrip{}
	car := &fakeCarrier{err: errors.New("pwm busy")}
	tx := New(car, strip)
	err := tx.SendRaw(irproto.Pulses{560}, 38000)
	if err == nil {
		t.Fatalf("carrier error swallowed")
	}
	// The strip is restored even on failure.
	if strip.disabled {
		t.Fatalf("strip left parked after a failed transmit")
	}
}
