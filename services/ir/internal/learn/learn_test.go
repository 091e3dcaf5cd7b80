package learn

import (
	"context"
	"errors"
	"testing"
	"time"

	"voiceboard-go/drivers/irproto"
)

func necCmd(v uint64) irproto.Command {
	return irproto.Command{Protocol: irproto.ProtocolNEC, Value: v, Bits: 32}
}

func TestOfferRequiresArmed(t *testing.T) {
	c := New(0)
	if c.Offer(necCmd(1), true, nil) {
		t.Fatalf("idle controller accepted an outcome")
	}
	c.Arm("", false)
	if !c.Offer(necCmd(1), true, nil) {
		t.Fatalf("armed controller rejected an outcome")
	}
	c.Disarm()
	if c.Offer(necCmd(1), true, nil) {
		t.Fatalf("disarmed controller accepted an outcome")
	}
}

func TestQueueBound(t *testing.T) {
	c := New(2)
	c.Arm("", false)
	if !c.Offer(necCmd(1), true, nil) || !c.Offer(necCmd(2), true, nil) {
		t.Fatalf("queue rejected within capacity")
	}
	if c.Offer(necCmd(3), true, nil) {
		t.Fatalf("queue accepted past capacity")
	}
	if got := c.Drops(); got != 1 {
		t.Fatalf("drops = %d", got)
	}
	// Draining one slot makes room again.
	<-c.Events()
	if !c.Offer(necCmd(4), true, nil) {
		t.Fatalf("queue rejected after drain")
	}
}

func TestEventCarriesRawCopy(t *testing.T) {
	c := New(0)
	c.Arm("", false)
	seq := irproto.Pulses{9000, 4500, 560}
	if !c.Offer(irproto.Command{}, false, seq) {
		t.Fatalf("offer failed")
	}
	seq[0] = 1 // mutate the source after the hand-off
	ev := <-c.Events()
	got := ev.Pulses()
	if len(got) != 3 || got[0] != 9000 || got[2] != 560 {
		t.Fatalf("pulses = %v", got)
	}
}

func TestOversizeRawTruncated(t *testing.T) {
	c := New(0)
	c.Arm("", false)
	long := make(irproto.Pulses, 300)
	for i := range long {
		long[i] = uint32(i + 1)
	}
	if !c.Offer(irproto.Command{}, false, long) {
		t.Fatalf("offer failed")
	}
	ev := <-c.Events()
	if int(ev.RawLen) != len(ev.Raw) {
		t.Fatalf("rawlen = %d", ev.RawLen)
	}
}

func TestWaitTimesOutAndDisarms(t *testing.T) {
	c := New(0)
	c.Arm("btn", true)
	start := time.Now()
	_, ok := c.Wait(context.Background(), 50*time.Millisecond)
	if ok {
		t.Fatalf("wait returned a result with no capture")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("wait overslept a short timeout")
	}
	if c.Armed() {
		t.Fatalf("session still armed after timeout")
	}
}

func TestWaitCancelDisarms(t *testing.T) {
	c := New(0)
	c.Arm("", true)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, ok := c.Wait(ctx, 30*time.Second); ok {
		t.Fatalf("cancelled wait returned a result")
	}
	if c.Armed() {
		t.Fatalf("session still armed after cancel")
	}
}

func TestWaitReceivesFinishedCapture(t *testing.T) {
	c := New(0)
	c.Arm("tv_pwr", true)

	// Stand-in for the saving worker.
	go func() {
		ev := <-c.Events()
		c.Finish(ev, "tv_pwr", nil)
	}()
	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Offer(necCmd(0x20DF10EF), true, nil)
	}()

	r, ok := c.Wait(context.Background(), 5*time.Second)
	if !ok {
		t.Fatalf("wait timed out")
	}
	if r.Name != "tv_pwr" || r.Err != nil {
		t.Fatalf("result = %+v", r)
	}
	if !r.Event.HasCmd || r.Event.Cmd.Value != 0x20DF10EF {
		t.Fatalf("event = %+v", r.Event)
	}
	if c.Armed() {
		t.Fatalf("one-shot session still armed after capture")
	}
}

func TestFinishPropagatesSaveError(t *testing.T) {
	c := New(0)
	c.Arm("", true)
	want := errors.New("flash full")
	go c.Finish(Event{}, "x", want)
	r, ok := c.Wait(context.Background(), time.Second)
	if !ok {
		t.Fatalf("wait timed out")
	}
	if !errors.Is(r.Err, want) {
		t.Fatalf("err = %v", r.Err)
	}
}

func TestPersistentSessionStaysArmed(t *testing.T) {
	c := New(0)
	c.Arm("", false)
	c.Finish(Event{}, "auto_1", nil)
	if !c.Armed() {
		t.Fatalf("persistent session disarmed by a capture")
	}
}

func TestArmDiscardsStaleResult(t *testing.T) {
	c := New(0)
	c.Arm("", false)
	c.Finish(Event{}, "stale", nil)
	// A new session must not be satisfied by the previous capture.
	c.Arm("fresh", true)
	if _, ok := c.Wait(context.Background(), 50*time.Millisecond); ok {
		t.Fatalf("stale result leaked into a new session")
	}
}

func TestTargetTracksSession(t *testing.T) {
	c := New(0)
	if name, one := c.Target(); name != "" || one {
		t.Fatalf("idle target = %q %v", name, one)
	}
	c.Arm("fan", true)
	if name, one := c.Target(); name != "fan" || !one {
		t.Fatalf("armed target = %q %v", name, one)
	}
	c.Disarm()
	if name, _ := c.Target(); name != "" {
		t.Fatalf("target survives disarm: %q", name)
	}
}
