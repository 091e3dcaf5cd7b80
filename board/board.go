// Package board assembles a running device: the message bus, the config
// publisher, the IR service, the serial console and the heartbeat, plus the
// glue between IR activity and the user-facing collaborators (display,
// backlight, button). Hardware variants only differ in the collaborators
// and the console port they pass in; pin wiring itself arrives through the
// published config document.
package board

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"voiceboard-go/bus"
	"voiceboard-go/services/config"
	"voiceboard-go/services/console"
	"voiceboard-go/services/heartbeat"
	"voiceboard-go/services/ir"
	"voiceboard-go/settings"
	"voiceboard-go/types"
	"voiceboard-go/x/jsonx"
	"voiceboard-go/x/mathx"
	"voiceboard-go/x/ramp"
	"voiceboard-go/x/strx"
	"voiceboard-go/x/timex"
)

// ConsoleConfigFor extracts the console section of a device's embedded
// config document. The port has to be opened before the bus exists, so
// this one section is read directly rather than subscribed. Missing
// document or section yields the zero config.
func ConsoleConfigFor(device string) types.ConsoleConfig {
	raw, ok := config.EmbeddedConfigLookup(device)
	if !ok {
		return types.ConsoleConfig{}
	}
	var doc struct {
		Console types.ConsoleConfig `json:"console"`
	}
	if err := jsonx.Decode(raw, &doc); err != nil {
		return types.ConsoleConfig{}
	}
	return doc.Console
}

var (
	topicLearned    = bus.Topic{"ir", "learned"}
	topicPowerState = bus.Topic{"power", "state"}
	topicNotify     = bus.Topic{"display", "notify"}
)

const (
	// Lamp pulse runs on an internal 0..lampScale ramp and is mapped onto
	// the panel's percent range so the panel never goes fully dark.
	lampScale   = 256
	lampIdlePct = 20
	lampPeakPct = 100

	powerPeriod = 30 * time.Second

	// longPressName is the stored code a long button press replays.
	longPressName = "power"
)

// Options carries everything a variant wires differently. Device selects
// the embedded config document; nil collaborators degrade to no-ops; a nil
// Port disables the console.
type Options struct {
	Device    string
	Port      console.Port
	Display   types.Display
	Backlight types.Backlight
	Power     types.PowerManager
	Button    types.Button
	Strip     types.LedStrip
	Settings  settings.Store
	Log       *slog.Logger
}

type Board struct {
	device    string
	port      console.Port
	backlight types.Backlight
	power     types.PowerManager
	button    types.Button
	log       *slog.Logger

	bus *bus.Bus
	irs *ir.Service

	wg sync.WaitGroup
}

func New(o Options) *Board {
	o.Device = strx.Coalesce(o.Device, DefaultDevice)
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.Display == nil {
		o.Display = types.NopDisplay{}
	}
	if o.Backlight == nil {
		o.Backlight = types.NopBacklight{}
	}
	if o.Power == nil {
		o.Power = types.NopPower{}
	}
	if o.Strip == nil {
		o.Strip = types.NopStrip{}
	}
	b := &Board{
		device:    o.Device,
		port:      o.Port,
		backlight: o.Backlight,
		power:     o.Power,
		button:    o.Button,
		log:       o.Log.With("board", o.Device),
	}
	b.bus = bus.NewBus(8)
	b.irs = ir.New(ir.Options{
		Conn:     b.bus.NewConnection("ir"),
		Strip:    o.Strip,
		Display:  busDisplay{next: o.Display, conn: b.bus.NewConnection("display")},
		Settings: o.Settings,
		Log:      o.Log,
	})
	return b
}

// IR exposes the service handle for surfaces assembled outside the board
// (the MCP server, tests).
func (b *Board) IR() *ir.Service { return b.irs }

// Bus exposes the board bus for extra observers.
func (b *Board) Bus() *bus.Bus { return b.bus }

// Run brings the services up and blocks until ctx is cancelled. Bring-up
// order: config publisher first so every later subscriber sees the retained
// documents, then heartbeat, then the IR service, then the console.
func (b *Board) Run(ctx context.Context) {
	ctx = context.WithValue(ctx, config.CtxDeviceKey, b.device)

	config.New(b.log).Start(ctx, b.bus.NewConnection("config"))

	hbConn := b.bus.NewConnection("heartbeat")
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		heartbeat.New(b.log).Run(ctx, hbConn)
	}()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.irs.Run(ctx)
	}()

	b.bindButton()

	b.wg.Add(2)
	go b.lampLoop(ctx)
	go b.powerLoop(ctx)

	if b.port != nil {
		con := console.New(console.Options{Port: b.port, IR: b.irs, Log: b.log})
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			con.Run(ctx)
		}()
	}

	b.log.Info("board up", "device", b.device)
	<-ctx.Done()
	b.wg.Wait()
	b.log.Info("board down")
}

// bindButton maps the physical button onto the IR service: click toggles
// learning mode, long press replays the stored "power" code.
func (b *Board) bindButton() {
	if b.button == nil {
		return
	}
	b.button.OnClick(func() {
		if b.irs.Learning() {
			b.irs.StopLearning()
			return
		}
		if err := b.irs.StartLearning(""); err != nil {
			b.log.Warn("learning not started", "err", err)
		}
	})
	b.button.OnLongPress(func() {
		if err := b.irs.SendCode(longPressName); err != nil {
			b.log.Warn("long press replay failed", "name", longPressName, "err", err)
		}
	})
}

// lampLoop pulses the backlight whenever a code is learned. The pulse is a
// quick rise and a slower fade back to the idle glow; a burst of captures
// queues pulses rather than interleaving them.
func (b *Board) lampLoop(ctx context.Context) {
	defer b.wg.Done()
	conn := b.bus.NewConnection("lamp")
	sub := conn.Subscribe(topicLearned)
	defer conn.Unsubscribe(sub)

	_ = b.backlight.SetBrightness(lampIdlePct)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Channel():
			b.pulseLamp(ctx)
		}
	}
}

func (b *Board) pulseLamp(ctx context.Context) {
	tick := func(d time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}
	set := func(level uint16) {
		pct := mathx.MapU16(level, 0, lampScale, lampIdlePct, lampPeakPct)
		if err := b.backlight.SetBrightness(uint8(pct)); err != nil {
			b.log.Debug("backlight set failed", "err", err)
		}
	}
	ramp.StartLinear(0, lampScale, lampScale, 120, 8, tick, set)
	ramp.StartLinear(lampScale, 0, lampScale, 350, 12, tick, set)
}

// powerLoop publishes a retained battery snapshot on a slow period so host
// tooling can watch charge state without polling the hardware.
func (b *Board) powerLoop(ctx context.Context) {
	defer b.wg.Done()
	conn := b.bus.NewConnection("power")
	tick := time.NewTicker(powerPeriod)
	defer tick.Stop()

	publish := func() {
		conn.Publish(conn.NewMessage(topicPowerState, types.PowerState{
			BatteryPct: b.power.BatteryLevel(),
			Charging:   b.power.Charging(),
			TS:         timex.NowMs(),
		}, true))
	}
	publish()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			publish()
		}
	}
}

// busDisplay mirrors panel notifications onto the bus so off-board tooling
// sees what the user was shown.
type busDisplay struct {
	next types.Display
	conn *bus.Connection
}

func (d busDisplay) ShowNotification(msg string) {
	d.next.ShowNotification(msg)
	d.conn.Publish(d.conn.NewMessage(topicNotify, msg, false))
}
