// Package ir is the IR remote-control service: it owns the capture
// receiver, the learning session, the persisted code store and the
// transmit path, and exposes them as one command surface. Surfaces (bus
// control topics, MCP tools, the serial console) call the same methods and
// get the same semantics.
package ir

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"voiceboard-go/bus"
	"voiceboard-go/drivers/irproto"
	"voiceboard-go/errcode"
	"voiceboard-go/services/ir/internal/codestore"
	"voiceboard-go/services/ir/internal/ircore"
	"voiceboard-go/services/ir/internal/learn"
	"voiceboard-go/services/ir/internal/platform"
	"voiceboard-go/services/ir/internal/transmit"
	"voiceboard-go/settings"
	"voiceboard-go/types"
	"voiceboard-go/x/jsonx"
	"voiceboard-go/x/timex"
)

var (
	topicState   = bus.Topic{"ir", "state"}
	topicEvent   = bus.Topic{"ir", "event"}
	topicLearned = bus.Topic{"ir", "learned"}
	topicConfig  = bus.Topic{"config", "ir"}
	topicControl = bus.Topic{"ir", "control", "+"}
)

// receiverRetryDelay spaces the single start retry; transient pin claims
// settle well within this.
const receiverRetryDelay = 100 * time.Millisecond

// Options wires a Service. Receiver and Carrier may be left nil and bound
// later from the config topic; Conn may be nil for surface-only
// embeddings (tests, the MCP daemon without a bus).
type Options struct {
	Conn     *bus.Connection
	Receiver ircore.Receiver
	Carrier  ircore.Carrier
	Strip    types.LedStrip
	Display  types.Display
	Settings settings.Store
	Log      *slog.Logger

	// LearnQueue bounds buffered capture outcomes; zero means the default.
	LearnQueue int
}

type Service struct {
	conn    *bus.Connection
	log     *slog.Logger
	display types.Display
	strip   types.LedStrip

	store *codestore.Store
	learn *learn.Controller

	mu      sync.Mutex
	recv    ircore.Receiver
	tx      *transmit.Transmitter
	cmdCb   func(irproto.Command)
	started bool
	done    chan struct{}
}

// New builds the service. A failed store open leaves the service in the
// not-initialized state rather than failing construction: every operation
// then rejects with a clean error, matching boards that boot with a dead
// flash partition.
func New(o Options) *Service {
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.Display == nil {
		o.Display = types.NopDisplay{}
	}
	s := &Service{
		conn:    o.Conn,
		log:     o.Log.With("service", "ir"),
		display: o.Display,
		strip:   o.Strip,
		learn:   learn.New(o.LearnQueue),
		recv:    o.Receiver,
		tx:      transmit.New(o.Carrier, o.Strip),
	}
	if o.Settings != nil {
		st, err := codestore.Open(o.Settings)
		if err != nil {
			s.log.Error("code store unavailable", "err", err)
		} else {
			s.store = st
		}
	}
	if s.recv != nil {
		s.bindReceiver(s.recv)
	}
	return s
}

// Start launches the saving worker and powers the receiver when one is
// bound. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.learnWorker(ctx)
	if err := s.ensureReceiver(); err != nil && err != errcode.IRNotInitialized {
		// Capture stays down until the next operation retries; sends and
		// store access keep working.
		s.log.Warn("receiver unavailable at start", "err", err)
	}
	return nil
}

// Run attaches the service to the bus: configuration, control verbs and
// event publishing. It blocks until ctx is cancelled and tears down in a
// fixed order: learning session first, then the receiver, then the saving
// worker, then the final state message.
func (s *Service) Run(ctx context.Context) {
	if s.conn == nil {
		s.log.Error("run without a bus connection")
		return
	}
	if err := s.Start(ctx); err != nil {
		s.publishState("error", "start_failed", err)
		return
	}

	cfgSub := s.conn.Subscribe(topicConfig)
	ctrlSub := s.conn.Subscribe(topicControl)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	if s.bound() {
		s.publishState("ready", "configured", nil)
	} else {
		s.publishState("idle", "awaiting_config", nil)
	}

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			s.WaitStopped()
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg types.IRConfig
			if err := jsonx.Decode(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_wrong_type", err)
				continue
			}
			if err := s.applyConfig(cfg); err != nil {
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg := <-ctrlSub.Channel():
			s.handleControl(ctx, msg)
		}
	}
}

// Shutdown disarms any learning session and idles the receiver. Safe to
// call repeatedly; Run invokes it on cancellation.
func (s *Service) Shutdown() {
	s.learn.Disarm()
	s.mu.Lock()
	recv := s.recv
	s.mu.Unlock()
	if recv != nil {
		recv.Stop()
	}
}

// WaitStopped blocks until the saving worker has exited after the Start
// context was cancelled. A service that was never started returns
// immediately.
func (s *Service) WaitStopped() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}

// applyConfig binds detected hardware on the first config document.
// Explicitly injected hardware wins: later documents only log.
func (s *Service) applyConfig(cfg types.IRConfig) error {
	s.mu.Lock()
	bound := s.recv != nil || s.tx.Ready()
	s.mu.Unlock()
	if bound {
		s.log.Debug("ir config update ignored; hardware already bound")
		return nil
	}
	set, err := platform.Detect(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tx = transmit.New(set.Carrier, s.strip)
	if set.Receiver != nil {
		s.recv = set.Receiver
		s.bindReceiver(set.Receiver)
	}
	s.mu.Unlock()
	s.log.Info("ir hardware bound", "rx_pin", cfg.RxPin, "tx_pin", cfg.TxPin, "backend", cfg.Backend)
	if set.Receiver != nil {
		return s.ensureReceiver()
	}
	return nil
}

func (s *Service) bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recv != nil || s.tx.Ready()
}

func (s *Service) bindReceiver(r ircore.Receiver) {
	r.SetCommandHandler(s.onCommand)
	r.SetRawHandler(s.onRaw)
}

// ensureReceiver powers the capture path, retrying a failed start once.
// Later operations that hit this guard retry again, so a flaky peripheral
// gets one fresh pair of attempts per operation.
func (s *Service) ensureReceiver() error {
	s.mu.Lock()
	recv := s.recv
	s.mu.Unlock()
	if recv == nil {
		return errcode.IRNotInitialized
	}
	if recv.Running() {
		return nil
	}
	if err := recv.Start(); err != nil {
		s.log.Warn("receiver start failed, retrying", "err", err)
		time.Sleep(receiverRetryDelay)
		if err := recv.Start(); err != nil {
			return &errcode.E{C: errcode.Error, Op: "ir.receiver_start", Err: err}
		}
	}
	s.log.Debug("receiver running")
	return nil
}

// ---- receiver callbacks (receiver worker context) ----

func (s *Service) onCommand(cmd irproto.Command) {
	if !irproto.Valid(cmd) {
		return
	}
	if s.learn.Armed() {
		var raw irproto.Pulses
		s.mu.Lock()
		if s.recv != nil {
			raw = s.recv.RawData()
		}
		s.mu.Unlock()
		s.learn.Offer(cmd, true, raw)
		return
	}
	s.mu.Lock()
	fn := s.cmdCb
	s.mu.Unlock()
	if fn != nil {
		fn(cmd)
	}
	s.publishEvent(cmd, false)
}

func (s *Service) onRaw(seq irproto.Pulses) {
	if s.learn.Armed() {
		s.learn.Offer(irproto.Command{}, false, seq)
		return
	}
	s.publishEvent(irproto.Command{Protocol: irproto.ProtocolRaw, Bits: uint16(len(seq))}, true)
}

// SetCommandCallback installs the normal-mode decoded-command callback.
// It never fires while a learning session is armed.
func (s *Service) SetCommandCallback(fn func(cmd irproto.Command)) {
	s.mu.Lock()
	s.cmdCb = fn
	s.mu.Unlock()
}

// ---- saving worker ----

// learnWorker drains capture outcomes: resolve the name, persist, notify.
// Outcomes whose session was cancelled mid-flight are discarded.
func (s *Service) learnWorker(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.learn.Events():
			if !s.learn.Armed() {
				s.log.Debug("capture discarded; session cancelled")
				continue
			}
			target, oneShot := s.learn.Target()
			name := s.resolveName(ev, target)
			err := s.saveEvent(name, ev)
			if err != nil {
				s.log.Warn("learned code not saved", "name", name, "err", err)
			} else {
				s.log.Info("code learned", "name", name, "protocol", ev.Cmd.Protocol.String())
				s.display.ShowNotification("IR code learned: " + name)
				s.publishLearned(name, ev)
			}
			s.learn.Finish(ev, name, err)
			if oneShot {
				s.publishState("ready", "configured", nil)
			}
		}
	}
}

func (s *Service) saveEvent(name string, ev learn.Event) error {
	if s.store == nil {
		return errcode.IRNotInitialized
	}
	if ev.HasCmd {
		return s.store.Save(name, ev.Cmd)
	}
	return s.store.SaveRaw(name, ev.Pulses(), irproto.DefaultCarrierHz)
}

// ---- bus helpers ----

func (s *Service) publishState(level, status string, err error) {
	if s.conn == nil {
		return
	}
	pl := types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		pl.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, pl, true))
}

func (s *Service) publishEvent(cmd irproto.Command, raw bool) {
	if s.conn == nil {
		return
	}
	pl := types.IREvent{
		Protocol: uint8(cmd.Protocol),
		Name:     cmd.Protocol.String(),
		Value:    cmd.Value,
		Bits:     cmd.Bits,
		Raw:      raw,
		TS:       timex.NowMs(),
	}
	s.conn.Publish(s.conn.NewMessage(topicEvent, pl, false))
}

func (s *Service) publishLearned(name string, ev learn.Event) {
	if s.conn == nil {
		return
	}
	pl := types.IRLearnedEvent{
		Name:     name,
		Protocol: uint8(ev.Cmd.Protocol),
		Raw:      !ev.HasCmd,
		TS:       timex.NowMs(),
	}
	s.conn.Publish(s.conn.NewMessage(topicLearned, pl, false))
}

func (s *Service) replyErr(req *bus.Message, err error) {
	if req == nil || !req.CanReply() {
		return
	}
	code := errcode.Of(err)
	_ = s.conn.Reply(req, types.ErrorReply{OK: false, Error: string(code)}, false)
}

func (s *Service) replyOK(req *bus.Message, payload any) {
	if req == nil || !req.CanReply() {
		return
	}
	if payload == nil {
		payload = types.OKReply{OK: true}
	}
	_ = s.conn.Reply(req, payload, false)
}

// handleControl dispatches one control verb. Verb is the last topic token;
// payloads are decoded leniently so wire-shaped maps and in-process structs
// both work.
func (s *Service) handleControl(ctx context.Context, msg *bus.Message) {
	verb, _ := msg.Topic.At(2).(string)
	switch verb {
	case "learn_start":
		var req types.IRLearnRequest
		if err := jsonx.Decode(msg.Payload, &req); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if err := s.StartLearning(req.Name); err != nil {
			s.replyErr(msg, err)
			return
		}
		s.replyOK(msg, nil)

	case "learn_stop":
		s.StopLearning()
		s.replyOK(msg, nil)

	case "learn":
		var req struct {
			TimeoutS int `json:"timeout,omitempty"`
		}
		if err := jsonx.Decode(msg.Payload, &req); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		learned, err := s.LearnCommand(ctx, req.TimeoutS)
		if err != nil {
			s.replyErr(msg, err)
			return
		}
		s.replyOK(msg, learned.Info())

	case "status":
		s.replyOK(msg, s.Status())

	case "send":
		var req types.IRSendRequest
		if err := jsonx.Decode(msg.Payload, &req); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		var err error
		if req.RawOnly {
			err = s.SendRawCode(req.Name)
		} else {
			err = s.SendCode(req.Name)
		}
		if err != nil {
			s.replyErr(msg, err)
			return
		}
		s.replyOK(msg, nil)

	case "list":
		s.replyOK(msg, ListReply{Codes: s.ListCodes()})

	case "delete":
		var req types.IRSendRequest
		if err := jsonx.Decode(msg.Payload, &req); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		found, err := s.DeleteCode(req.Name)
		if err != nil {
			s.replyErr(msg, err)
			return
		}
		if !found {
			s.replyErr(msg, errcode.NotFound)
			return
		}
		s.replyOK(msg, nil)

	case "delete_all":
		if err := s.DeleteAllCodes(); err != nil {
			s.replyErr(msg, err)
			return
		}
		s.replyOK(msg, nil)

	case "export":
		text, err := s.ExportConstants()
		if err != nil {
			s.replyErr(msg, err)
			return
		}
		s.replyOK(msg, ExportReply{Constants: text})

	default:
		s.replyErr(msg, errcode.Unsupported)
	}
}
