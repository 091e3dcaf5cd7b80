package ir

import (
	"context"
	"strings"
	"time"

	"voiceboard-go/drivers/irproto"
	"voiceboard-go/errcode"
	"voiceboard-go/services/ir/internal/codestore"
	"voiceboard-go/services/ir/internal/learn"
	"voiceboard-go/x/conv"
	"voiceboard-go/x/mathx"
	"voiceboard-go/x/strconvx"
)

// Learn timeout bounds in seconds.
const (
	DefaultLearnTimeoutS = 10
	MinLearnTimeoutS     = 1
	MaxLearnTimeoutS     = 60
)

// NoSignalMessage is the canonical text surfaces show when a learn wait
// elapses without a capture.
const NoSignalMessage = "Timeout: No IR signal received"

// Learned is one persisted capture returned from the blocking learn flow.
type Learned struct {
	Name   string
	Cmd    irproto.Command
	HasCmd bool
	Raw    irproto.Pulses
}

// LearnInfo is the wire shape of a learn outcome.
type LearnInfo struct {
	Success  bool     `json:"success"`
	Name     string   `json:"name,omitempty"`
	Protocol string   `json:"protocol,omitempty"`
	Command  string   `json:"command,omitempty"`
	RawData  []uint32 `json:"raw_data,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Info renders the outcome. The command field is only present for an
// identified protocol with a non-zero value; unknown and raw captures
// carry their payload in raw_data instead.
func (l Learned) Info() LearnInfo {
	info := LearnInfo{Success: true, Name: l.Name}
	switch {
	case l.HasCmd && irproto.Identified(l.Cmd):
		info.Protocol = l.Cmd.Protocol.String()
		if l.Cmd.Value != 0 {
			info.Command = HexValue(l.Cmd.Value)
		}
	case l.HasCmd:
		info.Protocol = l.Cmd.Protocol.String()
	default:
		info.Protocol = irproto.ProtocolRaw.String()
	}
	if len(l.Raw) > 0 {
		info.RawData = l.Raw
	}
	return info
}

// Status is the queryable service state.
type Status struct {
	Learning    bool   `json:"learning_mode"`
	PendingName string `json:"pending_name,omitempty"`
	Codes       int    `json:"code_count"`
	Receiver    bool   `json:"receiver"`
	Transmitter bool   `json:"transmitter"`
	Drops       uint32 `json:"drops,omitempty"`
}

// CodeData mirrors the persisted protocol record.
type CodeData struct {
	Protocol int    `json:"protocol"`
	Value    uint64 `json:"value"`
	Bits     int    `json:"bits"`
}

// CodeInfo is one stored code in listings.
type CodeInfo struct {
	Name   string    `json:"name"`
	Data   *CodeData `json:"data,omitempty"`
	RawLen int       `json:"raw_len,omitempty"`
}

// ListReply wraps listings for reply payloads.
type ListReply struct {
	Codes []CodeInfo `json:"codes"`
}

// ExportReply wraps the generated constant block.
type ExportReply struct {
	Constants string `json:"constants"`
}

// HexValue renders v the way stored commands are displayed: 0x plus 16
// uppercase digits.
func HexValue(v uint64) string {
	b := make([]byte, 0, 18)
	b = append(b, '0', 'x')
	b = conv.AppendUHex(b, v, 16)
	return string(b)
}

// ParseHexValue parses a displayed command value: hex digits with an
// optional 0x prefix.
func ParseHexValue(s string) (uint64, error) {
	t := strings.TrimSpace(s)
	if len(t) >= 2 && (t[:2] == "0x" || t[:2] == "0X") {
		t = t[2:]
	}
	if t == "" {
		return 0, errcode.InvalidParams
	}
	v, err := strconvx.ParseUint(t, 16, 64)
	if err != nil {
		return 0, errcode.InvalidParams
	}
	return v, nil
}

// StartLearning arms a learning session. A non-empty name makes the
// session one-shot under that name; an empty name keeps the session armed
// with automatic names until StopLearning.
func (s *Service) StartLearning(name string) error {
	if s.store == nil {
		return errcode.IRNotInitialized
	}
	target := ""
	if name != "" {
		clean, err := codestore.CleanName(name)
		if err != nil {
			return err
		}
		target = clean
	}
	if err := s.ensureReceiver(); err != nil {
		return err
	}
	s.learn.Arm(target, target != "")
	s.log.Info("learning armed", "name", target, "one_shot", target != "")
	s.publishState("ready", "learning", nil)
	return nil
}

// StopLearning disarms the session. Stopping an idle session is a no-op.
func (s *Service) StopLearning() {
	s.learn.Disarm()
	s.log.Info("learning disarmed")
	s.publishState("ready", "configured", nil)
}

// Learning reports whether a session is armed.
func (s *Service) Learning() bool { return s.learn.Armed() }

// LearnCommand arms a one-shot auto-named session and blocks until a code
// is captured and saved or the timeout elapses. timeoutS is clamped to
// [1,60]; zero selects the default.
func (s *Service) LearnCommand(ctx context.Context, timeoutS int) (Learned, error) {
	if s.store == nil {
		return Learned{}, errcode.IRNotInitialized
	}
	if err := s.ensureReceiver(); err != nil {
		return Learned{}, err
	}
	if timeoutS <= 0 {
		timeoutS = DefaultLearnTimeoutS
	}
	timeoutS = mathx.Clamp(timeoutS, MinLearnTimeoutS, MaxLearnTimeoutS)

	s.learn.Arm("", true)
	s.publishState("ready", "learning", nil)
	r, ok := s.learn.Wait(ctx, time.Duration(timeoutS)*time.Second)
	s.publishState("ready", "configured", nil)
	if !ok {
		if err := ctx.Err(); err != nil {
			return Learned{}, err
		}
		s.log.Info("learn timed out", "timeout_s", timeoutS)
		return Learned{}, errcode.Timeout
	}
	if r.Err != nil {
		return Learned{}, r.Err
	}
	out := Learned{Name: r.Name, Cmd: r.Event.Cmd, HasCmd: r.Event.HasCmd}
	if p := r.Event.Pulses(); len(p) > 0 {
		out.Raw = append(irproto.Pulses(nil), p...)
	}
	return out, nil
}

// SaveCode stores a manually specified code. Only identified protocols are
// accepted here; unknown captures can only be saved through a learning
// session, where the raw payload rides along.
func (s *Service) SaveCode(name string, protocol int, value uint64, bits int) error {
	if s.store == nil {
		return errcode.IRNotInitialized
	}
	p := irproto.Protocol(protocol)
	if p == irproto.ProtocolUnknown || p >= irproto.ProtocolRaw {
		return errcode.InvalidParams
	}
	if bits < 1 || bits > 64 {
		return errcode.InvalidParams
	}
	cmd := irproto.Command{Protocol: p, Value: value, Bits: uint16(bits)}
	if err := s.store.Save(name, cmd); err != nil {
		return err
	}
	s.log.Info("code saved", "name", codestore.Truncate(name), "protocol", p.String())
	return nil
}

// ListCodes returns the stored codes in index order.
func (s *Service) ListCodes() []CodeInfo {
	if s.store == nil {
		return nil
	}
	codes := s.store.List()
	out := make([]CodeInfo, 0, len(codes))
	for _, c := range codes {
		ci := CodeInfo{Name: c.Name}
		if c.HasCmd {
			ci.Data = &CodeData{
				Protocol: int(c.Cmd.Protocol),
				Value:    c.Cmd.Value,
				Bits:     int(c.Cmd.Bits),
			}
		}
		if c.Raw != nil {
			ci.RawLen = len(c.Raw)
		}
		out = append(out, ci)
	}
	return out
}

// DeleteCode removes one stored code. found is false when nothing was
// stored under the name.
func (s *Service) DeleteCode(name string) (bool, error) {
	if s.store == nil {
		return false, errcode.IRNotInitialized
	}
	found, err := s.store.Delete(name)
	if err != nil {
		return false, err
	}
	if found {
		s.log.Info("code deleted", "name", codestore.Truncate(name))
	}
	return found, nil
}

// DeleteAllCodes wipes the store.
func (s *Service) DeleteAllCodes() error {
	if s.store == nil {
		return errcode.IRNotInitialized
	}
	n := s.store.Count()
	if err := s.store.DeleteAll(); err != nil {
		return err
	}
	s.log.Info("all codes deleted", "count", n)
	return nil
}

// SendCode replays a stored code. The protocol record takes precedence;
// a name with only a raw capture replays that.
func (s *Service) SendCode(name string) error {
	if s.store == nil {
		return errcode.IRNotInitialized
	}
	c, err := s.store.Load(name)
	if err != nil {
		return err
	}
	if c.HasCmd {
		if err := s.tx.Send(c.Cmd); err != nil {
			return err
		}
		s.log.Info("code sent", "name", c.Name, "protocol", c.Cmd.Protocol.String())
		return nil
	}
	if err := s.tx.SendRaw(c.Raw, c.CarrierHz); err != nil {
		return err
	}
	s.log.Info("raw code sent", "name", c.Name, "pulses", len(c.Raw))
	return nil
}

// SendRawCode replays the raw record of a stored code, ignoring any
// protocol record.
func (s *Service) SendRawCode(name string) error {
	if s.store == nil {
		return errcode.IRNotInitialized
	}
	c, err := s.store.Load(name)
	if err != nil {
		return err
	}
	if c.Raw == nil {
		return errcode.NotFound
	}
	if err := s.tx.SendRaw(c.Raw, c.CarrierHz); err != nil {
		return err
	}
	s.log.Info("raw code sent", "name", c.Name, "pulses", len(c.Raw))
	return nil
}

// ExportConstants renders the stored codes as a generated source block.
func (s *Service) ExportConstants() (string, error) {
	if s.store == nil {
		return "", errcode.IRNotInitialized
	}
	return s.store.ExportConstants(), nil
}

// Status snapshots the service.
func (s *Service) Status() Status {
	st := Status{Learning: s.learn.Armed(), Drops: s.learn.Drops()}
	if name, _ := s.learn.Target(); name != "" {
		st.PendingName = name
	}
	if s.store != nil {
		st.Codes = s.store.Count()
	}
	s.mu.Lock()
	st.Receiver = s.recv != nil && s.recv.Running()
	st.Transmitter = s.tx.Ready()
	s.mu.Unlock()
	return st
}

// resolveName picks the save name for a capture: the armed target when one
// was given, otherwise a name derived from the payload.
func (s *Service) resolveName(ev learn.Event, target string) string {
	if target != "" {
		return target
	}
	var buf [16]byte
	if ev.HasCmd {
		if irproto.Identified(ev.Cmd) {
			return "IR_" + string(conv.UHex(buf[:], ev.Cmd.Value&0xFFFFFF, 6))
		}
		return "UNK_" + string(conv.UHex(buf[:], ev.Cmd.Value&0xFFFF, 4))
	}
	n := 1
	if s.store != nil {
		n = s.store.Count() + 1
	}
	return "RAW_" + strconvx.Itoa(n)
}
