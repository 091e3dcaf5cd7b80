package codestore

import (
	"errors"
	"strings"
	"testing"

	"voiceboard-go/drivers/irproto"
	"voiceboard-go/errcode"
	"voiceboard-go/settings"
)

func newStore(t *testing.T) (*Store, settings.Namespace) {
	t.Helper()
	mem := settings.NewMemStore()
	s, err := Open(mem)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// Second handle onto the same namespace, for layout assertions.
	ns, err := mem.Open(Namespace)
	if err != nil {
		t.Fatalf("open ns: %v", err)
	}
	return s, ns
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	cmd := irproto.Command{Protocol: irproto.ProtocolNEC, Value: 0x20DF10EF, Bits: 32}
	if err := s.Save("tv_pwr", cmd); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load("tv_pwr")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.HasCmd || got.Cmd != cmd {
		t.Fatalf("got %+v want %+v", got.Cmd, cmd)
	}
	if got.Raw != nil {
		t.Fatalf("unexpected raw record")
	}
	if got.CarrierHz != irproto.DefaultCarrierHz {
		t.Fatalf("carrier = %d", got.CarrierHz)
	}
}

func TestPersistedLayout(t *testing.T) {
	s, ns := newStore(t)
	if err := s.Save("tv_pwr", irproto.Command{Protocol: irproto.ProtocolNEC, Value: 551494895, Bits: 32}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveRaw("fan", irproto.Pulses{9000, 4500, 560}, irproto.DefaultCarrierHz); err != nil {
		t.Fatalf("save raw: %v", err)
	}

	if got := ns.GetString("code_tv_pwr", ""); got != `{"protocol":1,"value":551494895,"bits":32}` {
		t.Fatalf("code record = %q", got)
	}
	if got := ns.GetString("raw_fan", ""); got != "3:9000,4500,560" {
		t.Fatalf("raw record = %q", got)
	}
	if got := ns.GetString("code_list", ""); got != "tv_pwr,fan" {
		t.Fatalf("index = %q", got)
	}
}

func TestTruncationIsConsistent(t *testing.T) {
	s, ns := newStore(t)
	if err := s.Save("living_room_light", irproto.Command{Protocol: irproto.ProtocolNEC, Value: 1, Bits: 32}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := ns.GetString("code_living_roo", ""); got == "" {
		t.Fatalf("record not stored under truncated key")
	}
	// Lookup through the full name reaches the truncated record.
	if _, err := s.Load("living_room_light"); err != nil {
		t.Fatalf("load full name: %v", err)
	}
	// A different long name with the same 10-byte prefix collides.
	if _, err := s.Load("living_room_lamp"); err != nil {
		t.Fatalf("load colliding name: %v", err)
	}
	codes := s.List()
	if len(codes) != 1 || codes[0].Name != "living_roo" {
		t.Fatalf("list = %+v", codes)
	}
	found, err := s.Delete("living_room_light")
	if err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	if got := ns.GetString("code_living_roo", ""); got != "" {
		t.Fatalf("record survived delete: %q", got)
	}
}

func TestNameValidation(t *testing.T) {
	s, _ := newStore(t)
	cmd := irproto.Command{Protocol: irproto.ProtocolNEC, Value: 1, Bits: 32}

	if err := s.Save("", cmd); !errors.Is(err, errcode.NameEmpty) {
		t.Fatalf("empty name: %v", err)
	}
	if err := s.Save("a,b", cmd); !errors.Is(err, errcode.NameInvalid) {
		t.Fatalf("comma name: %v", err)
	}
	// Comma beyond the truncation point is harmless.
	if err := s.Save("0123456789,x", cmd); err != nil {
		t.Fatalf("comma after truncation: %v", err)
	}
}

func TestRejectsUnstorableCommands(t *testing.T) {
	s, _ := newStore(t)
	bad := []irproto.Command{
		{Protocol: irproto.ProtocolRaw, Value: 1, Bits: 32},
		{Protocol: irproto.ProtocolNEC, Value: 1, Bits: 0},
		{Protocol: irproto.ProtocolNEC, Value: 1, Bits: 65},
		{Protocol: irproto.Protocol(99), Value: 1, Bits: 32},
	}
	for _, cmd := range bad {
		if err := s.Save("x", cmd); !errors.Is(err, errcode.InvalidParams) {
			t.Fatalf("cmd %+v: %v", cmd, err)
		}
	}
}

func TestCapacity(t *testing.T) {
	s, _ := newStore(t)
	cmd := irproto.Command{Protocol: irproto.ProtocolNEC, Value: 1, Bits: 32}
	var name [2]byte
	for i := 0; i < MaxCodes; i++ {
		name[0] = byte('a' + i/26)
		name[1] = byte('a' + i%26)
		if err := s.Save(string(name[:]), cmd); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if got := s.Count(); got != MaxCodes {
		t.Fatalf("count = %d", got)
	}
	if err := s.Save("overflow", cmd); !errors.Is(err, errcode.CapacityExceeded) {
		t.Fatalf("51st save: %v", err)
	}
	// Overwriting an existing name at capacity stays legal.
	if err := s.Save("aa", irproto.Command{Protocol: irproto.ProtocolSony, Value: 0x123, Bits: 12}); err != nil {
		t.Fatalf("overwrite at capacity: %v", err)
	}
	// So does attaching a raw record to an existing name.
	if err := s.SaveRaw("aa", irproto.Pulses{100, 200, 100}, irproto.DefaultCarrierHz); err != nil {
		t.Fatalf("raw overwrite at capacity: %v", err)
	}
}

func TestDeleteRewritesIndex(t *testing.T) {
	s, ns := newStore(t)
	cmd := irproto.Command{Protocol: irproto.ProtocolNEC, Value: 1, Bits: 32}
	for _, n := range []string{"one", "two", "three"} {
		if err := s.Save(n, cmd); err != nil {
			t.Fatalf("save %s: %v", n, err)
		}
	}
	if found, err := s.Delete("two"); err != nil || !found {
		t.Fatalf("delete two: found=%v err=%v", found, err)
	}
	if got := ns.GetString("code_list", ""); got != "one,three" {
		t.Fatalf("index = %q", got)
	}
	for _, n := range []string{"one", "three"} {
		if found, err := s.Delete(n); err != nil || !found {
			t.Fatalf("delete %s: found=%v err=%v", n, found, err)
		}
	}
	// Empty index key is erased, not written as "".
	if got := ns.GetString("code_list", "absent"); got != "absent" {
		t.Fatalf("index after last delete = %q", got)
	}
}

func TestDeleteMissing(t *testing.T) {
	s, _ := newStore(t)
	found, err := s.Delete("ghost")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if found {
		t.Fatalf("found a code that was never stored")
	}
}

func TestDeleteAll(t *testing.T) {
	s, ns := newStore(t)
	cmd := irproto.Command{Protocol: irproto.ProtocolNEC, Value: 1, Bits: 32}
	for _, n := range []string{"a", "b"} {
		if err := s.Save(n, cmd); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := s.SaveRaw("c", irproto.Pulses{1, 2, 3}, irproto.DefaultCarrierHz); err != nil {
		t.Fatalf("save raw: %v", err)
	}
	if err := s.DeleteAll(); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if got := s.Count(); got != 0 {
		t.Fatalf("count after wipe = %d", got)
	}
	if got := ns.GetString("code_a", ""); got != "" {
		t.Fatalf("record survived wipe: %q", got)
	}
}

func TestRawRoundTripAndPrecedence(t *testing.T) {
	s, _ := newStore(t)
	seq := irproto.Pulses{9000, 4500, 560, 1690, 560}
	if err := s.SaveRaw("mix", seq, irproto.DefaultCarrierHz); err != nil {
		t.Fatalf("save raw: %v", err)
	}
	got, err := s.Load("mix")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.HasCmd {
		t.Fatalf("phantom protocol record")
	}
	if len(got.Raw) != len(seq) {
		t.Fatalf("raw len = %d", len(got.Raw))
	}
	for i := range seq {
		if got.Raw[i] != seq[i] {
			t.Fatalf("raw[%d] = %d want %d", i, got.Raw[i], seq[i])
		}
	}

	// Attach a protocol record to the same name: both forms coexist.
	cmd := irproto.Command{Protocol: irproto.ProtocolNEC, Value: 0xAA55AA55, Bits: 32}
	if err := s.Save("mix", cmd); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = s.Load("mix")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.HasCmd || got.Cmd != cmd {
		t.Fatalf("cmd = %+v", got.Cmd)
	}
	if got.Raw == nil {
		t.Fatalf("raw record lost")
	}
	if got := s.Count(); got != 1 {
		t.Fatalf("count = %d", got)
	}
}

func TestSaveRawBounds(t *testing.T) {
	s, _ := newStore(t)
	if err := s.SaveRaw("x", nil, irproto.DefaultCarrierHz); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("empty seq: %v", err)
	}
	long := make(irproto.Pulses, 201)
	for i := range long {
		long[i] = 500
	}
	if err := s.SaveRaw("x", long, irproto.DefaultCarrierHz); !errors.Is(err, errcode.IRFrameTooLong) {
		t.Fatalf("oversize seq: %v", err)
	}
}

func TestListSkipsMissingRecords(t *testing.T) {
	s, ns := newStore(t)
	cmd := irproto.Command{Protocol: irproto.ProtocolNEC, Value: 7, Bits: 32}
	if err := s.Save("keep", cmd); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Simulate a torn write: index names a record that does not exist.
	if err := ns.SetString("code_list", "keep,ghost"); err != nil {
		t.Fatalf("poison index: %v", err)
	}
	codes := s.List()
	if len(codes) != 1 || codes[0].Name != "keep" {
		t.Fatalf("list = %+v", codes)
	}
	// A corrupt record body is skipped the same way.
	if err := ns.SetString("code_bad", "{not json"); err != nil {
		t.Fatalf("poison record: %v", err)
	}
	if err := ns.SetString("code_list", "keep,bad"); err != nil {
		t.Fatalf("rewrite index: %v", err)
	}
	codes = s.List()
	if len(codes) != 1 || codes[0].Name != "keep" {
		t.Fatalf("list with corrupt record = %+v", codes)
	}
}

func TestLoadMissing(t *testing.T) {
	s, _ := newStore(t)
	if _, err := s.Load("nope"); !errors.Is(err, errcode.NotFound) {
		t.Fatalf("load missing: %v", err)
	}
}

func TestExportConstants(t *testing.T) {
	s, _ := newStore(t)
	if err := s.Save("tv-pwr", irproto.Command{Protocol: irproto.ProtocolNEC, Value: 0x20DF10EF, Bits: 32}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveRaw("fan", irproto.Pulses{9000, 4500, 560}, irproto.DefaultCarrierHz); err != nil {
		t.Fatalf("save raw: %v", err)
	}
	out := s.ExportConstants()
	for _, want := range []string{
		"#define IR_TV_PWR_PROTOCOL 1",
		"#define IR_TV_PWR_VALUE 0x20DF10EFULL",
		"#define IR_TV_PWR_BITS 32",
		"static const uint32_t IR_RAW_FAN[] = {9000, 4500, 560};",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("export missing %q:\n%s", want, out)
		}
	}
}

func TestExportEmpty(t *testing.T) {
	s, _ := newStore(t)
	out := s.ExportConstants()
	if !strings.Contains(out, "no stored codes") {
		t.Fatalf("empty export = %q", out)
	}
}
