// Package codestore persists named IR codes in a settings namespace.
//
// The on-flash layout is fixed and shared with older board images:
//
//	code_<name> -> {"protocol":<int>,"value":<dec>,"bits":<int>}
//	raw_<name>  -> "<len>:<d0>,<d1>,...,<dN-1>"   (microseconds, decimal)
//	code_list   -> "tv_pwr,fan_osc"               (erased when empty)
//
// Names longer than MaxNameLen are truncated before they are used anywhere:
// as a storage key, in the index, and on lookup. A caller that saves
// "living_room_light" and later asks for "living_room_lamp" therefore hits
// the same record; that is the documented cost of the 15-byte key cap.
package codestore

import (
	"strings"
	"sync"

	"voiceboard-go/drivers/irproto"
	"voiceboard-go/errcode"
	"voiceboard-go/services/ir/internal/ircore"
	"voiceboard-go/settings"
	"voiceboard-go/x/conv"
	"voiceboard-go/x/strconvx"
)

const (
	// Namespace is the settings namespace all IR code records live in.
	Namespace = "ir_codes"

	// MaxNameLen keeps "code_"+name inside the settings key cap.
	MaxNameLen = settings.MaxKeyLen - len(codePrefix)

	// MaxCodes bounds the number of distinct stored names.
	MaxCodes = 50

	codePrefix = "code_"
	rawPrefix  = "raw_"
	keyIndex   = "code_list"
)

// Truncate derives the stored form of a user-supplied name.
func Truncate(name string) string {
	if len(name) > MaxNameLen {
		return name[:MaxNameLen]
	}
	return name
}

// Code is one stored entry. A name can carry a protocol record, a raw
// timing record, or both; replay prefers the protocol form.
type Code struct {
	Name      string
	Cmd       irproto.Command
	HasCmd    bool
	Raw       irproto.Pulses
	CarrierHz uint32
}

// Store serializes all access to the namespace. The index and records are
// re-read from the backend on every operation so that a namespace shared
// with another writer (the host daemon next to a board image) stays
// authoritative.
type Store struct {
	mu sync.Mutex
	ns settings.Namespace
}

// Open opens the IR code namespace on the given settings store.
func Open(st settings.Store) (*Store, error) {
	ns, err := st.Open(Namespace)
	if err != nil {
		return nil, &errcode.E{C: errcode.StorageFailed, Op: "codestore.open", Err: err}
	}
	return New(ns), nil
}

// New wraps an already-open namespace.
func New(ns settings.Namespace) *Store {
	return &Store{ns: ns}
}

// Save stores cmd under name, overwriting any existing protocol record.
// New names count against MaxCodes; overwrites do not.
func (s *Store) Save(name string, cmd irproto.Command) error {
	trunc, err := CleanName(name)
	if err != nil {
		return err
	}
	if cmd.Protocol == irproto.ProtocolRaw || !irproto.Valid(cmd) {
		return errcode.InvalidParams
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.names()
	if !contains(names, trunc) {
		if len(names) >= MaxCodes {
			return errcode.CapacityExceeded
		}
		names = append(names, trunc)
	}
	if err := s.ns.SetString(codePrefix+trunc, encodeRecord(cmd)); err != nil {
		return &errcode.E{C: errcode.StorageFailed, Op: "codestore.save", Err: err}
	}
	return s.writeNames(names)
}

// SaveRaw stores a timing sequence under name. The fixed layout has no
// carrier field, so carrierHz is validated but reloads report the default;
// captures on this hardware are always at the default carrier.
func (s *Store) SaveRaw(name string, seq irproto.Pulses, carrierHz uint32) error {
	trunc, err := CleanName(name)
	if err != nil {
		return err
	}
	if len(seq) == 0 || carrierHz == 0 {
		return errcode.InvalidParams
	}
	if len(seq) > ircore.MaxPulses {
		return errcode.IRFrameTooLong
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.names()
	if !contains(names, trunc) {
		if len(names) >= MaxCodes {
			return errcode.CapacityExceeded
		}
		names = append(names, trunc)
	}
	if err := s.ns.SetString(rawPrefix+trunc, encodeRaw(seq)); err != nil {
		return &errcode.E{C: errcode.StorageFailed, Op: "codestore.save_raw", Err: err}
	}
	return s.writeNames(names)
}

// Load returns the entry stored under name (after truncation). When both
// record forms exist both are populated.
func (s *Store) Load(name string) (Code, error) {
	trunc := Truncate(name)
	if trunc == "" {
		return Code{}, errcode.NameEmpty
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.load(trunc)
	if !ok {
		return Code{}, errcode.NotFound
	}
	return c, nil
}

// Delete removes both record forms and the index entry for name. It
// reports false when nothing was stored under that name.
func (s *Store) Delete(name string) (bool, error) {
	trunc := Truncate(name)
	if trunc == "" {
		return false, errcode.NameEmpty
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	hadCode := s.ns.GetString(codePrefix+trunc, "") != ""
	hadRaw := s.ns.GetString(rawPrefix+trunc, "") != ""
	names := s.names()
	inIndex := contains(names, trunc)
	if !hadCode && !hadRaw && !inIndex {
		return false, nil
	}

	if err := s.ns.EraseKey(codePrefix + trunc); err != nil {
		return false, &errcode.E{C: errcode.StorageFailed, Op: "codestore.delete", Err: err}
	}
	if err := s.ns.EraseKey(rawPrefix + trunc); err != nil {
		return false, &errcode.E{C: errcode.StorageFailed, Op: "codestore.delete", Err: err}
	}
	if inIndex {
		kept := names[:0]
		for _, n := range names {
			if n != trunc {
				kept = append(kept, n)
			}
		}
		if err := s.writeNames(kept); err != nil {
			return false, err
		}
	}
	return true, nil
}

// DeleteAll wipes the whole namespace.
func (s *Store) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ns.EraseAll(); err != nil {
		return &errcode.E{C: errcode.StorageFailed, Op: "codestore.delete_all", Err: err}
	}
	return nil
}

// List returns all stored entries in index order. Index entries whose
// records have gone missing are skipped, not errors.
func (s *Store) List() []Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := s.names()
	out := make([]Code, 0, len(names))
	for _, n := range names {
		if c, ok := s.load(n); ok {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of indexed names.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names())
}

// load reads both record forms for an already-truncated name.
// Caller holds s.mu.
func (s *Store) load(trunc string) (Code, bool) {
	c := Code{Name: trunc, CarrierHz: irproto.DefaultCarrierHz}
	if rec := s.ns.GetString(codePrefix+trunc, ""); rec != "" {
		if cmd, ok := decodeRecord(rec); ok {
			c.Cmd = cmd
			c.HasCmd = true
		}
	}
	if rec := s.ns.GetString(rawPrefix+trunc, ""); rec != "" {
		if seq, ok := decodeRaw(rec); ok {
			c.Raw = seq
		}
	}
	return c, c.HasCmd || c.Raw != nil
}

// names reads the index. Caller holds s.mu.
func (s *Store) names() []string {
	raw := s.ns.GetString(keyIndex, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// writeNames rewrites the index, erasing the key when it would be empty.
// Caller holds s.mu.
func (s *Store) writeNames(names []string) error {
	if len(names) == 0 {
		if err := s.ns.EraseKey(keyIndex); err != nil {
			return &errcode.E{C: errcode.StorageFailed, Op: "codestore.index", Err: err}
		}
		return nil
	}
	if err := s.ns.SetString(keyIndex, strings.Join(names, ",")); err != nil {
		return &errcode.E{C: errcode.StorageFailed, Op: "codestore.index", Err: err}
	}
	return nil
}

// CleanName truncates and validates a user-supplied name. The comma check
// runs on the truncated form: that is what ends up inside the index.
func CleanName(name string) (string, error) {
	trunc := Truncate(name)
	if trunc == "" {
		return "", errcode.NameEmpty
	}
	if strings.ContainsRune(trunc, ',') {
		return "", errcode.NameInvalid
	}
	return trunc, nil
}

func contains(names []string, n string) bool {
	for _, v := range names {
		if v == n {
			return true
		}
	}
	return false
}

// ---- record codecs ----

// encodeRecord renders the protocol record. Field order matters: older
// images parse positionally.
func encodeRecord(cmd irproto.Command) string {
	b := make([]byte, 0, 64)
	var num [20]byte
	b = append(b, `{"protocol":`...)
	b = append(b, conv.Utoa(num[:], uint64(cmd.Protocol))...)
	b = append(b, `,"value":`...)
	b = append(b, conv.Utoa(num[:], cmd.Value)...)
	b = append(b, `,"bits":`...)
	b = append(b, conv.Utoa(num[:], uint64(cmd.Bits))...)
	b = append(b, '}')
	return string(b)
}

// decodeRecord parses the protocol record. It accepts the three known
// fields in any order and ignores unknown ones; anything malformed makes
// the record count as absent.
func decodeRecord(rec string) (irproto.Command, bool) {
	var cmd irproto.Command
	s := strings.TrimSpace(rec)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return cmd, false
	}
	s = s[1 : len(s)-1]
	seen := 0
	for _, field := range strings.Split(s, ",") {
		kv := strings.SplitN(field, ":", 2)
		if len(kv) != 2 {
			return cmd, false
		}
		key := strings.Trim(strings.TrimSpace(kv[0]), `"`)
		val := strings.TrimSpace(kv[1])
		switch key {
		case "protocol":
			n, err := strconvx.ParseUint(val, 10, 8)
			if err != nil || n > uint64(irproto.ProtocolRaw) {
				return cmd, false
			}
			cmd.Protocol = irproto.Protocol(n)
			seen |= 1
		case "value":
			n, err := strconvx.ParseUint(val, 10, 64)
			if err != nil {
				return cmd, false
			}
			cmd.Value = n
			seen |= 2
		case "bits":
			n, err := strconvx.ParseUint(val, 10, 16)
			if err != nil || n == 0 || n > 64 {
				return cmd, false
			}
			cmd.Bits = uint16(n)
			seen |= 4
		}
	}
	return cmd, seen == 7
}

// encodeRaw renders "<len>:<d0>,<d1>,...".
func encodeRaw(seq irproto.Pulses) string {
	var num [20]byte
	b := make([]byte, 0, len(seq)*6+8)
	b = append(b, conv.Utoa(num[:], uint64(len(seq)))...)
	b = append(b, ':')
	for i, d := range seq {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, conv.Utoa(num[:], uint64(d))...)
	}
	return string(b)
}

// decodeRaw parses the raw record, rejecting length mismatches.
func decodeRaw(rec string) (irproto.Pulses, bool) {
	head, rest, ok := strings.Cut(rec, ":")
	if !ok {
		return nil, false
	}
	n, err := strconvx.Atoi(head)
	if err != nil || n <= 0 || n > ircore.MaxPulses {
		return nil, false
	}
	parts := strings.Split(rest, ",")
	if len(parts) != n {
		return nil, false
	}
	seq := make(irproto.Pulses, n)
	for i, p := range parts {
		d, err := strconvx.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, false
		}
		seq[i] = uint32(d)
	}
	return seq, true
}
