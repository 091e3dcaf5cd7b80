package codestore

import (
	"voiceboard-go/x/conv"
	"voiceboard-go/x/fmtx"
	"voiceboard-go/x/mathx"
)

// ExportConstants renders every stored entry as C declarations, ready to
// paste into firmware that replays the same codes. Identifiers come from
// the stored names: uppercased, with anything outside [A-Za-z0-9] replaced
// by an underscore.
func (s *Store) ExportConstants() string {
	codes := s.List()
	b := make([]byte, 0, 256)
	b = append(b, "// IR code table exported from device storage.\n"...)
	b = append(b, "// Protocol ids: 1=NEC 2=RC5 3=RC6 4=SONY 5=SAMSUNG 6=COOLIX\n"...)
	if len(codes) == 0 {
		b = append(b, "// (no stored codes)\n"...)
		return string(b)
	}
	for _, c := range codes {
		id := ident(c.Name)
		if c.HasCmd {
			digits := int(mathx.CeilDiv(uint32(c.Cmd.Bits), 4))
			b = append(b, '\n')
			b = append(b, fmtx.Sprintf("#define IR_%s_PROTOCOL %d\n", id, int(c.Cmd.Protocol))...)
			b = append(b, "#define IR_"...)
			b = append(b, id...)
			b = append(b, "_VALUE 0x"...)
			b = conv.AppendUHex(b, c.Cmd.Value, digits)
			b = append(b, "ULL\n"...)
			b = append(b, fmtx.Sprintf("#define IR_%s_BITS %d\n", id, int(c.Cmd.Bits))...)
		}
		if c.Raw != nil {
			var num [20]byte
			b = append(b, '\n')
			b = append(b, "static const uint32_t IR_RAW_"...)
			b = append(b, id...)
			b = append(b, "[] = {"...)
			for i, d := range c.Raw {
				if i > 0 {
					b = append(b, ", "...)
				}
				b = append(b, conv.Utoa(num[:], uint64(d))...)
			}
			b = append(b, "};\n"...)
		}
	}
	return string(b)
}

func ident(name string) string {
	b := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			c = '_'
		}
		b[i] = c
	}
	return string(b)
}
