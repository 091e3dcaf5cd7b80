// Package irproto decodes and renders consumer IR remote-control frames as
// mark/space timing sequences. It is pure computation over static timing
// tables:
//
//	cmd, ok := irproto.Decode(pulses) // ok=false: keep pulses as a raw code
//	frame := irproto.Marshal(cmd)     // timing sequence for a transmitter
//
// Decoding tries NEC, then RC5, then Sony; the first match wins and a single
// out-of-tolerance pulse only fails that one matcher. Rendering additionally
// supports Samsung (fixed 36 bits), Coolix (fixed 48 bits) and RC6 mode 0;
// protocols without a renderer fall back to the NEC frame shape.
//
// NOTE: RC5 Manchester polarity here is first-half space = 1, held
// symmetrically by Decode and Marshal. Interoperability with physical RC5
// remotes has not been verified against reference hardware.
package irproto

// Protocol identifies an IR encoding scheme. The numeric values are stored
// on flash and must stay stable.
type Protocol uint8

const (
	ProtocolUnknown Protocol = 0
	ProtocolNEC     Protocol = 1
	ProtocolRC5     Protocol = 2
	ProtocolRC6     Protocol = 3
	ProtocolSony    Protocol = 4
	ProtocolSamsung Protocol = 5
	ProtocolCoolix  Protocol = 6
	ProtocolRaw     Protocol = 7
)

func (p Protocol) String() string {
	switch p {
	case ProtocolNEC:
		return "NEC"
	case ProtocolRC5:
		return "RC5"
	case ProtocolRC6:
		return "RC6"
	case ProtocolSony:
		return "SONY"
	case ProtocolSamsung:
		return "SAMSUNG"
	case ProtocolCoolix:
		return "COOLIX"
	case ProtocolRaw:
		return "RAW"
	default:
		return "UNKNOWN"
	}
}

// DefaultCarrierHz is the modulation frequency assumed when a code does not
// carry its own.
const DefaultCarrierHz uint32 = 38000

// CarrierHz returns the carrier frequency a protocol is modulated at.
func CarrierHz(p Protocol) uint32 {
	switch p {
	case ProtocolSony:
		return 40000
	case ProtocolRC5, ProtocolRC6:
		return 36000
	default:
		return DefaultCarrierHz
	}
}

// Pulses is a timing sequence in microseconds, alternating mark/space and
// starting with a mark.
type Pulses []uint32

// Command is one decoded remote-control code.
type Command struct {
	Protocol Protocol
	Value    uint64
	Bits     uint16
}

// Valid reports whether a decode result is usable at all. Results outside
// the protocol enum or with a bit count outside [1,64] are noise. Unknown
// results are acceptable only when the hardware recovered a plausible
// payload (8..64 bits, non-zero value); those are savable but unidentified.
func Valid(c Command) bool {
	if c.Protocol > ProtocolRaw {
		return false
	}
	if c.Bits < 1 || c.Bits > 64 {
		return false
	}
	if c.Protocol == ProtocolUnknown {
		return c.Bits >= 8 && c.Value != 0
	}
	if c.Protocol != ProtocolRaw && c.Bits < 64 && c.Value>>c.Bits != 0 {
		return false
	}
	return true
}

// Identified reports whether c names a concrete protocol.
func Identified(c Command) bool {
	return c.Protocol != ProtocolUnknown && c.Protocol != ProtocolRaw
}

// near reports whether d lies within want±tol. All timing tables keep
// want > tol, so the subtraction cannot wrap.
func near(d, want, tol uint32) bool {
	return d >= want-tol && d <= want+tol
}

// appendPulseDistance renders bits of v MSB-first in pulse-distance form:
// constant bit mark, space width selects the bit value.
func appendPulseDistance(dst Pulses, v uint64, bits uint16, bitMark, oneSpace, zeroSpace uint32) Pulses {
	for i := int(bits) - 1; i >= 0; i-- {
		dst = append(dst, bitMark)
		if v>>uint(i)&1 == 1 {
			dst = append(dst, oneSpace)
		} else {
			dst = append(dst, zeroSpace)
		}
	}
	return dst
}
