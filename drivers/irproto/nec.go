package irproto

// NEC: 9 ms leader mark, 4.5 ms leader space, then 32 bits pulse-distance
// coded (constant 560 µs mark; 1690 µs space = 1, 560 µs space = 0), closed
// by a 560 µs trailer mark. Bits accumulate MSB-first, so an LG TV power
// frame decodes as 0x20DF10EF.
const (
	necHdrMark   = 9000
	necHdrSpace  = 4500
	necBitMark   = 560
	necOneSpace  = 1690
	necZeroSpace = 560
	necTol       = 200
	necBits      = 32
	necGap       = 40000
)

func matchNEC(seq Pulses) (Command, bool) {
	// Leader, payload pairs, trailer mark. Trailing gap entries are allowed
	// and ignored.
	if len(seq) < 2+2*necBits {
		return Command{}, false
	}
	if !near(seq[0], necHdrMark, necTol) || !near(seq[1], necHdrSpace, necTol) {
		return Command{}, false
	}
	var v uint64
	for i := 0; i < necBits; i++ {
		mark := seq[2+2*i]
		space := seq[3+2*i]
		if !near(mark, necBitMark, necTol) {
			return Command{}, false
		}
		switch {
		case near(space, necOneSpace, necTol):
			v = v<<1 | 1
		case near(space, necZeroSpace, necTol):
			v = v << 1
		default:
			return Command{}, false
		}
	}
	return Command{Protocol: ProtocolNEC, Value: v, Bits: necBits}, true
}

// necFrame renders the low 32 bits of v. It is also the fallback frame shape
// for protocols without a renderer of their own.
func necFrame(v uint64) Pulses {
	seq := make(Pulses, 0, 2+2*necBits+2)
	seq = append(seq, necHdrMark, necHdrSpace)
	seq = appendPulseDistance(seq, v&0xFFFFFFFF, necBits, necBitMark, necOneSpace, necZeroSpace)
	return append(seq, necBitMark, necGap)
}
