package irproto

// Sony SIRC: 2.4 ms leader mark, 600 µs leader space, then pulse-width
// coded bits LSB-first (1200 µs mark = 1, 600 µs mark = 0, 600 µs space
// between bits). Frames are 12, 15 or 20 bits and end on a mark; the
// following silence is the inter-frame gap.
const (
	sonyHdrMark  = 2400
	sonyHdrSpace = 600
	sonyOneMark  = 1200
	sonyZeroMark = 600
	sonyBitSpace = 600
	sonyTol      = 200
	sonyGap      = 24000
)

func sonyBitsValid(n uint16) bool { return n == 12 || n == 15 || n == 20 }

func matchSony(seq Pulses) (Command, bool) {
	if len(seq) < 2+2*12-1 {
		return Command{}, false
	}
	if !near(seq[0], sonyHdrMark, sonyTol) || !near(seq[1], sonyHdrSpace, sonyTol) {
		return Command{}, false
	}
	var v uint64
	var bits uint16
	i := 2
	for i < len(seq) {
		mark := seq[i]
		switch {
		case near(mark, sonyOneMark, sonyTol):
			v |= 1 << bits
		case near(mark, sonyZeroMark, sonyTol):
		default:
			return Command{}, false
		}
		bits++
		if bits > 20 {
			return Command{}, false
		}
		i++
		if i >= len(seq) {
			break
		}
		space := seq[i]
		i++
		if near(space, sonyBitSpace, sonyTol) {
			continue
		}
		if space > sonyBitSpace+sonyTol {
			// Inter-frame gap: the frame ends here.
			break
		}
		return Command{}, false
	}
	if !sonyBitsValid(bits) {
		return Command{}, false
	}
	return Command{Protocol: ProtocolSony, Value: v, Bits: bits}, true
}

// sonyFrame renders a 12/15/20 bit frame; other bit counts render as 12.
func sonyFrame(v uint64, bits uint16) Pulses {
	if !sonyBitsValid(bits) {
		bits = 12
	}
	seq := make(Pulses, 0, 2+2*int(bits))
	seq = append(seq, sonyHdrMark, sonyHdrSpace)
	for i := uint16(0); i < bits; i++ {
		if v>>i&1 == 1 {
			seq = append(seq, sonyOneMark)
		} else {
			seq = append(seq, sonyZeroMark)
		}
		if i == bits-1 {
			seq = append(seq, sonyGap)
		} else {
			seq = append(seq, sonyBitSpace)
		}
	}
	return seq
}
