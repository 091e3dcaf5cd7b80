package irproto

// Renderers for transmit-only protocols. These are not in the decode chain;
// anything captured from such a remote is kept as a raw code instead.

// Samsung: 4.5 ms/4.5 ms leader, NEC-style pulse-distance bits. Always sent
// as a fixed 36-bit pattern regardless of the stored bit count.
const (
	samsungHdrMark   = 4500
	samsungHdrSpace  = 4500
	samsungBitMark   = 560
	samsungOneSpace  = 1690
	samsungZeroSpace = 560
	samsungBits      = 36
	samsungGap       = 40000
)

func samsungFrame(v uint64) Pulses {
	seq := make(Pulses, 0, 2+2*samsungBits+2)
	seq = append(seq, samsungHdrMark, samsungHdrSpace)
	seq = appendPulseDistance(seq, v&(1<<samsungBits-1), samsungBits,
		samsungBitMark, samsungOneSpace, samsungZeroSpace)
	return append(seq, samsungBitMark, samsungGap)
}

// Coolix: long 4.7 ms/4.4 ms leader, pulse-distance bits. Always sent as a
// fixed 48-bit pattern.
const (
	coolixHdrMark   = 4692
	coolixHdrSpace  = 4416
	coolixBitMark   = 552
	coolixOneSpace  = 1656
	coolixZeroSpace = 552
	coolixBits      = 48
	coolixGap       = 40000
)

func coolixFrame(v uint64) Pulses {
	seq := make(Pulses, 0, 2+2*coolixBits+2)
	seq = append(seq, coolixHdrMark, coolixHdrSpace)
	seq = appendPulseDistance(seq, v&(1<<coolixBits-1), coolixBits,
		coolixBitMark, coolixOneSpace, coolixZeroSpace)
	return append(seq, coolixBitMark, coolixGap)
}

// RC6 mode 0: 2.666 ms/889 µs leader, then Manchester halves of 444 µs with
// polarity inverted relative to RC5 (1 = mark then space). Start bit 1,
// three mode bits, a double-width toggle, then the low 16 bits of the value.
const (
	rc6Unit     = 444
	rc6HdrMark  = 2666
	rc6HdrSpace = 889
	rc6DataBits = 16
	rc6Gap      = 2666
)

func rc6Frame(v uint64) Pulses {
	// start(1) + mode(000) as single halves, toggle(0) as double halves,
	// then data MSB-first.
	halves := make([]byte, 0, 2*(4+rc6DataBits)+4)
	one := func(w int) { // 1 = mark then space
		for i := 0; i < w; i++ {
			halves = append(halves, 1)
		}
		for i := 0; i < w; i++ {
			halves = append(halves, 0)
		}
	}
	zero := func(w int) {
		for i := 0; i < w; i++ {
			halves = append(halves, 0)
		}
		for i := 0; i < w; i++ {
			halves = append(halves, 1)
		}
	}
	one(1)  // start
	zero(1) // mode bit 2
	zero(1) // mode bit 1
	zero(1) // mode bit 0
	zero(2) // toggle, double width
	for i := rc6DataBits - 1; i >= 0; i-- {
		if v>>uint(i)&1 == 1 {
			one(1)
		} else {
			zero(1)
		}
	}

	body := mergeHalves(halves, rc6Unit, rc6Gap)
	seq := make(Pulses, 0, len(body)+2)
	seq = append(seq, rc6HdrMark, rc6HdrSpace)
	return append(seq, body...)
}

// Marshal renders a command as a transmit-ready timing sequence. Protocols
// without a renderer degrade to the NEC frame shape; Raw and Unknown have no
// frame of their own and degrade the same way (callers holding a raw capture
// should transmit that directly instead).
func Marshal(cmd Command) Pulses {
	switch cmd.Protocol {
	case ProtocolRC5:
		return rc5Frame(cmd.Value)
	case ProtocolRC6:
		return rc6Frame(cmd.Value)
	case ProtocolSony:
		return sonyFrame(cmd.Value, cmd.Bits)
	case ProtocolSamsung:
		return samsungFrame(cmd.Value)
	case ProtocolCoolix:
		return coolixFrame(cmd.Value)
	default:
		return necFrame(cmd.Value)
	}
}
