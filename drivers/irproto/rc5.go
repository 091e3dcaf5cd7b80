package irproto

// RC5: 14 Manchester bits of 1778 µs, two 889 µs half-symbols each. Polarity
// convention (held by both directions): 1 = space then mark, 0 = mark then
// space. The leading start bit is always 1 and is stripped from the decoded
// value, leaving 13 bits (field, toggle, 5 address, 6 command).
//
// The first half-symbol of the start bit is a space and merges into line
// idle, so a captured frame begins mid-bit; decode re-inserts it.
const (
	rc5Half  = 889
	rc5Tol   = 300
	rc5Bits  = 13
	rc5Gap   = 50000
	rc5Halfs = 2 * (rc5Bits + 1)
)

// rc5Quantize classifies one duration as 1 or 2 half-symbols, or 0 when it
// fits neither band.
func rc5Quantize(d uint32) int {
	if near(d, rc5Half, rc5Tol) {
		return 1
	}
	if near(d, 2*rc5Half, rc5Tol) {
		return 2
	}
	return 0
}

func matchRC5(seq Pulses) (Command, bool) {
	// Expand durations into half-symbol levels, starting from the implicit
	// idle half swallowed by the start bit.
	var halves [rc5Halfs]byte
	n := 0
	halves[n] = 0
	n++

	for i, d := range seq {
		level := byte(0)
		if i%2 == 0 {
			level = 1
		}
		q := rc5Quantize(d)
		if q == 0 {
			// A long final space is the inter-frame gap, not part of the
			// payload.
			if level == 0 && i == len(seq)-1 && d > 2*rc5Half+rc5Tol {
				break
			}
			return Command{}, false
		}
		if n+q > rc5Halfs {
			return Command{}, false
		}
		halves[n] = level
		if q == 2 {
			halves[n+1] = level
		}
		n += q
	}

	// Trailing space halves merge into idle; restore them.
	for n < rc5Halfs {
		halves[n] = 0
		n++
	}

	var v uint64
	for k := 0; k < rc5Bits+1; k++ {
		a, b := halves[2*k], halves[2*k+1]
		switch {
		case a == 0 && b == 1:
			v = v<<1 | 1
		case a == 1 && b == 0:
			v = v << 1
		default:
			return Command{}, false
		}
	}
	if v>>rc5Bits != 1 {
		// Start bit must be 1.
		return Command{}, false
	}
	return Command{Protocol: ProtocolRC5, Value: v & (1<<rc5Bits - 1), Bits: rc5Bits}, true
}

// rc5Frame renders the low 13 bits of v behind the fixed start bit.
func rc5Frame(v uint64) Pulses {
	word := uint64(1)<<rc5Bits | v&(1<<rc5Bits-1)
	var halves [rc5Halfs]byte
	for k := 0; k < rc5Bits+1; k++ {
		bit := word >> uint(rc5Bits-k) & 1
		if bit == 1 {
			halves[2*k], halves[2*k+1] = 0, 1
		} else {
			halves[2*k], halves[2*k+1] = 1, 0
		}
	}
	return mergeHalves(halves[:], rc5Half, rc5Gap)
}

// mergeHalves folds a level-per-half sequence into mark/space durations:
// leading and trailing idle halves are dropped and the inter-frame gap is
// appended, so the result starts on a mark and has even length.
func mergeHalves(halves []byte, unit, gap uint32) Pulses {
	start := 0
	for start < len(halves) && halves[start] == 0 {
		start++
	}
	end := len(halves)
	for end > start && halves[end-1] == 0 {
		end--
	}
	seq := make(Pulses, 0, end-start+2)
	for i := start; i < end; {
		j := i
		for j < end && halves[j] == halves[i] {
			j++
		}
		seq = append(seq, uint32(j-i)*unit)
		i = j
	}
	return append(seq, gap)
}
