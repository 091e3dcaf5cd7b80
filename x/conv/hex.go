package conv

const hexd = "0123456789ABCDEF"

// U32Hex writes 8-digit uppercase hex without 0x, zero-padded.
func U32Hex(buf []byte, n uint32) []byte {
	return UHex(buf, uint64(n), 8)
}

// UHex writes fixed-width uppercase hex without 0x, zero-padded to digits.
// Values wider than digits are truncated to their low digits*4 bits.
func UHex(buf []byte, n uint64, digits int) []byte {
	if digits <= 0 || digits > 16 || len(buf) < digits {
		return buf[:0]
	}
	i := len(buf)
	for j := 0; j < digits; j++ {
		i--
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	return buf[i:]
}

// AppendUHex appends fixed-width uppercase hex to dst.
func AppendUHex(dst []byte, n uint64, digits int) []byte {
	var tmp [16]byte
	return append(dst, UHex(tmp[:], n, digits)...)
}
