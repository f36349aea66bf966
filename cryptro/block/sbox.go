package block

import "crypto/subtle"

// lookup returns table[idx] by reading all 256 entries and keeping the one
// whose index matches, selected with a mask.
func lookup(table *[256]byte, idx byte) byte {
	var out byte
	for i := 0; i < 256; i++ {
		mask := byte(subtle.ConstantTimeByteEq(byte(i), idx)) * 0xff
		out |= table[i] & mask
	}
	return out
}

// substitute replaces every byte of buf through table.
func substitute(table *[256]byte, buf []byte) {
	for i, b := range buf {
		buf[i] = lookup(table, b)
	}
}

func xorInto(dst, key []byte) {
	subtle.XORBytes(dst, dst, key)
}
