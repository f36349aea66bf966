package cryptro

import "crypto/subtle"

// pad appends n bytes of value n, 1 <= n <= size, so the result is a
// non-empty multiple of size. size must not exceed 255.
func pad(data []byte, size int) []byte {
	n := size - len(data)%size
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// unpad strips the padding added by pad. The last size bytes are always
// inspected and the verdict is accumulated with masks, so timing does not
// reveal which check failed.
func unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 || len(data)%size != 0 {
		return nil, ErrInvalidPadding
	}
	last := len(data) - 1
	n := int(data[last])

	good := subtle.ConstantTimeLessOrEq(1, n) & subtle.ConstantTimeLessOrEq(n, size)
	for i := 0; i < size; i++ {
		inPad := subtle.ConstantTimeLessOrEq(i+1, n)
		match := subtle.ConstantTimeByteEq(data[last-i], byte(n))
		good &= subtle.ConstantTimeSelect(inPad, match, 1)
	}
	if good != 1 {
		return nil, ErrInvalidPadding
	}
	return data[:len(data)-n], nil
}
