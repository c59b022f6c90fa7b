package ba2

import (
	"errors"
	"io"
)

// MaxVarintLen is the longest encoding ReadUvarint accepts.
const MaxVarintLen = 10

var errVarintTooLong = errors.New("varint too long or truncated")

// ReadUvarint decodes a little-endian base-128 integer from the start of b.
// Each byte carries seven bits, lowest group first; a clear high bit ends the value.
// It returns the value and the number of bytes consumed.
func ReadUvarint(b []byte) (uint64, int, error) {
	var val uint64
	var n int
	for i := 0; i < len(b) && i < MaxVarintLen; i++ {
		c := b[i]
		val |= uint64(c&0x7F) << (7 * i)
		n++
		if c&0x80 == 0 {
			return val, n, nil
		}
	}
	if n == 0 {
		return 0, 0, io.ErrUnexpectedEOF
	}
	return 0, n, errVarintTooLong
}

// AppendUvarint appends the base-128 encoding of x to b.
func AppendUvarint(b []byte, x uint64) []byte {
	for x >= 0x80 {
		b = append(b, byte(x)|0x80)
		x >>= 7
	}
	return append(b, byte(x))
}
