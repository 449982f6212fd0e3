// ABOUTME: Packed 24-bit integer type
// ABOUTME: Three byte little-endian two's complement storage for 24-bit PCM
package pcm

import "math"

const (
	// 24-bit audio range constants
	MaxInt24 = math.MaxInt32 >> 8 // 2^23 - 1
	MinInt24 = math.MinInt32 >> 8 // -2^23
)

// Int24 is a signed 24-bit integer stored as 3 little-endian bytes.
// It has no padding and byte alignment, so []Int24 maps 1:1 onto packed
// 24-bit PCM data.
type Int24 [3]byte

// Int24FromInt32 stores the low 24 bits of v. The value is shifted into the
// top three bytes of a 32-bit word first so the sign bit lands in bit 7 of
// the most significant stored byte.
func Int24FromInt32(v int32) Int24 {
	u := uint32(v << 8)
	return Int24{byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

// Int32 returns the value sign-extended to 32 bits
func (s Int24) Int32() int32 {
	v := int32(int8(s[2])) << 16
	v |= int32(s[1]) << 8
	v |= int32(s[0])
	return v
}

// LoadInt24 reads a packed sample from the first 3 bytes of b
func LoadInt24(b []byte) Int24 {
	_ = b[2]
	return Int24{b[0], b[1], b[2]}
}

// Put writes the packed sample into the first 3 bytes of b
func (s Int24) Put(b []byte) {
	_ = b[2]
	b[0], b[1], b[2] = s[0], s[1], s[2]
}
