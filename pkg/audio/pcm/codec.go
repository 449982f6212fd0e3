// ABOUTME: Typed per-format codecs
// ABOUTME: Shift relations and little-endian storage for every sample format
package pcm

import (
	"encoding/binary"
	"math"
)

// Sample is the set of Go types samples are held in
type Sample interface {
	uint8 | int16 | Int24 | int32 | float32 | float64
}

// Codec describes one sample format held in Go type T.
//
// Every format is related to a left-justified signed 32-bit word ("hub"):
// integer formats reach it with arithmetic shifts, Float goes through the
// S24 primitives and Double through the S32 primitives. Composing two
// codecs through the hub gives exactly the same result as the direct shift
// between the two widths, because widening to 32 bits never loses a bit.
type Codec[T Sample] struct {
	format  SampleFormat
	toS32   func(T) int32
	fromS32 func(int32) T
	load    func([]byte) T
	store   func([]byte, T)
}

// Format returns the tag of the codec
func (c Codec[T]) Format() SampleFormat { return c.format }

// Load decodes one little-endian sample from b
func (c Codec[T]) Load(b []byte) T { return c.load(b) }

// Store encodes one little-endian sample into b
func (c Codec[T]) Store(b []byte, s T) { c.store(b, s) }

var (
	U8Codec = Codec[uint8]{
		format:  U8,
		toS32:   func(s uint8) int32 { return (int32(s) - 128) << 24 },
		fromS32: func(v int32) uint8 { return uint8((v >> 24) + 128) },
		load:    func(b []byte) uint8 { return b[0] },
		store:   func(b []byte, s uint8) { b[0] = s },
	}

	S16Codec = Codec[int16]{
		format:  S16,
		toS32:   func(s int16) int32 { return int32(s) << 16 },
		fromS32: func(v int32) int16 { return int16(v >> 16) },
		load:    func(b []byte) int16 { return int16(binary.LittleEndian.Uint16(b)) },
		store:   func(b []byte, s int16) { binary.LittleEndian.PutUint16(b, uint16(s)) },
	}

	S24Codec = Codec[Int24]{
		format:  S24,
		toS32:   func(s Int24) int32 { return s.Int32() << 8 },
		fromS32: func(v int32) Int24 { return Int24FromInt32(v >> 8) },
		load:    LoadInt24,
		store:   func(b []byte, s Int24) { s.Put(b) },
	}

	S32Codec = Codec[int32]{
		format:  S32,
		toS32:   func(s int32) int32 { return s },
		fromS32: func(v int32) int32 { return v },
		load:    loadInt32,
		store:   storeInt32,
	}

	S16of32Codec = justified(S16of32, 16)
	S18of32Codec = justified(S18of32, 18)
	S20of32Codec = justified(S20of32, 20)
	S24of32Codec = justified(S24of32, 24)

	FloatCodec = Codec[float32]{
		format:  Float,
		toS32:   func(f float32) int32 { return FloatToS24(f).Int32() << 8 },
		fromS32: func(v int32) float32 { return S24ToFloat(Int24FromInt32(v >> 8)) },
		load:    func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) },
		store:   func(b []byte, f float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(f)) },
	}

	DoubleCodec = Codec[float64]{
		format:  Double,
		toS32:   DoubleToS32,
		fromS32: S32ToDouble,
		load:    func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) },
		store:   func(b []byte, d float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(d)) },
	}
)

// justified builds the codec of an N-bit value right-justified in 32 bits.
// Loading shift-cancels the container so bits above N are ignored and the
// value is re-sign-extended from bit N-1.
func justified(format SampleFormat, bits uint) Codec[int32] {
	pad := 32 - bits
	return Codec[int32]{
		format:  format,
		toS32:   func(s int32) int32 { return s << pad },
		fromS32: func(v int32) int32 { return v >> pad },
		load:    func(b []byte) int32 { return loadInt32(b) << pad >> pad },
		store:   storeInt32,
	}
}

func loadInt32(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }

func storeInt32(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) }

// Primitive int/float conversions. All other int/float pairs go through these.

const (
	s24Scale = MaxInt24 + 1.0      // 2^23
	s32Scale = math.MaxInt32 + 1.0 // 2^31
)

// S24ToFloat maps a 24-bit sample onto [-1.0, 1.0)
func S24ToFloat(s Int24) float32 {
	return float32(s.Int32()) / s24Scale
}

// FloatToS24 scales f by 2^23 and truncates toward zero. Inputs outside
// [-1.0, 1.0) and NaN saturate instead of wrapping.
func FloatToS24(f float32) Int24 {
	v := f * s24Scale
	switch {
	case math.IsNaN(float64(v)):
		return Int24{}
	case v >= s24Scale:
		return Int24FromInt32(MaxInt24)
	case v < -s24Scale:
		return Int24FromInt32(MinInt24)
	}
	return Int24FromInt32(int32(v))
}

// S32ToDouble maps a 32-bit sample onto [-1.0, 1.0)
func S32ToDouble(s int32) float64 {
	return float64(s) / s32Scale
}

// DoubleToS32 scales d by 2^31 and truncates toward zero. Inputs outside
// [-1.0, 1.0) and NaN saturate instead of wrapping.
func DoubleToS32(d float64) int32 {
	v := d * s32Scale
	switch {
	case math.IsNaN(v):
		return 0
	case v >= s32Scale:
		return math.MaxInt32
	case v < -s32Scale:
		return math.MinInt32
	}
	return int32(v)
}
