// ABOUTME: Sample format conversion package
// ABOUTME: Bit-exact conversions between fixed and floating point PCM layouts
// Package pcm converts single PCM samples between storage layouts.
//
// Supported formats are 32/64-bit IEEE floats, unsigned 8-bit (offset 128),
// signed 16/32-bit, packed 3-byte 24-bit and the right-justified
// 16/18/20/24-bit-in-32 containers.
//
// The conversion graph is built from four primitive int/float conversions
// (S24<->Float and S32<->Double) plus arithmetic shifts between integer
// widths. No rounding, dithering or clipping is added, so round trips through
// a wider format are exact.
//
// Typed use, resolved at compile time:
//
//	f := pcm.Convert(pcm.S16Codec, pcm.FloatCodec, int16(-1234))
//	s := pcm.Convert(pcm.FloatCodec, pcm.S16Codec, f) // == -1234
//
// Runtime use on encoded little-endian samples:
//
//	conv, err := pcm.Lookup(pcm.S16, pcm.S24)
//	conv(dst[:3], src[:2])
package pcm
