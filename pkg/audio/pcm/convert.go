// ABOUTME: Pairwise conversion graph
// ABOUTME: Typed and table-driven sample conversion between any two formats
package pcm

import "fmt"

// Convert converts one sample between two formats. The pair is fixed by the
// codec types at compile time. Converting a format to itself returns s
// unchanged.
func Convert[S, D Sample](from Codec[S], to Codec[D], s S) D {
	if from.format == to.format {
		if d, ok := any(s).(D); ok {
			return d
		}
	}
	return to.fromS32(from.toS32(s))
}

// Converter converts one little-endian encoded sample from src into dst.
// src and dst must hold at least one sample of their formats.
type Converter func(dst, src []byte)

// link specializes Convert for one codec pair over encoded bytes
func link[S, D Sample](from Codec[S], to Codec[D]) Converter {
	if from.format == to.format {
		n := from.format.BytesPerSample()
		return func(dst, src []byte) { copy(dst[:n], src[:n]) }
	}
	return func(dst, src []byte) {
		to.store(dst, to.fromS32(from.toS32(from.load(src))))
	}
}

// row builds every conversion out of one source format, indexed by target
func row[S Sample](from Codec[S]) [numFormats]Converter {
	return [numFormats]Converter{
		Float:   link(from, FloatCodec),
		Double:  link(from, DoubleCodec),
		U8:      link(from, U8Codec),
		S16:     link(from, S16Codec),
		S24:     link(from, S24Codec),
		S32:     link(from, S32Codec),
		S16of32: link(from, S16of32Codec),
		S18of32: link(from, S18of32Codec),
		S20of32: link(from, S20of32Codec),
		S24of32: link(from, S24of32Codec),
	}
}

// graph[from][to] holds the converter of every pair; the Unknown row and
// column stay nil.
var graph = [numFormats][numFormats]Converter{
	Float:   row(FloatCodec),
	Double:  row(DoubleCodec),
	U8:      row(U8Codec),
	S16:     row(S16Codec),
	S24:     row(S24Codec),
	S32:     row(S32Codec),
	S16of32: row(S16of32Codec),
	S18of32: row(S18of32Codec),
	S20of32: row(S20of32Codec),
	S24of32: row(S24of32Codec),
}

// Lookup returns the converter for a format pair
func Lookup(from, to SampleFormat) (Converter, error) {
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownFormat, from, to)
	}
	return graph[from][to], nil
}

// ConvertBlock converts every whole sample in src (format from) into dst
// (format to) and returns the number of samples converted.
func ConvertBlock(dst []byte, to SampleFormat, src []byte, from SampleFormat) (int, error) {
	conv, err := Lookup(from, to)
	if err != nil {
		return 0, err
	}

	inSize := from.BytesPerSample()
	outSize := to.BytesPerSample()
	n := len(src) / inSize
	if len(dst) < n*outSize {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n*outSize, len(dst))
	}

	for i := 0; i < n; i++ {
		conv(dst[i*outSize:], src[i*inSize:])
	}
	return n, nil
}
