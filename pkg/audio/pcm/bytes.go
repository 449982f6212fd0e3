// ABOUTME: Byte-level helpers for encoded sample blocks
// ABOUTME: Byte order reversal, silence fill and integer sample packing
package pcm

// ReverseBytes reverses the byte order of every whole sample in block, in
// place, converting between little- and big-endian storage of format f.
func ReverseBytes(f SampleFormat, block []byte) {
	size := f.BytesPerSample()
	if size < 2 {
		return
	}
	for off := 0; off+size <= len(block); off += size {
		s := block[off : off+size]
		for i, j := 0, size-1; i < j; i, j = i+1, j-1 {
			s[i], s[j] = s[j], s[i]
		}
	}
}

// Silence fills block with the zero-level sample of format f. That is 0x80
// for U8 and all-zero bytes for every signed and float format.
func Silence(f SampleFormat, block []byte) {
	fill := byte(0)
	if f == U8 {
		fill = 0x80
	}
	for i := range block {
		block[i] = fill
	}
}

// Ints decodes the integer samples of block into dst and returns how many
// were decoded. Values keep their native range (U8 stays 0..255). Float
// formats decode nothing.
func Ints(f SampleFormat, dst []int, block []byte) int {
	size := f.BytesPerSample()
	if f.IsFloat() || size == 0 {
		return 0
	}
	n := min(len(dst), len(block)/size)
	for i := 0; i < n; i++ {
		b := block[i*size:]
		switch f {
		case U8:
			dst[i] = int(U8Codec.Load(b))
		case S16:
			dst[i] = int(S16Codec.Load(b))
		case S24:
			dst[i] = int(S24Codec.Load(b).Int32())
		default:
			dst[i] = int(justifiedCodec(f).Load(b))
		}
	}
	return n
}

// PutInts encodes src as integer samples of format f into block and returns
// how many were encoded. Values are truncated to the width of the format.
func PutInts(f SampleFormat, block []byte, src []int) int {
	size := f.BytesPerSample()
	if f.IsFloat() || size == 0 {
		return 0
	}
	n := min(len(src), len(block)/size)
	for i := 0; i < n; i++ {
		b := block[i*size:]
		switch f {
		case U8:
			U8Codec.Store(b, uint8(src[i]))
		case S16:
			S16Codec.Store(b, int16(src[i]))
		case S24:
			S24Codec.Store(b, Int24FromInt32(int32(src[i])))
		default:
			justifiedCodec(f).Store(b, int32(src[i]))
		}
	}
	return n
}

// justifiedCodec returns the codec of S32 or one of the Nof32 formats
func justifiedCodec(f SampleFormat) Codec[int32] {
	switch f {
	case S16of32:
		return S16of32Codec
	case S18of32:
		return S18of32Codec
	case S20of32:
		return S20of32Codec
	case S24of32:
		return S24of32Codec
	default:
		return S32Codec
	}
}
