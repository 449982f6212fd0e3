// ABOUTME: Sample format tags
// ABOUTME: Describes the scalar PCM encodings the conversion graph understands
package pcm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFormat is returned when a conversion involves the Unknown format
	ErrUnknownFormat = errors.New("unknown sample format")

	// ErrShortBuffer is returned when a destination buffer cannot hold the result
	ErrShortBuffer = errors.New("destination buffer too small")
)

// SampleFormat identifies the encoding of one PCM sample
type SampleFormat uint8

const (
	Unknown SampleFormat = iota
	Float                // 32-bit IEEE float, [-1.0, 1.0)
	Double               // 64-bit IEEE float, [-1.0, 1.0)
	U8                   // unsigned 8-bit, silence at 128
	S16                  // signed 16-bit
	S24                  // signed 24-bit, packed in 3 bytes
	S32                  // signed 32-bit
	S16of32              // signed 16-bit, sign-extended in a 32-bit container
	S18of32              // signed 18-bit, sign-extended in a 32-bit container
	S20of32              // signed 20-bit, sign-extended in a 32-bit container
	S24of32              // signed 24-bit, sign-extended in a 32-bit container

	numFormats = iota
)

var formatNames = [numFormats]string{
	Unknown: "unknown",
	Float:   "f32",
	Double:  "f64",
	U8:      "u8",
	S16:     "s16",
	S24:     "s24",
	S32:     "s32",
	S16of32: "s16of32",
	S18of32: "s18of32",
	S20of32: "s20of32",
	S24of32: "s24of32",
}

// aliases accepted by ParseSampleFormat in addition to the canonical names
var formatAliases = map[string]SampleFormat{
	"float":     Float,
	"float32":   Float,
	"f32le":     Float,
	"double":    Double,
	"float64":   Double,
	"f64le":     Double,
	"u8le":      U8,
	"s16le":     S16,
	"s24le":     S24,
	"s32le":     S32,
	"s16of32le": S16of32,
	"s18of32le": S18of32,
	"s20of32le": S20of32,
	"s24of32le": S24of32,
}

// Formats returns every concrete sample format, excluding Unknown
func Formats() []SampleFormat {
	out := make([]SampleFormat, 0, numFormats-1)
	for f := Float; f < numFormats; f++ {
		out = append(out, f)
	}
	return out
}

// ParseSampleFormat parses a format name such as "s16", "S24of32" or "f32le"
func ParseSampleFormat(name string) (SampleFormat, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for f := Float; f < numFormats; f++ {
		if formatNames[f] == key {
			return f, nil
		}
	}
	if f, ok := formatAliases[key]; ok {
		return f, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Valid reports whether f is a concrete, known format
func (f SampleFormat) Valid() bool {
	return f > Unknown && f < numFormats
}

func (f SampleFormat) String() string {
	if f < numFormats {
		return formatNames[f]
	}
	return fmt.Sprintf("SampleFormat(%d)", uint8(f))
}

// BytesPerSample returns the storage size of one sample
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case U8:
		return 1
	case S16:
		return 2
	case S24:
		return 3
	case Float, S32, S16of32, S18of32, S20of32, S24of32:
		return 4
	case Double:
		return 8
	default:
		return 0
	}
}

// Bits returns the number of significant bits of the format
func (f SampleFormat) Bits() int {
	switch f {
	case U8:
		return 8
	case S16, S16of32:
		return 16
	case S18of32:
		return 18
	case S20of32:
		return 20
	case S24, S24of32:
		return 24
	case Float, S32:
		return 32
	case Double:
		return 64
	default:
		return 0
	}
}

// IsFloat reports whether samples are IEEE floating point
func (f SampleFormat) IsFloat() bool {
	return f == Float || f == Double
}

// MarshalText implements encoding.TextMarshaler
func (f SampleFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *SampleFormat) UnmarshalText(text []byte) error {
	parsed, err := ParseSampleFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
