// ABOUTME: Tests for sample format tags
// ABOUTME: Tests parsing, naming and size information
package pcm

import (
	"errors"
	"testing"
)

func TestParseSampleFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected SampleFormat
	}{
		{"f32", Float},
		{"FLOAT", Float},
		{"f64le", Double},
		{"u8", U8},
		{"s16le", S16},
		{" s24 ", S24},
		{"S32", S32},
		{"s16of32", S16of32},
		{"S18of32LE", S18of32},
		{"s20of32", S20of32},
		{"s24of32le", S24of32},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSampleFormat(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestParseSampleFormatRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "unknown", "s12", "pcm"} {
		if _, err := ParseSampleFormat(input); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("%q: expected ErrUnknownFormat, got %v", input, err)
		}
	}
}

func TestFormatSizes(t *testing.T) {
	tests := []struct {
		format SampleFormat
		bytes  int
		bits   int
	}{
		{Unknown, 0, 0},
		{Float, 4, 32},
		{Double, 8, 64},
		{U8, 1, 8},
		{S16, 2, 16},
		{S24, 3, 24},
		{S32, 4, 32},
		{S16of32, 4, 16},
		{S18of32, 4, 18},
		{S20of32, 4, 20},
		{S24of32, 4, 24},
	}

	for _, tt := range tests {
		if got := tt.format.BytesPerSample(); got != tt.bytes {
			t.Errorf("%s: expected %d bytes, got %d", tt.format, tt.bytes, got)
		}
		if got := tt.format.Bits(); got != tt.bits {
			t.Errorf("%s: expected %d bits, got %d", tt.format, tt.bits, got)
		}
	}
}

func TestFormatsListsConcreteFormats(t *testing.T) {
	formats := Formats()
	if len(formats) != 10 {
		t.Fatalf("expected 10 formats, got %d", len(formats))
	}
	for _, f := range formats {
		if !f.Valid() {
			t.Errorf("%s should be valid", f)
		}
		parsed, err := ParseSampleFormat(f.String())
		if err != nil || parsed != f {
			t.Errorf("%s does not parse back from its name", f)
		}
	}
	if Unknown.Valid() {
		t.Error("Unknown should not be valid")
	}
}

func TestSampleFormatText(t *testing.T) {
	var f SampleFormat
	if err := f.UnmarshalText([]byte("s20of32")); err != nil {
		t.Fatal(err)
	}
	if f != S20of32 {
		t.Errorf("expected S20of32, got %s", f)
	}

	text, err := S24.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "s24" {
		t.Errorf("expected s24, got %s", text)
	}

	if SampleFormat(99).String() != "SampleFormat(99)" {
		t.Errorf("unexpected name for out-of-range tag: %s", SampleFormat(99))
	}
}
