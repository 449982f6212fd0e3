// ABOUTME: Tests for the packed 24-bit integer type
// ABOUTME: Verifies layout, byte order and exhaustive round trips
package pcm

import (
	"testing"
	"unsafe"
)

func TestInt24Layout(t *testing.T) {
	if size := unsafe.Sizeof(Int24{}); size != 3 {
		t.Errorf("expected size 3, got %d", size)
	}
	if align := unsafe.Alignof(Int24{}); align != 1 {
		t.Errorf("expected alignment 1, got %d", align)
	}
	var arr [10]Int24
	if size := unsafe.Sizeof(arr); size != 30 {
		t.Errorf("expected [10]Int24 to occupy 30 bytes, got %d", size)
	}
}

func TestInt24FromInt32(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected Int24
	}{
		{"zero", 0, Int24{0, 0, 0}},
		{"positive", 0x123456, Int24{0x56, 0x34, 0x12}},
		{"negative", -256, Int24{0x00, 0xFF, 0xFF}},
		{"minus one", -1, Int24{0xFF, 0xFF, 0xFF}},
		{"max", MaxInt24, Int24{0xFF, 0xFF, 0x7F}},
		{"min", MinInt24, Int24{0x00, 0x00, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Int24FromInt32(tt.input)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestInt24Int32(t *testing.T) {
	tests := []struct {
		name     string
		input    Int24
		expected int32
	}{
		{"zero", Int24{0, 0, 0}, 0},
		{"positive", Int24{0x56, 0x34, 0x12}, 0x123456},
		{"negative", Int24{0x00, 0xFF, 0xFF}, -256},
		{"max positive", Int24{0xFF, 0xFF, 0x7F}, MaxInt24},
		{"max negative", Int24{0x00, 0x00, 0x80}, MinInt24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.input.Int32()
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestInt24RoundTrip(t *testing.T) {
	for v := int32(MinInt24); v <= MaxInt24; v++ {
		if got := Int24FromInt32(v).Int32(); got != v {
			t.Fatalf("round-trip failed: %d -> %d", v, got)
		}
	}
}

func TestInt24LoadPut(t *testing.T) {
	buf := []byte{0xAA, 0x56, 0x34, 0x12, 0xBB}
	s := LoadInt24(buf[1:])
	if s.Int32() != 0x123456 {
		t.Errorf("expected 0x123456, got %#x", s.Int32())
	}

	out := make([]byte, 5)
	Int24FromInt32(-2).Put(out[1:])
	expected := []byte{0x00, 0xFE, 0xFF, 0xFF, 0x00}
	for i := range expected {
		if out[i] != expected[i] {
			t.Fatalf("byte %d: expected %#x, got %#x", i, expected[i], out[i])
		}
	}
}
