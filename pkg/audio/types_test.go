// ABOUTME: Tests for audio types
// ABOUTME: Tests format validation and block allocation
package audio

import (
	"errors"
	"testing"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
)

func TestFormatFrameSize(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		expected int
	}{
		{"stereo s16", Format{48000, 2, pcm.S16}, 4},
		{"stereo s24", Format{192000, 2, pcm.S24}, 6},
		{"mono u8", Format{8000, 1, pcm.U8}, 1},
		{"5.1 f64", Format{48000, 6, pcm.Double}, 48},
		{"stereo s20of32", Format{96000, 2, pcm.S20of32}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.FrameSize(); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{"valid", Format{44100, 2, pcm.S16}, false},
		{"zero rate", Format{0, 2, pcm.S16}, true},
		{"negative channels", Format{44100, -1, pcm.S16}, true},
		{"unknown sample format", Format{44100, 2, pcm.Unknown}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestFormatSameLayout(t *testing.T) {
	a := Format{48000, 2, pcm.S16}
	if !a.SameLayout(Format{48000, 2, pcm.Float}) {
		t.Error("sample format must not affect layout")
	}
	if a.SameLayout(Format{44100, 2, pcm.S16}) {
		t.Error("different rates must not share a layout")
	}
	if a.SameLayout(Format{48000, 1, pcm.S16}) {
		t.Error("different channel counts must not share a layout")
	}
}

func TestNewBlock(t *testing.T) {
	b := NewBlock(pcm.S24, 3, 100)
	if len(b.Planes) != 3 {
		t.Fatalf("expected 3 planes, got %d", len(b.Planes))
	}
	for i, plane := range b.Planes {
		if len(plane) != 300 {
			t.Errorf("plane %d: expected 300 bytes, got %d", i, len(plane))
		}
	}
	if b.Frames != 100 {
		t.Errorf("expected 100 frames, got %d", b.Frames)
	}
}

func TestBlockSilence(t *testing.T) {
	b := NewBlock(pcm.U8, 2, 4)
	b.Planes[0][1] = 7
	b.Silence()
	for _, plane := range b.Planes {
		for _, v := range plane {
			if v != 0x80 {
				t.Fatalf("expected U8 silence 0x80, got %#x", v)
			}
		}
	}
}
