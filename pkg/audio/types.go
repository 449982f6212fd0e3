// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats and planar sample blocks
package audio

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
)

// ErrInvalidFormat is returned by Format.Validate
var ErrInvalidFormat = errors.New("invalid audio format")

// Format describes a PCM stream
type Format struct {
	SampleRate   int
	Channels     int
	SampleFormat pcm.SampleFormat
}

// FrameSize returns the size in bytes of one interleaved frame
func (f Format) FrameSize() int {
	return f.Channels * f.SampleFormat.BytesPerSample()
}

// Validate checks that the format can describe a real stream
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: %d channels", ErrInvalidFormat, f.Channels)
	}
	if !f.SampleFormat.Valid() {
		return fmt.Errorf("%w: sample format %s", ErrInvalidFormat, f.SampleFormat)
	}
	return nil
}

// SameLayout reports whether two formats share rate and channel count, the
// only properties conversion cannot change.
func (f Format) SameLayout(other Format) bool {
	return f.SampleRate == other.SampleRate && f.Channels == other.Channels
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.Channels, f.SampleFormat)
}

// Block is a fixed-size planar run of samples, one byte plane per channel.
// A block is owned by exactly one goroutine at a time; handing it to a queue
// transfers ownership.
type Block struct {
	Format pcm.SampleFormat
	Frames int
	Planes [][]byte
}

// NewBlock allocates a block of frames samples per channel
func NewBlock(format pcm.SampleFormat, channels, frames int) *Block {
	planes := make([][]byte, channels)
	size := frames * format.BytesPerSample()
	for i := range planes {
		planes[i] = make([]byte, size)
	}
	return &Block{
		Format: format,
		Frames: frames,
		Planes: planes,
	}
}

// Silence fills every plane with the format's zero level
func (b *Block) Silence() {
	for _, plane := range b.Planes {
		pcm.Silence(b.Format, plane)
	}
}
