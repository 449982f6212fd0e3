// ABOUTME: Raw PCM decoder
// ABOUTME: Reads whole frames of any sample format from a byte stream
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
)

// PCMDecoder reads interleaved PCM from a seekable byte stream. The stream
// may be a region of a container (start, length) such as a WAV data chunk.
type PCMDecoder struct {
	r         io.ReadSeeker
	format    audio.Format
	bigEndian bool

	start  int64 // byte offset of frame 0
	length int64 // bytes of PCM, -1 when unbounded
	pos    int64 // bytes consumed since start
}

// NewPCM creates a decoder for headerless PCM. With bigEndian set, samples
// are byte-swapped to little-endian as they are read.
func NewPCM(r io.ReadSeeker, format audio.Format, bigEndian bool) (*PCMDecoder, error) {
	return newPCMRegion(r, format, bigEndian, 0, -1)
}

func newPCMRegion(r io.ReadSeeker, format audio.Format, bigEndian bool, start, length int64) (*PCMDecoder, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to pcm data: %w", err)
	}
	return &PCMDecoder{
		r:         r,
		format:    format,
		bigEndian: bigEndian,
		start:     start,
		length:    length,
	}, nil
}

// Format returns the stream format
func (d *PCMDecoder) Format() audio.Format {
	return d.format
}

// Read reads whole frames. A truncated final frame is dropped.
func (d *PCMDecoder) Read(p []byte) (int, error) {
	frameSize := d.format.FrameSize()
	want := len(p) / frameSize * frameSize
	if d.length >= 0 {
		want = min(want, int((d.length-d.pos)/int64(frameSize))*frameSize)
	}
	if want == 0 {
		if len(p) < frameSize {
			return 0, io.ErrShortBuffer
		}
		return 0, io.EOF
	}

	n, err := io.ReadFull(d.r, p[:want])
	d.pos += int64(n)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		n = n / frameSize * frameSize
		err = nil
		if n == 0 {
			err = io.EOF
		}
	}
	if err != nil {
		return n, err
	}

	if d.bigEndian {
		pcm.ReverseBytes(d.format.SampleFormat, p[:n])
	}
	return n, nil
}

// Seek moves to the given frame
func (d *PCMDecoder) Seek(frame int64) error {
	if frame < 0 {
		return fmt.Errorf("invalid seek position: frame %d", frame)
	}
	offset := frame * int64(d.format.FrameSize())
	if d.length >= 0 && offset > d.length {
		offset = d.length
	}
	if _, err := d.r.Seek(d.start+offset, io.SeekStart); err != nil {
		return fmt.Errorf("pcm seek failed: %w", err)
	}
	d.pos = offset
	return nil
}

// Close closes the underlying stream if it is closable
func (d *PCMDecoder) Close() error {
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
