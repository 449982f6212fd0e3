// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC frames with mewkiz/flac into the closest integer sample format
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio. Samples are widened to the smallest
// format that holds the stream's bit depth.
type FLACDecoder struct {
	src    io.ReadSeeker
	stream *flac.Stream
	format audio.Format
	shift  int
	bias   int

	// interleaved samples of the last parsed frame, consumed from off
	pending []int
	off     int
	eof     bool
}

// NewFLAC parses the FLAC stream header of r
func NewFLAC(r io.ReadSeeker) (*FLACDecoder, error) {
	stream, err := flac.NewSeek(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode flac: %v", ErrUnsupported, err)
	}

	info := stream.Info
	bits := int(info.BitsPerSample)
	sf, err := flacSampleFormat(bits)
	if err != nil {
		return nil, err
	}

	format := audio.Format{
		SampleRate:   int(info.SampleRate),
		Channels:     int(info.NChannels),
		SampleFormat: sf,
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	d := &FLACDecoder{
		src:    r,
		stream: stream,
		format: format,
		shift:  sf.Bits() - bits,
	}
	if sf == pcm.U8 {
		d.bias = 128
	}
	return d, nil
}

// flacSampleFormat returns the narrowest format holding bits per sample
func flacSampleFormat(bits int) (pcm.SampleFormat, error) {
	switch {
	case bits < 4 || bits > 32:
		return pcm.Unknown, fmt.Errorf("%w: flac bit depth %d", ErrUnsupported, bits)
	case bits <= 8:
		return pcm.U8, nil
	case bits <= 16:
		return pcm.S16, nil
	case bits <= 18:
		return pcm.S18of32, nil
	case bits <= 20:
		return pcm.S20of32, nil
	case bits <= 24:
		return pcm.S24of32, nil
	default:
		return pcm.S32, nil
	}
}

// Format returns the stream format
func (d *FLACDecoder) Format() audio.Format {
	return d.format
}

// Read fills p with whole frames, parsing FLAC frames as needed
func (d *FLACDecoder) Read(p []byte) (int, error) {
	frameSize := d.format.FrameSize()
	if len(p) < frameSize {
		return 0, io.ErrShortBuffer
	}

	channels := d.format.Channels
	n := 0
	for n+frameSize <= len(p) {
		if d.off == len(d.pending) {
			if err := d.parseNext(); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return n, err
			}
			continue
		}

		frames := min((len(p)-n)/frameSize, (len(d.pending)-d.off)/channels)
		samples := d.pending[d.off : d.off+frames*channels]
		pcm.PutInts(d.format.SampleFormat, p[n:], samples)
		n += frames * frameSize
		d.off += len(samples)
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// parseNext decodes one FLAC frame into pending
func (d *FLACDecoder) parseNext() error {
	if d.eof {
		return io.EOF
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.eof = true
			return io.EOF
		}
		return fmt.Errorf("flac decode error: %w", err)
	}

	channels := d.format.Channels
	blockSize := int(frame.BlockSize)
	if cap(d.pending) < blockSize*channels {
		d.pending = make([]int, blockSize*channels)
	}
	d.pending = d.pending[:blockSize*channels]
	d.off = 0

	for ch := 0; ch < channels; ch++ {
		samples := frame.Subframes[ch].Samples
		for i := 0; i < blockSize; i++ {
			d.pending[i*channels+ch] = int(samples[i])<<d.shift + d.bias
		}
	}
	return nil
}

// Seek moves to the given frame. FLAC seeks land on the start of the
// containing FLAC frame, so the remainder is skipped after parsing it.
func (d *FLACDecoder) Seek(frame int64) error {
	if frame < 0 {
		return fmt.Errorf("invalid seek position: frame %d", frame)
	}
	if total := int64(d.stream.Info.NSamples); total > 0 && frame >= total {
		d.pending = d.pending[:0]
		d.off = 0
		d.eof = true
		return nil
	}

	start, err := d.stream.Seek(uint64(frame))
	if err != nil {
		return fmt.Errorf("flac seek failed: %w", err)
	}
	d.pending = d.pending[:0]
	d.off = 0
	d.eof = false

	skip := int(frame-int64(start)) * d.format.Channels
	if skip <= 0 {
		return nil
	}
	if err := d.parseNext(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	d.off = min(skip, len(d.pending))
	return nil
}

// Close closes the FLAC source if it is closable
func (d *FLACDecoder) Close() error {
	if c, ok := d.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
