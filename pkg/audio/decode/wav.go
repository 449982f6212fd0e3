// ABOUTME: WAV file decoder
// ABOUTME: Parses RIFF headers with go-audio/wav and streams the data chunk as raw PCM
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE

	// fmt chunk size of WAVE_FORMAT_EXTENSIBLE: 16 base bytes, cbSize,
	// wValidBitsPerSample, dwChannelMask and the SubFormat GUID
	wavExtensibleSize = 40
)

// WAVDecoder reads the data chunk of a WAV file without converting it
type WAVDecoder struct {
	*PCMDecoder
}

// NewWAV parses the WAV headers of r and positions it at the first sample
func NewWAV(r io.ReadSeeker) (*WAVDecoder, error) {
	var err error
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: invalid wav file: %v", ErrUnsupported, err)
		}
		return nil, fmt.Errorf("%w: invalid wav file", ErrUnsupported)
	}

	tag, validBits := dec.WavAudioFormat, dec.BitDepth
	if tag == wavFormatExtensible {
		if tag, validBits, err = wavExtension(r); err != nil {
			return nil, err
		}
	}
	sf, err := wavSampleFormat(tag, dec.BitDepth, validBits)
	if err != nil {
		return nil, err
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find wav data: %w", err)
	}
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to locate wav data: %w", err)
	}

	format := audio.Format{
		SampleRate:   int(dec.SampleRate),
		Channels:     int(dec.NumChans),
		SampleFormat: sf,
	}
	p, err := newPCMRegion(r, format, false, start, dec.PCMLen())
	if err != nil {
		return nil, err
	}
	return &WAVDecoder{PCMDecoder: p}, nil
}

// wavExtension re-reads the fmt chunk of an extensible file and returns the
// SubFormat tag and the valid bits per sample. go-audio/wav discards both.
// The read position of r is restored before returning.
func wavExtension(r io.ReadSeeker) (tag, validBits uint16, err error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to locate wav header: %w", err)
	}
	defer func() {
		if _, serr := r.Seek(pos, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("failed to restore wav position: %w", serr)
		}
	}()

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, 0, fmt.Errorf("failed to rewind wav header: %w", err)
	}
	parser := riff.New(r)
	id, _, err := parser.IDnSize()
	if err != nil || id != riff.RiffID {
		return 0, 0, fmt.Errorf("%w: missing RIFF header", ErrUnsupported)
	}
	if err := binary.Read(r, binary.BigEndian, &parser.Format); err != nil || parser.Format != riff.WavFormatID {
		return 0, 0, fmt.Errorf("%w: missing WAVE header", ErrUnsupported)
	}

	for {
		chunk, err := parser.NextChunk()
		if errors.Is(err, io.EOF) {
			return 0, 0, fmt.Errorf("%w: no fmt chunk", ErrUnsupported)
		}
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read wav chunk: %w", err)
		}
		if chunk.ID != riff.FmtID {
			chunk.Drain()
			continue
		}

		if chunk.Size < wavExtensibleSize {
			return 0, 0, fmt.Errorf("%w: extensible fmt chunk of %d bytes", ErrUnsupported, chunk.Size)
		}
		ext := make([]byte, wavExtensibleSize)
		if _, err := io.ReadFull(chunk, ext); err != nil {
			return 0, 0, fmt.Errorf("failed to read wav fmt chunk: %w", err)
		}
		// the first two bytes of the GUID carry the plain format tag
		return binary.LittleEndian.Uint16(ext[24:]), binary.LittleEndian.Uint16(ext[18:]), nil
	}
}

// wavSampleFormat maps a WAV format tag and container bit depth to a sample
// format. Valid bits narrower than the container are left-justified, so the
// samples read as the container format; zero means the full container.
func wavSampleFormat(tag, bits, validBits uint16) (pcm.SampleFormat, error) {
	if validBits > bits {
		return pcm.Unknown, fmt.Errorf("%w: %d valid bits in a %d bit container", ErrUnsupported, validBits, bits)
	}

	switch tag {
	case wavFormatPCM:
		switch bits {
		case 8:
			return pcm.U8, nil
		case 16:
			return pcm.S16, nil
		case 24:
			return pcm.S24, nil
		case 32:
			return pcm.S32, nil
		}
	case wavFormatFloat:
		switch bits {
		case 32:
			return pcm.Float, nil
		case 64:
			return pcm.Double, nil
		}
	}
	return pcm.Unknown, fmt.Errorf("%w: wav format %d with %d bits", ErrUnsupported, tag, bits)
}
