// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 to interleaved 16-bit stereo with go-mp3
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 audio. go-mp3 always produces S16 stereo.
type MP3Decoder struct {
	*PCMDecoder
	src io.ReadSeeker
}

// NewMP3 creates a decoder reading MP3 frames from r
func NewMP3(r io.ReadSeeker) (*MP3Decoder, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create mp3 decoder: %v", ErrUnsupported, err)
	}

	format := audio.Format{
		SampleRate:   dec.SampleRate(),
		Channels:     2,
		SampleFormat: pcm.S16,
	}
	p, err := newPCMRegion(dec, format, false, 0, dec.Length())
	if err != nil {
		return nil, err
	}
	return &MP3Decoder{PCMDecoder: p, src: r}, nil
}

// Close closes the MP3 source if it is closable
func (d *MP3Decoder) Close() error {
	if c, ok := d.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
