// ABOUTME: Test tone generator
// ABOUTME: Produces a sine wave in any sample format through the conversion graph
package decode

import (
	"fmt"
	"io"
	"math"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
)

const (
	DefaultToneFrequency = 440.0 // A4 note
	DefaultToneAmplitude = 0.5
)

// ToneConfig describes a generated sine wave
type ToneConfig struct {
	Format    audio.Format
	Frequency float64
	Amplitude float64
	Frames    int64 // 0 means endless
}

// ToneDecoder generates a sine wave, identical on every channel
type ToneDecoder struct {
	cfg     ToneConfig
	convert pcm.Converter
	pos     int64
	scratch [8]byte
}

// NewTone creates a tone generator
func NewTone(cfg ToneConfig) (*ToneDecoder, error) {
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultToneFrequency
	}
	if cfg.Amplitude == 0 {
		cfg.Amplitude = DefaultToneAmplitude
	}
	if cfg.Frequency < 0 || cfg.Frequency >= float64(cfg.Format.SampleRate)/2 {
		return nil, fmt.Errorf("tone frequency %.1f Hz is outside (0, %d) Hz", cfg.Frequency, cfg.Format.SampleRate/2)
	}
	if cfg.Amplitude < 0 || cfg.Amplitude > 1 {
		return nil, fmt.Errorf("tone amplitude %.2f is outside [0, 1]", cfg.Amplitude)
	}
	if cfg.Frames < 0 {
		return nil, fmt.Errorf("invalid tone length: %d frames", cfg.Frames)
	}

	convert, err := pcm.Lookup(pcm.Double, cfg.Format.SampleFormat)
	if err != nil {
		return nil, err
	}

	return &ToneDecoder{cfg: cfg, convert: convert}, nil
}

// Format returns the generated format
func (d *ToneDecoder) Format() audio.Format {
	return d.cfg.Format
}

// Read fills p with whole frames of the tone
func (d *ToneDecoder) Read(p []byte) (int, error) {
	frameSize := d.cfg.Format.FrameSize()
	frames := int64(len(p) / frameSize)
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}
	if d.cfg.Frames > 0 {
		frames = min(frames, d.cfg.Frames-d.pos)
		if frames <= 0 {
			return 0, io.EOF
		}
	}

	size := d.cfg.Format.SampleFormat.BytesPerSample()
	rate := float64(d.cfg.Format.SampleRate)
	for i := int64(0); i < frames; i++ {
		t := float64(d.pos+i) / rate
		v := d.cfg.Amplitude * math.Sin(2*math.Pi*d.cfg.Frequency*t)
		pcm.DoubleCodec.Store(d.scratch[:], v)

		frame := p[i*int64(frameSize):]
		d.convert(frame, d.scratch[:])
		for ch := 1; ch < d.cfg.Format.Channels; ch++ {
			copy(frame[ch*size:(ch+1)*size], frame[:size])
		}
	}

	d.pos += frames
	return int(frames) * frameSize, nil
}

// Seek moves to the given frame
func (d *ToneDecoder) Seek(frame int64) error {
	if frame < 0 {
		return fmt.Errorf("invalid seek position: frame %d", frame)
	}
	if d.cfg.Frames > 0 {
		frame = min(frame, d.cfg.Frames)
	}
	d.pos = frame
	return nil
}

// Close does nothing
func (d *ToneDecoder) Close() error {
	return nil
}
