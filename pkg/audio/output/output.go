// ABOUTME: Audio output agent contract and backend selection
// ABOUTME: Pull-based device callback shared by every playback backend
package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFormat is returned when a backend cannot play a sample format
	ErrUnsupportedFormat = errors.New("unsupported sample format")

	// ErrNotStarted is returned by Stop on an agent that is not running
	ErrNotStarted = errors.New("output not started")

	// ErrAlreadyStarted is returned by Start on a running agent
	ErrAlreadyStarted = errors.New("output already started")

	// ErrUnknownBackend is returned by New for an unrecognised backend name
	ErrUnknownBackend = errors.New("unknown output backend")
)

// Callback fills one period of audio. channels holds one plane per output
// channel, each exactly BufferSize samples long in the agent's Format.
// Returning false reports an underrun; the agent then plays silence for the
// period.
type Callback func(channels [][]byte) bool

// Agent represents an audio output device that pulls samples through a
// Callback on its own goroutine or driver thread between Start and Stop.
type Agent interface {
	// SampleRate is fixed for the lifetime of the agent
	SampleRate() int

	// BufferSize is the number of frames requested per callback
	BufferSize() int

	Channels() int

	// Format is the sample format the callback must produce
	Format() pcm.SampleFormat

	// Start begins invoking the callback
	Start() error

	// Stop returns once the callback will no longer be invoked
	Stop() error
}

// Factory builds an agent around a callback
type Factory func(cb Callback) (Agent, error)

// Backend names accepted by New
const (
	BackendMalgo  = "malgo"
	BackendOto    = "oto"
	BackendWriter = "writer"
	BackendWAV    = "wav"
)

// Config describes the device an agent should drive
type Config struct {
	Backend      string
	SampleRate   int
	Channels     int
	Format       pcm.SampleFormat
	BufferFrames int

	// Path is the destination file for the writer and wav backends. An empty
	// path or "-" sends writer output to Output.
	Path string

	// Output receives raw PCM for the writer backend when Path is empty
	Output io.Writer

	// Realtime paces the writer and wav backends by the wall clock
	Realtime bool
}

// DefaultBufferFrames is the period size used when Config.BufferFrames is zero
const DefaultBufferFrames = 1024

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", c.Channels)
	}
	if c.BufferFrames <= 0 {
		return fmt.Errorf("invalid buffer size: %d frames", c.BufferFrames)
	}
	if !c.Format.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, c.Format)
	}
	return nil
}

// New creates the agent selected by cfg.Backend
func New(cfg Config, cb Callback, logger *zap.Logger) (Agent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BufferFrames == 0 {
		cfg.BufferFrames = DefaultBufferFrames
	}
	if cb == nil {
		return nil, errors.New("output callback is nil")
	}

	switch cfg.Backend {
	case BackendMalgo, "":
		return NewMalgo(cfg, cb, logger)
	case BackendOto:
		return NewOto(cfg, cb, logger)
	case BackendWriter:
		return NewWriter(cfg, cb, logger)
	case BackendWAV:
		return NewWAV(cfg, cb, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Formats returns the sample formats a backend can play
func Formats(backend string) ([]pcm.SampleFormat, error) {
	switch backend {
	case BackendMalgo, "":
		return MalgoFormats, nil
	case BackendOto:
		return OtoFormats, nil
	case BackendWriter:
		return pcm.Formats(), nil
	case BackendWAV:
		return WAVFormats, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// PreferredFormat picks the device format for a source. The source format is
// used when the backend plays it, otherwise the supported format with the
// most significant bits, preferring integers on ties.
func PreferredFormat(backend string, source pcm.SampleFormat) (pcm.SampleFormat, error) {
	formats, err := Formats(backend)
	if err != nil {
		return pcm.Unknown, err
	}
	if supports(source, formats) {
		return source, nil
	}

	best := formats[0]
	for _, f := range formats[1:] {
		if f.Bits() > best.Bits() || (f.Bits() == best.Bits() && best.IsFloat() && !f.IsFloat()) {
			best = f
		}
	}
	return best, nil
}

// NewFactory binds cfg and logger so the caller only supplies the callback
func NewFactory(cfg Config, logger *zap.Logger) Factory {
	return func(cb Callback) (Agent, error) {
		return New(cfg, cb, logger)
	}
}

// device holds the fixed parameters every agent reports
type device struct {
	cfg Config
}

func (d device) SampleRate() int          { return d.cfg.SampleRate }
func (d device) BufferSize() int          { return d.cfg.BufferFrames }
func (d device) Channels() int            { return d.cfg.Channels }
func (d device) Format() pcm.SampleFormat { return d.cfg.Format }

// supports reports whether format is in formats
func supports(format pcm.SampleFormat, formats []pcm.SampleFormat) bool {
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}
