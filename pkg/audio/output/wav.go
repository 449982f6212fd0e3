// ABOUTME: WAV file output agent
// ABOUTME: Encodes every pulled period into a RIFF/WAVE file via go-audio/wav
package output

import (
	"fmt"
	"os"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"
)

// WAVFormats lists the sample formats written as integer PCM WAV
var WAVFormats = []pcm.SampleFormat{pcm.S16, pcm.S24, pcm.S32}

// wavFormatPCM is the WAVE_FORMAT_PCM tag
const wavFormatPCM = 1

// WAV output agent recording the callback output to a file
type WAV struct {
	clock
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
}

// NewWAV creates a WAV agent writing to cfg.Path
func NewWAV(cfg Config, cb Callback, logger *zap.Logger) (*WAV, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !supports(cfg.Format, WAVFormats) {
		return nil, fmt.Errorf("%w: wav cannot store %s", ErrUnsupportedFormat, cfg.Format)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("wav output requires a path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WAV{
		clock: clock{
			device: device{cfg: cfg},
			cb:     cb,
			logger: logger.With(zap.String("backend", BackendWAV)),
		},
		buf: &audio.IntBuffer{
			Data:           make([]int, cfg.BufferFrames*cfg.Channels),
			Format:         &audio.Format{SampleRate: cfg.SampleRate, NumChannels: cfg.Channels},
			SourceBitDepth: cfg.Format.Bits(),
		},
	}, nil
}

// Start creates the file and begins recording periods
func (w *WAV) Start() error {
	if w.running() {
		return ErrAlreadyStarted
	}

	f, err := os.Create(w.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	w.file = f
	w.encoder = wav.NewEncoder(f, w.cfg.SampleRate, w.cfg.Format.Bits(), w.cfg.Channels, wavFormatPCM)

	if err := w.start(w.write); err != nil {
		w.finish()
		return err
	}

	w.logger.Info("Audio output started",
		zap.String("path", w.cfg.Path),
		zap.Stringer("format", w.cfg.Format),
		zap.Bool("realtime", w.cfg.Realtime))
	return nil
}

// Stop waits for the recording goroutine and finalizes the WAV header
func (w *WAV) Stop() error {
	err := w.stop()
	if finishErr := w.finish(); err == nil {
		err = finishErr
	}
	return err
}

func (w *WAV) write(period []byte) error {
	n := pcm.Ints(w.cfg.Format, w.buf.Data, period)
	w.buf.Data = w.buf.Data[:n]
	err := w.encoder.Write(w.buf)
	w.buf.Data = w.buf.Data[:cap(w.buf.Data)]
	if err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}

// finish closes the encoder, which patches the RIFF sizes, then the file
func (w *WAV) finish() error {
	if w.file == nil {
		return nil
	}
	var err error
	if w.encoder != nil {
		err = w.encoder.Close()
		w.encoder = nil
	}
	if closeErr := w.file.Close(); err == nil {
		err = closeErr
	}
	w.file = nil
	if err != nil {
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	return nil
}
