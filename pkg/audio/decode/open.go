// ABOUTME: Decoder selection by file name
// ABOUTME: Opens WAV, MP3, FLAC, raw PCM files and tone: generators
package decode

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"go.uber.org/zap"
)

// TonePrefix selects the tone generator in Open, e.g. "tone:440"
const TonePrefix = "tone:"

// Options configures Open
type Options struct {
	// Format of headerless .raw and .pcm files and of generated tones
	Format audio.Format
	// BigEndian marks raw PCM as big-endian
	BigEndian bool
	// Duration limits generated tones; zero is endless
	Duration time.Duration
	Logger   *zap.Logger
}

// Open returns a decoder for path. The decoder owns the opened file.
func Open(path string, opts Options) (Decoder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if IsTone(path) {
		return openTone(path, opts, logger)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".wave", ".mp3", ".flac", ".raw", ".pcm":
	default:
		return nil, fmt.Errorf("%w: %q (supported: .wav, .mp3, .flac, .raw, .pcm, %s<hz>)", ErrUnsupported, ext, TonePrefix)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	var dec Decoder
	switch ext {
	case ".wav", ".wave":
		dec, err = NewWAV(f)
	case ".mp3":
		dec, err = NewMP3(f)
	case ".flac":
		dec, err = NewFLAC(f)
	default:
		dec, err = NewPCM(f, opts.Format, opts.BigEndian)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	logger.Info("Loaded audio file",
		zap.String("file", filepath.Base(path)),
		zap.Stringer("format", dec.Format()))
	return dec, nil
}

// IsTone reports whether path names a generated tone rather than a file
func IsTone(path string) bool {
	return strings.HasPrefix(path, TonePrefix)
}

func openTone(path string, opts Options, logger *zap.Logger) (Decoder, error) {
	freq, err := strconv.ParseFloat(strings.TrimPrefix(path, TonePrefix), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid tone frequency %q: %w", path, err)
	}

	cfg := ToneConfig{
		Format:    opts.Format,
		Frequency: freq,
	}
	if opts.Duration > 0 {
		cfg.Frames = int64(opts.Duration.Seconds() * float64(opts.Format.SampleRate))
	}

	dec, err := NewTone(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Generating test tone",
		zap.Float64("frequency", freq),
		zap.Stringer("format", dec.Format()),
		zap.Duration("duration", opts.Duration))
	return dec, nil
}
