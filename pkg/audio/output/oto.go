// ABOUTME: Oto-based audio output agent
// ABOUTME: oto pulls an io.Reader on its own goroutine, which runs the callback
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"
)

// OtoFormats lists the sample formats oto can play
var OtoFormats = []pcm.SampleFormat{pcm.U8, pcm.S16, pcm.Float}

// oto only allows one context per process, so it is shared by every agent
// opened with the same parameters.
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoParams Config
)

// Oto output agent using the oto library
type Oto struct {
	device
	cb     Callback
	logger *zap.Logger

	mu     sync.Mutex
	player *oto.Player
	period *period
}

// NewOto creates an Oto agent. The shared context is created by Start.
func NewOto(cfg Config, cb Callback, logger *zap.Logger) (*Oto, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !supports(cfg.Format, OtoFormats) {
		return nil, fmt.Errorf("%w: oto cannot play %s", ErrUnsupportedFormat, cfg.Format)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Oto{
		device: device{cfg: cfg},
		cb:     cb,
		logger: logger.With(zap.String("backend", BackendOto)),
	}, nil
}

// Start creates a player reading from the callback and starts playback
func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return ErrAlreadyStarted
	}

	ctx, err := sharedOtoContext(o.cfg)
	if err != nil {
		return err
	}

	o.period = newPeriod(o.cfg, o.cb, o.logger)
	o.player = ctx.NewPlayer(o.period)
	o.player.SetBufferSize(2 * len(o.period.buf))
	o.player.Play()

	o.logger.Info("Audio output started",
		zap.Int("sample_rate", o.cfg.SampleRate),
		zap.Int("channels", o.cfg.Channels),
		zap.Stringer("format", o.cfg.Format))

	return nil
}

// Stop pauses and closes the player. The shared context stays alive.
func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotStarted
	}

	o.player.Pause()
	if err := o.player.Close(); err != nil {
		o.logger.Warn("Player close error", zap.Error(err))
	}
	o.player = nil

	o.logger.Info("Audio output stopped",
		zap.Uint64("periods", o.period.periods.Load()),
		zap.Uint64("underruns", o.period.underruns.Load()))

	return nil
}

// sharedOtoContext returns the process-wide context, creating it on first use
func sharedOtoContext(cfg Config) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoParams.SampleRate != cfg.SampleRate || otoParams.Channels != cfg.Channels || otoParams.Format != cfg.Format {
			return nil, fmt.Errorf("oto is already open at %dHz/%dch/%s and cannot be reinitialized",
				otoParams.SampleRate, otoParams.Channels, otoParams.Format)
		}
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       otoFormat(cfg.Format),
		BufferSize:   time.Duration(cfg.BufferFrames) * time.Second / time.Duration(cfg.SampleRate),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	otoCtx = ctx
	otoParams = cfg
	return ctx, nil
}

func otoFormat(format pcm.SampleFormat) oto.Format {
	switch format {
	case pcm.U8:
		return oto.FormatUnsignedInt8
	case pcm.Float:
		return oto.FormatFloat32LE
	default:
		return oto.FormatSignedInt16LE
	}
}
