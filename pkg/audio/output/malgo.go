// ABOUTME: Malgo-based audio output agent with 24-bit support
// ABOUTME: Uses miniaudio via malgo; the device thread drives the callback
package output

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// MalgoFormats lists the sample formats miniaudio accepts for playback
var MalgoFormats = []pcm.SampleFormat{pcm.U8, pcm.S16, pcm.S24, pcm.S32, pcm.Float}

// Malgo output agent using the malgo/miniaudio library
type Malgo struct {
	device
	cb     Callback
	logger *zap.Logger

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	dev      *malgo.Device
	period   *period
}

// NewMalgo creates a Malgo agent. The device is opened by Start.
func NewMalgo(cfg Config, cb Callback, logger *zap.Logger) (*Malgo, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !supports(cfg.Format, MalgoFormats) {
		return nil, fmt.Errorf("%w: malgo cannot play %s", ErrUnsupportedFormat, cfg.Format)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Malgo{
		device: device{cfg: cfg},
		cb:     cb,
		logger: logger.With(zap.String("backend", BackendMalgo)),
	}, nil
}

// Start opens the playback device and begins pulling periods
func (m *Malgo) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev != nil {
		return ErrAlreadyStarted
	}

	// Create malgo context if needed
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	m.period = newPeriod(m.cfg, m.cb, m.logger)
	p := m.period
	frameSize := m.cfg.Channels * m.cfg.Format.BytesPerSample()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgoFormat(m.cfg.Format)
	deviceConfig.Playback.Channels = uint32(m.cfg.Channels)
	deviceConfig.SampleRate = uint32(m.cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.cfg.BufferFrames)
	deviceConfig.Alsa.NoMMap = 1

	// miniaudio may ask for any frame count; the period carries the remainder
	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		n := int(frameCount) * frameSize
		if n > len(pOutputSample) {
			n = len(pOutputSample)
		}
		_, _ = p.Read(pOutputSample[:n])
	}

	dev, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.dev = dev

	m.logger.Info("Audio output started",
		zap.Int("sample_rate", m.cfg.SampleRate),
		zap.Int("channels", m.cfg.Channels),
		zap.Stringer("format", m.cfg.Format),
		zap.Int("buffer_frames", m.cfg.BufferFrames))

	return nil
}

// Stop halts the device and releases the miniaudio context
func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev == nil {
		return ErrNotStarted
	}

	if err := m.dev.Stop(); err != nil {
		m.logger.Warn("Device stop error", zap.Error(err))
	}
	m.dev.Uninit()
	m.dev = nil

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.logger.Warn("Malgo context uninit error", zap.Error(err))
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}

	m.logger.Info("Audio output stopped",
		zap.Uint64("periods", m.period.periods.Load()),
		zap.Uint64("underruns", m.period.underruns.Load()))

	return nil
}

// malgoFormat maps a sample format to the miniaudio device format
func malgoFormat(format pcm.SampleFormat) malgo.FormatType {
	switch format {
	case pcm.U8:
		return malgo.FormatU8
	case pcm.S16:
		return malgo.FormatS16
	case pcm.S24:
		return malgo.FormatS24
	case pcm.S32:
		return malgo.FormatS32
	case pcm.Float:
		return malgo.FormatF32
	default:
		return malgo.FormatUnknown
	}
}
