// ABOUTME: High-level Player API for local playback
// ABOUTME: Pumps a decoder into a renderer and handles seek, stop and end of stream
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/decode"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmbridge/pkg/render"
	"go.uber.org/zap"
)

var (
	// ErrNotPlaying is returned by Seek and Wait before Play
	ErrNotPlaying = errors.New("player is not playing")

	// ErrAlreadyPlaying is returned by a second Play
	ErrAlreadyPlaying = errors.New("player already started")

	// ErrStopped is returned by Play after Stop
	ErrStopped = errors.New("player stopped")
)

// DefaultStatsInterval is how often OnStats is called
const DefaultStatsInterval = 250 * time.Millisecond

// State describes the playback state
type State string

const (
	StateIdle     State = "idle"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

// Config holds player configuration
type Config struct {
	// QueueBlocks is the renderer queue depth in periods
	QueueBlocks int

	// Loop restarts the decoder at end of stream instead of finishing
	Loop bool

	// Metrics receives renderer metrics when set
	Metrics *render.Metrics

	// StatsInterval is the OnStats period (default: 250ms)
	StatsInterval time.Duration

	// OnStats is called periodically while playing
	OnStats func(Stats)

	// OnStateChange is called when playback state changes
	OnStateChange func(State)
}

// Stats contains playback statistics
type Stats struct {
	render.Stats
	State    State
	Position int64 // frames handed to the renderer since the last seek target
	Source   audio.Format
	Device   audio.Format
}

// seekRequest carries a seek target to the decode loop. done is closed once
// the renderer has been reopened at the target.
type seekRequest struct {
	frame int64
	done  chan struct{}
}

// Player plays one decoder through one output agent
type Player struct {
	cfg      Config
	decoder  decode.Decoder
	renderer *render.Renderer
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	seekCh chan seekRequest
	seekMu sync.Mutex
	done   chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	started  bool
	err      error
	stopOnce sync.Once

	position atomic.Int64
}

// New creates a player. The agent built by factory must share the decoder's
// sample rate and channel count. The player owns the decoder.
func New(dec decode.Decoder, factory output.Factory, cfg Config, logger *zap.Logger) (*Player, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = DefaultStatsInterval
	}

	r, err := render.New(render.Config{
		Source:      dec.Format(),
		QueueBlocks: cfg.QueueBlocks,
		Metrics:     cfg.Metrics,
	}, factory, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Player{
		cfg:      cfg,
		decoder:  dec,
		renderer: r,
		logger:   logger.With(zap.String("stream_id", r.ID())),
		ctx:      ctx,
		cancel:   cancel,
		seekCh:   make(chan seekRequest),
		done:     make(chan struct{}),
		state:    StateIdle,
	}, nil
}

// Play starts the output agent and the decode loop
func (p *Player) Play() error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyPlaying
	}
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return ErrStopped
	}
	p.started = true
	p.mu.Unlock()

	if err := p.renderer.Start(); err != nil {
		close(p.done)
		p.setError(err)
		return err
	}

	p.logger.Info("Playback started",
		zap.Stringer("source", p.renderer.Source()),
		zap.Stringer("device", p.renderer.Device()),
		zap.Int("period_frames", p.renderer.PeriodFrames()))
	p.setState(StatePlaying)

	p.wg.Add(1)
	go p.run()
	if p.cfg.OnStats != nil {
		p.wg.Add(1)
		go p.statsLoop()
	}
	return nil
}

// Seek restarts playback at the given frame. Queued audio is discarded.
// Concurrent seeks are applied one after another; each returns once the
// decoder has moved and the renderer accepts audio again.
func (p *Player) Seek(frame int64) error {
	if frame < 0 {
		return fmt.Errorf("invalid seek position: frame %d", frame)
	}
	if !p.isStarted() {
		return ErrNotPlaying
	}

	p.seekMu.Lock()
	defer p.seekMu.Unlock()

	req := seekRequest{frame: frame, done: make(chan struct{})}
	p.renderer.BeginFlush()
	select {
	case p.seekCh <- req:
	case <-p.done:
		p.renderer.EndFlush()
		return ErrNotPlaying
	}

	select {
	case <-req.done:
		return nil
	case <-p.done:
		select {
		case <-req.done:
			return nil
		default:
			return ErrNotPlaying
		}
	}
}

// Stop halts playback, stops the agent and closes the decoder. It is safe
// to call more than once.
func (p *Player) Stop() error {
	var err error
	p.stopOnce.Do(func() {
		p.cancel()
		err = p.renderer.Stop()
		p.wg.Wait()

		if closeErr := p.decoder.Close(); closeErr != nil {
			p.logger.Warn("Failed to close decoder", zap.Error(closeErr))
		}

		p.mu.Lock()
		finished := p.state == StateFinished || p.state == StateFailed
		p.mu.Unlock()
		if !finished {
			p.setState(StateStopped)
		}
		p.logger.Info("Playback stopped")
	})
	return err
}

// Wait blocks until the stream ends or playback stops, and returns the
// decode or output error if there was one.
func (p *Player) Wait() error {
	if !p.isStarted() {
		return ErrNotPlaying
	}
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done is closed when the decode loop exits
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// Status returns the current state
func (p *Player) Status() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns playback statistics
func (p *Player) Stats() Stats {
	return Stats{
		Stats:    p.renderer.Stats(),
		State:    p.Status(),
		Position: p.position.Load(),
		Source:   p.renderer.Source(),
		Device:   p.renderer.Device(),
	}
}

func (p *Player) run() {
	defer p.wg.Done()
	defer close(p.done)

	frameSize := p.decoder.Format().FrameSize()
	buf := make([]byte, p.renderer.PeriodFrames()*frameSize)

	for {
		select {
		case <-p.ctx.Done():
			return
		case req := <-p.seekCh:
			p.seek(req)
			continue
		default:
		}

		n, err := p.decoder.Read(buf)
		if n > 0 {
			if _, werr := p.renderer.Write(buf[:n]); werr != nil {
				if errors.Is(werr, render.ErrFlushing) {
					if !p.awaitSeek() {
						return
					}
					continue
				}
				p.fail(fmt.Errorf("render write failed: %w", werr))
				return
			}
			p.position.Add(int64(n / frameSize))
		}

		switch {
		case errors.Is(err, io.EOF):
			if p.cfg.Loop && p.position.Load() > 0 {
				p.logger.Debug("End of stream, looping")
				if err := p.decoder.Seek(0); err != nil {
					p.fail(fmt.Errorf("failed to rewind: %w", err))
					return
				}
				p.position.Store(0)
				continue
			}
			if p.finish() {
				return
			}
		case err != nil:
			p.fail(fmt.Errorf("decode failed: %w", err))
			return
		}
	}
}

// awaitSeek waits for the seek target after a flush interrupted the loop.
// It returns false when the player is stopping instead.
func (p *Player) awaitSeek() bool {
	select {
	case req := <-p.seekCh:
		p.seek(req)
		return true
	case <-p.ctx.Done():
		return false
	}
}

// seek repositions the decoder while the renderer is flushing
func (p *Player) seek(req seekRequest) {
	defer close(req.done)

	if err := p.decoder.Seek(req.frame); err != nil {
		p.logger.Warn("Seek failed", zap.Int64("frame", req.frame), zap.Error(err))
	} else {
		p.position.Store(req.frame)
		p.logger.Debug("Seeked", zap.Int64("frame", req.frame))
	}
	p.renderer.EndFlush()
}

// finish drains the renderer at end of stream. It returns false when a seek
// arrived instead and the loop should continue.
func (p *Player) finish() bool {
	if err := p.renderer.Drain(); err != nil {
		if errors.Is(err, render.ErrFlushing) {
			return !p.awaitSeek()
		}
		p.fail(fmt.Errorf("drain failed: %w", err))
		return true
	}

	waitCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	result := make(chan error, 1)
	go func() {
		result <- p.renderer.WaitEmpty(waitCtx)
	}()

	select {
	case req := <-p.seekCh:
		cancel()
		<-result
		p.seek(req)
		return false
	case err := <-result:
		if err != nil {
			return true
		}
		// a flush empties the queue too, so make sure it was not a seek
		if p.renderer.Flushing() {
			return !p.awaitSeek()
		}
	}

	p.logger.Info("End of stream", zap.Int64("frames", p.position.Load()))
	p.setState(StateFinished)
	return true
}

func (p *Player) statsLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.cfg.OnStats(p.Stats())
		case <-p.done:
			p.cfg.OnStats(p.Stats())
			return
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Player) isStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *Player) fail(err error) {
	p.logger.Error("Playback failed", zap.Error(err))
	p.setError(err)
	p.setState(StateFailed)
}

func (p *Player) setError(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *Player) setState(state State) {
	p.mu.Lock()
	changed := p.state != state
	p.state = state
	p.mu.Unlock()

	if changed && p.cfg.OnStateChange != nil {
		p.cfg.OnStateChange(state)
	}
}
