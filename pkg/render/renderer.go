// ABOUTME: Renderer connecting a producer to an output agent
// ABOUTME: Converts interleaved PCM into device-format period blocks and feeds the callback
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/queue"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	// ErrFlushing is returned by Write and Drain while the renderer is flushed
	ErrFlushing = errors.New("renderer is flushing")

	// ErrFormatMismatch is returned when the source and device differ in
	// sample rate or channel count
	ErrFormatMismatch = errors.New("source format does not match output device")

	// ErrPartialFrame is returned by Write when p does not hold whole frames
	ErrPartialFrame = errors.New("write is not a whole number of frames")
)

// DefaultQueueBlocks is the queue capacity used when Config.QueueBlocks is zero
const DefaultQueueBlocks = 8

// Config holds renderer configuration
type Config struct {
	// Source is the format of the bytes passed to Write
	Source audio.Format

	// QueueBlocks is the number of device periods that may wait in the queue
	QueueBlocks int

	// Metrics is optional
	Metrics *Metrics
}

// Stats contains renderer statistics
type Stats struct {
	Queued    int64 // blocks handed to the queue
	Played    int64 // blocks delivered to the device
	Dropped   int64 // blocks discarded by flushes
	Underruns int64 // device periods with nothing ready
	Flushes   int64
	Depth     int // blocks waiting
	Capacity  int
}

// Renderer sits between a producer goroutine and an output agent. Write
// converts source samples into the device format and queues them as planar
// period blocks; the agent's callback takes one block per period without
// blocking.
type Renderer struct {
	id      string
	source  audio.Format
	device  audio.Format
	agent   output.Agent
	convert pcm.Converter
	logger  *zap.Logger
	metrics *Metrics
	samples prometheus.Counter

	ready *queue.BlockingQueue[*audio.Block]
	free  *queue.BlockingQueue[*audio.Block]

	// producer state, guarded by writeMu
	writeMu       sync.Mutex
	pending       *audio.Block
	pendingFrames int

	queued    atomic.Int64
	played    atomic.Int64
	dropped   atomic.Int64
	underruns atomic.Int64
	flushes   atomic.Int64
}

// New creates a renderer and builds its output agent through factory
func New(cfg Config, factory output.Factory, logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Source.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source format: %w", err)
	}
	if cfg.QueueBlocks == 0 {
		cfg.QueueBlocks = DefaultQueueBlocks
	}
	if cfg.QueueBlocks < 0 {
		return nil, fmt.Errorf("invalid queue size: %d blocks", cfg.QueueBlocks)
	}

	r := &Renderer{
		id:      uuid.New().String(),
		source:  cfg.Source,
		metrics: cfg.Metrics,
	}
	r.logger = logger.With(zap.String("renderer", r.id))

	agent, err := factory(r.callback)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}

	r.agent = agent
	r.device = audio.Format{
		SampleRate:   agent.SampleRate(),
		Channels:     agent.Channels(),
		SampleFormat: agent.Format(),
	}
	if !r.source.SameLayout(r.device) {
		return nil, fmt.Errorf("%w: source %s, device %s", ErrFormatMismatch, r.source, r.device)
	}

	r.convert, err = pcm.Lookup(r.source.SampleFormat, r.device.SampleFormat)
	if err != nil {
		return nil, err
	}
	r.samples = r.metrics.conversions(r.source.SampleFormat.String(), r.device.SampleFormat.String())

	// blocks in flight: the queue, the pending block and one being copied
	// by the callback
	r.ready = queue.New[*audio.Block](cfg.QueueBlocks)
	r.free = queue.New[*audio.Block](cfg.QueueBlocks + 2)
	for i := 0; i < r.free.Cap(); i++ {
		r.free.Offer(r.newBlock())
	}

	r.logger.Info("Renderer created",
		zap.Stringer("source", r.source),
		zap.Stringer("device", r.device),
		zap.Int("period_frames", agent.BufferSize()),
		zap.Int("queue_blocks", cfg.QueueBlocks))

	return r, nil
}

// ID identifies the renderer in logs
func (r *Renderer) ID() string {
	return r.id
}

// Source returns the format accepted by Write
func (r *Renderer) Source() audio.Format {
	return r.source
}

// Device returns the format of the output agent
func (r *Renderer) Device() audio.Format {
	return r.device
}

// PeriodFrames returns the number of frames in one block
func (r *Renderer) PeriodFrames() int {
	return r.agent.BufferSize()
}

// Start starts the output agent
func (r *Renderer) Start() error {
	if err := r.agent.Start(); err != nil {
		return fmt.Errorf("failed to start output: %w", err)
	}
	r.logger.Debug("Renderer started")
	return nil
}

// Stop flushes the queue, releasing a blocked producer, then stops the
// agent. The renderer stays flushed afterwards.
func (r *Renderer) Stop() error {
	r.BeginFlush()
	if err := r.agent.Stop(); err != nil && !errors.Is(err, output.ErrNotStarted) {
		return fmt.Errorf("failed to stop output: %w", err)
	}
	r.logger.Debug("Renderer stopped")
	return nil
}

// BeginFlush discards every queued block and makes Write and Drain fail with
// ErrFlushing until EndFlush.
func (r *Renderer) BeginFlush() {
	depth, started := r.ready.BeginFlush()
	if !started {
		return
	}

	r.dropped.Add(int64(depth))
	r.flushes.Add(1)
	r.metrics.recordDropped(depth)
	r.metrics.recordFlush()
	r.metrics.setDepth(0)
	r.logger.Debug("Renderer flushing", zap.Int("dropped_blocks", depth))
}

// EndFlush discards any partially filled period and reopens the queue
func (r *Renderer) EndFlush() {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.recycle(r.pending)
	r.pending = nil
	r.pendingFrames = 0

	r.ready.EndFlush()
	r.logger.Debug("Renderer flush ended")
}

// Flushing reports whether the renderer is between BeginFlush and EndFlush
func (r *Renderer) Flushing() bool {
	return r.ready.Flushing()
}

// Write converts whole interleaved frames of the source format and queues
// them in period blocks, waiting while the queue is full. A trailing partial
// period is kept until the next Write or Drain. It returns the number of
// bytes consumed, which is short only when the renderer is flushed.
func (r *Renderer) Write(p []byte) (int, error) {
	frameSize := r.source.FrameSize()
	if len(p)%frameSize != 0 {
		return 0, fmt.Errorf("%w: %d bytes, frame size %d", ErrPartialFrame, len(p), frameSize)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.ready.Flushing() {
		return 0, ErrFlushing
	}

	srcSize := r.source.SampleFormat.BytesPerSample()
	dstSize := r.device.SampleFormat.BytesPerSample()
	periodFrames := r.agent.BufferSize()

	n := 0
	for n < len(p) {
		if r.pending == nil {
			r.pending = r.takeFree()
			r.pendingFrames = 0
		}

		// convert as many frames as fit in the pending block
		frames := min((len(p)-n)/frameSize, periodFrames-r.pendingFrames)
		for f := 0; f < frames; f++ {
			dst := (r.pendingFrames + f) * dstSize
			for _, plane := range r.pending.Planes {
				r.convert(plane[dst:], p[n:])
				n += srcSize
			}
		}
		r.pendingFrames += frames
		if r.samples != nil {
			r.samples.Add(float64(frames * r.source.Channels))
		}

		if r.pendingFrames == periodFrames {
			if err := r.enqueue(); err != nil {
				return n, err
			}
		}
	}

	return n, nil
}

// Drain pads the pending partial period with silence and queues it
func (r *Renderer) Drain() error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.ready.Flushing() {
		return ErrFlushing
	}
	if r.pending == nil {
		return nil
	}

	offset := r.pendingFrames * r.device.SampleFormat.BytesPerSample()
	for _, plane := range r.pending.Planes {
		pcm.Silence(r.device.SampleFormat, plane[offset:])
	}
	r.pendingFrames = r.agent.BufferSize()
	return r.enqueue()
}

// WaitEmpty returns once every queued block has been handed to the device
func (r *Renderer) WaitEmpty(ctx context.Context) error {
	interval := time.Duration(r.agent.BufferSize()) * time.Second / time.Duration(r.device.SampleRate) / 2
	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	for r.ready.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Stats returns renderer statistics
func (r *Renderer) Stats() Stats {
	return Stats{
		Queued:    r.queued.Load(),
		Played:    r.played.Load(),
		Dropped:   r.dropped.Load(),
		Underruns: r.underruns.Load(),
		Flushes:   r.flushes.Load(),
		Depth:     r.ready.Len(),
		Capacity:  r.ready.Cap(),
	}
}

// enqueue hands the full pending block to the device (must hold writeMu)
func (r *Renderer) enqueue() error {
	block := r.pending
	r.pending = nil
	r.pendingFrames = 0

	if !r.ready.Put(block) {
		r.recycle(block)
		return ErrFlushing
	}
	r.queued.Add(1)
	r.metrics.recordQueued()
	r.metrics.setDepth(r.ready.Len())
	return nil
}

// callback runs on the device thread once per period. It never blocks.
func (r *Renderer) callback(channels [][]byte) bool {
	block, ok := r.ready.Poll()
	if !ok {
		r.underruns.Add(1)
		r.metrics.recordUnderrun()
		return false
	}

	for c, plane := range channels {
		copy(plane, block.Planes[c])
	}
	r.recycle(block)

	r.played.Add(1)
	r.metrics.recordPlayed()
	r.metrics.setDepth(r.ready.Len())
	return true
}

func (r *Renderer) newBlock() *audio.Block {
	return audio.NewBlock(r.device.SampleFormat, r.device.Channels, r.agent.BufferSize())
}

// takeFree reuses a played block, allocating only when none is free
func (r *Renderer) takeFree() *audio.Block {
	if block, ok := r.free.Poll(); ok {
		return block
	}
	return r.newBlock()
}

func (r *Renderer) recycle(block *audio.Block) {
	if block != nil {
		r.free.Offer(block)
	}
}
