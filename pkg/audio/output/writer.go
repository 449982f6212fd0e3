// ABOUTME: Raw PCM writer output agent
// ABOUTME: Streams interleaved periods to a file or io.Writer, optionally paced
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// sink consumes one interleaved period
type sink func(period []byte) error

// clock drives the callback from a goroutine for agents without a device
// thread. In realtime mode one period is pulled per period duration and
// underruns are written as silence. Otherwise periods are pulled as fast as
// the sink accepts them, and an underrun writes nothing and waits a period
// before asking again.
type clock struct {
	device
	cb     Callback
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	period *period
	err    error
}

func (c *clock) start(write sink) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.period = newPeriod(c.cfg, c.cb, c.logger)
	c.err = nil

	go c.run(ctx, write)
	return nil
}

// stop cancels the loop and waits for it to exit
func (c *clock) stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return ErrNotStarted
	}
	c.cancel()
	<-c.done
	c.cancel = nil

	c.logger.Info("Audio output stopped",
		zap.Uint64("periods", c.period.periods.Load()),
		zap.Uint64("underruns", c.period.underruns.Load()))

	return c.err
}

func (c *clock) running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *clock) interval() time.Duration {
	return time.Duration(c.cfg.BufferFrames) * time.Second / time.Duration(c.cfg.SampleRate)
}

func (c *clock) run(ctx context.Context, write sink) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()

	for {
		if c.cfg.Realtime {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		buf, ok := c.period.next()
		if !ok && !c.cfg.Realtime {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		if err := write(buf); err != nil {
			c.logger.Error("Output write failed", zap.Error(err))
			c.err = err
			return
		}
	}
}

// Writer output agent writing raw interleaved little-endian PCM
type Writer struct {
	clock
	file *os.File
	out  io.Writer
}

// NewWriter creates a Writer agent. Every sample format is supported.
func NewWriter(cfg Config, cb Callback, logger *zap.Logger) (*Writer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Output == nil && (cfg.Path == "" || cfg.Path == "-") {
		cfg.Output = os.Stdout
	}

	return &Writer{
		clock: clock{
			device: device{cfg: cfg},
			cb:     cb,
			logger: logger.With(zap.String("backend", BackendWriter)),
		},
	}, nil
}

// Start opens the destination and begins pulling periods
func (w *Writer) Start() error {
	if w.running() {
		return ErrAlreadyStarted
	}

	w.out = w.cfg.Output
	if w.cfg.Path != "" && w.cfg.Path != "-" {
		f, err := os.Create(w.cfg.Path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		w.file = f
		w.out = f
	}

	out := w.out
	err := w.start(func(period []byte) error {
		_, err := out.Write(period)
		return err
	})
	if err != nil {
		w.closeFile()
		return err
	}

	w.logger.Info("Audio output started",
		zap.String("path", w.cfg.Path),
		zap.Stringer("format", w.cfg.Format),
		zap.Bool("realtime", w.cfg.Realtime))
	return nil
}

// Stop waits for the writer goroutine and closes any file it opened
func (w *Writer) Stop() error {
	err := w.stop()
	if closeErr := w.closeFile(); err == nil {
		err = closeErr
	}
	return err
}

func (w *Writer) closeFile() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
