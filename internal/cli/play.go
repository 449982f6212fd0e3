// ABOUTME: play subcommand
// ABOUTME: Decodes a file or tone and plays it through the configured output agent
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/internal/config"
	"github.com/Resonate-Protocol/pcmbridge/internal/ui"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/decode"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/Resonate-Protocol/pcmbridge/pkg/player"
	"github.com/Resonate-Protocol/pcmbridge/pkg/render"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sourceFlags describe inputs that carry no header: raw PCM and tones
type sourceFlags struct {
	rate      int
	channels  int
	format    pcm.SampleFormat
	bigEndian bool
	duration  time.Duration
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	s.rate = 48000
	s.channels = 2
	s.format = pcm.S16

	cmd.Flags().IntVar(&s.rate, "rate", s.rate, "Sample rate of raw input and tones")
	cmd.Flags().IntVar(&s.channels, "channels", s.channels, "Channel count of raw input and tones")
	cmd.Flags().Var(&formatValue{&s.format}, "raw-format", "Sample format of raw input and tones")
	cmd.Flags().BoolVar(&s.bigEndian, "big-endian", false, "Raw input is big-endian")
	cmd.Flags().DurationVar(&s.duration, "duration", 0, "Length of generated tones (0 is endless)")
}

func (s *sourceFlags) options(logger *zap.Logger) decode.Options {
	return decode.Options{
		Format:    audio.Format{SampleRate: s.rate, Channels: s.channels, SampleFormat: s.format},
		BigEndian: s.bigEndian,
		Duration:  s.duration,
		Logger:    logger,
	}
}

// PlayCommand creates the play command
func PlayCommand(ctx *Context) *cobra.Command {
	var (
		src           sourceFlags
		backend       string
		deviceFormat  pcm.SampleFormat
		bufferFrames  int
		outputPath    string
		realtime      bool
		queueBlocks   int
		tui           bool
		loop          bool
		metricsListen string
	)

	cmd := &cobra.Command{
		Use:   "play [file | tone:<hz>]",
		Short: "Play an audio file",
		Long: `Decode a WAV, MP3, FLAC or raw PCM file, or generate a tone, and play it
through an output agent. The device format defaults to the source format when
the backend supports it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.Config
			flags := cmd.Flags()
			if flags.Changed("backend") {
				cfg.Output.Backend = backend
			}
			if flags.Changed("format") {
				cfg.Output.Format = deviceFormat
			}
			if flags.Changed("buffer-frames") {
				cfg.Output.BufferFrames = bufferFrames
			}
			if flags.Changed("output") {
				cfg.Output.Path = outputPath
			}
			if flags.Changed("realtime") {
				cfg.Output.Realtime = realtime
			}
			if flags.Changed("queue-blocks") {
				cfg.Render.QueueBlocks = queueBlocks
			}
			if flags.Changed("tui") {
				cfg.Player.TUI = tui
			}
			if flags.Changed("loop") {
				cfg.Player.Loop = loop
			}
			if flags.Changed("metrics-listen") {
				cfg.Metrics.Listen = metricsListen
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := ctx.newLogger(); err != nil {
				return err
			}
			defer func() { _ = ctx.Logger.Sync() }()

			return runPlay(cmd.Context(), cfg, args[0], src.options(ctx.Logger), ctx.Logger)
		},
	}

	src.register(cmd)
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "Output backend: malgo, oto, writer, wav")
	cmd.Flags().VarP(&formatValue{&deviceFormat}, "format", "f", "Device sample format")
	cmd.Flags().IntVar(&bufferFrames, "buffer-frames", 0, "Frames per device period")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file for the writer and wav backends")
	cmd.Flags().BoolVar(&realtime, "realtime", true, "Pace file backends in real time")
	cmd.Flags().IntVar(&queueBlocks, "queue-blocks", 0, "Renderer queue depth in periods")
	cmd.Flags().BoolVar(&tui, "tui", false, "Show the status TUI")
	cmd.Flags().BoolVar(&loop, "loop", false, "Restart at end of stream")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Serve prometheus metrics on this address")

	return cmd
}

func runPlay(parent context.Context, cfg *config.Config, input string, opts decode.Options, logger *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dec, err := decode.Open(input, opts)
	if err != nil {
		return err
	}

	source := dec.Format()
	outCfg, err := outputConfig(cfg, source)
	if err != nil {
		dec.Close()
		return err
	}

	var metrics *render.Metrics
	if cfg.Metrics.Listen != "" {
		srv, err := startMetrics(cfg.Metrics.Listen, logger)
		if err != nil {
			dec.Close()
			return err
		}
		defer srv.shutdown()
		metrics = srv.metrics
	}

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls
	tuiDone := make(chan struct{})
	if cfg.Player.TUI {
		controls = ui.NewControls()
		tuiProg, err = ui.Run(controls)
		if err != nil {
			dec.Close()
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				logger.Error("TUI error", zap.Error(err))
			}
		}()
	} else {
		close(tuiDone)
	}

	title := input
	if !decode.IsTone(input) {
		title = filepath.Base(input)
	}

	pcfg := player.Config{
		QueueBlocks: cfg.Render.QueueBlocks,
		Loop:        cfg.Player.Loop,
		Metrics:     metrics,
	}
	if tuiProg != nil {
		pcfg.OnStats = func(stats player.Stats) {
			tuiProg.Send(ui.StatusMsg{Title: title, Backend: outCfg.Backend, Stats: stats})
		}
	}

	p, err := player.New(dec, output.NewFactory(outCfg, logger), pcfg, logger)
	if err != nil {
		dec.Close()
		if tuiProg != nil {
			tuiProg.Quit()
			<-tuiDone
		}
		return err
	}

	if err := p.Play(); err != nil {
		_ = p.Stop()
		if tuiProg != nil {
			tuiProg.Quit()
			<-tuiDone
		}
		return err
	}

	var restart, quit <-chan struct{}
	if controls != nil {
		restart, quit = controls.Restart, controls.Quit
	}

loop:
	for {
		select {
		case <-restart:
			if err := p.Seek(0); err != nil {
				logger.Warn("Restart failed", zap.Error(err))
			}
		case <-quit:
			break loop
		case <-sigCtx.Done():
			logger.Info("Received shutdown signal")
			break loop
		case <-p.Done():
			break loop
		}
	}

	stopErr := p.Stop()
	if tuiProg != nil {
		tuiProg.Quit()
		<-tuiDone
	}

	if err := p.Wait(); err != nil {
		return err
	}
	return stopErr
}

// outputConfig resolves the device for a source. Rate and channel count
// always follow the source.
func outputConfig(cfg *config.Config, source audio.Format) (output.Config, error) {
	format := cfg.Output.Format
	if format == pcm.Unknown {
		preferred, err := output.PreferredFormat(cfg.Output.Backend, source.SampleFormat)
		if err != nil {
			return output.Config{}, err
		}
		format = preferred
	}

	return output.Config{
		Backend:      cfg.Output.Backend,
		SampleRate:   source.SampleRate,
		Channels:     source.Channels,
		Format:       format,
		BufferFrames: cfg.Output.BufferFrames,
		Path:         cfg.Output.Path,
		Realtime:     cfg.Output.Realtime,
	}, nil
}
