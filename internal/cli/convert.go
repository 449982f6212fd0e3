// ABOUTME: convert subcommand
// ABOUTME: Rewrites decoded audio as raw PCM or WAV in another sample format
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/decode"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/Resonate-Protocol/pcmbridge/pkg/player"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// convertFrames is the number of frames converted per read
const convertFrames = 4096

// ConvertCommand creates the convert command
func ConvertCommand(ctx *Context) *cobra.Command {
	var (
		src sourceFlags
		to  pcm.SampleFormat
	)

	cmd := &cobra.Command{
		Use:   "convert [input] [output]",
		Short: "Convert audio to another sample format",
		Long: `Decode the input and write it in the sample format given by --to.
Output ending in .wav is written as a WAV file through the wav backend; any
other output, or "-" for stdout, receives raw little-endian PCM.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == pcm.Unknown {
				return errors.New("--to is required")
			}
			if decode.IsTone(args[0]) && src.duration == 0 {
				return errors.New("converting a tone needs --duration")
			}
			if err := ctx.newLogger(); err != nil {
				return err
			}
			defer func() { _ = ctx.Logger.Sync() }()

			dec, err := decode.Open(args[0], src.options(ctx.Logger))
			if err != nil {
				return err
			}

			if strings.EqualFold(filepath.Ext(args[1]), ".wav") {
				return convertWAV(dec, args[1], to, ctx.Config.Output.BufferFrames, ctx.Logger)
			}
			defer dec.Close()
			return convertRaw(dec, args[1], to, cmd.OutOrStdout(), ctx.Logger)
		},
	}

	src.register(cmd)
	cmd.Flags().Var(&formatValue{&to}, "to", "Target sample format")

	return cmd
}

// convertRaw converts sample by sample through the conversion graph
func convertRaw(dec decode.Decoder, path string, to pcm.SampleFormat, stdout io.Writer, logger *zap.Logger) error {
	out := stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	format := dec.Format()
	samples := convertFrames * format.Channels
	src := make([]byte, samples*format.SampleFormat.BytesPerSample())
	dst := make([]byte, samples*to.BytesPerSample())

	var frames int64
	for {
		n, err := dec.Read(src)
		if n > 0 {
			converted, convErr := pcm.ConvertBlock(dst, to, src[:n], format.SampleFormat)
			if convErr != nil {
				return convErr
			}
			if _, werr := out.Write(dst[:converted*to.BytesPerSample()]); werr != nil {
				return fmt.Errorf("failed to write output: %w", werr)
			}
			frames += int64(converted / format.Channels)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	logger.Info("Converted",
		zap.Stringer("from", format.SampleFormat),
		zap.Stringer("to", to),
		zap.Int64("frames", frames))
	return nil
}

// convertWAV plays the decoder into an unpaced wav agent
func convertWAV(dec decode.Decoder, path string, to pcm.SampleFormat, bufferFrames int, logger *zap.Logger) error {
	format := dec.Format()
	factory := output.NewFactory(output.Config{
		Backend:      output.BackendWAV,
		SampleRate:   format.SampleRate,
		Channels:     format.Channels,
		Format:       to,
		BufferFrames: bufferFrames,
		Path:         path,
	}, logger)

	p, err := player.New(dec, factory, player.Config{}, logger)
	if err != nil {
		dec.Close()
		return err
	}
	if err := p.Play(); err != nil {
		_ = p.Stop()
		return err
	}

	waitErr := p.Wait()
	if err := p.Stop(); err != nil {
		return err
	}
	return waitErr
}
