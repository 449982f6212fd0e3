// ABOUTME: formats subcommand and sample format flag type
// ABOUTME: Lists every sample format and parses format names on the command line
package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/spf13/cobra"
)

// formatValue adapts pcm.SampleFormat to a cobra flag
type formatValue struct {
	f *pcm.SampleFormat
}

func (v *formatValue) String() string {
	if v.f == nil || *v.f == pcm.Unknown {
		return ""
	}
	return v.f.String()
}

func (v *formatValue) Set(s string) error {
	f, err := pcm.ParseSampleFormat(s)
	if err != nil {
		return err
	}
	*v.f = f
	return nil
}

func (v *formatValue) Type() string {
	return "format"
}

// FormatsCommand creates the formats command
func FormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported sample formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printFormats(cmd.OutOrStdout())
		},
	}
}

func printFormats(w io.Writer) error {
	backends := []string{output.BackendMalgo, output.BackendOto, output.BackendWriter, output.BackendWAV}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tBITS\tBYTES\tBACKENDS")
	for _, f := range pcm.Formats() {
		var playable []string
		for _, b := range backends {
			formats, err := output.Formats(b)
			if err != nil {
				return err
			}
			for _, supported := range formats {
				if supported == f {
					playable = append(playable, b)
					break
				}
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", f, f.Bits(), f.BytesPerSample(), strings.Join(playable, ","))
	}
	return tw.Flush()
}
