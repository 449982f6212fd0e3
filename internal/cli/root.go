// ABOUTME: Cobra root command
// ABOUTME: Loads configuration, builds the logger and registers subcommands
package cli

import (
	"github.com/Resonate-Protocol/pcmbridge/internal/config"
	"github.com/Resonate-Protocol/pcmbridge/internal/logging"
	"github.com/Resonate-Protocol/pcmbridge/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// DefaultLogFile receives logs while the TUI owns the terminal
const DefaultLogFile = "pcmbridge.log"

// Context carries state shared by every subcommand
type Context struct {
	ConfigPath string
	LogLevel   string
	Config     *config.Config
	Logger     *zap.Logger
}

// RootCommand creates and returns the root command
func RootCommand(ctx *Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pcmbridge",
		Short:         "Decode, convert and play PCM audio",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&ctx.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	formatsCmd := FormatsCommand()
	versionCmd := VersionCommand()

	rootCmd.AddCommand(
		PlayCommand(ctx),
		ConvertCommand(ctx),
		formatsCmd,
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// informational commands need no config
		if cmd.Name() == formatsCmd.Name() || cmd.Name() == versionCmd.Name() {
			return nil
		}
		return loadConfig(ctx)
	}

	return rootCmd
}

// loadConfig reads the config file, if any, and applies the log level flag
func loadConfig(ctx *Context) error {
	cfg := config.Default()
	if ctx.ConfigPath != "" {
		loaded, err := config.LoadConfig(ctx.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if ctx.LogLevel != "" {
		cfg.LogLevel = ctx.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx.Config = cfg
	return nil
}

// newLogger builds the logger once flags are final. With the TUI enabled
// logs go to a file so they do not corrupt the screen.
func (ctx *Context) newLogger() error {
	var paths []string
	if ctx.Config.Player.TUI {
		path := ctx.Config.LogFile
		if path == "" {
			path = DefaultLogFile
		}
		paths = append(paths, path)
	} else if ctx.Config.LogFile != "" {
		paths = append(paths, "stderr", ctx.Config.LogFile)
	}

	logger, err := logging.New(ctx.Config.LogLevel, paths...)
	if err != nil {
		return err
	}
	ctx.Logger = logger
	return nil
}
