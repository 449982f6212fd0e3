// ABOUTME: YAML configuration loading
// ABOUTME: Defines file settings, defaults and validation for the CLI
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/Resonate-Protocol/pcmbridge/pkg/render"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// OutputConfig selects and configures the output agent
type OutputConfig struct {
	Backend string `yaml:"backend"`
	// Format of the device samples; unknown picks the source format when
	// the backend supports it
	Format       pcm.SampleFormat `yaml:"format"`
	BufferFrames int              `yaml:"buffer_frames"`
	Path         string           `yaml:"path"`
	Realtime     bool             `yaml:"realtime"`
}

// RenderConfig tunes the renderer
type RenderConfig struct {
	QueueBlocks int `yaml:"queue_blocks"`
}

// PlayerConfig tunes playback
type PlayerConfig struct {
	TUI  bool `yaml:"tui"`
	Loop bool `yaml:"loop"`
}

// MetricsConfig enables the prometheus endpoint
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Config stores the application configuration
type Config struct {
	LogLevel string        `yaml:"log_level"`
	LogFile  string        `yaml:"log_file"`
	Output   OutputConfig  `yaml:"output"`
	Render   RenderConfig  `yaml:"render"`
	Player   PlayerConfig  `yaml:"player"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Output: OutputConfig{
			Backend:      output.BackendMalgo,
			BufferFrames: output.DefaultBufferFrames,
			Realtime:     true,
		},
		Render: RenderConfig{
			QueueBlocks: render.DefaultQueueBlocks,
		},
	}
}

// LoadConfig loads the configuration from the given file path on top of
// the defaults
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filePath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every field holds a usable value
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}

	switch c.Output.Backend {
	case output.BackendMalgo, output.BackendOto, output.BackendWriter, output.BackendWAV:
	default:
		return fmt.Errorf("%w: output.backend %q", ErrInvalidConfig, c.Output.Backend)
	}
	if c.Output.Backend == output.BackendWAV && c.Output.Path == "" {
		return fmt.Errorf("%w: output.path is required for the wav backend", ErrInvalidConfig)
	}

	if c.Output.BufferFrames < 1 {
		return fmt.Errorf("%w: output.buffer_frames %d", ErrInvalidConfig, c.Output.BufferFrames)
	}
	if c.Render.QueueBlocks < 1 {
		return fmt.Errorf("%w: render.queue_blocks %d", ErrInvalidConfig, c.Render.QueueBlocks)
	}

	return nil
}
