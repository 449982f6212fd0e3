// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all PCM sources
package decode

import (
	"errors"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
)

// ErrUnsupported is returned for streams no decoder can read
var ErrUnsupported = errors.New("unsupported audio stream")

// Decoder produces interleaved PCM in Format().SampleFormat
type Decoder interface {
	// Format describes the samples returned by Read
	Format() audio.Format

	// Read fills p with whole frames and returns the number of bytes
	// written. It returns io.EOF once the stream is exhausted.
	Read(p []byte) (int, error)

	// Seek moves to the given frame
	Seek(frame int64) error

	// Close releases decoder resources
	Close() error
}
