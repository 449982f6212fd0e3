// ABOUTME: Period buffer shared by all output agents
// ABOUTME: Invokes the callback, fills silence on underrun and interleaves planes
package output

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"go.uber.org/zap"
)

// period owns the planar buffers handed to the callback and the interleaved
// bytes of the most recent period. Devices that ask for a different number
// of frames than BufferSize are served from the leftover of the previous
// period before the callback runs again.
type period struct {
	cb     Callback
	format pcm.SampleFormat
	frames int
	planes [][]byte

	buf []byte // interleaved period
	off int    // bytes of buf already handed to the device

	underrun  bool
	periods   atomic.Uint64
	underruns atomic.Uint64
	logger    *zap.Logger
}

func newPeriod(cfg Config, cb Callback, logger *zap.Logger) *period {
	bps := cfg.Format.BytesPerSample()
	planes := make([][]byte, cfg.Channels)
	for i := range planes {
		planes[i] = make([]byte, cfg.BufferFrames*bps)
	}
	buf := make([]byte, cfg.BufferFrames*cfg.Channels*bps)
	return &period{
		cb:     cb,
		format: cfg.Format,
		frames: cfg.BufferFrames,
		planes: planes,
		buf:    buf,
		off:    len(buf),
		logger: logger,
	}
}

// pull runs the callback once. On underrun every plane is silenced.
func (p *period) pull() bool {
	ok := p.cb(p.planes)
	p.periods.Add(1)
	if !ok {
		for _, plane := range p.planes {
			pcm.Silence(p.format, plane)
		}
		p.underruns.Add(1)
		if !p.underrun {
			p.logger.Debug("Output underrun, playing silence")
		}
	} else if p.underrun {
		p.logger.Debug("Output recovered from underrun")
	}
	p.underrun = !ok
	return ok
}

// interleave packs the planes into buf frame by frame
func (p *period) interleave() {
	bps := p.format.BytesPerSample()
	frameSize := bps * len(p.planes)
	for c, plane := range p.planes {
		for f := 0; f < p.frames; f++ {
			dst := f*frameSize + c*bps
			copy(p.buf[dst:dst+bps], plane[f*bps:(f+1)*bps])
		}
	}
	p.off = 0
}

// next pulls and interleaves a whole period
func (p *period) next() ([]byte, bool) {
	ok := p.pull()
	p.interleave()
	p.off = len(p.buf)
	return p.buf, ok
}

// Read fills dst completely with interleaved samples, running the callback
// as often as needed. It never fails, so it can back an io.Reader that a
// device goroutine drains.
func (p *period) Read(dst []byte) (int, error) {
	n := 0
	for n < len(dst) {
		if p.off == len(p.buf) {
			p.pull()
			p.interleave()
		}
		c := copy(dst[n:], p.buf[p.off:])
		p.off += c
		n += c
	}
	return n, nil
}
