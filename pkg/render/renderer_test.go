// ABOUTME: Tests for the renderer
// ABOUTME: Drives the device callback through a fake agent
package render

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAgent is an output.Agent whose periods are pulled by the test
type fakeAgent struct {
	cfg     output.Config
	cb      output.Callback
	started bool
	stops   int
}

func (f *fakeAgent) SampleRate() int          { return f.cfg.SampleRate }
func (f *fakeAgent) BufferSize() int          { return f.cfg.BufferFrames }
func (f *fakeAgent) Channels() int            { return f.cfg.Channels }
func (f *fakeAgent) Format() pcm.SampleFormat { return f.cfg.Format }

func (f *fakeAgent) Start() error {
	f.started = true
	return nil
}

func (f *fakeAgent) Stop() error {
	if !f.started {
		return output.ErrNotStarted
	}
	f.started = false
	f.stops++
	return nil
}

// pull runs one period through the callback and returns the planes
func (f *fakeAgent) pull() ([][]byte, bool) {
	planes := make([][]byte, f.cfg.Channels)
	for i := range planes {
		planes[i] = make([]byte, f.cfg.BufferFrames*f.cfg.Format.BytesPerSample())
	}
	ok := f.cb(planes)
	return planes, ok
}

func newTestRenderer(t *testing.T, source audio.Format, device output.Config, queueBlocks int, metrics *Metrics) (*Renderer, *fakeAgent) {
	t.Helper()
	agent := &fakeAgent{cfg: device}
	factory := func(cb output.Callback) (output.Agent, error) {
		agent.cb = cb
		return agent, nil
	}
	r, err := New(Config{Source: source, QueueBlocks: queueBlocks, Metrics: metrics}, factory, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r, agent
}

func stereoS16(frames ...[2]int16) []byte {
	out := make([]byte, 0, len(frames)*4)
	for _, f := range frames {
		out = binary.LittleEndian.AppendUint16(out, uint16(f[0]))
		out = binary.LittleEndian.AppendUint16(out, uint16(f[1]))
	}
	return out
}

var (
	s16Stereo = audio.Format{SampleRate: 48000, Channels: 2, SampleFormat: pcm.S16}
	s32Device = output.Config{SampleRate: 48000, Channels: 2, Format: pcm.S32, BufferFrames: 2}
)

func TestNewRejectsMismatchedLayout(t *testing.T) {
	factory := func(cb output.Callback) (output.Agent, error) {
		return &fakeAgent{cfg: output.Config{SampleRate: 44100, Channels: 2, Format: pcm.S16, BufferFrames: 4}}, nil
	}
	_, err := New(Config{Source: s16Stereo}, factory, nil)
	assert.ErrorIs(t, err, ErrFormatMismatch)

	factory = func(cb output.Callback) (output.Agent, error) {
		return &fakeAgent{cfg: output.Config{SampleRate: 48000, Channels: 1, Format: pcm.S16, BufferFrames: 4}}, nil
	}
	_, err = New(Config{Source: s16Stereo}, factory, nil)
	assert.ErrorIs(t, err, ErrFormatMismatch)
}

func TestNewWrapsFactoryError(t *testing.T) {
	boom := errors.New("no device")
	factory := func(cb output.Callback) (output.Agent, error) { return nil, boom }

	_, err := New(Config{Source: s16Stereo}, factory, nil)
	assert.ErrorIs(t, err, boom)
}

func TestNewRejectsInvalidSource(t *testing.T) {
	factory := func(cb output.Callback) (output.Agent, error) { return &fakeAgent{cfg: s32Device}, nil }
	_, err := New(Config{Source: audio.Format{SampleRate: 48000, Channels: 2}}, factory, nil)
	assert.ErrorIs(t, err, audio.ErrInvalidFormat)
}

func TestWriteConvertsAndDeinterleaves(t *testing.T) {
	r, agent := newTestRenderer(t, s16Stereo, s32Device, 4, nil)

	// two and a half periods
	n, err := r.Write(stereoS16([2]int16{1, -1}, [2]int16{2, -2}, [2]int16{3, -3}, [2]int16{4, -4}, [2]int16{5, -5}))
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, 2, r.Stats().Depth, "the half period is held back")

	require.NoError(t, r.Drain())

	expected := [][2][2]int32{
		{{1 << 16, 2 << 16}, {-1 << 16, -2 << 16}},
		{{3 << 16, 4 << 16}, {-3 << 16, -4 << 16}},
		{{5 << 16, 0}, {-5 << 16, 0}},
	}
	for p, want := range expected {
		planes, ok := agent.pull()
		require.True(t, ok, "period %d", p)
		for c := 0; c < 2; c++ {
			for f := 0; f < 2; f++ {
				got := int32(binary.LittleEndian.Uint32(planes[c][f*4:]))
				assert.Equal(t, want[c][f], got, "period %d channel %d frame %d", p, c, f)
			}
		}
	}

	_, ok := agent.pull()
	assert.False(t, ok, "queue should be empty")

	stats := r.Stats()
	assert.Equal(t, int64(3), stats.Queued)
	assert.Equal(t, int64(3), stats.Played)
	assert.Equal(t, int64(1), stats.Underruns)
}

func TestWriteAcrossCalls(t *testing.T) {
	r, agent := newTestRenderer(t, s16Stereo, s32Device, 4, nil)

	_, err := r.Write(stereoS16([2]int16{7, 8}))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Stats().Depth)

	_, err = r.Write(stereoS16([2]int16{9, 10}))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Stats().Depth)

	planes, ok := agent.pull()
	require.True(t, ok)
	assert.Equal(t, int32(7<<16), int32(binary.LittleEndian.Uint32(planes[0])))
	assert.Equal(t, int32(9<<16), int32(binary.LittleEndian.Uint32(planes[0][4:])))
	assert.Equal(t, int32(10<<16), int32(binary.LittleEndian.Uint32(planes[1][4:])))
}

func TestDrainPadsU8WithSilence(t *testing.T) {
	source := audio.Format{SampleRate: 8000, Channels: 1, SampleFormat: pcm.Float}
	device := output.Config{SampleRate: 8000, Channels: 1, Format: pcm.U8, BufferFrames: 4}
	r, agent := newTestRenderer(t, source, device, 2, nil)

	src := make([]byte, 4)
	binary.LittleEndian.PutUint32(src, 0x3F000000) // 0.5
	_, err := r.Write(src)
	require.NoError(t, err)
	require.NoError(t, r.Drain())

	planes, ok := agent.pull()
	require.True(t, ok)
	assert.Equal(t, []byte{0xC0, 0x80, 0x80, 0x80}, planes[0])
}

func TestDrainWithoutPending(t *testing.T) {
	r, _ := newTestRenderer(t, s16Stereo, s32Device, 2, nil)
	assert.NoError(t, r.Drain())
	assert.Equal(t, 0, r.Stats().Depth)
}

func TestWriteRejectsPartialFrame(t *testing.T) {
	r, _ := newTestRenderer(t, s16Stereo, s32Device, 2, nil)
	_, err := r.Write([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrPartialFrame)
}

func TestFlushReleasesBlockedWrite(t *testing.T) {
	r, _ := newTestRenderer(t, s16Stereo, s32Device, 1, nil)

	done := make(chan error, 1)
	go func() {
		// three periods into a one-block queue
		_, err := r.Write(stereoS16([2]int16{1, 1}, [2]int16{2, 2}, [2]int16{3, 3}, [2]int16{4, 4}, [2]int16{5, 5}, [2]int16{6, 6}))
		done <- err
	}()

	require.Eventually(t, func() bool { return r.Stats().Depth == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	r.BeginFlush()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrFlushing)
	case <-time.After(time.Second):
		t.Fatal("write was not released by BeginFlush")
	}

	stats := r.Stats()
	assert.Equal(t, 0, stats.Depth)
	assert.Equal(t, int64(1), stats.Dropped)
	assert.Equal(t, int64(1), stats.Flushes)
	assert.True(t, r.Flushing())
}

func TestConcurrentFlushAccountsEachBlockOnce(t *testing.T) {
	r, agent := newTestRenderer(t, s16Stereo, s32Device, 64, nil)

	frames := make([][2]int16, 2*64)
	_, err := r.Write(stereoS16(frames...))
	require.NoError(t, err)
	require.Equal(t, int64(64), r.Stats().Queued)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 64; i++ {
			agent.pull()
		}
	}()
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.BeginFlush()
		}()
	}
	wg.Wait()

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.Flushes)
	assert.Equal(t, stats.Queued, stats.Played+stats.Dropped)
}

func TestWriteWhileFlushing(t *testing.T) {
	r, agent := newTestRenderer(t, s16Stereo, s32Device, 2, nil)

	_, err := r.Write(stereoS16([2]int16{1, 1}))
	require.NoError(t, err)

	r.BeginFlush()
	r.BeginFlush()

	n, err := r.Write(stereoS16([2]int16{2, 2}))
	assert.ErrorIs(t, err, ErrFlushing)
	assert.Zero(t, n)
	assert.ErrorIs(t, r.Drain(), ErrFlushing)
	assert.Equal(t, int64(1), r.Stats().Flushes)

	// reopening drops the half period written before the flush
	r.EndFlush()
	_, err = r.Write(stereoS16([2]int16{3, 3}, [2]int16{4, 4}))
	require.NoError(t, err)

	planes, ok := agent.pull()
	require.True(t, ok)
	assert.Equal(t, int32(3<<16), int32(binary.LittleEndian.Uint32(planes[0])))
}

func TestStop(t *testing.T) {
	r, agent := newTestRenderer(t, s16Stereo, s32Device, 2, nil)

	// stopping an agent that never started is not an error
	require.NoError(t, r.Stop())

	r.EndFlush()
	require.NoError(t, r.Start())
	assert.True(t, agent.started)

	require.NoError(t, r.Stop())
	assert.False(t, agent.started)
	assert.Equal(t, 1, agent.stops)
	assert.True(t, r.Flushing())
}

func TestWaitEmpty(t *testing.T) {
	r, agent := newTestRenderer(t, s16Stereo, s32Device, 2, nil)
	_, err := r.Write(stereoS16([2]int16{1, 1}, [2]int16{2, 2}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.WaitEmpty(ctx), context.DeadlineExceeded)

	agent.pull()
	assert.NoError(t, r.WaitEmpty(context.Background()))
}

func TestConcurrentProducerAndDevice(t *testing.T) {
	r, agent := newTestRenderer(t, s16Stereo, s32Device, 3, nil)
	const periods = 200

	go func() {
		for i := 0; i < periods; i++ {
			v := int16(i)
			if _, err := r.Write(stereoS16([2]int16{v, -v}, [2]int16{v, -v})); err != nil {
				return
			}
		}
	}()

	next := 0
	deadline := time.After(5 * time.Second)
	for next < periods {
		planes, ok := agent.pull()
		if !ok {
			select {
			case <-deadline:
				t.Fatalf("only %d of %d periods arrived", next, periods)
			default:
			}
			time.Sleep(100 * time.Microsecond)
			continue
		}
		left := int32(binary.LittleEndian.Uint32(planes[0]))
		right := int32(binary.LittleEndian.Uint32(planes[1][4:]))
		require.Equal(t, int32(next)<<16, left, "periods must arrive in order")
		require.Equal(t, -int32(next)<<16, right)
		next++
	}
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewMetrics(registry)
	require.NoError(t, err)

	r, agent := newTestRenderer(t, s16Stereo, s32Device, 2, m)

	_, err = r.Write(stereoS16([2]int16{1, 1}, [2]int16{2, 2}, [2]int16{3, 3}, [2]int16{4, 4}))
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.queued))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, float64(8), testutil.ToFloat64(m.samplesConverted.WithLabelValues("s16", "s32")))

	agent.pull()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.played))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.queueDepth))

	r.BeginFlush()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.dropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.flushesTotal))

	agent.pull()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.underrunsTotal))

	// a second set on the same registry collides
	_, err = NewMetrics(registry)
	assert.Error(t, err)
}
