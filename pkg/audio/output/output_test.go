// ABOUTME: Audio output agent tests
// ABOUTME: Verifies the period pump, backend selection and the file agents
package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/pcm"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAgentsImplementAgent(t *testing.T) {
	var _ Agent = (*Malgo)(nil)
	var _ Agent = (*Oto)(nil)
	var _ Agent = (*Writer)(nil)
	var _ Agent = (*WAV)(nil)
}

// counter fills channel c of every period with c*16 + period number
func counter() (Callback, *atomic.Int32) {
	var calls atomic.Int32
	return func(channels [][]byte) bool {
		n := byte(calls.Add(1))
		for c, plane := range channels {
			for i := range plane {
				plane[i] = byte(c*16) + n
			}
		}
		return true
	}, &calls
}

func testConfig(format pcm.SampleFormat) Config {
	return Config{
		SampleRate:   48000,
		Channels:     2,
		Format:       format,
		BufferFrames: 4,
	}
}

func TestPeriodInterleaves(t *testing.T) {
	cb, _ := counter()
	p := newPeriod(testConfig(pcm.S16), cb, zaptest.NewLogger(t))

	buf, ok := p.next()
	require.True(t, ok)
	require.Len(t, buf, 4*2*2)

	// frames alternate left/right, two bytes per sample
	expected := []byte{1, 1, 17, 17, 1, 1, 17, 17, 1, 1, 17, 17, 1, 1, 17, 17}
	assert.Equal(t, expected, buf)
}

func TestPeriodReadCarriesPartialPeriods(t *testing.T) {
	cb, calls := counter()
	cfg := testConfig(pcm.U8)
	cfg.Channels = 1
	p := newPeriod(cfg, cb, zaptest.NewLogger(t))

	first := make([]byte, 3)
	_, err := p.Read(first)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 1}, first)
	assert.Equal(t, int32(1), calls.Load())

	// one byte left from period 1, then a whole period 2, then part of 3
	second := make([]byte, 6)
	_, err = p.Read(second)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 2, 2, 2, 3}, second)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPeriodUnderrunPlaysSilence(t *testing.T) {
	tests := []struct {
		format  pcm.SampleFormat
		silence byte
	}{
		{pcm.U8, 0x80},
		{pcm.S24, 0x00},
		{pcm.Float, 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			cb := func(channels [][]byte) bool {
				channels[0][0] = 0x55
				return false
			}
			p := newPeriod(testConfig(tt.format), cb, zaptest.NewLogger(t))

			buf, ok := p.next()
			assert.False(t, ok)
			for _, b := range buf {
				require.Equal(t, tt.silence, b)
			}
			assert.Equal(t, uint64(1), p.underruns.Load())
		})
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cb, _ := counter()

	cfg := testConfig(pcm.S24)
	cfg.Backend = BackendWriter
	cfg.Output = &bytes.Buffer{}
	agent, err := New(cfg, cb, nil)
	require.NoError(t, err)
	assert.IsType(t, &Writer{}, agent)

	cfg.Backend = BackendMalgo
	agent, err = New(cfg, cb, nil)
	require.NoError(t, err)
	assert.IsType(t, &Malgo{}, agent)
	assert.Equal(t, 48000, agent.SampleRate())
	assert.Equal(t, 2, agent.Channels())
	assert.Equal(t, 4, agent.BufferSize())
	assert.Equal(t, pcm.S24, agent.Format())

	cfg.Backend = "alsa"
	_, err = New(cfg, cb, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestNewDefaultsBufferFrames(t *testing.T) {
	cb, _ := counter()
	cfg := testConfig(pcm.S16)
	cfg.Backend = BackendWriter
	cfg.Output = &bytes.Buffer{}
	cfg.BufferFrames = 0

	agent, err := New(cfg, cb, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBufferFrames, agent.BufferSize())
}

func TestBackendFormatSupport(t *testing.T) {
	cb, _ := counter()

	tests := []struct {
		backend string
		format  pcm.SampleFormat
		ok      bool
	}{
		{BackendMalgo, pcm.S24, true},
		{BackendMalgo, pcm.Float, true},
		{BackendMalgo, pcm.Double, false},
		{BackendMalgo, pcm.S20of32, false},
		{BackendOto, pcm.S16, true},
		{BackendOto, pcm.S24, false},
		{BackendWAV, pcm.S32, true},
		{BackendWAV, pcm.U8, false},
		{BackendWriter, pcm.S18of32, true},
	}

	for _, tt := range tests {
		t.Run(tt.backend+"/"+tt.format.String(), func(t *testing.T) {
			cfg := testConfig(tt.format)
			cfg.Backend = tt.backend
			cfg.Path = filepath.Join(t.TempDir(), "out")

			_, err := New(cfg, cb, nil)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrUnsupportedFormat), "expected ErrUnsupportedFormat, got %v", err)
			}
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	cb, _ := counter()

	cfg := testConfig(pcm.S16)
	cfg.SampleRate = 0
	_, err := NewWriter(cfg, cb, nil)
	assert.Error(t, err)

	cfg = testConfig(pcm.Unknown)
	_, err = NewWriter(cfg, cb, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(testConfig(pcm.S16), nil, nil)
	assert.Error(t, err)
}

// syncBuffer guards a bytes.Buffer written from the agent goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

func TestWriterStreamsPeriods(t *testing.T) {
	const periods = 5
	var calls atomic.Int32
	cb := func(channels [][]byte) bool {
		if calls.Add(1) > periods {
			return false
		}
		for _, plane := range channels {
			pcm.Silence(pcm.U8, plane)
		}
		return true
	}

	out := &syncBuffer{}
	cfg := testConfig(pcm.U8)
	cfg.Output = out
	w, err := NewWriter(cfg, cb, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, w.Start())
	assert.ErrorIs(t, w.Start(), ErrAlreadyStarted)

	periodBytes := cfg.BufferFrames * cfg.Channels
	require.Eventually(t, func() bool {
		return out.Len() == periods*periodBytes
	}, time.Second, time.Millisecond)

	require.NoError(t, w.Stop())
	assert.ErrorIs(t, w.Stop(), ErrNotStarted)

	// underruns in unpaced mode write nothing
	assert.Equal(t, periods*periodBytes, out.Len())
}

func TestWriterRealtimeWritesSilenceOnUnderrun(t *testing.T) {
	cb := func(channels [][]byte) bool { return false }

	out := &syncBuffer{}
	cfg := testConfig(pcm.S16)
	cfg.Output = out
	cfg.Realtime = true
	cfg.BufferFrames = 48 // 1ms periods
	w, err := NewWriter(cfg, cb, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start())
	require.Eventually(t, func() bool { return out.Len() > 0 }, time.Second, time.Millisecond)
	require.NoError(t, w.Stop())

	periodBytes := cfg.BufferFrames * cfg.Channels * 2
	assert.Zero(t, out.Len()%periodBytes, "only whole periods are written")
	for _, b := range out.buf.Bytes() {
		require.Zero(t, b)
	}
}

func TestWriterToFile(t *testing.T) {
	cb, _ := counter()
	cfg := testConfig(pcm.S24)
	cfg.Path = filepath.Join(t.TempDir(), "out.raw")
	w, err := NewWriter(cfg, cb, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start())
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, w.Stop())

	data, err := os.ReadFile(cfg.Path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Zero(t, len(data)%(cfg.BufferFrames*cfg.Channels*3))
}

func TestWAVRecordsPeriods(t *testing.T) {
	const periods = 3
	var calls atomic.Int32
	cb := func(channels [][]byte) bool {
		if calls.Add(1) > periods {
			return false
		}
		for c, plane := range channels {
			values := make([]int, len(plane)/2)
			for i := range values {
				values[i] = (c + 1) * 1000
			}
			pcm.PutInts(pcm.S16, plane, values)
		}
		return true
	}

	cfg := testConfig(pcm.S16)
	cfg.Path = filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWAV(cfg, cb, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, w.Start())
	require.Eventually(t, func() bool { return calls.Load() > periods }, time.Second, time.Millisecond)
	require.NoError(t, w.Stop())

	f, err := os.Open(cfg.Path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), dec.SampleRate)
	assert.Equal(t, uint16(2), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)

	require.Len(t, buf.Data, periods*cfg.BufferFrames*cfg.Channels)
	for i, v := range buf.Data {
		expected := 1000
		if i%2 == 1 {
			expected = 2000
		}
		require.Equal(t, expected, v, "sample %d", i)
	}
}

func TestWAVRequiresPath(t *testing.T) {
	cb, _ := counter()
	_, err := NewWAV(testConfig(pcm.S16), cb, nil)
	assert.Error(t, err)
}

func TestPreferredFormat(t *testing.T) {
	tests := []struct {
		backend  string
		source   pcm.SampleFormat
		expected pcm.SampleFormat
	}{
		{BackendMalgo, pcm.S24, pcm.S24},
		{BackendMalgo, pcm.S24of32, pcm.S32},
		{BackendMalgo, pcm.Double, pcm.S32},
		{BackendOto, pcm.S32, pcm.Float},
		{BackendOto, pcm.U8, pcm.U8},
		{BackendWAV, pcm.Float, pcm.S32},
		{BackendWriter, pcm.S20of32, pcm.S20of32},
	}

	for _, tt := range tests {
		got, err := PreferredFormat(tt.backend, tt.source)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got, "%s playing %s", tt.backend, tt.source)
	}

	_, err := PreferredFormat("alsa", pcm.S16)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
