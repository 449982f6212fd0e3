// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the pull-based Agent contract and its backends
// Package output provides audio playback agents.
//
// An Agent owns a device (or a stand-in for one) and pulls audio by invoking
// a Callback once per period of BufferSize frames. The callback receives one
// byte plane per channel in the agent's sample format and reports underruns
// by returning false, in which case the agent plays silence.
//
// Backends:
//   - malgo: miniaudio playback, U8/S16/S24/S32/Float
//   - oto: oto playback, U8/S16/Float
//   - writer: raw interleaved PCM to a file or io.Writer, any format
//   - wav: RIFF/WAVE file, S16/S24/S32
//
// Example:
//
//	agent, err := output.New(output.Config{
//	    Backend:      output.BackendMalgo,
//	    SampleRate:   48000,
//	    Channels:     2,
//	    Format:       pcm.S24,
//	    BufferFrames: 512,
//	}, func(planes [][]byte) bool {
//	    return fill(planes)
//	}, logger)
//	err = agent.Start()
//	defer agent.Stop()
package output
