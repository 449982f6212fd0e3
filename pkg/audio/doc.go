// ABOUTME: Audio fundamentals package providing core types
// ABOUTME: Defines Format and Block shared by decoders, renderer and outputs
// Package audio provides the stream types used throughout pcmbridge.
//
// This package defines:
//   - Format: sample rate, channel count and pcm.SampleFormat of a stream
//   - Block: a planar run of samples handed between goroutines
//
// Sample conversion lives in the pcm subpackage.
//
// Example:
//
//	format := audio.Format{
//	    SampleRate:   192000,
//	    Channels:     2,
//	    SampleFormat: pcm.S24,
//	}
//
//	block := audio.NewBlock(pcm.S24, format.Channels, 512)
package audio
