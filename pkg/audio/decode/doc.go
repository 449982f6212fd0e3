// ABOUTME: Audio decoder package
// ABOUTME: Provides the Decoder interface and WAV, MP3, FLAC, raw PCM and tone sources
// Package decode turns audio files into interleaved PCM frames.
//
// Every decoder reports its native sample format instead of converting to a
// common one; conversion to the device format happens in the renderer.
//
// Example:
//
//	dec, err := decode.Open("song.flac", decode.Options{})
//	defer dec.Close()
//	n, err := dec.Read(buf)
package decode
