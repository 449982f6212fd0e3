// ABOUTME: Player package for local file playback
// ABOUTME: Ties a decoder, the renderer and an output agent together
// Package player plays a decoded stream through an output agent.
//
// A producer goroutine reads whole periods from the decoder and writes them
// to the renderer, blocking while the renderer queue is full. Seek flushes
// the renderer, which releases the producer, then repositions the decoder.
//
// Example:
//
//	dec, _ := decode.Open("song.wav", decode.Options{})
//	p, err := player.New(dec, output.NewFactory(cfg, logger), player.Config{}, logger)
//	if err := p.Play(); err != nil {
//	    log.Fatal(err)
//	}
//	p.Wait()
//	p.Stop()
package player
