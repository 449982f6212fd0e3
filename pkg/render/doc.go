// ABOUTME: Renderer package connecting producers to output agents
// ABOUTME: Conversion, queueing and the device callback in one place
// Package render moves PCM from a producer goroutine to an output agent.
//
// A Renderer accepts interleaved frames in any pcm.SampleFormat, converts
// every sample into the device format through the pcm conversion table,
// splits the result into planar blocks of one device period each and queues
// them. The agent's callback takes one block per period with a non-blocking
// poll and reports an underrun when nothing is ready.
//
// Sample rate and channel count must match the device: the renderer does not
// resample or remix.
//
// Example:
//
//	r, err := render.New(render.Config{Source: src}, output.NewFactory(devCfg, logger), logger)
//	err = r.Start()
//	defer r.Stop()
//
//	for {
//	    n, err := dec.Read(buf)
//	    if _, err := r.Write(buf[:n]); errors.Is(err, render.ErrFlushing) {
//	        // stop or seek in progress
//	    }
//	}
package render
