// ABOUTME: Bounded blocking queue package
// ABOUTME: Moves sample blocks between producer and device goroutines
// Package queue provides BlockingQueue, a fixed-capacity FIFO with blocking
// and non-blocking operations plus a reversible flush mode.
//
// A flush is how a player cancels in-flight audio on stop or seek: every
// queued item is dropped and any goroutine blocked in Put or Take returns
// false straight away.
//
// Example:
//
//	q := queue.New[*audio.Block](8)
//
//	// producer
//	if !q.Put(block) {
//	    return // flushed
//	}
//
//	// real-time consumer
//	block, ok := q.Poll()
//
//	// seek
//	q.BeginFlush()
//	decoder.Seek(frame)
//	q.EndFlush()
package queue
