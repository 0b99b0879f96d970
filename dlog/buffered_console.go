package dlog

// Wrap the console implementation to buffer writes, yet flush in a
// timely, deterministic fashion, either buffering up to n bytes, or
// for up to t milliseconds, whichever comes first.

import (
	"bufio"
	"io"
	"sync"
	"time"
)

type bufferedConsoleT struct {
	mu               sync.Mutex
	wr               io.Writer
	bufferSize       int
	maxFlushInterval time.Duration
	baseWr           io.Writer
}

func newBufferedConsole(
	baseWr io.Writer,
	bufferSize int,
	maxFlushInterval time.Duration) *bufferedConsoleT {

	return &bufferedConsoleT{
		baseWr:           baseWr,
		bufferSize:       bufferSize,
		maxFlushInterval: maxFlushInterval,
	}
}

func (cb *bufferedConsoleT) Flush() error {
	type flusher interface {
		Flush() error
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if fwr, ok := cb.wr.(flusher); ok {
		return fwr.Flush()
	}
	return nil
}

func (cb *bufferedConsoleT) flushDaemon() {
	if cb.maxFlushInterval <= 0 {
		return
	}
	// Try to guarantee that we flush at least every maxFlushInterval.
	// This can result in a single extra queued flush if the
	// underlying writer takes longer maxFlushInterval.
	ticker := time.NewTicker(cb.maxFlushInterval)
	defer ticker.Stop()
	for range ticker.C {
		_ = cb.Flush() // Ignore error.
	}
}

func (cb *bufferedConsoleT) Write(b []byte) (n int, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.wr == nil {
		if cb.bufferSize <= 0 {
			return cb.baseWr.Write(b)
		}
		cb.wr = bufio.NewWriterSize(cb.baseWr, cb.bufferSize)
		go cb.flushDaemon()
	}
	return cb.wr.Write(b)
}
