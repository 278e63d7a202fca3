package audio

import (
	"sync"
)

// Window keeps the most recent samples that flowed through playback so an
// observer can compute a spectrum or level without touching the source
// buffer. Writes come from the playback callback, reads from the UI, so
// access is locked.
type Window struct {
	buffer []float32
	size   int
	write  int
	filled bool
	mu     sync.RWMutex
}

// NewWindow creates a window holding the given number of samples.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 1024
	}
	return &Window{
		buffer: make([]float32, size),
		size:   size,
	}
}

// Push appends samples, overwriting the oldest ones once the window is full.
func (w *Window) Push(samples []float32) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, s := range samples {
		w.buffer[w.write] = s
		w.write = (w.write + 1) % w.size
		if w.write == 0 {
			w.filled = true
		}
	}
}

// Snapshot returns the window contents oldest-first. The slice is a copy.
func (w *Window) Snapshot() []float32 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.filled {
		out := make([]float32, w.write)
		copy(out, w.buffer[:w.write])
		return out
	}

	out := make([]float32, w.size)
	n := copy(out, w.buffer[w.write:])
	copy(out[n:], w.buffer[:w.write])
	return out
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.filled {
		return w.size
	}
	return w.write
}

// Clear empties the window.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.write = 0
	w.filled = false
}
