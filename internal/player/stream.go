package player

import (
	"github.com/pagetone/narrator/internal/audio"
)

// bufferStreamer streams a mono sample buffer as stereo device samples and
// taps everything it emits into a window for the visualizer. Position
// advances only while the device pulls, so pausing upstream preserves it
// exactly.
type bufferStreamer struct {
	samples []float32
	pos     int
	window  *audio.Window
}

func newBufferStreamer(samples []float32, window *audio.Window) *bufferStreamer {
	return &bufferStreamer{samples: samples, window: window}
}

func (s *bufferStreamer) Stream(out [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}

	for i := range out {
		if s.pos >= len(s.samples) {
			break
		}
		v := float64(s.samples[s.pos])
		out[i][0] = v
		out[i][1] = v
		s.pos++
		n++
	}

	if s.window != nil && n > 0 {
		s.window.Push(s.samples[s.pos-n : s.pos])
	}
	return n, true
}

func (s *bufferStreamer) Err() error { return nil }

// position returns the number of source samples consumed so far. Callers
// must hold the output lock while the streamer is live.
func (s *bufferStreamer) position() int { return s.pos }
