package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"

	"github.com/pagetone/narrator/internal/audio"
)

// State is the controller's playback state.
type State int

const (
	// StateIdle means no source is loaded.
	StateIdle State = iota
	// StatePlaying means the current source is audible.
	StatePlaying
	// StatePaused means a source is loaded but its clock is suspended.
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// resampleQuality balances latency against interpolation quality for the
// rate-change resampler.
const resampleQuality = 4

// windowSize is how many recent samples the visualizer tap retains.
const windowSize = 1024

// Request describes a source to play.
type Request struct {
	Samples    []float32
	SampleRate int
	Title      string
	Voice      string
}

// Session is a snapshot of what is currently audible.
type Session struct {
	State    State
	Elapsed  time.Duration
	Duration time.Duration
	Rate     float64
	Title    string
	Voice    string
}

// Controller is the playback state machine. It owns the one current source;
// starting a new one tears the previous one down first.
type Controller struct {
	out        Output
	sampleRate int

	mu        sync.Mutex
	state     State
	rate      float64
	gen       int
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	stream    *bufferStreamer
	window    *audio.Window
	total     int
	title     string
	voice     string
	onEnd     func()
}

// New creates a controller over the given output device, initialized for
// the given sample rate.
func New(out Output, sampleRate int, rate float64) (*Controller, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("playback rate must be positive, got %f", rate)
	}
	if err := out.Init(sampleRate); err != nil {
		return nil, err
	}
	return &Controller{
		out:        out,
		sampleRate: sampleRate,
		state:      StateIdle,
		rate:       rate,
		window:     audio.NewWindow(windowSize),
	}, nil
}

// OnEnd registers a callback invoked exactly once when a source plays to
// completion (not when it is stopped explicitly).
func (c *Controller) OnEnd(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnd = f
}

// Play establishes a new current source and starts it at the controller's
// rate. Any already-loaded source is torn down first.
func (c *Controller) Play(req Request) error {
	if len(req.Samples) == 0 {
		return fmt.Errorf("cannot play empty sample buffer")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Exclusive current source: never two audible sources.
	if c.state != StateIdle {
		c.teardownLocked()
	}

	samples := req.Samples
	if req.SampleRate > 0 && req.SampleRate != c.sampleRate {
		samples = audio.Resample(samples, req.SampleRate, c.sampleRate)
	}

	c.gen++
	gen := c.gen

	c.stream = newBufferStreamer(samples, c.window)
	c.ctrl = &beep.Ctrl{Streamer: c.stream}
	c.resampler = beep.ResampleRatio(resampleQuality, c.rate, c.ctrl)
	c.total = len(samples)
	c.title = req.Title
	c.voice = req.Voice
	c.state = StatePlaying

	// The callback fires under the device lock; handling it inline could
	// deadlock against a concurrent Pause or Stop, so it is dispatched.
	done := beep.Callback(func() {
		go c.finished(gen)
	})
	c.out.Play(beep.Seq(c.resampler, done))
	return nil
}

// Pause suspends the audio clock, preserving position. Valid from Playing.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return fmt.Errorf("cannot pause from state %s", c.state)
	}

	c.out.Lock()
	c.ctrl.Paused = true
	c.out.Unlock()
	c.state = StatePaused
	return nil
}

// Resume restarts the audio clock. Valid from Paused.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return fmt.Errorf("cannot resume from state %s", c.state)
	}

	c.out.Lock()
	c.ctrl.Paused = false
	c.out.Unlock()
	c.state = StatePlaying
	return nil
}

// Stop tears down the current source unconditionally. Valid from any
// state; stopping an already-finished source is not an error.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// SetRate updates the playback rate. It applies to the live source if one
// exists, otherwise it takes effect on the next Play.
func (c *Controller) SetRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("playback rate must be positive, got %f", rate)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rate = rate
	if c.resampler != nil && c.state != StateIdle {
		c.out.Lock()
		c.resampler.SetRatio(rate)
		c.out.Unlock()
	}
	return nil
}

// Session reports the current playback session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Session{
		State: c.state,
		Rate:  c.rate,
		Title: c.title,
		Voice: c.voice,
	}
	if c.state != StateIdle && c.stream != nil {
		c.out.Lock()
		pos := c.stream.position()
		c.out.Unlock()
		s.Elapsed = audio.Duration(pos, c.sampleRate)
		s.Duration = audio.Duration(c.total, c.sampleRate)
	}
	return s
}

// teardownLocked drops the current source and returns to Idle. The
// generation counter advances so a pending end callback for the old source
// is ignored.
func (c *Controller) teardownLocked() {
	c.gen++
	c.out.Clear()
	c.ctrl = nil
	c.resampler = nil
	c.stream = nil
	c.total = 0
	c.title = ""
	c.voice = ""
	c.window.Clear()
	c.state = StateIdle
}

// finished handles natural end-of-source. Stale callbacks from a source
// that was already torn down are dropped. The device is not cleared here:
// a drained streamer is removed by the mixer on its own.
func (c *Controller) finished(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.ctrl = nil
	c.resampler = nil
	c.stream = nil
	c.total = 0
	c.title = ""
	c.voice = ""
	c.window.Clear()
	c.state = StateIdle
	cb := c.onEnd
	c.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Close stops playback and releases the output device.
func (c *Controller) Close() error {
	c.Stop()
	return c.out.Close()
}
