// Package player owns the single audible source: it loads a sample buffer
// onto the output device, exposes pause/resume/rate control, and publishes
// spectrum data for visualization. At most one source is live at a time.
package player

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// bufferDuration is the device buffer length. Short enough that pause and
// rate changes feel immediate.
const bufferDuration = 100 * time.Millisecond

// Output abstracts the platform audio device so the controller can be
// exercised in tests without opening a speaker.
type Output interface {
	// Init prepares the device for the given sample rate.
	Init(sampleRate int) error

	// Play starts streaming s. The device pulls from s until it reports
	// completion or Clear is called.
	Play(s beep.Streamer)

	// Lock and Unlock guard mutations of streamers the device is pulling
	// from.
	Lock()
	Unlock()

	// Clear tears down whatever is playing. Clearing an already-finished
	// source is not an error.
	Clear()

	// Close releases the device.
	Close() error
}

// SpeakerOutput is the real device, backed by the beep speaker.
type SpeakerOutput struct {
	initialized bool
}

// NewSpeakerOutput creates an uninitialized speaker output.
func NewSpeakerOutput() *SpeakerOutput {
	return &SpeakerOutput{}
}

// Init opens the speaker with a buffer of about 100ms.
func (o *SpeakerOutput) Init(sampleRate int) error {
	if o.initialized {
		return nil
	}
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(bufferDuration)); err != nil {
		return fmt.Errorf("failed to open speaker: %w", err)
	}
	o.initialized = true
	return nil
}

// Play hands the streamer to the speaker.
func (o *SpeakerOutput) Play(s beep.Streamer) {
	speaker.Play(s)
}

// Lock locks the speaker mixer.
func (o *SpeakerOutput) Lock() { speaker.Lock() }

// Unlock unlocks the speaker mixer.
func (o *SpeakerOutput) Unlock() { speaker.Unlock() }

// Clear drops all playing streamers.
func (o *SpeakerOutput) Clear() { speaker.Clear() }

// Close shuts the speaker down.
func (o *SpeakerOutput) Close() error {
	if o.initialized {
		speaker.Close()
		o.initialized = false
	}
	return nil
}
