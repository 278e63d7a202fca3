package tts

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors callers must tell apart. A quota failure gets "try again
// shortly" messaging; everything else is a generic generation failure.
var (
	// ErrQuotaExceeded signals the remote API rate/quota limit was hit.
	ErrQuotaExceeded = errors.New("tts quota exceeded")

	// ErrNoAudio signals a response that carried no audio payload.
	ErrNoAudio = errors.New("no audio data in response")
)

// Mode selects a narration style. Each mode is bound to a fixed voice
// identity and a fixed tone instruction.
type Mode int

const (
	// ModeStudy reads material in a clear, even teaching register.
	ModeStudy Mode = iota
	// ModeStory narrates with warm, expressive delivery.
	ModeStory
)

// ParseMode converts a user-supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "study":
		return ModeStudy, nil
	case "story":
		return ModeStory, nil
	default:
		return ModeStudy, fmt.Errorf("unknown mode %q (want study or story)", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeStory:
		return "story"
	default:
		return "study"
	}
}

// Voice returns the prebuilt voice identity bound to the mode.
func (m Mode) Voice() string {
	switch m {
	case ModeStory:
		return "Puck"
	default:
		return "Kore"
	}
}

// Instruction wraps sentence text in the mode's tone instruction.
func (m Mode) Instruction(text string) string {
	switch m {
	case ModeStory:
		return "Narrate the following with warm, expressive storytelling delivery: " + text
	default:
		return "Read the following in a clear, measured teaching tone: " + text
	}
}

// Synthesizer converts one sentence of text into normalized mono PCM
// samples. Implementations perform a single remote call per invocation and
// do not retry; retries are the caller's responsibility.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, mode Mode) ([]float32, error)
}
