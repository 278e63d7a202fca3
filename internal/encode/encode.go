// Package encode turns a final sample buffer into a distributable audio
// payload. MP3 is produced when a compression backend is available; the WAV
// container is the always-available fallback.
package encode

import (
	"fmt"

	"github.com/pagetone/narrator/internal/audio"
)

// FrameSize is the number of samples fed to the compression backend per
// block, one MPEG layer III frame.
const FrameSize = 1152

// Backend is the streaming compression capability. It may be absent, in
// which case the WAV fallback is used instead.
type Backend interface {
	// EncodeBlock compresses one block of 16-bit samples and returns any
	// complete output produced so far.
	EncodeBlock(block []int16) ([]byte, error)

	// Flush drains any samples still buffered inside the backend.
	Flush() ([]byte, error)
}

// Encoder produces the encoded payload for a sample buffer.
type Encoder interface {
	Encode(samples []float32, sampleRate int) ([]byte, error)
	Extension() string
	MIME() string
}

// New selects the encoder for the given backend. A nil backend yields the
// WAV fallback.
func New(backend Backend) Encoder {
	if backend == nil {
		return WAVEncoder{}
	}
	return &MP3Encoder{backend: backend}
}

// MP3Encoder feeds fixed-size sample blocks through a compression backend
// and concatenates the emitted chunks.
type MP3Encoder struct {
	backend Backend
}

// Encode compresses the buffer to MP3 bytes.
func (e *MP3Encoder) Encode(samples []float32, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty sample buffer")
	}

	ints := audio.FloatsToInt16(samples)

	var out []byte
	for start := 0; start < len(ints); start += FrameSize {
		end := start + FrameSize
		if end > len(ints) {
			end = len(ints)
		}
		chunk, err := e.backend.EncodeBlock(ints[start:end])
		if err != nil {
			return nil, fmt.Errorf("mp3 block encode failed: %w", err)
		}
		out = append(out, chunk...)
	}

	tail, err := e.backend.Flush()
	if err != nil {
		return nil, fmt.Errorf("mp3 flush failed: %w", err)
	}
	out = append(out, tail...)

	return out, nil
}

// Extension returns the file extension for MP3 output.
func (e *MP3Encoder) Extension() string { return "mp3" }

// MIME returns the MIME type for MP3 output.
func (e *MP3Encoder) MIME() string { return "audio/mpeg" }
