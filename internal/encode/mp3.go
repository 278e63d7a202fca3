package encode

import (
	"bytes"
	"fmt"

	shine "github.com/braheezy/shine-mp3/pkg/mp3"
)

// ShineBackend adapts the shine MP3 encoder to the Backend capability.
type ShineBackend struct {
	enc *shine.Encoder
}

// NewShineBackend constructs an MP3 compression backend for mono input at
// the given sample rate and bitrate (kbps).
func NewShineBackend(sampleRate, bitrate int) (*ShineBackend, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if bitrate <= 0 {
		return nil, fmt.Errorf("invalid bitrate %d kbps", bitrate)
	}
	enc := shine.NewEncoder(sampleRate, 1)
	enc.Mpeg.Bitrate = int64(bitrate)
	return &ShineBackend{enc: enc}, nil
}

// EncodeBlock compresses one block of samples and returns the frames
// produced for it.
func (b *ShineBackend) EncodeBlock(block []int16) ([]byte, error) {
	if len(block) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := b.enc.Write(&buf, block); err != nil {
		return nil, fmt.Errorf("shine encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Flush completes the stream. Shine emits complete frames on every write,
// padding the final partial block, so there is nothing left to drain.
func (b *ShineBackend) Flush() ([]byte, error) {
	return nil, nil
}
