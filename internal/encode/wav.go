package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/pagetone/narrator/internal/audio"
)

const wavHeaderSize = 44

// WAVEncoder writes the uncompressed RIFF/WAVE fallback container: a fixed
// 44-byte header followed by 16-bit little-endian PCM samples. It never
// fails for a valid non-empty buffer.
type WAVEncoder struct{}

// Encode writes the buffer as a mono 16-bit WAV file.
func (WAVEncoder) Encode(samples []float32, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty sample buffer")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	ints := audio.FloatsToInt16(samples)
	dataLen := len(ints) * 2

	out := make([]byte, wavHeaderSize+dataLen)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format code
	binary.LittleEndian.PutUint16(out[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(out[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(out[34:36], 16)                   // bits per sample

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))

	for i, s := range ints {
		binary.LittleEndian.PutUint16(out[wavHeaderSize+i*2:], uint16(s))
	}

	return out, nil
}

// Extension returns the file extension for WAV output.
func (WAVEncoder) Extension() string { return "wav" }

// MIME returns the MIME type for WAV output.
func (WAVEncoder) MIME() string { return "audio/wav" }

// ParseWAV reads back a mono 16-bit WAV payload produced by WAVEncoder,
// returning the normalized samples and the sample rate. Used to replay
// stored library items.
func ParseWAV(data []byte) ([]float32, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("wav data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE payload")
	}
	if string(data[12:16]) != "fmt " {
		return nil, 0, fmt.Errorf("missing fmt chunk")
	}

	format := binary.LittleEndian.Uint16(data[20:22])
	if format != 1 {
		return nil, 0, fmt.Errorf("unsupported format code %d, want PCM", format)
	}
	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels != 1 {
		return nil, 0, fmt.Errorf("unsupported channel count %d, want mono", channels)
	}
	bits := binary.LittleEndian.Uint16(data[34:36])
	if bits != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d, want 16", bits)
	}

	sampleRate := int(binary.LittleEndian.Uint32(data[24:28]))
	if string(data[36:40]) != "data" {
		return nil, 0, fmt.Errorf("missing data chunk")
	}

	dataLen := int(binary.LittleEndian.Uint32(data[40:44]))
	if dataLen > len(data)-wavHeaderSize {
		dataLen = len(data) - wavHeaderSize
	}

	samples, err := audio.DecodePCM16(data[wavHeaderSize : wavHeaderSize+dataLen])
	if err != nil {
		return nil, 0, fmt.Errorf("invalid PCM payload: %w", err)
	}
	return samples, sampleRate, nil
}
