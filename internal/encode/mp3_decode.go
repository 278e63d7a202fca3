package encode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gopxl/beep/mp3"
)

// DecodeMP3 decodes a stored MP3 payload back into mono normalized samples
// for replay. Stereo frames are averaged down to mono.
func DecodeMP3(data []byte) ([]float32, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("empty MP3 data")
	}

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer streamer.Close()

	var samples []float32
	buf := make([][2]float64, 1024)
	for {
		n, ok := streamer.Stream(buf)
		for i := 0; i < n; i++ {
			samples = append(samples, float32((buf[i][0]+buf[i][1])/2))
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, 0, fmt.Errorf("MP3 stream error: %w", err)
	}
	if len(samples) == 0 {
		return nil, 0, fmt.Errorf("MP3 payload contained no audio")
	}
	return samples, int(format.SampleRate), nil
}
