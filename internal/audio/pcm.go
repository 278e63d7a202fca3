// Package audio holds the PCM sample plumbing shared by synthesis, playback
// and encoding: byte/sample conversion, resampling, and level measurement.
// All buffers are mono float32 in [-1, 1].
package audio

import (
	"fmt"
	"math"
	"time"
)

// DecodePCM16 converts raw little-endian 16-bit PCM bytes into normalized
// float32 samples.
func DecodePCM16(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty PCM data")
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples), got %d", len(data))
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(s) / 32768.0
	}
	return samples, nil
}

// FloatsToInt16 converts normalized samples to 16-bit signed integers.
// Samples are clamped to [-1, 1]. The signed range is used asymmetrically:
// negative values scale by 32768 and positive values by 32767, matching the
// output format of the legacy encoder this tool replaces.
func FloatsToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s < -1 {
			s = -1
		} else if s > 1 {
			s = 1
		}
		if s < 0 {
			out[i] = int16(s * 32768)
		} else {
			out[i] = int16(s * 32767)
		}
	}
	return out
}

// Concat joins per-sentence buffers into one buffer, preserving order.
func Concat(buffers [][]float32) []float32 {
	total := 0
	for _, b := range buffers {
		total += len(b)
	}
	out := make([]float32, 0, total)
	for _, b := range buffers {
		out = append(out, b...)
	}
	return out
}

// Duration returns the playing time of a buffer at the given sample rate.
func Duration(sampleCount, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(sampleCount) / float64(sampleRate) * float64(time.Second))
}

// Resample performs linear interpolation resampling between sample rates.
// Good enough for matching a stored clip to the output device; not a
// mastering-quality resampler.
func Resample(samples []float32, inputRate, outputRate int) []float32 {
	if inputRate == outputRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(outputRate) / float64(inputRate)
	outputLength := int(float64(len(samples)) * ratio)
	output := make([]float32, outputLength)

	for i := 0; i < outputLength; i++ {
		srcPos := float64(i) / ratio

		idx0 := int(srcPos)
		idx1 := idx0 + 1
		if idx1 >= len(samples) {
			idx1 = len(samples) - 1
		}

		fraction := srcPos - float64(idx0)
		output[i] = float32(float64(samples[idx0])*(1.0-fraction) + float64(samples[idx1])*fraction)
	}

	return output
}

// RMS calculates the root mean square level of a buffer. Useful for level
// meters and silence detection.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
