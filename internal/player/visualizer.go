package player

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/pagetone/narrator/internal/audio"
)

// Spectrum returns n frequency-domain magnitude bins computed over the most
// recently played samples. While not Playing it returns a flat zero vector
// rather than stale data.
func (c *Controller) Spectrum(n int) []float64 {
	if n <= 0 {
		n = 32
	}
	out := make([]float64, n)

	c.mu.Lock()
	playing := c.state == StatePlaying
	var snap []float32
	if playing {
		snap = c.window.Snapshot()
	}
	c.mu.Unlock()

	if !playing || len(snap) < 2 {
		return out
	}

	seq := make([]float64, len(snap))
	for i, s := range snap {
		seq[i] = float64(s)
	}

	fft := fourier.NewFFT(len(seq))
	coeffs := fft.Coefficients(nil, seq)

	// Skip the DC coefficient and fold the remaining magnitudes into n bins.
	mags := coeffs[1:]
	if len(mags) == 0 {
		return out
	}
	scale := 1.0 / float64(len(seq))
	for i, coeff := range mags {
		bin := i * n / len(mags)
		out[bin] += cmplx.Abs(coeff) * scale
	}
	return out
}

// Level returns the RMS level of the most recently played samples, zero
// while not Playing.
func (c *Controller) Level() float64 {
	c.mu.Lock()
	playing := c.state == StatePlaying
	var snap []float32
	if playing {
		snap = c.window.Snapshot()
	}
	c.mu.Unlock()

	if !playing {
		return 0
	}
	return audio.RMS(snap)
}
