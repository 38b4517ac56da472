package pitch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// envelopeDynamicRange bounds the log spectrum from below, relative to the
// frame peak, so empty bins do not dominate the cepstrum.
const envelopeDynamicRange = 1e-6

// cepstralEnvelope estimates a smooth spectral envelope by low-quefrency
// liftering of the log magnitude spectrum.
type cepstralEnvelope struct {
	plan  *algofft.Plan[complex128]
	size  int
	order int
	buf   []complex128
}

func newCepstralEnvelope(size, order int) (*cepstralEnvelope, error) {
	if order <= 0 || order >= size/2 {
		return nil, fmt.Errorf("envelope order must be in [1, %d): %d", size/2, order)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("envelope: failed to create FFT plan: %w", err)
	}

	return &cepstralEnvelope{
		plan:  plan,
		size:  size,
		order: order,
		buf:   make([]complex128, size),
	}, nil
}

// compute writes the envelope of mag (bins 0..size/2) into env.
func (c *cepstralEnvelope) compute(mag, env []float64) error {
	half := c.size / 2

	peak := 0.0
	for _, m := range mag[:half+1] {
		peak = math.Max(peak, m)
	}
	floor := math.Max(peak*envelopeDynamicRange, math.SmallestNonzeroFloat64)

	for k := 0; k <= half; k++ {
		l := complex(math.Log(math.Max(mag[k], floor)), 0)
		c.buf[k] = l
		if k > 0 && k < half {
			c.buf[c.size-k] = l
		}
	}

	if err := c.plan.Inverse(c.buf, c.buf); err != nil {
		return fmt.Errorf("envelope: inverse FFT failed: %w", err)
	}

	for n := c.order + 1; n < c.size-c.order; n++ {
		c.buf[n] = 0
	}

	if err := c.plan.Forward(c.buf, c.buf); err != nil {
		return fmt.Errorf("envelope: forward FFT failed: %w", err)
	}

	for k := 0; k <= half; k++ {
		env[k] = math.Exp(real(c.buf[k]))
	}

	return nil
}

// sampleBins linearly interpolates v at fractional bin pos. Positions past
// the last bin return 0.
func sampleBins(v []float64, pos float64) float64 {
	last := len(v) - 1
	if pos < 0 || pos > float64(last) {
		return 0
	}

	lo := int(pos)
	if lo >= last {
		return v[last]
	}

	frac := pos - float64(lo)
	return v[lo]*(1-frac) + v[lo+1]*frac
}
