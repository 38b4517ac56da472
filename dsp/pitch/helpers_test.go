package pitch

import (
	"math"
	"testing"

	algofft "github.com/MeKo-Christian/algo-fft"
)

const testSampleRate = 22050.0

// dominantFrequencyHz returns the frequency of the strongest FFT bin of the
// Hann-windowed signal. len(signal) must be a power of two.
func dominantFrequencyHz(t *testing.T, signal []float64, sampleRate float64) float64 {
	t.Helper()

	plan, err := algofft.NewPlan64(len(signal))
	if err != nil {
		t.Fatalf("failed to create FFT plan: %v", err)
	}

	n := len(signal)
	buf := make([]complex128, n)
	for i, v := range signal {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
		buf[i] = complex(v*w, 0)
	}

	if err := plan.Forward(buf, buf); err != nil {
		t.Fatalf("forward FFT failed: %v", err)
	}

	maxBin, maxMag := 1, 0.0
	for k := 1; k <= n/2; k++ {
		if mag := real(buf[k])*real(buf[k]) + imag(buf[k])*imag(buf[k]); mag > maxMag {
			maxMag = mag
			maxBin = k
		}
	}

	return sampleRate * float64(maxBin) / float64(n)
}

// resonantTone is a harmonic tone at f0 whose harmonic amplitudes follow a
// Gaussian resonance at formantHz, a fixed envelope independent of f0.
func resonantTone(f0, formantHz, bandwidthHz, sampleRate float64, length int) []float64 {
	out := make([]float64, length)
	for k := 1; float64(k)*f0 < sampleRate/2; k++ {
		d := (float64(k)*f0 - formantHz) / bandwidthHz
		amp := 0.05 + math.Exp(-d*d)
		step := 2 * math.Pi * float64(k) * f0 / sampleRate
		for i := range out {
			out[i] += amp * math.Sin(step*float64(i))
		}
	}

	peak := 0.0
	for _, v := range out {
		peak = math.Max(peak, math.Abs(v))
	}
	for i := range out {
		out[i] *= 0.5 / peak
	}
	return out
}

func mustEstimate(t *testing.T, x []float64) float64 {
	t.Helper()

	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	f0, ok, err := e.Estimate(x)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if !ok {
		t.Fatalf("Estimate() found no voiced frames")
	}
	return f0
}
