package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Bark generates a voiced, bark-like test clip: a harmonic tone at f0 with
// 1/k harmonic rolloff under a raised-cosine envelope, peaking at amplitude.
func Bark(f0, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	if length == 0 {
		return out
	}

	peak := 0.0
	for i := range out {
		ph := 2 * math.Pi * f0 * float64(i) / sampleRate
		v := 0.0
		for k := 1; k <= 5; k++ {
			if float64(k)*f0 >= sampleRate/2 {
				break
			}
			v += math.Sin(float64(k)*ph) / float64(k)
		}
		env := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(length))
		out[i] = v * env
		peak = math.Max(peak, math.Abs(out[i]))
	}

	if peak > 0 {
		for i := range out {
			out[i] *= amplitude / peak
		}
	}
	return out
}

// Pad surrounds x with lead and tail zero samples.
func Pad(x []float64, lead, tail int) []float64 {
	out := make([]float64, lead+len(x)+tail)
	copy(out[lead:], x)
	return out
}
