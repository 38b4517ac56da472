package time

import "math"

// Stats holds the level statistics reported for processed clips.
//
//nolint:revive
type Stats struct {
	Length      int
	DC          float64 // mean
	RMS         float64
	RMS_dB      float64
	Peak        float64 // max(|x|)
	PeakPos     int
	Peak_dB     float64
	CrestFactor float64 // peak / RMS (linear)
}

// ampTodB converts an amplitude value to decibels: 20 * log10(|value|).
// Returns -Inf for zero values.
func ampTodB(value float64) float64 {
	a := math.Abs(value)
	if a == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(a)
}

// Calculate computes level statistics in a single pass.
func Calculate(signal []float64) Stats {
	if len(signal) == 0 {
		return Stats{RMS_dB: math.Inf(-1), Peak_dB: math.Inf(-1)}
	}

	var sum, sumSq, peak float64
	peakPos := 0

	for i, x := range signal {
		sum += x
		sumSq += x * x
		if a := math.Abs(x); a > peak {
			peak = a
			peakPos = i
		}
	}

	n := float64(len(signal))
	rms := math.Sqrt(sumSq / n)

	s := Stats{
		Length:  len(signal),
		DC:      sum / n,
		RMS:     rms,
		RMS_dB:  ampTodB(rms),
		Peak:    peak,
		PeakPos: peakPos,
		Peak_dB: ampTodB(peak),
	}
	if rms > 0 {
		s.CrestFactor = peak / rms
	}

	return s
}

// RMS returns the root-mean-square level of the signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	var sumSq float64
	for _, x := range signal {
		sumSq += x * x
	}

	return math.Sqrt(sumSq / float64(len(signal)))
}

// Peak returns the peak absolute amplitude of the signal.
func Peak(signal []float64) float64 {
	var peak float64
	for _, x := range signal {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}

	return peak
}

// FrameRMS returns the RMS of centered frames: frame t covers
// [t*hop - frameLen/2, t*hop + frameLen/2), with samples outside the signal
// treated as zero. There are 1 + len(signal)/hop frames.
func FrameRMS(signal []float64, frameLen, hop int) []float64 {
	if len(signal) == 0 || frameLen <= 0 || hop <= 0 {
		return nil
	}

	// Prefix sums of squares make each frame O(1).
	prefix := make([]float64, len(signal)+1)
	for i, x := range signal {
		prefix[i+1] = prefix[i] + x*x
	}

	n := 1 + len(signal)/hop
	out := make([]float64, n)
	half := frameLen / 2

	for t := range out {
		lo := max(0, t*hop-half)
		hi := min(len(signal), t*hop-half+frameLen)
		if hi <= lo {
			continue
		}
		energy := math.Max(0, prefix[hi]-prefix[lo])
		out[t] = math.Sqrt(energy / float64(frameLen))
	}

	return out
}
