package interp

import "math"

// Linear2 interpolates between x0 and x1 at t in [0,1].
func Linear2(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// At evaluates x at fractional position pos with Hermite interpolation.
// Positions outside the slice clamp to the edge samples.
func At(x []float64, pos float64) float64 {
	if len(x) == 0 {
		return 0
	}
	idx := int(math.Floor(pos))
	frac := pos - float64(idx)
	return Hermite4(frac, clamp(x, idx-1), clamp(x, idx), clamp(x, idx+1), clamp(x, idx+2))
}

// Stretch resamples input to exactly outLen samples, mapping the first and
// last input samples onto the first and last output samples.
func Stretch(input []float64, outLen int) []float64 {
	if outLen <= 0 || len(input) == 0 {
		return nil
	}

	out := make([]float64, outLen)
	if len(input) == 1 || outLen == 1 {
		for i := range out {
			out[i] = input[0]
		}
		return out
	}

	step := float64(len(input)-1) / float64(outLen-1)
	for i := range out {
		out[i] = At(input, float64(i)*step)
	}
	return out
}

func clamp(x []float64, idx int) float64 {
	if idx < 0 {
		return x[0]
	}
	if idx >= len(x) {
		return x[len(x)-1]
	}
	return x[idx]
}
