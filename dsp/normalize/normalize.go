// Package normalize rescales signals to a fixed peak level.
package normalize

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	timestats "github.com/cwbudde/barkalign/stats/time"
)

const (
	// DefaultTarget is the peak level, as a fraction of full scale, that
	// clips are normalized to.
	DefaultTarget = 0.89

	// Epsilon keeps the gain finite for all-zero input.
	Epsilon = 1e-9
)

// Gain returns the factor that brings x's peak to target:
// target / (max|x| + Epsilon).
func Gain(x []float64, target float64) float64 {
	return target / (timestats.Peak(x) + Epsilon)
}

// Peak returns a copy of x scaled so its peak absolute value is target, and
// the gain applied. An all-zero input stays zero.
func Peak(x []float64, target float64) ([]float64, float64, error) {
	if !(target > 0 && target <= 1) {
		return nil, 0, fmt.Errorf("normalize: target peak must be in (0, 1]: %f", target)
	}

	g := Gain(x, target)
	out := make([]float64, len(x))
	if len(x) > 0 {
		vecmath.ScaleBlock(out, x, g)
	}

	return out, g, nil
}
