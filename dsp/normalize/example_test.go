package normalize_test

import (
	"fmt"

	"github.com/cwbudde/barkalign/dsp/normalize"
)

func ExamplePeak() {
	out, _, _ := normalize.Peak([]float64{0.1, -0.2, 0.05}, normalize.DefaultTarget)
	fmt.Printf("%.3f %.3f %.3f\n", out[0], out[1], out[2])
	// Output:
	// 0.445 -0.890 0.222
}
