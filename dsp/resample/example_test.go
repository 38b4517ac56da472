package resample_test

import (
	"fmt"

	"github.com/cwbudde/barkalign/dsp/resample"
)

func ExampleConvert() {
	in := make([]float64, 44100)
	out, _ := resample.Convert(in, 44100, 22050)
	fmt.Printf("in=%d out=%d\n", len(in), len(out))
	// Output:
	// in=44100 out=22050
}

func ExampleNewForRates() {
	r, _ := resample.NewForRates(48000, 22050, resample.WithQuality(resample.QualityBest))
	up, down := r.Ratio()
	fmt.Printf("ratio=%d/%d\n", up, down)
	// Output:
	// ratio=147/320
}
