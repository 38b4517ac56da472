package pitch_test

import (
	"fmt"

	"github.com/cwbudde/barkalign/dsp/pitch"
)

func ExampleSemitones() {
	fmt.Printf("%.2f\n", pitch.Semitones(220, 293.66))
	fmt.Printf("%.2f\n", pitch.Semitones(440, 220))
	// Output:
	// 5.00
	// -12.00
}

func ExampleParseBackend() {
	b, err := pitch.ParseBackend("WSOLA")
	fmt.Println(b, err)
	// Output: wsola <nil>
}
