package align

import "github.com/cwbudde/barkalign/dsp/pitch"

// Record is one loaded clip: mono, resampled and trimmed.
type Record struct {
	Name       string
	Samples    []float64
	SampleRate int
	F0         float64
	HasF0      bool
}

// Batch holds every record of a run in directory-listing order.
type Batch struct {
	Records   []*Record
	Reference *Record
}

// Role describes how a clip was treated.
type Role string

const (
	RoleReference   Role = "reference"
	RoleShifted     Role = "shifted"
	RolePassthrough Role = "passthrough"
)

// Result describes one written file.
type Result struct {
	Name       string
	OutputPath string
	Role       Role
	F0         float64
	Semitones  float64
	Backend    pitch.Backend
	Gain       float64
	// Superseded is set when a later input maps to the same output name and
	// this clip was therefore not written.
	Superseded bool
}
