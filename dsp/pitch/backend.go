package pitch

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Processor is the API shared by the interchangeable shifters.
type Processor interface {
	SampleRate() float64
	PitchSemitones() float64
	SetPitchSemitones(semitones float64) error
	ProcessWithError(input []float64) ([]float64, error)
}

var (
	_ Processor = (*FormantShifter)(nil)
	_ Processor = (*WSOLAShifter)(nil)
	_ Processor = (*SonicShifter)(nil)
)

// Backend names a shifter implementation.
type Backend string

const (
	// BackendAuto selects the formant-preserving shifter when its probe
	// passes.
	BackendAuto    Backend = "auto"
	BackendFormant Backend = "formant"
	BackendWSOLA   Backend = "wsola"
	BackendSonic   Backend = "sonic"
)

// ErrUnknownBackend is returned for backend names with no implementation.
var ErrUnknownBackend = errors.New("pitch: unknown backend")

// Factory builds a Processor for a sample rate.
type Factory func(sampleRate float64) (Processor, error)

// ParseBackend maps a case-insensitive name to a Backend.
func ParseBackend(name string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(name)))
	switch b {
	case BackendAuto, BackendFormant, BackendWSOLA, BackendSonic:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// FactoryFor returns the constructor of backend b. BackendAuto resolves to
// the formant shifter.
func FactoryFor(b Backend) (Factory, error) {
	switch b {
	case BackendAuto, BackendFormant:
		return func(sr float64) (Processor, error) { return NewFormantShifter(sr) }, nil
	case BackendWSOLA:
		return func(sr float64) (Processor, error) { return NewWSOLAShifter(sr) }, nil
	case BackendSonic:
		return func(sr float64) (Processor, error) { return NewSonicShifter(sr) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, b)
	}
}

const (
	probeSeconds   = 0.25
	probeToneHz    = 220.0
	probeSemitones = 3.0
)

// Probe runs a short tone through a processor built by newProc and checks
// the result is finite, length-preserving and not silent.
func Probe(newProc Factory, sampleRate float64) error {
	p, err := newProc(sampleRate)
	if err != nil {
		return fmt.Errorf("probe: construct: %w", err)
	}
	if err := p.SetPitchSemitones(probeSemitones); err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	n := int(probeSeconds * sampleRate)
	tone := make([]float64, n)
	for i := range tone {
		tone[i] = 0.5 * math.Sin(2*math.Pi*probeToneHz*float64(i)/sampleRate)
	}

	out, err := p.ProcessWithError(tone)
	if err != nil {
		return fmt.Errorf("probe: process: %w", err)
	}
	if len(out) != n {
		return fmt.Errorf("probe: output length %d, want %d", len(out), n)
	}

	energy := 0.0
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("probe: non-finite output")
		}
		energy += v * v
	}
	if energy == 0 {
		return errors.New("probe: silent output")
	}

	return nil
}
