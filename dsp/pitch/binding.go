package pitch

import (
	"fmt"
	"math"
)

// Binding is the shifter selection for a run. It is decided once by Bind and
// then used for every clip; a clip the primary backend fails on is retried
// with the fallback.
//
// A Binding builds a fresh Processor per call and is safe for concurrent use.
type Binding struct {
	sampleRate float64

	primary     Backend
	newPrimary  Factory
	fallback    Backend
	newFallback Factory

	probeErr error
}

// Bind probes the preferred backend and binds it, or the fallback when the
// probe fails. The fallback is probed too; Bind fails only when neither
// works.
func Bind(preferred, fallback Backend, sampleRate float64) (*Binding, error) {
	newPreferred, err := FactoryFor(preferred)
	if err != nil {
		return nil, err
	}
	newFallback, err := FactoryFor(fallback)
	if err != nil {
		return nil, err
	}

	if preferred == BackendAuto {
		preferred = BackendFormant
	}
	if fallback == BackendAuto {
		fallback = BackendFormant
	}

	return bind(preferred, newPreferred, fallback, newFallback, sampleRate)
}

func bind(preferred Backend, newPreferred Factory, fallback Backend, newFallback Factory, sampleRate float64) (*Binding, error) {
	b := &Binding{
		sampleRate:  sampleRate,
		primary:     preferred,
		newPrimary:  newPreferred,
		fallback:    fallback,
		newFallback: newFallback,
	}

	if err := Probe(newPreferred, sampleRate); err != nil {
		if ferr := Probe(newFallback, sampleRate); ferr != nil {
			return nil, fmt.Errorf("pitch: no usable backend: %s: %w; %s: %w", preferred, err, fallback, ferr)
		}
		b.probeErr = err
		b.primary, b.newPrimary = fallback, newFallback
	}

	return b, nil
}

// Primary returns the backend used first for every clip.
func (b *Binding) Primary() Backend { return b.primary }

// Fallback returns the backend retried when the primary fails on a clip.
func (b *Binding) Fallback() Backend { return b.fallback }

// Degraded reports whether the preferred backend failed its probe, with the
// probe error.
func (b *Binding) Degraded() (bool, error) { return b.probeErr != nil, b.probeErr }

// Shift returns x moved by semitones and the backend that produced it.
// Any finite shift is accepted; shifts wider than two octaves run as
// several equal passes.
func (b *Binding) Shift(x []float64, semitones float64) ([]float64, Backend, error) {
	out, err := shiftWith(b.newPrimary, b.sampleRate, x, semitones)
	if err == nil {
		return out, b.primary, nil
	}
	if b.fallback == b.primary {
		return nil, b.primary, fmt.Errorf("%s: %w", b.primary, err)
	}

	out, ferr := shiftWith(b.newFallback, b.sampleRate, x, semitones)
	if ferr != nil {
		return nil, b.fallback, fmt.Errorf("%s: %w; %s: %w", b.primary, err, b.fallback, ferr)
	}

	return out, b.fallback, nil
}

// maxPassSemitones is the widest shift a single processor pass applies,
// matching the [0.25, 4] ratio limit of every backend.
const maxPassSemitones = 24.0

// shiftPasses splits semitones into equal passes no wider than
// maxPassSemitones.
func shiftPasses(semitones float64) (passes int, step float64) {
	passes = max(1, int(math.Ceil(math.Abs(semitones)/maxPassSemitones)))
	return passes, semitones / float64(passes)
}

// shiftWith applies semitones with a processor from newProc. Shifts beyond
// a single pass are cascaded.
func shiftWith(newProc Factory, sampleRate float64, x []float64, semitones float64) ([]float64, error) {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return nil, fmt.Errorf("semitones must be finite: %f", semitones)
	}

	p, err := newProc(sampleRate)
	if err != nil {
		return nil, err
	}

	passes, step := shiftPasses(semitones)
	if err := p.SetPitchSemitones(step); err != nil {
		return nil, err
	}

	out := x
	for range passes {
		if out, err = p.ProcessWithError(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
