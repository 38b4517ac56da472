package pitch

import (
	"fmt"
	"math"

	"github.com/cwbudde/barkalign/dsp/interp"
	"github.com/cwbudde/barkalign/dsp/window"
)

const (
	// Short-sequence defaults suit percussive, speech-like clips such as
	// barks better than the long windows used for music.
	defaultWSOLASequenceMs = 40.0
	defaultWSOLAOverlapMs  = 8.0
	defaultWSOLASearchMs   = 15.0

	minPitchRatio = 0.25
	maxPitchRatio = 4.0

	minWSOLASequenceMs = 20.0
	maxWSOLASequenceMs = 120.0
	minWSOLAOverlapMs  = 4.0
	maxWSOLAOverlapMs  = 60.0
	minWSOLASearchMs   = 2.0
	maxWSOLASearchMs   = 40.0

	identityEps = 1e-9
	tiny        = 1e-12
)

// WSOLAShifter shifts pitch in the time domain: a WSOLA stretch by the pitch
// ratio followed by Hermite resampling back to the input length. Formants
// move with the pitch.
type WSOLAShifter struct {
	sampleRate float64
	pitchRatio float64

	sequenceMs float64
	overlapMs  float64
	searchMs   float64

	sequenceLen int
	overlapLen  int
	searchLen   int
	stepOut     int

	fadeIn  []float64
	fadeOut []float64
}

// WSOLAOption configures a WSOLAShifter.
type WSOLAOption func(*WSOLAShifter)

// WithSequence sets the sequence length in milliseconds.
func WithSequence(ms float64) WSOLAOption {
	return func(p *WSOLAShifter) { p.sequenceMs = ms }
}

// WithOverlap sets the crossfade length in milliseconds.
func WithOverlap(ms float64) WSOLAOption {
	return func(p *WSOLAShifter) { p.overlapMs = ms }
}

// WithSearch sets the seek window radius in milliseconds.
func WithSearch(ms float64) WSOLAOption {
	return func(p *WSOLAShifter) { p.searchMs = ms }
}

// NewWSOLAShifter constructs a time-domain shifter.
func NewWSOLAShifter(sampleRate float64, opts ...WSOLAOption) (*WSOLAShifter, error) {
	if !isFinitePositive(sampleRate) {
		return nil, fmt.Errorf("wsola sample rate must be positive and finite: %f", sampleRate)
	}

	p := &WSOLAShifter{
		sampleRate: sampleRate,
		pitchRatio: 1,
		sequenceMs: defaultWSOLASequenceMs,
		overlapMs:  defaultWSOLAOverlapMs,
		searchMs:   defaultWSOLASearchMs,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	if err := p.rebuild(); err != nil {
		return nil, err
	}

	return p, nil
}

// SampleRate returns the sample rate in Hz.
func (p *WSOLAShifter) SampleRate() float64 { return p.sampleRate }

// PitchRatio returns the pitch ratio.
func (p *WSOLAShifter) PitchRatio() float64 { return p.pitchRatio }

// PitchSemitones returns the pitch shift in semitones.
func (p *WSOLAShifter) PitchSemitones() float64 { return 12 * math.Log2(p.pitchRatio) }

// SetPitchRatio updates the pitch ratio. It must lie in [0.25, 4].
func (p *WSOLAShifter) SetPitchRatio(ratio float64) error {
	if err := validateRatio(ratio); err != nil {
		return fmt.Errorf("wsola: %w", err)
	}
	p.pitchRatio = ratio
	return nil
}

// SetPitchSemitones updates the pitch shift in semitones.
func (p *WSOLAShifter) SetPitchSemitones(semitones float64) error {
	ratio, err := semitonesToRatio(semitones)
	if err != nil {
		return fmt.Errorf("wsola: %w", err)
	}
	p.pitchRatio = ratio
	return nil
}

// ProcessWithError returns input shifted by the current ratio, with the same
// length as input.
func (p *WSOLAShifter) ProcessWithError(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if math.Abs(p.pitchRatio-1) <= identityEps {
		return fitLength(input, len(input)), nil
	}

	return interp.Stretch(p.timeStretch(input), len(input)), nil
}

func (p *WSOLAShifter) rebuild() error {
	switch {
	case p.sequenceMs < minWSOLASequenceMs || p.sequenceMs > maxWSOLASequenceMs || math.IsNaN(p.sequenceMs):
		return fmt.Errorf("wsola sequence must be in [%g, %g] ms: %f", minWSOLASequenceMs, maxWSOLASequenceMs, p.sequenceMs)
	case p.overlapMs < minWSOLAOverlapMs || p.overlapMs > maxWSOLAOverlapMs || math.IsNaN(p.overlapMs):
		return fmt.Errorf("wsola overlap must be in [%g, %g] ms: %f", minWSOLAOverlapMs, maxWSOLAOverlapMs, p.overlapMs)
	case p.searchMs < minWSOLASearchMs || p.searchMs > maxWSOLASearchMs || math.IsNaN(p.searchMs):
		return fmt.Errorf("wsola search must be in [%g, %g] ms: %f", minWSOLASearchMs, maxWSOLASearchMs, p.searchMs)
	case p.overlapMs >= p.sequenceMs:
		return fmt.Errorf("wsola overlap must be smaller than sequence: overlap=%f sequence=%f",
			p.overlapMs, p.sequenceMs)
	}

	p.sequenceLen = max(32, int(math.Round(p.sequenceMs*0.001*p.sampleRate)))
	p.overlapLen = max(8, int(math.Round(p.overlapMs*0.001*p.sampleRate)))
	if p.overlapLen >= p.sequenceLen {
		return fmt.Errorf("wsola overlap too large for sequence: overlap=%d sequence=%d",
			p.overlapLen, p.sequenceLen)
	}

	p.stepOut = p.sequenceLen - p.overlapLen
	p.searchLen = max(1, int(math.Round(p.searchMs*0.001*p.sampleRate)))

	// Rising half of a symmetric Hann; fadeIn[i]+fadeOut[i] == 1.
	rise := window.Generate(window.TypeHann, 2*p.overlapLen-1)
	p.fadeIn = rise[:p.overlapLen]
	p.fadeOut = make([]float64, p.overlapLen)
	for i, v := range p.fadeIn {
		p.fadeOut[i] = 1 - v
	}

	return nil
}

func (p *WSOLAShifter) timeStretch(input []float64) []float64 {
	targetLen := max(1, int(math.Round(float64(len(input))*p.pitchRatio)))
	nominalStep := math.Max(1, float64(p.stepOut)/p.pitchRatio)

	out := make([]float64, (targetLen/p.stepOut+4)*p.stepOut+p.sequenceLen+1)
	for i := range p.sequenceLen {
		out[i] = sampleZero(input, i)
	}

	outLen := p.sequenceLen
	prevStart := 0
	nextNominal := nominalStep
	ref := make([]float64, p.overlapLen)

	for outLen < targetLen+p.sequenceLen {
		// The natural continuation of the previous segment is what the new
		// segment has to match across the crossfade.
		for i := range ref {
			ref[i] = sampleZero(input, prevStart+p.stepOut+i)
		}

		start := p.bestOverlap(ref, input, int(math.Round(nextNominal)))

		fadeAt := outLen - p.overlapLen
		for i := range p.overlapLen {
			out[fadeAt+i] = out[fadeAt+i]*p.fadeOut[i] + sampleZero(input, start+i)*p.fadeIn[i]
		}
		for i := p.overlapLen; i < p.sequenceLen; i++ {
			out[fadeAt+i] = sampleZero(input, start+i)
		}

		outLen = fadeAt + p.sequenceLen
		prevStart = start
		nextNominal += nominalStep

		if prevStart > len(input)+p.sequenceLen && outLen >= targetLen {
			break
		}
	}

	return fitLength(out, targetLen)
}

// bestOverlap returns the segment start within searchLen of predicted whose
// normalized cross-correlation with ref is highest.
func (p *WSOLAShifter) bestOverlap(ref, input []float64, predicted int) int {
	best := predicted
	bestScore := math.Inf(-1)

	refEnergy := tiny
	for _, v := range ref {
		refEnergy += v * v
	}

	for cand := predicted - p.searchLen; cand <= predicted+p.searchLen; cand++ {
		dot := 0.0
		candEnergy := tiny
		for i, rv := range ref {
			cv := sampleZero(input, cand+i)
			dot += rv * cv
			candEnergy += cv * cv
		}
		if score := dot / math.Sqrt(refEnergy*candEnergy); score > bestScore {
			bestScore = score
			best = cand
		}
	}

	return best
}

func validateRatio(ratio float64) error {
	if !isFinitePositive(ratio) || ratio < minPitchRatio || ratio > maxPitchRatio {
		return fmt.Errorf("pitch ratio must be in [%g, %g]: %f", minPitchRatio, maxPitchRatio, ratio)
	}
	return nil
}

func semitonesToRatio(semitones float64) (float64, error) {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return 0, fmt.Errorf("semitones must be finite: %f", semitones)
	}
	ratio := math.Pow(2, semitones/12)
	if err := validateRatio(ratio); err != nil {
		return 0, fmt.Errorf("semitones out of range: %w", err)
	}
	return ratio, nil
}

func sampleZero(x []float64, idx int) float64 {
	if idx < 0 || idx >= len(x) {
		return 0
	}
	return x[idx]
}

// fitLength returns a copy of in truncated or zero-padded to n samples.
func fitLength(in []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, in)
	return out
}
