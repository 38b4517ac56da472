package pitch

import (
	"fmt"
	"math"

	"github.com/alttagil/sonic-go"

	timestats "github.com/cwbudde/barkalign/stats/time"
)

const sonicReadChunk = 4096

// SonicShifter shifts pitch with a sonic stream: pitch-synchronous overlap
// at constant speed on 16-bit mono samples. Input is scaled to full 16-bit
// range on the way in and back on the way out.
type SonicShifter struct {
	sampleRate float64
	pitchRatio float64
}

// NewSonicShifter constructs a sonic-backed shifter.
func NewSonicShifter(sampleRate float64) (*SonicShifter, error) {
	if !isFinitePositive(sampleRate) || sampleRate != math.Trunc(sampleRate) {
		return nil, fmt.Errorf("sonic sample rate must be a positive integer: %f", sampleRate)
	}
	return &SonicShifter{sampleRate: sampleRate, pitchRatio: 1}, nil
}

// SampleRate returns the sample rate in Hz.
func (s *SonicShifter) SampleRate() float64 { return s.sampleRate }

// PitchSemitones returns the pitch shift in semitones.
func (s *SonicShifter) PitchSemitones() float64 { return 12 * math.Log2(s.pitchRatio) }

// SetPitchSemitones updates the pitch shift in semitones.
func (s *SonicShifter) SetPitchSemitones(semitones float64) error {
	ratio, err := semitonesToRatio(semitones)
	if err != nil {
		return fmt.Errorf("sonic: %w", err)
	}
	s.pitchRatio = ratio
	return nil
}

// ProcessWithError returns input shifted by the current ratio, truncated or
// zero-padded to the input length.
func (s *SonicShifter) ProcessWithError(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if math.Abs(s.pitchRatio-1) <= identityEps {
		return fitLength(input, len(input)), nil
	}

	peak := timestats.Peak(input)
	if peak == 0 {
		return make([]float64, len(input)), nil
	}

	scale := math.MaxInt16 / peak
	pcm := make([]int16, len(input))
	for i, v := range input {
		pcm[i] = int16(math.Round(math.Max(-math.MaxInt16, math.Min(math.MaxInt16, v*scale))))
	}

	stream := sonic.NewSonicStream(int(s.sampleRate), 1)
	stream.SetPitch(s.pitchRatio)

	if err := stream.Write(pcm); err != nil {
		return nil, fmt.Errorf("sonic: write failed: %w", err)
	}
	if err := stream.Flush(); err != nil {
		return nil, fmt.Errorf("sonic: flush failed: %w", err)
	}

	out := make([]float64, 0, len(input))
	for len(out) < len(input) {
		chunk, err := stream.Read(sonicReadChunk)
		if err != nil || len(chunk) == 0 {
			break
		}
		for _, v := range chunk {
			out = append(out, float64(v)/scale)
		}
	}

	return fitLength(out, len(input)), nil
}
