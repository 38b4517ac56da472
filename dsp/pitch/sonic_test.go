package pitch

import (
	"math"
	"testing"

	"github.com/cwbudde/barkalign/internal/testutil"
)

func TestNewSonicShifterRequiresIntegerRate(t *testing.T) {
	for _, sr := range []float64{0, -1, 22050.5, math.NaN()} {
		if _, err := NewSonicShifter(sr); err == nil {
			t.Fatalf("NewSonicShifter(%g) succeeded, want error", sr)
		}
	}

	if _, err := NewSonicShifter(testSampleRate); err != nil {
		t.Fatalf("NewSonicShifter(%g) error = %v", testSampleRate, err)
	}
}

func TestSonicShifterSilenceStaysSilent(t *testing.T) {
	s, err := NewSonicShifter(testSampleRate)
	if err != nil {
		t.Fatalf("NewSonicShifter() error = %v", err)
	}
	if err := s.SetPitchSemitones(3); err != nil {
		t.Fatalf("SetPitchSemitones() error = %v", err)
	}

	out, err := s.ProcessWithError(make([]float64, 1000))
	if err != nil {
		t.Fatalf("ProcessWithError() error = %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, out, make([]float64, 1000), 0)
}

func TestSonicShifterPitchAccuracy(t *testing.T) {
	const f0 = 200.0

	input := testutil.Bark(f0, testSampleRate, 0.8, 11025)

	s, err := NewSonicShifter(testSampleRate)
	if err != nil {
		t.Fatalf("NewSonicShifter() error = %v", err)
	}
	if err := s.SetPitchSemitones(5); err != nil {
		t.Fatalf("SetPitchSemitones() error = %v", err)
	}

	out, err := s.ProcessWithError(input)
	if err != nil {
		t.Fatalf("ProcessWithError() error = %v", err)
	}
	if len(out) != len(input) {
		t.Fatalf("length = %d, want %d", len(out), len(input))
	}
	testutil.RequireFinite(t, out)
	testutil.RequireSemitonesNear(t, mustEstimate(t, out), f0*math.Pow(2, 5.0/12), 0.5)
}
