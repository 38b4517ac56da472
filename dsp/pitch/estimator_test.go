package pitch

import (
	"math"
	"testing"

	"github.com/cwbudde/barkalign/internal/testutil"
)

func TestNewEstimatorValidates(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		opts       []EstimatorOption
		wantErr    bool
	}{
		{name: "defaults", sampleRate: testSampleRate},
		{name: "zero rate", sampleRate: 0, wantErr: true},
		{name: "NaN rate", sampleRate: math.NaN(), wantErr: true},
		{name: "inverted band", sampleRate: testSampleRate, opts: []EstimatorOption{WithBand(600, 70)}, wantErr: true},
		{name: "band above nyquist", sampleRate: testSampleRate, opts: []EstimatorOption{WithBand(70, 12000)}, wantErr: true},
		{name: "frame too short for min", sampleRate: testSampleRate, opts: []EstimatorOption{WithFrame(256, 64)}, wantErr: true},
		{name: "threshold zero", sampleRate: testSampleRate, opts: []EstimatorOption{WithVoicingThreshold(0)}, wantErr: true},
		{name: "custom band", sampleRate: testSampleRate, opts: []EstimatorOption{WithBand(100, 400), WithFrame(1024, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEstimator(tt.sampleRate, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEstimator() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && e == nil {
				t.Fatalf("NewEstimator() returned nil without error")
			}
		})
	}
}

func TestEstimatorDefaults(t *testing.T) {
	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	if lo, hi := e.Band(); lo != 70 || hi != 600 {
		t.Fatalf("Band() = [%g, %g], want [70, 600]", lo, hi)
	}
	if e.FrameLength() != 2048 || e.HopLength() != 512 {
		t.Fatalf("frame/hop = %d/%d, want 2048/512", e.FrameLength(), e.HopLength())
	}
}

func TestEstimatorSineAccuracy(t *testing.T) {
	for _, f0 := range []float64{80, 146.8, 220, 440, 587} {
		x := testutil.DeterministicSine(f0, testSampleRate, 0.6, 11025)
		testutil.RequireSemitonesNear(t, mustEstimate(t, x), f0, 0.1)
	}
}

func TestEstimatorBarkAccuracy(t *testing.T) {
	for _, f0 := range []float64{120, 293.7, 450} {
		x := testutil.Pad(testutil.Bark(f0, testSampleRate, 0.8, 8820), 2000, 2000)
		testutil.RequireSemitonesNear(t, mustEstimate(t, x), f0, 0.1)
	}
}

func TestEstimatorIgnoresDominantUpperHarmonic(t *testing.T) {
	// The fifth harmonic carries most of the energy. Its period leaves
	// dips below the voicing threshold at fractions of the true period.
	amps := []float64{0.25, 0.1, 0.1, 0.1, 1}

	for _, f0 := range []float64{110, 150, 200} {
		x := make([]float64, 11025)
		for i := range x {
			ph := 2 * math.Pi * f0 * float64(i) / testSampleRate
			for k, a := range amps {
				x[i] += 0.5 * a * math.Sin(float64(k+1)*ph)
			}
		}
		testutil.RequireSemitonesNear(t, mustEstimate(t, x), f0, 0.05)
	}
}

func TestEstimatorAbsentForUnvoiced(t *testing.T) {
	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	cases := map[string][]float64{
		"empty":   nil,
		"silence": make([]float64, 8192),
		"noise":   testutil.DeterministicNoise(7, 0.5, 22050),
		"subsonic": testutil.DeterministicSine(20, testSampleRate, 0.5, 22050),
	}

	for name, x := range cases {
		t.Run(name, func(t *testing.T) {
			f0, ok, err := e.Estimate(x)
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}
			if ok {
				t.Fatalf("Estimate() = %.2f Hz, want absent", f0)
			}
		})
	}
}

func TestEstimatorTrackMarksSilenceUnvoiced(t *testing.T) {
	e, err := NewEstimator(testSampleRate)
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	tone := testutil.DeterministicSine(200, testSampleRate, 0.5, 8192)
	x := testutil.Pad(tone, 0, 8192)

	track, err := e.Track(x)
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}

	want := 1 + (len(x)-e.FrameLength()+e.HopLength()-1)/e.HopLength()
	if len(track) != want {
		t.Fatalf("len(track) = %d, want %d", len(track), want)
	}
	if track[0] == 0 {
		t.Fatalf("first frame unvoiced, want ~200 Hz")
	}
	if last := track[len(track)-1]; last != 0 {
		t.Fatalf("last frame = %.2f Hz, want unvoiced", last)
	}
}

func TestEstimatorShortClipStillAnalyzed(t *testing.T) {
	x := testutil.DeterministicSine(300, testSampleRate, 0.5, 1500)
	testutil.RequireSemitonesNear(t, mustEstimate(t, x), 300, 0.1)
}

func TestMedian(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("odd median = %g, want 2", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median = %g, want 2.5", got)
	}
}

func TestSemitones(t *testing.T) {
	if got := Semitones(220, 440); math.Abs(got-12) > 1e-12 {
		t.Fatalf("Semitones(220, 440) = %g, want 12", got)
	}
	if got := Semitones(440, 440); got != 0 {
		t.Fatalf("Semitones(440, 440) = %g, want 0", got)
	}
}
