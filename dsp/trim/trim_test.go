package trim

import (
	"testing"

	"github.com/cwbudde/barkalign/internal/testutil"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{name: "defaults", wantErr: false},
		{name: "custom", opts: []Option{WithThresholdDB(60), WithFrame(1024, 256)}, wantErr: false},
		{name: "negative threshold", opts: []Option{WithThresholdDB(-1)}, wantErr: true},
		{name: "zero hop", opts: []Option{WithFrame(1024, 0)}, wantErr: true},
		{name: "hop above frame", opts: []Option{WithFrame(256, 512)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTrimRemovesLeadingAndTrailingSilence(t *testing.T) {
	const (
		lead = 22050
		tail = 11025
	)

	tone := testutil.DeterministicSine(300, 22050, 0.5, 11025)
	sig := testutil.Pad(tone, lead, tail)

	tr, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start, end := tr.Bounds(sig)

	// Frame resolution is one hop plus half a frame on either side.
	if start > lead || start < lead-1536 {
		t.Fatalf("start=%d, want within [%d, %d]", start, lead-1536, lead)
	}
	if end < lead+len(tone) || end > lead+len(tone)+1536 {
		t.Fatalf("end=%d, want within [%d, %d]", end, lead+len(tone), lead+len(tone)+1536)
	}
	if got := len(tr.Trim(sig)); got != end-start {
		t.Fatalf("Trim len=%d, want %d", got, end-start)
	}
}

func TestTrimKeepsQuietTailAboveThreshold(t *testing.T) {
	loud := testutil.DeterministicSine(300, 22050, 1.0, 8192)
	quiet := testutil.DeterministicSine(300, 22050, 0.05, 8192) // -26 dB
	sig := append(append([]float64{}, loud...), quiet...)

	tr, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start, end := tr.Bounds(sig)
	if start != 0 || end != len(sig) {
		t.Fatalf("bounds=[%d,%d), want [0,%d)", start, end, len(sig))
	}

	tr60, err := New(WithThresholdDB(20))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, end := tr60.Bounds(sig); end >= len(sig) {
		t.Fatalf("20 dB threshold should cut the -26 dB tail, end=%d", end)
	}
}

func TestTrimAllSilent(t *testing.T) {
	tr, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := tr.Trim(make([]float64, 4096)); len(got) != 0 {
		t.Fatalf("silent signal trimmed to %d samples, want 0", len(got))
	}
	if got := tr.Trim(nil); len(got) != 0 {
		t.Fatalf("nil signal trimmed to %d samples, want 0", len(got))
	}
}
