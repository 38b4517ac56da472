package trim

import (
	"fmt"
	"math"

	timestats "github.com/cwbudde/barkalign/stats/time"
)

const (
	defaultThresholdDB = 40.0
	defaultFrameLength = 2048
	defaultHopLength   = 512
)

// Trimmer finds the non-silent region of a signal.
type Trimmer struct {
	thresholdDB float64
	frameLength int
	hopLength   int
}

// Option configures a Trimmer.
type Option func(*Trimmer)

// WithThresholdDB sets how far below the loudest frame a frame must fall
// to count as silence.
func WithThresholdDB(db float64) Option {
	return func(t *Trimmer) {
		t.thresholdDB = db
	}
}

// WithFrame sets the analysis frame and hop lengths in samples.
func WithFrame(frameLength, hopLength int) Option {
	return func(t *Trimmer) {
		t.frameLength = frameLength
		t.hopLength = hopLength
	}
}

// New returns a Trimmer with a 40 dB threshold and 2048/512 framing unless
// overridden.
func New(opts ...Option) (*Trimmer, error) {
	t := &Trimmer{
		thresholdDB: defaultThresholdDB,
		frameLength: defaultFrameLength,
		hopLength:   defaultHopLength,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	if t.thresholdDB < 0 || math.IsNaN(t.thresholdDB) || math.IsInf(t.thresholdDB, 0) {
		return nil, fmt.Errorf("trim: threshold must be finite and >= 0: %f", t.thresholdDB)
	}
	if t.frameLength <= 0 || t.hopLength <= 0 || t.hopLength > t.frameLength {
		return nil, fmt.Errorf("trim: invalid framing frame=%d hop=%d", t.frameLength, t.hopLength)
	}

	return t, nil
}

// Bounds returns the [start, end) sample range of the non-silent region.
// A signal without any energy yields an empty range (0, 0).
func (t *Trimmer) Bounds(x []float64) (start, end int) {
	frames := timestats.FrameRMS(x, t.frameLength, t.hopLength)

	ref := 0.0
	for _, v := range frames {
		ref = math.Max(ref, v)
	}
	if ref == 0 {
		return 0, 0
	}

	floor := ref * math.Pow(10, -t.thresholdDB/20)
	first, last := -1, -1
	for i, v := range frames {
		if v > floor {
			if first < 0 {
				first = i
			}
			last = i
		}
	}

	start = min(first*t.hopLength, len(x))
	end = min((last+1)*t.hopLength, len(x))

	return start, end
}

// Trim returns the non-silent region of x. The result aliases x.
func (t *Trimmer) Trim(x []float64) []float64 {
	start, end := t.Bounds(x)
	return x[start:end]
}
