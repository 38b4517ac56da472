package pitch

import (
	"fmt"
	"math"
	"slices"

	algofft "github.com/MeKo-Christian/algo-fft"

	timestats "github.com/cwbudde/barkalign/stats/time"
)

const (
	defaultMinHz            = 70.0
	defaultMaxHz            = 600.0
	defaultFrameLength      = 2048
	defaultVoicingThreshold = 0.15
	defaultSilenceRMS       = 1e-4

	// dipMargin is the share of the gap between the deepest dip and the
	// voicing threshold that a shorter candidate lag may sit above the
	// deepest dip and still win.
	dipMargin = 0.3
)

// Estimator tracks F0 frame by frame using the cumulative mean normalized
// difference function (YIN). Difference functions are computed through an
// FFT autocorrelation.
//
// An Estimator is not safe for concurrent use.
type Estimator struct {
	sampleRate  float64
	minHz       float64
	maxHz       float64
	frameLength int
	hopLength   int
	threshold   float64
	silenceRMS  float64

	minLag int
	maxLag int
	window int // integration window W = frameLength - maxLag - 1

	plan    *algofft.Plan[complex128]
	fftSize int
	frame   []float64
	xSpec   []complex128
	ySpec   []complex128
	corr    []complex128
	prefix  []float64
	cmndf   []float64
}

// EstimatorOption configures an Estimator.
type EstimatorOption func(*Estimator)

// WithBand restricts detection to [minHz, maxHz].
func WithBand(minHz, maxHz float64) EstimatorOption {
	return func(e *Estimator) {
		e.minHz = minHz
		e.maxHz = maxHz
	}
}

// WithFrame sets frame and hop length in samples. A hop of 0 selects
// frameLength/4.
func WithFrame(frameLength, hopLength int) EstimatorOption {
	return func(e *Estimator) {
		e.frameLength = frameLength
		e.hopLength = hopLength
	}
}

// WithVoicingThreshold sets the CMNDF level a dip must fall below for a frame
// to count as voiced.
func WithVoicingThreshold(threshold float64) EstimatorOption {
	return func(e *Estimator) {
		e.threshold = threshold
	}
}

// WithSilenceRMS sets the frame RMS below which a frame is unvoiced
// regardless of periodicity.
func WithSilenceRMS(rms float64) EstimatorOption {
	return func(e *Estimator) {
		e.silenceRMS = rms
	}
}

// NewEstimator constructs an F0 estimator for the given sample rate with a
// [70, 600] Hz band, 2048-sample frames and 512-sample hop unless overridden.
func NewEstimator(sampleRate float64, opts ...EstimatorOption) (*Estimator, error) {
	if !isFinitePositive(sampleRate) {
		return nil, fmt.Errorf("pitch estimator sample rate must be positive and finite: %f", sampleRate)
	}

	e := &Estimator{
		sampleRate:  sampleRate,
		minHz:       defaultMinHz,
		maxHz:       defaultMaxHz,
		frameLength: defaultFrameLength,
		threshold:   defaultVoicingThreshold,
		silenceRMS:  defaultSilenceRMS,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if e.hopLength == 0 {
		e.hopLength = e.frameLength / 4
	}

	if err := e.rebuild(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Estimator) rebuild() error {
	if !isFinitePositive(e.minHz) || !isFinitePositive(e.maxHz) || e.minHz >= e.maxHz {
		return fmt.Errorf("pitch estimator band must satisfy 0 < min < max: [%f, %f]", e.minHz, e.maxHz)
	}
	if e.maxHz >= e.sampleRate/2 {
		return fmt.Errorf("pitch estimator max frequency must be below Nyquist: %f", e.maxHz)
	}
	if e.frameLength <= 0 || e.hopLength <= 0 {
		return fmt.Errorf("pitch estimator frame=%d hop=%d must be positive", e.frameLength, e.hopLength)
	}
	if !(e.threshold > 0 && e.threshold < 1) {
		return fmt.Errorf("pitch estimator voicing threshold must be in (0, 1): %f", e.threshold)
	}

	e.minLag = max(2, int(math.Floor(e.sampleRate/e.maxHz)))
	e.maxLag = int(math.Ceil(e.sampleRate / e.minHz))
	e.window = e.frameLength - e.maxLag - 1

	if e.window < e.maxLag {
		return fmt.Errorf("pitch estimator frame %d too short for %f Hz at %f Hz sample rate",
			e.frameLength, e.minHz, e.sampleRate)
	}

	e.fftSize = nextPow2(e.frameLength)

	plan, err := algofft.NewPlan64(e.fftSize)
	if err != nil {
		return fmt.Errorf("pitch estimator: failed to create FFT plan: %w", err)
	}

	e.plan = plan
	e.frame = make([]float64, e.frameLength)
	e.xSpec = make([]complex128, e.fftSize)
	e.ySpec = make([]complex128, e.fftSize)
	e.corr = make([]complex128, e.fftSize)
	e.prefix = make([]float64, e.frameLength+1)
	e.cmndf = make([]float64, e.maxLag+2)

	return nil
}

// SampleRate returns the sample rate in Hz.
func (e *Estimator) SampleRate() float64 { return e.sampleRate }

// Band returns the detection band in Hz.
func (e *Estimator) Band() (minHz, maxHz float64) { return e.minHz, e.maxHz }

// FrameLength returns the analysis frame length in samples.
func (e *Estimator) FrameLength() int { return e.frameLength }

// HopLength returns the analysis hop in samples.
func (e *Estimator) HopLength() int { return e.hopLength }

// Track returns the per-frame F0 in Hz, with 0 for unvoiced frames.
// Frames start every hop samples; the last frame is zero-padded.
func (e *Estimator) Track(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, nil
	}

	n := 1
	if len(x) > e.frameLength {
		n += (len(x) - e.frameLength + e.hopLength - 1) / e.hopLength
	}

	track := make([]float64, n)
	for i := range track {
		start := i * e.hopLength
		clear(e.frame)
		copy(e.frame, x[start:min(len(x), start+e.frameLength)])

		f0, err := e.analyzeFrame()
		if err != nil {
			return nil, err
		}
		track[i] = f0
	}

	return track, nil
}

// Estimate returns the median F0 over voiced frames. ok is false when no
// frame is voiced.
func (e *Estimator) Estimate(x []float64) (f0 float64, ok bool, err error) {
	track, err := e.Track(x)
	if err != nil {
		return 0, false, err
	}

	voiced := make([]float64, 0, len(track))
	for _, v := range track {
		if v > 0 {
			voiced = append(voiced, v)
		}
	}

	if len(voiced) == 0 {
		return 0, false, nil
	}

	return median(voiced), true, nil
}

// analyzeFrame returns the F0 of e.frame or 0 when unvoiced.
func (e *Estimator) analyzeFrame() (float64, error) {
	if timestats.RMS(e.frame) < e.silenceRMS {
		return 0, nil
	}

	if err := e.difference(); err != nil {
		return 0, err
	}

	tau := e.pickLag()
	if tau < 0 {
		return 0, nil
	}

	lag := float64(tau)
	s0, s1, s2 := e.cmndf[tau-1], e.cmndf[tau], e.cmndf[tau+1]
	if den := s0 - 2*s1 + s2; math.Abs(den) > 1e-12 {
		if shift := 0.5 * (s0 - s2) / den; math.Abs(shift) < 1 {
			lag += shift
		}
	}

	f0 := e.sampleRate / lag
	if f0 < e.minHz || f0 > e.maxHz {
		return 0, nil
	}

	return f0, nil
}

// pickLag returns the integer period lag of the current CMNDF or -1 when the
// frame is unvoiced. The deepest dip anchors the pick. Among its
// sub-multiples, the shortest one whose dip is nearly as deep wins. A
// dominant upper harmonic leaves shallow dips at fractions of the period
// that stay out of the race.
func (e *Estimator) pickLag() int {
	anchor := e.deepest(e.minLag, e.maxLag)
	floor := e.cmndf[anchor]
	if floor >= e.threshold {
		return -1
	}

	accept := floor + dipMargin*(e.threshold-floor)
	best := anchor

	for m := 2; anchor/m >= e.minLag; m++ {
		c := int(math.Round(float64(anchor) / float64(m)))
		r := 1 + c/50

		t := e.deepest(max(e.minLag, c-r), min(e.maxLag, c+r))
		if e.cmndf[t] <= accept {
			best = t
		}
	}

	for best > e.minLag && e.cmndf[best-1] < e.cmndf[best] {
		best--
	}
	for best < e.maxLag && e.cmndf[best+1] < e.cmndf[best] {
		best++
	}

	return best
}

// deepest returns the lag in [lo, hi] with the smallest CMNDF.
func (e *Estimator) deepest(lo, hi int) int {
	best := lo
	for t := lo + 1; t <= hi; t++ {
		if e.cmndf[t] < e.cmndf[best] {
			best = t
		}
	}
	return best
}

// difference fills e.cmndf[0..maxLag+1] with the cumulative mean normalized
// difference of e.frame.
func (e *Estimator) difference() error {
	for i := range e.xSpec {
		e.xSpec[i], e.ySpec[i] = 0, 0
	}
	for i, v := range e.frame {
		e.xSpec[i] = complex(v, 0)
		if i < e.window {
			e.ySpec[i] = complex(v, 0)
		}
	}

	if err := e.plan.Forward(e.xSpec, e.xSpec); err != nil {
		return fmt.Errorf("pitch estimator: forward FFT failed: %w", err)
	}
	if err := e.plan.Forward(e.ySpec, e.ySpec); err != nil {
		return fmt.Errorf("pitch estimator: forward FFT failed: %w", err)
	}

	for i := range e.corr {
		y := e.ySpec[i]
		e.corr[i] = e.xSpec[i] * complex(real(y), -imag(y))
	}

	if err := e.plan.Inverse(e.corr, e.corr); err != nil {
		return fmt.Errorf("pitch estimator: inverse FFT failed: %w", err)
	}

	for i, v := range e.frame {
		e.prefix[i+1] = e.prefix[i] + v*v
	}

	e0 := e.prefix[e.window]
	e.cmndf[0] = 1
	running := 0.0

	for tau := 1; tau <= e.maxLag+1; tau++ {
		et := e.prefix[tau+e.window] - e.prefix[tau]
		d := math.Max(0, e0+et-2*real(e.corr[tau]))
		running += d
		if running <= 0 {
			e.cmndf[tau] = 1
			continue
		}
		e.cmndf[tau] = d * float64(tau) / running
	}

	return nil
}

// Semitones returns the shift that moves a pitch of from Hz to to Hz.
func Semitones(from, to float64) float64 {
	return 12 * math.Log2(to/from)
}

func median(v []float64) float64 {
	s := slices.Clone(v)
	slices.Sort(s)

	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}

	return 0.5 * (s[mid-1] + s[mid])
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
