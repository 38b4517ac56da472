package pitch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/barkalign/dsp/resample"
	"github.com/cwbudde/barkalign/dsp/window"
)

const (
	defaultFormantFrameSize   = 1024
	defaultFormantAnalysisHop = 256
	minFormantFrameSize       = 64
	olaNormFloor              = 1e-12

	// resampleMaxDen bounds the denominator of the rational resampling
	// ratio; the realized pitch lands within a small fraction of a cent.
	resampleMaxDen = 512

	// binShiftThreshold is the largest |ratio-1| handled by direct bin
	// shifting; larger shifts stretch in time and resample.
	binShiftThreshold = 0.15
)

// FormantShifter is a phase-vocoder pitch shifter that keeps the spectral
// envelope in place. Each frame's magnitude spectrum is split into a
// cepstral envelope and a flat excitation; only the excitation is moved.
//
// Small shifts move bins directly. Larger shifts stretch in time with
// identity phase locking and resample by the pitch ratio, pre-warping the
// envelope so it lands where it started. The hop ratio only sets the
// stretch; the pitch comes from the resampler.
//
// A FormantShifter is not safe for concurrent use.
type FormantShifter struct {
	sampleRate      float64
	pitchRatio      float64
	frameSize       int
	analysisHop     int
	synthesisHop    int
	resampleUp      int
	resampleDown    int
	envelopeOrder   int
	resampleQuality resample.Quality

	plan     *algofft.Plan[complex128]
	envelope *cepstralEnvelope

	windowCoeffs []float64
	omega        []float64
	prevPhase    []float64
	sumPhase     []float64

	spectrum  []complex128
	synthesis []complex128
	timeFrame []complex128

	magnitudes []float64
	instFreqs  []float64
	env        []float64
	outMag     []float64
	outFreq    []float64
	peakBins   []int
}

// FormantOption configures a FormantShifter.
type FormantOption func(*FormantShifter)

// WithFrameSize sets the FFT frame size. It must be a power of two >= 64.
func WithFrameSize(size int) FormantOption {
	return func(s *FormantShifter) { s.frameSize = size }
}

// WithAnalysisHop sets the analysis hop in samples.
func WithAnalysisHop(hop int) FormantOption {
	return func(s *FormantShifter) { s.analysisHop = hop }
}

// WithEnvelopeOrder sets the cepstral lifter length in samples. Zero turns
// envelope preservation off, leaving a plain phase vocoder.
func WithEnvelopeOrder(order int) FormantOption {
	return func(s *FormantShifter) { s.envelopeOrder = order }
}

// WithResampleQuality sets the resampler quality of the time-stretch path.
func WithResampleQuality(q resample.Quality) FormantOption {
	return func(s *FormantShifter) { s.resampleQuality = q }
}

// NewFormantShifter constructs a formant-preserving shifter. The default
// envelope lifter spans 1 ms, below the period of any voice up to 1 kHz.
func NewFormantShifter(sampleRate float64, opts ...FormantOption) (*FormantShifter, error) {
	if !isFinitePositive(sampleRate) {
		return nil, fmt.Errorf("formant shifter sample rate must be positive and finite: %f", sampleRate)
	}

	s := &FormantShifter{
		sampleRate:      sampleRate,
		pitchRatio:      1,
		frameSize:       defaultFormantFrameSize,
		analysisHop:     defaultFormantAnalysisHop,
		envelopeOrder:   max(8, int(math.Round(0.001*sampleRate))),
		resampleQuality: resample.QualityBalanced,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if err := s.rebuild(); err != nil {
		return nil, err
	}

	s.updateSynthesisHop()

	return s, nil
}

// SampleRate returns the sample rate in Hz.
func (s *FormantShifter) SampleRate() float64 { return s.sampleRate }

// PitchRatio returns the requested pitch ratio.
func (s *FormantShifter) PitchRatio() float64 { return s.pitchRatio }

// PitchSemitones returns the requested shift in semitones.
func (s *FormantShifter) PitchSemitones() float64 { return 12 * math.Log2(s.pitchRatio) }

// FrameSize returns the FFT frame size.
func (s *FormantShifter) FrameSize() int { return s.frameSize }

// EnvelopeOrder returns the cepstral lifter length, 0 when disabled.
func (s *FormantShifter) EnvelopeOrder() int { return s.envelopeOrder }

// EffectivePitchRatio returns the realized ratio. Bin shifting is exact; the
// time-stretch path realizes the rational resampling ratio.
func (s *FormantShifter) EffectivePitchRatio() float64 {
	if s.useBinShifting() {
		return s.pitchRatio
	}
	return float64(s.resampleDown) / float64(s.resampleUp)
}

// SetPitchRatio updates the pitch ratio. It must lie in [0.25, 4].
func (s *FormantShifter) SetPitchRatio(ratio float64) error {
	if err := validateRatio(ratio); err != nil {
		return fmt.Errorf("formant shifter: %w", err)
	}
	s.pitchRatio = ratio
	s.updateSynthesisHop()
	return nil
}

// SetPitchSemitones updates the pitch shift in semitones.
func (s *FormantShifter) SetPitchSemitones(semitones float64) error {
	ratio, err := semitonesToRatio(semitones)
	if err != nil {
		return fmt.Errorf("formant shifter: %w", err)
	}
	s.pitchRatio = ratio
	s.updateSynthesisHop()
	return nil
}

// ProcessWithError returns input shifted by the current ratio, with the same
// length as input.
func (s *FormantShifter) ProcessWithError(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if math.Abs(s.pitchRatio-1) <= identityEps {
		return fitLength(input, len(input)), nil
	}

	clear(s.prevPhase)
	clear(s.sumPhase)

	// A lead-in of whole analysis hops puts every input sample under full
	// window coverage. Output is read from the sample the lead maps to.
	lead := (s.frameSize + s.analysisHop - 1) / s.analysisHop * s.analysisHop
	padded := make([]float64, lead+len(input))
	copy(padded[lead:], input)

	var (
		out   []float64
		start = lead
		err   error
	)
	if s.useBinShifting() {
		out, err = s.processBinShift(padded)
	} else {
		out, start, err = s.processTimeStretch(padded, lead)
	}
	if err != nil {
		return nil, err
	}

	return fitLength(out[min(start, len(out)):], len(input)), nil
}

// frameCount returns the number of analysis frames for n input samples,
// including trailing frames that run a full frame past the end.
func (s *FormantShifter) frameCount(n int) int {
	return 1 + (n+s.frameSize-1)/s.analysisHop
}

func (s *FormantShifter) useBinShifting() bool {
	return math.Abs(s.pitchRatio-1) <= binShiftThreshold
}

func (s *FormantShifter) processBinShift(input []float64) ([]float64, error) {
	hop := s.analysisHop
	frames := s.frameCount(len(input))
	out := newOverlapAdd((frames-1)*hop + s.frameSize)
	half := s.frameSize / 2
	ratio := s.pitchRatio

	for f := range frames {
		pos := f * hop
		if err := s.analyze(input, pos, hop); err != nil {
			return nil, err
		}

		for k := 0; k <= half; k++ {
			src := float64(k) / ratio
			if src >= float64(half) {
				s.outMag[k] = 0
				s.outFreq[k] = s.omega[k]
				continue
			}

			lo := int(src)
			frac := src - float64(lo)
			hi := min(lo+1, half)

			if s.envelope != nil {
				// Move the flattened excitation, keep the envelope of bin k.
				exc := s.magnitudes[lo]/s.env[lo]*(1-frac) + s.magnitudes[hi]/s.env[hi]*frac
				s.outMag[k] = exc * s.env[k]
			} else {
				s.outMag[k] = s.magnitudes[lo]*(1-frac) + s.magnitudes[hi]*frac
			}
			s.outFreq[k] = (s.instFreqs[lo]*(1-frac) + s.instFreqs[hi]*frac) * ratio
		}

		for k := 0; k <= half; k++ {
			s.sumPhase[k] += s.outFreq[k] * float64(hop)
			s.synthesis[k] = complexPolar(s.outMag[k], s.sumPhase[k])
		}

		if err := s.synthesize(out, pos); err != nil {
			return nil, err
		}
	}

	return fitLength(out.result(), len(input)), nil
}

// processTimeStretch returns the shifted signal and the output index that
// corresponds to input sample lead.
func (s *FormantShifter) processTimeStretch(input []float64, lead int) ([]float64, int, error) {
	frames := s.frameCount(len(input))
	out := newOverlapAdd((frames-1)*s.synthesisHop + s.frameSize)
	half := s.frameSize / 2
	ratio := s.EffectivePitchRatio()

	for f := range frames {
		if err := s.analyze(input, f*s.analysisHop, s.analysisHop); err != nil {
			return nil, 0, err
		}

		s.lockPhases()

		for k := 0; k <= half; k++ {
			m := s.magnitudes[k]
			if s.envelope != nil {
				// Resampling later scales frequencies by ratio, so bin k ends
				// up at k*ratio and must carry the envelope found there.
				m *= sampleBins(s.env, float64(k)*ratio) / s.env[k]
			}
			s.synthesis[k] = complexPolar(m, s.sumPhase[k])
		}

		if err := s.synthesize(out, f*s.synthesisHop); err != nil {
			return nil, 0, err
		}
	}

	shifted, err := resample.ConvertRatio(out.result(), s.resampleUp, s.resampleDown,
		resample.WithQuality(s.resampleQuality))
	if err != nil {
		return nil, 0, fmt.Errorf("formant shifter: resampling failed: %w", err)
	}

	// lead is a whole number of analysis hops, so it maps exactly onto the
	// stretched timeline before resampling.
	stretchedLead := lead / s.analysisHop * s.synthesisHop
	start := int(math.Round(float64(stretchedLead) * float64(s.resampleUp) / float64(s.resampleDown)))

	return shifted, start, nil
}

// analyze windows the frame at pos, transforms it and fills magnitudes,
// instantaneous frequencies and, when enabled, the envelope.
func (s *FormantShifter) analyze(input []float64, pos, hop int) error {
	for i := range s.frameSize {
		s.spectrum[i] = complex(sampleZero(input, pos+i)*s.windowCoeffs[i], 0)
	}

	if err := s.plan.Forward(s.spectrum, s.spectrum); err != nil {
		return fmt.Errorf("formant shifter: forward FFT failed: %w", err)
	}

	hopF := float64(hop)
	for k := 0; k <= s.frameSize/2; k++ {
		re, im := real(s.spectrum[k]), imag(s.spectrum[k])
		s.magnitudes[k] = math.Hypot(re, im)
		phase := math.Atan2(im, re)

		delta := wrapPhase(phase - s.prevPhase[k] - s.omega[k]*hopF)
		s.instFreqs[k] = s.omega[k] + delta/hopF
		s.prevPhase[k] = phase
	}

	if s.envelope == nil {
		return nil
	}
	return s.envelope.compute(s.magnitudes, s.env)
}

// lockPhases advances synthesis phases with identity phase locking: peaks
// advance at their instantaneous frequency and every other bin keeps its
// analysis phase offset to the nearest peak.
func (s *FormantShifter) lockPhases() {
	half := s.frameSize / 2
	hopF := float64(s.synthesisHop)

	s.peakBins = s.peakBins[:0]
	for k := 1; k < half; k++ {
		if s.magnitudes[k] >= s.magnitudes[k-1] && s.magnitudes[k] > s.magnitudes[k+1] {
			s.peakBins = append(s.peakBins, k)
		}
	}

	if len(s.peakBins) == 0 {
		for k := 0; k <= half; k++ {
			s.sumPhase[k] += s.instFreqs[k] * hopF
		}
		return
	}

	for _, pk := range s.peakBins {
		s.sumPhase[pk] += s.instFreqs[pk] * hopF
	}

	p := 0
	for k := 0; k <= half; k++ {
		for p+1 < len(s.peakBins) && absInt(s.peakBins[p+1]-k) < absInt(s.peakBins[p]-k) {
			p++
		}
		if pk := s.peakBins[p]; k != pk {
			s.sumPhase[k] = s.sumPhase[pk] + (s.prevPhase[k] - s.prevPhase[pk])
		}
	}
}

// synthesize mirrors the half spectrum, inverts it and overlap-adds the
// windowed frame at pos.
func (s *FormantShifter) synthesize(out *overlapAdd, pos int) error {
	half := s.frameSize / 2

	s.synthesis[0] = complex(real(s.synthesis[0]), 0)
	s.synthesis[half] = complex(real(s.synthesis[half]), 0)
	for k := 1; k < half; k++ {
		v := s.synthesis[k]
		s.synthesis[s.frameSize-k] = complex(real(v), -imag(v))
	}

	if err := s.plan.Inverse(s.timeFrame, s.synthesis); err != nil {
		return fmt.Errorf("formant shifter: inverse FFT failed: %w", err)
	}

	for i, w := range s.windowCoeffs {
		out.add(pos+i, real(s.timeFrame[i])*w, w*w)
	}

	return nil
}

func (s *FormantShifter) rebuild() error {
	if s.frameSize < minFormantFrameSize || !isPowerOf2(s.frameSize) {
		return fmt.Errorf("formant frame size must be a power of two >= %d: %d", minFormantFrameSize, s.frameSize)
	}
	if s.analysisHop <= 0 || s.analysisHop >= s.frameSize {
		return fmt.Errorf("formant analysis hop must be in [1, %d): %d", s.frameSize, s.analysisHop)
	}
	if s.envelopeOrder < 0 {
		return fmt.Errorf("formant envelope order must be >= 0: %d", s.envelopeOrder)
	}

	plan, err := algofft.NewPlan64(s.frameSize)
	if err != nil {
		return fmt.Errorf("formant shifter: failed to create FFT plan: %w", err)
	}
	s.plan = plan

	bins := s.frameSize/2 + 1

	s.envelope = nil
	if s.envelopeOrder > 0 {
		env, err := newCepstralEnvelope(s.frameSize, s.envelopeOrder)
		if err != nil {
			return fmt.Errorf("formant shifter: %w", err)
		}
		s.envelope = env
	}

	s.windowCoeffs, err = window.Hann(s.frameSize, window.WithPeriodic())
	if err != nil {
		return fmt.Errorf("formant shifter: %w", err)
	}

	s.omega = make([]float64, bins)
	for k := range bins {
		s.omega[k] = 2 * math.Pi * float64(k) / float64(s.frameSize)
	}

	s.prevPhase = make([]float64, bins)
	s.sumPhase = make([]float64, bins)
	s.spectrum = make([]complex128, s.frameSize)
	s.synthesis = make([]complex128, s.frameSize)
	s.timeFrame = make([]complex128, s.frameSize)
	s.magnitudes = make([]float64, bins)
	s.instFreqs = make([]float64, bins)
	s.env = make([]float64, bins)
	s.outMag = make([]float64, bins)
	s.outFreq = make([]float64, bins)
	s.peakBins = make([]int, 0, bins)

	return nil
}

func (s *FormantShifter) updateSynthesisHop() {
	s.synthesisHop = max(1, int(math.Round(float64(s.analysisHop)*s.pitchRatio)))
	s.resampleUp, s.resampleDown = resample.ApproximateRatio(1/s.pitchRatio, resampleMaxDen)
}

// overlapAdd accumulates windowed frames and their squared-window weights.
type overlapAdd struct {
	sum  []float64
	norm []float64
}

func newOverlapAdd(n int) *overlapAdd {
	return &overlapAdd{sum: make([]float64, n), norm: make([]float64, n)}
}

func (o *overlapAdd) add(i int, v, w2 float64) {
	o.sum[i] += v
	o.norm[i] += w2
}

// result normalizes by the accumulated weights in place and returns the sum.
func (o *overlapAdd) result() []float64 {
	for i, n := range o.norm {
		if n > olaNormFloor {
			o.sum[i] /= n
		}
	}
	return o.sum
}

func complexPolar(mag, phase float64) complex128 {
	return complex(mag*math.Cos(phase), mag*math.Sin(phase))
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}

func isPowerOf2(v int) bool {
	return v > 0 && v&(v-1) == 0
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
