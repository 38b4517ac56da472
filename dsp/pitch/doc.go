// Package pitch estimates the fundamental frequency of monophonic clips and
// shifts their pitch without changing duration.
//
// Included pieces:
//   - Estimator: frame-based YIN tracker summarizing a clip by its median F0.
//   - FormantShifter: phase-vocoder shifter that keeps the spectral envelope.
//   - WSOLAShifter: time-domain WSOLA stretch followed by resampling.
//   - SonicShifter: adapter over the sonic stream pitch shifter.
//   - Binding: backend selection probed once, with per-call fallback.
package pitch
