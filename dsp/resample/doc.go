// Package resample provides rational sample-rate conversion using polyphase FIR
// filtering with anti-aliasing defaults.
//
// Quality modes:
//   - QualityFast: lower CPU, lower attenuation
//   - QualityBalanced: default mode
//   - QualityBest: higher attenuation and flatter passband
//
// Common workflows:
//   - Convert(input, inRate, outRate, opts...) for whole-file conversion with
//     filter delay removed
//   - NewForRates(inRate, outRate, opts...) for streaming use
//   - Resample(input, up, down, opts...)
package resample
