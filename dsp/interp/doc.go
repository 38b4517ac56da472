// Package interp provides fractional-position interpolation and the
// length-fitting resampler built on it.
//
//   - [Linear2]:  2-point linear interpolation
//   - [Hermite4]: 4-point cubic Hermite (good default)
//   - [Stretch]:  resample a block to an exact output length
package interp
