// Package align runs the batch pitch-alignment pipeline: load every clip of
// an input directory, estimate its F0, shift each clip to the F0 of one
// reference clip, peak-normalize it and write it as 16-bit WAV.
//
// The reference is chosen by file name only after every clip has been
// estimated, and a missing or unvoiced reference stops the run before any
// output is written.
package align
