// Package audio decodes MP3 and WAV files to float samples and writes
// 16-bit PCM WAV.
//
// Decoders are looked up by file extension in a Registry, case-insensitively.
// Decoded audio is interleaved float64 in [-1, 1).
package audio
