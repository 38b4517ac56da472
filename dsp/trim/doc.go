// Package trim removes leading and trailing near-silence from a signal.
//
// Silence is judged per centered analysis frame: a frame is silent when its
// RMS level sits more than the configured threshold below the loudest frame.
package trim
