package align

import "errors"

var (
	// ErrInputDir is returned when the input directory cannot be listed.
	ErrInputDir = errors.New("align: input directory unreadable")
	// ErrDecode is returned when a supported file cannot be decoded.
	ErrDecode = errors.New("align: decode failed")
	// ErrReferenceNotFound is returned when no input matches the reference name.
	ErrReferenceNotFound = errors.New("align: reference file not found")
	// ErrReferenceNoPitch is returned when the reference has no voiced frames.
	ErrReferenceNoPitch = errors.New("align: reference has no detectable pitch")
	// ErrShift is returned when every bound shifter backend fails on a clip.
	ErrShift = errors.New("align: pitch shift failed")
	// ErrWrite is returned when an output file cannot be written.
	ErrWrite = errors.New("align: write failed")
)
