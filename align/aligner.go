package align

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/barkalign/dsp/pitch"
)

// Aligner moves subject clips to the reference pitch.
type Aligner struct {
	binding *pitch.Binding
	log     logrus.FieldLogger
}

// NewAligner returns an Aligner shifting with binding.
func NewAligner(binding *pitch.Binding, log logrus.FieldLogger) *Aligner {
	return &Aligner{binding: binding, log: log}
}

// Align returns the aligned samples of rec and a partial Result carrying the
// role, shift and backend. Reference and unvoiced clips come back unchanged.
func (a *Aligner) Align(rec, ref *Record) ([]float64, Result, error) {
	res := Result{Name: rec.Name, F0: rec.F0}

	switch {
	case rec == ref:
		res.Role = RoleReference
		return rec.Samples, res, nil
	case !rec.HasF0:
		res.Role = RolePassthrough
		a.log.WithField("file", rec.Name).Warn("no pitch detected, writing unshifted")
		return rec.Samples, res, nil
	}

	res.Role = RoleShifted
	res.Semitones = pitch.Semitones(rec.F0, ref.F0)

	out, used, err := a.binding.Shift(rec.Samples, res.Semitones)
	if err != nil {
		return nil, res, fmt.Errorf("%w: %s (%+.2f st): %w", ErrShift, rec.Name, res.Semitones, err)
	}
	if used != a.binding.Primary() {
		a.log.WithFields(logrus.Fields{
			"file":     rec.Name,
			"primary":  a.binding.Primary(),
			"fallback": used,
		}).Warn("primary shifter failed, used fallback")
	}
	res.Backend = used

	return out, res, nil
}
