package align

import "fmt"

// SelectReference returns the record named name. The record must carry an
// F0.
func SelectReference(b *Batch, name string) (*Record, error) {
	for _, r := range b.Records {
		if r.Name != name {
			continue
		}
		if !r.HasF0 {
			return nil, fmt.Errorf("%w: %s", ErrReferenceNoPitch, name)
		}
		return r, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrReferenceNotFound, name)
}
