package align

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/barkalign/audio"
)

// OutputName maps an input file name to its output name.
func OutputName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + "_aligned.wav"
}

// Writer stores aligned clips as mono 16-bit WAV.
type Writer struct {
	dir        string
	sampleRate int
}

// NewWriter returns a Writer for dir, creating it when absent.
func NewWriter(dir string, sampleRate int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return &Writer{dir: dir, sampleRate: sampleRate}, nil
}

// Path returns the output path for input name.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, OutputName(name))
}

// Write encodes samples for input name and returns the output path.
func (w *Writer) Write(name string, samples []float64) (string, error) {
	path := w.Path(name)
	if err := audio.WriteWAV16File(path, samples, w.sampleRate); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	return path, nil
}
