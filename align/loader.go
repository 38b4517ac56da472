package align

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/barkalign/audio"
	"github.com/cwbudde/barkalign/dsp/resample"
	"github.com/cwbudde/barkalign/dsp/trim"
)

// Loader lists and decodes input clips into mono, resampled, trimmed
// signals.
type Loader struct {
	registry   *audio.Registry
	extensions map[string]bool
	sampleRate int
	trimmer    *trim.Trimmer
}

// NewLoader returns a loader accepting files whose extension matches one of
// extensions, case-insensitively.
func NewLoader(registry *audio.Registry, extensions []string, sampleRate int, trimThresholdDB float64) (*Loader, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("align: invalid sample rate %d", sampleRate)
	}

	trimmer, err := trim.New(trim.WithThresholdDB(trimThresholdDB))
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}

	return &Loader{
		registry:   registry,
		extensions: exts,
		sampleRate: sampleRate,
		trimmer:    trimmer,
	}, nil
}

// SampleRate returns the rate every loaded signal is converted to.
func (l *Loader) SampleRate() int { return l.sampleRate }

// Accepts reports whether name has a supported extension.
func (l *Loader) Accepts(name string) bool {
	return l.extensions[strings.ToLower(filepath.Ext(name))]
}

// List returns the accepted file names of dir in lexical order.
func (l *Loader) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !l.Accepts(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}

	return names, nil
}

// Load decodes path to mono at the loader's rate and trims leading and
// trailing silence.
func (l *Loader) Load(path string) ([]float64, error) {
	dec, err := l.registry.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, filepath.Base(path), err)
	}

	mono := dec.Mono()
	if dec.SampleRate != l.sampleRate {
		mono, err = resample.Convert(mono, dec.SampleRate, l.sampleRate, resample.WithQuality(resample.QualityBest))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: resample %d->%d Hz: %w",
				ErrDecode, filepath.Base(path), dec.SampleRate, l.sampleRate, err)
		}
	}

	return l.trimmer.Trim(mono), nil
}
