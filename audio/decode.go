package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrUnsupported is returned for files with no registered decoder.
	ErrUnsupported = errors.New("audio: unsupported format")
	// ErrInvalid is returned for files a decoder cannot parse.
	ErrInvalid = errors.New("audio: invalid data")
)

// Decoded is a fully decoded clip.
type Decoded struct {
	// Samples holds interleaved frames scaled to [-1, 1).
	Samples    []float64
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames.
func (d *Decoded) Frames() int {
	if d.Channels <= 0 {
		return 0
	}
	return len(d.Samples) / d.Channels
}

// Decoder decodes one container format.
type Decoder interface {
	Decode(r io.ReadSeeker) (*Decoded, error)
	Info(r io.ReadSeeker) (*Info, error)
}

// Registry maps lower-case extensions (with dot) to decoders.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// DefaultRegistry returns a registry with the MP3 and WAV decoders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".mp3", MP3Decoder{})
	r.Register(".wav", WAVDecoder{})
	return r
}

// Register binds ext to d. ext is matched case-insensitively; a missing
// leading dot is added.
func (r *Registry) Register(ext string, d Decoder) {
	r.decoders[normalizeExt(ext)] = d
}

// Lookup returns the decoder for path's extension.
func (r *Registry) Lookup(path string) (Decoder, bool) {
	d, ok := r.decoders[normalizeExt(filepath.Ext(path))]
	return d, ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// DecodeFile opens and decodes path with the decoder for its extension.
func (r *Registry) DecodeFile(path string) (*Decoded, error) {
	d, ok := r.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return d.Decode(f)
}

// InfoFile reads header information of path without decoding the payload
// where the format allows it.
func (r *Registry) InfoFile(path string) (*Info, error) {
	d, ok := r.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return d.Info(f)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
