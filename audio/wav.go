package audio

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// WAVDecoder decodes integer PCM WAV of 8, 16, 24 or 32 bits.
type WAVDecoder struct{}

// Decode reads the whole file.
func (WAVDecoder) Decode(r io.ReadSeeker) (*Decoded, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: wav: not a valid WAV file", ErrInvalid)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: wav: %w", ErrInvalid, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: wav: missing format", ErrInvalid)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}

	var offset, scale float64
	switch depth {
	case 8:
		// 8-bit WAV is unsigned.
		offset, scale = 128, 128
	case 16, 24, 32:
		scale = float64(int64(1) << (depth - 1))
	default:
		return nil, fmt.Errorf("%w: wav: unsupported bit depth %d", ErrInvalid, depth)
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = (float64(v) - offset) / scale
	}

	return &Decoded{
		Samples:    samples,
		Channels:   buf.Format.NumChannels,
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// Info reads the header chunks only.
func (WAVDecoder) Info(r io.ReadSeeker) (*Info, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: wav: not a valid WAV file", ErrInvalid)
	}

	dur, err := d.Duration()
	if err != nil {
		return nil, fmt.Errorf("%w: wav: %w", ErrInvalid, err)
	}

	return &Info{
		Format:     FormatWAV,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Duration:   dur,
	}, nil
}
