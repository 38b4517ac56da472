package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always yields 16-bit little-endian stereo.
const (
	mp3Channels      = 2
	mp3BytesPerFrame = 4
)

// MP3Decoder decodes MPEG-1/2 Layer III.
type MP3Decoder struct{}

// Decode reads the whole stream.
func (MP3Decoder) Decode(r io.ReadSeeker) (*Decoded, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %w", ErrInvalid, err)
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %w", ErrInvalid, err)
	}

	n := len(raw) / 2
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}

	return &Decoded{
		Samples:    samples[:n/mp3Channels*mp3Channels],
		Channels:   mp3Channels,
		SampleRate: d.SampleRate(),
	}, nil
}

// Info reports the stream length. go-mp3 has to scan the frame headers to
// learn it, but does not decode the audio.
func (MP3Decoder) Info(r io.ReadSeeker) (*Info, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %w", ErrInvalid, err)
	}

	info := &Info{
		Format:     FormatMP3,
		SampleRate: d.SampleRate(),
		Channels:   mp3Channels,
		BitDepth:   16,
	}
	if length := d.Length(); length > 0 {
		info.Duration = framesDuration(length/mp3BytesPerFrame, info.SampleRate)
	}

	return info, nil
}
