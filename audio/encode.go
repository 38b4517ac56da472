package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavPCMFormat = 1

const pcm16Scale = 32768

// ToPCM16 converts float samples to 16-bit integers on the same 1/32768
// scale the decoders use. Samples truncate toward zero and saturate at
// [-32768, 32767], so no written sample exceeds the magnitude of its input.
func ToPCM16(samples []float64) []int {
	out := make([]int, len(samples))
	for i, v := range samples {
		if math.IsNaN(v) {
			continue
		}
		q := math.Trunc(v * pcm16Scale)
		out[i] = int(math.Max(math.MinInt16, math.Min(math.MaxInt16, q)))
	}
	return out
}

// WriteWAV16 encodes mono samples as 16-bit PCM WAV.
func WriteWAV16(w io.WriteSeeker, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, wavPCMFormat)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           ToPCM16(samples),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("audio: wav encode: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: wav finalize: %w", err)
	}

	return nil
}

// WriteWAV16File writes mono samples to path, replacing any existing file.
func WriteWAV16File(path string, samples []float64, sampleRate int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return WriteWAV16(f, samples, sampleRate)
}
