package audio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// writeIntWAV writes an integer PCM fixture with the go-audio encoder.
func writeIntWAV(t *testing.T, path string, data []int, sampleRate, bitDepth, channels int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
}

func TestToPCM16(t *testing.T) {
	got := ToPCM16([]float64{0, 1, -1, 2, -3, 0.5, -0.5, 0.25, 0.99999, -0.99999, math.NaN()})
	require.Equal(t, []int{0, 32767, -32768, 32767, -32768, 16384, -16384, 8192, 32767, -32767, 0}, got)
}

func TestWriteWAV16KeepsPeakAtOrBelowTarget(t *testing.T) {
	const peak = 0.89

	path := filepath.Join(t.TempDir(), "peak.wav")

	in := make([]float64, 4410)
	for i := range in {
		in[i] = peak * math.Sin(2*math.Pi*441.3*float64(i)/22050)
	}
	in[100] = peak
	in[200] = -peak
	require.NoError(t, WriteWAV16File(path, in, 22050))

	dec, err := DefaultRegistry().DecodeFile(path)
	require.NoError(t, err)

	got := 0.0
	for i, v := range dec.Samples {
		require.LessOrEqual(t, math.Abs(v), math.Abs(in[i]))
		got = math.Max(got, math.Abs(v))
	}
	require.LessOrEqual(t, got, peak)
	require.InDelta(t, peak, got, 1.0/32768)

	// Decoded samples sit exactly on the grid and survive a second pass.
	again := ToPCM16(dec.Samples)
	for i, v := range dec.Samples {
		require.Equal(t, int(v*32768), again[i])
	}
}

func TestWriteWAV16RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	in := make([]float64, 2205)
	for i := range in {
		in[i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/22050)
	}
	require.NoError(t, WriteWAV16File(path, in, 22050))

	dec, err := DefaultRegistry().DecodeFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, dec.Channels)
	require.Equal(t, 22050, dec.SampleRate)
	require.Len(t, dec.Samples, len(in))
	for i := range in {
		require.InDelta(t, in[i], dec.Samples[i], 2.0/32768)
	}

	info, err := DefaultRegistry().InfoFile(path)
	require.NoError(t, err)
	require.Equal(t, FormatWAV, info.Format)
	require.Equal(t, 22050, info.SampleRate)
	require.Equal(t, 1, info.Channels)
	require.Equal(t, 16, info.BitDepth)
	require.InDelta(t, float64(100*time.Millisecond), float64(info.Duration), float64(time.Millisecond))
}

func TestWriteWAV16IsDeterministic(t *testing.T) {
	dir := t.TempDir()
	in := []float64{0.1, -0.2, 0.3, -0.4, 0.5}

	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	require.NoError(t, WriteWAV16File(a, in, 22050))
	require.NoError(t, WriteWAV16File(b, in, 22050))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	require.True(t, bytes.Equal(da, db))
}

func TestWriteWAV16RejectsBadRate(t *testing.T) {
	err := WriteWAV16File(filepath.Join(t.TempDir(), "x.wav"), []float64{0}, 0)
	require.Error(t, err)
}

func TestWAVDecoderBitDepths(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		bitDepth int
		data     []int
		want     []float64
	}{
		{name: "8-bit unsigned", bitDepth: 8, data: []int{128, 192, 64}, want: []float64{0, 0.5, -0.5}},
		{name: "16-bit", bitDepth: 16, data: []int{0, 16384, -32768}, want: []float64{0, 0.5, -1}},
		{name: "24-bit", bitDepth: 24, data: []int{0, 4194304, -8388608}, want: []float64{0, 0.5, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".wav")
			writeIntWAV(t, path, tt.data, 16000, tt.bitDepth, 1)

			dec, err := DefaultRegistry().DecodeFile(path)
			require.NoError(t, err)
			require.Equal(t, 16000, dec.SampleRate)
			require.InDeltaSlice(t, tt.want, dec.Samples, 1e-9)
		})
	}
}

func TestStereoWAVDownmix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.WAV")
	writeIntWAV(t, path, []int{16384, 0, -16384, -16384, 8192, 24576}, 44100, 16, 2)

	dec, err := DefaultRegistry().DecodeFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, dec.Channels)
	require.Equal(t, 3, dec.Frames())
	require.InDeltaSlice(t, []float64{0.25, -0.5, 0.5}, dec.Mono(), 1e-9)
}

func TestDownmix(t *testing.T) {
	require.Equal(t, []float64{1, 2}, Downmix([]float64{1, 2}, 1))
	require.Equal(t, []float64{1.5, 3.5}, Downmix([]float64{1, 2, 3, 4}, 2))
	require.Equal(t, []float64{2}, Downmix([]float64{1, 2, 3, 9}, 3))
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	r := DefaultRegistry()
	require.Equal(t, []string{".mp3", ".wav"}, r.Extensions())

	for _, name := range []string{"a.mp3", "b.MP3", "c.Mp3", "d.wav", "e.WAV"} {
		_, ok := r.Lookup(name)
		require.True(t, ok, name)
	}
	for _, name := range []string{"a.ogg", "noext", "mp3"} {
		_, ok := r.Lookup(name)
		require.False(t, ok, name)
	}

	r.Register("FLAC", WAVDecoder{})
	_, ok := r.Lookup("x.flac")
	require.True(t, ok)
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	r := DefaultRegistry()

	_, err := r.DecodeFile(filepath.Join(dir, "x.ogg"))
	require.ErrorIs(t, err, ErrUnsupported)

	bogusWAV := filepath.Join(dir, "bogus.wav")
	require.NoError(t, os.WriteFile(bogusWAV, []byte("definitely not RIFF"), 0o644))
	_, err = r.DecodeFile(bogusWAV)
	require.ErrorIs(t, err, ErrInvalid)

	bogusMP3 := filepath.Join(dir, "bogus.mp3")
	require.NoError(t, os.WriteFile(bogusMP3, []byte("no frames here"), 0o644))
	_, err = r.DecodeFile(bogusMP3)
	require.ErrorIs(t, err, ErrInvalid)

	_, err = r.DecodeFile(filepath.Join(dir, "missing.wav"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// speech.mp3 holds the first 64 frames of an MPEG-2 Layer III mono speech
// recording at 22050 Hz, 576 samples per frame.
const (
	speechMP3       = "testdata/speech.mp3"
	speechMP3Rate   = 22050
	speechMP3Frames = 64 * 576
)

func TestMP3DecoderDecodesFixture(t *testing.T) {
	f, err := os.Open(speechMP3)
	require.NoError(t, err)
	defer f.Close()

	dec, err := MP3Decoder{}.Decode(f)
	require.NoError(t, err)
	require.Equal(t, 2, dec.Channels)
	require.Equal(t, speechMP3Rate, dec.SampleRate)
	require.Zero(t, len(dec.Samples)%2)
	require.InDelta(t, speechMP3Frames, dec.Frames(), 2*576)

	peak := 0.0
	for i := 0; i < len(dec.Samples); i += 2 {
		l, r := dec.Samples[i], dec.Samples[i+1]

		// Mono streams come out with both channels equal.
		require.Equal(t, l, r)
		require.GreaterOrEqual(t, l, -1.0)
		require.Less(t, l, 1.0)
		require.Equal(t, math.Trunc(l*32768), l*32768)
		peak = math.Max(peak, math.Abs(l))
	}
	require.Greater(t, peak, 0.01)

	mono := dec.Mono()
	require.Len(t, mono, dec.Frames())
	require.Equal(t, dec.Samples[2*100], mono[100])
}

func TestMP3DecoderInfoFixture(t *testing.T) {
	info, err := DefaultRegistry().InfoFile(speechMP3)
	require.NoError(t, err)
	require.Equal(t, FormatMP3, info.Format)
	require.Equal(t, speechMP3Rate, info.SampleRate)
	require.Equal(t, 2, info.Channels)

	want := time.Duration(speechMP3Frames) * time.Second / speechMP3Rate
	require.InDelta(t, want.Seconds(), info.Duration.Seconds(), 0.06)

	dec, err := DefaultRegistry().DecodeFile(speechMP3)
	require.NoError(t, err)
	require.InDelta(t, info.Duration.Seconds(), float64(dec.Frames())/float64(dec.SampleRate), 1e-3)
}

func TestMP3DecoderIgnoresExtensionCase(t *testing.T) {
	data, err := os.ReadFile(speechMP3)
	require.NoError(t, err)

	dir := t.TempDir()
	for _, name := range []string{"upper.MP3", "mixed.Mp3"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		dec, err := DefaultRegistry().DecodeFile(path)
		require.NoError(t, err, name)
		require.Equal(t, speechMP3Rate, dec.SampleRate, name)
	}
}
