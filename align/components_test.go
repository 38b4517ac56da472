package align

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwbudde/barkalign/audio"
	"github.com/cwbudde/barkalign/dsp/pitch"
	"github.com/cwbudde/barkalign/internal/logging"
	"github.com/cwbudde/barkalign/internal/testutil"
)

func TestOutputName(t *testing.T) {
	require.Equal(t, "dog-bark_aligned.wav", OutputName("dog-bark.mp3"))
	require.Equal(t, "a.b_aligned.wav", OutputName("a.b.WAV"))
	require.Equal(t, "noext_aligned.wav", OutputName("noext"))
}

func TestLoaderListFiltersExtensionsCaseInsensitively(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp3", "b.MP3", "c.Mp3", "d.wav", "e.WAV", "notes.txt", "f.ogg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.wav"), 0o755))

	l, err := NewLoader(audio.DefaultRegistry(), []string{".mp3", "WAV"}, testRate, 40)
	require.NoError(t, err)

	names, err := l.List(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a.mp3", "b.MP3", "c.Mp3", "d.wav", "e.WAV"}, names)
}

func TestLoaderLoadResamplesAndTrims(t *testing.T) {
	dir := t.TempDir()
	tone := testutil.Bark(200, 44100, 0.5, 44100)
	writeClip(t, dir, "clip.wav", testutil.Pad(tone, 44100, 44100), 44100)

	l, err := NewLoader(audio.DefaultRegistry(), []string{".wav"}, testRate, 40)
	require.NoError(t, err)

	x, err := l.Load(filepath.Join(dir, "clip.wav"))
	require.NoError(t, err)

	// One second of bark at the new rate, give or take the trim framing and
	// the quiet envelope edges.
	require.Greater(t, len(x), testRate*7/10)
	require.Less(t, len(x), testRate+2*2048)
}

func TestLoaderRejectsBadRate(t *testing.T) {
	_, err := NewLoader(audio.DefaultRegistry(), []string{".wav"}, 0, 40)
	require.Error(t, err)
}

func TestSelectReference(t *testing.T) {
	voiced := &Record{Name: "ref.mp3", F0: 293, HasF0: true}
	unvoiced := &Record{Name: "quiet.mp3"}
	b := &Batch{Records: []*Record{unvoiced, voiced}}

	got, err := SelectReference(b, "ref.mp3")
	require.NoError(t, err)
	require.Same(t, voiced, got)

	_, err = SelectReference(b, "quiet.mp3")
	require.ErrorIs(t, err, ErrReferenceNoPitch)

	_, err = SelectReference(b, "REF.mp3")
	require.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestAlignerRoles(t *testing.T) {
	binding, err := pitch.Bind(pitch.BackendWSOLA, pitch.BackendWSOLA, testRate)
	require.NoError(t, err)
	a := NewAligner(binding, logging.Discard())

	ref := &Record{Name: "ref", Samples: testutil.Bark(300, testRate, 0.5, 4000), F0: 300, HasF0: true}
	mute := &Record{Name: "mute", Samples: make([]float64, 100)}
	sub := &Record{Name: "sub", Samples: testutil.Bark(150, testRate, 0.5, 4000), F0: 150, HasF0: true}

	out, res, err := a.Align(ref, ref)
	require.NoError(t, err)
	require.Equal(t, RoleReference, res.Role)
	require.Equal(t, ref.Samples, out)

	out, res, err = a.Align(mute, ref)
	require.NoError(t, err)
	require.Equal(t, RolePassthrough, res.Role)
	require.Equal(t, mute.Samples, out)

	out, res, err = a.Align(sub, ref)
	require.NoError(t, err)
	require.Equal(t, RoleShifted, res.Role)
	require.Equal(t, pitch.BackendWSOLA, res.Backend)
	require.InDelta(t, 12.0, res.Semitones, 1e-12)
	require.Len(t, out, len(sub.Samples))
}

func TestAlignerShiftsAcrossWholeBand(t *testing.T) {
	binding, err := pitch.Bind(pitch.BackendFormant, pitch.BackendWSOLA, testRate)
	require.NoError(t, err)
	a := NewAligner(binding, logging.Discard())

	est, err := pitch.NewEstimator(testRate)
	require.NoError(t, err)

	ref := &Record{Name: "ref", F0: 590, HasF0: true}
	sub := &Record{Name: "sub", Samples: testutil.Pad(testutil.Bark(72, testRate, 0.5, testRate), 2205, 2205), F0: 72, HasF0: true}

	out, res, err := a.Align(sub, ref)
	require.NoError(t, err)
	require.Equal(t, RoleShifted, res.Role)
	require.Equal(t, pitch.BackendFormant, res.Backend)
	require.Greater(t, res.Semitones, 36.0)
	require.Len(t, out, len(sub.Samples))

	f0, ok, err := est.Estimate(out)
	require.NoError(t, err)
	require.True(t, ok)
	testutil.RequireSemitonesNear(t, f0, ref.F0, 0.1)
}

func TestAlignerShiftFailure(t *testing.T) {
	binding, err := pitch.Bind(pitch.BackendFormant, pitch.BackendWSOLA, testRate)
	require.NoError(t, err)
	a := NewAligner(binding, logging.Discard())

	ref := &Record{Name: "ref", F0: math.Inf(1), HasF0: true}
	sub := &Record{Name: "sub", Samples: make([]float64, 1000), F0: 200, HasF0: true}

	_, _, err = a.Align(sub, ref)
	require.ErrorIs(t, err, ErrShift)
	require.ErrorContains(t, err, "sub")
}

func TestLoaderLoadsMP3(t *testing.T) {
	l, err := NewLoader(audio.DefaultRegistry(), []string{".mp3"}, 16000, 40)
	require.NoError(t, err)

	x, err := l.Load(filepath.Join("..", "audio", "testdata", "speech.mp3"))
	require.NoError(t, err)
	require.NotEmpty(t, x)

	// 64 frames of 576 samples at 22050 Hz, resampled and trimmed.
	require.LessOrEqual(t, len(x), 65*576*16000/22050)
	testutil.RequireFinite(t, x)
}
