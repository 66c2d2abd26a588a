package mic

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friday/pkg/stt"
)

type fakeSource struct {
	pcm []float32
	err error
}

func (f fakeSource) Capture(context.Context) ([]float32, error) {
	return f.pcm, f.err
}

type fakeTranscriber struct {
	got  stt.Options
	n    int
	text string
	err  error
}

func (f *fakeTranscriber) TranscribePCM(_ context.Context, pcm []float32, opt stt.Options) (stt.Result, error) {
	f.got = opt
	f.n = len(pcm)
	return stt.Result{Text: f.text, Language: opt.Language}, f.err
}

type fakeDucker struct {
	calls []string
}

func (d *fakeDucker) Duck(context.Context) error {
	d.calls = append(d.calls, "duck")
	return nil
}

func (d *fakeDucker) Restore(context.Context) error {
	d.calls = append(d.calls, "restore")
	return errors.New("pactl missing")
}

func TestRecognize(t *testing.T) {
	tr := &fakeTranscriber{text: " Open YouTube"}
	d := &fakeDucker{}
	r := NewRecognizer(fakeSource{pcm: make([]float32, 160)}, tr, d, stt.Options{Threads: 2})

	text, err := r.Recognize(context.Background(), "en-US")
	require.NoError(t, err)
	assert.Equal(t, " Open YouTube", text)
	assert.Equal(t, "en", tr.got.Language)
	assert.Equal(t, 2, tr.got.Threads)
	assert.Equal(t, 160, tr.n)
	assert.Equal(t, []string{"duck", "restore"}, d.calls)
}

func TestRecognizeExplicitLanguage(t *testing.T) {
	tr := &fakeTranscriber{text: "hi"}
	r := NewRecognizer(fakeSource{pcm: []float32{0}}, tr, nil, stt.Options{Language: "auto"})

	_, err := r.Recognize(context.Background(), "en-US")
	require.NoError(t, err)
	assert.Equal(t, "auto", tr.got.Language)
}

func TestRecognizeErrors(t *testing.T) {
	boom := errors.New("device unavailable")

	r := NewRecognizer(fakeSource{err: boom}, &fakeTranscriber{}, nil, stt.Options{})
	_, err := r.Recognize(context.Background(), "en-US")
	assert.ErrorIs(t, err, boom)

	r = NewRecognizer(fakeSource{pcm: []float32{0}}, &fakeTranscriber{err: boom}, nil, stt.Options{})
	_, err = r.Recognize(context.Background(), "en-US")
	assert.ErrorIs(t, err, boom)
}

func TestWhisperLanguage(t *testing.T) {
	assert.Equal(t, "en", whisperLanguage("en-US"))
	assert.Equal(t, "de", whisperLanguage("DE"))
	assert.Equal(t, "en", whisperLanguage(""))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utterance.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           []int{0, 100, 200, 300},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	pcm, err := File{Path: path}.Capture(context.Background())
	require.NoError(t, err)
	assert.Len(t, pcm, 4)

	_, err = File{Path: filepath.Join(t.TempDir(), "missing.wav")}.Capture(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
