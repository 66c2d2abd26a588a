package mic

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	"friday/pkg/audioconv"
	"friday/pkg/stt"
)

// Source produces one utterance worth of mono 16 kHz samples.
type Source interface {
	Capture(ctx context.Context) ([]float32, error)
}

type Transcriber interface {
	TranscribePCM(ctx context.Context, pcm16k []float32, opt stt.Options) (stt.Result, error)
}

// Ducker quiets other playback while capturing.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Recognizer is the speech-to-text platform: capture from a source, then
// hand the samples to a Transcriber.
type Recognizer struct {
	source Source
	tr     Transcriber
	ducker Ducker
	opts   stt.Options
}

func NewRecognizer(source Source, tr Transcriber, ducker Ducker, opts stt.Options) *Recognizer {
	return &Recognizer{
		source: source,
		tr:     tr,
		ducker: ducker,
		opts:   opts,
	}
}

func (r *Recognizer) Recognize(ctx context.Context, language string) (string, error) {
	pcm, err := r.capture(ctx)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}

	log.Debug("Captured", "samples", len(pcm))

	opts := r.opts
	if opts.Language == "" {
		opts.Language = whisperLanguage(language)
	}

	res, err := r.tr.TranscribePCM(ctx, pcm, opts)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	log.Debug("Transcribed", "text", res.Text, "lang", res.Language)
	return res.Text, nil
}

func (r *Recognizer) capture(ctx context.Context) ([]float32, error) {
	if r.ducker == nil {
		return r.source.Capture(ctx)
	}

	if err := r.ducker.Duck(ctx); err != nil {
		log.Warn("Failed to duck other streams", "err", err)
	}
	defer func() {
		if err := r.ducker.Restore(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to restore other streams", "err", err)
		}
	}()

	return r.source.Capture(ctx)
}

// whisperLanguage turns a BCP 47 tag such as en-US into whisper's "en".
func whisperLanguage(tag string) string {
	if tag == "" {
		return "en"
	}
	lang, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(lang)
}

// File replays an audio file for every session.
type File struct {
	Path string
}

func (f File) Capture(context.Context) ([]float32, error) {
	return audioconv.DecodeFile(f.Path, audioconv.Options{})
}
