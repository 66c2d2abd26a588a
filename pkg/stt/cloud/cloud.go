// Package cloud transcribes through the OpenAI audio transcription API.
package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"friday/pkg/audioconv"
	"friday/pkg/stt"
)

const DefaultModel = "whisper-1"

type Config struct {
	APIKey  string
	BaseURL string // empty for the public API
	Model   string
	// Retries on transient failures; the SDK default applies when negative.
	Retries int
}

type Transcriber struct {
	client openai.Client
	model  openai.AudioModel
}

func NewTranscriber(httpClient *http.Client, cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("empty api key")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Retries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.Retries))
	}

	return &Transcriber{
		client: openai.NewClient(opts...),
		model:  openai.AudioModel(cfg.Model),
	}, nil
}

// TranscribePCM uploads the samples as a 16 kHz wav file. Only Language and
// InitialPrompt of opt apply.
func (t *Transcriber) TranscribePCM(ctx context.Context, pcm16k []float32, opt stt.Options) (stt.Result, error) {
	wav, err := audioconv.EncodeWAV(pcm16k, audioconv.TargetRate)
	if err != nil {
		return stt.Result{}, err
	}

	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(wav), "speech.wav", "audio/wav"),
		Model:          t.model,
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	if opt.Language != "" && opt.Language != "auto" {
		params.Language = openai.String(opt.Language)
	}
	if opt.InitialPrompt != "" {
		params.Prompt = openai.String(opt.InitialPrompt)
	}

	res, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Result{}, fmt.Errorf("transcription request: %w", err)
	}

	return stt.Result{
		Text:     strings.TrimSpace(res.Text),
		Language: opt.Language,
	}, nil
}
