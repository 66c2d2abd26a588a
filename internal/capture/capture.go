package capture

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	DefaultLanguage = "en-US"
	DefaultTimeout  = 15 * time.Second
)

var (
	ErrUnsupported = errors.New("speech recognition not supported")
	ErrBusy        = errors.New("listening session already active")
	ErrNoSpeech    = errors.New("no speech recognized")
)

// annotationRe matches non-speech markers such as [BLANK_AUDIO] or (music).
var annotationRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// Recognizer is the platform speech-to-text capability. Recognize captures
// one utterance and returns its final transcript.
type Recognizer interface {
	Recognize(ctx context.Context, language string) (string, error)
}

// Events receives the callbacks of one listening session. OnEnd is always
// the last call, preceded by at most one of OnResult or OnError.
type Events interface {
	OnStart()
	OnResult(utterance string)
	OnError(err error)
	OnEnd()
}

type Config struct {
	Language string
	Timeout  time.Duration
}

type Adapter struct {
	rec      Recognizer
	language string
	timeout  time.Duration

	mu     sync.Mutex
	active bool
	wg     sync.WaitGroup
}

func New(rec Recognizer, cfg Config) *Adapter {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Adapter{
		rec:      rec,
		language: cfg.Language,
		timeout:  cfg.Timeout,
	}
}

func (a *Adapter) Supported() bool {
	return a.rec != nil
}

func (a *Adapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Start begins one listening session in the background. Only one session
// may run at a time.
func (a *Adapter) Start(ctx context.Context, ev Events) error {
	if a.rec == nil {
		return ErrUnsupported
	}

	a.mu.Lock()
	if a.active {
		a.mu.Unlock()
		return ErrBusy
	}
	a.active = true
	a.wg.Add(1)
	a.mu.Unlock()

	go a.run(ctx, ev)

	return nil
}

// Wait blocks until the running session, if any, has ended.
func (a *Adapter) Wait() {
	a.wg.Wait()
}

func (a *Adapter) run(ctx context.Context, ev Events) {
	defer a.wg.Done()

	log.Debug("Recognition started")
	ev.OnStart()

	text, err := a.recognize(ctx)
	if err != nil {
		log.Warn("Recognition error", "err", err)
		ev.OnError(err)
	} else {
		log.Info("Recognized", "text", text)
		ev.OnResult(text)
	}

	a.mu.Lock()
	a.active = false
	a.mu.Unlock()

	log.Debug("Recognition ended")
	ev.OnEnd()
}

func (a *Adapter) recognize(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.rec.Recognize(ctx, a.language)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	text = Clean(text)
	if text == "" {
		return "", ErrNoSpeech
	}

	return text, nil
}

// Clean turns a raw transcript into an utterance: annotations removed,
// whitespace collapsed, lowercase.
func Clean(text string) string {
	text = annotationRe.ReplaceAllString(text, " ")
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
