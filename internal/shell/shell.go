package shell

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"

	"friday/internal/assistant"
	"friday/internal/capture"
	"friday/internal/voice"
)

const (
	RecognitionUnsupported = "Speech recognition is not available on this host."
	SynthesisUnsupported   = "Speech synthesis is not available on this host."
)

var ErrEmptyUtterance = errors.New("empty utterance")

// State is everything the views show.
type State struct {
	Transcript string `json:"transcript"`
	Listening  bool   `json:"listening"`
	Info       string `json:"info"`
	Supported  bool   `json:"supported"`
}

type Capture interface {
	Supported() bool
	Start(ctx context.Context, ev capture.Events) error
}

type Interpreter interface {
	Interpret(ctx context.Context, utterance string) assistant.Outcome
}

type Speaker interface {
	Speak(text string) error
}

type Navigator interface {
	Open(url string) error
	Search(query string) error
}

type Cue interface {
	Play() error
}

type View interface {
	Render(State)
}

type AlertFunc func(title, message string) error

type Config struct {
	Capture     Capture
	Interpreter Interpreter
	Speaker     Speaker
	Navigator   Navigator
	Cue         Cue
	Alert       AlertFunc
	Views       []View
}

// Shell owns the assistant's visible state. Every transition goes through
// mu; each capture or typed utterance opens a new session and outcomes of
// older sessions are dropped. The session is checked again before speaking
// and before each navigation, so a superseded outcome stops at the next
// side effect; one already handed to the speaker or browser is not undone.
type Shell struct {
	capture   Capture
	supported bool
	interp    Interpreter
	speaker   Speaker
	nav       Navigator
	cue       Cue
	alert     AlertFunc

	mu      sync.Mutex
	state   State
	session uint64
	seq     uint64

	renderMu sync.Mutex
	rendered uint64
	views    []View

	wg sync.WaitGroup
}

func New(cfg Config) *Shell {
	s := &Shell{
		capture: cfg.Capture,
		interp:  cfg.Interpreter,
		speaker: cfg.Speaker,
		nav:     cfg.Navigator,
		cue:     cfg.Cue,
		alert:   cfg.Alert,
		views:   append([]View(nil), cfg.Views...),
	}
	s.supported = s.capture != nil && s.capture.Supported()
	s.state.Supported = s.supported

	return s
}

func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddView registers v and renders the current state to it.
func (s *Shell) AddView(v View) {
	s.renderMu.Lock()
	s.views = append(s.views, v)
	s.renderMu.Unlock()

	v.Render(s.State())
}

// Listen starts one capture session. The utterance is interpreted in the
// background once recognized.
func (s *Shell) Listen(ctx context.Context) error {
	if !s.supported {
		s.raise("Friday", RecognitionUnsupported)
		return capture.ErrUnsupported
	}

	s.mu.Lock()
	if s.state.Listening {
		s.mu.Unlock()
		return capture.ErrBusy
	}
	s.session++
	id := s.session
	s.state.Listening = true
	snap, seq := s.snapshot()
	s.mu.Unlock()
	s.render(snap, seq)

	log.Info("Starting listening", "session", id)

	if err := s.capture.Start(ctx, &session{shell: s, id: id, ctx: ctx}); err != nil {
		s.update(func(st *State) { st.Listening = false })
		return err
	}

	return nil
}

// Ask interprets a typed utterance as its own session and returns the
// state once the outcome has been applied.
func (s *Shell) Ask(ctx context.Context, text string) (State, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return s.State(), ErrEmptyUtterance
	}

	s.mu.Lock()
	s.session++
	id := s.session
	s.state.Transcript = text
	snap, seq := s.snapshot()
	s.mu.Unlock()
	s.render(snap, seq)

	s.interpret(ctx, id, text)

	return s.State(), nil
}

// Wait blocks until background interpretations have finished.
func (s *Shell) Wait() {
	s.wg.Wait()
}

func (s *Shell) interpret(ctx context.Context, id uint64, text string) {
	out := s.interp.Interpret(ctx, text)

	log.Info("Interpreted", "session", id, "kind", out.Kind, "info", out.Info)

	s.mu.Lock()
	if cur := s.session; id != cur {
		s.mu.Unlock()
		log.Debug("Dropping stale outcome", "session", id, "current", cur)
		return
	}
	s.state.Info = out.Info
	snap, seq := s.snapshot()
	s.mu.Unlock()

	if s.current(id) {
		s.speak(out.Speech)
	}
	if out.URL != "" && s.current(id) {
		if err := s.nav.Open(out.URL); err != nil {
			log.Error("Failed to open site", "url", out.URL, "err", err)
		}
	}
	if out.Search != "" && s.current(id) {
		if err := s.nav.Search(out.Search); err != nil {
			log.Error("Failed to open search", "query", out.Search, "err", err)
		}
	}

	s.render(snap, seq)
}

// current reports whether id is still the latest session.
func (s *Shell) current(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != s.session {
		log.Debug("Session superseded", "session", id, "current", s.session)
		return false
	}
	return true
}

func (s *Shell) speak(text string) {
	if text == "" || s.speaker == nil {
		return
	}

	err := s.speaker.Speak(text)
	switch {
	case err == nil:
	case errors.Is(err, voice.ErrUnsupported):
		s.raise("Friday", SynthesisUnsupported)
	default:
		log.Error("Failed to voice out", "err", err)
	}
}

func (s *Shell) raise(title, msg string) {
	if s.alert == nil {
		log.Warn(msg)
		return
	}
	if err := s.alert(title, msg); err != nil {
		log.Warn("Failed to show alert", "err", err)
	}
}

func (s *Shell) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap, seq := s.snapshot()
	s.mu.Unlock()

	s.render(snap, seq)
}

// snapshot must be called with mu held.
func (s *Shell) snapshot() (State, uint64) {
	s.seq++
	return s.state, s.seq
}

// render skips snapshots older than one already shown.
func (s *Shell) render(st State, seq uint64) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	if seq <= s.rendered {
		return
	}
	s.rendered = seq

	for _, v := range s.views {
		v.Render(st)
	}
}

// session adapts capture callbacks for one listening session.
type session struct {
	shell *Shell
	id    uint64
	ctx   context.Context
}

func (e *session) OnStart() {
	if e.shell.cue == nil {
		return
	}
	if err := e.shell.cue.Play(); err != nil {
		log.Warn("Failed to play cue", "err", err)
	}
}

func (e *session) OnResult(utterance string) {
	s := e.shell

	s.mu.Lock()
	if e.id != s.session {
		s.mu.Unlock()
		return
	}
	s.state.Transcript = utterance
	snap, seq := s.snapshot()
	s.mu.Unlock()
	s.render(snap, seq)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.interpret(e.ctx, e.id, utterance)
	}()
}

func (e *session) OnError(err error) {
	log.Warn("Listening session failed", "session", e.id, "err", err)
}

func (e *session) OnEnd() {
	e.shell.update(func(st *State) { st.Listening = false })
}
