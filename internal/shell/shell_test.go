package shell

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friday/internal/assistant"
	"friday/internal/capture"
	"friday/internal/voice"
	"friday/internal/wiki"
)

type recognizerFunc func(ctx context.Context, language string) (string, error)

func (f recognizerFunc) Recognize(ctx context.Context, language string) (string, error) {
	return f(ctx, language)
}

type fakeSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	err     error
	onSpeak func(text string) // runs once, after recording, unlocked
}

func (f *fakeSpeaker) Speak(text string) error {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return f.err
	}
	f.spoken = append(f.spoken, text)
	hook := f.onSpeak
	f.onSpeak = nil
	f.mu.Unlock()

	if hook != nil {
		hook(text)
	}
	return nil
}

type fakeNavigator struct {
	mu       sync.Mutex
	opened   []string
	searched []string
}

func (f *fakeNavigator) Open(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, url)
	return nil
}

func (f *fakeNavigator) Search(query string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, query)
	return nil
}

type recordingView struct {
	mu     sync.Mutex
	states []State
}

func (v *recordingView) Render(st State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.states = append(v.states, st)
}

func (v *recordingView) last() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.states[len(v.states)-1]
}

// gatedLookup blocks lookups for one person until released.
type gatedLookup struct {
	gate    chan struct{}
	blocked string
	started chan struct{}
	summary wiki.Summary
}

func (g *gatedLookup) Lookup(_ context.Context, person string) (wiki.Summary, bool) {
	if person == g.blocked {
		close(g.started)
		<-g.gate
	}
	return g.summary, true
}

type fixture struct {
	shell   *Shell
	capture *capture.Adapter
	speaker *fakeSpeaker
	nav     *fakeNavigator
	view    *recordingView
	alerts  []string
}

func newFixture(t *testing.T, rec capture.Recognizer, lookup assistant.PersonLookup) *fixture {
	t.Helper()

	f := &fixture{
		capture: capture.New(rec, capture.Config{}),
		speaker: &fakeSpeaker{},
		nav:     &fakeNavigator{},
		view:    &recordingView{},
	}
	f.shell = New(Config{
		Capture:     f.capture,
		Interpreter: assistant.NewInterpreter(assistant.DefaultCatalog(), lookup),
		Speaker:     f.speaker,
		Navigator:   f.nav,
		Alert: func(_, msg string) error {
			f.alerts = append(f.alerts, msg)
			return nil
		},
		Views: []View{f.view},
	})

	return f
}

func (f *fixture) settle() {
	f.capture.Wait()
	f.shell.Wait()
}

func TestListenOpensSite(t *testing.T) {
	f := newFixture(t, recognizerFunc(func(context.Context, string) (string, error) {
		return "Friday open YouTube", nil
	}), nil)

	require.NoError(t, f.shell.Listen(context.Background()))
	f.settle()

	st := f.shell.State()
	assert.Equal(t, State{
		Transcript: "friday open youtube",
		Listening:  false,
		Info:       "Opened youtube",
		Supported:  true,
	}, st)
	assert.Equal(t, []string{"Opening youtube"}, f.speaker.spoken)
	assert.Equal(t, []string{"https://www.youtube.com"}, f.nav.opened)
	assert.Empty(t, f.nav.searched)

	assert.True(t, f.view.states[0].Listening)
	assert.Equal(t, st, f.view.last())
}

func TestListenPersonTriggersSearch(t *testing.T) {
	lookup := &gatedLookup{summary: wiki.Summary{Name: "Elon Musk", Extract: "Elon Musk is a businessman"}}
	f := newFixture(t, recognizerFunc(func(context.Context, string) (string, error) {
		return "who is elon musk", nil
	}), lookup)

	require.NoError(t, f.shell.Listen(context.Background()))
	f.settle()

	assert.Equal(t, "Elon Musk, Elon Musk is a businessman", f.shell.State().Info)
	assert.Equal(t, []string{"Elon Musk, Elon Musk is a businessman"}, f.speaker.spoken)
	assert.Equal(t, []string{"who is elon musk"}, f.nav.searched)
}

func TestListenUnsupported(t *testing.T) {
	f := newFixture(t, nil, nil)

	assert.False(t, f.shell.State().Supported)
	assert.ErrorIs(t, f.shell.Listen(context.Background()), capture.ErrUnsupported)
	assert.Equal(t, []string{RecognitionUnsupported}, f.alerts)
	assert.False(t, f.shell.State().Listening)
}

func TestListenWhileListening(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, recognizerFunc(func(context.Context, string) (string, error) {
		<-release
		return "hi friday", nil
	}), nil)

	require.NoError(t, f.shell.Listen(context.Background()))
	assert.True(t, f.shell.State().Listening)
	assert.ErrorIs(t, f.shell.Listen(context.Background()), capture.ErrBusy)

	close(release)
	f.settle()

	assert.False(t, f.shell.State().Listening)
	assert.Equal(t, "Hello sir, what are you looking for today", f.shell.State().Info)
}

func TestListenRecognitionError(t *testing.T) {
	f := newFixture(t, recognizerFunc(func(context.Context, string) (string, error) {
		return "", errors.New("network")
	}), nil)

	require.NoError(t, f.shell.Listen(context.Background()))
	f.settle()

	st := f.shell.State()
	assert.False(t, st.Listening)
	assert.Empty(t, st.Transcript)
	assert.Empty(t, st.Info)
	assert.Empty(t, f.speaker.spoken)
	assert.Empty(t, f.alerts)
}

func TestStaleLookupIsDiscarded(t *testing.T) {
	lookup := &gatedLookup{
		gate:    make(chan struct{}),
		blocked: "elon musk",
		started: make(chan struct{}),
		summary: wiki.Summary{Name: "Elon Musk", Extract: "Elon Musk is a businessman"},
	}
	f := newFixture(t, recognizerFunc(func(context.Context, string) (string, error) {
		return "who is elon musk", nil
	}), lookup)

	require.NoError(t, f.shell.Listen(context.Background()))
	<-lookup.started
	f.capture.Wait()

	st, err := f.shell.Ask(context.Background(), "hi friday")
	require.NoError(t, err)
	assert.Equal(t, "Hello sir, what are you looking for today", st.Info)

	close(lookup.gate)
	f.shell.Wait()

	st = f.shell.State()
	assert.Equal(t, "hi friday", st.Transcript)
	assert.Equal(t, "Hello sir, what are you looking for today", st.Info)
	assert.Equal(t, []string{"Hello sir, what are you looking for today"}, f.speaker.spoken)
	assert.Empty(t, f.nav.searched)
}

func TestSupersededOutcomeSkipsNavigation(t *testing.T) {
	tests := []struct {
		name    string
		command string
		spoken  string
	}{
		{name: "site", command: "open youtube", spoken: "Opening youtube"},
		{name: "person", command: "who is elon musk", spoken: "Elon Musk, Elon Musk is a businessman"},
		{name: "fallback", command: "weather today", spoken: "Here is the information about weather today"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lookup := &gatedLookup{summary: wiki.Summary{Name: "Elon Musk", Extract: "Elon Musk is a businessman"}}
			f := newFixture(t, nil, lookup)

			// a newer utterance arrives while the first one is being spoken
			f.speaker.onSpeak = func(string) {
				_, err := f.shell.Ask(context.Background(), "hi friday")
				assert.NoError(t, err)
			}

			_, err := f.shell.Ask(context.Background(), tc.command)
			require.NoError(t, err)
			f.shell.Wait()

			assert.Equal(t, []string{tc.spoken, "Hello sir, what are you looking for today"}, f.speaker.spoken)
			assert.Empty(t, f.nav.opened)
			assert.Empty(t, f.nav.searched)

			st := f.shell.State()
			assert.Equal(t, "hi friday", st.Transcript)
			assert.Equal(t, "Hello sir, what are you looking for today", st.Info)
			assert.Equal(t, st, f.view.last())
		})
	}
}

func TestListenAndAskConcurrently(t *testing.T) {
	f := newFixture(t, recognizerFunc(func(context.Context, string) (string, error) {
		return "open github", nil
	}), nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			err := f.shell.Listen(context.Background())
			if err != nil {
				assert.ErrorIs(t, err, capture.ErrBusy)
			}
		}()
		go func() {
			defer wg.Done()
			_, err := f.shell.Ask(context.Background(), "what is your age")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	f.settle()

	st := f.shell.State()
	assert.True(t, st.Supported)
	assert.False(t, st.Listening)
	assert.Equal(t, st, f.view.last())
}

func TestAskFallback(t *testing.T) {
	f := newFixture(t, nil, nil)

	st, err := f.shell.Ask(context.Background(), "  Friday Weather Today ")
	require.NoError(t, err)
	assert.Equal(t, "friday weather today", st.Transcript)
	assert.Equal(t, "Here is the information about friday weather today", st.Info)
	assert.Equal(t, []string{"friday weather today"}, f.nav.searched)

	_, err = f.shell.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyUtterance)
}

func TestSpeechUnsupportedAlerts(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.speaker.err = voice.ErrUnsupported

	st, err := f.shell.Ask(context.Background(), "what is your age")
	require.NoError(t, err)
	assert.Equal(t, "Hello Sir I'm Friday, I'm 5 months old", st.Info)
	assert.Equal(t, []string{SynthesisUnsupported}, f.alerts)
}

func TestAddViewRendersCurrentState(t *testing.T) {
	f := newFixture(t, nil, nil)
	_, err := f.shell.Ask(context.Background(), "hi friday")
	require.NoError(t, err)

	v := &recordingView{}
	f.shell.AddView(v)
	require.Len(t, v.states, 1)
	assert.Equal(t, "hi friday", v.states[0].Transcript)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	st := State{Transcript: "open youtube", Info: "Opened youtube", Supported: false}
	c.Render(st)
	c.Render(st)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Opened youtube"))
	assert.Contains(t, out, RecognitionUnsupported)
	assert.Contains(t, out, "Start Listening")

	st.Listening = true
	c.Render(st)
	assert.Contains(t, buf.String(), "Listening...")
}
