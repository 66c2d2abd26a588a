package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
friday_init(void)
{
	return espeak_Initialize(AUDIO_OUTPUT_PLAYBACK, 500, NULL, 0);
}

static int
friday_voice_count(const espeak_VOICE **voices)
{
	int n = 0;
	if (!voices)
	{ return 0; }
	while (voices[n])
	{ n++; }
	return n;
}

static const char *
friday_voice_name(const espeak_VOICE **voices, int i)
{
	return voices[i]->name;
}

// languages is a list of (priority byte, language string) pairs,
// the first one is the voice's main language.
static const char *
friday_voice_lang(const espeak_VOICE **voices, int i)
{
	if (!voices[i]->languages || !voices[i]->languages[0])
	{ return ""; }
	return voices[i]->languages + 1;
}

static int
friday_set_lang(const char *lang)
{
	espeak_VOICE spec;
	memset(&spec, 0, sizeof(spec));
	spec.languages = lang;
	return espeak_SetVoiceByProperties(&spec);
}

static int
friday_say(const char *text)
{
	return espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
}
*/
import "C"

import (
	"errors"
	"fmt"
	log "log/slog"
	"math"
	"sync"
	"unsafe"

	"friday/internal/voice"
)

const (
	baseRate   = 175
	basePitch  = 50
	baseVolume = 100
)

// Engine drives espeak-ng in asynchronous playback mode so a running
// utterance can be cancelled by the next one.
type Engine struct {
	mu        sync.Mutex
	listeners []func()
	closed    bool
}

func NewEngine() (*Engine, error) {
	if rc := C.friday_init(); rc < 0 {
		return nil, fmt.Errorf("espeak_Initialize failed: %d", int(rc))
	}

	log.Debug("espeak-ng initialized")
	return &Engine{}, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if rc := C.espeak_Terminate(); rc != C.EE_OK {
		return fmt.Errorf("espeak_Terminate failed: %d", int(rc))
	}
	return nil
}

func (e *Engine) Voices() []voice.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	list := C.espeak_ListVoices(nil)
	n := int(C.friday_voice_count(list))

	out := make([]voice.Voice, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, voice.Voice{
			Name: C.GoString(C.friday_voice_name(list, C.int(i))),
			Lang: C.GoString(C.friday_voice_lang(list, C.int(i))),
		})
	}

	return out
}

func (e *Engine) OnVoicesChanged(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Rescan tells voice listeners that the installed voices may have changed.
func (e *Engine) Rescan() {
	e.mu.Lock()
	listeners := append([]func(){}, e.listeners...)
	e.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	C.espeak_Cancel()
}

// Resume is a no-op: espeak-ng playback never pauses on its own.
func (e *Engine) Resume() {}

func (e *Engine) Speak(u voice.Utterance) error {
	if u.Text == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errors.New("espeak engine closed")
	}

	if err := e.selectVoice(u); err != nil {
		return err
	}

	C.espeak_SetParameter(C.espeakRATE, C.int(scale(baseRate, u.Rate)), 0)
	C.espeak_SetParameter(C.espeakPITCH, C.int(scale(basePitch, u.Pitch)), 0)
	C.espeak_SetParameter(C.espeakVOLUME, C.int(scale(baseVolume, u.Volume)), 0)

	ctext := C.CString(u.Text)
	defer C.free(unsafe.Pointer(ctext))

	if rc := C.friday_say(ctext); rc != C.EE_OK {
		return fmt.Errorf("espeak_Synth failed: %d", int(rc))
	}

	return nil
}

func (e *Engine) selectVoice(u voice.Utterance) error {
	if u.Voice != nil {
		cname := C.CString(u.Voice.Name)
		defer C.free(unsafe.Pointer(cname))

		if rc := C.espeak_SetVoiceByName(cname); rc == C.EE_OK {
			return nil
		}
		log.Warn("Voice not available, falling back to language", "voice", u.Voice.Name, "lang", u.Lang)
	}

	clang := C.CString(u.Lang)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.friday_set_lang(clang); rc != C.EE_OK {
		return fmt.Errorf("espeak voice for %q: %d", u.Lang, int(rc))
	}
	return nil
}

func scale(base int, factor float64) int {
	if factor <= 0 {
		factor = 1
	}
	return int(math.Round(float64(base) * factor))
}
