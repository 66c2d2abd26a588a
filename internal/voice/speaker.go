package voice

import (
	"errors"
	"fmt"
	log "log/slog"
	"strings"
)

const DefaultLang = "en-US"

var ErrUnsupported = errors.New("speech synthesis not supported")

// Utterance is one request to the platform synthesizer. Voice is nil when
// the platform should pick by Lang.
type Utterance struct {
	Text   string
	Voice  *Voice
	Lang   string
	Rate   float64
	Pitch  float64
	Volume float64
}

type Synthesizer interface {
	Cancel()
	Resume()
	Speak(u Utterance) error
}

type Speaker struct {
	synth   Synthesizer
	catalog *Catalog
}

func NewSpeaker(synth Synthesizer, catalog *Catalog) *Speaker {
	return &Speaker{
		synth:   synth,
		catalog: catalog,
	}
}

func (s *Speaker) Supported() bool {
	return s.synth != nil
}

// Speak interrupts whatever is playing and starts text. It does not wait
// for playback to finish.
func (s *Speaker) Speak(text string) error {
	if s.synth == nil {
		return ErrUnsupported
	}

	s.synth.Cancel()

	u := Utterance{
		Text:   text,
		Lang:   DefaultLang,
		Rate:   1,
		Pitch:  1,
		Volume: 1,
	}

	var voices []Voice
	if s.catalog != nil {
		voices = s.catalog.Voices()
	}
	if v, ok := Select(voices); ok {
		u.Voice = &v
		u.Lang = v.Lang
	}

	log.Debug("Speaking", "text", text, "lang", u.Lang)

	s.synth.Resume()
	if err := s.synth.Speak(u); err != nil {
		return fmt.Errorf("speak: %w", err)
	}

	return nil
}

// Select prefers the first English voice, then the first voice at all.
func Select(voices []Voice) (Voice, bool) {
	for _, v := range voices {
		if strings.HasPrefix(v.Lang, "en") {
			return v, true
		}
	}
	if len(voices) > 0 {
		return voices[0], true
	}
	return Voice{}, false
}
