package assistant

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	"friday/internal/wiki"
)

type Kind int

const (
	SiteOpened Kind = iota
	SiteUnknown
	FactAnswered
	PersonAnswered
	PersonUnknown
	Fallback
)

func (k Kind) String() string {
	switch k {
	case SiteOpened:
		return "site_opened"
	case SiteUnknown:
		return "site_unknown"
	case FactAnswered:
		return "fact_answered"
	case PersonAnswered:
		return "person_answered"
	case PersonUnknown:
		return "person_unknown"
	case Fallback:
		return "fallback"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const PersonFallback = "I couldn't find detailed information"

// Outcome is the decision for one utterance. URL is a site to open,
// Search a query for the supplementary web search; either may be empty.
type Outcome struct {
	Kind   Kind
	Site   string
	URL    string
	Speech string
	Info   string
	Search string
}

type PersonLookup interface {
	Lookup(ctx context.Context, person string) (wiki.Summary, bool)
}

type Interpreter struct {
	catalog Catalog
	wake    string
	lookup  PersonLookup
}

func NewInterpreter(catalog Catalog, lookup PersonLookup) *Interpreter {
	cat := Catalog{
		WakeWord: strings.ToLower(strings.TrimSpace(catalog.WakeWord)),
		Sites:    make([]Site, len(catalog.Sites)),
		Facts:    make([]Fact, len(catalog.Facts)),
		People:   make([]string, len(catalog.People)),
	}
	for i, s := range catalog.Sites {
		cat.Sites[i] = Site{Name: strings.ToLower(s.Name), URL: s.URL}
	}
	for i, f := range catalog.Facts {
		cat.Facts[i] = Fact{Phrase: strings.ToLower(f.Phrase), Response: f.Response}
	}
	for i, p := range catalog.People {
		cat.People[i] = strings.ToLower(p)
	}

	in := &Interpreter{
		catalog: cat,
		lookup:  lookup,
	}
	if cat.WakeWord != "" {
		in.wake = cat.WakeWord + " "
	}

	return in
}

// Interpret decides the response to one utterance. It always produces an
// outcome; the person lookup is the only call that may block.
func (in *Interpreter) Interpret(ctx context.Context, utterance string) Outcome {
	command := strings.ToLower(strings.TrimSpace(utterance))

	// Intent matching uses the stripped text, fallback and searches use command.
	text := command
	if in.wake != "" && strings.HasPrefix(text, in.wake) {
		text = strings.TrimPrefix(text, in.wake)
	}

	if rest, ok := strings.CutPrefix(text, "open "); ok {
		return in.openSite(rest)
	}

	for _, f := range in.catalog.Facts {
		if strings.Contains(text, f.Phrase) {
			return Outcome{
				Kind:   FactAnswered,
				Speech: f.Response,
				Info:   f.Response,
			}
		}
	}

	if person, ok := in.matchPerson(text); ok {
		return in.answerPerson(ctx, person, command)
	}

	msg := "Here is the information about " + command
	return Outcome{
		Kind:   Fallback,
		Speech: msg,
		Info:   msg,
		Search: command,
	}
}

func (in *Interpreter) openSite(rest string) Outcome {
	site, _, _ := strings.Cut(rest, "open ")
	site = strings.TrimSpace(site)

	url, ok := in.catalog.siteURL(site)
	if !ok {
		return Outcome{
			Kind:   SiteUnknown,
			Site:   site,
			Speech: "I don't know how to open " + site,
			Info:   "Could not find the website for " + site,
		}
	}

	return Outcome{
		Kind:   SiteOpened,
		Site:   site,
		URL:    url,
		Speech: "Opening " + site,
		Info:   "Opened " + site,
	}
}

func (in *Interpreter) matchPerson(text string) (string, bool) {
	for _, p := range in.catalog.People {
		if strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}

func (in *Interpreter) answerPerson(ctx context.Context, person, command string) Outcome {
	var (
		s  wiki.Summary
		ok bool
	)
	if in.lookup != nil {
		s, ok = in.lookup.Lookup(ctx, person)
	}

	if !ok {
		log.Debug("No summary for person", "person", person)
		return Outcome{
			Kind:   PersonUnknown,
			Speech: PersonFallback,
			Info:   PersonFallback,
			Search: command,
		}
	}

	msg := fmt.Sprintf("%s, %s", s.Name, s.Extract)
	return Outcome{
		Kind:   PersonAnswered,
		Speech: msg,
		Info:   msg,
		Search: command,
	}
}
