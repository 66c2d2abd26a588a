package assistant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Site struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Fact struct {
	Phrase   string `yaml:"phrase"`
	Response string `yaml:"response"`
}

// Catalog holds the static tables the interpreter matches against.
// Slice order is match order.
type Catalog struct {
	WakeWord string   `yaml:"wake_word"`
	Sites    []Site   `yaml:"sites"`
	Facts    []Fact   `yaml:"facts"`
	People   []string `yaml:"people"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		WakeWord: "friday",
		Sites: []Site{
			{Name: "youtube", URL: "https://www.youtube.com"},
			{Name: "facebook", URL: "https://www.facebook.com"},
			{Name: "google", URL: "https://www.google.com"},
			{Name: "twitter", URL: "https://www.twitter.com"},
			{Name: "instagram", URL: "https://www.instagram.com"},
		},
		Facts: []Fact{
			{Phrase: "what is your name", Response: "Hello Sir I'm Friday, your voice assistant created by Prashant Yadav"},
			{Phrase: "hi friday", Response: "Hello sir, what are you looking for today"},
			{Phrase: "what is your age", Response: "Hello Sir I'm Friday, I'm 5 months old"},
			{Phrase: "who is your creator", Response: "Hello Sir Mr. Yadav is my creator"},
		},
		People: []string{
			"bill gates",
			"mark zuckerberg",
			"elon musk",
			"steve jobs",
			"warren buffet",
			"barack obama",
			"jeff bezos",
			"sundar pichai",
			"mukesh ambani",
			"virat kohli",
			"sachin tendulkar",
			"brian lara",
		},
	}
}

// LoadCatalog reads a YAML catalog. Sections present in the file replace
// the defaults wholesale; absent sections keep them.
func LoadCatalog(path string) (Catalog, error) {
	cat := DefaultCatalog()

	data, err := os.ReadFile(path)
	if err != nil {
		return cat, fmt.Errorf("read catalog: %w", err)
	}

	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cat, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if file.WakeWord != "" {
		cat.WakeWord = file.WakeWord
	}
	if file.Sites != nil {
		cat.Sites = file.Sites
	}
	if file.Facts != nil {
		cat.Facts = file.Facts
	}
	if file.People != nil {
		cat.People = file.People
	}

	if err := cat.validate(); err != nil {
		return cat, fmt.Errorf("catalog %s: %w", path, err)
	}

	return cat, nil
}

func (c Catalog) validate() error {
	for i, s := range c.Sites {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("sites[%d]: name and url are required", i)
		}
	}
	for i, f := range c.Facts {
		if f.Phrase == "" || f.Response == "" {
			return fmt.Errorf("facts[%d]: phrase and response are required", i)
		}
	}
	for i, p := range c.People {
		if p == "" {
			return fmt.Errorf("people[%d]: empty name", i)
		}
	}
	return nil
}

func (c Catalog) siteURL(name string) (string, bool) {
	for _, s := range c.Sites {
		if s.Name == name {
			return s.URL, true
		}
	}
	return "", false
}
