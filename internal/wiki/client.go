package wiki

import (
	"context"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultEndpoint  = "https://en.wikipedia.org/api/rest_v1/page/summary"
	DefaultUserAgent = "friday-voice-assistant/1.0"

	maxBodySize = 1 << 20
)

// Summary is the first sentence of a person's encyclopedia entry.
type Summary struct {
	Name    string
	Extract string
}

type Config struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

type Client struct {
	http      *http.Client
	endpoint  string
	userAgent string
	timeout   time.Duration
}

func NewClient(httpClient *http.Client, cfg Config) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &Client{
		http:      httpClient,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}
}

// Lookup fetches the summary for person. Any failure is reported as absence.
func (c *Client) Lookup(ctx context.Context, person string) (Summary, bool) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.endpoint + "/" + url.PathEscape(person)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Warn("Failed to build lookup request", "person", person, "err", err)
		return Summary{}, false
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("Lookup failed", "person", person, "err", err)
		return Summary{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("Lookup returned non-2xx", "person", person, "status", resp.StatusCode)
		return Summary{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		log.Warn("Failed to read lookup body", "person", person, "err", err)
		return Summary{}, false
	}

	s, ok := parseSummary(body)
	if !ok {
		log.Warn("Lookup response missing title or extract", "person", person)
		return Summary{}, false
	}

	log.Debug("Looked up person", "person", person, "name", s.Name)
	return s, true
}

func parseSummary(body []byte) (Summary, bool) {
	if !gjson.ValidBytes(body) {
		return Summary{}, false
	}

	res := gjson.GetManyBytes(body, "title", "extract")
	title, extract := res[0], res[1]
	if title.Type != gjson.String || extract.Type != gjson.String {
		return Summary{}, false
	}
	if title.Str == "" || extract.Str == "" {
		return Summary{}, false
	}

	return Summary{
		Name:    title.Str,
		Extract: FirstSentence(extract.Str),
	}, true
}

// FirstSentence returns the text up to the first literal period.
func FirstSentence(s string) string {
	before, _, _ := strings.Cut(s, ".")
	return before
}
