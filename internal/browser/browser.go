package browser

import (
	"fmt"
	log "log/slog"
	"net/url"

	"github.com/pkg/browser"
)

const SearchEndpoint = "https://www.google.com/search"

// Navigator opens pages in the desktop's default browser without waiting
// for them to load.
type Navigator struct {
	open func(string) error
}

func NewNavigator() *Navigator {
	return &Navigator{open: browser.OpenURL}
}

func (n *Navigator) Open(u string) error {
	log.Info("Opening", "url", u)
	if err := n.open(u); err != nil {
		return fmt.Errorf("open %s: %w", u, err)
	}
	return nil
}

func (n *Navigator) Search(query string) error {
	return n.Open(SearchURL(query))
}

func SearchURL(query string) string {
	return SearchEndpoint + "?q=" + url.QueryEscape(query)
}
