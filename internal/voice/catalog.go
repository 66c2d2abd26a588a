package voice

import (
	log "log/slog"
	"slices"
	"sync"
)

type Voice struct {
	Name string
	Lang string
}

// Lister enumerates the platform's synthesis voices. OnVoicesChanged
// registers a callback fired whenever the platform's list may have changed.
type Lister interface {
	Voices() []Voice
	OnVoicesChanged(func())
}

type Catalog struct {
	mu     sync.RWMutex
	lister Lister
	voices []Voice
}

// NewCatalog queries the platform once and then follows its change
// notifications. A nil lister yields a catalog that is always empty.
func NewCatalog(lister Lister) *Catalog {
	c := &Catalog{lister: lister}
	if lister == nil {
		return c
	}

	c.Refresh()
	lister.OnVoicesChanged(c.Refresh)

	return c
}

// Refresh re-queries the platform and replaces the list.
func (c *Catalog) Refresh() {
	if c.lister == nil {
		return
	}

	voices := slices.Clone(c.lister.Voices())

	c.mu.Lock()
	changed := !slices.Equal(c.voices, voices)
	c.voices = voices
	c.mu.Unlock()

	if changed {
		log.Debug("Voices loaded", "count", len(voices))
	}
}

func (c *Catalog) Voices() []Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.voices)
}
