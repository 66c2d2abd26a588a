package bus

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"friday/internal/shell"
)

const (
	KindState     = "state"
	KindUtterance = "utterance"

	shardName = "friday"

	writeTimeout = 5 * time.Second
)

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Bus links the assistant to a websocket hub: state changes are published
// and typed utterances may arrive from remote views.
type Bus struct {
	url          string
	reconnect    time.Duration
	writeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

func Dial(ctx context.Context, url string, reconnect time.Duration) (*Bus, error) {
	if reconnect <= 0 {
		reconnect = 2 * time.Second
	}

	b := &Bus{url: url, reconnect: reconnect, writeTimeout: writeTimeout}
	if err := b.dial(ctx); err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", url)
	return b, nil
}

func (b *Bus) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", b.url, err)
	}

	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = conn
	b.mu.Unlock()
	return nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.Close()
}

// Render publishes the state; it makes Bus a shell.View.
func (b *Bus) Render(st shell.State) {
	data, err := json.Marshal(st)
	if err != nil {
		log.Error("Failed to encode state", "err", err)
		return
	}

	if err := b.Write(&Message{Kind: KindState, Content: string(data)}); err != nil {
		log.Warn("Failed to publish state", "err", err)
	}
}

func (b *Bus) Write(m *Message) error {
	m.From = shardName

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// A hub that stops reading must not stall the shell's render path.
	if err := b.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout)); err != nil {
		return err
	}
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		// the conn is unusable after a failed write; closing it lets Run redial
		b.conn.Close()
		return err
	}
	return nil
}

func (b *Bus) Read() (*Message, error) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		log.Warn("Failed to decode bus message", "msg", string(data), "err", err)
		return &Message{}, nil
	}
	return &m, nil
}

// Run reads until ctx is done, passing utterances addressed to us to
// handle. A broken connection is redialed.
func (b *Bus) Run(ctx context.Context, handle func(text string)) error {
	go func() {
		<-ctx.Done()
		b.Close()
	}()

	for {
		m, err := b.Read()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("Bus connection lost", "err", err)
			}
			log.Warn("Reconnecting to bus", "url", b.url)
			if err := b.redial(ctx); err != nil {
				return err
			}
			log.Info("Reconnected to bus", "url", b.url)
			continue
		}

		if m.To != "" && m.To != shardName {
			continue
		}
		if m.Kind != KindUtterance {
			log.Debug("Ignoring bus message", "kind", m.Kind, "from", m.From)
			continue
		}

		handle(m.Content)
	}
}

func (b *Bus) redial(ctx context.Context) error {
	for {
		if err := b.dial(ctx); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.reconnect):
		}
	}
}
