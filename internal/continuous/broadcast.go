package continuous

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Broadcaster fans out every L2 signal to subscribed WebSocket clients at
// GET /api/scanner/stream, per spec §4.14. Grounded on the teacher's
// internal/data/ws venue-tick-consumer pattern and
// internal/infrastructure/websocket/normalizers.go's subscriber fan-out,
// repurposed from venue-tick-ingest to signal-broadcast-to-API-subscribers.
type Broadcaster struct {
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	out  chan SignalEntry
}

// NewBroadcaster builds a signal broadcaster. Origin checking is
// delegated to the HTTP server's CORS middleware; the upgrader itself
// accepts any origin the router already let through.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: func(r *http.Request) bool { return true }},
		subs:     make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades the connection and streams signal JSON objects as
// newline-delimited messages until the client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	sub := &subscriber{conn: conn, out: make(chan SignalEntry, 64)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
		conn.Close()
	}()

	for entry := range sub.out {
		if err := conn.WriteJSON(entry); err != nil {
			return
		}
	}
}

// Publish fans entry out to every subscriber. A subscriber whose outbound
// channel is full has its oldest pending message dropped rather than
// blocking the L2 loop -- the same overwrite-oldest discipline as the
// ring buffers, per spec §9's "generator-style streaming" design note.
func (b *Broadcaster) Publish(entry SignalEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.out <- entry:
		default:
			select {
			case <-sub.out:
			default:
			}
			select {
			case sub.out <- entry:
			default:
			}
		}
	}
}
