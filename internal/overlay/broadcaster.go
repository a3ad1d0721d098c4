// Package overlay pushes live pipeline status to UI clients over websocket.
// A small always-on-top desktop widget (or a browser tab) connects and shows
// whether the assistant is listening, transcribing, executing, or monitoring.
package overlay

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/observability"
	"github.com/supersurf/supersurf/internal/pipeline"
)

type statusMessage struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Broadcaster implements pipeline.StatusSink over websocket fan-out. New
// clients immediately receive the latest status.
type Broadcaster struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    *statusMessage

	// gorilla connections allow one concurrent writer; all WriteJSON calls
	// go through writeMu.
	writeMu sync.Mutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The overlay is a local loopback client; no cross-origin surface.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     observability.WithComponent("overlay"),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the client
// goes away.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	b.mu.Lock()
	b.clients[conn] = struct{}{}
	last := b.last
	b.mu.Unlock()

	b.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("overlay client connected")

	if last != nil {
		if err := b.write(conn, last); err != nil {
			b.drop(conn)
			return
		}
	}

	// Drain the connection; the overlay never sends anything meaningful,
	// but reading is what surfaces the close.
	go func() {
		defer b.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// UpdateStatus broadcasts the status to all connected clients. Clients whose
// writes fail are dropped.
func (b *Broadcaster) UpdateStatus(status pipeline.Status, detail string) {
	msg := &statusMessage{
		Status:    string(status),
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	b.mu.Lock()
	b.last = msg
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for c := range b.clients {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		if err := b.write(c, msg); err != nil {
			b.drop(c)
		}
	}
}

func (b *Broadcaster) write(conn *websocket.Conn, msg *statusMessage) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// Close disconnects all clients.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for c := range b.clients {
		conns = append(conns, c)
	}
	b.clients = make(map[*websocket.Conn]struct{})
	b.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (b *Broadcaster) drop(conn *websocket.Conn) {
	b.mu.Lock()
	_, ok := b.clients[conn]
	delete(b.clients, conn)
	b.mu.Unlock()
	if ok {
		_ = conn.Close()
		b.log.Debug().Msg("overlay client disconnected")
	}
}
