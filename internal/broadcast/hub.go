// Package broadcast fans engine events out to WebSocket subscribers.
// This is the "event sink" collaborator spec §6 describes: the core
// never publishes anything itself, so the ingress layer builds events
// from its return values and hands them here. Grounded on
// VictorVVedtion-perp-dex/api/websocket/client.go's hub/client split,
// trimmed to the one-topic broadcast this spec needs (no per-channel
// subscriptions: market-data depth feeds beyond best-bid/best-ask are a
// Non-goal, so there is nothing to subscribe to besides the full event
// stream), and to original_source/api/ws.rs's broadcast-channel shape.
package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/exchangecore/matchkernel/internal/events"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected subscribers and fans events out to all of them.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[*subscriber]struct{})}
}

// Publish serialises event and fans it out to every connected
// subscriber. When a subscriber's send buffer is full the message is
// dropped for that subscriber (which stays connected) rather than
// allowed to block the publisher — the core's own operations are
// synchronous and must never wait on network I/O.
func (h *Hub) Publish(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("broadcast: marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		select {
		case sub.send <- payload:
		default:
			log.Warn().Msg("broadcast: subscriber send buffer full, dropping message")
		}
	}
}

// ServeHTTP upgrades an HTTP request to a WebSocket connection and
// registers the caller as a subscriber until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("broadcast: upgrade failed")
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register(sub)
	defer h.unregister(sub)

	go h.readPump(sub)
	h.writePump(sub)
}

func (h *Hub) register(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
		sub.conn.Close()
	}
}

// readPump discards inbound traffic and unregisters the subscriber once
// a read fails (for example when the peer closes the connection); no
// read deadline is set. Subscribers are expected to be passive consumers.
func (h *Hub) readPump(sub *subscriber) {
	defer h.unregister(sub)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	for payload := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// SubscriberCount returns the number of currently connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
