// Package notify delivers the one-shot payment_received push to waiting
// browser connections.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventPaymentReceived is the server-to-client event fired once a payment
// confirms. It carries no payload.
const EventPaymentReceived = "payment_received"

// writeTimeout bounds a single websocket write so one stuck connection cannot
// stall the hub.
const writeTimeout = 5 * time.Second

type event struct {
	Type string `json:"type"`
}

// paymentReceivedFrame is the serialized one-shot event; it has no per-call
// payload so it is built once.
var paymentReceivedFrame = func() []byte {
	payload, err := json.Marshal(event{Type: EventPaymentReceived})
	if err != nil {
		panic(err)
	}
	return payload
}()

// Client is one live websocket connection tracked by the hub.
type Client struct {
	// ID is the connection id waiters register under.
	ID string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// close stops the write pump exactly once. The send channel is never closed;
// a Notify racing with teardown just drops its payload.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Hub tracks live connections by id and pushes fire-and-forget events to
// them. A notification for a connection that is gone or wedged is silently
// dropped; the entitlement is already recorded, so the client sees the
// content on its next request either way.
type Hub struct {
	log     zerolog.Logger
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:     log.With().Str("component", "notify").Logger(),
		clients: make(map[string]*Client),
	}
}

// Register adds conn to the hub under a fresh connection id and starts its
// write pump. The caller owns the read side.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 4),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	go h.writePump(c)

	h.log.Debug().Str("conn_id", c.ID).Msg("connection registered")
	return c
}

// Unregister drops the connection from the hub and closes it. Only the
// transport-level entry is cleaned up; any session-registry waiter for this
// connection stays behind.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if ok {
		c.close()
		h.log.Debug().Str("conn_id", id).Msg("connection unregistered")
	}
}

// Notify sends exactly one payment_received event to connID. Fire-and-forget:
// an unknown id, a full send buffer or a dead connection all end as a no-op.
func (h *Hub) Notify(connID string) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()

	if !ok {
		h.log.Debug().Str("conn_id", connID).Msg("notify target already gone")
		return
	}

	select {
	case c.send <- paymentReceivedFrame:
	default:
		h.log.Warn().Str("conn_id", connID).Msg("notify dropped, send buffer full")
	}
}

// Len reports the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) writePump(c *Client) {
	defer c.conn.Close()

	for {
		select {
		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				h.log.Debug().Err(err).Str("conn_id", c.ID).Msg("write deadline failed")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.log.Debug().Err(err).Str("conn_id", c.ID).Msg("push failed, connection gone")
				return
			}
		case <-c.done:
			return
		}
	}
}
