package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrResolveFailed means the node could not resolve a message id.
var ErrResolveFailed = errors.New("ledger: message resolve failed")

// Handler receives one raw event frame from the subscription stream.
type Handler func(raw []byte)

// NodeClient talks to a ledger node: a websocket subscription for new output
// events and a REST endpoint to resolve message ids into full messages.
type NodeClient struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	log     zerolog.Logger
}

// NodeOption customizes the NodeClient.
type NodeOption func(*NodeClient)

// WithNodeHTTPClient overrides the HTTP client used for message resolution.
func WithNodeHTTPClient(h *http.Client) NodeOption {
	return func(c *NodeClient) {
		c.http = h
	}
}

// NewNodeClient creates a client for the node at baseURL.
func NewNodeClient(baseURL string, log zerolog.Logger, opts ...NodeOption) *NodeClient {
	c := &NodeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		dialer:  websocket.DefaultDialer,
		log:     log.With().Str("component", "node").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OutputsTopic is the subscription topic for new outputs at address.
func OutputsTopic(address string) string {
	return fmt.Sprintf("addresses/%s/outputs", address)
}

// Subscribe opens the node's event stream for topic and delivers each raw
// frame to handler on the subscription goroutine. It blocks until the
// connection drops or ctx is cancelled; reconnecting is the caller's
// business.
func (c *NodeClient) Subscribe(ctx context.Context, topic string, handler Handler) error {
	wsURL, err := c.eventsURL(topic)
	if err != nil {
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("ledger: dialing event stream: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Unblock the read loop when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	c.log.Info().Str("topic", topic).Msg("subscribed to output events")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("ledger: event stream closed: %w", err)
		}
		handler(raw)
	}
}

func (c *NodeClient) eventsURL(topic string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("ledger: invalid node URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/events"
	u.RawQuery = url.Values{"topic": {topic}}.Encode()
	return u.String(), nil
}

// ResolveMessage fetches the full message for a message id.
func (c *NodeClient) ResolveMessage(ctx context.Context, id string) (*Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/messages/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrResolveFailed, resp.StatusCode)
	}

	var msg Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: decoding message: %v", ErrResolveFailed, err)
	}
	return &msg, nil
}
