// Package client subscribes to a roadsim server's live episode feed.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/roadsim/internal/core/observability/log"
)

// Event is one frame of the feed. Payload stays raw until Decode.
type Event struct {
	Type    string          `json:"type"`
	Episode string          `json:"episode"`
	Tick    uint64          `json:"tick"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s event has no payload", e.Type)
	}
	return json.Unmarshal(e.Payload, v)
}

// Handler is called from the read loop for every matching event.
type Handler func(Event)

type Config struct {
	// ServerURL is the http or ws address of the server; the /ws path is
	// appended when missing.
	ServerURL        string
	HandshakeTimeout time.Duration
	// BufferSize bounds Events(); frames are dropped when nobody reads.
	BufferSize   int
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ServerURL:        "ws://localhost:8080/ws",
		HandshakeTimeout: 10 * time.Second,
		BufferSize:       256,
		WriteTimeout:     5 * time.Second,
	}
}

// Client is a connected feed subscriber.
type Client struct {
	conn   *websocket.Conn
	config Config
	logger log.Log

	events   chan Event
	handlers map[string][]Handler
	mu       sync.RWMutex
	writeMu  sync.Mutex

	closed  atomic.Bool
	dropped atomic.Uint64
	done    chan struct{}
	err     error
}

// Dial connects and starts reading. The returned client must be closed.
func Dial(ctx context.Context, config Config, logger log.Log) (*Client, error) {
	endpoint, err := feedURL(config.ServerURL)
	if err != nil {
		return nil, err
	}
	if config.BufferSize <= 0 {
		return nil, fmt.Errorf("%w: buffer size must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	dialer := websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &Client{
		conn:     conn,
		config:   config,
		logger:   logger.With(log.String("component", "client")),
		events:   make(chan Event, config.BufferSize),
		handlers: make(map[string][]Handler),
		done:     make(chan struct{}),
	}
	c.logger.Info("connected", log.String("url", endpoint))
	go c.readLoop()
	return c, nil
}

// On registers h for events of type kind; "*" matches every type.
func (c *Client) On(kind string, h Handler) {
	c.mu.Lock()
	c.handlers[kind] = append(c.handlers[kind], h)
	c.mu.Unlock()
}

// Events delivers every frame. It is closed when the connection ends.
func (c *Client) Events() <-chan Event { return c.events }

// Done is closed when the read loop stops; Err then reports why.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Err() error {
	<-c.done
	return c.err
}

// Dropped counts frames discarded because Events was not drained.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// Restart asks the server to start a new episode.
func (c *Client) Restart() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, []byte("restart"))
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.config.WriteTimeout))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.err = err
				c.logger.Warn("feed closed", log.Error(err))
			}
			return
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev Event) {
	c.mu.RLock()
	handlers := append(append([]Handler(nil), c.handlers[ev.Type]...), c.handlers["*"]...)
	c.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}

	select {
	case c.events <- ev:
	default:
		c.dropped.Add(1)
	}
}

func feedURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty server url", ErrInvalidConfig)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.Join(ErrInvalidConfig, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}
	return u.String(), nil
}
