package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phamvanchien/social-web/cmd/models"
)

const (
	reconnectDelay = 5 * time.Second
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBuffer     = 256
)

// ErrNotConnected is returned by Emit while the channel has no live
// connection. Emits are never queued across reconnects.
var ErrNotConnected = errors.New("realtime channel not connected")

// Handler receives one decoded event payload. The payload is one of the
// pointer types in cmd/models (CommentCreatedEvent etc.).
type Handler func(payload any)

// Channel is the process-wide realtime connection: one websocket per
// session, multiplexing events for every open post. Engines subscribe by
// event name and filter on the IDs inside the payload; they never manage
// the connection lifecycle.
type Channel struct {
	url   string
	token func() string

	mu     sync.RWMutex
	subs   map[string]map[int]Handler
	nextID int
	send   chan []byte // nil while disconnected
}

func NewChannel(url string, token func() string) *Channel {
	if token == nil {
		token = func() string { return "" }
	}
	return &Channel{
		url:   url,
		token: token,
		subs:  make(map[string]map[int]Handler),
	}
}

// Subscribe registers a handler for one event name and returns its
// unsubscribe func. Handlers run on the read goroutine; keep them short.
func (c *Channel) Subscribe(event string, h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs[event] == nil {
		c.subs[event] = make(map[int]Handler)
	}
	c.nextID++
	id := c.nextID
	c.subs[event][id] = h

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[event], id)
	}
}

// Emit sends one intent frame, fire-and-forget. A full buffer or a
// disconnected channel drops the frame with ErrNotConnected; callers do
// not roll back optimistic state on that.
func (c *Channel) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(models.EventEnvelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	c.mu.RLock()
	send := c.send
	c.mu.RUnlock()

	if send == nil {
		return ErrNotConnected
	}
	select {
	case send <- frame:
		return nil
	default:
		return ErrNotConnected
	}
}

// Start connects and processes events until the context is cancelled,
// reconnecting on transient errors.
func (c *Channel) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.run(ctx); err != nil {
				log.Printf("realtime connection error, reconnecting: %v", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
				}
			}
		}
	}
}

func (c *Channel) run(ctx context.Context) error {
	header := http.Header{}
	if token := c.token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	send := make(chan []byte, sendBuffer)
	c.mu.Lock()
	c.send = send
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.send = nil
		c.mu.Unlock()
	}()

	writeDone := make(chan struct{})
	go c.writePump(conn, send, writeDone)
	defer close(writeDone)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("realtime read error: %v", err)
			}
			return err
		}

		event, payload, err := models.ParseEvent(message)
		if err != nil {
			log.Printf("dropping realtime frame: %v", err)
			continue
		}
		c.dispatch(event, payload)
	}
}

func (c *Channel) dispatch(event string, payload any) {
	c.mu.RLock()
	handlers := make([]Handler, 0, len(c.subs[event]))
	for _, h := range c.subs[event] {
		handlers = append(handlers, h)
	}
	c.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}

func (c *Channel) writePump(conn *websocket.Conn, send chan []byte, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
