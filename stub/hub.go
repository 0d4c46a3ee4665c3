package stub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phamvanchien/social-web/cmd/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type clientConn struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// Hub fans realtime events out to every connected client. Events carry
// their own routing key (post or comment ID); clients filter on their
// side, so the hub broadcasts to all.
type Hub struct {
	store   *Store
	mu      sync.Mutex
	clients map[*clientConn]bool
}

func NewHub(store *Store) *Hub {
	return &Hub{
		store:   store,
		clients: make(map[*clientConn]bool),
	}
}

func (h *Hub) registerClient(client *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

func (h *Hub) unregisterClient(client *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Broadcast sends one event frame to every connected client. Slow
// clients are dropped rather than blocking the hub.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("error marshaling %s payload: %v", event, err)
		return
	}
	frame, err := json.Marshal(models.EventEnvelope{Event: event, Data: data})
	if err != nil {
		log.Printf("error marshaling %s frame: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- frame:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// HandleWebSocket upgrades the connection and starts the pumps.
func (h *Hub) HandleWebSocket(userID uint, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &clientConn{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
	}
	h.registerClient(client)

	go client.writePump()
	go h.readPump(client)
}

func (h *Hub) readPump(client *clientConn) {
	defer func() {
		h.unregisterClient(client)
		client.conn.Close()
	}()

	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}

		var env models.EventEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Printf("error unmarshaling intent: %v", err)
			continue
		}
		h.handleIntent(client, &env)
	}
}

func (h *Hub) handleIntent(client *clientConn, env *models.EventEnvelope) {
	switch env.Event {
	case models.EmitNewComment:
		var intent models.NewCommentIntent
		if err := json.Unmarshal(env.Data, &intent); err != nil {
			log.Printf("bad new_comment payload: %v", err)
			return
		}
		comment, count, err := h.store.CreateComment(client.userID, intent.PostID, intent.Content, intent.ParentID)
		if err != nil {
			log.Printf("error creating comment: %v", err)
			return
		}
		h.Broadcast(models.EventCommentCreated, &models.CommentCreatedEvent{
			PostID:       intent.PostID,
			Comment:      *comment,
			CommentCount: count,
			ParentID:     intent.ParentID,
		})

	case models.EmitLikePost, models.EmitUnlikePost:
		var intent models.PostLikeIntent
		if err := json.Unmarshal(env.Data, &intent); err != nil {
			log.Printf("bad post like payload: %v", err)
			return
		}
		var count int
		var err error
		if env.Event == models.EmitLikePost {
			count, err = h.store.LikePost(client.userID, intent.PostID)
		} else {
			count, err = h.store.UnlikePost(client.userID, intent.PostID)
		}
		if err != nil {
			log.Printf("error updating post like: %v", err)
			return
		}
		h.Broadcast(models.EventPostLikeUpdated, &models.PostLikeUpdatedEvent{
			PostID:    intent.PostID,
			LikeCount: count,
		})

	case models.EmitLikeComment, models.EmitUnlikeComment:
		var intent models.CommentLikeIntent
		if err := json.Unmarshal(env.Data, &intent); err != nil {
			log.Printf("bad comment like payload: %v", err)
			return
		}
		var count int
		var err error
		if env.Event == models.EmitLikeComment {
			count, err = h.store.LikeComment(client.userID, intent.CommentID)
		} else {
			count, err = h.store.UnlikeComment(client.userID, intent.CommentID)
		}
		if err != nil {
			log.Printf("error updating comment like: %v", err)
			return
		}
		h.Broadcast(models.EventCommentLikeUpdated, &models.CommentLikeUpdatedEvent{
			CommentID: intent.CommentID,
			LikeCount: count,
		})
	}
}

func (c *clientConn) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
