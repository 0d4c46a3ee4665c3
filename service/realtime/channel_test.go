package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phamvanchien/social-web/cmd/models"
)

var upgrader = websocket.Upgrader{}

// wsServer runs handler for every websocket connection and returns the
// ws:// URL to dial.
func wsServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDispatchesServerEvents(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		data, _ := json.Marshal(models.PostLikeUpdatedEvent{PostID: 7, LikeCount: 3})
		frame, _ := json.Marshal(models.EventEnvelope{Event: models.EventPostLikeUpdated, Data: data})
		conn.WriteMessage(websocket.TextMessage, frame)
		// hold the connection open until the test ends
		conn.ReadMessage()
	})

	c := NewChannel(url, nil)
	received := make(chan *models.PostLikeUpdatedEvent, 1)
	c.Subscribe(models.EventPostLikeUpdated, func(payload any) {
		if ev, ok := payload.(*models.PostLikeUpdatedEvent); ok {
			received <- ev
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	select {
	case ev := <-received:
		if ev.PostID != 7 || ev.LikeCount != 3 {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event never dispatched")
	}
}

func TestMalformedFrameIsDropped(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		frame, _ := json.Marshal(models.EventEnvelope{Event: "unknown_event", Data: []byte(`{}`)})
		conn.WriteMessage(websocket.TextMessage, frame)
		data, _ := json.Marshal(models.CommentLikeUpdatedEvent{CommentID: 2, LikeCount: 5})
		frame, _ = json.Marshal(models.EventEnvelope{Event: models.EventCommentLikeUpdated, Data: data})
		conn.WriteMessage(websocket.TextMessage, frame)
		conn.ReadMessage()
	})

	c := NewChannel(url, nil)
	received := make(chan *models.CommentLikeUpdatedEvent, 1)
	c.Subscribe(models.EventCommentLikeUpdated, func(payload any) {
		if ev, ok := payload.(*models.CommentLikeUpdatedEvent); ok {
			received <- ev
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	select {
	case ev := <-received:
		if ev.CommentID != 2 || ev.LikeCount != 5 {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("good frame never arrived past the bad ones")
	}
}

func TestEmitSendsIntentFrame(t *testing.T) {
	frames := make(chan []byte, 1)
	url := wsServer(t, func(conn *websocket.Conn) {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frames <- message
		conn.ReadMessage()
	})

	c := NewChannel(url, func() string { return "tok-123" })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	// wait until connected
	deadline := time.Now().Add(5 * time.Second)
	var err error
	for {
		err = c.Emit(models.EmitLikePost, &models.PostLikeIntent{UserID: 42, PostID: 7})
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Emit() error: %v", err)
	}

	select {
	case frame := <-frames:
		var env models.EventEnvelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if env.Event != models.EmitLikePost {
			t.Fatalf("event = %q, want %q", env.Event, models.EmitLikePost)
		}
		var intent models.PostLikeIntent
		if err := json.Unmarshal(env.Data, &intent); err != nil {
			t.Fatalf("bad intent: %v", err)
		}
		if intent.UserID != 42 || intent.PostID != 7 {
			t.Fatalf("intent = %+v", intent)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("intent frame never reached the server")
	}
}

func TestEmitWhileDisconnected(t *testing.T) {
	c := NewChannel("ws://localhost:1", nil)
	err := c.Emit(models.EmitLikePost, &models.PostLikeIntent{UserID: 1, PostID: 1})
	if err != ErrNotConnected {
		t.Fatalf("Emit() error = %v, want ErrNotConnected", err)
	}
}

func TestDialSendsBearerToken(t *testing.T) {
	headers := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
	}))
	defer srv.Close()

	c := NewChannel("ws"+strings.TrimPrefix(srv.URL, "http"), func() string { return "tok-123" })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	select {
	case got := <-headers:
		if got != "Bearer tok-123" {
			t.Fatalf("Authorization = %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dial never reached the server")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := NewChannel("ws://localhost:1", nil)

	got := 0
	unsub := c.Subscribe(models.EventPostLikeUpdated, func(any) { got++ })
	c.dispatch(models.EventPostLikeUpdated, &models.PostLikeUpdatedEvent{PostID: 1, LikeCount: 1})
	unsub()
	c.dispatch(models.EventPostLikeUpdated, &models.PostLikeUpdatedEvent{PostID: 1, LikeCount: 2})

	if got != 1 {
		t.Fatalf("handler ran %d times, want 1", got)
	}
}
