package likes

import (
	"sync"
	"testing"
	"time"

	"github.com/phamvanchien/social-web/cmd/models"
	"github.com/phamvanchien/social-web/service/realtime"
)

type emitted struct {
	event   string
	payload any
}

type fakeChannel struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string]map[int]realtime.Handler
	emitted  []emitted
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[string]map[int]realtime.Handler)}
}

func (c *fakeChannel) Subscribe(event string, h realtime.Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]realtime.Handler)
	}
	id := c.nextID
	c.nextID++
	c.handlers[event][id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
	}
}

func (c *fakeChannel) Emit(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitted = append(c.emitted, emitted{event: event, payload: payload})
	return nil
}

func (c *fakeChannel) push(event string, payload any) {
	c.mu.Lock()
	handlers := make([]realtime.Handler, 0, len(c.handlers[event]))
	for _, h := range c.handlers[event] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(payload)
	}
}

func (c *fakeChannel) emittedEvents() []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]emitted, len(c.emitted))
	copy(out, c.emitted)
	return out
}

func testPost() *models.Post {
	return &models.Post{ID: 7, Like: 10}
}

func TestToggleFlipsFlagNotCount(t *testing.T) {
	ch := newFakeChannel()
	p := NewPostLikes(testPost(), 42, ch)

	p.Toggle()
	state := p.State()
	if !state.Liked {
		t.Fatal("flag should flip immediately")
	}
	if state.Count != 10 {
		t.Fatalf("Count = %d, want the count to wait for the broadcast", state.Count)
	}

	events := ch.emittedEvents()
	if len(events) != 1 || events[0].event != models.EmitLikePost {
		t.Fatalf("emitted %v, want one like_to_post", events)
	}
	intent := events[0].payload.(*models.PostLikeIntent)
	if intent.PostID != 7 || intent.UserID != 42 {
		t.Fatalf("intent = %+v", intent)
	}
}

func TestToggleTwiceEmitsUnlike(t *testing.T) {
	ch := newFakeChannel()
	p := NewPostLikes(testPost(), 42, ch)

	p.Toggle()
	p.Toggle()

	if state := p.State(); state.Liked {
		t.Fatal("second toggle should clear the flag")
	}
	events := ch.emittedEvents()
	if len(events) != 2 || events[1].event != models.EmitUnlikePost {
		t.Fatalf("emitted %v, want like then unlike", events)
	}
}

func TestSeededLikeTogglesToUnlike(t *testing.T) {
	ch := newFakeChannel()
	post := testPost()
	post.UserLiked = true
	p := NewPostLikes(post, 42, ch)

	p.Toggle()
	if state := p.State(); state.Liked {
		t.Fatal("viewer already liked the post, toggle should unlike")
	}
	events := ch.emittedEvents()
	if len(events) != 1 || events[0].event != models.EmitUnlikePost {
		t.Fatalf("emitted %v, want unlike_to_post", events)
	}
}

func TestBroadcastSetsCount(t *testing.T) {
	ch := newFakeChannel()
	p := NewPostLikes(testPost(), 42, ch)
	p.Attach()
	defer p.Detach()

	ch.push(models.EventPostLikeUpdated, &models.PostLikeUpdatedEvent{PostID: 7, LikeCount: 11})
	if state := p.State(); state.Count != 11 {
		t.Fatalf("Count = %d, want 11", state.Count)
	}

	// another post's broadcast is ignored
	ch.push(models.EventPostLikeUpdated, &models.PostLikeUpdatedEvent{PostID: 8, LikeCount: 99})
	if state := p.State(); state.Count != 11 {
		t.Fatalf("Count = %d, want 11", state.Count)
	}
}

func TestDetachStopsBroadcasts(t *testing.T) {
	ch := newFakeChannel()
	p := NewPostLikes(testPost(), 42, ch)
	p.Attach()
	p.Detach()

	ch.push(models.EventPostLikeUpdated, &models.PostLikeUpdatedEvent{PostID: 7, LikeCount: 11})
	if state := p.State(); state.Count != 10 {
		t.Fatalf("Count = %d, want seed value 10", state.Count)
	}
}

func TestBounceClearsAfterDelay(t *testing.T) {
	ch := newFakeChannel()
	p := NewPostLikes(testPost(), 42, ch)
	p.SetBounceDelay(10 * time.Millisecond)

	p.Toggle()
	if state := p.State(); !state.Bouncing {
		t.Fatal("should bounce right after like")
	}

	deadline := time.Now().Add(time.Second)
	for {
		if state := p.State(); !state.Bouncing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("bounce never cleared")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestUnlikeCancelsBounce(t *testing.T) {
	ch := newFakeChannel()
	p := NewPostLikes(testPost(), 42, ch)
	p.SetBounceDelay(time.Hour)

	p.Toggle()
	p.Toggle()
	if state := p.State(); state.Bouncing {
		t.Fatal("unlike should cancel the bounce")
	}
}
