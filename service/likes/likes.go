package likes

import (
	"sync"
	"time"

	"github.com/phamvanchien/social-web/cmd/models"
	"github.com/phamvanchien/social-web/service/realtime"
)

// DefaultBounceDelay matches the comment-level bounce interval.
const DefaultBounceDelay = 700 * time.Millisecond

// Channel is the slice of the realtime channel this engine consumes.
type Channel interface {
	Subscribe(event string, h realtime.Handler) func()
	Emit(event string, payload any) error
}

// State is the renderable like state of one post.
type State struct {
	Liked    bool
	Count    int
	Bouncing bool
}

// PostLikes reconciles one post's like counter: the viewer's flag flips
// optimistically on toggle, while the displayed count follows the
// post_like_updated broadcast unconditionally. A failed emit is never
// rolled back; the next broadcast settles it.
type PostLikes struct {
	postID uint
	userID uint
	rt     Channel
	bounce time.Duration

	mu          sync.Mutex
	liked       bool
	count       int
	bouncing    bool
	bounceTimer *time.Timer
	unsub       func()
	onChange    func()
}

// NewPostLikes seeds the engine from the post snapshot the feed returned.
func NewPostLikes(post *models.Post, userID uint, rt Channel) *PostLikes {
	return &PostLikes{
		postID: post.ID,
		userID: userID,
		rt:     rt,
		bounce: DefaultBounceDelay,
		liked:  post.UserLiked,
		count:  post.Like,
	}
}

// SetBounceDelay overrides the bounce interval, mainly for tests.
func (p *PostLikes) SetBounceDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bounce = d
}

// OnChange registers a callback fired after every state change.
func (p *PostLikes) OnChange(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Attach subscribes to the post's like broadcasts. The subscription
// outlives a collapsed comment section; it ends only on Detach, when the
// post card itself goes away.
func (p *PostLikes) Attach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unsub = p.rt.Subscribe(models.EventPostLikeUpdated, func(payload any) {
		ev, ok := payload.(*models.PostLikeUpdatedEvent)
		if !ok || ev.PostID != p.postID {
			return
		}
		p.mu.Lock()
		p.count = ev.LikeCount
		p.mu.Unlock()
		p.notify()
	})
}

// Detach drops the subscription.
func (p *PostLikes) Detach() {
	p.mu.Lock()
	unsub := p.unsub
	p.unsub = nil
	p.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Toggle flips the viewer's like and emits the matching intent. The
// displayed count waits for the server broadcast; only the flag and the
// bounce flip immediately.
func (p *PostLikes) Toggle() {
	p.mu.Lock()
	var emitEvent string
	if p.liked {
		p.liked = false
		emitEvent = models.EmitUnlikePost
		if p.bounceTimer != nil {
			p.bounceTimer.Stop()
		}
		p.bouncing = false
	} else {
		p.liked = true
		emitEvent = models.EmitLikePost
		p.bouncing = true
		if p.bounceTimer != nil {
			p.bounceTimer.Stop()
		}
		p.bounceTimer = time.AfterFunc(p.bounce, func() {
			p.mu.Lock()
			p.bouncing = false
			p.mu.Unlock()
			p.notify()
		})
	}
	p.mu.Unlock()

	p.rt.Emit(emitEvent, &models.PostLikeIntent{
		UserID: p.userID,
		PostID: p.postID,
	})
	p.notify()
}

// State returns the current renderable like state.
func (p *PostLikes) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{Liked: p.liked, Count: p.count, Bouncing: p.bouncing}
}

func (p *PostLikes) notify() {
	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		go fn()
	}
}
