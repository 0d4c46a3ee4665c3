package thread

import (
	"strings"
	"sync"
	"time"

	"github.com/phamvanchien/social-web/cmd/models"
	"github.com/phamvanchien/social-web/service/pagination"
	"github.com/phamvanchien/social-web/service/realtime"
	"github.com/phamvanchien/social-web/service/transport"
)

// DefaultBounceDelay is how long the heart-bounce flag stays set after a
// like. Purely presentational.
const DefaultBounceDelay = 700 * time.Millisecond

// API is the slice of the REST client the engine consumes.
type API interface {
	GetCommentsByPost(postID uint, page, size int, sort models.CommentSort) (*models.Page[models.Comment], error)
	GetCommentReplies(commentID uint, page, size int) (*models.Page[models.Comment], error)
	GetCommentCount(postID uint) (int, error)
	CreateComment(req *models.CreateCommentRequest) (*models.Comment, error)
}

// Channel is the slice of the realtime channel the engine consumes.
type Channel interface {
	Subscribe(event string, h realtime.Handler) func()
	Emit(event string, payload any) error
}

// SubmitStrategy picks how SubmitComment lands the new comment in local
// state. Exactly one applies; mixing them duplicates comments.
type SubmitStrategy int

const (
	// PushDriven emits a new_comment intent and relies exclusively on
	// the comment_created broadcast to insert; no direct local insert.
	PushDriven SubmitStrategy = iota
	// Optimistic creates over REST and inserts the server-confirmed
	// comment locally; the server must not echo it back to the sender.
	Optimistic
)

type replyThread struct {
	items  []models.Comment
	cursor pagination.Cursor
}

// Engine owns the in-memory view of one post's comment thread and merges
// paged fetches with realtime pushes into one consistent state. All
// mutations dedupe by comment ID; ordering across the two input streams
// is best-effort, not a strict guarantee.
type Engine struct {
	postID   uint
	userID   uint
	api      API
	rt       Channel
	strategy SubmitStrategy
	bounce   time.Duration

	mu           sync.Mutex
	open         bool
	stale        bool // comment_created seen while closed; next Open refetches
	sort         models.CommentSort
	sortGen      int // bumped on sort change to discard stale fetch results
	topLevel     []models.Comment
	topCursor    pagination.Cursor
	fetched      bool // page 1 of topLevel has resolved at least once
	replies      map[uint]*replyThread
	replyLoading map[uint]bool
	liked        map[uint]bool
	likeCounts   map[uint]int
	bouncing     map[uint]bool
	bounceTimers map[uint]*time.Timer
	commentCount int
	unsubs       []func()
	onChange     func()
}

func NewEngine(postID, userID uint, api API, rt Channel) *Engine {
	return &Engine{
		postID:       postID,
		userID:       userID,
		api:          api,
		rt:           rt,
		strategy:     PushDriven,
		bounce:       DefaultBounceDelay,
		sort:         models.SortTop,
		replies:      make(map[uint]*replyThread),
		replyLoading: make(map[uint]bool),
		liked:        make(map[uint]bool),
		likeCounts:   make(map[uint]int),
		bouncing:     make(map[uint]bool),
		bounceTimers: make(map[uint]*time.Timer),
	}
}

// SetStrategy switches the comment submit strategy. Call before the first
// SubmitComment and do not switch afterwards.
func (e *Engine) SetStrategy(s SubmitStrategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategy = s
}

// SetBounceDelay overrides the bounce interval, mainly for tests.
func (e *Engine) SetBounceDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bounce = d
}

// OnChange registers a callback fired after every state change. It runs
// on its own goroutine so it may call back into the engine.
func (e *Engine) OnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Attach subscribes the realtime listeners for this post and fetches the
// comment count. The count and comment likes keep updating even while
// the thread view stays closed.
func (e *Engine) Attach() {
	e.mu.Lock()
	e.unsubs = append(e.unsubs,
		e.rt.Subscribe(models.EventCommentCreated, func(payload any) {
			if ev, ok := payload.(*models.CommentCreatedEvent); ok {
				e.ApplyCommentCreated(ev)
			}
		}),
		e.rt.Subscribe(models.EventCommentLikeUpdated, func(payload any) {
			if ev, ok := payload.(*models.CommentLikeUpdatedEvent); ok {
				e.ApplyCommentLikeUpdated(ev)
			}
		}),
	)
	e.mu.Unlock()

	if count, err := e.api.GetCommentCount(e.postID); err == nil {
		e.mu.Lock()
		e.commentCount = count
		e.mu.Unlock()
		e.notify()
	}
}

// Detach drops the realtime subscriptions. State stays as-is.
func (e *Engine) Detach() {
	e.mu.Lock()
	unsubs := e.unsubs
	e.unsubs = nil
	e.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// Open makes the thread visible. The first open, or any open after the
// thread went stale, fetches page 1 at the current sort; otherwise it is
// a no-op.
func (e *Engine) Open() error {
	e.mu.Lock()
	wasOpen := e.open
	e.open = true
	needFetch := e.stale || !e.fetched
	if wasOpen && !needFetch {
		e.mu.Unlock()
		return nil
	}
	if !needFetch {
		e.mu.Unlock()
		e.notify()
		return nil
	}
	if !e.topCursor.Begin() {
		e.mu.Unlock()
		return nil
	}
	e.stale = false
	sort, gen := e.sort, e.sortGen
	e.mu.Unlock()

	return e.fetchTopLevel(1, sort, gen, true)
}

// Close hides the thread: incoming comment_created events stop mutating
// the lists and instead mark the thread stale. Like updates keep
// applying.
func (e *Engine) Close() {
	e.mu.Lock()
	e.open = false
	e.mu.Unlock()
	e.notify()
}

// ChangeSort switches the top-level ordering. Same sort is a no-op with
// no fetch. Otherwise the top-level list and cursor reset and page 1 is
// fetched fresh; reply sublists are untouched.
func (e *Engine) ChangeSort(sort models.CommentSort) error {
	e.mu.Lock()
	if sort == e.sort {
		e.mu.Unlock()
		return nil
	}
	e.sort = sort
	e.sortGen++
	e.topLevel = nil
	e.fetched = false
	e.topCursor.Reset()
	e.topCursor.Begin()
	gen := e.sortGen
	e.mu.Unlock()
	e.notify()

	return e.fetchTopLevel(1, sort, gen, true)
}

// LoadMore fetches the next top-level page. It is a silent no-op while a
// fetch is in flight or when the server has no more pages.
func (e *Engine) LoadMore() error {
	e.mu.Lock()
	if !e.topCursor.HasMore() || !e.topCursor.Begin() {
		e.mu.Unlock()
		return nil
	}
	page := e.topCursor.Page + 1
	sort, gen := e.sort, e.sortGen
	e.mu.Unlock()

	return e.fetchTopLevel(page, sort, gen, false)
}

func (e *Engine) fetchTopLevel(page int, sort models.CommentSort, gen int, replace bool) error {
	res, err := e.api.GetCommentsByPost(e.postID, page, transport.CommentPageSize, sort)

	e.mu.Lock()
	if gen != e.sortGen {
		// sort changed underneath this fetch; its result is for a list
		// that no longer exists
		e.mu.Unlock()
		return nil
	}
	e.topCursor.Finish()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if replace {
		e.topLevel = nil
	}
	for _, c := range res.Items {
		if !containsComment(e.topLevel, c.ID) {
			e.topLevel = append(e.topLevel, c)
		}
	}
	e.seedLikeFlags(res.Items)
	e.topCursor.Complete(page, res.TotalPage)
	e.fetched = true
	e.mu.Unlock()
	e.notify()
	return nil
}

// ExpandReplies fetches page 1 of a comment's replies. Already expanded,
// or expanding right now, is a no-op.
func (e *Engine) ExpandReplies(commentID uint) error {
	e.mu.Lock()
	if _, ok := e.replies[commentID]; ok {
		e.mu.Unlock()
		return nil
	}
	if e.replyLoading[commentID] {
		e.mu.Unlock()
		return nil
	}
	e.replyLoading[commentID] = true
	e.mu.Unlock()

	return e.fetchReplies(commentID, 1)
}

// LoadMoreReplies fetches the next reply page under one parent, with the
// same in-flight and hasMore gating as LoadMore.
func (e *Engine) LoadMoreReplies(commentID uint) error {
	e.mu.Lock()
	rt, ok := e.replies[commentID]
	if !ok || e.replyLoading[commentID] || !rt.cursor.HasMore() {
		e.mu.Unlock()
		return nil
	}
	e.replyLoading[commentID] = true
	page := rt.cursor.Page + 1
	e.mu.Unlock()

	return e.fetchReplies(commentID, page)
}

func (e *Engine) fetchReplies(commentID uint, page int) error {
	res, err := e.api.GetCommentReplies(commentID, page, transport.ReplyPageSize)

	e.mu.Lock()
	delete(e.replyLoading, commentID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	rt, ok := e.replies[commentID]
	if !ok {
		// expanded now, even when the result set is empty
		rt = &replyThread{}
		e.replies[commentID] = rt
	}
	for _, c := range res.Items {
		if !containsComment(rt.items, c.ID) {
			rt.items = append(rt.items, c)
		}
	}
	e.seedLikeFlags(res.Items)
	rt.cursor.Complete(page, res.TotalPage)
	e.mu.Unlock()
	e.notify()
	return nil
}

// SubmitComment sends a new comment or reply. Under PushDriven the insert
// happens when the comment_created broadcast echoes back; under
// Optimistic the REST response is inserted directly. Blank content is a
// no-op.
func (e *Engine) SubmitComment(content string, parentID *uint) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	e.mu.Lock()
	strategy := e.strategy
	if parentID != nil {
		// pre-expand the parent so the incoming reply has somewhere to
		// land
		if _, ok := e.replies[*parentID]; !ok {
			e.replies[*parentID] = &replyThread{}
		}
	}
	e.mu.Unlock()

	if strategy == PushDriven {
		return e.rt.Emit(models.EmitNewComment, &models.NewCommentIntent{
			UserID:   e.userID,
			PostID:   e.postID,
			Content:  content,
			ParentID: parentID,
		})
	}

	created, err := e.api.CreateComment(&models.CreateCommentRequest{
		PostID:   e.postID,
		Content:  content,
		ParentID: parentID,
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	if parentID == nil {
		if !containsComment(e.topLevel, created.ID) {
			e.topLevel = append([]models.Comment{*created}, e.topLevel...)
		}
	} else {
		rt := e.replies[*parentID]
		if !containsComment(rt.items, created.ID) {
			rt.items = append([]models.Comment{*created}, rt.items...)
		}
		e.bumpRepliesCount(*parentID)
	}
	e.commentCount++
	e.mu.Unlock()
	e.notify()
	return nil
}

// ApplyCommentCreated merges one comment_created broadcast. Events for
// other posts are ignored. The count always updates; the lists only
// mutate while the thread is open, otherwise the thread goes stale and
// the next Open refetches from page 1.
func (e *Engine) ApplyCommentCreated(ev *models.CommentCreatedEvent) {
	if ev.PostID != e.postID {
		return
	}

	e.mu.Lock()
	e.commentCount = ev.CommentCount

	if !e.open {
		e.stale = true
		e.mu.Unlock()
		e.notify()
		return
	}

	if ev.ParentID != nil {
		if rt, ok := e.replies[*ev.ParentID]; ok {
			if !containsComment(rt.items, ev.Comment.ID) {
				rt.items = append([]models.Comment{ev.Comment}, rt.items...)
			}
		}
		// collapsed parents still get the "see N replies" count bumped
		e.bumpRepliesCount(*ev.ParentID)
	} else {
		// newest-first insertion regardless of sort mode: matches what
		// the product ships, but may diverge from a fresh fetch at
		// sort=top until the next refetch
		if !containsComment(e.topLevel, ev.Comment.ID) {
			e.topLevel = append([]models.Comment{ev.Comment}, e.topLevel...)
		}
	}
	e.mu.Unlock()
	e.notify()
}

// ApplyCommentLikeUpdated overwrites the displayed like count for one
// comment. Safe to apply whether or not the thread is open.
func (e *Engine) ApplyCommentLikeUpdated(ev *models.CommentLikeUpdatedEvent) {
	e.mu.Lock()
	e.likeCounts[ev.CommentID] = ev.LikeCount
	e.mu.Unlock()
	e.notify()
}

// ToggleCommentLike flips the viewer's like on a comment, adjusts the
// displayed count by one, and emits the matching intent. The emit result
// is ignored; server truth arrives via comment_like_updated.
func (e *Engine) ToggleCommentLike(commentID uint) {
	e.mu.Lock()
	liked := e.viewerLiked(commentID)
	count := e.displayLikeCount(commentID)

	var emitEvent string
	if liked {
		e.liked[commentID] = false
		e.likeCounts[commentID] = count - 1
		if t := e.bounceTimers[commentID]; t != nil {
			t.Stop()
		}
		e.bouncing[commentID] = false
		emitEvent = models.EmitUnlikeComment
	} else {
		e.liked[commentID] = true
		e.likeCounts[commentID] = count + 1
		e.bouncing[commentID] = true
		emitEvent = models.EmitLikeComment
		if t := e.bounceTimers[commentID]; t != nil {
			t.Stop()
		}
		e.bounceTimers[commentID] = time.AfterFunc(e.bounce, func() {
			e.mu.Lock()
			e.bouncing[commentID] = false
			e.mu.Unlock()
			e.notify()
		})
	}
	e.mu.Unlock()

	// fire-and-forget; a disconnected channel is reconciled by the next
	// broadcast or full fetch
	e.rt.Emit(emitEvent, &models.CommentLikeIntent{
		UserID:    e.userID,
		CommentID: commentID,
	})
	e.notify()
}

// CommentCount returns the server-reported total for the post.
func (e *Engine) CommentCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commentCount
}

func (e *Engine) bumpRepliesCount(parentID uint) {
	for i := range e.topLevel {
		if e.topLevel[i].ID == parentID {
			e.topLevel[i].RepliesCount++
			return
		}
	}
}

func (e *Engine) seedLikeFlags(items []models.Comment) {
	for _, c := range items {
		if _, ok := e.liked[c.ID]; !ok {
			e.liked[c.ID] = c.UserLiked
		}
	}
}

func (e *Engine) viewerLiked(commentID uint) bool {
	if liked, ok := e.liked[commentID]; ok {
		return liked
	}
	if c := e.findComment(commentID); c != nil {
		return c.UserLiked
	}
	return false
}

func (e *Engine) displayLikeCount(commentID uint) int {
	if count, ok := e.likeCounts[commentID]; ok {
		return count
	}
	if c := e.findComment(commentID); c != nil {
		return c.Like
	}
	return 0
}

func (e *Engine) findComment(commentID uint) *models.Comment {
	for i := range e.topLevel {
		if e.topLevel[i].ID == commentID {
			return &e.topLevel[i]
		}
	}
	for _, rt := range e.replies {
		for i := range rt.items {
			if rt.items[i].ID == commentID {
				return &rt.items[i]
			}
		}
	}
	return nil
}

func (e *Engine) notify() {
	e.mu.Lock()
	fn := e.onChange
	e.mu.Unlock()
	if fn != nil {
		go fn()
	}
}

func containsComment(list []models.Comment, id uint) bool {
	for i := range list {
		if list[i].ID == id {
			return true
		}
	}
	return false
}
