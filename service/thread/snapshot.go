package thread

import "github.com/phamvanchien/social-web/cmd/models"

// CommentView is one comment with the viewer-local like overrides
// already applied, ready to render.
type CommentView struct {
	models.Comment
	LikeCount int
	Liked     bool
	Bouncing  bool
}

// RepliesView is one expanded reply sublist.
type RepliesView struct {
	Items   []CommentView
	HasMore bool
	Loading bool
}

// Snapshot is a consistent copy of the thread state. Mutating it has no
// effect on the engine.
type Snapshot struct {
	PostID       uint
	Open         bool
	Sort         models.CommentSort
	CommentCount int
	TopLevel     []CommentView
	HasMore      bool
	Loading      bool
	Replies      map[uint]RepliesView
}

// Snapshot returns the current thread state for the presentation layer.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		PostID:       e.postID,
		Open:         e.open,
		Sort:         e.sort,
		CommentCount: e.commentCount,
		TopLevel:     e.viewsLocked(e.topLevel),
		HasMore:      e.topCursor.HasMore(),
		Loading:      e.topCursor.Loading(),
		Replies:      make(map[uint]RepliesView, len(e.replies)),
	}
	for parentID, rt := range e.replies {
		snap.Replies[parentID] = RepliesView{
			Items:   e.viewsLocked(rt.items),
			HasMore: rt.cursor.HasMore(),
			Loading: e.replyLoading[parentID],
		}
	}
	return snap
}

func (e *Engine) viewsLocked(items []models.Comment) []CommentView {
	views := make([]CommentView, len(items))
	for i, c := range items {
		view := CommentView{Comment: c, LikeCount: c.Like, Liked: c.UserLiked}
		if count, ok := e.likeCounts[c.ID]; ok {
			view.LikeCount = count
		}
		if liked, ok := e.liked[c.ID]; ok {
			view.Liked = liked
		}
		view.Bouncing = e.bouncing[c.ID]
		views[i] = view
	}
	return views
}
