package models

// Post is the read-only snapshot of a published post. The client never
// mutates content; only the like aggregate changes, via realtime events.
type Post struct {
	ID        uint       `json:"id"`
	Content   string     `json:"content"`
	Scope     *int       `json:"scope"`
	Like      int        `json:"like"`
	Share     int        `json:"share"`
	CreatedAt string     `json:"created_at"`
	User      *PostUser  `json:"user"`
	UserLiked bool       `json:"userLiked"`
	Link      string     `json:"link"`
	Longitude *float64   `json:"longitude"`
	Latitude  *float64   `json:"latitude"`
	Files     []PostFile `json:"files"`
}

// PostFile is one media attachment on a post.
type PostFile struct {
	ID   uint   `json:"id"`
	URL  string `json:"url"`
	Type int    `json:"type"`
}

// Comment is a single comment or reply. A reply carries the same shape;
// whether it is top-level is decided by where the backend returns it.
type Comment struct {
	ID           uint        `json:"id"`
	Content      string      `json:"content"`
	Like         int         `json:"like"`
	CreatedAt    string      `json:"createdAt"`
	RepliesCount int         `json:"repliesCount"`
	UserLiked    bool        `json:"userLiked"`
	User         CommentUser `json:"user"`
}

// CommentSort selects the server-side ordering of top-level comments.
type CommentSort string

const (
	SortTop CommentSort = "top"
	SortAll CommentSort = "all"
)

// CreatePostRequest is the multipart form payload for publishing a post.
// FilePaths are local paths uploaded under the "files" field.
type CreatePostRequest struct {
	Content   string
	Scope     int
	Type      int
	Active    int
	Longitude *float64
	Latitude  *float64
	FilePaths []string
}

// CreateCommentRequest is the JSON payload for the REST comment create,
// used only by the optimistic submit strategy.
type CreateCommentRequest struct {
	PostID   uint   `json:"postId"`
	Content  string `json:"content"`
	ParentID *uint  `json:"parentId,omitempty"`
}

// CommentCount is the server-reported total for a post, top-level plus
// all replies.
type CommentCount struct {
	Count int `json:"count"`
}
