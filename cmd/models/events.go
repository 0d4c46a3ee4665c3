package models

import (
	"encoding/json"
	"fmt"
)

// Realtime event names broadcast by the server.
const (
	EventCommentCreated     = "comment_created"
	EventCommentLikeUpdated = "comment_like_updated"
	EventPostLikeUpdated    = "post_like_updated"
)

// Realtime intent names emitted by the client.
const (
	EmitNewComment    = "new_comment"
	EmitLikePost      = "like_to_post"
	EmitUnlikePost    = "unlike_to_post"
	EmitLikeComment   = "like_to_comment"
	EmitUnlikeComment = "unlike_to_comment"
)

// EventEnvelope is the wire frame for every realtime message, in both
// directions: an event name plus its payload.
type EventEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// CommentCreatedEvent is broadcast after any comment or reply is stored.
// CommentCount is the new total for the whole post.
type CommentCreatedEvent struct {
	PostID       uint    `json:"postId"`
	Comment      Comment `json:"comment"`
	CommentCount int     `json:"commentCount"`
	ParentID     *uint   `json:"parentId"`
}

// CommentLikeUpdatedEvent carries the authoritative like count for one
// comment.
type CommentLikeUpdatedEvent struct {
	CommentID uint `json:"commentId"`
	LikeCount int  `json:"likeCount"`
}

// PostLikeUpdatedEvent carries the authoritative like count for one post.
type PostLikeUpdatedEvent struct {
	PostID    uint `json:"postId"`
	LikeCount int  `json:"likeCount"`
}

// NewCommentIntent asks the server to create a comment; the result comes
// back as a comment_created broadcast, never in a direct reply.
type NewCommentIntent struct {
	UserID   uint   `json:"userId"`
	PostID   uint   `json:"postId"`
	Content  string `json:"content"`
	ParentID *uint  `json:"parentId,omitempty"`
}

// PostLikeIntent is the payload for like_to_post and unlike_to_post.
type PostLikeIntent struct {
	UserID uint `json:"userId"`
	PostID uint `json:"postId"`
}

// CommentLikeIntent is the payload for like_to_comment and
// unlike_to_comment.
type CommentLikeIntent struct {
	UserID    uint `json:"userId"`
	CommentID uint `json:"commentId"`
}

// ParseEvent decodes a server frame into one of the known event payloads.
// Unknown event names and malformed payloads are errors; the caller drops
// the frame.
func ParseEvent(data []byte) (string, any, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}

	switch env.Event {
	case EventCommentCreated:
		var ev CommentCreatedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return env.Event, nil, fmt.Errorf("unmarshal %s: %w", env.Event, err)
		}
		return env.Event, &ev, nil
	case EventCommentLikeUpdated:
		var ev CommentLikeUpdatedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return env.Event, nil, fmt.Errorf("unmarshal %s: %w", env.Event, err)
		}
		return env.Event, &ev, nil
	case EventPostLikeUpdated:
		var ev PostLikeUpdatedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return env.Event, nil, fmt.Errorf("unmarshal %s: %w", env.Event, err)
		}
		return env.Event, &ev, nil
	default:
		return env.Event, nil, fmt.Errorf("unknown event %q", env.Event)
	}
}
