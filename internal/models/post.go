package models

import (
	"fmt"
	"math"
	"time"
)

// PostRecord is the relational shadow row of a graph Post. It exists for
// foreign keys and cascades only.
type PostRecord struct {
	PostID uint `gorm:"column:post_id;primaryKey" json:"post_id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
}

func (PostRecord) TableName() string {
	return "posts"
}

// CommentRecord is the relational shadow row of a graph Comment.
type CommentRecord struct {
	CommentID uint `gorm:"column:comment_id;primaryKey" json:"comment_id"`
	PostID    uint `gorm:"not null;index" json:"post_id"`
	UserID    uint `gorm:"not null;index" json:"user_id"`
}

func (CommentRecord) TableName() string {
	return "comments"
}

// Message is a direct message. It lives only in the relational store.
type Message struct {
	MessageID  uint      `gorm:"column:message_id;primaryKey" json:"message_id"`
	SenderID   uint      `gorm:"not null;index" json:"sender_id"`
	ReceiverID uint      `gorm:"not null;index" json:"receiver_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Date       time.Time `gorm:"not null" json:"date"`
}

func (Message) TableName() string {
	return "messages"
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"long"`
}

// Validate checks coordinate ranges.
func (p GeoPoint) Validate() error {
	if !finite(p.Latitude) || !finite(p.Longitude) {
		return NewValidationError("coordinates must be finite numbers")
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return NewValidationError(fmt.Sprintf("latitude %v out of range", p.Latitude))
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return NewValidationError(fmt.Sprintf("longitude %v out of range", p.Longitude))
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Post is the graph content of a post.
type Post struct {
	PostID             uint      `json:"post_id"`
	AuthorID           uint      `json:"author_id"`
	Author             string    `json:"author"`
	Date               time.Time `json:"date"`
	Title              string    `json:"title"`
	Content            string    `json:"content"`
	Img                string    `json:"img,omitempty"`
	Counter            int       `json:"counter"`
	BlockSearchEngines bool      `json:"block_search_engines"`
	Location           *GeoPoint `json:"location,omitempty"`
	Tags               []string  `json:"tags"`
	Fact               *string   `json:"fact,omitempty"`
}

// PostView is a post as seen by one caller.
type PostView struct {
	Post
	Relation Relation `json:"relation,omitempty"`
}

// Comment is the graph content of a comment.
type Comment struct {
	CommentID uint      `json:"comment_id"`
	PostID    uint      `json:"post_id"`
	AuthorID  uint      `json:"author_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Date      time.Time `json:"date"`
}

// Relation is a user's vote state on a post.
type Relation string

const (
	RelationNone     Relation = "none"
	RelationLiked    Relation = "liked"
	RelationDisliked Relation = "disliked"
)

// VoteOp is one transition of the vote state machine.
type VoteOp string

const (
	VoteUp      VoteOp = "upvote"
	VoteDown    VoteOp = "downvote"
	VoteUpOff   VoteOp = "upvote_off"
	VoteDownOff VoteOp = "downvote_off"
)

// Valid reports whether op is one of the four transitions.
func (op VoteOp) Valid() bool {
	switch op {
	case VoteUp, VoteDown, VoteUpOff, VoteDownOff:
		return true
	}
	return false
}

// VoteTransition applies op to state. delta is added to both the post
// counter and the author's reputation.
//
//	upvote:       disliked->liked +2, none->liked +1, liked unchanged
//	downvote:     liked->disliked -2, none->disliked -1, disliked unchanged
//	upvote_off:   liked->none -1, otherwise unchanged
//	downvote_off: disliked->none +1, otherwise unchanged
func VoteTransition(state Relation, op VoteOp) (next Relation, delta int) {
	if state == "" {
		state = RelationNone
	}
	switch op {
	case VoteUp:
		switch state {
		case RelationDisliked:
			return RelationLiked, 2
		case RelationNone:
			return RelationLiked, 1
		}
	case VoteDown:
		switch state {
		case RelationLiked:
			return RelationDisliked, -2
		case RelationNone:
			return RelationDisliked, -1
		}
	case VoteUpOff:
		if state == RelationLiked {
			return RelationNone, -1
		}
	case VoteDownOff:
		if state == RelationDisliked {
			return RelationNone, 1
		}
	}
	return state, 0
}
