package models

import "time"

// ReportStatus is the queue state of a report.
type ReportStatus string

const (
	ReportActive   ReportStatus = "active"
	ReportLocked   ReportStatus = "locked"
	ReportResolved ReportStatus = "resolved"
)

// ReportType selects which staff queue a report lands in.
type ReportType string

const (
	ReportForModerator   ReportType = "moderator"
	ReportForFactChecker ReportType = "fact_checker"
)

// Valid reports whether t is a known queue.
func (t ReportType) Valid() bool {
	return t == ReportForModerator || t == ReportForFactChecker
}

// RequiredRole is the minimum role that may claim reports of type t.
func (t ReportType) RequiredRole() Role {
	if t == ReportForFactChecker {
		return RoleFactChecker
	}
	return RoleModerator
}

// ContentType names the kind of content a report points at.
type ContentType string

const (
	ContentPost    ContentType = "post"
	ContentComment ContentType = "comment"
	ContentMessage ContentType = "message"
)

// Valid reports whether c is a reportable content kind.
func (c ContentType) Valid() bool {
	return c == ContentPost || c == ContentComment || c == ContentMessage
}

// Report is a moderation queue entry. Exactly one of PostID, CommentID and
// MessageID is set.
type Report struct {
	ReportID    uint         `gorm:"column:report_id;primaryKey" json:"report_id"`
	Status      ReportStatus `gorm:"not null;size:16;default:active;index" json:"status"`
	Type        ReportType   `gorm:"not null;size:16;index" json:"type"`
	Content     string       `gorm:"type:text" json:"content"`
	CreatorID   *uint        `json:"creator_id,omitempty"`
	ModeratorID *uint        `json:"moderator_id,omitempty"`
	PostID      *uint        `json:"post_id,omitempty"`
	CommentID   *uint        `json:"comment_id,omitempty"`
	MessageID   *uint        `json:"message_id,omitempty"`
	Auto        bool         `gorm:"not null;default:false" json:"auto"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (Report) TableName() string {
	return "reports"
}

// Target returns the content kind and id the report points at.
func (r Report) Target() (ContentType, uint) {
	switch {
	case r.PostID != nil:
		return ContentPost, *r.PostID
	case r.CommentID != nil:
		return ContentComment, *r.CommentID
	case r.MessageID != nil:
		return ContentMessage, *r.MessageID
	}
	return "", 0
}

// ReportModel is a claimed report together with the content it points at.
type ReportModel struct {
	Report  Report    `json:"report"`
	Post    *Post     `json:"post,omitempty"`
	Comment *Comment  `json:"comment,omitempty"`
	Message *Message  `json:"message,omitempty"`
	LeaseTo time.Time `json:"lease_to"`
}

// EventType is the kind of deadline an Event row carries.
type EventType string

const (
	EventRegistration EventType = "registration"
	EventBan          EventType = "ban"
	EventLockedReport EventType = "locked report"
)

// Event is a generic timer row. The sweep acts on events whose ValidTime
// has passed.
type Event struct {
	EventID   uint      `gorm:"column:event_id;primaryKey" json:"event_id"`
	Type      EventType `gorm:"not null;size:32;index" json:"type"`
	ValidTime time.Time `gorm:"not null;index" json:"valid_time"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	BanID     *uint     `json:"ban_id,omitempty"`
	ReportID  *uint     `json:"report_id,omitempty"`
}

func (Event) TableName() string {
	return "events"
}
