// Package models contains data structures for the application's domain models.
package models

import "time"

// UserStatus is the lifecycle state of an identity row.
type UserStatus string

const (
	StatusRegistered UserStatus = "registered"
	StatusActive     UserStatus = "active"
	StatusBanned     UserStatus = "banned"
)

// User is the relational identity of an account.
type User struct {
	UserID       uint       `gorm:"column:user_id;primaryKey" json:"user_id"`
	Username     string     `gorm:"uniqueIndex;not null;size:64" json:"username"`
	Password     string     `gorm:"not null" json:"-"`
	Email        *string    `gorm:"size:255" json:"email,omitempty"`
	PhoneCountry *string    `gorm:"size:8" json:"phone_country,omitempty"`
	PhoneNumber  *string    `gorm:"size:32" json:"phone_number,omitempty"`
	Status       UserStatus `gorm:"not null;size:16;default:registered" json:"status"`
	RoleID       Role       `gorm:"column:role_id;not null;default:1" json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}

// LoginHistory records one successful login.
type LoginHistory struct {
	LoginID uint      `gorm:"column:login_id;primaryKey" json:"login_id"`
	UserID  uint      `gorm:"not null;index" json:"user_id"`
	Date    time.Time `gorm:"not null" json:"date"`
}

func (LoginHistory) TableName() string {
	return "login_history"
}

// AccessToken is an opaque bearer token. The "/<userID>" suffix of Value is
// only there for diagnostics; lookups always go through the row.
type AccessToken struct {
	TokenID uint   `gorm:"column:token_id;primaryKey" json:"token_id"`
	Value   string `gorm:"uniqueIndex;not null;size:128" json:"-"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	LoginID uint   `gorm:"column:login_id;not null" json:"login_id"`
}

func (AccessToken) TableName() string {
	return "access_tokens"
}

// AuthCodeType is the delivery channel of a one-time code.
type AuthCodeType string

const (
	AuthCodeEmail AuthCodeType = "email"
	AuthCodeSMS   AuthCodeType = "sms"
)

// Valid reports whether t is a known channel.
func (t AuthCodeType) Valid() bool {
	return t == AuthCodeEmail || t == AuthCodeSMS
}

// AuthCode is a six digit one-time code. Codes are matched, never consumed;
// the sweep removes them after ValidTime.
type AuthCode struct {
	CodeID    uint         `gorm:"column:code_id;primaryKey" json:"code_id"`
	Value     string       `gorm:"not null;size:6" json:"-"`
	ValidTime time.Time    `gorm:"not null;index" json:"valid_time"`
	Type      AuthCodeType `gorm:"not null;size:8" json:"type"`
	UserID    uint         `gorm:"not null;index" json:"user_id"`
}

func (AuthCode) TableName() string {
	return "auth_codes"
}

// BanHistory is one ban. It stays active while its ban Event exists.
type BanHistory struct {
	BanID       uint      `gorm:"column:ban_id;primaryKey" json:"ban_id"`
	Reason      string    `gorm:"type:text" json:"reason"`
	DateStart   time.Time `gorm:"not null" json:"date_start"`
	DateEnd     time.Time `gorm:"not null" json:"date_end"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	ModeratorID *uint     `json:"moderator_id,omitempty"`
}

func (BanHistory) TableName() string {
	return "ban_history"
}

// Caller is the resolved identity behind an access token.
type Caller struct {
	UserID   uint       `json:"user_id"`
	Username string     `json:"username"`
	Status   UserStatus `json:"status"`
	Role     Role       `json:"role"`
}

// Active reports whether the caller may write content.
func (c Caller) Active() bool {
	return c.Status == StatusActive
}

// GraphUser is the social representation of an activated account.
type GraphUser struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	Avatar     string `json:"avatar"`
	Reputation int    `json:"reputation"`
}

// Profile is the public view of a user.
type Profile struct {
	GraphUser
	Status UserStatus `json:"status"`
	Role   Role       `json:"role"`
}
