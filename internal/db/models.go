package db

import (
	"time"
)

// User admission status.
const (
	StatusActive   = "active"
	StatusWaitlist = "waitlist"
	StatusBanned   = "banned"
)

// User roles. Admins bypass admission control.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User table. CreatedAt doubles as the admission timestamp: waitlist
// ordering is derived from (created_at, id), so it is never rewritten
// after admission except to backfill a missing value.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Gender       string `gorm:"size:16;not null"`
	LookingFor   string `gorm:"size:16;not null"`
	Status       string `gorm:"size:16;not null;default:active;index:idx_status_created,priority:1"`
	Role         string `gorm:"size:16;not null;default:member"`
	CreatedAt    time.Time `gorm:"index:idx_status_created,priority:2"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Like is a one-directional interest signal.
//
// Composite PK (LikerID, LikedID) makes the insert idempotent: re-liking
// the same user is a conflict that resolves to a no-op, never a second row.
type Like struct {
	LikerID   uint64    `gorm:"primaryKey"`
	LikedID   uint64    `gorm:"primaryKey;index:idx_liked_created,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_liked_created,priority:2,sort:desc"`
}

// Match is the mutual acceptance of a pair.
//
// The pair is stored canonically (UserAID < UserBID) and forms the
// composite PK, so the storage layer itself guarantees at most one Match
// per unordered pair even under concurrent creation from both sides.
type Match struct {
	UserAID   uint64    `gorm:"primaryKey"`
	UserBID   uint64    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// MessageRequest lifecycle states.
const (
	RequestPending   = "pending"
	RequestAccepted  = "accepted"
	RequestDeclined  = "declined"
	RequestCancelled = "cancelled"
)

// MessageRequest is a one-directional request to open messaging without a
// prior mutual like.
//
// PendingKey is "<sender>-<receiver>" while the request is pending and NULL
// once consumed. The unique index on it enforces at most one pending
// request per ordered pair at the storage layer; NULLs do not collide, so
// consumed requests keep their history rows.
type MessageRequest struct {
	ID         string  `gorm:"primaryKey;size:36"`
	SenderID   uint64  `gorm:"not null;index"`
	ReceiverID uint64  `gorm:"not null;index"`
	Status     string  `gorm:"size:16;not null"`
	PendingKey *string `gorm:"uniqueIndex;size:48"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// UnreadMatch marks a match the user has not acknowledged yet.
// Set-valued: composite PK gives idempotent add, delete gives idempotent remove.
type UnreadMatch struct {
	UserID    uint64    `gorm:"primaryKey"`
	OtherID   uint64    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// SeenRequest marks an incoming message request the user has already seen.
type SeenRequest struct {
	UserID    uint64    `gorm:"primaryKey"`
	RequestID string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Subscription is a registered notification destination for a user.
// A user may hold several (one per device).
type Subscription struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    uint64    `gorm:"not null;index"`
	Target    string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
