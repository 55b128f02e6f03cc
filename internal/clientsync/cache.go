// Package clientsync holds the device-local projection of a user's own
// relationship state and the reconciler that folds authoritative state
// into it.
package clientsync

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Request is a message request as seen by the client cache.
type Request struct {
	ID         string
	SenderID   uint64
	ReceiverID uint64
	Incoming   bool
	Seen       bool
	CreatedAt  time.Time
}

// Local schema. The cache file is scoped to a single identity on a single
// device, so rows are keyed by the counterpart alone.

type cachedLike struct {
	OtherID   uint64 `gorm:"primaryKey"`
	Confirmed bool   `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (cachedLike) TableName() string { return "cached_likes" }

type cachedMatch struct {
	OtherID   uint64 `gorm:"primaryKey"`
	Unread    bool   `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (cachedMatch) TableName() string { return "cached_matches" }

type cachedRequest struct {
	ID         string `gorm:"primaryKey;size:36"`
	SenderID   uint64 `gorm:"not null"`
	ReceiverID uint64 `gorm:"not null"`
	Incoming   bool   `gorm:"not null"`
	Seen       bool   `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (cachedRequest) TableName() string { return "cached_requests" }

type cacheMeta struct {
	ID       uint   `gorm:"primaryKey"`
	UserID   uint64 `gorm:"not null"`
	Hydrated bool   `gorm:"not null"`
	SyncedAt time.Time
}

func (cacheMeta) TableName() string { return "cache_meta" }

// Cache is the durable per-identity, per-device projection: own likes,
// own matches, own pending requests, unread/seen markers.
//
// Mutating client actions write here optimistically before the
// authoritative call resolves; an authoritative failure does not roll the
// write back (see the reconciler for how drift is repaired).
type Cache struct {
	db     *gorm.DB
	userID uint64
}

// Open opens (creating if necessary) the cache file for one identity.
// Use ":memory:" as path for throwaway caches in tests.
func Open(path string, userID uint64) (*Cache, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open client cache: %w", err)
	}
	if err := gdb.AutoMigrate(&cachedLike{}, &cachedMatch{}, &cachedRequest{}, &cacheMeta{}); err != nil {
		return nil, fmt.Errorf("failed to migrate client cache: %w", err)
	}

	var meta cacheMeta
	err = gdb.First(&meta, 1).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		meta = cacheMeta{ID: 1, UserID: userID}
		if err := gdb.Create(&meta).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case meta.UserID != userID:
		return nil, fmt.Errorf("cache file belongs to user %d, not %d", meta.UserID, userID)
	}

	return &Cache{db: gdb, userID: userID}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UserID returns the identity this cache file is scoped to.
func (c *Cache) UserID() uint64 { return c.userID }

// Hydrated reports whether the cache has adopted an authoritative view at
// least once. An unhydrated cache treats remote state as cold hydration,
// not as live events.
func (c *Cache) Hydrated() (bool, error) {
	var meta cacheMeta
	if err := c.db.First(&meta, 1).Error; err != nil {
		return false, err
	}
	return meta.Hydrated, nil
}

func (c *Cache) markHydrated() error {
	return c.db.Model(&cacheMeta{}).
		Where("id = 1").
		Updates(map[string]interface{}{"hydrated": true, "synced_at": time.Now().UTC()}).Error
}

// AddLike records an outgoing like, unconfirmed until the authoritative
// submission succeeds. Idempotent; re-adding never clears a confirmation.
func (c *Cache) AddLike(otherID uint64) error {
	return c.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cachedLike{OtherID: otherID}).Error
}

// ConfirmLike records that the authoritative store accepted the like.
// No-op if the like is unknown.
func (c *Cache) ConfirmLike(otherID uint64) error {
	return c.db.Model(&cachedLike{}).
		Where("other_id = ?", otherID).
		Update("confirmed", true).Error
}

// UnconfirmedLikes returns the ids of likes still awaiting authoritative
// confirmation; the reconciler re-submits these.
func (c *Cache) UnconfirmedLikes() ([]uint64, error) {
	var rows []cachedLike
	if err := c.db.Where("confirmed = ?", false).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.OtherID)
	}
	return out, nil
}

// Likes returns the ids the user has liked.
func (c *Cache) Likes() ([]uint64, error) {
	var rows []cachedLike
	if err := c.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.OtherID)
	}
	return out, nil
}

// AddMatch records a match with otherID. Idempotent: re-adding an existing
// match does not reset its unread flag.
func (c *Cache) AddMatch(otherID uint64, unread bool) error {
	return c.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cachedMatch{OtherID: otherID, Unread: unread}).Error
}

// HasMatch reports whether the cache holds a match with otherID.
func (c *Cache) HasMatch(otherID uint64) (bool, error) {
	var count int64
	err := c.db.Model(&cachedMatch{}).Where("other_id = ?", otherID).Count(&count).Error
	return count > 0, err
}

// Matches returns the counterpart ids of all cached matches.
func (c *Cache) Matches() ([]uint64, error) {
	var rows []cachedMatch
	if err := c.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.OtherID)
	}
	return out, nil
}

// UnreadMatches returns counterpart ids of matches still marked unread.
func (c *Cache) UnreadMatches() ([]uint64, error) {
	var rows []cachedMatch
	if err := c.db.Where("unread = ?", true).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.OtherID)
	}
	return out, nil
}

// MarkMatchRead clears the unread flag. No-op if already read or unknown.
func (c *Cache) MarkMatchRead(otherID uint64) error {
	return c.db.Model(&cachedMatch{}).
		Where("other_id = ?", otherID).
		Update("unread", false).Error
}

// AddRequest stores a pending request row. Idempotent by request id.
func (c *Cache) AddRequest(r Request) error {
	row := cachedRequest{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Incoming:   r.Incoming,
		Seen:       r.Seen,
	}
	return c.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// RemoveRequest drops a request row (consumed or withdrawn). Idempotent.
func (c *Cache) RemoveRequest(id string) error {
	return c.db.Where("id = ?", id).Delete(&cachedRequest{}).Error
}

// MarkRequestSeen flags an incoming request as seen. No-op if unknown.
func (c *Cache) MarkRequestSeen(id string) error {
	return c.db.Model(&cachedRequest{}).
		Where("id = ?", id).
		Update("seen", true).Error
}

// Requests returns all cached pending requests.
func (c *Cache) Requests() ([]Request, error) {
	var rows []cachedRequest
	if err := c.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Request, 0, len(rows))
	for _, r := range rows {
		out = append(out, Request{
			ID:         r.ID,
			SenderID:   r.SenderID,
			ReceiverID: r.ReceiverID,
			Incoming:   r.Incoming,
			Seen:       r.Seen,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}

// RequestFromSender finds the cached incoming request sent by senderID,
// or nil if none is cached.
func (c *Cache) RequestFromSender(senderID uint64) (*Request, error) {
	var row cachedRequest
	err := c.db.Where("sender_id = ? AND incoming = ?", senderID, true).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Request{
		ID: row.ID, SenderID: row.SenderID, ReceiverID: row.ReceiverID,
		Incoming: row.Incoming, Seen: row.Seen, CreatedAt: row.CreatedAt,
	}, nil
}

// RequestToReceiver finds the cached outgoing request to receiverID,
// or nil if none is cached.
func (c *Cache) RequestToReceiver(receiverID uint64) (*Request, error) {
	var row cachedRequest
	err := c.db.Where("receiver_id = ? AND incoming = ?", receiverID, false).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Request{
		ID: row.ID, SenderID: row.SenderID, ReceiverID: row.ReceiverID,
		Incoming: row.Incoming, Seen: row.Seen, CreatedAt: row.CreatedAt,
	}, nil
}
