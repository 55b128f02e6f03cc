package repository

import (
	"context"
	"time"

	"github.com/amity-social/amity/internal/db"
	"github.com/amity-social/amity/internal/utils/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository provides data access for the Like model.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Insert records liker → liked.
//
// Behavior:
//   - Keyed by the ordered pair (composite PK); re-inserting an existing
//     like is a no-op at the storage layer, never a second row.
//   - Returns whether a new row was written.
//
// Example:
//
//	repo.Insert(ctx, 1, 2) // user 1 liked user 2
func (r *LikeRepository) Insert(ctx context.Context, likerID, likedID uint64) (bool, error) {
	like := db.Like{
		LikerID: likerID,
		LikedID: likedID,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like)
	return res.RowsAffected > 0, res.Error
}

// Exists checks whether liker has liked liked.
func (r *LikeRepository) Exists(ctx context.Context, likerID, likedID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Count(&count).Error
	return count > 0, err
}

// GetLikers returns users who liked the given recipient.
//
// Behavior:
//   - newOnly excludes likers the recipient already likes back (those pairs
//     are matches, not pending interest).
//   - Ordered by created_at DESC, liker_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.GetLikers(ctx, 42, nil, 20, false) // first 20 people who liked user 42
func (r *LikeRepository) GetLikers(
	ctx context.Context,
	likedID uint64,
	paginationToken *string,
	limit int,
	newOnly bool,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.liked_id = ?", likedID).
		Order("l.created_at DESC, l.liker_id DESC").
		Limit(limit + 1)

	if newOnly {
		query = query.Where(`
			NOT EXISTS (
				SELECT 1 FROM likes l2
				WHERE l2.liker_id = ?
				  AND l2.liked_id = l.liker_id
			)`, likedID)
	}

	// apply cursor
	if cursor.LikerID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.liker_id < ?))",
			ts, ts, cursor.LikerID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			LikerID:     last.LikerID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
