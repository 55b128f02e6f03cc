package repository

import (
	"context"

	"github.com/amity-social/amity/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MarkerRepository provides set-valued access to the per-user derived
// marker tables (unread matches, seen requests). Adds are conditional
// inserts and removes are plain deletes, so every operation is idempotent.
type MarkerRepository struct {
	db *gorm.DB
}

// NewMarkerRepository creates a new repository bound to the given DB connection.
func NewMarkerRepository(database *gorm.DB) *MarkerRepository {
	return &MarkerRepository{db: database}
}

// AddUnreadMatch marks the match with otherID as unread for userID.
func (r *MarkerRepository) AddUnreadMatch(ctx context.Context, userID, otherID uint64) error {
	m := db.UnreadMatch{UserID: userID, OtherID: otherID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m).Error
}

// RemoveUnreadMatch clears the unread marker. No-op if already cleared.
func (r *MarkerRepository) RemoveUnreadMatch(ctx context.Context, userID, otherID uint64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND other_id = ?", userID, otherID).
		Delete(&db.UnreadMatch{}).Error
}

// CountUnreadMatches returns the size of the user's unread-match set.
func (r *MarkerRepository) CountUnreadMatches(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.UnreadMatch{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// ListUnreadMatches returns the counterpart ids in the user's unread-match set.
func (r *MarkerRepository) ListUnreadMatches(ctx context.Context, userID uint64) ([]uint64, error) {
	var rows []db.UnreadMatch
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	others := make([]uint64, 0, len(rows))
	for _, m := range rows {
		others = append(others, m.OtherID)
	}
	return others, nil
}

// MarkRequestSeen adds the request to the user's seen set.
func (r *MarkerRepository) MarkRequestSeen(ctx context.Context, userID uint64, requestID string) error {
	m := db.SeenRequest{UserID: userID, RequestID: requestID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m).Error
}

// ListSeenRequests returns the request ids the user has already seen.
func (r *MarkerRepository) ListSeenRequests(ctx context.Context, userID uint64) ([]string, error) {
	var rows []db.SeenRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.RequestID)
	}
	return ids, nil
}
