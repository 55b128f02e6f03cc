package repository

import (
	"context"

	"github.com/amity-social/amity/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CanonicalPair returns the unordered pair in storage order (lower id first).
// Both sides of a match must produce the same row key no matter who submits.
func CanonicalPair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// MatchRepository provides data access for the Match model.
// It is the only writer of match rows.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateIfAbsent creates the Match for the unordered pair {a, b} unless one
// already exists.
//
// Behavior:
//   - The canonical-pair composite PK plus a conditional insert make this
//     safe under concurrent submission of both directions: exactly one of
//     the two racing inserts wins, the other degrades to a no-op.
//   - Returns whether THIS call created the match. Callers use that to
//     distinguish "new match" from "match already existed".
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, a, b uint64) (bool, error) {
	ua, ub := CanonicalPair(a, b)
	match := db.Match{UserAID: ua, UserBID: ub}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&match)
	return res.RowsAffected > 0, res.Error
}

// Exists checks whether a Match exists for the unordered pair {a, b}.
func (r *MatchRepository) Exists(ctx context.Context, a, b uint64) (bool, error) {
	ua, ub := CanonicalPair(a, b)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("user_a_id = ? AND user_b_id = ?", ua, ub).
		Count(&count).Error
	return count > 0, err
}

// ListForUser returns the counterpart user ids of all matches of userID,
// newest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]uint64, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	others := make([]uint64, 0, len(matches))
	for _, m := range matches {
		if m.UserAID == userID {
			others = append(others, m.UserBID)
		} else {
			others = append(others, m.UserAID)
		}
	}
	return others, nil
}
