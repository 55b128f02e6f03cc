package repository

import (
	"context"
	"time"

	"github.com/amity-social/amity/internal/db"

	"gorm.io/gorm"
)

// UserRepository provides data access for the User model, including the
// waitlist ordering queries behind queue ranking.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetByID fetches a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(u).Error
}

// EnsureAdmissionTime backfills a missing admission timestamp with the time
// of first observation. A record missing created_at must never sort ahead
// of earlier joiners, so it joins the queue now, not at epoch.
func (r *UserRepository) EnsureAdmissionTime(ctx context.Context, u *db.User) error {
	if !u.CreatedAt.IsZero() {
		return nil
	}
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", u.ID).
		Update("created_at", now).Error
	if err != nil {
		return err
	}
	u.CreatedAt = now
	return nil
}

// CountWaitlistedBefore counts waitlisted users strictly ahead of u in the
// (created_at, id) order. Computed against the full current waitlist on
// every call; ranks are advisory and never cached.
func (r *UserRepository) CountWaitlistedBefore(ctx context.Context, u *db.User) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("status = ?", db.StatusWaitlist).
		Where("(created_at < ? OR (created_at = ? AND id < ?))", u.CreatedAt, u.CreatedAt, u.ID).
		Count(&count).Error
	return count, err
}

// OverrideStatus force-sets a user's status and, when non-empty, role.
// Privileged path: bypasses the engine entirely; queue ranking reflects the
// change on its next read.
func (r *UserRepository) OverrideStatus(ctx context.Context, id uint64, status, role string) error {
	updates := map[string]interface{}{"status": status}
	if role != "" {
		updates["role"] = role
	}
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
