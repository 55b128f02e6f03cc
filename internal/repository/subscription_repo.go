package repository

import (
	"context"

	"github.com/amity-social/amity/internal/db"
	"github.com/google/uuid"

	"gorm.io/gorm"
)

// SubscriptionRepository provides data access for notification subscriptions.
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new repository bound to the given DB connection.
func NewSubscriptionRepository(database *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: database}
}

// Create registers a notification target for a user and returns the record.
func (r *SubscriptionRepository) Create(ctx context.Context, userID uint64, target string) (*db.Subscription, error) {
	sub := db.Subscription{
		ID:     uuid.NewString(),
		UserID: userID,
		Target: target,
	}
	if err := r.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// Delete removes a subscription. No-op if already gone.
func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&db.Subscription{}).Error
}

// ListForUser returns all subscriptions registered for a user.
func (r *SubscriptionRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Subscription, error) {
	var subs []db.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&subs).Error
	return subs, err
}
