package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amity-social/amity/internal/db"
	"github.com/google/uuid"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestRepository provides data access for the MessageRequest model.
//
// Lifecycle is an explicit state machine: pending rows carry a non-NULL
// pending_key and transitions go through Consume, which updates the row
// only while it is still pending. Illegal transitions therefore degrade to
// zero-row updates instead of corrupting state.
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new repository bound to the given DB connection.
func NewRequestRepository(database *gorm.DB) *RequestRepository {
	return &RequestRepository{db: database}
}

func pendingKey(senderID, receiverID uint64) string {
	return fmt.Sprintf("%d-%d", senderID, receiverID)
}

// CreatePending inserts a pending request sender → receiver.
//
// Behavior:
//   - The unique index on pending_key enforces at most one pending request
//     per ordered pair at the storage layer; a concurrent duplicate insert
//     loses the race and the existing row is returned instead.
//   - Returns the row and whether this call created it.
func (r *RequestRepository) CreatePending(
	ctx context.Context,
	senderID, receiverID uint64,
) (*db.MessageRequest, bool, error) {
	key := pendingKey(senderID, receiverID)
	req := db.MessageRequest{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     db.RequestPending,
		PendingKey: &key,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&req)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetPending(ctx, senderID, receiverID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return &req, true, nil
}

// GetPending returns the pending request sender → receiver, or
// gorm.ErrRecordNotFound if none is pending.
func (r *RequestRepository) GetPending(
	ctx context.Context,
	senderID, receiverID uint64,
) (*db.MessageRequest, error) {
	var req db.MessageRequest
	err := r.db.WithContext(ctx).
		Where("pending_key = ?", pendingKey(senderID, receiverID)).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// HasPending reports whether a pending request sender → receiver exists.
func (r *RequestRepository) HasPending(ctx context.Context, senderID, receiverID uint64) (bool, error) {
	_, err := r.GetPending(ctx, senderID, receiverID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Consume transitions a request out of pending into toStatus, clearing its
// pending key.
//
// Behavior:
//   - Guarded by "status = pending": a request already consumed (accepted,
//     declined or cancelled, possibly by a concurrent call) is left
//     untouched and Consume reports false.
//   - Repeat calls are therefore idempotent no-ops.
func (r *RequestRepository) Consume(ctx context.Context, id, toStatus string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.MessageRequest{}).
		Where("id = ? AND status = ?", id, db.RequestPending).
		Updates(map[string]interface{}{
			"status":      toStatus,
			"pending_key": gorm.Expr("NULL"),
		})
	return res.RowsAffected > 0, res.Error
}

// ListIncoming returns the pending requests addressed to receiverID, newest first.
func (r *RequestRepository) ListIncoming(ctx context.Context, receiverID uint64) ([]db.MessageRequest, error) {
	var reqs []db.MessageRequest
	err := r.db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", receiverID, db.RequestPending).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// ListSent returns the pending requests sent by senderID, newest first.
func (r *RequestRepository) ListSent(ctx context.Context, senderID uint64) ([]db.MessageRequest, error) {
	var reqs []db.MessageRequest
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND status = ?", senderID, db.RequestPending).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}
