package account

import (
	"context"

	"github.com/amity-social/amity/internal/app"
	"github.com/amity-social/amity/internal/db"
	svcErr "github.com/amity-social/amity/internal/errors"
	"github.com/amity-social/amity/internal/repository"
)

// Service covers the account-adjacent surfaces around the engine:
// presence heartbeats, notification subscriptions, and privileged
// status/role overrides.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	subs   *repository.SubscriptionRepository
}

// NewService creates the account service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		subs:   repository.NewSubscriptionRepository(appCtx.DB),
	}
}

// Heartbeat records that the user is online. Last-write-wins in Redis,
// independent of any match/request mutation.
func (s *Service) Heartbeat(ctx context.Context, userID uint64) error {
	return s.appCtx.RedisCache.Heartbeat(ctx, userID)
}

// Online reports whether the user heartbeated recently.
func (s *Service) Online(ctx context.Context, userID uint64) (bool, error) {
	return s.appCtx.RedisCache.IsOnline(ctx, userID)
}

// RegisterSubscription adds a notification target for the user and
// returns the subscription id.
func (s *Service) RegisterSubscription(ctx context.Context, userID uint64, target string) (string, error) {
	if target == "" {
		return "", svcErr.Invalid("target must not be empty")
	}
	sub, err := s.subs.Create(ctx, userID, target)
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

// UnregisterSubscription removes a subscription. No-op if already gone.
func (s *Service) UnregisterSubscription(ctx context.Context, id string) error {
	return s.subs.Delete(ctx, id)
}

// OverrideStatus force-sets a user's admission status and optionally role.
// Privileged path for admin callers; bypasses the engine and the ranker,
// which reflect the change on their next read.
func (s *Service) OverrideStatus(ctx context.Context, userID uint64, status, role string) error {
	switch status {
	case db.StatusActive, db.StatusWaitlist, db.StatusBanned:
	default:
		return svcErr.Invalid("status must be one of active, waitlist, banned")
	}
	if role != "" && role != db.RoleMember && role != db.RoleAdmin {
		return svcErr.Invalid("role must be one of member, admin")
	}

	if err := s.users.OverrideStatus(ctx, userID, status, role); err != nil {
		return err
	}
	s.appCtx.Logger.Info("status override applied", "user", userID, "status", status, "role", role)
	return nil
}
