package queue

import (
	"context"

	"github.com/amity-social/amity/internal/app"
	"github.com/amity-social/amity/internal/db"
	"github.com/amity-social/amity/internal/repository"
)

// Ranker computes admission-queue positions. Read-only and deterministic:
// rank is derived from the (created_at, id) order over the full current
// waitlist on every call, never cached.
type Ranker struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
}

// NewRanker creates a ranker with dependencies from AppContext.
func NewRanker(appCtx *app.AppContext) *Ranker {
	return &Ranker{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
	}
}

// Position returns the user's 1-based rank in the admission queue, or nil
// when the user is not waitlisted.
//
// Ties on created_at break by id, giving a strict total order and
// reproducible ranks. A user with a missing admission timestamp is
// assigned one at first observation rather than sorting ahead of earlier
// joiners.
//
// Ranks read concurrently with an admission burst may be off by one;
// this is advisory ordering, not a reservation.
func (r *Ranker) Position(ctx context.Context, userID uint64) (*int64, error) {
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if u.Status != db.StatusWaitlist {
		return nil, nil
	}

	if err := r.users.EnsureAdmissionTime(ctx, u); err != nil {
		return nil, err
	}

	ahead, err := r.users.CountWaitlistedBefore(ctx, u)
	if err != nil {
		return nil, err
	}

	pos := ahead + 1
	return &pos, nil
}
