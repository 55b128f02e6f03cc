package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amity-social/amity/internal/app"
	"github.com/amity-social/amity/internal/cache"
	"github.com/amity-social/amity/internal/channel"
	"github.com/amity-social/amity/internal/db"
	svcErr "github.com/amity-social/amity/internal/errors"
	"github.com/amity-social/amity/internal/notify"
	"github.com/amity-social/amity/internal/repository"

	"gorm.io/gorm"
)

// Service is the relationship engine: likes, matches and the message
// request lifecycle. It is the only code path that creates Match records.
type Service struct {
	appCtx     *app.AppContext
	likes      *repository.LikeRepository
	matches    *repository.MatchRepository
	requests   *repository.RequestRepository
	markers    *repository.MarkerRepository
	dispatcher *notify.Dispatcher
}

// NewService creates the engine with dependencies from AppContext.
// The dispatcher may be nil (no notifications), e.g. in offline tooling.
func NewService(appCtx *app.AppContext, dispatcher *notify.Dispatcher) *Service {
	return &Service{
		appCtx:     appCtx,
		likes:      repository.NewLikeRepository(appCtx.DB),
		matches:    repository.NewMatchRepository(appCtx.DB),
		requests:   repository.NewRequestRepository(appCtx.DB),
		markers:    repository.NewMarkerRepository(appCtx.DB),
		dispatcher: dispatcher,
	}
}

// SubmitLike records liker → liked and promotes the pair to a Match when
// the reverse like already exists.
//
// Behavior:
//   - The like insert is idempotent (no-op when the pair exists).
//   - Returns whether THIS call created a new Match. "A match already
//     existed" is false: only genuinely new matches may trigger
//     celebrations or notifications downstream.
//   - Safe under concurrent submission of both directions: the match
//     table's canonical-pair key guarantees a single winner.
func (s *Service) SubmitLike(ctx context.Context, likerID, likedID uint64) (bool, error) {
	if likerID == likedID {
		return false, svcErr.Invalid("cannot like yourself")
	}

	inserted, err := s.likes.Insert(ctx, likerID, likedID)
	if err != nil {
		return false, err
	}

	reverse, err := s.likes.Exists(ctx, likedID, likerID)
	if err != nil {
		return false, err
	}
	if !reverse {
		if inserted {
			s.notifyUser(likedID, notify.Notification{
				Title:    "Someone likes you",
				Body:     "Open the app to see who.",
				DeepLink: "amity://liked-you",
			})
		}
		return false, nil
	}

	created, err := s.matches.CreateIfAbsent(ctx, likerID, likedID)
	if err != nil {
		return false, err
	}
	if created {
		s.afterMatch(ctx, likerID, likedID)
	}
	return created, nil
}

// SendMessageRequest opens a pending request sender → receiver.
//
// Behavior:
//   - Rejected when the pair is already matched (requests are superseded
//     by a direct match).
//   - A duplicate pending request is a success-shaped no-op: the existing
//     request id is returned with created = false.
func (s *Service) SendMessageRequest(ctx context.Context, senderID, receiverID uint64) (string, bool, error) {
	if senderID == receiverID {
		return "", false, svcErr.Invalid("cannot message yourself")
	}

	matched, err := s.matches.Exists(ctx, senderID, receiverID)
	if err != nil {
		return "", false, err
	}
	if matched {
		return "", false, svcErr.Conflict("pair is already matched")
	}

	req, created, err := s.requests.CreatePending(ctx, senderID, receiverID)
	if err != nil {
		return "", false, err
	}

	if created {
		s.notifyUser(receiverID, notify.Notification{
			Title:    "New message request",
			Body:     "Someone wants to chat with you.",
			DeepLink: "amity://requests",
		})
	} else {
		s.appCtx.Logger.Debug("duplicate message request ignored",
			"sender", senderID, "receiver", receiverID, "request", req.ID)
	}
	return req.ID, created, nil
}

// AcceptMessageRequest consumes the pending request sender → receiver and
// promotes the pair to a Match.
//
// Behavior:
//   - Seeds the bidirectional like pair if either side is missing, so the
//     graph stays consistent with "matched implies mutually liked".
//   - Idempotent: accepting an already-consumed (or never-sent) request is
//     a no-op and returns newMatch = false.
func (s *Service) AcceptMessageRequest(ctx context.Context, receiverID, senderID uint64) (bool, error) {
	req, err := s.requests.GetPending(ctx, senderID, receiverID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.appCtx.Logger.Debug("accept on absent request",
			"sender", senderID, "receiver", receiverID)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// consume, like seeding and match creation commit together: a store
	// failure mid-way must not strand an accepted request without its match
	var created bool
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		consumed, err := repository.NewRequestRepository(tx).Consume(ctx, req.ID, db.RequestAccepted)
		if err != nil {
			return err
		}
		if !consumed {
			// lost a race with another accept/decline; end state already settled
			return nil
		}

		likes := repository.NewLikeRepository(tx)
		if _, err := likes.Insert(ctx, senderID, receiverID); err != nil {
			return err
		}
		if _, err := likes.Insert(ctx, receiverID, senderID); err != nil {
			return err
		}

		created, err = repository.NewMatchRepository(tx).CreateIfAbsent(ctx, senderID, receiverID)
		return err
	})
	if err != nil {
		return false, err
	}
	if created {
		s.afterMatch(ctx, senderID, receiverID)
	}
	return created, nil
}

// DeclineMessageRequest consumes the pending request sender → receiver
// with no other side effects. No-op if the request is already gone.
func (s *Service) DeclineMessageRequest(ctx context.Context, receiverID, senderID uint64) error {
	return s.consumeRequest(ctx, senderID, receiverID, db.RequestDeclined)
}

// CancelMessageRequest withdraws the sender's own pending request.
// No-op if the request is already gone.
func (s *Service) CancelMessageRequest(ctx context.Context, senderID, receiverID uint64) error {
	return s.consumeRequest(ctx, senderID, receiverID, db.RequestCancelled)
}

func (s *Service) consumeRequest(ctx context.Context, senderID, receiverID uint64, toStatus string) error {
	req, err := s.requests.GetPending(ctx, senderID, receiverID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.appCtx.Logger.Debug("transition on absent request",
			"sender", senderID, "receiver", receiverID, "to", toStatus)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.requests.Consume(ctx, req.ID, toStatus)
	return err
}

// AdoptMatch records a match known to a client but absent from the
// authoritative store (reconciliation push-up). Idempotent and silent: no
// markers, no notifications — the client already surfaced this match.
func (s *Service) AdoptMatch(ctx context.Context, a, b uint64) error {
	if a == b {
		return svcErr.Invalid("cannot match a user with themselves")
	}
	if err := s.adoptMatch(ctx, a, b); err != nil {
		return err
	}
	_, err := s.matches.CreateIfAbsent(ctx, a, b)
	return err
}

// adoptMatch seeds both like directions for a pair about to be matched.
func (s *Service) adoptMatch(ctx context.Context, a, b uint64) error {
	if _, err := s.likes.Insert(ctx, a, b); err != nil {
		return err
	}
	if _, err := s.likes.Insert(ctx, b, a); err != nil {
		return err
	}
	return nil
}

// afterMatch applies the side effects of a freshly created match: unread
// markers and badge bumps for both users, then a notification each.
// Marker and badge writes are best-effort; the match itself has committed.
func (s *Service) afterMatch(ctx context.Context, a, b uint64) {
	for _, pair := range [2][2]uint64{{a, b}, {b, a}} {
		userID, otherID := pair[0], pair[1]

		if err := s.markers.AddUnreadMatch(ctx, userID, otherID); err != nil {
			s.appCtx.Logger.Warn("failed to add unread marker", "user", userID, "err", err)
		}

		key := s.appCtx.RedisCache.KeyForUnreadMatches(userID)
		if _, err := s.appCtx.RedisCache.Incr(ctx, key); err == nil {
			_ = s.appCtx.RedisCache.Client.Expire(ctx, key, cache.BadgeTTL).Err()
		}

		s.notifyUser(userID, notify.Notification{
			Title:    "It's a match!",
			Body:     "You can message each other now.",
			DeepLink: fmt.Sprintf("amity://chat/%s", channel.ID(a, b)),
		})
	}

	s.appCtx.Logger.Info("match created", "channel", channel.ID(a, b))
}

func (s *Service) notifyUser(userID uint64, n notify.Notification) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(userID, n)
}

//
// Read projections
//

// Liker is one entry of the "liked you" listing.
type Liker struct {
	UserID    uint64
	Timestamp time.Time
}

// ListLikedYou returns users who liked userID, newest first, with cursor
// pagination. newOnly excludes likers already liked back.
func (s *Service) ListLikedYou(
	ctx context.Context,
	userID uint64,
	paginationToken *string,
	limit int,
	newOnly bool,
) ([]Liker, *string, error) {
	likes, nextToken, err := s.likes.GetLikers(ctx, userID, paginationToken, limit, newOnly)
	if err != nil {
		return nil, nil, err
	}
	likers := make([]Liker, 0, len(likes))
	for _, l := range likes {
		likers = append(likers, Liker{UserID: l.LikerID, Timestamp: l.CreatedAt})
	}
	return likers, nextToken, nil
}

// ListMatches returns the counterpart ids of the user's matches.
func (s *Service) ListMatches(ctx context.Context, userID uint64) ([]uint64, error) {
	return s.matches.ListForUser(ctx, userID)
}

// IncomingRequest is one entry of the incoming-request listing, decorated
// with the receiver's seen marker.
type IncomingRequest struct {
	db.MessageRequest
	Seen bool
}

// ListIncomingRequests returns the pending requests addressed to userID,
// each carrying whether the user has already seen it.
func (s *Service) ListIncomingRequests(ctx context.Context, userID uint64) ([]IncomingRequest, error) {
	reqs, err := s.requests.ListIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	seenIDs, err := s.markers.ListSeenRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(seenIDs))
	for _, id := range seenIDs {
		seen[id] = true
	}

	out := make([]IncomingRequest, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, IncomingRequest{MessageRequest: req, Seen: seen[req.ID]})
	}
	return out, nil
}

// ListSentRequests returns the user's own pending requests.
func (s *Service) ListSentRequests(ctx context.Context, userID uint64) ([]db.MessageRequest, error) {
	return s.requests.ListSent(ctx, userID)
}

// MarkMatchRead clears the unread marker for one match and refreshes the
// badge count cache from the authoritative set.
func (s *Service) MarkMatchRead(ctx context.Context, userID, otherID uint64) error {
	if err := s.markers.RemoveUnreadMatch(ctx, userID, otherID); err != nil {
		return err
	}
	count, err := s.markers.CountUnreadMatches(ctx, userID)
	if err == nil {
		_ = s.appCtx.RedisCache.UpdateUnreadMatches(ctx, userID, count)
	}
	return nil
}

// MarkRequestSeen adds the request to the user's seen set. Idempotent.
func (s *Service) MarkRequestSeen(ctx context.Context, userID uint64, requestID string) error {
	return s.markers.MarkRequestSeen(ctx, userID, requestID)
}

// UnreadMatchCount returns the user's unread-match badge.
// Cache-first strategy:
//  1. Attempts to read from Redis (unread:matches:userID).
//  2. On miss, falls back to the unread_matches table.
//  3. On DB fetch, updates Redis with the badge TTL.
func (s *Service) UnreadMatchCount(ctx context.Context, userID uint64) (int64, error) {
	if count, ok, err := s.appCtx.RedisCache.GetUnreadMatches(ctx, userID); err == nil && ok {
		return count, nil
	}

	count, err := s.markers.CountUnreadMatches(ctx, userID)
	if err != nil {
		return 0, err
	}
	_ = s.appCtx.RedisCache.UpdateUnreadMatches(ctx, userID, count)
	return count, nil
}
