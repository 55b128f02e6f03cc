package clientsync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Session is the explicit per-user sync context: it owns the cache handle,
// the reconciler, and the mutual-exclusion flag that keeps reconciliation
// passes for this user from overlapping. There is no package-level
// "current user" state; embedders hold a Session per signed-in identity.
//
// Mutating actions are optimistic: the cache is written first, then the
// authoritative call is issued. On authoritative failure the optimistic
// write stays (local-first availability); the reconciler repairs drift on
// a later pass.
type Session struct {
	userID     uint64
	cache      *Cache
	remote     Remote
	reconciler *Reconciler
	logger     *slog.Logger

	mu sync.Mutex // serializes reconciliation passes
}

// NewSession binds a cache and a remote into a session for cache.UserID().
func NewSession(cache *Cache, remote Remote, logger *slog.Logger) *Session {
	return &Session{
		userID:     cache.UserID(),
		cache:      cache,
		remote:     remote,
		reconciler: NewReconciler(cache, remote, logger),
		logger:     logger,
	}
}

// UserID returns the identity this session is bound to.
func (s *Session) UserID() uint64 { return s.userID }

// Cache exposes the underlying projection for read-side UI queries.
func (s *Session) Cache() *Cache { return s.cache }

// Reconcile runs one sync pass. If a pass is already in flight for this
// session the call returns immediately with no events; the running pass
// will observe the same authoritative state.
func (s *Session) Reconcile(ctx context.Context) ([]Event, error) {
	if !s.mu.TryLock() {
		return nil, nil
	}
	defer s.mu.Unlock()
	return s.reconciler.Sync(ctx)
}

// Like records an outgoing like and submits it. Returns whether this
// action created a new match, which the UI may celebrate immediately.
func (s *Session) Like(ctx context.Context, otherID uint64) (bool, error) {
	if err := s.cache.AddLike(otherID); err != nil {
		return false, err
	}

	newMatch, err := s.remote.SubmitLike(ctx, s.userID, otherID)
	if err != nil {
		// stays unconfirmed; the reconciler re-submits it next pass
		s.logger.Warn("like not confirmed; will repair on next sync",
			"user", s.userID, "other", otherID, "err", err)
		return false, nil
	}
	if err := s.cache.ConfirmLike(otherID); err != nil {
		return newMatch, err
	}
	if newMatch {
		// own action: merged read, the celebration happens right now
		if err := s.cache.AddMatch(otherID, false); err != nil {
			return true, err
		}
	}
	return newMatch, nil
}

// SendRequest opens a message request to receiverID. The optimistic row
// carries a local id until the authoritative id is known.
func (s *Session) SendRequest(ctx context.Context, receiverID uint64) error {
	localID := uuid.NewString()
	if err := s.cache.AddRequest(Request{
		ID:         localID,
		SenderID:   s.userID,
		ReceiverID: receiverID,
		Incoming:   false,
	}); err != nil {
		return err
	}

	serverID, _, err := s.remote.SendRequest(ctx, s.userID, receiverID)
	if err != nil {
		s.logger.Warn("request not confirmed; kept locally",
			"user", s.userID, "receiver", receiverID, "err", err)
		return nil
	}
	if serverID != localID {
		_ = s.cache.RemoveRequest(localID)
		_ = s.cache.AddRequest(Request{
			ID:         serverID,
			SenderID:   s.userID,
			ReceiverID: receiverID,
			Incoming:   false,
		})
	}
	return nil
}

// Accept consumes the incoming request from senderID and records the
// resulting match locally.
func (s *Session) Accept(ctx context.Context, senderID uint64) error {
	if req, err := s.cache.RequestFromSender(senderID); err == nil && req != nil {
		_ = s.cache.RemoveRequest(req.ID)
	}
	if err := s.cache.AddMatch(senderID, false); err != nil {
		return err
	}

	if _, err := s.remote.AcceptRequest(ctx, s.userID, senderID); err != nil {
		s.logger.Warn("accept not confirmed; will repair on next sync",
			"user", s.userID, "sender", senderID, "err", err)
	}
	return nil
}

// Decline consumes the incoming request from senderID.
func (s *Session) Decline(ctx context.Context, senderID uint64) error {
	if req, err := s.cache.RequestFromSender(senderID); err == nil && req != nil {
		_ = s.cache.RemoveRequest(req.ID)
	}
	if err := s.remote.DeclineRequest(ctx, s.userID, senderID); err != nil {
		s.logger.Warn("decline not confirmed", "user", s.userID, "sender", senderID, "err", err)
	}
	return nil
}

// Cancel withdraws the user's own pending request to receiverID.
func (s *Session) Cancel(ctx context.Context, receiverID uint64) error {
	if req, err := s.cache.RequestToReceiver(receiverID); err == nil && req != nil {
		_ = s.cache.RemoveRequest(req.ID)
	}
	if err := s.remote.CancelRequest(ctx, s.userID, receiverID); err != nil {
		s.logger.Warn("cancel not confirmed", "user", s.userID, "receiver", receiverID, "err", err)
	}
	return nil
}

// MarkRequestSeen flags the incoming request from senderID as seen,
// locally then authoritatively. No-op if no such request is cached.
func (s *Session) MarkRequestSeen(ctx context.Context, senderID uint64) error {
	req, err := s.cache.RequestFromSender(senderID)
	if err != nil || req == nil {
		return err
	}
	if err := s.cache.MarkRequestSeen(req.ID); err != nil {
		return err
	}
	if err := s.remote.MarkRequestSeen(ctx, s.userID, req.ID); err != nil {
		s.logger.Warn("seen marker not confirmed", "user", s.userID, "request", req.ID, "err", err)
	}
	return nil
}

// MarkMatchRead clears the unread flag locally and authoritatively.
func (s *Session) MarkMatchRead(ctx context.Context, otherID uint64) error {
	if err := s.cache.MarkMatchRead(otherID); err != nil {
		return err
	}
	if err := s.remote.MarkMatchRead(ctx, s.userID, otherID); err != nil {
		s.logger.Warn("mark-read not confirmed", "user", s.userID, "other", otherID, "err", err)
	}
	return nil
}
