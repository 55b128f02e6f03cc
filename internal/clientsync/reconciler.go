package clientsync

import (
	"context"
	"log/slog"
)

// EventType classifies a transition surfaced by reconciliation.
type EventType string

const (
	// EventNewMatch is a match the cache did not know about — eligible for
	// a celebration UI or push.
	EventNewMatch EventType = "new_match"
	// EventNewRequest is an incoming message request the cache did not
	// know about.
	EventNewRequest EventType = "new_request"
)

// Event is one genuinely new transition observed during a sync pass.
type Event struct {
	Type      EventType
	OtherID   uint64
	RequestID string
}

// Remote is the authoritative store as seen from the client: the read
// views the reconciler folds in, plus the mutating operations the session
// issues. All mutations are idempotent on the authoritative side.
type Remote interface {
	Matches(ctx context.Context, userID uint64) ([]uint64, error)
	IncomingRequests(ctx context.Context, userID uint64) ([]Request, error)

	SubmitLike(ctx context.Context, likerID, likedID uint64) (bool, error)
	SendRequest(ctx context.Context, senderID, receiverID uint64) (string, bool, error)
	AcceptRequest(ctx context.Context, receiverID, senderID uint64) (bool, error)
	DeclineRequest(ctx context.Context, receiverID, senderID uint64) error
	CancelRequest(ctx context.Context, senderID, receiverID uint64) error
	MarkMatchRead(ctx context.Context, userID, otherID uint64) error
	MarkRequestSeen(ctx context.Context, userID uint64, requestID string) error

	// PushMatch records a match known only locally. Safe to retry forever.
	PushMatch(ctx context.Context, a, b uint64) error
}

// Reconciler folds the authoritative view into the cache, emitting exactly
// the delta as events: state the cache already reflects is never
// re-surfaced as new.
type Reconciler struct {
	cache  *Cache
	remote Remote
	logger *slog.Logger
}

// NewReconciler creates a reconciler over the given cache and remote.
func NewReconciler(cache *Cache, remote Remote, logger *slog.Logger) *Reconciler {
	return &Reconciler{cache: cache, remote: remote, logger: logger}
}

// Sync runs one reconciliation pass.
//
// Behavior:
//   - First sync of an empty cache adopts the remote view wholesale with
//     zero events: cold hydration of a returning user on a fresh device is
//     not a stream of live transitions.
//   - Later syncs emit one event per match or incoming request present
//     remotely but absent locally, merging each into the cache (new
//     matches land unread).
//   - Incoming requests consumed elsewhere are pruned from the cache.
//   - Matches known only locally are pushed up; a failed push is logged
//     and retried on the next pass.
//
// A failed pull leaves the cache stale and returns the error; the caller
// simply syncs again later.
func (r *Reconciler) Sync(ctx context.Context) ([]Event, error) {
	userID := r.cache.UserID()

	remoteMatches, err := r.remote.Matches(ctx, userID)
	if err != nil {
		return nil, err
	}
	remoteRequests, err := r.remote.IncomingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}

	hydrated, err := r.cache.Hydrated()
	if err != nil {
		return nil, err
	}

	if !hydrated {
		return nil, r.hydrate(remoteMatches, remoteRequests)
	}

	localMatches, err := r.cache.Matches()
	if err != nil {
		return nil, err
	}
	localSet := toSet(localMatches)

	var events []Event

	// pull down new matches
	remoteSet := toSet(remoteMatches)
	for _, other := range remoteMatches {
		if localSet[other] {
			continue
		}
		if err := r.cache.AddMatch(other, true); err != nil {
			return events, err
		}
		events = append(events, Event{Type: EventNewMatch, OtherID: other})
	}

	// pull down new incoming requests, prune consumed ones
	localRequests, err := r.cache.Requests()
	if err != nil {
		return events, err
	}
	localByID := make(map[string]Request, len(localRequests))
	for _, req := range localRequests {
		localByID[req.ID] = req
	}
	remoteByID := make(map[string]bool, len(remoteRequests))
	for _, req := range remoteRequests {
		remoteByID[req.ID] = true
		if local, known := localByID[req.ID]; known {
			// seen on another device is not an event, just merged state
			if req.Seen && !local.Seen {
				if err := r.cache.MarkRequestSeen(req.ID); err != nil {
					return events, err
				}
			}
			continue
		}
		if err := r.cache.AddRequest(req); err != nil {
			return events, err
		}
		events = append(events, Event{Type: EventNewRequest, OtherID: req.SenderID, RequestID: req.ID})
	}
	for _, req := range localRequests {
		if req.Incoming && !remoteByID[req.ID] {
			if err := r.cache.RemoveRequest(req.ID); err != nil {
				return events, err
			}
		}
	}

	// push up matches the authoritative store does not know yet
	for _, other := range localMatches {
		if remoteSet[other] {
			continue
		}
		if err := r.remote.PushMatch(ctx, userID, other); err != nil {
			// keep going; retried on the next pass
			r.logger.Warn("match push-up failed", "user", userID, "other", other, "err", err)
		}
	}

	// re-submit likes whose authoritative write was never confirmed
	unconfirmed, err := r.cache.UnconfirmedLikes()
	if err != nil {
		return events, err
	}
	for _, other := range unconfirmed {
		if _, err := r.remote.SubmitLike(ctx, userID, other); err != nil {
			r.logger.Warn("like push-up failed", "user", userID, "other", other, "err", err)
			continue
		}
		if err := r.cache.ConfirmLike(other); err != nil {
			return events, err
		}
	}

	return events, nil
}

// hydrate adopts the remote view wholesale without emitting events.
func (r *Reconciler) hydrate(matches []uint64, requests []Request) error {
	for _, other := range matches {
		if err := r.cache.AddMatch(other, false); err != nil {
			return err
		}
	}
	for _, req := range requests {
		if err := r.cache.AddRequest(req); err != nil {
			return err
		}
	}
	if err := r.cache.markHydrated(); err != nil {
		return err
	}
	r.logger.Debug("client cache hydrated",
		"user", r.cache.UserID(), "matches", len(matches), "requests", len(requests))
	return nil
}

func toSet(ids []uint64) map[uint64]bool {
	set := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
