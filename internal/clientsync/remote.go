package clientsync

import (
	"context"

	"github.com/amity-social/amity/internal/service/matching"
)

// EngineRemote adapts the in-process engine as a Remote. Used by tools and
// tests that embed the engine directly; networked clients provide their
// own Remote over the HTTP API instead.
type EngineRemote struct {
	Engine *matching.Service
}

func (r *EngineRemote) Matches(ctx context.Context, userID uint64) ([]uint64, error) {
	return r.Engine.ListMatches(ctx, userID)
}

func (r *EngineRemote) IncomingRequests(ctx context.Context, userID uint64) ([]Request, error) {
	reqs, err := r.Engine.ListIncomingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Request, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, Request{
			ID:         req.ID,
			SenderID:   req.SenderID,
			ReceiverID: req.ReceiverID,
			Incoming:   true,
			Seen:       req.Seen,
			CreatedAt:  req.CreatedAt,
		})
	}
	return out, nil
}

func (r *EngineRemote) SubmitLike(ctx context.Context, likerID, likedID uint64) (bool, error) {
	return r.Engine.SubmitLike(ctx, likerID, likedID)
}

func (r *EngineRemote) SendRequest(ctx context.Context, senderID, receiverID uint64) (string, bool, error) {
	return r.Engine.SendMessageRequest(ctx, senderID, receiverID)
}

func (r *EngineRemote) AcceptRequest(ctx context.Context, receiverID, senderID uint64) (bool, error) {
	return r.Engine.AcceptMessageRequest(ctx, receiverID, senderID)
}

func (r *EngineRemote) DeclineRequest(ctx context.Context, receiverID, senderID uint64) error {
	return r.Engine.DeclineMessageRequest(ctx, receiverID, senderID)
}

func (r *EngineRemote) CancelRequest(ctx context.Context, senderID, receiverID uint64) error {
	return r.Engine.CancelMessageRequest(ctx, senderID, receiverID)
}

func (r *EngineRemote) MarkMatchRead(ctx context.Context, userID, otherID uint64) error {
	return r.Engine.MarkMatchRead(ctx, userID, otherID)
}

func (r *EngineRemote) MarkRequestSeen(ctx context.Context, userID uint64, requestID string) error {
	return r.Engine.MarkRequestSeen(ctx, userID, requestID)
}

func (r *EngineRemote) PushMatch(ctx context.Context, a, b uint64) error {
	return r.Engine.AdoptMatch(ctx, a, b)
}
