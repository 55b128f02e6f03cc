package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/amity-social/amity/internal/repository"
)

// ErrSubscriberGone marks a destination as permanently invalid. Transports
// return it (wrapped or bare) when the target can never be delivered to
// again; the dispatcher prunes the registration in response.
var ErrSubscriberGone = errors.New("subscriber gone")

// Notification is the payload handed to the transport.
type Notification struct {
	Title    string
	Body     string
	DeepLink string
}

// Transport delivers a notification to a single target.
type Transport interface {
	Send(ctx context.Context, target string, n Notification) error
}

// Dispatcher fans a committed state transition out to every subscriber of
// the affected user, one attempt per subscriber per trigger.
//
// Delivery is best-effort and fully decoupled from the transition that
// triggered it: failures are logged and dropped, a gone subscriber is
// deregistered, and nothing here can roll the transition back.
type Dispatcher struct {
	subs      *repository.SubscriptionRepository
	transport Transport
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given subscription store and transport.
func NewDispatcher(subs *repository.SubscriptionRepository, transport Transport, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		subs:      subs,
		transport: transport,
		logger:    logger,
	}
}

// Dispatch delivers n to all subscribers of userID asynchronously.
// Fire-and-forget: returns immediately, holds no storage locks.
func (d *Dispatcher) Dispatch(userID uint64, n Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(context.Background(), userID, n)
	}()
}

// Wait blocks until all in-flight dispatches have finished.
// Used on shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, userID uint64, n Notification) {
	subs, err := d.subs.ListForUser(ctx, userID)
	if err != nil {
		d.logger.Warn("failed to list subscribers", "user", userID, "err", err)
		return
	}

	for _, sub := range subs {
		err := d.transport.Send(ctx, sub.Target, n)
		switch {
		case err == nil:

		case errors.Is(err, ErrSubscriberGone):
			// dead target: deregister so future dispatches skip it
			if derr := d.subs.Delete(ctx, sub.ID); derr != nil {
				d.logger.Warn("failed to prune dead subscriber", "subscription", sub.ID, "err", derr)
			} else {
				d.logger.Info("pruned dead subscriber", "subscription", sub.ID, "user", userID)
			}

		default:
			// isolated per subscriber: log and move on
			d.logger.Warn("notification delivery failed",
				"subscription", sub.ID, "user", userID, "err", err)
		}
	}
}

// LogTransport writes notifications to the log instead of a push provider.
// Default transport for development environments.
type LogTransport struct {
	Logger *slog.Logger
}

func (t *LogTransport) Send(_ context.Context, target string, n Notification) error {
	t.Logger.Info("notification",
		"target", target, "title", n.Title, "body", n.Body, "deep_link", n.DeepLink)
	return nil
}
