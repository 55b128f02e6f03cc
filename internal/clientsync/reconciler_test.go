package clientsync_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amity-social/amity/internal/clientsync"
)

// fakeRemote is an in-memory authoritative view.
type fakeRemote struct {
	mu       sync.Mutex
	matches  []uint64
	requests []clientsync.Request
	likes    [][2]uint64
	pushes   int
	pushErr  error
}

func (f *fakeRemote) Matches(context.Context, uint64) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.matches...), nil
}

func (f *fakeRemote) IncomingRequests(context.Context, uint64) ([]clientsync.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]clientsync.Request(nil), f.requests...), nil
}

func (f *fakeRemote) PushMatch(_ context.Context, _, other uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
	if f.pushErr != nil {
		return f.pushErr
	}
	f.matches = append(f.matches, other)
	return nil
}

func (f *fakeRemote) SubmitLike(_ context.Context, likerID, likedID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.likes = append(f.likes, [2]uint64{likerID, likedID})
	return false, nil
}

func (f *fakeRemote) likeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.likes)
}

func (f *fakeRemote) SendRequest(context.Context, uint64, uint64) (string, bool, error) {
	return "", false, nil
}
func (f *fakeRemote) AcceptRequest(context.Context, uint64, uint64) (bool, error) {
	return false, nil
}
func (f *fakeRemote) DeclineRequest(context.Context, uint64, uint64) error  { return nil }
func (f *fakeRemote) CancelRequest(context.Context, uint64, uint64) error   { return nil }
func (f *fakeRemote) MarkMatchRead(context.Context, uint64, uint64) error   { return nil }
func (f *fakeRemote) MarkRequestSeen(context.Context, uint64, string) error { return nil }

func setupReconciler(t *testing.T, remote clientsync.Remote) (*clientsync.Reconciler, *clientsync.Cache) {
	t.Helper()

	cache, err := clientsync.Open(":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return clientsync.NewReconciler(cache, remote, logger), cache
}

// TestColdHydrationSilence: the first sync of an empty cache adopts the
// remote view wholesale with zero events.
func TestColdHydrationSilence(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{matches: []uint64{101, 102}}
	rec, cache := setupReconciler(t, remote)

	events, err := rec.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, events, "cold hydration must not emit events")

	matches, err := cache.Matches()
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{101, 102}, matches)

	unread, err := cache.UnreadMatches()
	require.NoError(t, err)
	assert.Empty(t, unread, "hydrated matches are not unread")
}

// TestWarmSyncDelta: with the cache already holding {M1}, a remote view of
// {M1, M2} emits exactly one new-match event for M2.
func TestWarmSyncDelta(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{matches: []uint64{101}}
	rec, cache := setupReconciler(t, remote)

	_, err := rec.Sync(ctx) // hydrate with {101}
	require.NoError(t, err)

	remote.mu.Lock()
	remote.matches = []uint64{101, 102}
	remote.mu.Unlock()

	events, err := rec.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, clientsync.EventNewMatch, events[0].Type)
	assert.Equal(t, uint64(102), events[0].OtherID)

	matches, err := cache.Matches()
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{101, 102}, matches)

	unread, err := cache.UnreadMatches()
	require.NoError(t, err)
	assert.Equal(t, []uint64{102}, unread)

	// repeating the sync re-emits nothing
	events, err = rec.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRequestDeltaAndPruning(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	rec, cache := setupReconciler(t, remote)

	_, err := rec.Sync(ctx) // hydrate empty
	require.NoError(t, err)

	remote.mu.Lock()
	remote.requests = []clientsync.Request{
		{ID: "req-1", SenderID: 7, ReceiverID: 1, Incoming: true},
	}
	remote.mu.Unlock()

	events, err := rec.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, clientsync.EventNewRequest, events[0].Type)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, uint64(7), events[0].OtherID)

	// request consumed on another device: pruned locally, no event
	remote.mu.Lock()
	remote.requests = nil
	remote.mu.Unlock()

	events, err = rec.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	reqs, err := cache.Requests()
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

// TestPushUpRetries: a locally-known match missing remotely is pushed up;
// failures are swallowed and retried on the next pass until the
// authoritative store has it.
func TestPushUpRetries(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	rec, cache := setupReconciler(t, remote)

	_, err := rec.Sync(ctx) // hydrate empty
	require.NoError(t, err)

	// produced by an optimistic action whose authoritative call was lost
	require.NoError(t, cache.AddMatch(55, false))

	remote.mu.Lock()
	remote.pushErr = errors.New("connectivity")
	remote.mu.Unlock()

	events, err := rec.Sync(ctx)
	require.NoError(t, err, "push-up failure must not fail the pass")
	assert.Empty(t, events)
	assert.Equal(t, 1, remote.pushes)

	remote.mu.Lock()
	remote.pushErr = nil
	remote.mu.Unlock()

	_, err = rec.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, remote.pushes)

	// authoritative store converged: no further pushes
	_, err = rec.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, remote.pushes)

	matches, err := remote.Matches(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{55}, matches)
}
