package matching_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amity-social/amity/internal/app"
	"github.com/amity-social/amity/internal/cache"
	"github.com/amity-social/amity/internal/config"
	"github.com/amity-social/amity/internal/db"
	svcErr "github.com/amity-social/amity/internal/errors"
	"github.com/amity-social/amity/internal/service/matching"
)

// setupService spins up an in-memory SQLite DB, applies migrations, seeds a
// minimal dataset, starts a miniredis, and wires everything into an engine
// instance. Each test gets its own isolated DB + Redis.
//
// Dataset:
//   - Users: user1 (male), user2 (female), user3 (female)
//   - user1 → user2 like already recorded
func setupService(t *testing.T) (*matching.Service, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	users := []db.User{
		{ID: 1, Username: "user1", Email: "u1@test.com", PasswordHash: "x", Gender: "male", LookingFor: "female", Status: db.StatusActive},
		{ID: 2, Username: "user2", Email: "u2@test.com", PasswordHash: "x", Gender: "female", LookingFor: "male", Status: db.StatusActive},
		{ID: 3, Username: "user3", Email: "u3@test.com", PasswordHash: "x", Gender: "female", LookingFor: "male", Status: db.StatusActive},
	}
	require.NoError(t, dbase.Create(&users).Error)
	require.NoError(t, dbase.Create(&db.Like{LikerID: 1, LikedID: 2}).Error)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	appCtx := app.New(dbase, redisCache, logger)
	return matching.NewService(appCtx, nil), dbase
}

func matchCount(t *testing.T, dbase *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	return count
}

// TestSubmitLikeCreatesMatch covers the core scenario: A likes B, B likes A
// back → the second submission creates the match; a re-submission reports
// no new match and the match set stays at one.
func TestSubmitLikeCreatesMatch(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	newMatch, err := svc.SubmitLike(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, newMatch)
	assert.Equal(t, int64(1), matchCount(t, dbase))

	// re-submission: match already exists, must not be reported as new
	newMatch, err = svc.SubmitLike(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, newMatch)
	assert.Equal(t, int64(1), matchCount(t, dbase))
}

func TestSubmitLikeOneSided(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	newMatch, err := svc.SubmitLike(ctx, 1, 3)
	require.NoError(t, err)
	assert.False(t, newMatch)
	assert.Equal(t, int64(0), matchCount(t, dbase))

	// idempotent: one like row per ordered pair
	_, err = svc.SubmitLike(ctx, 1, 3)
	require.NoError(t, err)

	var likes int64
	require.NoError(t, dbase.Model(&db.Like{}).Where("liker_id = 1 AND liked_id = 3").Count(&likes).Error)
	assert.Equal(t, int64(1), likes)
}

func TestSubmitLikeSelf(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.SubmitLike(context.Background(), 1, 1)
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
}

func TestSubmitLikeMatchSetsUnreadMarkers(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	_, err := svc.SubmitLike(ctx, 2, 1)
	require.NoError(t, err)

	var markers []db.UnreadMatch
	require.NoError(t, dbase.Find(&markers).Error)
	assert.Len(t, markers, 2) // one per side

	count, err := svc.UnreadMatchCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.MarkMatchRead(ctx, 1, 2))
	count, err = svc.UnreadMatchCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSendMessageRequestDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	id1, created, err := svc.SendMessageRequest(ctx, 3, 1)
	require.NoError(t, err)
	assert.True(t, created)

	// repeat send: success-shaped no-op, pending count stays at one
	id2, created, err := svc.SendMessageRequest(ctx, 3, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	var pending int64
	require.NoError(t, dbase.Model(&db.MessageRequest{}).
		Where("sender_id = 3 AND receiver_id = 1 AND status = ?", db.RequestPending).
		Count(&pending).Error)
	assert.Equal(t, int64(1), pending)
}

func TestSendMessageRequestSupersededByMatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.SubmitLike(ctx, 2, 1) // creates the 1↔2 match
	require.NoError(t, err)

	_, _, err = svc.SendMessageRequest(ctx, 1, 2)
	assert.ErrorIs(t, err, svcErr.ErrConflict)
}

// TestAcceptMessageRequest verifies accept consumes the request, creates
// the match, and seeds both like directions so "matched implies mutually
// liked" holds.
func TestAcceptMessageRequest(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	_, _, err := svc.SendMessageRequest(ctx, 3, 1)
	require.NoError(t, err)

	newMatch, err := svc.AcceptMessageRequest(ctx, 1, 3)
	require.NoError(t, err)
	assert.True(t, newMatch)
	assert.Equal(t, int64(1), matchCount(t, dbase))

	for _, pair := range [][2]uint64{{1, 3}, {3, 1}} {
		var likes int64
		require.NoError(t, dbase.Model(&db.Like{}).
			Where("liker_id = ? AND liked_id = ?", pair[0], pair[1]).
			Count(&likes).Error)
		assert.Equal(t, int64(1), likes, "like %d→%d must be seeded", pair[0], pair[1])
	}

	// accepting again: request consumed, no-op
	newMatch, err = svc.AcceptMessageRequest(ctx, 1, 3)
	require.NoError(t, err)
	assert.False(t, newMatch)
	assert.Equal(t, int64(1), matchCount(t, dbase))
}

// TestAcceptRollsBackOnStoreFailure: if the store fails between consuming
// the request and writing the match, nothing commits — the request stays
// pending and a retried accept succeeds.
func TestAcceptRollsBackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	_, _, err := svc.SendMessageRequest(ctx, 3, 1)
	require.NoError(t, err)

	require.NoError(t, dbase.Callback().Create().Before("gorm:create").Register("fail_matches", func(d *gorm.DB) {
		if d.Statement.Table == "matches" {
			d.AddError(errors.New("storage offline"))
		}
	}))

	_, err = svc.AcceptMessageRequest(ctx, 1, 3)
	require.Error(t, err)

	var row db.MessageRequest
	require.NoError(t, dbase.First(&row, "sender_id = 3 AND receiver_id = 1").Error)
	assert.Equal(t, db.RequestPending, row.Status, "consume must roll back with the match")
	assert.Equal(t, int64(0), matchCount(t, dbase))

	require.NoError(t, dbase.Callback().Create().Remove("fail_matches"))

	newMatch, err := svc.AcceptMessageRequest(ctx, 1, 3)
	require.NoError(t, err)
	assert.True(t, newMatch)
	assert.Equal(t, int64(1), matchCount(t, dbase))
}

func TestDeclineAndCancelIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	_, _, err := svc.SendMessageRequest(ctx, 3, 1)
	require.NoError(t, err)

	require.NoError(t, svc.DeclineMessageRequest(ctx, 1, 3))
	require.NoError(t, svc.DeclineMessageRequest(ctx, 1, 3)) // already gone

	assert.Equal(t, int64(0), matchCount(t, dbase))

	// cancel of a request that never existed is also a no-op
	require.NoError(t, svc.CancelMessageRequest(ctx, 2, 3))

	var row db.MessageRequest
	require.NoError(t, dbase.First(&row, "sender_id = 3 AND receiver_id = 1").Error)
	assert.Equal(t, db.RequestDeclined, row.Status)
}

func TestAdoptMatchIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	// retried push-up must not duplicate authoritative state
	require.NoError(t, svc.AdoptMatch(ctx, 1, 3))
	require.NoError(t, svc.AdoptMatch(ctx, 1, 3))
	require.NoError(t, svc.AdoptMatch(ctx, 3, 1))

	assert.Equal(t, int64(1), matchCount(t, dbase))

	var likes int64
	require.NoError(t, dbase.Model(&db.Like{}).
		Where("(liker_id = 1 AND liked_id = 3) OR (liker_id = 3 AND liked_id = 1)").
		Count(&likes).Error)
	assert.Equal(t, int64(2), likes)
}

func TestListLikedYou(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.SubmitLike(ctx, 3, 1)
	require.NoError(t, err)

	// user1 is liked by user2 (seed) and user3
	likers, _, err := svc.ListLikedYou(ctx, 1, nil, 10, false)
	require.NoError(t, err)
	assert.Len(t, likers, 2)

	// user1 already likes user2 back, so only user3 is "new"
	newLikers, _, err := svc.ListLikedYou(ctx, 1, nil, 10, true)
	require.NoError(t, err)
	require.Len(t, newLikers, 1)
	assert.Equal(t, uint64(3), newLikers[0].UserID)
}

// TestSubmitLikeConcurrentDirections: both directions of a pair submitted
// from parallel goroutines yield exactly one match record and exactly one
// caller seeing it as new, whatever the interleaving.
func TestSubmitLikeConcurrentDirections(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	// sqlite rejects overlapping writers; a single connection keeps the
	// goroutine interleaving while serializing statements
	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	results := make(chan bool, 2)
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, pair := range [][2]uint64{{2, 3}, {3, 2}} {
		wg.Add(1)
		go func(likerID, likedID uint64) {
			defer wg.Done()
			newMatch, err := svc.SubmitLike(ctx, likerID, likedID)
			results <- newMatch
			errs <- err
		}(pair[0], pair[1])
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	wins := 0
	for newMatch := range results {
		if newMatch {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one submission observes the new match")
	assert.Equal(t, int64(1), matchCount(t, dbase))
}

func TestMarkRequestSeenVisibleInListing(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	id, _, err := svc.SendMessageRequest(ctx, 3, 1)
	require.NoError(t, err)

	reqs, err := svc.ListIncomingRequests(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.False(t, reqs[0].Seen)

	require.NoError(t, svc.MarkRequestSeen(ctx, 1, id))
	require.NoError(t, svc.MarkRequestSeen(ctx, 1, id)) // idempotent

	reqs, err = svc.ListIncomingRequests(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].Seen)
	assert.Equal(t, id, reqs[0].ID)

	// the seen set is scoped per user
	sent, err := svc.ListSentRequests(ctx, 3)
	require.NoError(t, err)
	require.Len(t, sent, 1)
}

func TestUnreadMatchCountCacheFallback(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.SubmitLike(ctx, 2, 1)
	require.NoError(t, err)

	// first call may come from the badge bump, second from cache; both
	// must agree with the marker table
	count1, err := svc.UnreadMatchCount(ctx, 2)
	require.NoError(t, err)
	count2, err := svc.UnreadMatchCount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, count1, count2)
	assert.Equal(t, int64(1), count1)
}
