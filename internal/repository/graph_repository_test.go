package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/amity-social/amity/internal/db"
	"github.com/amity-social/amity/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestLikeInsertIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	inserted, err := repo.Insert(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, inserted)

	// second insert of the same ordered pair is a no-op
	inserted, err = repo.Insert(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, inserted)

	var count int64
	dbase.Model(&db.Like{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestLikeGetLikers(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, _ = repo.Insert(ctx, 1, 99)
	_, _ = repo.Insert(ctx, 2, 99)
	// 99 liked 1 back → excluded from the newOnly listing
	_, _ = repo.Insert(ctx, 99, 1)

	likes, _, err := repo.GetLikers(ctx, 99, nil, 10, false)
	require.NoError(t, err)
	assert.Len(t, likes, 2)

	newLikes, _, err := repo.GetLikers(ctx, 99, nil, 10, true)
	require.NoError(t, err)
	require.Len(t, newLikes, 1)
	assert.Equal(t, uint64(2), newLikes[0].LikerID)
}

func TestMatchCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	created, err := repo.CreateIfAbsent(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, created)

	// submitting the pair in the other order hits the same canonical row
	created, err = repo.CreateIfAbsent(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	dbase.Model(&db.Match{}).Count(&count)
	assert.Equal(t, int64(1), count)

	exists, err := repo.Exists(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMatchListForUser(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	_, _ = repo.CreateIfAbsent(ctx, 5, 1)
	_, _ = repo.CreateIfAbsent(ctx, 5, 9)

	others, err := repo.ListForUser(ctx, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{1, 9}, others)
}

func TestRequestPendingUniqueness(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewRequestRepository(dbase)

	req1, created, err := repo.CreatePending(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, created)

	// duplicate pending request resolves to the existing row
	req2, created, err := repo.CreatePending(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, req1.ID, req2.ID)

	// the reverse direction is a distinct pending request
	_, created, err = repo.CreatePending(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRequestConsumeGuards(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewRequestRepository(dbase)

	req, _, err := repo.CreatePending(ctx, 1, 2)
	require.NoError(t, err)

	consumed, err := repo.Consume(ctx, req.ID, db.RequestAccepted)
	require.NoError(t, err)
	assert.True(t, consumed)

	// already consumed: declining now is a zero-row no-op
	consumed, err = repo.Consume(ctx, req.ID, db.RequestDeclined)
	require.NoError(t, err)
	assert.False(t, consumed)

	var row db.MessageRequest
	require.NoError(t, dbase.First(&row, "id = ?", req.ID).Error)
	assert.Equal(t, db.RequestAccepted, row.Status)
	assert.Nil(t, row.PendingKey)

	// pending slot is free again for a fresh request
	_, created, err := repo.CreatePending(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMarkerSetSemantics(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMarkerRepository(dbase)

	require.NoError(t, repo.AddUnreadMatch(ctx, 1, 2))
	require.NoError(t, repo.AddUnreadMatch(ctx, 1, 2)) // idempotent
	require.NoError(t, repo.AddUnreadMatch(ctx, 1, 3))

	count, err := repo.CountUnreadMatches(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.RemoveUnreadMatch(ctx, 1, 2))
	require.NoError(t, repo.RemoveUnreadMatch(ctx, 1, 2)) // idempotent

	count, err = repo.CountUnreadMatches(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserWaitlistOrdering(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewUserRepository(dbase)

	base := time.Now().UTC().Truncate(time.Second)
	users := []db.User{
		{ID: 1, Username: "w1", Email: "w1@test.com", PasswordHash: "x", Gender: "male", LookingFor: "female", Status: db.StatusWaitlist, CreatedAt: base.Add(-time.Hour)},
		{ID: 2, Username: "w2", Email: "w2@test.com", PasswordHash: "x", Gender: "male", LookingFor: "female", Status: db.StatusWaitlist, CreatedAt: base},
		{ID: 3, Username: "w3", Email: "w3@test.com", PasswordHash: "x", Gender: "male", LookingFor: "female", Status: db.StatusWaitlist, CreatedAt: base},
		{ID: 4, Username: "a1", Email: "a1@test.com", PasswordHash: "x", Gender: "male", LookingFor: "female", Status: db.StatusActive, CreatedAt: base.Add(-2 * time.Hour)},
	}
	require.NoError(t, dbase.Create(&users).Error)

	u2, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	ahead, err := repo.CountWaitlistedBefore(ctx, u2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ahead) // only w1; equal timestamp w3 has a larger id

	u3, err := repo.GetByID(ctx, 3)
	require.NoError(t, err)
	ahead, err = repo.CountWaitlistedBefore(ctx, u3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ahead)
}

func TestUserOverrideStatus(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewUserRepository(dbase)

	user := db.User{ID: 1, Username: "u1", Email: "u1@test.com", PasswordHash: "x", Gender: "male", LookingFor: "female", Status: db.StatusWaitlist}
	require.NoError(t, repo.Create(ctx, &user))

	require.NoError(t, repo.OverrideStatus(ctx, 1, db.StatusActive, db.RoleAdmin))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, db.StatusActive, got.Status)
	assert.Equal(t, db.RoleAdmin, got.Role)

	err = repo.OverrideStatus(ctx, 999, db.StatusBanned, "")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSubscriptionRepository(dbase)

	sub, err := repo.Create(ctx, 7, "push-endpoint-a")
	require.NoError(t, err)
	_, err = repo.Create(ctx, 7, "push-endpoint-b")
	require.NoError(t, err)

	subs, err := repo.ListForUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	require.NoError(t, repo.Delete(ctx, sub.ID))
	require.NoError(t, repo.Delete(ctx, sub.ID)) // idempotent

	subs, err = repo.ListForUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
