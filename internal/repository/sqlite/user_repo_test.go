package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

func newTestUserRepo(t *testing.T) (context.Context, repository.UserRepository) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	db, err := NewDB(ctx, DefaultConfig(":memory:"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	return ctx, NewUserRepository(db)
}

func seedUser(t *testing.T, ctx context.Context, repo repository.UserRepository, coins int64) *domain.User {
	t.Helper()

	user := domain.NewUser(uuid.NewString(), "buyer-"+uuid.NewString()[:8], uuid.NewString()+"@example.com", "hash")
	require.NoError(t, repo.Create(ctx, user))
	if coins > 0 {
		require.NoError(t, repo.AdjustCoins(ctx, user.ID, coins))
	}
	return user
}

func TestUserRepository_Purchase(t *testing.T) {
	ctx, repo := newTestUserRepo(t)

	user := seedUser(t, ctx, repo, 500)

	require.NoError(t, repo.Purchase(ctx, user.ID, "plugin-1", 300))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 200, got.Coins)
	assert.Equal(t, []string{"plugin-1"}, got.Purchases)
}

func TestUserRepository_PurchaseInsufficientFunds(t *testing.T) {
	ctx, repo := newTestUserRepo(t)

	user := seedUser(t, ctx, repo, 100)

	err := repo.Purchase(ctx, user.ID, "plugin-1", 300)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// The rolled-back transaction leaves no entitlement behind.
	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 100, got.Coins)
	assert.Empty(t, got.Purchases)
}

func TestUserRepository_PurchaseDuplicate(t *testing.T) {
	ctx, repo := newTestUserRepo(t)

	user := seedUser(t, ctx, repo, 600)

	require.NoError(t, repo.Purchase(ctx, user.ID, "plugin-1", 300))

	err := repo.Purchase(ctx, user.ID, "plugin-1", 300)
	require.ErrorIs(t, err, domain.ErrAlreadyPurchased)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 300, got.Coins)
}

func TestUserRepository_PurchaseDuplicateBeatsPoorBalance(t *testing.T) {
	ctx, repo := newTestUserRepo(t)

	// Spend down to below the price, then buy the same plugin again: the
	// duplicate must win over the empty wallet.
	user := seedUser(t, ctx, repo, 300)
	require.NoError(t, repo.Purchase(ctx, user.ID, "plugin-1", 300))

	err := repo.Purchase(ctx, user.ID, "plugin-1", 300)
	require.ErrorIs(t, err, domain.ErrAlreadyPurchased)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Coins)
	assert.Equal(t, []string{"plugin-1"}, got.Purchases)
}

func TestUserRepository_PurchaseUnknownUser(t *testing.T) {
	ctx, repo := newTestUserRepo(t)

	err := repo.Purchase(ctx, uuid.NewString(), "plugin-1", 100)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}
