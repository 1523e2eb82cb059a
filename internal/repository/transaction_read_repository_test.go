package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eaglebank/ledger/internal/ledgererr"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTransactionReadRepositoryWarmsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := newSeededStore(t)
	ctx := context.Background()
	_, err := store.WithAccountLock(ctx, "1", depositCommit("1", "t1", time.Now().UTC(), "5100", "100"))
	require.NoError(t, err)

	repo := NewTransactionReadRepository(store, client, zap.NewNop())

	key := transactionViewKey("1", "t1")
	assert.False(t, mr.Exists(key))

	tx, err := repo.GetByID(ctx, "1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tx.ID)
	assert.True(t, mr.Exists(key), "cold read should warm the cache")
	assert.Equal(t, transactionViewTTL, mr.TTL(key))

	// Served from Redis even if the store could no longer answer.
	cached, err := NewTransactionReadRepository(NewMemoryStore(), client, zap.NewNop()).GetByID(ctx, "1", "t1")
	require.NoError(t, err)
	assert.True(t, cached.Amount.Equal(tx.Amount))
	assert.Equal(t, tx.Description, cached.Description)

	// An expired entry is refilled from the store.
	mr.FastForward(transactionViewTTL + time.Second)
	assert.False(t, mr.Exists(key))
	_, err = repo.GetByID(ctx, "1", "t1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))

	_, err = repo.GetByID(ctx, "1", "nope")
	assert.ErrorIs(t, err, ledgererr.ErrTransactionNotFound)
}

func TestTransactionReadRepositoryWithoutRedis(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	_, err := store.WithAccountLock(ctx, "2", depositCommit("2", "t1", time.Now().UTC(), "10050", "50"))
	require.NoError(t, err)

	repo := NewTransactionReadRepository(store, nil, zap.NewNop())

	tx, err := repo.GetByID(ctx, "2", "t1")
	require.NoError(t, err)
	assert.Equal(t, "2", tx.AccountID)

	total, err := repo.Count(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	window, err := repo.Window(ctx, "2", 0, 10)
	require.NoError(t, err)
	assert.Len(t, window, 1)
}
