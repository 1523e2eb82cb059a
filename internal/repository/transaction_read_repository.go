package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/eaglebank/ledger/shared/models"
	sharedredis "github.com/eaglebank/ledger/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	transactionViewKeyPrefix = "transaction:view:"

	// Views never go stale, the TTL only bounds how many Redis keeps.
	transactionViewTTL = 24 * time.Hour
)

// TransactionReadRepository handles transaction reads. Single-transaction
// lookups try the Redis view cache first and fall back to the ledger store;
// history pages always come from the store so totals and ordering are exact.
type TransactionReadRepository struct {
	store LedgerStore
	cache *sharedredis.ViewCache[models.TransactionView]
}

// NewTransactionReadRepository builds the read side. A nil redisClient
// disables caching.
func NewTransactionReadRepository(store LedgerStore, redisClient *goredis.Client, logger *zap.Logger) *TransactionReadRepository {
	r := &TransactionReadRepository{store: store}
	if redisClient != nil {
		r.cache = sharedredis.NewViewCache[models.TransactionView](redisClient, transactionViewTTL, logger)
	}
	return r
}

func transactionViewKey(accountID, id string) string {
	return fmt.Sprintf("%s%s:%s", transactionViewKeyPrefix, accountID, id)
}

// GetByID returns a transaction by attempting Redis first, then the store.
func (r *TransactionReadRepository) GetByID(ctx context.Context, accountID, id string) (*models.Transaction, error) {
	if r.cache != nil {
		if view, ok := r.cache.Get(ctx, transactionViewKey(accountID, id)); ok {
			return view.ToTransaction(), nil
		}
	}

	tx, err := r.store.GetTransaction(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	r.CacheTransactionView(ctx, tx.ToView())
	return tx, nil
}

// Count returns the number of transactions recorded against accountID.
func (r *TransactionReadRepository) Count(ctx context.Context, accountID string) (int, error) {
	return r.store.CountTransactions(ctx, accountID)
}

// Window returns up to limit transactions after skipping offset, newest first.
func (r *TransactionReadRepository) Window(ctx context.Context, accountID string, offset, limit int) ([]models.Transaction, error) {
	return r.store.ListTransactions(ctx, accountID, offset, limit)
}

// CacheTransactionView stores the read model for a transaction in Redis.
// The projection consumer calls it for every commit; cold reads refill
// entries that have expired.
func (r *TransactionReadRepository) CacheTransactionView(ctx context.Context, view *models.TransactionView) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, transactionViewKey(view.AccountID, view.ID), view)
}
