package repository

import (
	"context"

	"github.com/eaglebank/ledger/shared/models"
	"github.com/shopspring/decimal"
)

// Commit is the write set produced inside an account lock: the account's new
// balance and the transaction that explains it. A store applies both or neither.
type Commit struct {
	NewBalance  decimal.Decimal
	Transaction models.Transaction
}

// CommitFunc inspects the locked account snapshot and returns either a Commit
// or an error that aborts the lock scope without writing anything.
type CommitFunc func(account models.Account) (*Commit, error)

// LedgerStore is the only path to account and transaction state.
//
// WithAccountLock serializes all writers of one account. The account passed to
// fn reflects every commit that finished before the lock was granted; accounts
// with different ids never contend for the same lock.
type LedgerStore interface {
	CreateAccount(ctx context.Context, account models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	WithAccountLock(ctx context.Context, id string, fn CommitFunc) (*models.Transaction, error)
	CountTransactions(ctx context.Context, accountID string) (int, error)
	ListTransactions(ctx context.Context, accountID string, offset, limit int) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, accountID, transactionID string) (*models.Transaction, error)
	Close() error
}
