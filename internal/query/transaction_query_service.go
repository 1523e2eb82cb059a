package query

import (
	"context"

	"github.com/eaglebank/ledger/internal/ledgererr"
	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// TransactionQueryService serves transaction history. Reads never take the
// account lock; they observe whole commits only.
type TransactionQueryService struct {
	store    repository.LedgerStore
	readRepo *repository.TransactionReadRepository
}

func NewTransactionQueryService(store repository.LedgerStore, readRepo *repository.TransactionReadRepository) *TransactionQueryService {
	return &TransactionQueryService{store: store, readRepo: readRepo}
}

// ListTransactions returns one page of the account's history, newest first,
// together with the total number of transactions. A page past the end is
// empty, not an error.
func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) (*models.TransactionPage, error) {
	if q.Page < 1 {
		return nil, ledgererr.Invalid("page", "must be at least 1")
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return nil, ledgererr.Invalid("limit", "must be between 1 and 100")
	}

	if _, err := s.store.GetAccount(ctx, q.AccountID); err != nil {
		return nil, err
	}

	total, err := s.readRepo.Count(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}

	// Compare page counts rather than offsets so huge page numbers cannot overflow.
	pages := (total + q.Limit - 1) / q.Limit
	transactions := []models.Transaction{}
	if q.Page <= pages {
		transactions, err = s.readRepo.Window(ctx, q.AccountID, (q.Page-1)*q.Limit, q.Limit)
		if err != nil {
			return nil, err
		}
	}

	return &models.TransactionPage{
		Transactions: transactions,
		Total:        total,
		Page:         q.Page,
		Limit:        q.Limit,
	}, nil
}

// GetTransaction returns a single transaction of the account.
func (s *TransactionQueryService) GetTransaction(ctx context.Context, q cqrs.GetTransactionQuery) (*models.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, q.AccountID); err != nil {
		return nil, err
	}
	return s.readRepo.GetByID(ctx, q.AccountID, q.TransactionID)
}
