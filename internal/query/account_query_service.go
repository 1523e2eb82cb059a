package query

import (
	"context"

	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/models"
)

type AccountQueryService struct {
	store repository.LedgerStore
}

func NewAccountQueryService(store repository.LedgerStore) *AccountQueryService {
	return &AccountQueryService{store: store}
}

// GetAccount returns the committed state of one account.
func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.Account, error) {
	return s.store.GetAccount(ctx, q.AccountID)
}

func (s *AccountQueryService) ListAccounts(ctx context.Context, _ cqrs.ListAccountsQuery) ([]models.Account, error) {
	return s.store.ListAccounts(ctx)
}
