package repository

import (
	"context"
	"errors"

	"github.com/eaglebank/ledger/internal/ledgererr"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SampleAccounts are the accounts the dashboard starts with.
func SampleAccounts() []models.Account {
	return []models.Account{
		{
			ID:            "1",
			AccountNumber: "1001",
			AccountHolder: "John Doe",
			AccountType:   models.AccountTypeChecking,
			Balance:       decimal.RequireFromString("5000.00"),
		},
		{
			ID:            "2",
			AccountNumber: "1002",
			AccountHolder: "Jane Smith",
			AccountType:   models.AccountTypeSavings,
			Balance:       decimal.RequireFromString("10000.00"),
		},
	}
}

// Seed provisions accounts, skipping any that already exist so restarts
// against a persistent store keep their balances.
func Seed(ctx context.Context, store LedgerStore, accounts []models.Account, logger *zap.Logger) error {
	for _, account := range accounts {
		err := store.CreateAccount(ctx, account)
		switch {
		case err == nil:
			logger.Info("seeded account",
				zap.String("accountId", account.ID),
				zap.String("accountNumber", account.AccountNumber),
			)
		case errors.Is(err, ledgererr.ErrDuplicateAccount):
			logger.Debug("account already present, skipping seed", zap.String("accountId", account.ID))
		default:
			return err
		}
	}
	return nil
}
