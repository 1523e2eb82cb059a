package cqrs

import (
	"github.com/eaglebank/ledger/shared/models"
	"github.com/shopspring/decimal"
)

// CreateTransactionCommand records a single deposit, withdrawal or transfer
// against one account.
type CreateTransactionCommand struct {
	AccountID   string
	Type        models.TransactionType
	Amount      decimal.Decimal
	Description string
}
