package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionView is the read-optimised projection of a transaction as stored
// in the Redis view cache. Transactions are immutable, so a cached view never
// goes stale.
type TransactionView struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ToView converts the write model to its cached read view.
func (t *Transaction) ToView() *TransactionView {
	return &TransactionView{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Type:        t.Type,
		Amount:      t.Amount,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

// ToTransaction converts a cached view back to the API model.
func (v *TransactionView) ToTransaction() *Transaction {
	return &Transaction{
		ID:          v.ID,
		AccountID:   v.AccountID,
		Type:        v.Type,
		Amount:      v.Amount,
		Description: v.Description,
		CreatedAt:   v.CreatedAt,
	}
}
