package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Clients expect balances and amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// AccountType is the product kind of an account.
type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
)

// Valid reports whether t is a supported account type.
func (t AccountType) Valid() bool {
	return t == AccountTypeChecking || t == AccountTypeSavings
}

// TransactionType carries the direction of a transaction; amounts are always positive.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
)

// Valid reports whether t is a supported transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return true
	}
	return false
}

// IsDebit reports whether t reduces the account balance.
// TRANSFER is a one-sided debit: no counterparty is credited.
func (t TransactionType) IsDebit() bool {
	return t == TransactionTypeWithdrawal || t == TransactionTypeTransfer
}

// Apply returns the balance after a transaction of type t and the given amount.
func (t TransactionType) Apply(balance, amount decimal.Decimal) decimal.Decimal {
	if t.IsDebit() {
		return balance.Sub(amount)
	}
	return balance.Add(amount)
}

// Money limits match the NUMERIC(19,4) ledger columns.
const AmountScale = 4

// MaxMoney is the exclusive upper bound on amounts and balances.
var MaxMoney = decimal.New(1, 15)

// FitsLedger reports whether d can be stored without rounding or overflow:
// at most AmountScale decimal places and an absolute value below MaxMoney.
func FitsLedger(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(AmountScale)) && d.Abs().LessThan(MaxMoney)
}

type Account struct {
	ID            string          `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	AccountHolder string          `json:"accountHolder"`
	AccountType   AccountType     `json:"accountType"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TransactionPage is one window of an account's transaction history.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
}
