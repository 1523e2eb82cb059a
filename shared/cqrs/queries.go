package cqrs

// ---------- Account queries ----------

// GetAccountQuery fetches a single account by id.
type GetAccountQuery struct {
	AccountID string
}

// ListAccountsQuery fetches every account, ordered by account number.
type ListAccountsQuery struct{}

// ---------- Transaction queries ----------

// GetTransactionQuery fetches a single transaction of an account.
type GetTransactionQuery struct {
	AccountID     string
	TransactionID string
}

// ListTransactionsQuery fetches one page of an account's history, newest first.
type ListTransactionsQuery struct {
	AccountID string
	Page      int
	Limit     int
}
