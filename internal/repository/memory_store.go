package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/eaglebank/ledger/internal/ledgererr"
	"github.com/eaglebank/ledger/shared/models"
	"golang.org/x/sync/semaphore"
)

// accountEntry holds one account and its transaction history. lock serializes
// writers of this account only; txs is ordered oldest first by
// (createdAt, id), which is commit order unless timestamps tie or step back.
type accountEntry struct {
	lock    *semaphore.Weighted
	account models.Account
	txs     []models.Transaction
}

// MemoryStore keeps the ledger for the lifetime of the process.
//
// mu guards the maps and entry fields and is only held for short copy or
// publish steps, so a reader sees a balance together with the transaction that
// produced it. The read-check-write sequence of a commit is serialized by the
// per-account semaphore instead, which lets unrelated accounts proceed in
// parallel and lets lock waiters give up when their context ends.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*accountEntry
	numbers  map[string]string
	now      func() time.Time
}

var _ LedgerStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*accountEntry),
		numbers:  make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, account models.Account) error {
	if err := validateNewAccount(account); err != nil {
		return err
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return fmt.Errorf("%w: id %s", ledgererr.ErrDuplicateAccount, account.ID)
	}
	if _, ok := s.numbers[account.AccountNumber]; ok {
		return fmt.Errorf("%w: account number %s", ledgererr.ErrDuplicateAccount, account.AccountNumber)
	}
	s.accounts[account.ID] = &accountEntry{
		lock:    semaphore.NewWeighted(1),
		account: account,
	}
	s.numbers[account.AccountNumber] = account.ID
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.accounts[id]
	if !ok {
		return nil, ledgererr.ErrAccountNotFound
	}
	account := entry.account
	return &account, nil
}

func (s *MemoryStore) ListAccounts(_ context.Context) ([]models.Account, error) {
	s.mu.RLock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, entry := range s.accounts {
		out = append(out, entry.account)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Account) int {
		return cmp.Compare(a.AccountNumber, b.AccountNumber)
	})
	return out, nil
}

func (s *MemoryStore) WithAccountLock(ctx context.Context, id string, fn CommitFunc) (*models.Transaction, error) {
	s.mu.RLock()
	entry, ok := s.accounts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ledgererr.ErrAccountNotFound
	}

	// Cancellation is only observed while waiting; once the lock is held the
	// commit runs to completion.
	if err := ctx.Err(); err != nil {
		return nil, ledgererr.Storage("acquire account lock", err)
	}
	if err := entry.lock.Acquire(ctx, 1); err != nil {
		return nil, ledgererr.Storage("acquire account lock", err)
	}
	defer entry.lock.Release(1)

	s.mu.RLock()
	snapshot := entry.account
	s.mu.RUnlock()

	commit, err := fn(snapshot)
	if err != nil {
		return nil, err
	}
	if commit == nil {
		return nil, nil
	}
	if err := checkCommit(id, commit); err != nil {
		return nil, err
	}

	s.mu.Lock()
	entry.account.Balance = commit.NewBalance
	entry.txs = insertOldestFirst(entry.txs, commit.Transaction)
	s.mu.Unlock()

	tx := commit.Transaction
	return &tx, nil
}

func (s *MemoryStore) CountTransactions(_ context.Context, accountID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.accounts[accountID]
	if !ok {
		return 0, ledgererr.ErrAccountNotFound
	}
	return len(entry.txs), nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, accountID string, offset, limit int) ([]models.Transaction, error) {
	if offset < 0 || limit < 0 {
		return nil, ledgererr.Storage("list transactions", fmt.Errorf("negative window offset=%d limit=%d", offset, limit))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.accounts[accountID]
	if !ok {
		return nil, ledgererr.ErrAccountNotFound
	}

	// Newest first is the oldest-first slice read backwards from the tail.
	n := len(entry.txs)
	out := make([]models.Transaction, 0, min(limit, max(n-offset, 0)))
	for i := n - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, entry.txs[i])
	}
	return out, nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, accountID, transactionID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.accounts[accountID]
	if !ok {
		return nil, ledgererr.ErrAccountNotFound
	}
	for i := range entry.txs {
		if entry.txs[i].ID == transactionID {
			tx := entry.txs[i]
			return &tx, nil
		}
	}
	return nil, ledgererr.ErrTransactionNotFound
}

func (s *MemoryStore) Close() error { return nil }

// oldestFirst orders by createdAt, then id, so pages stay stable when several
// transactions share a timestamp.
func oldestFirst(a, b models.Transaction) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// insertOldestFirst places tx in its sorted position. Commits normally land at
// the tail, so this is an append.
func insertOldestFirst(txs []models.Transaction, tx models.Transaction) []models.Transaction {
	if n := len(txs); n == 0 || oldestFirst(txs[n-1], tx) <= 0 {
		return append(txs, tx)
	}
	i, _ := slices.BinarySearchFunc(txs, tx, oldestFirst)
	return slices.Insert(txs, i, tx)
}

func validateNewAccount(account models.Account) error {
	switch {
	case account.ID == "":
		return ledgererr.Invalid("id", "is required")
	case account.AccountNumber == "":
		return ledgererr.Invalid("accountNumber", "is required")
	case !account.AccountType.Valid():
		return ledgererr.Invalid("accountType", "must be CHECKING or SAVINGS")
	case account.Balance.IsNegative():
		return ledgererr.Invalid("balance", "cannot be negative")
	case !models.FitsLedger(account.Balance):
		return ledgererr.Invalid("balance", "must have at most 4 decimal places and be less than 10^15")
	}
	return nil
}

// checkCommit rejects a write set that would break a ledger invariant. The
// engine never produces one; this mirrors the database constraints.
func checkCommit(accountID string, c *Commit) error {
	switch {
	case c.Transaction.AccountID != accountID:
		return ledgererr.Storage("commit", fmt.Errorf("transaction for account %q committed under lock of %q", c.Transaction.AccountID, accountID))
	case c.NewBalance.IsNegative():
		return ledgererr.Storage("commit", fmt.Errorf("balance constraint violated: %s", c.NewBalance))
	case c.Transaction.ID == "":
		return ledgererr.Storage("commit", fmt.Errorf("transaction id is required"))
	case !models.FitsLedger(c.NewBalance) || !models.FitsLedger(c.Transaction.Amount):
		return ledgererr.Storage("commit", fmt.Errorf("value exceeds ledger precision: balance %s amount %s", c.NewBalance, c.Transaction.Amount))
	}
	return nil
}
