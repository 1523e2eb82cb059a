package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/eaglebank/ledger/internal/ledgererr"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSeededStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, Seed(context.Background(), s, SampleAccounts(), zap.NewNop()))
	return s
}

func depositCommit(accountID, id string, at time.Time, balance, amount string) CommitFunc {
	return func(a models.Account) (*Commit, error) {
		return &Commit{
			NewBalance: decimal.RequireFromString(balance),
			Transaction: models.Transaction{
				ID:          id,
				AccountID:   accountID,
				Type:        models.TransactionTypeDeposit,
				Amount:      decimal.RequireFromString(amount),
				Description: "test deposit",
				CreatedAt:   at,
			},
		}, nil
	}
}

func TestMemoryStoreCreateAccount(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "1001", accounts[0].AccountNumber)
	assert.Equal(t, "1002", accounts[1].AccountNumber)
	assert.False(t, accounts[0].CreatedAt.IsZero())

	dupID := models.Account{ID: "1", AccountNumber: "9999", AccountType: models.AccountTypeChecking}
	assert.ErrorIs(t, s.CreateAccount(ctx, dupID), ledgererr.ErrDuplicateAccount)

	dupNumber := models.Account{ID: "9", AccountNumber: "1001", AccountType: models.AccountTypeChecking}
	assert.ErrorIs(t, s.CreateAccount(ctx, dupNumber), ledgererr.ErrDuplicateAccount)

	negative := models.Account{ID: "9", AccountNumber: "9999", AccountType: models.AccountTypeSavings, Balance: decimal.NewFromInt(-1)}
	assert.ErrorIs(t, s.CreateAccount(ctx, negative), ledgererr.ErrValidation)

	badType := models.Account{ID: "9", AccountNumber: "9999", AccountType: "BROKERAGE"}
	assert.ErrorIs(t, s.CreateAccount(ctx, badType), ledgererr.ErrValidation)

	// Seeding twice is a no-op.
	require.NoError(t, Seed(ctx, s, SampleAccounts(), zap.NewNop()))
	accounts, err = s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestMemoryStoreGetAccountReturnsCopy(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	a, err := s.GetAccount(ctx, "1")
	require.NoError(t, err)
	a.Balance = decimal.Zero

	again, err := s.GetAccount(ctx, "1")
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(5000)))

	_, err = s.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, ledgererr.ErrAccountNotFound)
}

func TestMemoryStoreCommitAppliesBothWrites(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	tx, err := s.WithAccountLock(ctx, "1", depositCommit("1", "t1", time.Now(), "5100.00", "100.00"))
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, "t1", tx.ID)

	a, err := s.GetAccount(ctx, "1")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(5100)))

	total, err := s.CountTransactions(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	got, err := s.GetTransaction(ctx, "1", "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeDeposit, got.Type)

	_, err = s.GetTransaction(ctx, "2", "t1")
	assert.ErrorIs(t, err, ledgererr.ErrTransactionNotFound)
}

func TestMemoryStoreAbortLeavesStateUnchanged(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := s.WithAccountLock(ctx, "1", func(models.Account) (*Commit, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	tx, err := s.WithAccountLock(ctx, "1", func(models.Account) (*Commit, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, tx)

	_, err = s.WithAccountLock(ctx, "1", depositCommit("1", "t1", time.Now(), "-1", "1"))
	assert.ErrorIs(t, err, ledgererr.ErrStorage)

	_, err = s.WithAccountLock(ctx, "1", depositCommit("2", "t1", time.Now(), "5001", "1"))
	assert.ErrorIs(t, err, ledgererr.ErrStorage)

	_, err = s.WithAccountLock(ctx, "missing", depositCommit("missing", "t1", time.Now(), "1", "1"))
	assert.ErrorIs(t, err, ledgererr.ErrAccountNotFound)

	a, err := s.GetAccount(ctx, "1")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(5000)))
	total, err := s.CountTransactions(ctx, "1")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMemoryStoreReleasesLockOnPanic(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	func() {
		defer func() { _ = recover() }()
		_, _ = s.WithAccountLock(ctx, "1", func(models.Account) (*Commit, error) { panic("handler bug") })
	}()

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_, err := s.WithAccountLock(waitCtx, "1", depositCommit("1", "t1", time.Now(), "5001", "1"))
	require.NoError(t, err)
}

func TestMemoryStoreLockWaitHonoursContext(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := s.WithAccountLock(ctx, "1", func(models.Account) (*Commit, error) {
			close(held)
			<-release
			return nil, nil
		})
		done <- err
	}()
	<-held

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := s.WithAccountLock(waitCtx, "1", depositCommit("1", "t1", time.Now(), "5001", "1"))
	require.ErrorIs(t, err, ledgererr.ErrStorage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// A different account is not blocked by the held lock.
	otherCtx, cancelOther := context.WithTimeout(ctx, time.Second)
	defer cancelOther()
	_, err = s.WithAccountLock(otherCtx, "2", depositCommit("2", "t2", time.Now(), "10001", "1"))
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
}

func TestMemoryStoreListTransactionsOrdering(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	// t2 and t3 share a timestamp; id breaks the tie.
	stamps := []struct {
		id string
		at time.Time
	}{
		{"t1", base},
		{"t2", base.Add(time.Second)},
		{"t3", base.Add(time.Second)},
		{"t4", base.Add(2 * time.Second)},
	}
	balance := 5000
	for _, st := range stamps {
		balance++
		_, err := s.WithAccountLock(ctx, "1", depositCommit("1", st.id, st.at, fmt.Sprint(balance), "1"))
		require.NoError(t, err)
	}

	page, err := s.ListTransactions(ctx, "1", 0, 10)
	require.NoError(t, err)
	ids := make([]string, len(page))
	for i, tx := range page {
		ids[i] = tx.ID
	}
	assert.Equal(t, []string{"t4", "t3", "t2", "t1"}, ids)

	window, err := s.ListTransactions(ctx, "1", 1, 2)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "t3", window[0].ID)
	assert.Equal(t, "t2", window[1].ID)

	past, err := s.ListTransactions(ctx, "1", 10, 5)
	require.NoError(t, err)
	assert.NotNil(t, past)
	assert.Empty(t, past)

	_, err = s.ListTransactions(ctx, "missing", 0, 5)
	assert.ErrorIs(t, err, ledgererr.ErrAccountNotFound)
}

func TestMemoryStoreListTransactionsOutOfOrderCommits(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	// Commit order differs from history order: the clock steps back and a
	// tie arrives with a smaller id.
	commits := []struct {
		id string
		at time.Time
	}{
		{"t5", base.Add(3 * time.Second)},
		{"t2", base.Add(time.Second)},
		{"t4", base.Add(2 * time.Second)},
		{"t3", base.Add(2 * time.Second)},
		{"t1", base},
		{"t6", base.Add(3 * time.Second)},
	}
	balance := 5000
	for _, c := range commits {
		balance++
		_, err := s.WithAccountLock(ctx, "1", depositCommit("1", c.id, c.at, fmt.Sprint(balance), "1"))
		require.NoError(t, err)
	}

	var ids []string
	for offset := 0; offset < len(commits); offset += 4 {
		page, err := s.ListTransactions(ctx, "1", offset, 4)
		require.NoError(t, err)
		for _, tx := range page {
			ids = append(ids, tx.ID)
		}
	}
	assert.Equal(t, []string{"t6", "t5", "t4", "t3", "t2", "t1"}, ids)

	empty, err := s.ListTransactions(ctx, "1", 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
