package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/ledger/internal/ledgererr"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const accountColumns = `id, account_number, account_holder, account_type, balance, created_at`

const transactionColumns = `id, account_id, type, amount, description, created_at`

// PostgresStore persists the ledger in PostgreSQL. Per-account serialization
// comes from the row lock taken by SELECT ... FOR UPDATE inside the commit
// transaction.
type PostgresStore struct {
	db *sql.DB
}

var _ LedgerStore = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.AccountNumber, &a.AccountHolder, &a.AccountType, &a.Balance, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	if err := row.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.Description, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account models.Account) error {
	if err := validateNewAccount(account); err != nil {
		return err
	}
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.AccountNumber, account.AccountHolder,
		string(account.AccountType), account.Balance, createdAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ledgererr.ErrDuplicateAccount, pqErr.Constraint)
		}
		return ledgererr.Storage("create account", err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledgererr.ErrAccountNotFound
	}
	if err != nil {
		return nil, ledgererr.Storage("get account", err)
	}
	return account, nil
}

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY account_number`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, ledgererr.Storage("list accounts", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, ledgererr.Storage("scan account", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgererr.Storage("list accounts", err)
	}
	return accounts, nil
}

// WithAccountLock waits for the account row lock using ctx. Once the lock is
// held the remaining statements run detached from ctx cancellation, so a
// cancelled caller cannot interrupt a commit half way; any failure still rolls
// back both writes.
func (s *PostgresStore) WithAccountLock(ctx context.Context, id string, fn CommitFunc) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, ledgererr.Storage("begin commit", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lockQuery := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	account, err := scanAccount(tx.QueryRowContext(ctx, lockQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledgererr.ErrAccountNotFound
	}
	if err != nil {
		return nil, ledgererr.Storage("acquire account lock", err)
	}

	commit, err := fn(*account)
	if err != nil {
		return nil, err
	}
	if commit == nil {
		return nil, nil
	}
	if err := checkCommit(id, commit); err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	if _, err := tx.ExecContext(detached,
		`UPDATE accounts SET balance = $2 WHERE id = $1`,
		id, commit.NewBalance,
	); err != nil {
		return nil, ledgererr.Storage("update balance", err)
	}

	t := commit.Transaction
	insert := `INSERT INTO transactions (` + transactionColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(detached, insert,
		t.ID, t.AccountID, string(t.Type), t.Amount, t.Description, t.CreatedAt,
	); err != nil {
		return nil, ledgererr.Storage("append transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, ledgererr.Storage("commit", err)
	}
	committed = true
	return &t, nil
}

func (s *PostgresStore) CountTransactions(ctx context.Context, accountID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID,
	).Scan(&total)
	if err != nil {
		return 0, ledgererr.Storage("count transactions", err)
	}
	return total, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, accountID string, offset, limit int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, ledgererr.Storage("list transactions", err)
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0, limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, ledgererr.Storage("scan transaction", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgererr.Storage("list transactions", err)
	}
	return txs, nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, accountID, transactionID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND account_id = $2`
	t, err := scanTransaction(s.db.QueryRowContext(ctx, query, transactionID, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledgererr.ErrTransactionNotFound
	}
	if err != nil {
		return nil, ledgererr.Storage("get transaction", err)
	}
	return t, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
