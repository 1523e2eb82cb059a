package command

import (
	"context"
	"errors"
	"time"

	"github.com/eaglebank/ledger/internal/ledgererr"
	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	minDescriptionLength = 3
	maxDescriptionLength = 100

	DefaultLockTimeout = 5 * time.Second
)

// EventPublisher is satisfied by *events.Publisher and events.NopPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// TransactionCommandService is the only writer of balances. Every mutation of
// an account happens inside that account's lock, so the funds check and the
// balance write can never interleave with another writer.
type TransactionCommandService struct {
	store       repository.LedgerStore
	publisher   EventPublisher
	logger      *zap.Logger
	lockTimeout time.Duration
	now         func() time.Time
}

type Option func(*TransactionCommandService)

// WithLockTimeout bounds how long CreateTransaction waits for the account lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *TransactionCommandService) { s.lockTimeout = d }
}

// WithClock replaces time.Now for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TransactionCommandService) { s.now = now }
}

func NewTransactionCommandService(store repository.LedgerStore, publisher EventPublisher, logger *zap.Logger, opts ...Option) *TransactionCommandService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TransactionCommandService{
		store:       store,
		publisher:   publisher,
		logger:      logger,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTransaction validates cmd, then applies it to the account under its
// lock. On success the returned transaction and the new balance are both
// committed; on any error neither is.
func (s *TransactionCommandService) CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.Transaction, error) {
	description, err := validateCreate(cmd)
	if err != nil {
		return nil, err
	}

	var newBalance decimal.Decimal

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	tx, err := s.store.WithAccountLock(lockCtx, cmd.AccountID, func(account models.Account) (*repository.Commit, error) {
		if cmd.Type.IsDebit() && cmd.Amount.GreaterThan(account.Balance) {
			return nil, ledgererr.ErrInsufficientFunds
		}

		id, err := utils.GenerateTransactionID()
		if err != nil {
			return nil, ledgererr.Storage("generate transaction id", err)
		}

		newBalance = cmd.Type.Apply(account.Balance, cmd.Amount)
		if !models.FitsLedger(newBalance) {
			return nil, ledgererr.Invalid("amount", "would take the balance past the ledger limit")
		}
		return &repository.Commit{
			NewBalance: newBalance,
			Transaction: models.Transaction{
				ID:          id,
				AccountID:   account.ID,
				Type:        cmd.Type,
				Amount:      cmd.Amount,
				Description: description,
				// Postgres keeps microseconds; both stores must report the same instant.
				CreatedAt: s.now().UTC().Truncate(time.Microsecond),
			},
		}, nil
	})
	if err != nil {
		s.logRejected(cmd, err)
		return nil, err
	}

	s.logger.Info("transaction committed",
		zap.String("transactionId", tx.ID),
		zap.String("accountId", tx.AccountID),
		zap.String("type", string(tx.Type)),
		zap.String("amount", tx.Amount.String()),
		zap.String("newBalance", newBalance.String()),
	)

	s.afterCommit(ctx, tx, newBalance)
	return tx, nil
}

// afterCommit publishes the commit. The projection consumer warms the read
// model from the event; a failure here is logged and swallowed.
func (s *TransactionCommandService) afterCommit(ctx context.Context, tx *models.Transaction, newBalance decimal.Decimal) {
	ctx = context.WithoutCancel(ctx)

	if err := s.publisher.Publish(ctx, events.TransactionEventsStream, events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Description:   tx.Description,
		NewBalance:    newBalance,
		CreatedAt:     tx.CreatedAt,
	}); err != nil {
		s.logger.Warn("failed to publish transaction.created event",
			zap.String("transactionId", tx.ID),
			zap.Error(err),
		)
	}
}

func (s *TransactionCommandService) logRejected(cmd cqrs.CreateTransactionCommand, err error) {
	fields := []zap.Field{
		zap.String("accountId", cmd.AccountID),
		zap.String("type", string(cmd.Type)),
		zap.String("amount", cmd.Amount.String()),
		zap.Error(err),
	}
	if errors.Is(err, ledgererr.ErrStorage) {
		s.logger.Error("transaction failed", fields...)
		return
	}
	s.logger.Info("transaction rejected", fields...)
}

// validateCreate checks everything that does not depend on account state and
// returns the trimmed description.
func validateCreate(cmd cqrs.CreateTransactionCommand) (string, error) {
	if !cmd.Type.Valid() {
		return "", ledgererr.Invalid("type", "must be one of DEPOSIT, WITHDRAWAL, TRANSFER")
	}
	if !cmd.Amount.IsPositive() {
		return "", ledgererr.Invalid("amount", "must be greater than 0")
	}
	if !models.FitsLedger(cmd.Amount) {
		return "", ledgererr.Invalid("amount", "must have at most 4 decimal places and be less than 10^15")
	}
	description, n := utils.TrimmedLength(cmd.Description)
	if n < minDescriptionLength || n > maxDescriptionLength {
		return "", ledgererr.Invalid("description", "must be between 3 and 100 characters")
	}
	return description, nil
}
