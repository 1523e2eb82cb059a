// Package projection keeps the Redis read model in step with committed
// transactions by consuming the transaction event stream.
package projection

import (
	"context"

	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/models"
	"go.uber.org/zap"
)

const (
	ConsumerGroup = "ledger-projection"
)

// ViewCacher is implemented by repository.TransactionReadRepository.
type ViewCacher interface {
	CacheTransactionView(ctx context.Context, view *models.TransactionView)
}

type TransactionProjection struct {
	views  ViewCacher
	logger *zap.Logger
}

func NewTransactionProjection(views ViewCacher, logger *zap.Logger) *TransactionProjection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionProjection{views: views, logger: logger}
}

// HandleTransactionEvent caches the view carried by a transaction.created
// event. Redelivery rewrites the same immutable view, so it is idempotent.
func (p *TransactionProjection) HandleTransactionEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.TransactionCreated {
		return nil
	}

	var data events.TransactionCreatedEvent
	if err := events.DecodeData(event, &data); err != nil {
		return err
	}

	p.views.CacheTransactionView(ctx, &models.TransactionView{
		ID:          data.TransactionID,
		AccountID:   data.AccountID,
		Type:        models.TransactionType(data.Type),
		Amount:      data.Amount,
		Description: data.Description,
		CreatedAt:   data.CreatedAt,
	})

	p.logger.Debug("transaction view projected",
		zap.String("transactionId", data.TransactionID),
		zap.String("accountId", data.AccountID),
	)
	return nil
}

// Run consumes the transaction stream until ctx is cancelled.
func (p *TransactionProjection) Run(ctx context.Context, subscriber *events.Subscriber) {
	if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("projection stopped", zap.Error(err))
	}
}
