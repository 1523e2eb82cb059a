package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	TransactionCreated = "transaction.created"
)

// Stream names
const (
	TransactionEventsStream = "transaction.events"
)

// Base event structure. On the consumer side Data holds the undecoded
// json.RawMessage; use DecodeData to read it into a typed payload.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// TransactionCreatedEvent is published once per committed transaction and
// carries the full immutable record plus the balance it produced.
type TransactionCreatedEvent struct {
	TransactionID string          `json:"transactionId"`
	AccountID     string          `json:"accountId"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	NewBalance    decimal.Decimal `json:"newBalance"`
	CreatedAt     time.Time       `json:"createdAt"`
}
