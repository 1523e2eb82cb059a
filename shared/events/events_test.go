package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestPublishAndConsume(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	var received []TransactionCreatedEvent
	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "test-group",
		Consumer:      "test-consumer",
		Stream:        TransactionEventsStream,
		BlockDuration: 100 * time.Millisecond,
		Handler: func(ctx context.Context, event Event) error {
			require.Equal(t, TransactionCreated, event.Type)
			var data TransactionCreatedEvent
			if err := DecodeData(event, &data); err != nil {
				return err
			}
			received = append(received, data)
			return nil
		},
	})
	require.NoError(t, sub.EnsureGroup(ctx))
	require.NoError(t, sub.EnsureGroup(ctx), "existing group is not an error")

	pub := NewPublisher(client, zap.NewNop())
	require.NoError(t, pub.Publish(ctx, TransactionEventsStream, TransactionCreated, TransactionCreatedEvent{
		TransactionID: "t1",
		AccountID:     "1",
		Type:          "DEPOSIT",
		Amount:        decimal.RequireFromString("100.00"),
		Description:   "Paycheck",
		NewBalance:    decimal.RequireFromString("5100.00"),
		CreatedAt:     time.Now().UTC(),
	}))

	acked, err := sub.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
	require.Len(t, received, 1)
	assert.Equal(t, "t1", received[0].TransactionID)
	assert.True(t, received[0].NewBalance.Equal(decimal.NewFromInt(5100)))
}

func TestConsumedPayloadKeepsDecimalPrecision(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	amount := decimal.RequireFromString("1234567890123.4567")
	balance := decimal.RequireFromString("98765432109876.5432")

	var received TransactionCreatedEvent
	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "test-group",
		Consumer:      "test-consumer",
		Stream:        TransactionEventsStream,
		BlockDuration: 100 * time.Millisecond,
		Handler: func(ctx context.Context, event Event) error {
			return DecodeData(event, &received)
		},
	})
	require.NoError(t, sub.EnsureGroup(ctx))

	require.NoError(t, NewPublisher(client, zap.NewNop()).Publish(ctx, TransactionEventsStream, TransactionCreated, TransactionCreatedEvent{
		TransactionID: "t-precise",
		AccountID:     "1",
		Type:          "DEPOSIT",
		Amount:        amount,
		Description:   "Large deposit",
		NewBalance:    balance,
		CreatedAt:     time.Now().UTC(),
	}))

	acked, err := sub.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, acked)
	assert.True(t, received.Amount.Equal(amount), "amount %s != %s", received.Amount, amount)
	assert.True(t, received.NewBalance.Equal(balance), "balance %s != %s", received.NewBalance, balance)
}

func TestDecodeDataFromInProcessEvent(t *testing.T) {
	var out TransactionCreatedEvent
	err := DecodeData(Event{Type: TransactionCreated, Data: TransactionCreatedEvent{
		TransactionID: "t1",
		Amount:        decimal.RequireFromString("0.0001"),
	}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "t1", out.TransactionID)
	assert.True(t, out.Amount.Equal(decimal.RequireFromString("0.0001")))
}

func TestFailedHandlerLeavesMessagePending(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	sub := NewSubscriber(client, SubscriberConfig{
		Group:    "test-group",
		Consumer: "test-consumer",
		Stream:   TransactionEventsStream,
		Handler:  func(context.Context, Event) error { return errors.New("projection down") },
	})
	require.NoError(t, sub.EnsureGroup(ctx))
	require.NoError(t, NewPublisher(client, nil).Publish(ctx, TransactionEventsStream, TransactionCreated, map[string]string{"transactionId": "t1"}))

	acked, err := sub.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)

	pending, err := client.XPending(ctx, TransactionEventsStream, "test-group").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count)
}

func TestPublisherBreakerOpensWhenRedisIsDown(t *testing.T) {
	mr, client := newTestClient(t)
	mr.Close()

	pub := NewPublisher(client, zap.NewNop())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.Error(t, pub.Publish(ctx, TransactionEventsStream, TransactionCreated, nil))
	}

	err := pub.Publish(ctx, TransactionEventsStream, TransactionCreated, nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), "s", "t", nil))
}
