package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewOutboxRepository(store)

	generated, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     domain.EventOrderStatusChanged,
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)

	fixed, err := repo.Enqueue(domain.OutboxMessage{
		ID:            "outbox-fixed-id",
		AggregateType: "order",
		AggregateID:   "order-2",
		EventType:     domain.EventOrderArchived,
		Payload:       []byte(`{"order_id":"order-2"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "outbox-fixed-id", fixed.ID)

	pending, err := repo.PullPending(0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingCount)
	assert.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(generated.ID))
	require.NoError(t, repo.MarkFailed(fixed.ID))

	pending, err = repo.PullPending(10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, repo.MarkSent("missing-outbox"), domain.ErrOutboxPublish)
	assert.ErrorIs(t, repo.MarkFailed("missing-outbox"), domain.ErrOutboxPublish)
}

func TestOutboxRepository_PostgresPullsOldestFirst(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewOutboxRepository(store)

	first, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "order", AggregateID: "old", EventType: domain.EventOrderCancelled, Payload: []byte(`{}`)})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = repo.Enqueue(domain.OutboxMessage{AggregateType: "order", AggregateID: "new", EventType: domain.EventOrderCancelled, Payload: []byte(`{}`)})
	require.NoError(t, err)

	batch, err := repo.PullPending(1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, first.ID, batch[0].ID)
}
