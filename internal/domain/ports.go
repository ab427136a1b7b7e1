package domain

import (
	"context"
	"time"
)

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// OrderLocker выдаёт эксклюзивную блокировку на заказ: одна транзиция за раз.
type OrderLocker interface {
	// Lock ждёт блокировку до отмены ctx и возвращает функцию освобождения.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// FulfillmentStep задаёт константы шагов для метрик/логов.
type FulfillmentStep string

const (
	FulfillmentStepTransition FulfillmentStep = "transition"
	FulfillmentStepDeduct     FulfillmentStep = "deduct"
	FulfillmentStepRestore    FulfillmentStep = "restore"
	FulfillmentStepCancel     FulfillmentStep = "cancel"
	FulfillmentStepArchive    FulfillmentStep = "archive"
	FulfillmentStepPurge      FulfillmentStep = "purge"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
