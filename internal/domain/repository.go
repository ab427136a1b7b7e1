package domain

import (
	"context"
	"time"
)

// ProductFilter ограничивает выборку каталога.
type ProductFilter struct {
	// Только активные и не отклонённые товары (витрина).
	OnlyVisible bool
	Limit       int
}

// CatalogRepository описывает требования к хранилищу товаров.
type CatalogRepository interface {
	// Create сохраняет новый товар. ErrProductExists, если ID занят.
	Create(ctx context.Context, product Product) error
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// Update перезаписывает карточку товара, включая остаток.
	Update(ctx context.Context, product Product) error
	// Delete удаляет товар из каталога.
	Delete(ctx context.Context, id string) error
	// List возвращает товары, новые первыми.
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	// SetRejected переключает признак отклонения модератором.
	SetRejected(ctx context.Context, id string, rejected bool) error
	// DecrementStock атомарно уменьшает остаток, только если его хватает.
	// Иначе остаток не меняется и возвращается ErrInsufficientStock.
	DecrementStock(ctx context.Context, id string, qty int64) error
	// IncrementStock атомарно увеличивает остаток.
	IncrementStock(ctx context.Context, id string, qty int64) error
}

// OrderFilter ограничивает выборку заказов.
type OrderFilter struct {
	Status         OrderStatus
	UserID         string
	IncludeDeleted bool
	Limit          int
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ с позициями; мягко удалённые считаются отсутствующими.
	Get(ctx context.Context, id string) (Order, error)
	// GetIncludingDeleted возвращает заказ с позициями, в том числе из архива.
	GetIncludingDeleted(ctx context.Context, id string) (Order, error)
	// List возвращает заказы по фильтру, новые первыми.
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
	// SoftDelete помечает заказ удалённым, не трогая позиции.
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// DeleteItems удаляет позиции заказа.
	DeleteItems(ctx context.Context, orderID string) error
	// HardDelete окончательно удаляет запись заказа.
	HardDelete(ctx context.Context, id string) error
}

// OrderPurger — хранилище умеет удалить позиции и заказ одной транзакцией.
type OrderPurger interface {
	Purge(ctx context.Context, id string) error
}
