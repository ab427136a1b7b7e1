package domain

import (
	"errors"
	"fmt"
)

var (
	// Операция запрещена в текущем состоянии заказа.
	ErrInvalidState = errors.New("invalid order state")
	// Отменённый заказ больше нельзя переводить по статусам.
	ErrOrderCancelled = fmt.Errorf("%w: cannot modify a cancelled order", ErrInvalidState)
	// Удалять можно только завершённые заказы.
	ErrOrderNotCompleted = fmt.Errorf("%w: only completed orders may be deleted", ErrInvalidState)
	// На складе не хватает единиц товара.
	ErrInsufficientStock = errors.New("insufficient stock")
	// Общий признак отсутствующей сущности.
	ErrNotFound = errors.New("not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// Неизвестное значение статуса.
	ErrInvalidStatus = errors.New("invalid order status")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка позиции без ссылки на товар.
	ErrItemProductRequired = errors.New("item product_id is required")
	// Ошибка, если цена отрицательная.
	ErrPriceInvalid = errors.New("price must be non-negative")
	// Ошибка отрицательного остатка.
	ErrStockNegative = errors.New("stock must be non-negative")
	// Ошибка пустого названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Товар с таким ID уже заведён.
	ErrProductExists = errors.New("product already exists")
	// Заказ с таким ID уже заведён.
	ErrOrderExists = errors.New("order already exists")
	// Ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// MissingProductName подставляется в ошибку, если товар удалён из каталога.
const MissingProductName = "#"

// InsufficientStockError описывает первую позицию, по которой не хватило остатка.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int64
	Available   int64
	// Товара нет в каталоге вовсе.
	Missing bool
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if e.Missing || name == "" {
		name = MissingProductName
	}
	return fmt.Sprintf("insufficient stock for product: %s (requested %d, available %d)", name, e.Requested, e.Available)
}

// Unwrap позволяет матчить ошибку через errors.Is по ErrInsufficientStock
// и, для удалённого товара, по ErrProductNotFound.
func (e *InsufficientStockError) Unwrap() []error {
	if e.Missing {
		return []error{ErrInsufficientStock, ErrProductNotFound}
	}
	return []error{ErrInsufficientStock}
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsNotFound проверяет, что сущность не найдена (заказ или товар).
func IsNotFound(err error) bool {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return false
	}
	return errors.Is(err, ErrNotFound)
}

// IsValidation сообщает об ошибке входных данных, повтор с теми же данными не поможет.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var validationErrors = []error{
	ErrInvalidStatus,
	ErrOrderIDRequired,
	ErrUserRequired,
	ErrItemsRequired,
	ErrItemQtyInvalid,
	ErrItemProductRequired,
	ErrPriceInvalid,
	ErrStockNegative,
	ErrProductNameRequired,
}

// ErrorKind — класс ошибки, по которому транспорт выбирает код ответа.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindInsufficientStock
	KindConflict
)

// KindOf классифицирует ошибку. Нехватка остатка проверяется раньше NotFound:
// удалённый товар в заказе означает отказ в списании, а не отсутствие заказа.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case IsValidation(err):
		return KindValidation
	case errors.Is(err, ErrOrderVersionConflict), errors.Is(err, ErrOrderExists), errors.Is(err, ErrProductExists):
		return KindConflict
	}
	return KindInternal
}
