package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает этап исполнения заказа.
type OrderStatus string

const (
	// Заказ принят, товар со склада не списан.
	OrderStatusPending OrderStatus = "pending"
	// Заказ собирается, остатки списаны.
	OrderStatusProcessing OrderStatus = "processing"
	// Заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// Заказ получен покупателем.
	OrderStatusCompleted OrderStatus = "completed"
)

// Valid сообщает, известен ли статус.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusCompleted:
		return true
	}
	return false
}

// ConsumesStock сообщает, входит ли статус в те, где товар должен быть списан со склада.
func (s OrderStatus) ConsumesStock() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusCompleted:
		return true
	}
	return false
}

// ParseOrderStatus приводит строку из API к статусу.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	// Количество единиц товара.
	Quantity int64
	// Цена за единицу на момент оформления.
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID     string
	UserID string
	Status OrderStatus
	// Остатки по позициям уже списаны; защищает от двойного списания.
	StockDeducted   bool
	IsCancelled     bool
	CancelledAt     *time.Time
	DeletedAt       *time.Time
	ShippingAddress string
	Phone           string
	Notes           string
	Items           []OrderItem
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsDeleted сообщает, что заказ помещён в архив (мягко удалён).
func (o *Order) IsDeleted() bool {
	return o.DeletedAt != nil
}

// Total считает сумму заказа по позициям.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}
	return total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrPriceInvalid)
		}
	}

	return errs
}

// Clone возвращает копию заказа, не разделяющую срез позиций и указатели.
func (o Order) Clone() Order {
	if o.Items != nil {
		o.Items = append([]OrderItem(nil), o.Items...)
	}
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		o.CancelledAt = &t
	}
	if o.DeletedAt != nil {
		t := *o.DeletedAt
		o.DeletedAt = &t
	}
	return o
}
