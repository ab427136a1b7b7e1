package domain

import "time"

// Типы событий заказа: попадают и в ленту, и в outbox.
const (
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderStockDeducted = "OrderStockDeducted"
	EventOrderStockRestored = "OrderStockRestored"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderArchived      = "OrderArchived"
	EventOrderPurged        = "OrderPurged"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}
